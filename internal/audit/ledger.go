package audit

import (
	"sort"
	"strings"
	"time"
)

// Prune drops entries older than Retention relative to now and then keeps
// only the newest MaxEntries. entries must be in insertion order; the
// returned slice preserves it.
func Prune(entries []LogEntry, now time.Time) []LogEntry {
	cutoff := now.Add(-Retention)
	kept := make([]LogEntry, 0, len(entries))
	for _, e := range entries {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) > MaxEntries {
		kept = kept[len(kept)-MaxEntries:]
	}
	return kept
}

// Filter returns every entry matching q, newest first. Entries sharing a
// timestamp keep reverse insertion order.
func Filter(entries []LogEntry, q LogQuery, now time.Time) []LogEntry {
	from, to := dayBounds(q, now)
	actor := strings.TrimSpace(q.Actor)
	action := strings.TrimSpace(q.Action)
	text := strings.ToLower(strings.TrimSpace(q.Text))

	matched := make([]LogEntry, 0)
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Timestamp.Before(from) || e.Timestamp.After(to) {
			continue
		}
		if actor != "" && e.Actor != actor {
			continue
		}
		if action != "" && e.Action != action {
			continue
		}
		if text != "" && !matchesText(e, text) {
			continue
		}
		matched = append(matched, e)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	return matched
}

// Query filters, sorts and paginates. The page is clamped into range.
func Query(entries []LogEntry, q LogQuery, now time.Time) Result {
	matched := Filter(entries, q, now)
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(matched)
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	return Result{
		Items:        matched[start:end],
		TotalMatched: total,
		Page:         page,
		Pages:        pages,
	}
}

// Actors lists distinct actors, sorted.
func Actors(entries []LogEntry) []string {
	return distinct(entries, func(e LogEntry) string { return e.Actor })
}

// Actions lists distinct actions, sorted.
func Actions(entries []LogEntry) []string {
	return distinct(entries, func(e LogEntry) string { return e.Action })
}

func distinct(entries []LogEntry, field func(LogEntry) string) []string {
	set := make(map[string]struct{})
	out := make([]string, 0)
	for _, e := range entries {
		v := field(e)
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func matchesText(e LogEntry, text string) bool {
	for _, field := range []string{e.Summary, e.TargetID, e.Action, e.Actor} {
		if strings.Contains(strings.ToLower(field), text) {
			return true
		}
	}
	return false
}

// dayBounds floors From to local midnight and ceils To to 23:59:59.999 of its
// date, both in now's location.
func dayBounds(q LogQuery, now time.Time) (time.Time, time.Time) {
	loc := now.Location()
	from := q.From
	if from.IsZero() {
		from = now.Add(-Retention)
	}
	to := q.To
	if to.IsZero() {
		to = now
	}
	from = from.In(loc)
	to = to.In(loc)
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	end := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
	return start, end
}
