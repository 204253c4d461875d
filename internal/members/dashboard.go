package members

import (
	"sort"
	"strings"
	"time"
)

// RowsPerPage is the dashboard page size for every segment.
const RowsPerPage = 10

type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

const defaultSortKey = "joinDate"

// SortState is the per-segment table state.
type SortState struct {
	Key  string  `json:"sortKey"`
	Dir  SortDir `json:"sortDir"`
	Page int     `json:"page"`
}

// DefaultSort is newest joiners first.
func DefaultSort() SortState {
	return SortState{Key: defaultSortKey, Dir: SortDesc, Page: 1}
}

// NextSort applies a header click: a new key sorts ascending, the same key
// goes asc then desc then back to the default. The page resets to 1.
func NextSort(s SortState, key string) SortState {
	if s.Key != key {
		return SortState{Key: key, Dir: SortAsc, Page: 1}
	}
	switch s.Dir {
	case SortAsc:
		return SortState{Key: key, Dir: SortDesc, Page: 1}
	case SortDesc:
		return DefaultSort()
	default:
		return SortState{Key: key, Dir: SortAsc, Page: 1}
	}
}

// DashboardQuery is the dashboard view state. Segments missing from Sorts use
// DefaultSort.
type DashboardQuery struct {
	Search string
	Sorts  map[Status]SortState
}

// Segment is one status table.
type Segment struct {
	Status Status    `json:"status"`
	Count  int       `json:"count"`
	Sort   SortState `json:"sort"`
	Pages  int       `json:"pages"`
	Rows   []Member  `json:"rows"`
}

// Dashboard splits members by status and applies search, sort and paging to
// each segment.
func Dashboard(list []Member, q DashboardQuery) []Segment {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	searchDigits := Digits(search)

	out := make([]Segment, 0, len(Statuses))
	for _, status := range Statuses {
		state, ok := q.Sorts[status]
		if !ok || state.Key == "" {
			state = DefaultSort()
		}
		rows := make([]Member, 0)
		for _, m := range list {
			if m.Status == status && matches(m, search, searchDigits) {
				rows = append(rows, m)
			}
		}
		sortRows(rows, state)

		pages := (len(rows) + RowsPerPage - 1) / RowsPerPage
		if pages < 1 {
			pages = 1
		}
		if state.Page > pages {
			state.Page = pages
		}
		if state.Page < 1 {
			state.Page = 1
		}
		start := (state.Page - 1) * RowsPerPage
		end := start + RowsPerPage
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, Segment{
			Status: status,
			Count:  len(rows),
			Sort:   state,
			Pages:  pages,
			Rows:   rows[start:end],
		})
	}
	return out
}

// matches is a name substring or, when the query has digits, a match on the
// digits of the mobile number.
func matches(m Member, search, digits string) bool {
	if search == "" {
		return true
	}
	if strings.Contains(strings.ToLower(m.Name), search) {
		return true
	}
	return digits != "" && strings.Contains(Digits(m.Mobile), digits)
}

func sortRows(rows []Member, s SortState) {
	compare := func(a, b Member) int {
		switch s.Key {
		case "amount":
			return compareInt(a.Amount, b.Amount)
		case "joinDate", "billingDate":
			return dateOf(fieldText(a, s.Key)).Compare(dateOf(fieldText(b, s.Key)))
		default:
			return strings.Compare(strings.ToLower(fieldText(a, s.Key)), strings.ToLower(fieldText(b, s.Key)))
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := compare(rows[i], rows[j])
		if s.Dir == SortAsc {
			return c < 0
		}
		return c > 0
	})
}

func fieldText(m Member, key string) string {
	switch key {
	case "id":
		return m.ID
	case "formNumber":
		return m.FormNumber
	case "name":
		return m.Name
	case "mobile":
		return m.Mobile
	case "gender":
		return m.Gender
	case "plan":
		return m.Plan
	case "joinDate":
		return m.JoinDate
	case "billingDate":
		return m.BillingDate
	case "status":
		return string(m.Status)
	case "paymentMethod":
		return m.PaymentMethod
	case "payMonth":
		return m.PayMonth
	case "staff":
		return m.Staff
	default:
		return ""
	}
}

// dateOf treats missing or unparsable dates as the epoch.
func dateOf(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
