// Package finance aggregates membership payments.
package finance

import (
	"sort"
	"strings"

	"actionplus.app/internal/members"
)

// Bucket is a count and amount total; Amount is in minor units.
type Bucket struct {
	Key    string `json:"key"`
	Count  int    `json:"count"`
	Amount int64  `json:"amount"`
}

// Summary is the finance overview.
type Summary struct {
	Month           string   `json:"month,omitempty"`
	Count           int      `json:"count"`
	Total           int64    `json:"total"`
	ByStatus        []Bucket `json:"byStatus"`
	ByPlan          []Bucket `json:"byPlan"`
	ByPaymentMethod []Bucket `json:"byPaymentMethod"`
}

// Summarize totals list. A non-empty month (Month-YYYY, any case) restricts
// the sum to members paying for that month.
func Summarize(list []members.Member, month string) Summary {
	month = strings.TrimSpace(month)
	out := Summary{Month: month}
	status := map[string]*Bucket{}
	plan := map[string]*Bucket{}
	method := map[string]*Bucket{}
	for _, m := range list {
		if month != "" && !strings.EqualFold(m.PayMonth, month) {
			continue
		}
		out.Count++
		out.Total += m.Amount
		add(status, string(m.Status), m.Amount)
		add(plan, m.Plan, m.Amount)
		add(method, m.PaymentMethod, m.Amount)
	}
	out.ByStatus = statusOrder(status)
	out.ByPlan = sorted(plan)
	out.ByPaymentMethod = sorted(method)
	return out
}

func add(into map[string]*Bucket, key string, amount int64) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "Unspecified"
	}
	b, ok := into[key]
	if !ok {
		b = &Bucket{Key: key}
		into[key] = b
	}
	b.Count++
	b.Amount += amount
}

// statusOrder lists every known status, including empty ones, then any others.
func statusOrder(m map[string]*Bucket) []Bucket {
	out := make([]Bucket, 0, len(members.Statuses))
	for _, s := range members.Statuses {
		if b, ok := m[string(s)]; ok {
			out = append(out, *b)
			delete(m, string(s))
			continue
		}
		out = append(out, Bucket{Key: string(s)})
	}
	return append(out, sorted(m)...)
}

// sorted orders buckets by amount, largest first, then by key.
func sorted(m map[string]*Bucket) []Bucket {
	out := make([]Bucket, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Key < out[j].Key
	})
	return out
}
