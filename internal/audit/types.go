package audit

import "time"

const (
	// Retention is how long entries survive before Prune drops them.
	Retention = 60 * 24 * time.Hour
	// MaxEntries caps the ledger after retention pruning.
	MaxEntries = 5000
	// DefaultPageSize applies when a query leaves PageSize unset.
	DefaultPageSize = 25
)

// Event is the raw descriptor a workflow hands to Append.
type Event struct {
	Actor      string
	Action     string
	TargetType string
	TargetID   string
	Summary    string
	Meta       map[string]any
}

// LogEntry is an immutable ledger record.
type LogEntry struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	TargetType string         `json:"targetType"`
	TargetID   string         `json:"targetId"`
	Summary    string         `json:"summary"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// LogQuery holds the logs view filter criteria. Zero From/To select the
// default window: Retention before now through now.
type LogQuery struct {
	From     time.Time
	To       time.Time
	Actor    string
	Action   string
	Text     string
	Page     int
	PageSize int
}

// Result is one page of a query.
type Result struct {
	Items        []LogEntry `json:"items"`
	TotalMatched int        `json:"totalMatched"`
	Page         int        `json:"page"`
	Pages        int        `json:"pages"`
}

// Filters are the distinct values the logs view offers as actor and action
// choices.
type Filters struct {
	Actors  []string `json:"actors"`
	Actions []string `json:"actions"`
}
