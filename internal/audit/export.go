package audit

import (
	"encoding/csv"
	"strings"
	"time"
)

var csvHeader = []string{"time", "actor", "action", "target", "summary"}

// ExportCSV renders items as CSV with a header row. Fields containing the
// delimiter, quotes or newlines are quoted with doubled inner quotes.
func ExportCSV(items []LogEntry) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, e := range items {
		row := []string{
			e.Timestamp.Format(time.RFC3339),
			e.Actor,
			e.Action,
			e.Target(),
			e.Summary,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Target renders the entry's target as type:id, or whichever half is set.
func (e LogEntry) Target() string {
	switch {
	case e.TargetType != "" && e.TargetID != "":
		return e.TargetType + ":" + e.TargetID
	case e.TargetID != "":
		return e.TargetID
	default:
		return e.TargetType
	}
}
