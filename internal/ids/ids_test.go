package ids

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestNewIsUniqueAndOrdered(t *testing.T) {
	const n = 2000
	seen := make(map[string]struct{}, n)
	prev := ""
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		id := NewAt(at)
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
		if prev != "" && id <= prev {
			t.Fatalf("ids not increasing: %s <= %s", id, prev)
		}
		prev = id
	}
}

func TestNewAtEncodesTimestamp(t *testing.T) {
	at := time.Date(2024, 3, 5, 8, 30, 0, 0, time.UTC)
	parsed, err := ulid.Parse(NewAt(at))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := ulid.Time(parsed.Time()); !got.Equal(at) {
		t.Fatalf("timestamp = %v, want %v", got, at)
	}
}
