package store

import (
	"fmt"
	"strings"
	"time"
)

// MeetingRecord is the durable artifact for one completed job. Records are
// immutable once written; re-processing the same audio produces a new
// record under a new key.
type MeetingRecord struct {
	Languages  string    `json:"languages"`
	Transcript string    `json:"transcript"`
	Summary    string    `json:"summary"`
	CreatedAt  time.Time `json:"-"`
}

const (
	KeyPrefix     = "meetings/"
	keyTimeLayout = "2006-01-02_15-04-05"
)

// KeyFor derives the storage key from the creation timestamp at second
// granularity. Two records created in the same second collide; accepted
// limitation.
func KeyFor(t time.Time) string {
	return fmt.Sprintf("%smeeting_%s.json", KeyPrefix, t.Format(keyTimeLayout))
}

// ParseKey recovers the creation timestamp from a storage key.
func ParseKey(key string) (time.Time, error) {
	name := strings.TrimPrefix(key, KeyPrefix)
	if !strings.HasPrefix(name, "meeting_") || !strings.HasSuffix(name, ".json") {
		return time.Time{}, fmt.Errorf("not a meeting key: %s", key)
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, "meeting_"), ".json")
	t, err := time.Parse(keyTimeLayout, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse key %s: %w", key, err)
	}
	return t, nil
}

// DisplayName renders the human-readable name shown in listings.
func DisplayName(t time.Time) string {
	return t.Format("01/02/2006 (15:04:05)") + " Meeting"
}
