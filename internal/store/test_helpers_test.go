package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/jobwatch/internal/tracker"
)

var testEpoch = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvent creates an event with minimal required fields.
// RecordedAt advances one second per seq.
func createTestEvent(jobID string, seq int64, kind tracker.EventKind) tracker.LifecycleEvent {
	return tracker.LifecycleEvent{
		Seq:        seq,
		JobID:      jobID,
		ExternalID: "ext-" + jobID,
		Title:      "Paper " + jobID,
		Kind:       kind,
		RecordedAt: testEpoch.Add(time.Duration(seq) * time.Second),
	}
}

func intPtr(v int) *int { return &v }
