package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/jobwatch/internal/tracker"
)

// timeLayout is fixed-width so recorded_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Record appends a lifecycle event. Implements tracker.Recorder.
//
// Uses ON CONFLICT(job_id, seq) DO NOTHING for idempotency - recording the
// same event twice is silently ignored. Other constraint violations (unknown
// kind, progress out of range) still return errors.
func (s *Store) Record(ctx context.Context, ev tracker.LifecycleEvent) error {
	if ev.JobID == "" {
		return fmt.Errorf("record event: empty job id")
	}

	var progress sql.NullInt64
	if ev.Progress != nil {
		progress = sql.NullInt64{Int64: int64(*ev.Progress), Valid: true}
	}

	recordedAt := ev.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_events
		(seq, job_id, external_id, title, kind, progress, stage, message, article_id, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id, seq) DO NOTHING
	`,
		ev.Seq,
		ev.JobID,
		ev.ExternalID,
		ev.Title,
		string(ev.Kind),
		progress,
		ev.Stage,
		ev.Message,
		ev.ArticleID,
		recordedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	return nil
}
