package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/jobwatch/internal/tracker"
)

const eventColumns = `seq, job_id, external_id, title, kind, progress, stage, message, article_id, recorded_at`

// JobSummary is the latest known state of one job in the log.
type JobSummary struct {
	JobID      string            `json:"jobId"`
	ExternalID string            `json:"externalId"`
	Title      string            `json:"title"`
	LastKind   tracker.EventKind `json:"lastKind"`
	LastSeq    int64             `json:"lastSeq"`
	Progress   *int              `json:"progress,omitempty"`
	Message    string            `json:"message,omitempty"`
	ArticleID  string            `json:"articleId,omitempty"`
	Events     int               `json:"events"`
	FirstAt    time.Time         `json:"firstAt"`
	LastAt     time.Time         `json:"lastAt"`
}

// Finished reports whether the job reached a terminal event.
func (s JobSummary) Finished() bool {
	return s.LastKind.Terminal()
}

// JobEvents returns every event of one job ordered by seq.
//
// Returns an empty slice (not nil) if the job is unknown.
func (s *Store) JobEvents(ctx context.Context, jobID string) ([]tracker.LifecycleEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM job_events
		WHERE job_id = ?
		ORDER BY seq ASC, id ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("query job events: %w", err)
	}
	return collectEvents(rows)
}

// RecentEvents returns the latest limit events across all jobs, oldest
// first. A limit <= 0 returns everything.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]tracker.LifecycleEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM (
			SELECT id, `+eventColumns+`
			FROM job_events
			ORDER BY seq DESC, id DESC
			LIMIT ?
		)
		ORDER BY seq ASC, id ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	return collectEvents(rows)
}

// JobSummaries returns one summary per job, most recently active first.
// A limit <= 0 returns every job.
func (s *Store) JobSummaries(ctx context.Context, limit int) ([]JobSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.job_id, e.external_id, e.title, e.kind, e.seq, agg.max_progress,
		       e.message, e.article_id, agg.n, agg.first_at, e.recorded_at
		FROM job_events e
		JOIN (
			SELECT job_id, MAX(seq) AS last_seq, MAX(progress) AS max_progress,
			       COUNT(*) AS n, MIN(recorded_at) AS first_at
			FROM job_events
			GROUP BY job_id
		) agg ON agg.job_id = e.job_id AND agg.last_seq = e.seq
		ORDER BY e.seq DESC, e.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query job summaries: %w", err)
	}
	defer rows.Close()

	summaries := []JobSummary{}
	for rows.Next() {
		var (
			sum             JobSummary
			kind            string
			progress        sql.NullInt64
			firstAt, lastAt string
		)
		if err := rows.Scan(&sum.JobID, &sum.ExternalID, &sum.Title, &kind, &sum.LastSeq, &progress,
			&sum.Message, &sum.ArticleID, &sum.Events, &firstAt, &lastAt); err != nil {
			return nil, fmt.Errorf("scan job summary: %w", err)
		}
		sum.LastKind = tracker.EventKind(kind)
		if progress.Valid {
			p := int(progress.Int64)
			sum.Progress = &p
		}
		if sum.FirstAt, err = parseTime(firstAt); err != nil {
			return nil, err
		}
		if sum.LastAt, err = parseTime(lastAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job summaries: %w", err)
	}

	return summaries, nil
}

// MaxSeq returns the highest seq recorded, or 0 for an empty log.
// Used to resume the engine's clock with tracker.NewClockAt.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM job_events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query max seq: %w", err)
	}
	return seq, nil
}

func collectEvents(rows *sql.Rows) ([]tracker.LifecycleEvent, error) {
	defer rows.Close()

	events := []tracker.LifecycleEvent{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func scanEvent(rows *sql.Rows) (tracker.LifecycleEvent, error) {
	var (
		ev         tracker.LifecycleEvent
		kind       string
		progress   sql.NullInt64
		recordedAt string
	)
	if err := rows.Scan(&ev.Seq, &ev.JobID, &ev.ExternalID, &ev.Title, &kind, &progress,
		&ev.Stage, &ev.Message, &ev.ArticleID, &recordedAt); err != nil {
		return tracker.LifecycleEvent{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Kind = tracker.EventKind(kind)
	if progress.Valid {
		p := int(progress.Int64)
		ev.Progress = &p
	}
	t, err := parseTime(recordedAt)
	if err != nil {
		return tracker.LifecycleEvent{}, err
	}
	ev.RecordedAt = t
	return ev, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse recorded_at %q: %w", s, err)
	}
	return t, nil
}
