package history

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kind classifies a journal row.
type Kind string

const (
	KindImported       Kind = "imported"
	KindImportFailed   Kind = "import_failed"
	KindUploaded       Kind = "uploaded"
	KindUploadFailed   Kind = "upload_failed"
	KindLedgerFailed   Kind = "ledger_failed"
	KindCameraAttached Kind = "camera_attached"
	KindCameraLost     Kind = "camera_lost"
	KindReset          Kind = "reset"
)

// Event is one journal row.
type Event struct {
	ID        int64
	CreatedAt time.Time
	RunID     string
	Kind      Kind
	File      string
	Detail    string
}

// Record appends an event and prunes rows beyond retention.
func (s *Store) Record(ctx context.Context, evt Event) error {
	if strings.TrimSpace(string(evt.Kind)) == "" {
		return fmt.Errorf("record event: kind is required")
	}
	created := evt.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO events (created_at, run_id, kind, file, detail) VALUES (?, ?, ?, ?, ?)",
			created.UTC().Format(time.RFC3339Nano), evt.RunID, string(evt.Kind), evt.File, evt.Detail,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return s.prune(ctx)
}

func (s *Store) prune(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			"DELETE FROM events WHERE id <= (SELECT MAX(id) FROM events) - ?",
			s.retention,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("prune events: %w", err)
	}
	return nil
}

// Filter narrows Recent.
type Filter struct {
	Kind  Kind
	RunID string
	Limit int
}

// Recent returns the newest events first.
func (s *Store) Recent(ctx context.Context, filter Filter) ([]Event, error) {
	query := "SELECT id, created_at, run_id, kind, file, detail FROM events"
	var (
		clauses []string
		args    []any
	)
	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.RunID != "" {
		clauses = append(clauses, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			evt     Event
			created string
			kind    string
		)
		if err := rows.Scan(&evt.ID, &created, &evt.RunID, &kind, &evt.File, &evt.Detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Kind = Kind(kind)
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			evt.CreatedAt = ts
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Counts returns the number of rows per kind.
func (s *Store) Counts(ctx context.Context) (map[Kind]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT kind, COUNT(1) FROM events GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()
	counts := make(map[Kind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Kind(kind)] = n
	}
	return counts, rows.Err()
}

// Clear removes every event.
func (s *Store) Clear(ctx context.Context) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, "DELETE FROM events")
		return err
	})
}
