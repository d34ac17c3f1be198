package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hirelane/internal/store"

	"github.com/lib/pq"
)

// AddEvent writes an event in the caller's transaction so it commits with the change it describes.
func (s *Store) AddEvent(ctx context.Context, tx store.DBTransaction, topic string, payload json.RawMessage) (int64, error) {
	var id int64
	err := s.getExecutor(tx).QueryRowContext(ctx, `
		INSERT INTO event_outbox (topic, payload)
		VALUES ($1, $2)
		RETURNING id
	`, topic, []byte(payload)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to add %s event: %w", topic, err)
	}
	return id, nil
}

// ClaimEvents claims up to 'limit' visible events atomically using SELECT ... FOR UPDATE SKIP LOCKED.
// Returns nil slice if no events are visible.
func (s *Store) ClaimEvents(ctx context.Context, limit int, visibility time.Duration) ([]store.Event, error) {
	if limit <= 0 {
		limit = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, topic, payload, attempts, created_at
		FROM event_outbox
		WHERE visible_after <= NOW()
		ORDER BY id ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("claim events query failed: %w", err)
	}
	defer rows.Close()

	var (
		events []store.Event
		ids    []int64
	)
	for rows.Next() {
		var ev store.Event
		var payload []byte
		if err := rows.Scan(&ev.ID, &ev.Topic, &payload, &ev.Attempts, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("claim events scan failed: %w", err)
		}
		ev.Payload = json.RawMessage(payload)
		events = append(events, ev)
		ids = append(ids, ev.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim events rows error: %w", err)
	}

	if len(events) == 0 {
		return nil, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE event_outbox
		SET visible_after = NOW() + ($1 * INTERVAL '1 second')
		WHERE id = ANY($2)
	`, visibility.Seconds(), pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("claim visibility update failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) AckEvent(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM event_outbox WHERE id = $1", id)
	return err
}

func (s *Store) NackEvent(ctx context.Context, id int64, retryAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE event_outbox
		SET attempts = attempts + 1, visible_after = $1
		WHERE id = $2
	`, retryAt, id)
	return err
}

// CountEvents reports the outbox backlog.
func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM event_outbox").Scan(&count)
	return count, err
}
