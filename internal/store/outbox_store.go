package store

import (
	"context"
	"time"
)

type OutboxStore struct {
	db DB
}

func NewOutboxStore(db DB) *OutboxStore {
	return &OutboxStore{db: db}
}

type OutboxRecord struct {
	ID           string     `db:"id"`
	EventType    string     `db:"event_type"`
	AggregateID  string     `db:"aggregate_id"`
	KeyAccountID *string    `db:"key_account_id"`
	Payload      []byte     `db:"payload"`
	CreatedAt    time.Time  `db:"created_at"`
	PublishedAt  *time.Time `db:"published_at"`
}

// Append stages an event inside the caller's transaction. It never opens its
// own transaction: the insert must commit or roll back with the domain write
// it announces.
func (s *OutboxStore) Append(ctx context.Context, tx Execer, id, eventType, aggregateID string, keyAccountID *string, payload []byte) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO outbox_events (id, event_type, aggregate_id, key_account_id, payload, created_at, published_at)
		VALUES ($1, $2, $3, $4, $5, now(), NULL)
	`, id, eventType, aggregateID, keyAccountID, payload)
	return err
}

func (s *OutboxStore) FetchUnpublished(ctx context.Context, limit int) ([]OutboxRecord, error) {
	var rows []OutboxRecord
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, event_type, aggregate_id, key_account_id, payload, created_at, published_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *OutboxStore) MarkPublished(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE outbox_events SET published_at = now() WHERE id = $1
	`, id)
	return err
}

// CountForAggregate exists for reconciliation checks: exactly one outcome
// event per transfer, one appended event per created ledger leg.
func (s *OutboxStore) CountForAggregate(ctx context.Context, aggregateID, eventType string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM outbox_events WHERE aggregate_id = $1 AND event_type = $2
	`, aggregateID, eventType)
	return count, err
}
