package store

import (
	"context"

	"paystream/internal/models"
)

type TransferStore struct {
	db DB
}

func NewTransferStore(db DB) *TransferStore {
	return &TransferStore{db: db}
}

const transferColumns = `id, source_account_id, dest_account_id, currency, amount_minor, idempotency_key, status, ledger_tx_id, created_at, updated_at`

func (s *TransferStore) FindByID(ctx context.Context, id string) (models.Transfer, error) {
	var row models.Transfer
	err := s.db.GetContext(ctx, &row, `
		SELECT `+transferColumns+`
		FROM transfers
		WHERE id = $1
	`, id)
	if err != nil {
		return models.Transfer{}, err
	}
	return row, nil
}

func (s *TransferStore) FindByIdempotencyKey(ctx context.Context, key string) (models.Transfer, error) {
	var row models.Transfer
	err := s.db.GetContext(ctx, &row, `
		SELECT `+transferColumns+`
		FROM transfers
		WHERE idempotency_key = $1
	`, key)
	if err != nil {
		return models.Transfer{}, err
	}
	return row, nil
}

// InsertPending relies on the unique index on idempotency_key: a concurrent
// insert under the same key surfaces as a unique violation for the caller to
// resolve by re-reading.
func (s *TransferStore) InsertPending(ctx context.Context, tx Execer, t models.Transfer) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transfers (id, source_account_id, dest_account_id, currency, amount_minor, idempotency_key, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.SourceAccountID, t.DestAccountID, t.Currency, t.AmountMinor, t.IdempotencyKey, t.Status)
	return err
}

func (s *TransferStore) UpdateStatus(ctx context.Context, tx Execer, id string, status models.TransferStatus) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE transfers SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	return err
}

func (s *TransferStore) MarkCompleted(ctx context.Context, tx Execer, id, ledgerTxID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE transfers SET status = $1, ledger_tx_id = $2, updated_at = now() WHERE id = $3
	`, models.TransferCompleted, ledgerTxID, id)
	return err
}

func (s *TransferStore) MarkFailed(ctx context.Context, tx Execer, id string) error {
	return s.UpdateStatus(ctx, tx, id, models.TransferFailed)
}
