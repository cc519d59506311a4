package store

import (
	"context"

	"paystream/internal/models"
)

type TransferStepStore struct {
	db DB
}

func NewTransferStepStore(db DB) *TransferStepStore {
	return &TransferStepStore{db: db}
}

// Insert appends one audit row. Steps are written in the same transaction as
// the status change they record and are never updated.
func (s *TransferStepStore) Insert(ctx context.Context, tx Execer, step models.TransferStep) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transfer_steps (id, transfer_id, from_state, to_state, reason)
		VALUES ($1, $2, $3, $4, $5)
	`, step.ID, step.TransferID, step.FromState, step.ToState, step.Reason)
	return err
}

func (s *TransferStepStore) ListByTransfer(ctx context.Context, transferID string) ([]models.TransferStep, error) {
	var rows []models.TransferStep
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, transfer_id, from_state, to_state, reason, created_at
		FROM transfer_steps
		WHERE transfer_id = $1
		ORDER BY created_at
	`, transferID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
