package store

import (
	"context"

	"paystream/internal/models"
)

type AccountStore struct {
	db DB
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, tx Execer, account models.Account) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (id, currency, status, version)
		VALUES ($1, $2, $3, $4)
	`, account.ID, account.Currency, account.Status, account.Version)
	return err
}

func (s *AccountStore) GetByID(ctx context.Context, id string) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `
		SELECT id, currency, status, version, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, id)
	if err != nil {
		return models.Account{}, err
	}
	return row, nil
}

// UpdateStatusVersioned is the optimistic-concurrency write: it succeeds only
// when the caller still holds the current version, bumping it by one. Zero
// affected rows means somebody else won; the caller re-reads and re-decides.
func (s *AccountStore) UpdateStatusVersioned(ctx context.Context, id string, status models.AccountStatus, expectedVersion int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET status = $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND version = $3
	`, status, id, expectedVersion)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
