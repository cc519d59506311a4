package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"paystream/internal/db"
	"paystream/internal/events"
	"paystream/internal/models"
	"paystream/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrAccountClosed    = errors.New("account is closed")
	ErrInvalidStatus    = errors.New("invalid account status")
	ErrConcurrentUpdate = errors.New("account was updated concurrently")
)

type AccountRepo interface {
	Create(ctx context.Context, tx store.Execer, account models.Account) error
	GetByID(ctx context.Context, id string) (models.Account, error)
	UpdateStatusVersioned(ctx context.Context, id string, status models.AccountStatus, expectedVersion int64) (int64, error)
}

type SnapshotSeeder interface {
	InsertZero(ctx context.Context, tx store.Execer, accountID, currency string) error
}

type AccountService struct {
	txRunner      db.TxRunner
	accountStore  AccountRepo
	snapshotStore SnapshotSeeder
	outboxStore   OutboxRepo
}

func NewAccountService(txRunner db.TxRunner, accountStore AccountRepo, snapshotStore SnapshotSeeder, outboxStore OutboxRepo) *AccountService {
	return &AccountService{
		txRunner:      txRunner,
		accountStore:  accountStore,
		snapshotStore: snapshotStore,
		outboxStore:   outboxStore,
	}
}

// Open creates an ACTIVE account, seeds its zero snapshot, and stages the
// opened event in one transaction.
func (s *AccountService) Open(ctx context.Context, currency string) (models.Account, error) {
	if !validCurrency(currency) {
		return models.Account{}, ErrInvalidCurrency
	}
	account := models.Account{
		ID:       uuid.New().String(),
		Currency: currency,
		Status:   models.AccountActive,
		Version:  0,
	}
	payload, err := json.Marshal(events.AccountOpened{
		AccountID: account.ID,
		Currency:  account.Currency,
		Status:    string(account.Status),
	})
	if err != nil {
		return models.Account{}, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.accountStore.Create(ctx, tx, account); err != nil {
			return err
		}
		if err := s.snapshotStore.InsertZero(ctx, tx, account.ID, account.Currency); err != nil {
			return err
		}
		accountID := account.ID
		return s.outboxStore.Append(ctx, tx, uuid.New().String(), events.TypeAccountOpened, account.ID, &accountID, payload)
	})
	if err != nil {
		return models.Account{}, err
	}
	return account, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (models.Account, error) {
	account, err := s.accountStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, ErrAccountNotFound
		}
		return models.Account{}, err
	}
	return account, nil
}

// UpdateStatus moves an account to the requested status under optimistic
// concurrency. A lost version race is retried with a fresh read; CLOSED is
// terminal.
func (s *AccountService) UpdateStatus(ctx context.Context, id string, status models.AccountStatus) (models.Account, error) {
	if !models.ValidAccountStatus(status) {
		return models.Account{}, ErrInvalidStatus
	}
	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		account, err := s.Get(ctx, id)
		if err != nil {
			return models.Account{}, err
		}
		if account.Status == models.AccountClosed {
			return models.Account{}, ErrAccountClosed
		}
		if account.Status == status {
			return account, nil
		}
		affected, err := s.accountStore.UpdateStatusVersioned(ctx, id, status, account.Version)
		if err != nil {
			return models.Account{}, err
		}
		if affected > 0 {
			account.Status = status
			account.Version++
			return account, nil
		}
	}
	return models.Account{}, ErrConcurrentUpdate
}
