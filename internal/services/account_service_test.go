package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"paystream/internal/events"
	"paystream/internal/models"
	"paystream/internal/store"
)

func TestOpenSeedsSnapshotAndStagesEvent(t *testing.T) {
	var createdAccount *models.Account
	var seeded bool
	var stagedType string

	accounts := stubAccountRepo{
		createFn: func(_ context.Context, _ store.Execer, account models.Account) error {
			createdAccount = &account
			return nil
		},
		getByIDFn: func(context.Context, string) (models.Account, error) {
			return models.Account{}, nil
		},
		updateStatusFn: func(context.Context, string, models.AccountStatus, int64) (int64, error) {
			return 0, nil
		},
	}
	seeder := stubSnapshotSeeder{
		insertZeroFn: func(_ context.Context, _ store.Execer, accountID, currency string) error {
			seeded = true
			if currency != "EUR" {
				t.Fatalf("unexpected snapshot currency: %s", currency)
			}
			return nil
		},
	}
	outbox := stubOutboxRepo{
		appendFn: func(_ context.Context, _ store.Execer, _, eventType, aggregateID string, keyAccountID *string, _ []byte) error {
			stagedType = eventType
			if *keyAccountID != aggregateID {
				t.Fatalf("opened event must be keyed by the account id")
			}
			return nil
		},
	}
	svc := NewAccountService(fakeTxRunner{}, accounts, seeder, outbox)

	account, err := svc.Open(context.Background(), "EUR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.Status != models.AccountActive || account.Version != 0 {
		t.Fatalf("unexpected account: %+v", account)
	}
	if createdAccount == nil || createdAccount.ID != account.ID {
		t.Fatalf("account row not written")
	}
	if !seeded {
		t.Fatalf("zero snapshot not seeded")
	}
	if stagedType != events.TypeAccountOpened {
		t.Fatalf("expected opened event, got %q", stagedType)
	}
}

func TestOpenRejectsBadCurrency(t *testing.T) {
	svc := NewAccountService(fakeTxRunner{}, stubAccountRepo{
		createFn: func(context.Context, store.Execer, models.Account) error {
			t.Fatalf("invalid currency must not create an account")
			return nil
		},
		getByIDFn: func(context.Context, string) (models.Account, error) {
			return models.Account{}, nil
		},
		updateStatusFn: func(context.Context, string, models.AccountStatus, int64) (int64, error) {
			return 0, nil
		},
	}, stubSnapshotSeeder{}, stubOutboxRepo{})

	if _, err := svc.Open(context.Background(), "EURO"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
}

func TestUpdateStatusOptimisticRetry(t *testing.T) {
	version := int64(3)
	attempts := 0
	accounts := stubAccountRepo{
		getByIDFn: func(context.Context, string) (models.Account, error) {
			return models.Account{ID: "acc-1", Status: models.AccountActive, Version: version}, nil
		},
		updateStatusFn: func(_ context.Context, _ string, status models.AccountStatus, expectedVersion int64) (int64, error) {
			attempts++
			// First attempt loses the race: the stored version moved on.
			if attempts == 1 {
				version = 4
				return 0, nil
			}
			if expectedVersion != 4 {
				t.Fatalf("retry must use the fresh version, got %d", expectedVersion)
			}
			return 1, nil
		},
	}
	svc := NewAccountService(fakeTxRunner{}, accounts, stubSnapshotSeeder{}, stubOutboxRepo{})

	account, err := svc.UpdateStatus(context.Background(), "acc-1", models.AccountFrozen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.Status != models.AccountFrozen || account.Version != 5 {
		t.Fatalf("unexpected account after update: %+v", account)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestUpdateStatusGivesUpAfterRepeatedRaces(t *testing.T) {
	accounts := stubAccountRepo{
		getByIDFn: func(context.Context, string) (models.Account, error) {
			return models.Account{ID: "acc-1", Status: models.AccountActive, Version: 1}, nil
		},
		updateStatusFn: func(context.Context, string, models.AccountStatus, int64) (int64, error) {
			return 0, nil
		},
	}
	svc := NewAccountService(fakeTxRunner{}, accounts, stubSnapshotSeeder{}, stubOutboxRepo{})

	if _, err := svc.UpdateStatus(context.Background(), "acc-1", models.AccountFrozen); !errors.Is(err, ErrConcurrentUpdate) {
		t.Fatalf("expected ErrConcurrentUpdate, got %v", err)
	}
}

func TestUpdateStatusClosedIsTerminal(t *testing.T) {
	accounts := stubAccountRepo{
		getByIDFn: func(context.Context, string) (models.Account, error) {
			return models.Account{ID: "acc-1", Status: models.AccountClosed, Version: 2}, nil
		},
		updateStatusFn: func(context.Context, string, models.AccountStatus, int64) (int64, error) {
			t.Fatalf("closed accounts must not be updated")
			return 0, nil
		},
	}
	svc := NewAccountService(fakeTxRunner{}, accounts, stubSnapshotSeeder{}, stubOutboxRepo{})

	if _, err := svc.UpdateStatus(context.Background(), "acc-1", models.AccountActive); !errors.Is(err, ErrAccountClosed) {
		t.Fatalf("expected ErrAccountClosed, got %v", err)
	}
}

func TestUpdateStatusNoopWhenUnchanged(t *testing.T) {
	accounts := stubAccountRepo{
		getByIDFn: func(context.Context, string) (models.Account, error) {
			return models.Account{ID: "acc-1", Status: models.AccountFrozen, Version: 2}, nil
		},
		updateStatusFn: func(context.Context, string, models.AccountStatus, int64) (int64, error) {
			t.Fatalf("unchanged status must not write")
			return 0, nil
		},
	}
	svc := NewAccountService(fakeTxRunner{}, accounts, stubSnapshotSeeder{}, stubOutboxRepo{})

	account, err := svc.UpdateStatus(context.Background(), "acc-1", models.AccountFrozen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.Version != 2 {
		t.Fatalf("noop must not bump the version: %+v", account)
	}
}

func TestGetAccountNotFound(t *testing.T) {
	accounts := stubAccountRepo{
		getByIDFn: func(context.Context, string) (models.Account, error) {
			return models.Account{}, sql.ErrNoRows
		},
	}
	svc := NewAccountService(fakeTxRunner{}, accounts, stubSnapshotSeeder{}, stubOutboxRepo{})

	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
