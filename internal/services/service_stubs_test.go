package services

import (
	"context"

	"paystream/internal/models"
	"paystream/internal/store"
	"paystream/internal/websocket"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubLedgerRepo struct {
	upsertFn func(ctx context.Context, tx store.Tx, entry store.LedgerEntry) (store.UpsertResult, error)
	listFn   func(ctx context.Context, accountID string) ([]store.LedgerEntry, error)
}

func (s stubLedgerRepo) Upsert(ctx context.Context, tx store.Tx, entry store.LedgerEntry) (store.UpsertResult, error) {
	return s.upsertFn(ctx, tx, entry)
}

func (s stubLedgerRepo) ListByAccount(ctx context.Context, accountID string) ([]store.LedgerEntry, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, accountID)
}

type stubOutboxRepo struct {
	appendFn func(ctx context.Context, tx store.Execer, id, eventType, aggregateID string, keyAccountID *string, payload []byte) error
}

func (s stubOutboxRepo) Append(ctx context.Context, tx store.Execer, id, eventType, aggregateID string, keyAccountID *string, payload []byte) error {
	if s.appendFn == nil {
		return nil
	}
	return s.appendFn(ctx, tx, id, eventType, aggregateID, keyAccountID, payload)
}

type stubTransferRepo struct {
	findByIDFn      func(ctx context.Context, id string) (models.Transfer, error)
	findByKeyFn     func(ctx context.Context, key string) (models.Transfer, error)
	insertPendingFn func(ctx context.Context, tx store.Execer, t models.Transfer) error
	updateStatusFn  func(ctx context.Context, tx store.Execer, id string, status models.TransferStatus) error
	markCompletedFn func(ctx context.Context, tx store.Execer, id, ledgerTxID string) error
	markFailedFn    func(ctx context.Context, tx store.Execer, id string) error
}

func (s stubTransferRepo) FindByID(ctx context.Context, id string) (models.Transfer, error) {
	return s.findByIDFn(ctx, id)
}

func (s stubTransferRepo) FindByIdempotencyKey(ctx context.Context, key string) (models.Transfer, error) {
	return s.findByKeyFn(ctx, key)
}

func (s stubTransferRepo) InsertPending(ctx context.Context, tx store.Execer, t models.Transfer) error {
	if s.insertPendingFn == nil {
		return nil
	}
	return s.insertPendingFn(ctx, tx, t)
}

func (s stubTransferRepo) UpdateStatus(ctx context.Context, tx store.Execer, id string, status models.TransferStatus) error {
	if s.updateStatusFn == nil {
		return nil
	}
	return s.updateStatusFn(ctx, tx, id, status)
}

func (s stubTransferRepo) MarkCompleted(ctx context.Context, tx store.Execer, id, ledgerTxID string) error {
	if s.markCompletedFn == nil {
		return nil
	}
	return s.markCompletedFn(ctx, tx, id, ledgerTxID)
}

func (s stubTransferRepo) MarkFailed(ctx context.Context, tx store.Execer, id string) error {
	if s.markFailedFn == nil {
		return nil
	}
	return s.markFailedFn(ctx, tx, id)
}

type stubStepRepo struct {
	insertFn func(ctx context.Context, tx store.Execer, step models.TransferStep) error
	listFn   func(ctx context.Context, transferID string) ([]models.TransferStep, error)
}

func (s stubStepRepo) Insert(ctx context.Context, tx store.Execer, step models.TransferStep) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, step)
}

func (s stubStepRepo) ListByTransfer(ctx context.Context, transferID string) ([]models.TransferStep, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, transferID)
}

type stubLedgerBooker struct {
	appendFn func(ctx context.Context, ledgerTxID, sourceAccountID, destAccountID, currency string, amountMinor int64) error
}

func (s stubLedgerBooker) AppendDoubleEntry(ctx context.Context, ledgerTxID, sourceAccountID, destAccountID, currency string, amountMinor int64) error {
	if s.appendFn == nil {
		return nil
	}
	return s.appendFn(ctx, ledgerTxID, sourceAccountID, destAccountID, currency, amountMinor)
}

type stubSnapshotRepo struct {
	applyDeltaFn func(ctx context.Context, accountID, currency string, deltaMinor, ledgerOffset int64) (bool, error)
	getFn        func(ctx context.Context, accountID, currency string) (store.AccountSnapshot, error)
	listFn       func(ctx context.Context, accountID string) ([]store.AccountSnapshot, error)
}

func (s stubSnapshotRepo) ApplyDelta(ctx context.Context, accountID, currency string, deltaMinor, ledgerOffset int64) (bool, error) {
	return s.applyDeltaFn(ctx, accountID, currency, deltaMinor, ledgerOffset)
}

func (s stubSnapshotRepo) Get(ctx context.Context, accountID, currency string) (store.AccountSnapshot, error) {
	if s.getFn == nil {
		return store.AccountSnapshot{}, nil
	}
	return s.getFn(ctx, accountID, currency)
}

func (s stubSnapshotRepo) ListByAccount(ctx context.Context, accountID string) ([]store.AccountSnapshot, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, accountID)
}

type stubSnapshotSeeder struct {
	insertZeroFn func(ctx context.Context, tx store.Execer, accountID, currency string) error
}

func (s stubSnapshotSeeder) InsertZero(ctx context.Context, tx store.Execer, accountID, currency string) error {
	if s.insertZeroFn == nil {
		return nil
	}
	return s.insertZeroFn(ctx, tx, accountID, currency)
}

type stubAccountRepo struct {
	createFn       func(ctx context.Context, tx store.Execer, account models.Account) error
	getByIDFn      func(ctx context.Context, id string) (models.Account, error)
	updateStatusFn func(ctx context.Context, id string, status models.AccountStatus, expectedVersion int64) (int64, error)
}

func (s stubAccountRepo) Create(ctx context.Context, tx store.Execer, account models.Account) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, account)
}

func (s stubAccountRepo) GetByID(ctx context.Context, id string) (models.Account, error) {
	return s.getByIDFn(ctx, id)
}

func (s stubAccountRepo) UpdateStatusVersioned(ctx context.Context, id string, status models.AccountStatus, expectedVersion int64) (int64, error) {
	return s.updateStatusFn(ctx, id, status, expectedVersion)
}

type stubHub struct {
	broadcastFn func(accountID string, update websocket.BalanceUpdate)
}

func (s stubHub) BroadcastBalance(accountID string, update websocket.BalanceUpdate) {
	if s.broadcastFn != nil {
		s.broadcastFn(accountID, update)
	}
}
