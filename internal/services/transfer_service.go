package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"paystream/internal/db"
	"paystream/internal/events"
	"paystream/internal/ledgerclient"
	"paystream/internal/metrics"
	"paystream/internal/models"
	"paystream/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidCurrency     = errors.New("invalid currency")
	ErrSameAccount         = errors.New("source and destination must differ")
	ErrIdempotencyConflict = errors.New("idempotency key reused with a different request")
	ErrTransferNotFound    = errors.New("transfer not found")
)

const (
	reasonAccepted          = "accepted"
	reasonOK                = "ok"
	reasonLedgerRejected    = "ledger_rejected"
	reasonLedgerUnavailable = "ledger_error"
)

type TransferRepo interface {
	FindByID(ctx context.Context, id string) (models.Transfer, error)
	FindByIdempotencyKey(ctx context.Context, key string) (models.Transfer, error)
	InsertPending(ctx context.Context, tx store.Execer, t models.Transfer) error
	UpdateStatus(ctx context.Context, tx store.Execer, id string, status models.TransferStatus) error
	MarkCompleted(ctx context.Context, tx store.Execer, id, ledgerTxID string) error
	MarkFailed(ctx context.Context, tx store.Execer, id string) error
}

type TransferStepRepo interface {
	Insert(ctx context.Context, tx store.Execer, step models.TransferStep) error
	ListByTransfer(ctx context.Context, transferID string) ([]models.TransferStep, error)
}

type LedgerBooker interface {
	AppendDoubleEntry(ctx context.Context, ledgerTxID, sourceAccountID, destAccountID, currency string, amountMinor int64) error
}

type TransferService struct {
	txRunner      db.TxRunner
	transferStore TransferRepo
	stepStore     TransferStepRepo
	outboxStore   OutboxRepo
	ledger        LedgerBooker
}

func NewTransferService(txRunner db.TxRunner, transferStore TransferRepo, stepStore TransferStepRepo, outboxStore OutboxRepo, ledger LedgerBooker) *TransferService {
	return &TransferService{
		txRunner:      txRunner,
		transferStore: transferStore,
		stepStore:     stepStore,
		outboxStore:   outboxStore,
		ledger:        ledger,
	}
}

type CreateTransferRequest struct {
	SourceAccountID string
	DestAccountID   string
	Currency        string
	AmountMinor     int64
	IdempotencyKey  string
}

// Create runs the whole transfer saga: accept (or replay) the transfer under
// its idempotency key, book the double entry against the ledger, and settle
// into a terminal state. The returned bool is true when this call created the
// transfer, false when the idempotency key matched an earlier request.
func (s *TransferService) Create(ctx context.Context, req CreateTransferRequest) (models.Transfer, bool, error) {
	if err := validateTransfer(req); err != nil {
		return models.Transfer{}, false, err
	}

	transfer, created, err := s.accept(ctx, req)
	if err != nil {
		return models.Transfer{}, false, err
	}
	if !created {
		return transfer, false, nil
	}

	transfer, err = s.execute(ctx, transfer)
	if err != nil {
		return models.Transfer{}, true, err
	}
	return transfer, true, nil
}

// accept inserts the PENDING row, or resolves the idempotency key to an
// existing transfer. A concurrent insert under the same key loses the unique
// index race and falls back to the re-read path.
func (s *TransferService) accept(ctx context.Context, req CreateTransferRequest) (models.Transfer, bool, error) {
	existing, err := s.transferStore.FindByIdempotencyKey(ctx, req.IdempotencyKey)
	if err == nil {
		if !sameRequest(existing, req) {
			return models.Transfer{}, false, ErrIdempotencyConflict
		}
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Transfer{}, false, err
	}

	transfer := models.Transfer{
		ID:              uuid.New().String(),
		SourceAccountID: req.SourceAccountID,
		DestAccountID:   req.DestAccountID,
		Currency:        req.Currency,
		AmountMinor:     req.AmountMinor,
		IdempotencyKey:  req.IdempotencyKey,
		Status:          models.TransferPending,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.transferStore.InsertPending(ctx, tx, transfer)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			winner, readErr := s.transferStore.FindByIdempotencyKey(ctx, req.IdempotencyKey)
			if readErr != nil {
				return models.Transfer{}, false, readErr
			}
			if !sameRequest(winner, req) {
				return models.Transfer{}, false, ErrIdempotencyConflict
			}
			return winner, false, nil
		}
		return models.Transfer{}, false, err
	}
	return transfer, true, nil
}

// execute drives a freshly accepted transfer to a terminal state. The ledger
// call runs outside any database transaction; only the state transitions on
// either side of it are transactional.
func (s *TransferService) execute(ctx context.Context, transfer models.Transfer) (models.Transfer, error) {
	if err := s.transition(ctx, &transfer, models.TransferInProgress, reasonAccepted); err != nil {
		return models.Transfer{}, err
	}

	// A fresh id per execution; the booking endpoint is idempotent on it, so
	// the in-request retries of the HTTP client replay the same booking.
	ledgerTxID := uuid.New().String()
	bookErr := s.ledger.AppendDoubleEntry(ctx, ledgerTxID, transfer.SourceAccountID, transfer.DestAccountID, transfer.Currency, transfer.AmountMinor)
	if bookErr != nil {
		reason := reasonLedgerUnavailable
		if errors.Is(bookErr, ledgerclient.ErrRejected) {
			reason = reasonLedgerRejected
		}
		if err := s.settle(ctx, &transfer, models.TransferFailed, reason, ""); err != nil {
			return models.Transfer{}, err
		}
		metrics.TransfersTotal.WithLabelValues(string(models.TransferFailed)).Inc()
		return transfer, nil
	}

	if err := s.settle(ctx, &transfer, models.TransferCompleted, reasonOK, ledgerTxID); err != nil {
		return models.Transfer{}, err
	}
	metrics.TransfersTotal.WithLabelValues(string(models.TransferCompleted)).Inc()
	return transfer, nil
}

// transition applies one guarded state change and its audit step in a single
// transaction.
func (s *TransferService) transition(ctx context.Context, transfer *models.Transfer, to models.TransferStatus, reason string) error {
	if err := models.EnsureTransition(transfer.Status, to); err != nil {
		return err
	}
	from := transfer.Status
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.transferStore.UpdateStatus(ctx, tx, transfer.ID, to); err != nil {
			return err
		}
		return s.stepStore.Insert(ctx, tx, models.TransferStep{
			ID:         uuid.New().String(),
			TransferID: transfer.ID,
			FromState:  from,
			ToState:    to,
			Reason:     reason,
		})
	})
	if err != nil {
		return err
	}
	transfer.Status = to
	return nil
}

// settle writes the terminal state, its audit step, and exactly one outcome
// event in the same transaction, so the event cannot outlive a rolled-back
// settlement.
func (s *TransferService) settle(ctx context.Context, transfer *models.Transfer, to models.TransferStatus, reason, ledgerTxID string) error {
	if err := models.EnsureTransition(transfer.Status, to); err != nil {
		return err
	}
	from := transfer.Status

	var payload []byte
	var eventType string
	var err error
	switch to {
	case models.TransferCompleted:
		eventType = events.TypeTransferCompleted
		payload, err = json.Marshal(events.TransferCompleted{
			Type:       events.TypeTransferCompleted,
			TransferID: transfer.ID,
			LedgerTxID: ledgerTxID,
		})
	case models.TransferFailed:
		eventType = events.TypeTransferFailed
		// The audit step keeps the precise reason; the event carries the
		// coarse code downstream consumers key on.
		payload, err = json.Marshal(events.TransferFailed{
			Type:       events.TypeTransferFailed,
			TransferID: transfer.ID,
			Reason:     events.ReasonLedgerError,
		})
	default:
		return fmt.Errorf("unexpected terminal state %s", to)
	}
	if err != nil {
		return err
	}

	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if to == models.TransferCompleted {
			if err := s.transferStore.MarkCompleted(ctx, tx, transfer.ID, ledgerTxID); err != nil {
				return err
			}
		} else {
			if err := s.transferStore.MarkFailed(ctx, tx, transfer.ID); err != nil {
				return err
			}
		}
		if err := s.stepStore.Insert(ctx, tx, models.TransferStep{
			ID:         uuid.New().String(),
			TransferID: transfer.ID,
			FromState:  from,
			ToState:    to,
			Reason:     reason,
		}); err != nil {
			return err
		}
		// Completions are keyed by the credited account; failures moved no
		// money and need no ordering key.
		var key *string
		if to == models.TransferCompleted {
			destAccountID := transfer.DestAccountID
			key = &destAccountID
		}
		return s.outboxStore.Append(ctx, tx, uuid.New().String(), eventType, transfer.ID, key, payload)
	})
	if err != nil {
		return err
	}
	transfer.Status = to
	if to == models.TransferCompleted {
		transfer.LedgerTxID = &ledgerTxID
	}
	return nil
}

// Get returns a transfer and its audit trail.
func (s *TransferService) Get(ctx context.Context, id string) (models.Transfer, []models.TransferStep, error) {
	transfer, err := s.transferStore.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Transfer{}, nil, ErrTransferNotFound
		}
		return models.Transfer{}, nil, err
	}
	steps, err := s.stepStore.ListByTransfer(ctx, id)
	if err != nil {
		return models.Transfer{}, nil, err
	}
	return transfer, steps, nil
}

func validateTransfer(req CreateTransferRequest) error {
	if req.AmountMinor <= 0 {
		return ErrInvalidAmount
	}
	if !validCurrency(req.Currency) {
		return ErrInvalidCurrency
	}
	if req.SourceAccountID == req.DestAccountID {
		return ErrSameAccount
	}
	return nil
}

// validCurrency accepts ISO 4217 style codes: exactly three uppercase letters.
func validCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

func sameRequest(t models.Transfer, req CreateTransferRequest) bool {
	return t.SourceAccountID == req.SourceAccountID &&
		t.DestAccountID == req.DestAccountID &&
		t.Currency == req.Currency &&
		t.AmountMinor == req.AmountMinor
}
