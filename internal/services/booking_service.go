package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"paystream/internal/db"
	"paystream/internal/events"
	"paystream/internal/metrics"
	"paystream/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// InvalidBookingError carries the validation reason back to the HTTP layer,
// which maps it to a 422.
type InvalidBookingError struct {
	Reason string
}

func (e InvalidBookingError) Error() string {
	return fmt.Sprintf("invalid booking: %s", e.Reason)
}

type LedgerRepo interface {
	Upsert(ctx context.Context, tx store.Tx, entry store.LedgerEntry) (store.UpsertResult, error)
	ListByAccount(ctx context.Context, accountID string) ([]store.LedgerEntry, error)
}

type OutboxRepo interface {
	Append(ctx context.Context, tx store.Execer, id, eventType, aggregateID string, keyAccountID *string, payload []byte) error
}

type BookingService struct {
	txRunner    db.TxRunner
	ledgerStore LedgerRepo
	outboxStore OutboxRepo
}

func NewBookingService(txRunner db.TxRunner, ledgerStore LedgerRepo, outboxStore OutboxRepo) *BookingService {
	return &BookingService{
		txRunner:    txRunner,
		ledgerStore: ledgerStore,
		outboxStore: outboxStore,
	}
}

type BookingLeg struct {
	AccountID   string
	Currency    string
	AmountMinor int64
}

type BookingRequest struct {
	TxID    string
	Entries []BookingLeg
}

type BookedLeg struct {
	EntryID      string
	AccountID    string
	Currency     string
	AmountMinor  int64
	LedgerOffset int64
	CreatedAt    time.Time
}

// Book appends all legs of one double-entry transaction atomically and stages
// one outbox event per leg that was actually created. Replaying the same
// (TxID, leg order) is a no-op that returns the original offsets, and replays
// stage no new events.
func (s *BookingService) Book(ctx context.Context, req BookingRequest) ([]BookedLeg, error) {
	if err := validateBooking(req); err != nil {
		metrics.BookingsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	booked := make([]BookedLeg, 0, len(req.Entries))
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		booked = booked[:0]
		for seq, leg := range req.Entries {
			entryID := uuid.New().String()
			result, err := s.ledgerStore.Upsert(ctx, tx, store.LedgerEntry{
				EntryID:     entryID,
				TxID:        req.TxID,
				TxSeq:       seq,
				AccountID:   leg.AccountID,
				Currency:    leg.Currency,
				AmountMinor: leg.AmountMinor,
			})
			if err != nil {
				return err
			}
			booked = append(booked, BookedLeg{
				EntryID:      entryID,
				AccountID:    leg.AccountID,
				Currency:     leg.Currency,
				AmountMinor:  leg.AmountMinor,
				LedgerOffset: result.LedgerOffset,
				CreatedAt:    result.CreatedAt,
			})
			if !result.Created {
				continue
			}
			payload, err := json.Marshal(events.LedgerEntryAppended{
				EventID:      uuid.New().String(),
				TxID:         req.TxID,
				EntryID:      entryID,
				LedgerOffset: result.LedgerOffset,
				AccountID:    leg.AccountID,
				Currency:     leg.Currency,
				AmountMinor:  leg.AmountMinor,
				OccurredAt:   result.CreatedAt,
			})
			if err != nil {
				return err
			}
			accountID := leg.AccountID
			if err := s.outboxStore.Append(ctx, tx, uuid.New().String(), events.TypeLedgerEntryAppended, req.TxID, &accountID, payload); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		metrics.BookingsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.BookingsTotal.WithLabelValues("booked").Inc()
	return booked, nil
}

// ListEntries returns an account's ledger history in offset order.
func (s *BookingService) ListEntries(ctx context.Context, accountID string) ([]store.LedgerEntry, error) {
	return s.ledgerStore.ListByAccount(ctx, accountID)
}

// validateBooking checks structure before any row is written. The checks run
// in a fixed order so rejections are deterministic.
func validateBooking(req BookingRequest) error {
	if req.TxID == "" {
		return InvalidBookingError{Reason: "transaction id required"}
	}
	if len(req.Entries) == 0 {
		return InvalidBookingError{Reason: "entries required"}
	}
	for _, leg := range req.Entries {
		if leg.AccountID == "" {
			return InvalidBookingError{Reason: "account id required"}
		}
	}
	currency := req.Entries[0].Currency
	for _, leg := range req.Entries {
		if leg.Currency != currency {
			return InvalidBookingError{Reason: "currency mismatch"}
		}
	}
	for _, leg := range req.Entries {
		if leg.AmountMinor == 0 {
			return InvalidBookingError{Reason: "amount must be non-zero"}
		}
	}
	var sum int64
	for _, leg := range req.Entries {
		sum += leg.AmountMinor
	}
	if sum != 0 {
		return InvalidBookingError{Reason: "signed amounts must sum to zero"}
	}
	return nil
}
