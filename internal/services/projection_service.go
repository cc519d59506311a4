package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"paystream/internal/bus"
	"paystream/internal/events"
	"paystream/internal/metrics"
	"paystream/internal/money"
	"paystream/internal/store"
	"paystream/internal/websocket"
)

type SnapshotRepo interface {
	ApplyDelta(ctx context.Context, accountID, currency string, deltaMinor, ledgerOffset int64) (bool, error)
	Get(ctx context.Context, accountID, currency string) (store.AccountSnapshot, error)
	ListByAccount(ctx context.Context, accountID string) ([]store.AccountSnapshot, error)
}

type BalanceHub interface {
	BroadcastBalance(accountID string, update websocket.BalanceUpdate)
}

// ProjectionService folds ledger events into per-account balance snapshots.
// Application is idempotent via the snapshot watermark, so redelivered or
// out-of-order events degrade to no-ops instead of double counting.
type ProjectionService struct {
	snapshotStore SnapshotRepo
	hub           BalanceHub
	logger        *slog.Logger
}

func NewProjectionService(snapshotStore SnapshotRepo, hub BalanceHub, logger *slog.Logger) *ProjectionService {
	return &ProjectionService{
		snapshotStore: snapshotStore,
		hub:           hub,
		logger:        logger,
	}
}

// Run consumes ledger events until the channel closes or the context ends.
// A failed apply is logged and skipped; the delta is recovered later by
// replaying the ledger, never by blocking the stream.
func (s *ProjectionService) Run(ctx context.Context, messages <-chan bus.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := s.Apply(ctx, msg.Payload); err != nil {
				s.logger.Error("snapshot apply failed", "error", err)
			}
		}
	}
}

// Apply folds one ledger.entry.appended payload into its snapshot and, when
// the balance moved, pushes the new balance to websocket watchers.
func (s *ProjectionService) Apply(ctx context.Context, payload []byte) error {
	var evt events.LedgerEntryAppended
	if err := json.Unmarshal(payload, &evt); err != nil {
		return err
	}

	applied, err := s.snapshotStore.ApplyDelta(ctx, evt.AccountID, evt.Currency, evt.AmountMinor, evt.LedgerOffset)
	if err != nil {
		return err
	}
	if !applied {
		metrics.SnapshotDeltasApplied.WithLabelValues("skipped").Inc()
		return nil
	}
	metrics.SnapshotDeltasApplied.WithLabelValues("applied").Inc()

	snapshot, err := s.snapshotStore.Get(ctx, evt.AccountID, evt.Currency)
	if err != nil {
		return err
	}
	s.hub.BroadcastBalance(evt.AccountID, websocket.BalanceUpdate{
		AccountID:        snapshot.AccountID,
		Currency:         snapshot.Currency,
		Balance:          money.FormatMinor(snapshot.BalanceMinor),
		AsOfLedgerOffset: snapshot.AsOfLedgerOffset.Int64,
	})
	return nil
}

// Balances returns an account's current snapshots.
func (s *ProjectionService) Balances(ctx context.Context, accountID string) ([]store.AccountSnapshot, error) {
	return s.snapshotStore.ListByAccount(ctx, accountID)
}
