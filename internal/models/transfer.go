package models

import (
	"fmt"
	"time"
)

type TransferStatus string

const (
	TransferPending    TransferStatus = "PENDING"
	TransferInProgress TransferStatus = "IN_PROGRESS"
	TransferCompleted  TransferStatus = "COMPLETED"
	TransferFailed     TransferStatus = "FAILED"
	TransferReversed   TransferStatus = "REVERSED"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s TransferStatus) IsTerminal() bool {
	switch s {
	case TransferCompleted, TransferFailed, TransferReversed:
		return true
	}
	return false
}

type IllegalTransitionError struct {
	From TransferStatus
	To   TransferStatus
}

func (e IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transfer state transition: %s -> %s", e.From, e.To)
}

// EnsureTransition guards the transfer lifecycle. The allowed set is closed:
// PENDING -> IN_PROGRESS, IN_PROGRESS -> COMPLETED | FAILED | REVERSED.
func EnsureTransition(from, to TransferStatus) error {
	switch from {
	case TransferPending:
		if to == TransferInProgress {
			return nil
		}
	case TransferInProgress:
		if to == TransferCompleted || to == TransferFailed || to == TransferReversed {
			return nil
		}
	}
	return IllegalTransitionError{From: from, To: to}
}

type Transfer struct {
	ID              string         `db:"id"`
	SourceAccountID string         `db:"source_account_id"`
	DestAccountID   string         `db:"dest_account_id"`
	Currency        string         `db:"currency"`
	AmountMinor     int64          `db:"amount_minor"`
	IdempotencyKey  string         `db:"idempotency_key"`
	Status          TransferStatus `db:"status"`
	LedgerTxID      *string        `db:"ledger_tx_id"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// TransferStep is one immutable audit row per applied FSM transition. The
// reason string is the only record of why a transition happened.
type TransferStep struct {
	ID         string         `db:"id"`
	TransferID string         `db:"transfer_id"`
	FromState  TransferStatus `db:"from_state"`
	ToState    TransferStatus `db:"to_state"`
	Reason     string         `db:"reason"`
	CreatedAt  time.Time      `db:"created_at"`
}
