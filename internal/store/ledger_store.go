package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type LedgerStore struct {
	db DB
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// LedgerEntry is one leg of a double-entry transaction. Entries are immutable
// once written; (TxID, TxSeq) is the idempotency key and LedgerOffset comes
// from the single global sequence.
type LedgerEntry struct {
	EntryID      string    `db:"entry_id"`
	TxID         string    `db:"tx_id"`
	TxSeq        int       `db:"tx_seq"`
	AccountID    string    `db:"account_id"`
	Currency     string    `db:"currency"`
	AmountMinor  int64     `db:"amount_minor"`
	LedgerOffset int64     `db:"ledger_offset"`
	CreatedAt    time.Time `db:"created_at"`
}

type UpsertResult struct {
	LedgerOffset int64
	CreatedAt    time.Time
	Created      bool
}

type upsertRow struct {
	LedgerOffset int64     `db:"ledger_offset"`
	CreatedAt    time.Time `db:"created_at"`
}

// Upsert inserts one leg, letting the database assign the next global offset.
// When a row with the same (tx_id, tx_seq) already exists the insert is
// skipped and the existing offset and timestamp are returned with
// Created=false, so the whole multi-leg booking can be retried safely.
func (s *LedgerStore) Upsert(ctx context.Context, tx Tx, entry LedgerEntry) (UpsertResult, error) {
	var row upsertRow
	err := tx.GetContext(ctx, &row, `
		INSERT INTO ledger_entries (entry_id, tx_id, tx_seq, account_id, currency, amount_minor, ledger_offset, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, nextval('ledger_offset_seq'), now())
		ON CONFLICT (tx_id, tx_seq) DO NOTHING
		RETURNING ledger_offset, created_at
	`, entry.EntryID, entry.TxID, entry.TxSeq, entry.AccountID, entry.Currency, entry.AmountMinor)
	if err == nil {
		return UpsertResult{LedgerOffset: row.LedgerOffset, CreatedAt: row.CreatedAt, Created: true}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return UpsertResult{}, err
	}
	// Conflict path: the leg was booked before; surface the original row.
	err = tx.GetContext(ctx, &row, `
		SELECT ledger_offset, created_at
		FROM ledger_entries
		WHERE tx_id = $1 AND tx_seq = $2
	`, entry.TxID, entry.TxSeq)
	if err != nil {
		return UpsertResult{}, err
	}
	return UpsertResult{LedgerOffset: row.LedgerOffset, CreatedAt: row.CreatedAt, Created: false}, nil
}

// ListByAccount returns an account's entries in ledger-offset order.
func (s *LedgerStore) ListByAccount(ctx context.Context, accountID string) ([]LedgerEntry, error) {
	var rows []LedgerEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT entry_id, tx_id, tx_seq, account_id, currency, amount_minor, ledger_offset, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY ledger_offset
	`, accountID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SumByAccount recomputes the signed balance per currency from the entries
// themselves; used to reconcile snapshots against the source of truth.
func (s *LedgerStore) SumByAccount(ctx context.Context, accountID, currency string) (int64, error) {
	var sum int64
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount_minor), 0)
		FROM ledger_entries
		WHERE account_id = $1 AND currency = $2
	`, accountID, currency)
	return sum, err
}
