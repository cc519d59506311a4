package store

import (
	"context"
	"database/sql"
	"time"
)

type SnapshotStore struct {
	db DB
}

func NewSnapshotStore(db DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

type AccountSnapshot struct {
	AccountID        string        `db:"account_id"`
	Currency         string        `db:"currency"`
	BalanceMinor     int64         `db:"balance_minor"`
	AsOfLedgerOffset sql.NullInt64 `db:"as_of_ledger_offset"`
	UpdatedAt        time.Time     `db:"updated_at"`
}

// ApplyDelta folds one ledger delta into the (accountID, currency) snapshot
// with a single conditional upsert. A missing row is inserted; an existing row
// is updated only when ledgerOffset is strictly above the stored watermark
// (or the watermark is still null). Duplicates and stale out-of-order arrivals
// fall through as no-ops, so the statement is safe under at-least-once
// delivery and concurrent appliers. Returns whether the delta was folded in.
func (s *SnapshotStore) ApplyDelta(ctx context.Context, accountID, currency string, deltaMinor, ledgerOffset int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO account_snapshots (account_id, currency, balance_minor, as_of_ledger_offset, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (account_id, currency)
		DO UPDATE SET
			balance_minor       = account_snapshots.balance_minor + EXCLUDED.balance_minor,
			as_of_ledger_offset = EXCLUDED.as_of_ledger_offset,
			updated_at          = now()
		WHERE account_snapshots.as_of_ledger_offset IS NULL
		   OR account_snapshots.as_of_ledger_offset < EXCLUDED.as_of_ledger_offset
	`, accountID, currency, deltaMinor, ledgerOffset)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// InsertZero seeds an empty snapshot row when an account is opened. The null
// watermark lets the first delta of any offset apply.
func (s *SnapshotStore) InsertZero(ctx context.Context, tx Execer, accountID, currency string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO account_snapshots (account_id, currency, balance_minor, as_of_ledger_offset, updated_at)
		VALUES ($1, $2, 0, NULL, now())
	`, accountID, currency)
	return err
}

func (s *SnapshotStore) Get(ctx context.Context, accountID, currency string) (AccountSnapshot, error) {
	var row AccountSnapshot
	err := s.db.GetContext(ctx, &row, `
		SELECT account_id, currency, balance_minor, as_of_ledger_offset, updated_at
		FROM account_snapshots
		WHERE account_id = $1 AND currency = $2
	`, accountID, currency)
	if err != nil {
		return AccountSnapshot{}, err
	}
	return row, nil
}

func (s *SnapshotStore) ListByAccount(ctx context.Context, accountID string) ([]AccountSnapshot, error) {
	var rows []AccountSnapshot
	err := s.db.SelectContext(ctx, &rows, `
		SELECT account_id, currency, balance_minor, as_of_ledger_offset, updated_at
		FROM account_snapshots
		WHERE account_id = $1
		ORDER BY currency
	`, accountID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
