package events

import "time"

// Event type names double as bus topics. The ledger event keeps the original
// dotted form; transfer outcome events are upper-snake by convention.
const (
	TypeLedgerEntryAppended = "ledger.entry.appended"
	TypeTransferCompleted   = "TRANSFER_COMPLETED"
	TypeTransferFailed      = "TRANSFER_FAILED"
	TypeAccountOpened       = "account.opened.v1"
)

// ReasonLedgerError is the failure code carried by TRANSFER_FAILED events
// whenever the ledger rejected the booking or stayed unreachable.
const ReasonLedgerError = "LEDGER_ERROR"

// LedgerEntryAppended is staged once per created ledger leg, keyed by account
// id so downstream consumers see one account's deltas in offset order.
type LedgerEntryAppended struct {
	EventID      string    `json:"eventId"`
	TxID         string    `json:"txId"`
	EntryID      string    `json:"entryId"`
	LedgerOffset int64     `json:"ledgerOffset"`
	AccountID    string    `json:"accountId"`
	Currency     string    `json:"currency"`
	AmountMinor  int64     `json:"amountMinor"`
	OccurredAt   time.Time `json:"occurredAt"`
}

type TransferCompleted struct {
	Type       string `json:"type"`
	TransferID string `json:"transferId"`
	LedgerTxID string `json:"ledgerTxId"`
}

type TransferFailed struct {
	Type       string `json:"type"`
	TransferID string `json:"transferId"`
	Reason     string `json:"reason"`
}

type AccountOpened struct {
	AccountID string `json:"accountId"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
}
