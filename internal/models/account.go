package models

import "time"

type AccountStatus string

const (
	AccountActive AccountStatus = "ACTIVE"
	AccountFrozen AccountStatus = "FROZEN"
	AccountClosed AccountStatus = "CLOSED"
)

func ValidAccountStatus(s AccountStatus) bool {
	switch s {
	case AccountActive, AccountFrozen, AccountClosed:
		return true
	}
	return false
}

// Account carries an optimistic-lock version: status updates are conditioned
// on the caller's known version and bump it by one.
type Account struct {
	ID        string        `db:"id"`
	Currency  string        `db:"currency"`
	Status    AccountStatus `db:"status"`
	Version   int64         `db:"version"`
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
}
