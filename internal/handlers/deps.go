package handlers

import (
	"context"

	"paystream/internal/models"
	"paystream/internal/services"
	"paystream/internal/store"
)

type BookingService interface {
	Book(ctx context.Context, req services.BookingRequest) ([]services.BookedLeg, error)
	ListEntries(ctx context.Context, accountID string) ([]store.LedgerEntry, error)
}

type TransferService interface {
	Create(ctx context.Context, req services.CreateTransferRequest) (models.Transfer, bool, error)
	Get(ctx context.Context, id string) (models.Transfer, []models.TransferStep, error)
}

type AccountService interface {
	Open(ctx context.Context, currency string) (models.Account, error)
	Get(ctx context.Context, id string) (models.Account, error)
	UpdateStatus(ctx context.Context, id string, status models.AccountStatus) (models.Account, error)
}

type BalanceReader interface {
	Balances(ctx context.Context, accountID string) ([]store.AccountSnapshot, error)
}
