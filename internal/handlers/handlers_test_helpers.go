package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"paystream/internal/config"
	"paystream/internal/models"
	"paystream/internal/services"
	"paystream/internal/store"
	"paystream/internal/websocket"
)

type stubBookingService struct {
	bookFn func(ctx context.Context, req services.BookingRequest) ([]services.BookedLeg, error)
	listFn func(ctx context.Context, accountID string) ([]store.LedgerEntry, error)
}

func (s stubBookingService) Book(ctx context.Context, req services.BookingRequest) ([]services.BookedLeg, error) {
	return s.bookFn(ctx, req)
}

func (s stubBookingService) ListEntries(ctx context.Context, accountID string) ([]store.LedgerEntry, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, accountID)
}

type stubTransferService struct {
	createFn func(ctx context.Context, req services.CreateTransferRequest) (models.Transfer, bool, error)
	getFn    func(ctx context.Context, id string) (models.Transfer, []models.TransferStep, error)
}

func (s stubTransferService) Create(ctx context.Context, req services.CreateTransferRequest) (models.Transfer, bool, error) {
	return s.createFn(ctx, req)
}

func (s stubTransferService) Get(ctx context.Context, id string) (models.Transfer, []models.TransferStep, error) {
	return s.getFn(ctx, id)
}

type stubAccountService struct {
	openFn         func(ctx context.Context, currency string) (models.Account, error)
	getFn          func(ctx context.Context, id string) (models.Account, error)
	updateStatusFn func(ctx context.Context, id string, status models.AccountStatus) (models.Account, error)
}

func (s stubAccountService) Open(ctx context.Context, currency string) (models.Account, error) {
	return s.openFn(ctx, currency)
}

func (s stubAccountService) Get(ctx context.Context, id string) (models.Account, error) {
	return s.getFn(ctx, id)
}

func (s stubAccountService) UpdateStatus(ctx context.Context, id string, status models.AccountStatus) (models.Account, error) {
	return s.updateStatusFn(ctx, id, status)
}

type stubBalanceReader struct {
	balancesFn func(ctx context.Context, accountID string) ([]store.AccountSnapshot, error)
}

func (s stubBalanceReader) Balances(ctx context.Context, accountID string) ([]store.AccountSnapshot, error) {
	return s.balancesFn(ctx, accountID)
}

type handlerDeps struct {
	booking   BookingService
	transfers TransferService
	accounts  AccountService
	balances  BalanceReader
}

func newTestHandler(deps handlerDeps) *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(config.Config{AllowedOrigins: "*"}, deps.booking, deps.transfers, deps.accounts, deps.balances, websocket.NewHub(), logger)
}

func doRequest(t *testing.T, h *Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}
