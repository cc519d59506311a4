package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"paystream/internal/models"
	"paystream/internal/money"
	"paystream/internal/services"

	"github.com/go-chi/chi/v5"
)

type createTransferRequest struct {
	SourceAccountID string `json:"sourceAccountId"`
	DestAccountID   string `json:"destAccountId"`
	Currency        string `json:"currency"`
	Amount          string `json:"amount"`
}

type transferResponse struct {
	ID              string    `json:"id"`
	SourceAccountID string    `json:"sourceAccountId"`
	DestAccountID   string    `json:"destAccountId"`
	Currency        string    `json:"currency"`
	Amount          string    `json:"amount"`
	Status          string    `json:"status"`
	LedgerTxID      *string   `json:"ledgerTxId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toTransferResponse(t models.Transfer) transferResponse {
	return transferResponse{
		ID:              t.ID,
		SourceAccountID: t.SourceAccountID,
		DestAccountID:   t.DestAccountID,
		Currency:        t.Currency,
		Amount:          money.FormatMinor(t.AmountMinor),
		Status:          string(t.Status),
		LedgerTxID:      t.LedgerTxID,
		CreatedAt:       t.CreatedAt,
	}
}

// CreateTransfer runs the transfer saga. The Idempotency-Key header is
// required: replays with the same key and body return the stored transfer
// with 200, a reused key with a different body is a 409. A transfer the
// ledger rejected still comes back 201, in status FAILED.
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		respondError(w, http.StatusBadRequest, "Idempotency-Key header is required")
		return
	}
	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amountMinor, err := money.ParseMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	transfer, created, err := h.transfers.Create(r.Context(), services.CreateTransferRequest{
		SourceAccountID: req.SourceAccountID,
		DestAccountID:   req.DestAccountID,
		Currency:        req.Currency,
		AmountMinor:     amountMinor,
		IdempotencyKey:  idempotencyKey,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrIdempotencyConflict):
			respondError(w, http.StatusConflict, "idempotency key reused with a different request")
		case errors.Is(err, services.ErrInvalidAmount),
			errors.Is(err, services.ErrInvalidCurrency),
			errors.Is(err, services.ErrSameAccount):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "transfer failed")
		}
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, toTransferResponse(transfer))
}

// GetTransfer returns a transfer and its audit steps.
func (h *Handler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	transfer, steps, err := h.transfers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, services.ErrTransferNotFound) {
			respondError(w, http.StatusNotFound, "transfer not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load transfer")
		return
	}
	stepOut := make([]map[string]any, 0, len(steps))
	for _, step := range steps {
		stepOut = append(stepOut, map[string]any{
			"fromState": step.FromState,
			"toState":   step.ToState,
			"reason":    step.Reason,
			"createdAt": step.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transfer": toTransferResponse(transfer),
		"steps":    stepOut,
	})
}
