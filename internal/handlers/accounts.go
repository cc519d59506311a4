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

type accountResponse struct {
	ID        string    `json:"id"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
}

func toAccountResponse(a models.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Currency:  a.Currency,
		Status:    string(a.Status),
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
	}
}

func (h *Handler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Currency string `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	account, err := h.accounts.Open(r.Context(), req.Currency)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCurrency) {
			respondError(w, http.StatusBadRequest, "invalid currency")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to open account")
		return
	}
	respondJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			respondError(w, http.StatusNotFound, "account not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load account")
		return
	}
	respondJSON(w, http.StatusOK, toAccountResponse(account))
}

// UpdateAccountStatus moves an account between lifecycle states under
// optimistic concurrency.
func (h *Handler) UpdateAccountStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	account, err := h.accounts.UpdateStatus(r.Context(), chi.URLParam(r, "id"), models.AccountStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidStatus):
			respondError(w, http.StatusBadRequest, "invalid status")
		case errors.Is(err, services.ErrAccountNotFound):
			respondError(w, http.StatusNotFound, "account not found")
		case errors.Is(err, services.ErrAccountClosed):
			respondError(w, http.StatusConflict, "account is closed")
		case errors.Is(err, services.ErrConcurrentUpdate):
			respondError(w, http.StatusConflict, "account was updated concurrently")
		default:
			respondError(w, http.StatusInternalServerError, "unable to update account")
		}
		return
	}
	respondJSON(w, http.StatusOK, toAccountResponse(account))
}

// GetBalances reads the projected snapshots, not the ledger itself; a balance
// may trail a just-accepted booking until the projector catches up.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.balances.Balances(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load balances")
		return
	}
	out := make([]map[string]any, 0, len(snapshots))
	for _, s := range snapshots {
		balance := map[string]any{
			"accountId": s.AccountID,
			"currency":  s.Currency,
			"balance":   money.FormatMinor(s.BalanceMinor),
			"updatedAt": s.UpdatedAt,
		}
		if s.AsOfLedgerOffset.Valid {
			balance["asOfLedgerOffset"] = s.AsOfLedgerOffset.Int64
		}
		out = append(out, balance)
	}
	respondJSON(w, http.StatusOK, map[string]any{"balances": out})
}
