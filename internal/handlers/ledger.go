package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"paystream/internal/services"

	"github.com/go-chi/chi/v5"
)

type bookEntryRequest struct {
	AccountID   string `json:"accountId"`
	Currency    string `json:"currency"`
	AmountMinor int64  `json:"amountMinor"`
}

type bookTransactionRequest struct {
	TxID    string             `json:"txId"`
	Entries []bookEntryRequest `json:"entries"`
}

type bookedLegResponse struct {
	EntryID      string    `json:"entryId"`
	AccountID    string    `json:"accountId"`
	Currency     string    `json:"currency"`
	AmountMinor  int64     `json:"amountMinor"`
	LedgerOffset int64     `json:"ledgerOffset"`
	CreatedAt    time.Time `json:"createdAt"`
}

// BookTransaction appends a balanced set of ledger legs. Accepted bookings
// return 202: the write is durable but downstream snapshots catch up
// asynchronously. Replays of an already-booked txId return 202 with the
// original offsets.
func (h *Handler) BookTransaction(w http.ResponseWriter, r *http.Request) {
	var req bookTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	entries := make([]services.BookingLeg, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, services.BookingLeg{
			AccountID:   e.AccountID,
			Currency:    e.Currency,
			AmountMinor: e.AmountMinor,
		})
	}
	booked, err := h.booking.Book(r.Context(), services.BookingRequest{TxID: req.TxID, Entries: entries})
	if err != nil {
		var invalid services.InvalidBookingError
		if errors.As(err, &invalid) {
			respondError(w, http.StatusUnprocessableEntity, invalid.Reason)
			return
		}
		respondError(w, http.StatusInternalServerError, "booking failed")
		return
	}
	legs := make([]bookedLegResponse, 0, len(booked))
	for _, leg := range booked {
		legs = append(legs, bookedLegResponse{
			EntryID:      leg.EntryID,
			AccountID:    leg.AccountID,
			Currency:     leg.Currency,
			AmountMinor:  leg.AmountMinor,
			LedgerOffset: leg.LedgerOffset,
			CreatedAt:    leg.CreatedAt,
		})
	}
	respondJSON(w, http.StatusAccepted, map[string]any{
		"txId":    req.TxID,
		"entries": legs,
	})
}

// ListEntries returns an account's ledger history in offset order.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	entries, err := h.booking.ListEntries(r.Context(), accountID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list entries")
		return
	}
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"entryId":      e.EntryID,
			"txId":         e.TxID,
			"txSeq":        e.TxSeq,
			"accountId":    e.AccountID,
			"currency":     e.Currency,
			"amountMinor":  e.AmountMinor,
			"ledgerOffset": e.LedgerOffset,
			"createdAt":    e.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": out})
}
