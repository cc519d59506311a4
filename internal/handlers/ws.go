package handlers

import (
	"net/http"

	"paystream/internal/websocket"
)

// WSBalances streams balance updates for one account over a websocket.
func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		respondError(w, http.StatusBadRequest, "account_id is required")
		return
	}
	websocket.ServeWS(w, r, h.hub, accountID)
}
