package handlers

import (
	"log/slog"
	"net/http"

	"paystream/internal/config"
	"paystream/internal/middleware"
	"paystream/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct {
	cfg       config.Config
	booking   BookingService
	transfers TransferService
	accounts  AccountService
	balances  BalanceReader
	hub       *websocket.Hub
	logger    *slog.Logger
}

func New(cfg config.Config, booking BookingService, transfers TransferService, accounts AccountService, balances BalanceReader, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		booking:   booking,
		transfers: transfers,
		accounts:  accounts,
		balances:  balances,
		hub:       hub,
		logger:    logger,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.RequestLogger(h.logger))
	router.Use(middleware.Metrics)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Route("/v1", func(r chi.Router) {
		r.Post("/ledger/transactions", h.BookTransaction)
		r.Get("/ledger/accounts/{id}/entries", h.ListEntries)

		r.Post("/transfers", h.CreateTransfer)
		r.Get("/transfers/{id}", h.GetTransfer)

		r.Post("/accounts", h.OpenAccount)
		r.Get("/accounts/{id}", h.GetAccount)
		r.Post("/accounts/{id}/status", h.UpdateAccountStatus)
		r.Get("/accounts/{id}/balances", h.GetBalances)
	})

	router.Get("/ws/balances", h.WSBalances)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
