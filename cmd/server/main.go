package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paystream/internal/bus"
	"paystream/internal/config"
	"paystream/internal/db"
	"paystream/internal/events"
	"paystream/internal/handlers"
	"paystream/internal/ledgerclient"
	"paystream/internal/relay"
	"paystream/internal/services"
	"paystream/internal/store"
	"paystream/internal/websocket"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	ledgerStore := store.NewLedgerStore(database)
	outboxStore := store.NewOutboxStore(database)
	snapshotStore := store.NewSnapshotStore(database)
	transferStore := store.NewTransferStore(database)
	stepStore := store.NewTransferStepStore(database)
	accountStore := store.NewAccountStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	memBus := bus.NewMemoryBus()
	ledgerEvents := memBus.Subscribe(events.TypeLedgerEntryAppended)

	var publisher bus.Publisher = memBus
	if cfg.SQSQueueURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			log.Fatalf("failed to load AWS config: %v", err)
		}
		publisher = bus.NewFanout(memBus, bus.NewSQSPublisher(sqs.NewFromConfig(awsCfg), cfg.SQSQueueURL))
	}

	ledger := ledgerclient.New(cfg.LedgerBaseURL, cfg.LedgerHTTPTimeout)
	bookingService := services.NewBookingService(txRunner, ledgerStore, outboxStore)
	transferService := services.NewTransferService(txRunner, transferStore, stepStore, outboxStore, ledger)
	accountService := services.NewAccountService(txRunner, accountStore, snapshotStore, outboxStore)
	projectionService := services.NewProjectionService(snapshotStore, hub, logger)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go projectionService.Run(rootCtx, ledgerEvents)
	if cfg.OutboxRelayEnabled {
		outboxRelay := relay.New(outboxStore, publisher, cfg.OutboxRelayTick, cfg.OutboxRelayBatch, logger)
		go outboxRelay.Run(rootCtx)
	}

	handler := handlers.New(cfg, bookingService, transferService, accountService, projectionService, hub, logger)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("paystream API listening", "addr", server.Addr, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
