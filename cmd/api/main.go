package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"blood-platform/internal/config"
	"blood-platform/internal/database"
	"blood-platform/internal/handlers"
	"blood-platform/internal/idempotency"
	"blood-platform/internal/logging"
	"blood-platform/internal/repository"
	"blood-platform/internal/service"
	ws "blood-platform/internal/websocket"
)

const (
	janitorInterval = 10 * time.Minute
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.WithField("store", cfg.StoreDriver).Info("starting blood donation platform")

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("cannot open store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("error closing store")
		}
	}()

	idem, err := idempotency.Open(cfg.IdempotencyDBPath, idempotency.DefaultTTL)
	if err != nil {
		log.Fatalf("cannot open idempotency store: %v", err)
	}
	defer idem.Close()
	go idem.RunJanitor(ctx, janitorInterval)

	hub := ws.NewHub()
	go hub.Run(ctx)

	opts := []service.Option{
		service.WithNotifier(hub),
		service.WithRedemptionTTL(cfg.RedemptionTTL()),
		service.WithStaffEmails(cfg.StaffEmailList()),
	}
	router := handlers.NewRouter(handlers.Deps{
		Config:      cfg,
		Store:       store,
		Accounts:    service.NewAccounts(store, opts...),
		Booking:     service.NewBooking(store, opts...),
		Donations:   service.NewDonations(store, opts...),
		Ledger:      service.NewLedger(store, opts...),
		Hub:         hub,
		Idempotency: idem,
	})

	server := &http.Server{
		Addr:           cfg.Addr(),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("could not start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
		os.Exit(1)
	}
	log.Info("server exited gracefully")
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.StoreDriver == config.DriverMemory {
		mem := repository.NewMemory()
		if cfg.SeedMemory {
			if err := repository.SeedDefaults(ctx, mem); err != nil {
				return nil, err
			}
			log.Info("seeded in-memory store with default centers and rewards")
		}
		return mem, nil
	}

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return repository.NewPostgres(db), nil
}
