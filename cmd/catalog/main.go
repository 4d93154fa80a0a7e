package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eventseat/ticketing/internal/app"
	"github.com/eventseat/ticketing/internal/clock"
	"github.com/eventseat/ticketing/internal/config"
	"github.com/eventseat/ticketing/internal/storage/postgres"
	transporthttp "github.com/eventseat/ticketing/internal/transport/http"
	"github.com/eventseat/ticketing/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("connect to db")
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.WithError(err).Fatal("db ping")
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.WithError(err).Fatal("apply migrations")
	}

	clk := clock.NewSystem()
	holdRepo := postgres.NewHoldRepository(pool)
	ledger := postgres.NewSeatLedger(pool)
	holdSvc := app.NewHoldService(holdRepo, ledger, clk, app.WithHoldTTL(cfg.HoldTTL))
	catalogSvc := app.NewCatalogService(postgres.NewCatalogRepository(pool))
	importSvc := app.NewImportService(postgres.NewCatalogRepository(pool), postgres.NewImportIdempotencyRepository(pool), log)
	sweeper := app.NewSweeper(holdRepo, holdSvc, clk, log, cfg.SweepStartupDelay, cfg.SweepInterval)

	authed := func(h http.Handler) http.Handler {
		return transporthttp.RequireAuth(cfg.JWTSecret, h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/holds", authed(transporthttp.HandleCreateHold(holdSvc)))
	mux.Handle("/holds/", authed(transporthttp.HandleHoldByID(holdSvc)))
	mux.Handle("/admin/events", authed(transporthttp.HandleAdminEvents(catalogSvc)))
	mux.Handle("/admin/events/", authed(transporthttp.HandleAdminEventResources(catalogSvc, importSvc)))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), log)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweeper.Run(stopCtx)

	log.WithField("port", cfg.Port).Info("catalog listening")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server error")
		}
	case <-stopCtx.Done():
		log.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("server shutdown error")
	}
	log.Info("server stopped")
}
