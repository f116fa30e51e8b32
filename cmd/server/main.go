package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/example/ride-dispatch/internal/archive"
	"github.com/example/ride-dispatch/internal/config"
	httpapi "github.com/example/ride-dispatch/internal/http"
	"github.com/example/ride-dispatch/internal/ingest"
	"github.com/example/ride-dispatch/internal/logging"
	"github.com/example/ride-dispatch/internal/payments"
	"github.com/example/ride-dispatch/internal/quote"
	"github.com/example/ride-dispatch/internal/registry"
	"github.com/example/ride-dispatch/internal/store"
	"github.com/example/ride-dispatch/internal/trip"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	if cfg.PGDSN != "" && cfg.RunMigrations {
		runMigrations(cfg.PGDSN)
	}

	rides := store.NewMemoryStore()
	sessions := registry.New()

	quoter := &quote.Service{
		Cache:           quote.NewCache(cfg.QuoteCacheTTL),
		Logger:          logging.Component(logger, "quote"),
		DefaultSpeedMps: cfg.DefaultSpeedMps,
	}
	if cfg.OSRMEndpoint != "" {
		quoter.Router = quote.NewOSRMClient(cfg.OSRMEndpoint)
	}
	if cfg.PricingEndpoint != "" {
		quoter.Pricer = quote.NewPricingClient(cfg.PricingEndpoint)
	}

	var history archive.Store
	if cfg.PGDSN != "" {
		if ps, err := archive.NewPostgresStore(cfg.PGDSN); err == nil {
			history = ps
		} else {
			logger.Error("postgres archive unavailable, using memory", "error", err)
		}
	}
	if history == nil {
		history = archive.NewMemoryStore()
	}

	trips := &trip.Service{
		Store:        rides,
		Sessions:     sessions,
		Quoter:       quoter,
		Logger:       logging.Component(logger, "trip"),
		Archive:      history,
		OfferTimeout: cfg.OfferTimeout,
	}

	if cfg.RedisAddr != "" {
		trips.Mirror = store.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RideCacheTTL)
	}
	if len(cfg.KafkaBrokers) > 0 {
		kp := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		trips.Positions = kp
	}
	if cfg.StripeAPIKey != "" {
		trips.Payments = payments.NewLedger(payments.NewStripeClient(cfg.StripeAPIKey), cfg.StripeCurrency)
	}

	srv := httpapi.NewServer(trips, sessions, history, logging.Component(logger, "http"))

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("ride-dispatch listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// runMigrations applies migrations/001_create_rides.sql when requested.
func runMigrations(dsn string) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Printf("migration db open error: %v", err)
		return
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_rides.sql"))
	if err != nil {
		log.Printf("migration read error: %v", err)
		return
	}
	if _, err := db.Exec(string(b)); err != nil {
		log.Printf("migration exec error: %v", err)
		return
	}
	log.Printf("migration applied: 001_create_rides.sql")
}
