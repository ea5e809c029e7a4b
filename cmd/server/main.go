/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the bidon fuel ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and configuration
  2. Open the store (SQLite, PostgreSQL or in-memory) and migrate
  3. Seed defaults if enabled
  4. Create ledger, fleet, reporter, auth and metrics
  5. Configure HTTP router
  6. Start server, audit scheduler, and wait for a signal

COMMAND-LINE FLAGS:
  -config        Path to a YAML config file (optional)
  -migrate-only  Apply migrations and exit
  -seed-only     Apply migrations, seed defaults and exit

ENVIRONMENT:
  Every config key can be set as BIDON_<SECTION>_<KEY>, for example
  BIDON_DATABASE_DRIVER=postgres, BIDON_DATABASE_DSN=postgres://...,
  BIDON_AUTH_SECRET=..., BIDON_AUDIT_INTERVAL=1h.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the audit scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

SEE ALSO:
  - config/config.go: Configuration keys and defaults
  - api/server.go: Router configuration
  - store/sqlstore/sqlstore.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/zoxknez/bidon/api"
	"github.com/zoxknez/bidon/auth"
	"github.com/zoxknez/bidon/config"
	"github.com/zoxknez/bidon/fuel"
	"github.com/zoxknez/bidon/fuel/store"
	"github.com/zoxknez/bidon/logging"
	"github.com/zoxknez/bidon/metrics"
	"github.com/zoxknez/bidon/seed"
	"github.com/zoxknez/bidon/store/sqlstore"
)

// backend is what the server needs from a store.
type backend interface {
	fuel.TxStore
	auth.UserStore
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bidon: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	configPath := flag.String("config", "", "Path to YAML config file")
	migrateOnly := flag.Bool("migrate-only", false, "Apply migrations and exit")
	seedOnly := flag.Bool("seed-only", false, "Apply migrations, seed defaults and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.App.Env)
	slog.SetDefault(log)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	db, closeDB, err := openBackend(ctx, cfg, log, *migrateOnly || *seedOnly)
	if err != nil {
		return err
	}
	defer closeDB()
	if *migrateOnly {
		log.Info("migrations applied")
		return nil
	}

	if cfg.Seed.Enabled || *seedOnly {
		if err := runSeed(ctx, db, cfg.Seed.File, log); err != nil {
			return err
		}
		if *seedOnly {
			return nil
		}
	}

	// Metrics
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		m.RegisterStockGauges(stockGauges(db))
	}

	// Domain services
	ledger := fuel.NewLedger(db, fuel.WithHook(func(op string, err error) {
		if m != nil {
			m.ObserveLedger(op, err)
		}
		if err != nil {
			log.Debug("ledger operation rejected", "op", op, "error", err)
		}
	}))
	fleet := fuel.NewFleet(db)
	reporter := fuel.NewReporter(db,
		fuel.WithLocation(loc),
		fuel.WithErrorHook(func(report string, err error) {
			log.Error("report failed", "report", report, "error", err)
			if m != nil {
				m.ObserveReportFailure(report)
			}
		}),
	)

	// Auth
	var (
		authSvc *auth.Service
		issuer  *auth.Issuer
	)
	if cfg.Auth.Enabled {
		issuer, err = auth.NewIssuer([]byte(cfg.Auth.Secret), cfg.Auth.TokenTTL)
		if err != nil {
			return err
		}
		authSvc = auth.NewService(db, issuer)
	} else {
		log.Warn("authentication disabled; all endpoints are public")
	}

	// Initialize handler and router
	handler := api.NewHandler(ledger, fleet, reporter, authSvc, issuer, m, log, loc)
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.HTTP.AllowedOrigins})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	scheduler := api.NewAuditScheduler(ledger, m, log, cfg.Audit.Interval)
	scheduler.Start()
	defer scheduler.Stop()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", cfg.HTTP.Addr, "driver", cfg.Database.Driver, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal or listener failure
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// openBackend opens the configured store. SQL stores are migrated when
// database.migrate is set or force is true.
func openBackend(ctx context.Context, cfg config.Config, log *slog.Logger, force bool) (backend, func(), error) {
	if strings.EqualFold(cfg.Database.Driver, "memory") {
		log.Warn("using in-memory store; data is lost on exit")
		return store.NewMemory(), func() {}, nil
	}

	s, err := sqlstore.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := s.Close(); err != nil {
			log.Error("close database", "error", err)
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.Ping(pingCtx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Database.Migrate || force {
		if err := s.Migrate(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		version, err := s.MigrationVersion(ctx)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		log.Info("database ready", "dialect", s.Dialect(), "schema_version", version)
	}
	return s, closeFn, nil
}

func runSeed(ctx context.Context, db backend, path string, log *slog.Logger) error {
	s, ok := db.(seed.Store)
	if !ok {
		return errors.New("store does not support seeding")
	}

	var (
		f   *seed.Fixture
		err error
	)
	if path != "" {
		f, err = seed.Load(path)
	} else {
		f, err = seed.Default()
	}
	if err != nil {
		return err
	}
	_, err = seed.Run(ctx, s, f, log)
	return err
}

// stockGauges returns scrape-time callbacks for the active container
// count and the fuel on hand.
func stockGauges(db fuel.Store) (func() float64, func() float64) {
	containers := func() []fuel.Container {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		cs, err := db.ListContainers(ctx, true)
		if err != nil {
			return nil
		}
		return cs
	}
	active := func() float64 {
		return float64(len(containers()))
	}
	onHand := func() float64 {
		var total float64
		for _, c := range containers() {
			total += c.CurrentLevel.InexactFloat64()
		}
		return total
	}
	return active, onHand
}
