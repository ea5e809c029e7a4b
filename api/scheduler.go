/*
scheduler.go - Periodic balance audit

PURPOSE:
  Periodically recomputes every active container's level from its ledger
  and reports drift. Read-only: it never corrects a level.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Runs once immediately on start
  - Logs containers whose stored level disagrees with the ledger
  - Publishes drift per container to the bidon_container_drift_liters gauge

CONFIGURATION:
  audit.interval (BIDON_AUDIT_INTERVAL); 0 disables the scheduler.

USAGE:
  scheduler := NewAuditScheduler(ledger, m, log, time.Hour)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - containers.go: AuditContainer endpoint (on-demand check)
  - ../fuel/audit.go: Verify and VerifyAll
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zoxknez/bidon/fuel"
	"github.com/zoxknez/bidon/metrics"
)

// AuditScheduler runs Ledger.VerifyAll on a ticker.
type AuditScheduler struct {
	Ledger        *fuel.Ledger
	Metrics       *metrics.Metrics
	Log           *slog.Logger
	CheckInterval time.Duration

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAuditScheduler creates a scheduler. m may be nil.
func NewAuditScheduler(ledger *fuel.Ledger, m *metrics.Metrics, log *slog.Logger, interval time.Duration) *AuditScheduler {
	if log == nil {
		log = slog.Default()
	}
	return &AuditScheduler{
		Ledger:        ledger,
		Metrics:       m,
		Log:           log,
		CheckInterval: interval,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler. A non-positive interval leaves it stopped.
func (s *AuditScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CheckInterval <= 0 {
		s.Log.Info("audit scheduler disabled")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run()

	s.Log.Info("audit scheduler started", "interval", s.CheckInterval)
}

// Stop stops the scheduler and waits for an in-flight check to finish.
func (s *AuditScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.Log.Info("audit scheduler stopped")
	}
}

func (s *AuditScheduler) run() {
	defer s.wg.Done()

	s.RunNow(context.Background())

	for {
		select {
		case <-s.ticker.C:
			s.RunNow(context.Background())
		case <-s.stop:
			return
		}
	}
}

// RunNow performs one audit pass and returns the containers that drifted.
func (s *AuditScheduler) RunNow(ctx context.Context) []fuel.BalanceCheck {
	checks, err := s.Ledger.VerifyAll(ctx)
	if err != nil {
		s.Log.ErrorContext(ctx, "balance audit failed", "error", err)
		return nil
	}

	var drifted []fuel.BalanceCheck
	for _, c := range checks {
		if s.Metrics != nil {
			s.Metrics.SetDrift(c.ContainerID, c.Drift.InexactFloat64())
		}
		if c.Consistent() {
			continue
		}
		drifted = append(drifted, c)
		s.Log.WarnContext(ctx, "container level drift",
			"container_id", c.ContainerID,
			"container", c.ContainerName,
			"current_level", c.CurrentLevel.String(),
			"expected", c.Expected.String(),
			"drift", c.Drift.String(),
		)
	}
	s.Log.InfoContext(ctx, "balance audit complete", "containers", len(checks), "drifted", len(drifted))
	return drifted
}
