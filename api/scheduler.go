/*
scheduler.go - Periodic sync reconciliation

PURPOSE:
  Replays the batch sync for every tenant on an interval, so that a hook
  the booking subsystem failed to deliver still lands in the ledger. The
  ledger core has no scheduler of its own; this lives in the facade and
  only calls the same idempotent batch paths an admin can trigger.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on Start
  - Errors are logged and the next tick retries

CONFIGURATION:
  - CheckInterval: How often to reconcile (default: 1 hour)
  - Enabled: Whether scheduler is active (default: false in config)

USAGE:
  scheduler := NewReconciliationScheduler(handler.Syncer)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunSync endpoint (manual reconciliation), ValidateSync
    reports LastRun and GetNextRunTime
  - syncer/syncer.go: SyncExistingPayments, SyncExistingPayouts
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/kosku/ledger-engine/syncer"
)

// ReconciliationScheduler replays batch sync for all tenants.
type ReconciliationScheduler struct {
	Syncer        *syncer.Syncer
	CheckInterval time.Duration
	Enabled       bool
	Logger        *log.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	resultMu sync.Mutex
	lastRun  RunSummary
	nextRun  time.Time
}

// RunSummary records the outcome of one pass.
type RunSummary struct {
	At       time.Time     `json:"at"`
	Payments syncer.Result `json:"payments"`
	Payouts  syncer.Result `json:"payouts"`
}

// NewReconciliationScheduler creates a new scheduler.
func NewReconciliationScheduler(s *syncer.Syncer) *ReconciliationScheduler {
	return &ReconciliationScheduler{
		Syncer:        s,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Logger:        log.Default(),
	}
}

func (rs *ReconciliationScheduler) logf(format string, args ...any) {
	l := rs.Logger
	if l == nil {
		l = log.Default()
	}
	l.Printf("[Scheduler] "+format, args...)
}

// Start begins the scheduler.
func (rs *ReconciliationScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.logf("Disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}
	if rs.CheckInterval <= 0 {
		rs.CheckInterval = time.Hour
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run()

	rs.logf("Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler and waits for an in-flight pass to finish.
func (rs *ReconciliationScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.logf("Stopped")
	}
}

func (rs *ReconciliationScheduler) run() {
	defer rs.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-rs.stop
		cancel()
	}()

	// Run immediately on start
	rs.RunNow(ctx)
	rs.setNextRun(time.Now().Add(rs.CheckInterval))

	for {
		select {
		case <-rs.ticker.C:
			rs.RunNow(ctx)
			rs.setNextRun(time.Now().Add(rs.CheckInterval))
		case <-rs.stop:
			rs.setNextRun(time.Time{})
			return
		}
	}
}

func (rs *ReconciliationScheduler) setNextRun(t time.Time) {
	rs.resultMu.Lock()
	rs.nextRun = t
	rs.resultMu.Unlock()
}

// RunNow performs one reconciliation pass over every tenant.
func (rs *ReconciliationScheduler) RunNow(ctx context.Context) RunSummary {
	run := RunSummary{At: time.Now()}

	payments, err := rs.Syncer.SyncExistingPayments(ctx, nil)
	if err != nil {
		rs.logf("Error syncing payments: %v", err)
	}
	run.Payments = payments

	payouts, err := rs.Syncer.SyncExistingPayouts(ctx, nil)
	if err != nil {
		rs.logf("Error syncing payouts: %v", err)
	}
	run.Payouts = payouts

	if payments.Synced > 0 || payouts.Synced > 0 || payments.Errors > 0 || payouts.Errors > 0 {
		rs.logf("Completed: %d payments and %d payouts synced, %d errors",
			payments.Synced, payouts.Synced, payments.Errors+payouts.Errors)
	}

	rs.resultMu.Lock()
	rs.lastRun = run
	rs.resultMu.Unlock()
	return run
}

// LastRun returns the outcome of the most recent pass.
func (rs *ReconciliationScheduler) LastRun() RunSummary {
	rs.resultMu.Lock()
	defer rs.resultMu.Unlock()
	return rs.lastRun
}

// GetNextRunTime returns when the next scheduled check will occur, or the
// zero time when the scheduler is not running.
func (rs *ReconciliationScheduler) GetNextRunTime() time.Time {
	rs.resultMu.Lock()
	defer rs.resultMu.Unlock()
	return rs.nextRun
}
