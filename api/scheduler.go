/*
scheduler.go - Automated month-end rollover scheduler

PURPOSE:
  Periodically snapshots the live dashboard metrics into the historical
  archive so month transitions are captured even when nobody opens the
  app on the first of the month.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Rollover itself is idempotent: a month key is only archived once,
    so frequent checks are harmless
  - Check failures are logged and retried on the next tick

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRolloverScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerRollover endpoint (manual rollover)
  - crm/rollover.go: StatsArchive.Rollover
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RolloverScheduler archives monthly snapshots in the background.
type RolloverScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRolloverScheduler creates a new scheduler.
func NewRolloverScheduler(handler *Handler) *RolloverScheduler {
	return &RolloverScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *RolloverScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		slog.Info("rollover scheduler disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	slog.Info("rollover scheduler started", "interval", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *RolloverScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		slog.Info("rollover scheduler stopped")
	}
}

func (rs *RolloverScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.checkAndProcess()

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndProcess()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RolloverScheduler) checkAndProcess() {
	ctx := context.Background()

	resp, err := rs.Handler.runRollover(ctx)
	if err != nil {
		slog.Error("scheduled rollover failed", "error", err)
		return
	}
	if resp.Archived {
		slog.Info("scheduled rollover archived month", "month", resp.Month)
	}
}

// RunNow triggers an immediate check (for testing/admin).
func (rs *RolloverScheduler) RunNow() {
	rs.checkAndProcess()
}
