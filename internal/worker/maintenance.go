package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/demonlist-ranking/internal/config"
	"github.com/demonlist-ranking/internal/domain"
)

// SessionSweeper drops expired sessions in bulk
type SessionSweeper interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// PointsRecalculator rewrites a list's points from positions
type PointsRecalculator interface {
	Recalculate(ctx context.Context, listType domain.ListType) (int, error)
}

// MaintenanceWorker runs periodic housekeeping: purging expired in-process
// sessions and, when enabled, re-deriving demon points from positions.
type MaintenanceWorker struct {
	sessions SessionSweeper
	demons   PointsRecalculator
	config   *config.MaintenanceConfig
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewMaintenanceWorker creates a new maintenance worker. sessions may be nil
// when the session backend expires entries on its own.
func NewMaintenanceWorker(
	sessions SessionSweeper,
	demons PointsRecalculator,
	cfg *config.MaintenanceConfig,
	logger *slog.Logger,
) *MaintenanceWorker {
	return &MaintenanceWorker{
		sessions: sessions,
		demons:   demons,
		config:   cfg,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background maintenance loop
func (w *MaintenanceWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("maintenance worker started",
		"interval", w.config.Interval,
		"recalculate_points", w.config.RecalculatePoints,
	)

	go w.run(ctx)
	return nil
}

// Stop stops the background loop and waits for the current cycle to finish
func (w *MaintenanceWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("maintenance worker stopped")
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *MaintenanceWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *MaintenanceWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce runs a single maintenance cycle
func (w *MaintenanceWorker) RunOnce(ctx context.Context) {
	startTime := time.Now()
	purged := w.purgeSessions(ctx)
	changed, failed := w.recalculateAll(ctx)

	w.logger.Debug("maintenance cycle completed",
		"duration", time.Since(startTime),
		"sessions_purged", purged,
		"points_changed", changed,
		"errors", failed,
	)
}

func (w *MaintenanceWorker) purgeSessions(ctx context.Context) int {
	if w.sessions == nil {
		return 0
	}
	purged, err := w.sessions.PurgeExpired(ctx)
	if err != nil {
		w.logger.Error("failed to purge expired sessions", "error", err)
		return 0
	}
	return purged
}

// recalculateAll repairs points on every list. A failing list is logged and
// the remaining lists are still processed.
func (w *MaintenanceWorker) recalculateAll(ctx context.Context) (changed, failed int) {
	if !w.config.RecalculatePoints || w.demons == nil {
		return 0, 0
	}
	for _, listType := range domain.ListTypes() {
		n, err := w.demons.Recalculate(ctx, listType)
		if err != nil {
			w.logger.Error("failed to recalculate points", "list_type", listType, "error", err)
			failed++
			continue
		}
		if n > 0 {
			w.logger.Info("points drift repaired", "list_type", listType, "changed", n)
		}
		changed += n
	}
	return changed, failed
}
