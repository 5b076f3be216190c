package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepTimeout = 5 * time.Minute

// Scheduler runs the maintenance sweeps on fixed schedules. Sweeps are
// idempotent and set-based, so an overlapping slow run is harmless.
type Scheduler struct {
	cron   *cron.Cron
	sweeps *Maintenance
	logger *zap.Logger
}

func NewScheduler(sweeps *Maintenance, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		sweeps: sweeps,
		logger: logger,
	}
}

func (s *Scheduler) Start() error {
	entries := []struct {
		spec string
		name string
		run  func(context.Context)
	}{
		{"0 * * * *", "low_stock_check", s.sweeps.CheckLowStock},
		{"0 2 * * *", "abandoned_cart_reminders", s.sweeps.SendAbandonedCartReminders},
		{"0 3 * * *", "expired_cart_cleanup", func(ctx context.Context) { s.sweeps.CleanupExpiredCarts(ctx) }},
		{"*/30 * * * *", "stale_payment_reconciliation", s.sweeps.ReconcileStalePayments},
		{"0 4 * * *", "search_history_eviction", s.sweeps.EvictSearchHistory},
		{"0 6 * * 1", "weekly_report", s.sweeps.WeeklyReport},
	}

	for _, entry := range entries {
		entry := entry
		_, err := s.cron.AddFunc(entry.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			defer cancel()

			s.logger.Debug("Running scheduled job", zap.String("job", entry.name))
			entry.run(ctx)
		})
		if err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("jobs", len(entries)))
	return nil
}

// Stop halts scheduling and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
