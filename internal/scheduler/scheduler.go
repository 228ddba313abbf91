package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/supplychain/internal/config"
)

const scanTimeout = 2 * time.Minute

// Scanner is the set of periodic scans run on every tick.
type Scanner interface {
	NotifyUpcomingDeliveries(ctx context.Context) (int, error)
	RemindOutstandingPayments(ctx context.Context) (int, error)
	AlertLowCapacity(ctx context.Context) (int, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	scanner  Scanner
	schedule string
	logger   *zap.Logger

	// ticks derive from base so Stop can cancel scans in flight.
	base   context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a new scheduler instance running in the configured timezone.
func NewScheduler(cfg config.SchedulerConfig, scanner Scanner, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	cronLogger := cronLogAdapter{logger: logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	base, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:     c,
		scanner:  scanner,
		schedule: cfg.Schedule,
		logger:   logger,
		base:     base,
		cancel:   cancel,
	}, nil
}

// Start registers the poll job and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))

	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(s.base) }); err != nil {
		return fmt.Errorf("schedule poll job: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop cancels a running tick and waits for it to return.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
}

// RunOnce runs every scan. A failing or panicking scan is logged and does not
// stop the others; a cancelled ctx skips the scans not yet started.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.run(ctx, "upcoming_deliveries", s.scanner.NotifyUpcomingDeliveries)
	s.run(ctx, "payment_reminders", s.scanner.RemindOutstandingPayments)
	s.run(ctx, "low_capacity", s.scanner.AlertLowCapacity)
}

func (s *Scheduler) run(parent context.Context, name string, scan func(ctx context.Context) (int, error)) {
	if err := parent.Err(); err != nil {
		s.logger.Info("scan skipped", zap.String("scan", name), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(parent, scanTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scan panicked", zap.String("scan", name), zap.Any("panic", r))
		}
	}()

	sent, err := scan(ctx)
	if err != nil {
		s.logger.Error("scan failed", zap.String("scan", name), zap.Error(err))
		return
	}
	s.logger.Info("scan completed", zap.String("scan", name), zap.Int("notifications", sent))
}

// cronLogAdapter routes cron's internal logging to zap.
type cronLogAdapter struct {
	logger *zap.Logger
}

func (a cronLogAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (a cronLogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
