package scheduler

import (
	"context"
	"time"

	"property-ledger-backend/internal/models"
	"property-ledger-backend/internal/services/latefee"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LateFeeRunner is the late fee engine's evaluation entry point.
type LateFeeRunner interface {
	Run(ctx context.Context, orgID uuid.UUID, asOf time.Time) (*latefee.RunResult, error)
}

// RecurringTicker is the recurring payment processor's tick entry point.
type RecurringTicker interface {
	Tick(ctx context.Context, asOf time.Time) ([]models.RecurringPaymentSchedule, error)
}

// Scheduler drives the two periodic engines on independent cadences. The
// engines tolerate concurrent user-initiated runs, so the loops simply fire
// and log.
type Scheduler struct {
	lateFees          LateFeeRunner
	recurring         RecurringTicker
	lateFeeInterval   time.Duration
	recurringInterval time.Duration
	log               zerolog.Logger
}

func New(lateFees LateFeeRunner, recurring RecurringTicker, lateFeeInterval, recurringInterval time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		lateFees:          lateFees,
		recurring:         recurring,
		lateFeeInterval:   lateFeeInterval,
		recurringInterval: recurringInterval,
		log:               log.With().Str("component", "scheduler").Logger(),
	}
}

// Start launches both loops; they stop when ctx is cancelled. An interrupted
// pass is simply picked up again on the next tick.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx, s.lateFeeInterval, "late_fees", func() {
		if _, err := s.lateFees.Run(ctx, uuid.Nil, time.Now()); err != nil {
			s.log.Error().Err(err).Msg("late fee evaluation failed")
		}
	})
	go s.loop(ctx, s.recurringInterval, "recurring_payments", func() {
		if _, err := s.recurring.Tick(ctx, time.Now()); err != nil {
			s.log.Error().Err(err).Msg("recurring payments tick failed")
		}
	})
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, name string, run func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.log.Info().Str("job", name).Dur("interval", interval).Msg("scheduler loop started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Str("job", name).Msg("scheduler loop stopped")
			return
		case <-ticker.C:
			run()
		}
	}
}
