package recurring

import (
	"context"
	"time"

	"property-ledger-backend/internal/dates"
	"property-ledger-backend/internal/models"
	"property-ledger-backend/internal/repository"
	"property-ledger-backend/internal/services/application"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store is what the recurring processor needs from the ledger.
type Store interface {
	repository.TxRunner
	ListDueSchedules(ctx context.Context, asOf time.Time) ([]models.RecurringPaymentSchedule, error)
	GetSchedule(ctx context.Context, id uuid.UUID) (*models.RecurringPaymentSchedule, error)
}

// Gateway settles a scheduled payment with the external payment provider.
// A returned error means the attempt failed as a business outcome; it does
// not abort the tick.
type Gateway interface {
	Charge(ctx context.Context, schedule *models.RecurringPaymentSchedule) error
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, schedule *models.RecurringPaymentSchedule) error

func (f GatewayFunc) Charge(ctx context.Context, schedule *models.RecurringPaymentSchedule) error {
	return f(ctx, schedule)
}

type Processor struct {
	store   Store
	gateway Gateway
	log     zerolog.Logger
}

func NewProcessor(store Store, gateway Gateway, log zerolog.Logger) *Processor {
	return &Processor{
		store:   store,
		gateway: gateway,
		log:     log.With().Str("component", "recurring").Logger(),
	}
}

// Tick advances every active schedule due on or before asOf. Each schedule
// is processed in its own transaction with the row locked, and its status is
// re-checked under the lock so a pause or cancel issued meanwhile takes
// precedence over the attempt.
func (p *Processor) Tick(ctx context.Context, asOf time.Time) ([]models.RecurringPaymentSchedule, error) {
	due, err := p.store.ListDueSchedules(ctx, asOf)
	if err != nil {
		return nil, err
	}

	processed := make([]models.RecurringPaymentSchedule, 0, len(due))
	for _, candidate := range due {
		var snapshot *models.RecurringPaymentSchedule
		err := p.store.WithinTx(ctx, func(tx repository.Tx) error {
			schedule, err := tx.ScheduleForUpdate(candidate.ID)
			if err != nil {
				return err
			}
			if schedule.Status != models.ScheduleStatusActive || schedule.NextPaymentDate.After(asOf) {
				return nil
			}

			if chargeErr := p.gateway.Charge(ctx, schedule); chargeErr != nil {
				p.handleFailure(schedule, asOf, chargeErr)
			} else if err := p.handleSuccess(tx, schedule, asOf); err != nil {
				return err
			}

			schedule.UpdatedAt = asOf
			if err := tx.SaveSchedule(schedule); err != nil {
				return err
			}
			snapshot = schedule
			return nil
		})
		if err != nil {
			return nil, err
		}
		if snapshot != nil {
			processed = append(processed, *snapshot)
		}
	}

	p.log.Info().
		Int("due", len(due)).
		Int("processed", len(processed)).
		Time("as_of", asOf).
		Msg("recurring payments tick completed")
	return processed, nil
}

func (p *Processor) handleSuccess(tx repository.Tx, schedule *models.RecurringPaymentSchedule, asOf time.Time) error {
	payment := &models.Payment{
		ID:             uuid.New(),
		OrganizationID: schedule.OrganizationID,
		CustomerID:     schedule.CustomerID,
		CustomerName:   schedule.CustomerName,
		Amount:         schedule.Amount,
		Status:         models.PaymentStatusCompleted,
		Method:         "recurring",
		ReceivedDate:   asOf,
		CreatedAt:      asOf,
		UpdatedAt:      asOf,
	}
	if err := tx.CreatePayment(payment); err != nil {
		return err
	}
	// Settled recurring payments become system transactions so the next
	// statement import can match against them.
	paymentID := payment.ID
	if err := tx.CreateSystemTransaction(&models.SystemTransaction{
		ID:             uuid.New(),
		OrganizationID: schedule.OrganizationID,
		Date:           asOf,
		Amount:         schedule.Amount,
		Description:    "recurring payment " + schedule.CustomerName,
		Source:         models.SystemTransactionSourcePayment,
		PaymentID:      &paymentID,
		CreatedAt:      asOf,
	}); err != nil {
		return err
	}

	schedule.RetryCount = 0
	schedule.LastPaymentStatus = models.LastPaymentSuccess
	lastDate := asOf
	schedule.LastPaymentDate = &lastDate
	schedule.NextPaymentDate = Advance(schedule.NextPaymentDate, schedule.Frequency)
	schedule.TotalProcessed += schedule.Amount
	return nil
}

func (p *Processor) handleFailure(schedule *models.RecurringPaymentSchedule, asOf time.Time, cause error) {
	schedule.LastPaymentStatus = models.LastPaymentFailed
	lastDate := asOf
	schedule.LastPaymentDate = &lastDate

	if !schedule.AutoRetry {
		schedule.Status = models.ScheduleStatusFailed
		p.log.Warn().Err(cause).
			Str("schedule_id", schedule.ID.String()).
			Msg("payment failed, auto-retry disabled, schedule failed")
		return
	}

	schedule.RetryCount++
	if schedule.RetryCount >= schedule.MaxRetries {
		schedule.Status = models.ScheduleStatusFailed
		p.log.Warn().Err(cause).
			Str("schedule_id", schedule.ID.String()).
			Int("retries", schedule.RetryCount).
			Msg("payment failed, retries exhausted, schedule failed")
		return
	}

	// nextPaymentDate stays put: the schedule is retried on the next tick.
	p.log.Warn().Err(cause).
		Str("schedule_id", schedule.ID.String()).
		Int("retry", schedule.RetryCount).
		Int("max_retries", schedule.MaxRetries).
		Msg("payment failed, will retry")
}

// Pause suspends an active (or failed) schedule.
func (p *Processor) Pause(ctx context.Context, scheduleID uuid.UUID) (*models.RecurringPaymentSchedule, error) {
	return p.transition(ctx, scheduleID, func(s *models.RecurringPaymentSchedule) error {
		switch s.Status {
		case models.ScheduleStatusCancelled:
			return &application.ValidationError{Code: "SCHEDULE_CANCELLED", Message: "cancelled schedules cannot be paused"}
		case models.ScheduleStatusPaused:
			return nil
		}
		s.Status = models.ScheduleStatusPaused
		return nil
	})
}

// Resume reactivates a paused or failed schedule. Missed occurrences are not
// attempted retroactively: the next payment date is recomputed forward from
// asOf when it has fallen behind.
func (p *Processor) Resume(ctx context.Context, scheduleID uuid.UUID, asOf time.Time) (*models.RecurringPaymentSchedule, error) {
	return p.transition(ctx, scheduleID, func(s *models.RecurringPaymentSchedule) error {
		switch s.Status {
		case models.ScheduleStatusCancelled:
			return &application.ValidationError{Code: "SCHEDULE_CANCELLED", Message: "cancelled schedules cannot be resumed"}
		case models.ScheduleStatusActive:
			return nil
		}
		s.Status = models.ScheduleStatusActive
		s.RetryCount = 0
		if !s.NextPaymentDate.After(asOf) {
			s.NextPaymentDate = Advance(asOf, s.Frequency)
		}
		return nil
	})
}

// Cancel is terminal from any state.
func (p *Processor) Cancel(ctx context.Context, scheduleID uuid.UUID) (*models.RecurringPaymentSchedule, error) {
	return p.transition(ctx, scheduleID, func(s *models.RecurringPaymentSchedule) error {
		s.Status = models.ScheduleStatusCancelled
		return nil
	})
}

func (p *Processor) transition(ctx context.Context, scheduleID uuid.UUID, mutate func(*models.RecurringPaymentSchedule) error) (*models.RecurringPaymentSchedule, error) {
	var schedule *models.RecurringPaymentSchedule
	err := p.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		schedule, err = tx.ScheduleForUpdate(scheduleID)
		if err != nil {
			return err
		}
		if err := mutate(schedule); err != nil {
			return err
		}
		schedule.UpdatedAt = time.Now()
		return tx.SaveSchedule(schedule)
	})
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

// Advance moves a payment date forward one cadence interval. Monthly-based
// frequencies clamp to the target month's length.
func Advance(from time.Time, frequency string) time.Time {
	switch frequency {
	case models.FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case models.FrequencyQuarterly:
		return dates.AddMonthsClamped(from, 3)
	case models.FrequencyAnnually:
		return dates.AddMonthsClamped(from, 12)
	default: // monthly
		return dates.AddMonthsClamped(from, 1)
	}
}
