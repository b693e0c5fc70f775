package repository

import (
	"context"
	"time"

	"property-ledger-backend/internal/models"

	"github.com/google/uuid"
)

// ListDueSchedules returns active schedules due on or before asOf.
func (l *Ledger) ListDueSchedules(ctx context.Context, asOf time.Time) ([]models.RecurringPaymentSchedule, error) {
	var schedules []models.RecurringPaymentSchedule
	err := l.db.WithContext(ctx).
		Where("status = ? AND next_payment_date <= ?", models.ScheduleStatusActive, asOf).
		Order("next_payment_date ASC, id ASC").
		Find(&schedules).Error
	return schedules, err
}

func (l *Ledger) GetSchedule(ctx context.Context, id uuid.UUID) (*models.RecurringPaymentSchedule, error) {
	var s models.RecurringPaymentSchedule
	if err := l.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
