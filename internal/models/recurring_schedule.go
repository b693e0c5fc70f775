package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	FrequencyWeekly    = "weekly"
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyAnnually  = "annually"

	ScheduleStatusActive    = "active"
	ScheduleStatusPaused    = "paused"
	ScheduleStatusCancelled = "cancelled"
	ScheduleStatusFailed    = "failed"

	LastPaymentSuccess = "success"
	LastPaymentFailed  = "failed"
)

// RecurringPaymentSchedule is a standing instruction to attempt a payment of
// Amount on a fixed cadence.
type RecurringPaymentSchedule struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID    uuid.UUID `gorm:"type:uuid;index"`
	CustomerID        uuid.UUID `gorm:"type:uuid;index"`
	CustomerName      string
	PropertyID        *uuid.UUID
	Amount            float64
	Frequency         string
	NextPaymentDate   time.Time `gorm:"index"`
	Status            string    `gorm:"index"`
	AutoRetry         bool
	RetryCount        int
	MaxRetries        int
	LastPaymentStatus string
	LastPaymentDate   *time.Time
	TotalProcessed    float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
