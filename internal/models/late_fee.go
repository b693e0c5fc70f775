package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	FeeTypeFixed      = "fixed"
	FeeTypePercentage = "percentage"

	FeeRecurringOnce    = "once"
	FeeRecurringDaily   = "daily"
	FeeRecurringWeekly  = "weekly"
	FeeRecurringMonthly = "monthly"

	RuleStatusActive   = "active"
	RuleStatusInactive = "inactive"
)

// LateFeeRule configures how overdue invoices accrue fees. PropertyType and
// EntityID narrow the rule's scope; a rule with neither is global.
type LateFeeRule struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID  uuid.UUID `gorm:"type:uuid;index"`
	Name            string
	PropertyType    *string
	EntityID        *uuid.UUID
	GracePeriodDays int
	FeeType         string
	FeeAmount       float64
	MaxFeeAmount    *float64
	RecurringType   string
	Status          string `gorm:"index"`
	AutoApply       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Specificity ranks rule scope for precedence: entity-scoped beats
// property-type-scoped beats global.
func (r *LateFeeRule) Specificity() int {
	if r.EntityID != nil {
		return 2
	}
	if r.PropertyType != nil && *r.PropertyType != "" {
		return 1
	}
	return 0
}

const (
	ActionStatusPending   = "pending"
	ActionStatusApplied   = "applied"
	ActionStatusFailed    = "failed"
	ActionStatusCancelled = "cancelled"
)

// LateFeeAction is one scheduled or applied fee against an invoice.
type LateFeeAction struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	InvoiceID     uuid.UUID `gorm:"type:uuid;index"`
	RuleID        uuid.UUID `gorm:"type:uuid;index"`
	Amount        float64
	ScheduledDate time.Time
	Status        string `gorm:"index"`
	FailureReason string
	AppliedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
