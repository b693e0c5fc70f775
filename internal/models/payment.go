package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
	PaymentStatusCancelled = "cancelled"
)

// Payment is a received amount of money. Amount is immutable once recorded;
// AppliedAmount is the sum of its active (non-reversed) applications.
type Payment struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID `gorm:"type:uuid;index"`
	CustomerID     uuid.UUID `gorm:"type:uuid;index"`
	CustomerName   string    `gorm:"index"`
	Amount         float64
	AppliedAmount  float64
	Status         string `gorm:"index"`
	Method         string
	ReferenceNote  string
	IsDeposited    bool `gorm:"index"`
	DepositDate    *time.Time
	BankAccountID  *uuid.UUID
	ReceivedDate   time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AvailableAmount is the portion of the payment not yet applied to any invoice.
func (p *Payment) AvailableAmount() float64 {
	return p.Amount - p.AppliedAmount
}
