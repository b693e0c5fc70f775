package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentApplication ties a slice of a payment to one invoice. Applications
// are append-only: a reversal sets ReversedAt instead of deleting the row, so
// the applied/reversed history stays auditable.
type PaymentApplication struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	PaymentID      uuid.UUID `gorm:"type:uuid;index"`
	InvoiceID      uuid.UUID `gorm:"type:uuid;index"`
	AppliedAmount  float64
	AppliedDate    time.Time
	ReversedAt     *time.Time `gorm:"index"`
	ReversalReason string
	CreatedAt      time.Time
}

// Active reports whether the application still counts against the payment
// and invoice balances.
func (a *PaymentApplication) Active() bool {
	return a.ReversedAt == nil
}
