package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SystemTransactionSourcePayment = "payment"
	SystemTransactionSourceLedger  = "ledger"
)

// SystemTransaction is an internally recorded money movement offered to the
// matching engine. Reconciled rows are no longer candidates for new matches.
type SystemTransaction struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID `gorm:"type:uuid;index"`
	Date           time.Time `gorm:"index"`
	Amount         float64   `gorm:"index"`
	Description    string
	Source         string
	PaymentID      *uuid.UUID
	Reconciled     bool `gorm:"index"`
	CreatedAt      time.Time
}
