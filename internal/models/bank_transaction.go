package models

import (
	"time"

	"github.com/google/uuid"
)

// BankTransaction is an externally reported statement row. Amount is signed:
// credits positive, debits negative. Rows are immutable once imported.
type BankTransaction struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	ImportBatchID   uuid.UUID `gorm:"index"`
	TransactionDate time.Time `gorm:"column:transaction_date"`
	Description     string
	Amount          float64 `gorm:"index"`
	ReferenceNumber string
	ImportOrder     int
	CreatedAt       time.Time
}
