package models

import (
	"time"

	"github.com/google/uuid"
)

// Invoice status values. The late-fee cycle statuses are a refinement of
// overdue: an invoice moves overdue -> late_fee_pending / late_fee_applied
// -> collection as fees accrue.
const (
	InvoiceStatusDraft          = "draft"
	InvoiceStatusSent           = "sent"
	InvoiceStatusPartialPayment = "partial_payment"
	InvoiceStatusPaid           = "paid"
	InvoiceStatusOverdue        = "overdue"
	InvoiceStatusLateFeePending = "late_fee_pending"
	InvoiceStatusLateFeeApplied = "late_fee_applied"
	InvoiceStatusCollection     = "collection"
	InvoiceStatusVoid           = "void"
)

type Invoice struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID  uuid.UUID `gorm:"type:uuid;index"`
	EntityID        *uuid.UUID
	InvoiceNumber   string    `gorm:"uniqueIndex"`
	CustomerID      uuid.UUID `gorm:"type:uuid;index"`
	CustomerName    string    `gorm:"index"`
	PropertyType    string
	InvoiceType     string
	TotalAmount     float64
	PaidAmount      float64
	BalanceAmount   float64 `gorm:"index"`
	LateFeeApplied  float64
	Status          string `gorm:"index"`
	DueDate         time.Time
	LastLateFeeDate *time.Time
	NextLateFeeDate *time.Time
	PaidAt          *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Outstanding reports whether the invoice still carries a balance that a
// payment can be applied against.
func (i *Invoice) Outstanding() bool {
	switch i.Status {
	case InvoiceStatusDraft, InvoiceStatusVoid, InvoiceStatusPaid:
		return false
	}
	return i.BalanceAmount > 0
}

// InLateFeeCycle reports whether the invoice is eligible for late-fee
// evaluation (overdue or already accruing fees, but not yet escalated).
func (i *Invoice) InLateFeeCycle() bool {
	switch i.Status {
	case InvoiceStatusOverdue, InvoiceStatusLateFeePending, InvoiceStatusLateFeeApplied:
		return true
	}
	return false
}
