package repository

import (
	"context"

	"property-ledger-backend/internal/models"

	"github.com/google/uuid"
)

// ListUnappliedPayments returns completed payments that still have an
// unapplied remainder. A zero orgID means all organizations.
func (l *Ledger) ListUnappliedPayments(ctx context.Context, orgID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	query := l.db.WithContext(ctx).
		Where("status = ? AND amount - applied_amount > 0", models.PaymentStatusCompleted)
	if orgID != uuid.Nil {
		query = query.Where("organization_id = ?", orgID)
	}
	err := query.Order("received_date ASC, id ASC").Find(&payments).Error
	return payments, err
}

// ListOpenInvoices returns invoices with an outstanding balance, excluding
// draft and void, oldest due date first.
func (l *Ledger) ListOpenInvoices(ctx context.Context, orgID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	query := l.db.WithContext(ctx).
		Where("balance_amount > 0 AND status NOT IN ?",
			[]string{models.InvoiceStatusDraft, models.InvoiceStatusVoid, models.InvoiceStatusPaid})
	if orgID != uuid.Nil {
		query = query.Where("organization_id = ?", orgID)
	}
	err := query.Order("due_date ASC, id ASC").Find(&invoices).Error
	return invoices, err
}

func (l *Ledger) GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	if err := l.db.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (l *Ledger) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := l.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (l *Ledger) GetApplication(ctx context.Context, id uuid.UUID) (*models.PaymentApplication, error) {
	var app models.PaymentApplication
	if err := l.db.WithContext(ctx).First(&app, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &app, nil
}
