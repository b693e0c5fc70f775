package repository

import (
	"context"

	"property-ledger-backend/internal/models"

	"github.com/google/uuid"
)

// ListLateFeeCandidates returns invoices with an outstanding balance that
// are in the late-fee cycle or could enter it: past-due sent and partially
// paid invoices are included so the evaluation pass can mark them overdue.
// A zero orgID means all organizations.
func (l *Ledger) ListLateFeeCandidates(ctx context.Context, orgID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	query := l.db.WithContext(ctx).
		Where("balance_amount > 0 AND status IN ?",
			[]string{models.InvoiceStatusSent, models.InvoiceStatusPartialPayment,
				models.InvoiceStatusOverdue, models.InvoiceStatusLateFeePending, models.InvoiceStatusLateFeeApplied})
	if orgID != uuid.Nil {
		query = query.Where("organization_id = ?", orgID)
	}
	err := query.Order("due_date ASC, id ASC").Find(&invoices).Error
	return invoices, err
}

func (l *Ledger) ListActiveRules(ctx context.Context, orgID uuid.UUID) ([]models.LateFeeRule, error) {
	var rules []models.LateFeeRule
	query := l.db.WithContext(ctx).Where("status = ?", models.RuleStatusActive)
	if orgID != uuid.Nil {
		query = query.Where("organization_id = ?", orgID)
	}
	err := query.Order("created_at ASC, id ASC").Find(&rules).Error
	return rules, err
}

func (l *Ledger) GetRule(ctx context.Context, id uuid.UUID) (*models.LateFeeRule, error) {
	var r models.LateFeeRule
	if err := l.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func (l *Ledger) GetAction(ctx context.Context, id uuid.UUID) (*models.LateFeeAction, error) {
	var a models.LateFeeAction
	if err := l.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}
