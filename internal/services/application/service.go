package application

import (
	"context"
	"math"
	"sort"
	"time"

	"property-ledger-backend/internal/models"
	"property-ledger-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store is what the application service needs from the ledger.
type Store interface {
	repository.TxRunner
	ListUnappliedPayments(ctx context.Context, orgID uuid.UUID) ([]models.Payment, error)
	ListOpenInvoices(ctx context.Context, orgID uuid.UUID) ([]models.Invoice, error)
}

type Service struct {
	store Store
	log   zerolog.Logger
}

func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{store: store, log: log.With().Str("component", "application").Logger()}
}

// Apply applies amount of the payment to the invoice. The application row,
// the payment's applied amount and the invoice's balance and status are
// written in one transaction with both aggregates row-locked. The payment is
// locked first so concurrent applies lock in the same order.
func (s *Service) Apply(ctx context.Context, paymentID, invoiceID uuid.UUID, amount float64) (*models.PaymentApplication, error) {
	if amount <= 0 {
		return nil, validationf(CodeAmountNotPositive, "application amount must be positive, got %.2f", amount)
	}

	var app *models.PaymentApplication
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		payment, err := tx.PaymentForUpdate(paymentID)
		if err != nil {
			return err
		}
		invoice, err := tx.InvoiceForUpdate(invoiceID)
		if err != nil {
			return err
		}

		switch payment.Status {
		case models.PaymentStatusFailed, models.PaymentStatusRefunded, models.PaymentStatusCancelled:
			return validationf("PAYMENT_NOT_APPLICABLE", "payment %s has status %s", payment.ID, payment.Status)
		}
		if invoice.Status == models.InvoiceStatusVoid || invoice.Status == models.InvoiceStatusDraft {
			return validationf("INVOICE_NOT_APPLICABLE", "invoice %s has status %s", invoice.ID, invoice.Status)
		}
		if amount > payment.AvailableAmount() {
			return &ConservationError{
				Code:      CodeInsufficientFunds,
				EntityID:  payment.ID,
				Requested: amount,
				Available: payment.AvailableAmount(),
			}
		}
		if amount > invoice.BalanceAmount {
			return &ConservationError{
				Code:      CodeOverApplication,
				EntityID:  invoice.ID,
				Requested: amount,
				Available: invoice.BalanceAmount,
			}
		}

		now := time.Now()
		app = &models.PaymentApplication{
			ID:            uuid.New(),
			PaymentID:     payment.ID,
			InvoiceID:     invoice.ID,
			AppliedAmount: amount,
			AppliedDate:   now,
			CreatedAt:     now,
		}
		if err := tx.CreateApplication(app); err != nil {
			return err
		}

		payment.AppliedAmount += amount
		if err := tx.SavePayment(payment); err != nil {
			return err
		}

		invoice.PaidAmount += amount
		invoice.BalanceAmount = snapZero(invoice.TotalAmount - invoice.PaidAmount)
		recomputeInvoiceStatus(invoice, now)
		return tx.SaveInvoice(invoice)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("payment_id", paymentID.String()).
		Str("invoice_id", invoiceID.String()).
		Float64("amount", amount).
		Msg("payment applied")
	return app, nil
}

// AutoApplySkip explains why a payment was left for manual application.
type AutoApplySkip struct {
	PaymentID         uuid.UUID   `json:"payment_id"`
	Reason            string      `json:"reason"`
	CandidateInvoices []uuid.UUID `json:"candidate_invoices,omitempty"`
}

// AutoApplyResult reports what an auto-apply run did and what it refused.
type AutoApplyResult struct {
	Applications []models.PaymentApplication `json:"applications"`
	Skipped      []AutoApplySkip             `json:"skipped"`
}

// AutoApply pairs unapplied payments with outstanding invoices on exact
// customer identity. A payment with more than one candidate invoice, or an
// invoice claimed by more than one payment, is never applied automatically;
// those cases are surfaced in Skipped for manual handling.
func (s *Service) AutoApply(ctx context.Context, orgID uuid.UUID) (*AutoApplyResult, error) {
	payments, err := s.store.ListUnappliedPayments(ctx, orgID)
	if err != nil {
		return nil, err
	}
	invoices, err := s.store.ListOpenInvoices(ctx, orgID)
	if err != nil {
		return nil, err
	}

	byCustomer := make(map[uuid.UUID][]models.Invoice)
	for _, inv := range invoices {
		byCustomer[inv.CustomerID] = append(byCustomer[inv.CustomerID], inv)
	}

	type proposal struct {
		paymentID uuid.UUID
		invoiceID uuid.UUID
	}
	result := &AutoApplyResult{}
	var proposals []proposal
	claimed := make(map[uuid.UUID][]uuid.UUID) // invoice -> claiming payments

	for _, p := range payments {
		candidates := byCustomer[p.CustomerID]
		switch len(candidates) {
		case 0:
			result.Skipped = append(result.Skipped, AutoApplySkip{
				PaymentID: p.ID,
				Reason:    "no outstanding invoice for customer",
			})
		case 1:
			proposals = append(proposals, proposal{paymentID: p.ID, invoiceID: candidates[0].ID})
			claimed[candidates[0].ID] = append(claimed[candidates[0].ID], p.ID)
		default:
			ids := make([]uuid.UUID, len(candidates))
			for i, c := range candidates {
				ids[i] = c.ID
			}
			result.Skipped = append(result.Skipped, AutoApplySkip{
				PaymentID:         p.ID,
				Reason:            "multiple candidate invoices",
				CandidateInvoices: ids,
			})
		}
	}

	for _, prop := range proposals {
		if len(claimed[prop.invoiceID]) > 1 {
			result.Skipped = append(result.Skipped, AutoApplySkip{
				PaymentID:         prop.paymentID,
				Reason:            "invoice claimed by multiple payments",
				CandidateInvoices: []uuid.UUID{prop.invoiceID},
			})
			continue
		}

		// Amounts are re-read under lock inside Apply; the listing above is
		// only used for pairing.
		var amount float64
		err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
			payment, err := tx.PaymentForUpdate(prop.paymentID)
			if err != nil {
				return err
			}
			invoice, err := tx.InvoiceForUpdate(prop.invoiceID)
			if err != nil {
				return err
			}
			amount = math.Min(payment.AvailableAmount(), invoice.BalanceAmount)
			return nil
		})
		if err != nil {
			return nil, err
		}
		if amount <= 0 {
			continue
		}

		app, err := s.Apply(ctx, prop.paymentID, prop.invoiceID, amount)
		if err != nil {
			s.log.Warn().Err(err).
				Str("payment_id", prop.paymentID.String()).
				Str("invoice_id", prop.invoiceID.String()).
				Msg("auto-apply pair rejected")
			result.Skipped = append(result.Skipped, AutoApplySkip{
				PaymentID: prop.paymentID,
				Reason:    err.Error(),
			})
			continue
		}
		result.Applications = append(result.Applications, *app)
	}

	return result, nil
}

// ReverseResult returns both restored aggregates.
type ReverseResult struct {
	Invoice *models.Invoice `json:"invoice"`
	Payment *models.Payment `json:"payment"`
}

// Reverse soft-deletes an application and restores the payment's available
// amount and the invoice's balance atomically.
func (s *Service) Reverse(ctx context.Context, applicationID uuid.UUID, reason string) (*ReverseResult, error) {
	var result ReverseResult
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		app, err := tx.ApplicationForUpdate(applicationID)
		if err != nil {
			return err
		}
		if app.ReversedAt != nil {
			return validationf("ALREADY_REVERSED", "application %s was reversed at %s", app.ID, app.ReversedAt.Format(time.RFC3339))
		}

		payment, err := tx.PaymentForUpdate(app.PaymentID)
		if err != nil {
			return err
		}
		invoice, err := tx.InvoiceForUpdate(app.InvoiceID)
		if err != nil {
			return err
		}

		if invoice.PaidAmount-app.AppliedAmount < 0 {
			return &ConservationError{
				Code:      CodeCannotReverse,
				EntityID:  invoice.ID,
				Requested: app.AppliedAmount,
				Available: invoice.PaidAmount,
			}
		}

		now := time.Now()
		app.ReversedAt = &now
		app.ReversalReason = reason
		if err := tx.SaveApplication(app); err != nil {
			return err
		}

		payment.AppliedAmount -= app.AppliedAmount
		if err := tx.SavePayment(payment); err != nil {
			return err
		}

		invoice.PaidAmount -= app.AppliedAmount
		invoice.BalanceAmount = snapZero(invoice.TotalAmount - invoice.PaidAmount)
		recomputeAfterReverse(invoice, now)
		if err := tx.SaveInvoice(invoice); err != nil {
			return err
		}

		result.Invoice = invoice
		result.Payment = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("application_id", applicationID.String()).
		Str("reason", reason).
		Msg("application reversed")
	return &result, nil
}

// RecordDeposit marks the given payments deposited. The declared deposit
// amount must equal the sum of the payments' amounts exactly; deposits are
// all-or-nothing against the declared total.
func (s *Service) RecordDeposit(ctx context.Context, paymentIDs []uuid.UUID, bankAccountID uuid.UUID, depositDate time.Time, depositAmount float64) ([]models.Payment, error) {
	if len(paymentIDs) == 0 {
		return nil, validationf("NO_PAYMENTS", "at least one payment is required")
	}

	// Lock in a stable order so concurrent deposits cannot deadlock.
	ids := make([]uuid.UUID, len(paymentIDs))
	copy(ids, paymentIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var deposited []models.Payment
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		payments := make([]*models.Payment, 0, len(ids))
		total := 0.0
		for _, id := range ids {
			p, err := tx.PaymentForUpdate(id)
			if err != nil {
				return err
			}
			if p.IsDeposited {
				return validationf("ALREADY_DEPOSITED", "payment %s is already deposited", p.ID)
			}
			payments = append(payments, p)
			total += p.Amount
		}

		if math.Abs(total-depositAmount) >= 0.01 {
			return &ConservationError{
				Code:      CodeDepositAmountMismatch,
				EntityID:  bankAccountID,
				Requested: depositAmount,
				Available: total,
			}
		}

		for _, p := range payments {
			p.IsDeposited = true
			p.DepositDate = &depositDate
			p.BankAccountID = &bankAccountID
			if err := tx.SavePayment(p); err != nil {
				return err
			}
			deposited = append(deposited, *p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int("payments", len(deposited)).
		Float64("amount", depositAmount).
		Msg("deposit recorded")
	return deposited, nil
}

// LateFeeCharge names the fee-application effect the late fee engine asks
// for: a late fee is a balance increase with no offsetting payment.
type LateFeeCharge struct {
	InvoiceID   uuid.UUID
	Amount      float64
	AsOf        time.Time
	NextFeeDate *time.Time
}

// ChargeLateFee increases the invoice's total and balance by the fee inside
// the caller's transaction. Callers must have re-validated that the invoice
// still carries a balance.
func (s *Service) ChargeLateFee(tx repository.Tx, charge LateFeeCharge) (*models.Invoice, error) {
	if charge.Amount <= 0 {
		return nil, validationf(CodeAmountNotPositive, "late fee must be positive, got %.2f", charge.Amount)
	}

	invoice, err := tx.InvoiceForUpdate(charge.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.BalanceAmount <= 0 {
		return nil, validationf("INVOICE_SETTLED", "invoice %s has no outstanding balance", invoice.ID)
	}

	invoice.TotalAmount += charge.Amount
	invoice.BalanceAmount = snapZero(invoice.TotalAmount - invoice.PaidAmount)
	invoice.LateFeeApplied += charge.Amount
	asOf := charge.AsOf
	invoice.LastLateFeeDate = &asOf
	invoice.NextLateFeeDate = charge.NextFeeDate
	invoice.Status = models.InvoiceStatusLateFeeApplied
	if err := tx.SaveInvoice(invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// snapZero collapses float residue left by repeated add/subtract so a fully
// applied invoice reads exactly zero.
func snapZero(v float64) float64 {
	if math.Abs(v) < 0.005 {
		return 0
	}
	return v
}

// recomputeInvoiceStatus applies the post-application status rule: settled
// invoices become paid, partially paid ones partial_payment, and anything
// else keeps its status.
func recomputeInvoiceStatus(inv *models.Invoice, now time.Time) {
	switch {
	case inv.BalanceAmount == 0:
		inv.Status = models.InvoiceStatusPaid
		inv.PaidAt = &now
	case inv.PaidAmount > 0 && inv.PaidAmount < inv.TotalAmount:
		inv.Status = models.InvoiceStatusPartialPayment
	}
}

// recomputeAfterReverse restores a sensible status once paid amount drops: a
// reopened invoice goes back to partial_payment, or to sent/overdue when
// nothing remains applied.
func recomputeAfterReverse(inv *models.Invoice, now time.Time) {
	switch {
	case inv.BalanceAmount == 0:
		inv.Status = models.InvoiceStatusPaid
	case inv.PaidAmount > 0:
		inv.Status = models.InvoiceStatusPartialPayment
		inv.PaidAt = nil
	default:
		inv.PaidAt = nil
		if inv.DueDate.Before(now) {
			inv.Status = models.InvoiceStatusOverdue
		} else {
			inv.Status = models.InvoiceStatusSent
		}
	}
}
