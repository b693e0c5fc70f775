package latefee

import (
	"context"
	"errors"
	"math"
	"time"

	"property-ledger-backend/internal/dates"
	"property-ledger-backend/internal/models"
	"property-ledger-backend/internal/repository"
	"property-ledger-backend/internal/services/application"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store is what the late fee engine needs from the ledger.
type Store interface {
	repository.TxRunner
	ListLateFeeCandidates(ctx context.Context, orgID uuid.UUID) ([]models.Invoice, error)
	ListActiveRules(ctx context.Context, orgID uuid.UUID) ([]models.LateFeeRule, error)
	GetRule(ctx context.Context, id uuid.UUID) (*models.LateFeeRule, error)
}

// Charger is the application-service path that turns a fee into an invoice
// balance increase.
type Charger interface {
	ChargeLateFee(tx repository.Tx, charge application.LateFeeCharge) (*models.Invoice, error)
}

type Engine struct {
	store           Store
	charger         Charger
	collectionAfter int // days overdue before escalation to collection
	log             zerolog.Logger
}

func NewEngine(store Store, charger Charger, collectionAfterDays int, log zerolog.Logger) *Engine {
	return &Engine{
		store:           store,
		charger:         charger,
		collectionAfter: collectionAfterDays,
		log:             log.With().Str("component", "latefee").Logger(),
	}
}

// AmbiguousInvoice flags an invoice whose applicable rules tied on
// specificity. The engine fails closed: no fee is charged until an operator
// picks a rule.
type AmbiguousInvoice struct {
	InvoiceID uuid.UUID   `json:"invoice_id"`
	RuleIDs   []uuid.UUID `json:"rule_ids"`
}

// RunResult reports one evaluation pass.
type RunResult struct {
	Actions   []models.LateFeeAction `json:"actions"`
	Flagged   []AmbiguousInvoice     `json:"flagged"`
	Escalated []uuid.UUID            `json:"escalated"`
}

// Run evaluates every candidate invoice as of the given date. Past-due sent
// and partially paid invoices are pulled into the cycle by marking them
// overdue first. Safe to re-run, concurrently included: the period guard is
// re-checked on the row-locked invoice before any fee is charged, and
// invoices in collection accrue nothing.
func (e *Engine) Run(ctx context.Context, orgID uuid.UUID, asOf time.Time) (*RunResult, error) {
	invoices, err := e.store.ListLateFeeCandidates(ctx, orgID)
	if err != nil {
		return nil, err
	}
	rules, err := e.store.ListActiveRules(ctx, orgID)
	if err != nil {
		return nil, err
	}

	result := &RunResult{}
	for i := range invoices {
		invoice := invoices[i]
		daysOverdue := dates.DaysBetween(invoice.DueDate, asOf)
		if daysOverdue <= 0 {
			continue
		}

		switch invoice.Status {
		case models.InvoiceStatusSent, models.InvoiceStatusPartialPayment:
			if err := e.markOverdue(ctx, invoice.ID); err != nil {
				return nil, err
			}
			invoice.Status = models.InvoiceStatusOverdue
		}

		if daysOverdue >= e.collectionAfter && invoice.LateFeeApplied > 0 {
			if err := e.escalate(ctx, invoice.ID); err != nil {
				return nil, err
			}
			result.Escalated = append(result.Escalated, invoice.ID)
			continue
		}

		// Snapshot pre-filter; execute re-checks on the locked row.
		if !periodOpen(&invoice, asOf) {
			continue
		}

		rule, tied := selectRule(rules, &invoice, daysOverdue)
		if len(tied) > 1 {
			ids := make([]uuid.UUID, len(tied))
			for j, r := range tied {
				ids[j] = r.ID
			}
			e.log.Warn().
				Str("invoice_id", invoice.ID.String()).
				Int("rules", len(tied)).
				Msg("equally specific late fee rules, flagging for manual review")
			result.Flagged = append(result.Flagged, AmbiguousInvoice{InvoiceID: invoice.ID, RuleIDs: ids})
			continue
		}
		if rule == nil {
			continue
		}

		action, err := e.execute(ctx, invoice.ID, rule, asOf)
		if err != nil {
			var validation *application.ValidationError
			if errors.As(err, &validation) {
				e.log.Warn().
					Str("invoice_id", invoice.ID.String()).
					Str("code", validation.Code).
					Msg("skipping invoice in late fee pass")
				continue
			}
			return nil, err
		}
		if action != nil {
			result.Actions = append(result.Actions, *action)
		}
	}

	e.log.Info().
		Int("actions", len(result.Actions)).
		Int("flagged", len(result.Flagged)).
		Int("escalated", len(result.Escalated)).
		Time("as_of", asOf).
		Msg("late fee evaluation completed")
	return result, nil
}

// ApplyAction manually approves a pending fee. The invoice balance is
// re-validated at application time: an invoice settled in the interim fails
// the action instead of charging it.
func (e *Engine) ApplyAction(ctx context.Context, actionID uuid.UUID, asOf time.Time) (*models.LateFeeAction, *models.Invoice, error) {
	var action *models.LateFeeAction
	var invoice *models.Invoice
	err := e.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		action, err = tx.ActionForUpdate(actionID)
		if err != nil {
			return err
		}
		switch action.Status {
		case models.ActionStatusApplied:
			return &application.ValidationError{Code: "ALREADY_APPLIED", Message: "late fee action is already applied"}
		case models.ActionStatusCancelled:
			return &application.ValidationError{Code: "ACTION_CANCELLED", Message: "late fee action was cancelled"}
		case models.ActionStatusFailed:
			return &application.ValidationError{Code: "ACTION_FAILED", Message: "late fee action already failed"}
		}

		rule, err := e.store.GetRule(ctx, action.RuleID)
		if err != nil {
			return err
		}

		current, err := tx.InvoiceForUpdate(action.InvoiceID)
		if err != nil {
			return err
		}
		if current.BalanceAmount <= 0 {
			action.Status = models.ActionStatusFailed
			action.FailureReason = "invoice was settled before the fee was applied"
			action.UpdatedAt = asOf
			return tx.SaveAction(action)
		}

		invoice, err = e.charger.ChargeLateFee(tx, application.LateFeeCharge{
			InvoiceID:   action.InvoiceID,
			Amount:      action.Amount,
			AsOf:        asOf,
			NextFeeDate: NextFeeDate(asOf, rule.RecurringType),
		})
		if err != nil {
			return err
		}

		now := asOf
		action.Status = models.ActionStatusApplied
		action.AppliedAt = &now
		action.UpdatedAt = now
		return tx.SaveAction(action)
	})
	if err != nil {
		return nil, nil, err
	}
	return action, invoice, nil
}

// execute charges or schedules the fee for one invoice in its own
// transaction. The period guard and the fee amount are both re-evaluated on
// the locked row: a concurrent pass may have charged the period, or a payment
// may have shrunk the balance, between the listing and this transaction.
func (e *Engine) execute(ctx context.Context, invoiceID uuid.UUID, rule *models.LateFeeRule, asOf time.Time) (*models.LateFeeAction, error) {
	var action *models.LateFeeAction
	err := e.store.WithinTx(ctx, func(tx repository.Tx) error {
		current, err := tx.InvoiceForUpdate(invoiceID)
		if err != nil {
			return err
		}
		if current.BalanceAmount <= 0 || !periodOpen(current, asOf) {
			return nil
		}
		fee := ComputeFee(rule, current.BalanceAmount)
		if fee <= 0 {
			return nil
		}

		action = &models.LateFeeAction{
			ID:            uuid.New(),
			InvoiceID:     invoiceID,
			RuleID:        rule.ID,
			Amount:        fee,
			ScheduledDate: asOf,
			CreatedAt:     asOf,
			UpdatedAt:     asOf,
		}

		if !rule.AutoApply {
			action.Status = models.ActionStatusPending
			if err := tx.CreateAction(action); err != nil {
				return err
			}
			current.Status = models.InvoiceStatusLateFeePending
			return tx.SaveInvoice(current)
		}

		if _, err := e.charger.ChargeLateFee(tx, application.LateFeeCharge{
			InvoiceID:   invoiceID,
			Amount:      fee,
			AsOf:        asOf,
			NextFeeDate: NextFeeDate(asOf, rule.RecurringType),
		}); err != nil {
			return err
		}
		applied := asOf
		action.Status = models.ActionStatusApplied
		action.AppliedAt = &applied
		return tx.CreateAction(action)
	})
	if err != nil {
		return nil, err
	}
	return action, nil
}

// periodOpen reports whether the invoice can accrue a fee as of the given
// date: not awaiting manual approval, not escalated, and not already charged
// for the current period.
func periodOpen(invoice *models.Invoice, asOf time.Time) bool {
	switch invoice.Status {
	case models.InvoiceStatusLateFeePending, models.InvoiceStatusCollection:
		return false
	case models.InvoiceStatusLateFeeApplied:
		if invoice.NextLateFeeDate == nil {
			return false // one-shot rule already applied
		}
		if asOf.Before(*invoice.NextLateFeeDate) {
			return false // current period already charged
		}
	}
	return true
}

func (e *Engine) markOverdue(ctx context.Context, invoiceID uuid.UUID) error {
	return e.store.WithinTx(ctx, func(tx repository.Tx) error {
		invoice, err := tx.InvoiceForUpdate(invoiceID)
		if err != nil {
			return err
		}
		switch invoice.Status {
		case models.InvoiceStatusSent, models.InvoiceStatusPartialPayment:
			invoice.Status = models.InvoiceStatusOverdue
			return tx.SaveInvoice(invoice)
		}
		return nil
	})
}

func (e *Engine) escalate(ctx context.Context, invoiceID uuid.UUID) error {
	return e.store.WithinTx(ctx, func(tx repository.Tx) error {
		invoice, err := tx.InvoiceForUpdate(invoiceID)
		if err != nil {
			return err
		}
		invoice.Status = models.InvoiceStatusCollection
		invoice.NextLateFeeDate = nil
		return tx.SaveInvoice(invoice)
	})
}

// selectRule picks the most specific rule whose scope matches the invoice
// and whose grace period has elapsed. If several rules tie at the highest
// specificity they are all returned so the caller can fail closed.
func selectRule(rules []models.LateFeeRule, invoice *models.Invoice, daysOverdue int) (*models.LateFeeRule, []models.LateFeeRule) {
	var applicable []models.LateFeeRule
	for _, r := range rules {
		if !scopeMatches(&r, invoice) {
			continue
		}
		if daysOverdue < r.GracePeriodDays {
			continue
		}
		applicable = append(applicable, r)
	}
	if len(applicable) == 0 {
		return nil, nil
	}

	best := -1
	for _, r := range applicable {
		if s := r.Specificity(); s > best {
			best = s
		}
	}
	var tied []models.LateFeeRule
	for _, r := range applicable {
		if r.Specificity() == best {
			tied = append(tied, r)
		}
	}
	if len(tied) == 1 {
		return &tied[0], tied
	}
	return nil, tied
}

func scopeMatches(rule *models.LateFeeRule, invoice *models.Invoice) bool {
	if rule.OrganizationID != invoice.OrganizationID {
		return false
	}
	if rule.EntityID != nil {
		return invoice.EntityID != nil && *rule.EntityID == *invoice.EntityID
	}
	if rule.PropertyType != nil && *rule.PropertyType != "" {
		return invoice.PropertyType == *rule.PropertyType
	}
	return true
}

// ComputeFee evaluates a rule against an outstanding balance. Percentage
// fees are capped by the rule's MaxFeeAmount when set.
func ComputeFee(rule *models.LateFeeRule, balance float64) float64 {
	switch rule.FeeType {
	case models.FeeTypeFixed:
		return rule.FeeAmount
	case models.FeeTypePercentage:
		fee := balance * rule.FeeAmount / 100
		if rule.MaxFeeAmount != nil && fee > *rule.MaxFeeAmount {
			fee = *rule.MaxFeeAmount
		}
		return math.Round(fee*100) / 100
	}
	return 0
}

// NextFeeDate computes when the fee recurs; nil for one-shot rules.
func NextFeeDate(asOf time.Time, recurringType string) *time.Time {
	var next time.Time
	switch recurringType {
	case models.FeeRecurringDaily:
		next = asOf.AddDate(0, 0, 1)
	case models.FeeRecurringWeekly:
		next = asOf.AddDate(0, 0, 7)
	case models.FeeRecurringMonthly:
		next = dates.AddMonthsClamped(asOf, 1)
	default:
		return nil
	}
	return &next
}
