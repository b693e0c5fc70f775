package repository

import (
	"context"

	"property-ledger-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Tx is the transactional surface of the ledger. The ForUpdate getters take
// a row lock, so two transactions mutating the same Payment or Invoice are
// serialized; everything inside one WithinTx callback commits or rolls back
// as a unit.
type Tx interface {
	InvoiceForUpdate(id uuid.UUID) (*models.Invoice, error)
	PaymentForUpdate(id uuid.UUID) (*models.Payment, error)
	ApplicationForUpdate(id uuid.UUID) (*models.PaymentApplication, error)
	ActionForUpdate(id uuid.UUID) (*models.LateFeeAction, error)
	ScheduleForUpdate(id uuid.UUID) (*models.RecurringPaymentSchedule, error)

	SaveInvoice(inv *models.Invoice) error
	SavePayment(p *models.Payment) error
	SaveApplication(app *models.PaymentApplication) error
	SaveAction(a *models.LateFeeAction) error
	SaveSchedule(s *models.RecurringPaymentSchedule) error

	CreatePayment(p *models.Payment) error
	CreateApplication(app *models.PaymentApplication) error
	CreateAction(a *models.LateFeeAction) error
	CreateSystemTransaction(st *models.SystemTransaction) error
}

// TxRunner starts ledger transactions.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Ledger is the GORM-backed store for all engine aggregates.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return l.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&ledgerTx{db: gtx})
	})
}

type ledgerTx struct {
	db *gorm.DB
}

func (t *ledgerTx) InvoiceForUpdate(id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&inv, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (t *ledgerTx) PaymentForUpdate(id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *ledgerTx) ApplicationForUpdate(id uuid.UUID) (*models.PaymentApplication, error) {
	var app models.PaymentApplication
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&app, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (t *ledgerTx) ActionForUpdate(id uuid.UUID) (*models.LateFeeAction, error) {
	var a models.LateFeeAction
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&a, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *ledgerTx) ScheduleForUpdate(id uuid.UUID) (*models.RecurringPaymentSchedule, error) {
	var s models.RecurringPaymentSchedule
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (t *ledgerTx) SaveInvoice(inv *models.Invoice) error {
	return t.db.Save(inv).Error
}

func (t *ledgerTx) SavePayment(p *models.Payment) error {
	return t.db.Save(p).Error
}

func (t *ledgerTx) SaveApplication(app *models.PaymentApplication) error {
	return t.db.Save(app).Error
}

func (t *ledgerTx) SaveAction(a *models.LateFeeAction) error {
	return t.db.Save(a).Error
}

func (t *ledgerTx) SaveSchedule(s *models.RecurringPaymentSchedule) error {
	return t.db.Save(s).Error
}

func (t *ledgerTx) CreatePayment(p *models.Payment) error {
	return t.db.Create(p).Error
}

func (t *ledgerTx) CreateApplication(app *models.PaymentApplication) error {
	return t.db.Create(app).Error
}

func (t *ledgerTx) CreateAction(a *models.LateFeeAction) error {
	return t.db.Create(a).Error
}

func (t *ledgerTx) CreateSystemTransaction(st *models.SystemTransaction) error {
	return t.db.Create(st).Error
}
