package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"property-ledger-backend/internal/models"
	"property-ledger-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memStore is an in-memory ledger standing in for the GORM store.
type memStore struct {
	invoices     map[uuid.UUID]*models.Invoice
	payments     map[uuid.UUID]*models.Payment
	applications map[uuid.UUID]*models.PaymentApplication
	actions      map[uuid.UUID]*models.LateFeeAction
	schedules    map[uuid.UUID]*models.RecurringPaymentSchedule
	systemTxs    []*models.SystemTransaction
}

func newMemStore() *memStore {
	return &memStore{
		invoices:     map[uuid.UUID]*models.Invoice{},
		payments:     map[uuid.UUID]*models.Payment{},
		applications: map[uuid.UUID]*models.PaymentApplication{},
		actions:      map[uuid.UUID]*models.LateFeeAction{},
		schedules:    map[uuid.UUID]*models.RecurringPaymentSchedule{},
	}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return fn(&memTx{store: m})
}

func (m *memStore) ListUnappliedPayments(ctx context.Context, orgID uuid.UUID) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range m.payments {
		if p.Status == models.PaymentStatusCompleted && p.AvailableAmount() > 0 &&
			(orgID == uuid.Nil || p.OrganizationID == orgID) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) ListOpenInvoices(ctx context.Context, orgID uuid.UUID) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, inv := range m.invoices {
		if inv.Outstanding() && (orgID == uuid.Nil || inv.OrganizationID == orgID) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

type memTx struct {
	store *memStore
}

func (t *memTx) InvoiceForUpdate(id uuid.UUID) (*models.Invoice, error) {
	inv, ok := t.store.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *inv
	return &cp, nil
}

func (t *memTx) PaymentForUpdate(id uuid.UUID) (*models.Payment, error) {
	p, ok := t.store.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (t *memTx) ApplicationForUpdate(id uuid.UUID) (*models.PaymentApplication, error) {
	a, ok := t.store.applications[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (t *memTx) ActionForUpdate(id uuid.UUID) (*models.LateFeeAction, error) {
	a, ok := t.store.actions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (t *memTx) ScheduleForUpdate(id uuid.UUID) (*models.RecurringPaymentSchedule, error) {
	s, ok := t.store.schedules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (t *memTx) SaveInvoice(inv *models.Invoice) error {
	cp := *inv
	t.store.invoices[inv.ID] = &cp
	return nil
}

func (t *memTx) SavePayment(p *models.Payment) error {
	cp := *p
	t.store.payments[p.ID] = &cp
	return nil
}

func (t *memTx) SaveApplication(a *models.PaymentApplication) error {
	cp := *a
	t.store.applications[a.ID] = &cp
	return nil
}

func (t *memTx) SaveAction(a *models.LateFeeAction) error {
	cp := *a
	t.store.actions[a.ID] = &cp
	return nil
}

func (t *memTx) SaveSchedule(s *models.RecurringPaymentSchedule) error {
	cp := *s
	t.store.schedules[s.ID] = &cp
	return nil
}

func (t *memTx) CreatePayment(p *models.Payment) error       { return t.SavePayment(p) }
func (t *memTx) CreateApplication(a *models.PaymentApplication) error { return t.SaveApplication(a) }
func (t *memTx) CreateAction(a *models.LateFeeAction) error  { return t.SaveAction(a) }

func (t *memTx) CreateSystemTransaction(st *models.SystemTransaction) error {
	cp := *st
	t.store.systemTxs = append(t.store.systemTxs, &cp)
	return nil
}

func seedInvoice(store *memStore, total, paid float64, status string) *models.Invoice {
	inv := &models.Invoice{
		ID:            uuid.New(),
		CustomerID:    uuid.New(),
		TotalAmount:   total,
		PaidAmount:    paid,
		BalanceAmount: total - paid,
		Status:        status,
		DueDate:       time.Now().AddDate(0, 0, 14),
	}
	store.invoices[inv.ID] = inv
	return inv
}

func seedPayment(store *memStore, amount, applied float64) *models.Payment {
	p := &models.Payment{
		ID:            uuid.New(),
		CustomerID:    uuid.New(),
		Amount:        amount,
		AppliedAmount: applied,
		Status:        models.PaymentStatusCompleted,
		ReceivedDate:  time.Now(),
	}
	store.payments[p.ID] = p
	return p
}

func TestApply_FullPayment(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, zerolog.Nop())

	inv := seedInvoice(store, 1200, 0, models.InvoiceStatusSent)
	pay := seedPayment(store, 1200, 0)

	app, err := svc.Apply(context.Background(), pay.ID, inv.ID, 1200)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, app.AppliedAmount)

	gotInv := store.invoices[inv.ID]
	gotPay := store.payments[pay.ID]
	assert.Equal(t, models.InvoiceStatusPaid, gotInv.Status)
	assert.Equal(t, 0.0, gotInv.BalanceAmount)
	assert.Equal(t, 1200.0, gotInv.PaidAmount)
	assert.Equal(t, 0.0, gotPay.AvailableAmount())
}

func TestApply_PartialBalanceSettled(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, zerolog.Nop())

	inv := seedInvoice(store, 950, 500, models.InvoiceStatusPartialPayment)
	pay := seedPayment(store, 500, 0)

	_, err := svc.Apply(context.Background(), pay.ID, inv.ID, 450)
	require.NoError(t, err)

	gotInv := store.invoices[inv.ID]
	gotPay := store.payments[pay.ID]
	assert.Equal(t, models.InvoiceStatusPaid, gotInv.Status)
	assert.Equal(t, 0.0, gotInv.BalanceAmount)
	assert.Equal(t, 50.0, gotPay.AvailableAmount())
}

func TestApply_PartialPayment(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, zerolog.Nop())

	inv := seedInvoice(store, 1000, 0, models.InvoiceStatusSent)
	pay := seedPayment(store, 400, 0)

	_, err := svc.Apply(context.Background(), pay.ID, inv.ID, 400)
	require.NoError(t, err)

	gotInv := store.invoices[inv.ID]
	assert.Equal(t, models.InvoiceStatusPartialPayment, gotInv.Status)
	assert.Equal(t, 600.0, gotInv.BalanceAmount)
	assert.Equal(t, 400.0, gotInv.PaidAmount)
}

func TestApply_ConservationErrors(t *testing.T) {
	tests := []struct {
		name     string
		total    float64
		payment  float64
		amount   float64
		wantCode string
	}{
		{"insufficient funds", 2000, 100, 500, CodeInsufficientFunds},
		{"over application", 300, 1000, 500, CodeOverApplication},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			svc := NewService(store, zerolog.Nop())
			inv := seedInvoice(store, tt.total, 0, models.InvoiceStatusSent)
			pay := seedPayment(store, tt.payment, 0)

			_, err := svc.Apply(context.Background(), pay.ID, inv.ID, tt.amount)
			var conservation *ConservationError
			require.ErrorAs(t, err, &conservation)
			assert.Equal(t, tt.wantCode, conservation.Code)
			assert.Equal(t, tt.amount, conservation.Requested)

			// Nothing mutated.
			assert.Equal(t, 0.0, store.invoices[inv.ID].PaidAmount)
			assert.Equal(t, 0.0, store.payments[pay.ID].AppliedAmount)
		})
	}
}

func TestApply_AmountNotPositive(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, zerolog.Nop())

	for _, amount := range []float64{0, -50} {
		_, err := svc.Apply(context.Background(), uuid.New(), uuid.New(), amount)
		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, CodeAmountNotPositive, validation.Code)
	}
}

func TestReverse_RoundTrip(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, zerolog.Nop())

	inv := seedInvoice(store, 1000, 200, models.InvoiceStatusPartialPayment)
	pay := seedPayment(store, 600, 0)
	before := *store.invoices[inv.ID]
	beforePay := *store.payments[pay.ID]

	app, err := svc.Apply(context.Background(), pay.ID, inv.ID, 300)
	require.NoError(t, err)

	result, err := svc.Reverse(context.Background(), app.ID, "entered in error")
	require.NoError(t, err)

	assert.Equal(t, before.PaidAmount, result.Invoice.PaidAmount)
	assert.Equal(t, before.BalanceAmount, result.Invoice.BalanceAmount)
	assert.Equal(t, before.Status, result.Invoice.Status)
	assert.Equal(t, beforePay.AppliedAmount, result.Payment.AppliedAmount)

	reversed := store.applications[app.ID]
	require.NotNil(t, reversed.ReversedAt)
	assert.Equal(t, "entered in error", reversed.ReversalReason)
}

func TestReverse_AlreadyReversed(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, zerolog.Nop())

	inv := seedInvoice(store, 1000, 0, models.InvoiceStatusSent)
	pay := seedPayment(store, 500, 0)

	app, err := svc.Apply(context.Background(), pay.ID, inv.ID, 500)
	require.NoError(t, err)

	_, err = svc.Reverse(context.Background(), app.ID, "")
	require.NoError(t, err)

	_, err = svc.Reverse(context.Background(), app.ID, "")
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "ALREADY_REVERSED", validation.Code)

	// Amounts restored exactly once.
	assert.Equal(t, 0.0, store.invoices[inv.ID].PaidAmount)
	assert.Equal(t, 0.0, store.payments[pay.ID].AppliedAmount)
}

func TestReverse_CannotMakePaidNegative(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, zerolog.Nop())

	inv := seedInvoice(store, 1000, 0, models.InvoiceStatusSent)
	pay := seedPayment(store, 500, 0)
	app, err := svc.Apply(context.Background(), pay.ID, inv.ID, 500)
	require.NoError(t, err)

	// Simulate an out-of-band adjustment that shrank the paid amount.
	store.invoices[inv.ID].PaidAmount = 100
	store.invoices[inv.ID].BalanceAmount = 900

	_, err = svc.Reverse(context.Background(), app.ID, "")
	var conservation *ConservationError
	require.ErrorAs(t, err, &conservation)
	assert.Equal(t, CodeCannotReverse, conservation.Code)
}

func TestRecordDeposit(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, zerolog.Nop())

	p1 := seedPayment(store, 300, 0)
	p2 := seedPayment(store, 450, 0)
	bankAccount := uuid.New()
	date := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("amount mismatch rejects everything", func(t *testing.T) {
		_, err := svc.RecordDeposit(context.Background(), []uuid.UUID{p1.ID, p2.ID}, bankAccount, date, 700)
		var conservation *ConservationError
		require.ErrorAs(t, err, &conservation)
		assert.Equal(t, CodeDepositAmountMismatch, conservation.Code)
		assert.Equal(t, 750.0, conservation.Available)
		assert.False(t, store.payments[p1.ID].IsDeposited)
		assert.False(t, store.payments[p2.ID].IsDeposited)
	})

	t.Run("exact amount deposits all", func(t *testing.T) {
		deposited, err := svc.RecordDeposit(context.Background(), []uuid.UUID{p1.ID, p2.ID}, bankAccount, date, 750)
		require.NoError(t, err)
		require.Len(t, deposited, 2)
		for _, id := range []uuid.UUID{p1.ID, p2.ID} {
			got := store.payments[id]
			assert.True(t, got.IsDeposited)
			require.NotNil(t, got.DepositDate)
			assert.True(t, got.DepositDate.Equal(date))
		}
	})

	t.Run("already deposited payment rejected", func(t *testing.T) {
		_, err := svc.RecordDeposit(context.Background(), []uuid.UUID{p1.ID}, bankAccount, date, 300)
		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, "ALREADY_DEPOSITED", validation.Code)
	})
}

func TestAutoApply(t *testing.T) {
	t.Run("single candidate is applied with min amount", func(t *testing.T) {
		store := newMemStore()
		svc := NewService(store, zerolog.Nop())

		customer := uuid.New()
		inv := seedInvoice(store, 800, 0, models.InvoiceStatusSent)
		inv.CustomerID = customer
		pay := seedPayment(store, 500, 0)
		pay.CustomerID = customer

		result, err := svc.AutoApply(context.Background(), uuid.Nil)
		require.NoError(t, err)
		require.Len(t, result.Applications, 1)
		assert.Equal(t, 500.0, result.Applications[0].AppliedAmount)
		assert.Equal(t, 300.0, store.invoices[inv.ID].BalanceAmount)
	})

	t.Run("multiple candidate invoices are not auto-applied", func(t *testing.T) {
		store := newMemStore()
		svc := NewService(store, zerolog.Nop())

		customer := uuid.New()
		seedInvoice(store, 800, 0, models.InvoiceStatusSent).CustomerID = customer
		seedInvoice(store, 800, 0, models.InvoiceStatusSent).CustomerID = customer
		pay := seedPayment(store, 500, 0)
		pay.CustomerID = customer

		result, err := svc.AutoApply(context.Background(), uuid.Nil)
		require.NoError(t, err)
		assert.Empty(t, result.Applications)
		require.Len(t, result.Skipped, 1)
		assert.Equal(t, pay.ID, result.Skipped[0].PaymentID)
		assert.Len(t, result.Skipped[0].CandidateInvoices, 2)
	})

	t.Run("invoice claimed by two payments is not auto-applied", func(t *testing.T) {
		store := newMemStore()
		svc := NewService(store, zerolog.Nop())

		customer := uuid.New()
		inv := seedInvoice(store, 800, 0, models.InvoiceStatusSent)
		inv.CustomerID = customer
		seedPayment(store, 500, 0).CustomerID = customer
		seedPayment(store, 300, 0).CustomerID = customer

		result, err := svc.AutoApply(context.Background(), uuid.Nil)
		require.NoError(t, err)
		assert.Empty(t, result.Applications)
		assert.Len(t, result.Skipped, 2)
		assert.Equal(t, 0.0, store.invoices[inv.ID].PaidAmount)
	})
}

func TestChargeLateFee(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, zerolog.Nop())

	inv := seedInvoice(store, 1000, 400, models.InvoiceStatusOverdue)
	next := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	asOf := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	err := store.WithinTx(context.Background(), func(tx repository.Tx) error {
		_, err := svc.ChargeLateFee(tx, LateFeeCharge{
			InvoiceID:   inv.ID,
			Amount:      75,
			AsOf:        asOf,
			NextFeeDate: &next,
		})
		return err
	})
	require.NoError(t, err)

	got := store.invoices[inv.ID]
	assert.Equal(t, 1075.0, got.TotalAmount)
	assert.Equal(t, 675.0, got.BalanceAmount)
	assert.Equal(t, 75.0, got.LateFeeApplied)
	assert.Equal(t, models.InvoiceStatusLateFeeApplied, got.Status)
	require.NotNil(t, got.NextLateFeeDate)
	assert.True(t, got.NextLateFeeDate.Equal(next))
}

func TestChargeLateFee_SettledInvoiceRejected(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, zerolog.Nop())

	inv := seedInvoice(store, 1000, 1000, models.InvoiceStatusPaid)

	err := store.WithinTx(context.Background(), func(tx repository.Tx) error {
		_, err := svc.ChargeLateFee(tx, LateFeeCharge{InvoiceID: inv.ID, Amount: 75, AsOf: time.Now()})
		return err
	})
	var validation *ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "INVOICE_SETTLED", validation.Code)
}
