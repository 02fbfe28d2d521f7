package scheduler_test

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/cleanpro-portal/internal/application/billing"
	"github.com/tu-usuario/cleanpro-portal/internal/domain"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/entity"
	"github.com/tu-usuario/cleanpro-portal/pkg/logger"
)

// Fakes mínimos para los barridos: solo los métodos que los barridos y el
// Notifier tocan hacen trabajo real; el resto satisface la interfaz.

type sweepInvoiceRepo struct {
	invoices map[string]*entity.Invoice

	// markOverdueErr fuerza el fallo de una factura puntual (falla parcial).
	markOverdueErr map[string]error
	markedOverdue  []string
}

func newSweepInvoiceRepo(invs ...*entity.Invoice) *sweepInvoiceRepo {
	r := &sweepInvoiceRepo{
		invoices:       map[string]*entity.Invoice{},
		markOverdueErr: map[string]error{},
	}
	for _, inv := range invs {
		cp := *inv
		r.invoices[inv.ID] = &cp
	}
	return r
}

func (r *sweepInvoiceRepo) Create(inv *entity.Invoice) error { return nil }

func (r *sweepInvoiceRepo) GetByID(id string) (*entity.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (r *sweepInvoiceRepo) GetByStripeInvoiceID(string) (*entity.Invoice, error) { return nil, nil }
func (r *sweepInvoiceRepo) ListByCustomer(string, int, int) ([]*entity.Invoice, error) {
	return nil, nil
}
func (r *sweepInvoiceRepo) ListByStatus(string, int, int) ([]*entity.Invoice, error) {
	return nil, nil
}

func (r *sweepInvoiceRepo) ListOverdueCandidates(cutoff time.Time) ([]*entity.Invoice, error) {
	var out []*entity.Invoice
	for _, inv := range r.invoices {
		if inv.Status == entity.InvoiceStatusSent && inv.DueDate.Before(cutoff) {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *sweepInvoiceRepo) ListDueOn(day time.Time) ([]*entity.Invoice, error) {
	var out []*entity.Invoice
	y, m, d := day.Date()
	for _, inv := range r.invoices {
		iy, im, id := inv.DueDate.Date()
		if inv.Status == entity.InvoiceStatusSent && iy == y && im == m && id == d {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *sweepInvoiceRepo) MarkPaid(string, string, string, string, time.Time) (bool, error) {
	return false, nil
}
func (r *sweepInvoiceRepo) MarkPaidByStripeInvoiceID(string, string, string, time.Time) (bool, error) {
	return false, nil
}

func (r *sweepInvoiceRepo) MarkOverdue(id string) (bool, error) {
	if err, ok := r.markOverdueErr[id]; ok {
		return false, err
	}
	inv, ok := r.invoices[id]
	if !ok || inv.Status != entity.InvoiceStatusSent {
		return false, nil
	}
	inv.Status = entity.InvoiceStatusOverdue
	r.markedOverdue = append(r.markedOverdue, id)
	return true, nil
}

func (r *sweepInvoiceRepo) UpdateStatus(string, string) error                  { return nil }
func (r *sweepInvoiceRepo) ApplyCredit(*entity.Invoice) error                  { return nil }
func (r *sweepInvoiceRepo) UpdateRefund(string, decimal.Decimal, string) error { return nil }
func (r *sweepInvoiceRepo) SetPaymentIntentID(string, string) error            { return nil }
func (r *sweepInvoiceRepo) NextInvoiceNumber() (string, error)                 { return "INV-0001", nil }

type sweepNotifRepo struct {
	rows []*entity.Notification
	// failFor fuerza el fallo de inserción para un cliente puntual.
	failFor map[string]error
}

func (r *sweepNotifRepo) Create(n *entity.Notification) error {
	if r.failFor != nil {
		if err, ok := r.failFor[n.CustomerID]; ok {
			return err
		}
	}
	cp := *n
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *sweepNotifRepo) ListByCustomer(customerID string, limit, offset int) ([]*entity.Notification, error) {
	return r.rows, nil
}

func (r *sweepNotifRepo) MarkRead(id, customerID string) error { return domain.ErrNotFound }

type sweepAdminRepo struct {
	rows []*entity.AdminNotification
}

func (r *sweepAdminRepo) Create(n *entity.AdminNotification) error {
	cp := *n
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *sweepAdminRepo) List(int, int) ([]*entity.AdminNotification, error) { return r.rows, nil }

type sweepCustomerRepo struct{}

func (sweepCustomerRepo) Create(*entity.Customer) error { return nil }
func (sweepCustomerRepo) GetByID(id string) (*entity.Customer, error) {
	return &entity.Customer{ID: id, Name: "Cliente", Email: id + "@example.com"}, nil
}
func (sweepCustomerRepo) GetByEmail(string) (*entity.Customer, error)       { return nil, nil }
func (sweepCustomerRepo) List(int, int) ([]*entity.Customer, error)         { return nil, nil }
func (sweepCustomerRepo) UpdateStripeCustomerID(string, string) error       { return nil }
func (sweepCustomerRepo) UpdateDefaultPaymentMethod(string, string) error   { return nil }

type sweepMailer struct {
	sent []string // destinatarios
	err  error
}

func (m *sweepMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

type sweepEnv struct {
	invoiceRepo *sweepInvoiceRepo
	notifRepo   *sweepNotifRepo
	adminRepo   *sweepAdminRepo
	mailer      *sweepMailer
	notifier    *billing.Notifier
}

func newSweepEnv(invs ...*entity.Invoice) *sweepEnv {
	env := &sweepEnv{
		invoiceRepo: newSweepInvoiceRepo(invs...),
		notifRepo:   &sweepNotifRepo{failFor: map[string]error{}},
		adminRepo:   &sweepAdminRepo{},
		mailer:      &sweepMailer{},
	}
	env.notifier = billing.NewNotifier(
		env.notifRepo, env.adminRepo, sweepCustomerRepo{},
		env.mailer, logger.Nop(), "https://portal.cleanpro.example",
	)
	return env
}

func sentDue(id, customerID string, dueDate time.Time) *entity.Invoice {
	return &entity.Invoice{
		ID:            id,
		InvoiceNumber: "INV-" + id,
		CustomerID:    customerID,
		Total:         decimal.RequireFromString("120.00"),
		Status:        entity.InvoiceStatusSent,
		DueDate:       dueDate,
	}
}
