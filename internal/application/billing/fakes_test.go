package billing_test

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/cleanpro-portal/internal/application/billing"
	"github.com/tu-usuario/cleanpro-portal/internal/domain"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/entity"
	"github.com/tu-usuario/cleanpro-portal/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria de los puertos de persistencia y del procesador de pagos.
// GetByID devuelve copias: el estado del fake solo cambia por sus métodos de
// escritura, igual que una fila de Postgres.
// ──────────────────────────────────────────────────────────────────────────────

func cloneInvoice(inv *entity.Invoice) *entity.Invoice {
	if inv == nil {
		return nil
	}
	cp := *inv
	if inv.PaidDate != nil {
		d := *inv.PaidDate
		cp.PaidDate = &d
	}
	cp.LineItems = append([]entity.LineItem(nil), inv.LineItems...)
	return &cp
}

type fakeInvoiceRepo struct {
	invoices map[string]*entity.Invoice
	seq      int

	// forceLoseMarkPaid simula que otro request ganó la transición CAS.
	forceLoseMarkPaid bool
	markPaidCalls     int
	setIntentCalls    []string
}

func newFakeInvoiceRepo(invs ...*entity.Invoice) *fakeInvoiceRepo {
	r := &fakeInvoiceRepo{invoices: map[string]*entity.Invoice{}}
	for _, inv := range invs {
		r.invoices[inv.ID] = cloneInvoice(inv)
	}
	return r
}

func (r *fakeInvoiceRepo) Create(inv *entity.Invoice) error {
	r.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (r *fakeInvoiceRepo) GetByID(id string) (*entity.Invoice, error) {
	return cloneInvoice(r.invoices[id]), nil
}

func (r *fakeInvoiceRepo) GetByStripeInvoiceID(stripeInvoiceID string) (*entity.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.StripeInvoiceID == stripeInvoiceID {
			return cloneInvoice(inv), nil
		}
	}
	return nil, nil
}

func (r *fakeInvoiceRepo) ListByCustomer(customerID string, limit, offset int) ([]*entity.Invoice, error) {
	var out []*entity.Invoice
	for _, inv := range r.invoices {
		if inv.CustomerID == customerID {
			out = append(out, cloneInvoice(inv))
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) ListByStatus(status string, limit, offset int) ([]*entity.Invoice, error) {
	var out []*entity.Invoice
	for _, inv := range r.invoices {
		if inv.Status == status {
			out = append(out, cloneInvoice(inv))
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) ListOverdueCandidates(cutoff time.Time) ([]*entity.Invoice, error) {
	var out []*entity.Invoice
	for _, inv := range r.invoices {
		if inv.Status == entity.InvoiceStatusSent && inv.DueDate.Before(cutoff) {
			out = append(out, cloneInvoice(inv))
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) ListDueOn(day time.Time) ([]*entity.Invoice, error) {
	var out []*entity.Invoice
	y, m, d := day.Date()
	for _, inv := range r.invoices {
		iy, im, id := inv.DueDate.Date()
		if inv.Status == entity.InvoiceStatusSent && iy == y && im == m && id == d {
			out = append(out, cloneInvoice(inv))
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) MarkPaid(id, expectedStatus, paymentMethod, paymentIntentID string, paidAt time.Time) (bool, error) {
	r.markPaidCalls++
	if r.forceLoseMarkPaid {
		return false, nil
	}
	inv, ok := r.invoices[id]
	if !ok || inv.Status != expectedStatus {
		return false, nil
	}
	inv.Status = entity.InvoiceStatusPaid
	inv.PaymentMethod = paymentMethod
	if paymentIntentID != "" {
		inv.StripePaymentIntentID = paymentIntentID
	}
	inv.PaidDate = &paidAt
	return true, nil
}

func (r *fakeInvoiceRepo) MarkPaidByStripeInvoiceID(stripeInvoiceID, paymentMethod, paymentIntentID string, paidAt time.Time) (bool, error) {
	for _, inv := range r.invoices {
		if inv.StripeInvoiceID != stripeInvoiceID {
			continue
		}
		if inv.Status == entity.InvoiceStatusPaid || inv.Status == entity.InvoiceStatusCancelled {
			return false, nil
		}
		inv.Status = entity.InvoiceStatusPaid
		inv.PaymentMethod = paymentMethod
		if paymentIntentID != "" {
			inv.StripePaymentIntentID = paymentIntentID
		}
		inv.PaidDate = &paidAt
		return true, nil
	}
	return false, nil
}

func (r *fakeInvoiceRepo) MarkOverdue(id string) (bool, error) {
	inv, ok := r.invoices[id]
	if !ok || inv.Status != entity.InvoiceStatusSent {
		return false, nil
	}
	inv.Status = entity.InvoiceStatusOverdue
	return true, nil
}

func (r *fakeInvoiceRepo) UpdateStatus(id, status string) error {
	inv, ok := r.invoices[id]
	if !ok {
		return domain.ErrNotFound
	}
	inv.Status = status
	return nil
}

func (r *fakeInvoiceRepo) ApplyCredit(inv *entity.Invoice) error {
	stored, ok := r.invoices[inv.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.Total = inv.Total
	stored.Status = inv.Status
	stored.PaymentMethod = inv.PaymentMethod
	stored.Notes = inv.Notes
	if inv.PaidDate != nil {
		d := *inv.PaidDate
		stored.PaidDate = &d
	}
	return nil
}

func (r *fakeInvoiceRepo) UpdateRefund(id string, refundAmount decimal.Decimal, reason string) error {
	inv, ok := r.invoices[id]
	if !ok {
		return domain.ErrNotFound
	}
	inv.RefundAmount = refundAmount
	inv.RefundReason = reason
	return nil
}

func (r *fakeInvoiceRepo) SetPaymentIntentID(id, paymentIntentID string) error {
	inv, ok := r.invoices[id]
	if !ok {
		return domain.ErrNotFound
	}
	inv.StripePaymentIntentID = paymentIntentID
	r.setIntentCalls = append(r.setIntentCalls, paymentIntentID)
	return nil
}

func (r *fakeInvoiceRepo) NextInvoiceNumber() (string, error) {
	r.seq++
	return fmt.Sprintf("INV-%04d", r.seq), nil
}

type fakeCustomerRepo struct {
	customers map[string]*entity.Customer

	savedStripeIDs      map[string]string
	savedPaymentMethods map[string]string
}

func newFakeCustomerRepo(cs ...*entity.Customer) *fakeCustomerRepo {
	r := &fakeCustomerRepo{
		customers:           map[string]*entity.Customer{},
		savedStripeIDs:      map[string]string{},
		savedPaymentMethods: map[string]string{},
	}
	for _, c := range cs {
		cp := *c
		r.customers[c.ID] = &cp
	}
	return r
}

func (r *fakeCustomerRepo) Create(c *entity.Customer) error {
	cp := *c
	r.customers[c.ID] = &cp
	return nil
}

func (r *fakeCustomerRepo) GetByID(id string) (*entity.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCustomerRepo) GetByEmail(email string) (*entity.Customer, error) {
	for _, c := range r.customers {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) List(limit, offset int) ([]*entity.Customer, error) {
	var out []*entity.Customer
	for _, c := range r.customers {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeCustomerRepo) UpdateStripeCustomerID(id, stripeCustomerID string) error {
	if c, ok := r.customers[id]; ok {
		c.StripeCustomerID = stripeCustomerID
	}
	r.savedStripeIDs[id] = stripeCustomerID
	return nil
}

func (r *fakeCustomerRepo) UpdateDefaultPaymentMethod(id, paymentMethodID string) error {
	if c, ok := r.customers[id]; ok {
		c.DefaultPaymentMethodID = paymentMethodID
	}
	r.savedPaymentMethods[id] = paymentMethodID
	return nil
}

type fakeCreditRepo struct {
	records   []*entity.CreditRecord
	createErr error
}

func (r *fakeCreditRepo) Create(rec *entity.CreditRecord) error {
	if r.createErr != nil {
		return r.createErr
	}
	cp := *rec
	r.records = append(r.records, &cp)
	return nil
}

func (r *fakeCreditRepo) ListByInvoice(invoiceID string) ([]*entity.CreditRecord, error) {
	var out []*entity.CreditRecord
	for _, rec := range r.records {
		if rec.InvoiceID == invoiceID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeCreditRepo) ListByCustomer(customerID string, limit, offset int) ([]*entity.CreditRecord, error) {
	var out []*entity.CreditRecord
	for _, rec := range r.records {
		if rec.CustomerID == customerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeNotificationRepo struct {
	rows      []*entity.Notification
	createErr error
}

func (r *fakeNotificationRepo) Create(n *entity.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	cp := *n
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *fakeNotificationRepo) ListByCustomer(customerID string, limit, offset int) ([]*entity.Notification, error) {
	var out []*entity.Notification
	for _, n := range r.rows {
		if n.CustomerID == customerID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(id, customerID string) error {
	for _, n := range r.rows {
		if n.ID == id && n.CustomerID == customerID {
			n.Read = true
			return nil
		}
	}
	return domain.ErrNotFound
}

type fakeAdminNotificationRepo struct {
	rows []*entity.AdminNotification
}

func (r *fakeAdminNotificationRepo) Create(n *entity.AdminNotification) error {
	cp := *n
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *fakeAdminNotificationRepo) List(limit, offset int) ([]*entity.AdminNotification, error) {
	return r.rows, nil
}

type sentMail struct {
	To      string
	Subject string
}

type fakeMailer struct {
	sent    []sentMail
	sendErr error
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject})
	return nil
}

// fakeGateway registra cada llamada al procesador para poder afirmar sobre
// montos cobrados y ausencia de llamadas.
type fakeGateway struct {
	intentStatus string // estado a devolver en CreatePaymentIntent (succeeded por defecto)
	intentErr    error
	intentCalls  []billing.PaymentIntentParams

	customers       map[string]*billing.GatewayCustomer
	createdCustomer *billing.GatewayCustomer
	paymentMethods  map[string]*billing.GatewayPaymentMethod

	hostedInvoices map[string]*billing.HostedInvoice
	payInvoiceErr  error
	payCalls       int
	voidCalls      []string
	attachCalls    int

	refundErr   error
	refundCalls []billing.RefundParams

	intents map[string]*billing.PaymentIntentResult
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		intentStatus:   billing.IntentStatusSucceeded,
		customers:      map[string]*billing.GatewayCustomer{},
		paymentMethods: map[string]*billing.GatewayPaymentMethod{},
		hostedInvoices: map[string]*billing.HostedInvoice{},
		intents:        map[string]*billing.PaymentIntentResult{},
	}
}

func (g *fakeGateway) RetrieveCustomer(ctx context.Context, id string) (*billing.GatewayCustomer, error) {
	c, ok := g.customers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (g *fakeGateway) CreateCustomer(ctx context.Context, params billing.CustomerParams) (*billing.GatewayCustomer, error) {
	c := &billing.GatewayCustomer{ID: "cus_new", Email: params.Email}
	if g.createdCustomer != nil {
		c = g.createdCustomer
	}
	g.customers[c.ID] = c
	return c, nil
}

func (g *fakeGateway) CreatePaymentIntent(ctx context.Context, params billing.PaymentIntentParams) (*billing.PaymentIntentResult, error) {
	g.intentCalls = append(g.intentCalls, params)
	if g.intentErr != nil {
		return nil, g.intentErr
	}
	return &billing.PaymentIntentResult{
		ID:           fmt.Sprintf("pi_%d", len(g.intentCalls)),
		Status:       g.intentStatus,
		ClientSecret: "cs_test_secret",
	}, nil
}

func (g *fakeGateway) RetrievePaymentIntent(ctx context.Context, id string) (*billing.PaymentIntentResult, error) {
	if pi, ok := g.intents[id]; ok {
		return pi, nil
	}
	return &billing.PaymentIntentResult{ID: id, Status: billing.IntentStatusRequiresAction, ClientSecret: "cs_test_secret"}, nil
}

func (g *fakeGateway) RetrieveInvoice(ctx context.Context, id string) (*billing.HostedInvoice, error) {
	in, ok := g.hostedInvoices[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return in, nil
}

func (g *fakeGateway) PayInvoice(ctx context.Context, id, paymentMethodID string) (*billing.HostedInvoice, error) {
	g.payCalls++
	if g.payInvoiceErr != nil {
		return nil, g.payInvoiceErr
	}
	in, ok := g.hostedInvoices[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	paid := *in
	paid.Status = "paid"
	if paid.PaymentIntentID == "" {
		paid.PaymentIntentID = "pi_hosted"
	}
	return &paid, nil
}

func (g *fakeGateway) VoidInvoice(ctx context.Context, id string) error {
	g.voidCalls = append(g.voidCalls, id)
	return nil
}

func (g *fakeGateway) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error {
	g.attachCalls++
	return nil
}

func (g *fakeGateway) RetrievePaymentMethod(ctx context.Context, id string) (*billing.GatewayPaymentMethod, error) {
	pm, ok := g.paymentMethods[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return pm, nil
}

func (g *fakeGateway) CreateRefund(ctx context.Context, params billing.RefundParams) (*billing.RefundResult, error) {
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refundCalls = append(g.refundCalls, params)
	return &billing.RefundResult{ID: "re_test", Status: "succeeded"}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

type testEnv struct {
	invoiceRepo  *fakeInvoiceRepo
	customerRepo *fakeCustomerRepo
	creditRepo   *fakeCreditRepo
	notifRepo    *fakeNotificationRepo
	adminRepo    *fakeAdminNotificationRepo
	mailer       *fakeMailer
	gateway      *fakeGateway
	notifier     *billing.Notifier
}

func newTestEnv(invs ...*entity.Invoice) *testEnv {
	env := &testEnv{
		invoiceRepo: newFakeInvoiceRepo(invs...),
		customerRepo: newFakeCustomerRepo(&entity.Customer{
			ID:    "cust-1",
			Name:  "Maria Lopez",
			Email: "maria@example.com",
		}),
		creditRepo: &fakeCreditRepo{},
		notifRepo:  &fakeNotificationRepo{},
		adminRepo:  &fakeAdminNotificationRepo{},
		mailer:     &fakeMailer{},
		gateway:    newFakeGateway(),
	}
	env.notifier = billing.NewNotifier(
		env.notifRepo, env.adminRepo, env.customerRepo,
		env.mailer, logger.Nop(), "https://portal.cleanpro.example",
	)
	return env
}

func sentInvoice(total string) *entity.Invoice {
	t := decimal.RequireFromString(total)
	return &entity.Invoice{
		ID:            "inv-1",
		InvoiceNumber: "INV-1042",
		CustomerID:    "cust-1",
		Subtotal:      t,
		Total:         t,
		Status:        entity.InvoiceStatusSent,
		DueDate:       time.Now().AddDate(0, 0, 14),
		CreatedAt:     time.Now(),
	}
}
