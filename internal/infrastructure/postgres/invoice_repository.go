package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/entity"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id, invoice_number, customer_id, subtotal, tax_rate, tax_amount, total,
	refund_amount, refund_reason, status, payment_method, line_items, notes,
	stripe_invoice_id, stripe_payment_intent_id, due_date, paid_date,
	created_by, created_at, updated_at`

// Create persiste la factura con sus líneas embebidas como JSONB.
func (r *InvoiceRepo) Create(inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	items, err := json.Marshal(inv.LineItems)
	if err != nil {
		return fmt.Errorf("serializar line items: %w", err)
	}
	query := `
		INSERT INTO invoices (id, invoice_number, customer_id, subtotal, tax_rate, tax_amount, total,
			refund_amount, status, payment_method, line_items, notes,
			stripe_invoice_id, stripe_payment_intent_id, due_date,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err = r.q.Exec(context.Background(), query,
		inv.ID, inv.InvoiceNumber, nullIfEmpty(inv.CustomerID),
		inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.Total,
		inv.RefundAmount, inv.Status, nullIfEmpty(inv.PaymentMethod), items, nullIfEmpty(inv.Notes),
		nullIfEmpty(inv.StripeInvoiceID), nullIfEmpty(inv.StripePaymentIntentID), inv.DueDate,
		nullIfEmpty(inv.CreatedBy), inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invoice number already exists: %w", err)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var customerID, refundReason, paymentMethod, notes, stripeInvoiceID, stripePaymentIntentID, createdBy *string
	var items []byte
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &customerID,
		&inv.Subtotal, &inv.TaxRate, &inv.TaxAmount, &inv.Total,
		&inv.RefundAmount, &refundReason, &inv.Status, &paymentMethod, &items, &notes,
		&stripeInvoiceID, &stripePaymentIntentID, &inv.DueDate, &inv.PaidDate,
		&createdBy, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.CustomerID = derefStr(customerID)
	inv.RefundReason = derefStr(refundReason)
	inv.PaymentMethod = derefStr(paymentMethod)
	inv.Notes = derefStr(notes)
	inv.StripeInvoiceID = derefStr(stripeInvoiceID)
	inv.StripePaymentIntentID = derefStr(stripePaymentIntentID)
	if len(items) > 0 {
		if err := json.Unmarshal(items, &inv.LineItems); err != nil {
			return nil, fmt.Errorf("deserializar line items: %w", err)
		}
	}
	return &inv, nil
}

// GetByID obtiene una factura por ID. Devuelve (nil, nil) si no existe.
func (r *InvoiceRepo) GetByID(id string) (*entity.Invoice, error) {
	query := `SELECT` + invoiceColumns + ` FROM invoices WHERE id = $1`
	inv, err := scanInvoice(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// GetByStripeInvoiceID resuelve por la llave de cruce con el procesador.
func (r *InvoiceRepo) GetByStripeInvoiceID(stripeInvoiceID string) (*entity.Invoice, error) {
	query := `SELECT` + invoiceColumns + ` FROM invoices WHERE stripe_invoice_id = $1`
	inv, err := scanInvoice(r.q.QueryRow(context.Background(), query, stripeInvoiceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice by stripe id: %w", err)
	}
	return inv, nil
}

func (r *InvoiceRepo) list(query string, args ...any) ([]*entity.Invoice, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var out []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// ListByCustomer facturas del cliente, más recientes primero.
func (r *InvoiceRepo) ListByCustomer(customerID string, limit, offset int) ([]*entity.Invoice, error) {
	query := `SELECT` + invoiceColumns + `
		FROM invoices WHERE customer_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.list(query, customerID, limit, offset)
}

// ListByStatus facturas por estado, más recientes primero.
func (r *InvoiceRepo) ListByStatus(status string, limit, offset int) ([]*entity.Invoice, error) {
	query := `SELECT` + invoiceColumns + `
		FROM invoices WHERE status = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.list(query, status, limit, offset)
}

// ListOverdueCandidates facturas sent con vencimiento anterior al corte.
func (r *InvoiceRepo) ListOverdueCandidates(cutoff time.Time) ([]*entity.Invoice, error) {
	query := `SELECT` + invoiceColumns + `
		FROM invoices WHERE status = 'sent' AND due_date < $1
		ORDER BY due_date`
	return r.list(query, cutoff)
}

// ListDueOn facturas sent que vencen el día indicado.
func (r *InvoiceRepo) ListDueOn(day time.Time) ([]*entity.Invoice, error) {
	query := `SELECT` + invoiceColumns + `
		FROM invoices WHERE status = 'sent' AND due_date::date = $1::date
		ORDER BY invoice_number`
	return r.list(query, day)
}

// MarkPaid transición compare-and-set a paid: condiciona sobre el estado
// esperado para que a lo sumo un request concurrente gane la transición.
func (r *InvoiceRepo) MarkPaid(id, expectedStatus, paymentMethod, paymentIntentID string, paidAt time.Time) (bool, error) {
	query := `
		UPDATE invoices
		SET status = 'paid',
		    paid_date = $3,
		    payment_method = $4,
		    stripe_payment_intent_id = COALESCE($5, stripe_payment_intent_id),
		    updated_at = now()
		WHERE id = $1 AND status = $2`
	ct, err := r.q.Exec(context.Background(), query,
		id, expectedStatus, paidAt, paymentMethod, nullIfEmpty(paymentIntentID))
	if err != nil {
		return false, fmt.Errorf("mark invoice paid: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// MarkPaidByStripeInvoiceID igual que MarkPaid resolviendo por la llave de
// cruce; condiciona sobre "no pagada aún" porque el estado local exacto no se
// conoce por este camino.
func (r *InvoiceRepo) MarkPaidByStripeInvoiceID(stripeInvoiceID, paymentMethod, paymentIntentID string, paidAt time.Time) (bool, error) {
	query := `
		UPDATE invoices
		SET status = 'paid',
		    paid_date = $2,
		    payment_method = $3,
		    stripe_payment_intent_id = COALESCE($4, stripe_payment_intent_id),
		    updated_at = now()
		WHERE stripe_invoice_id = $1 AND status NOT IN ('paid', 'cancelled')`
	ct, err := r.q.Exec(context.Background(), query,
		stripeInvoiceID, paidAt, paymentMethod, nullIfEmpty(paymentIntentID))
	if err != nil {
		return false, fmt.Errorf("mark invoice paid by stripe id: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// MarkOverdue transición compare-and-set sent→overdue.
func (r *InvoiceRepo) MarkOverdue(id string) (bool, error) {
	query := `
		UPDATE invoices SET status = 'overdue', updated_at = now()
		WHERE id = $1 AND status = 'sent'`
	ct, err := r.q.Exec(context.Background(), query, id)
	if err != nil {
		return false, fmt.Errorf("mark invoice overdue: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// UpdateStatus escribe el estado sin condición (cancelación tras guard).
func (r *InvoiceRepo) UpdateStatus(id, status string) error {
	query := `UPDATE invoices SET status = $2, updated_at = now() WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query, id, status)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	return nil
}

// ApplyCredit persiste el resultado de una aplicación de crédito: total
// restante, estado, paid_date, payment_method y notas anexadas.
func (r *InvoiceRepo) ApplyCredit(inv *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET total = $2,
		    status = $3,
		    paid_date = $4,
		    payment_method = COALESCE($5, payment_method),
		    notes = $6,
		    updated_at = now()
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query,
		inv.ID, inv.Total, inv.Status, inv.PaidDate,
		nullIfEmpty(inv.PaymentMethod), nullIfEmpty(inv.Notes))
	if err != nil {
		return fmt.Errorf("apply credit to invoice: %w", err)
	}
	return nil
}

// UpdateRefund fija el acumulado reembolsado y el motivo; el estado no cambia.
func (r *InvoiceRepo) UpdateRefund(id string, refundAmount decimal.Decimal, reason string) error {
	query := `
		UPDATE invoices
		SET refund_amount = $2,
		    refund_reason = COALESCE($3, refund_reason),
		    updated_at = now()
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query, id, refundAmount, nullIfEmpty(reason))
	if err != nil {
		return fmt.Errorf("update invoice refund: %w", err)
	}
	return nil
}

// SetPaymentIntentID persiste la referencia de cobro del procesador.
func (r *InvoiceRepo) SetPaymentIntentID(id, paymentIntentID string) error {
	query := `UPDATE invoices SET stripe_payment_intent_id = $2, updated_at = now() WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query, id, paymentIntentID)
	if err != nil {
		return fmt.Errorf("set payment intent id: %w", err)
	}
	return nil
}

// NextInvoiceNumber reserva el siguiente consecutivo desde la secuencia.
func (r *InvoiceRepo) NextInvoiceNumber() (string, error) {
	var n int64
	err := r.q.QueryRow(context.Background(), `SELECT nextval('invoice_number_seq')`).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("next invoice number: %w", err)
	}
	return fmt.Sprintf("INV-%04d", n), nil
}
