package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/entity"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/repository"
)

var _ repository.CreditRecordRepository = (*CreditRecordRepo)(nil)

// CreditRecordRepo implementación del libro de créditos (append-only).
type CreditRecordRepo struct {
	q Querier
}

// NewCreditRecordRepository construye el adaptador.
func NewCreditRecordRepository(q Querier) *CreditRecordRepo {
	return &CreditRecordRepo{q: q}
}

// Create inserta el asiento. No existen Update ni Delete a propósito.
func (r *CreditRecordRepo) Create(rec *entity.CreditRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	query := `
		INSERT INTO credit_records (id, customer_id, invoice_id, amount, description, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(context.Background(), query,
		rec.ID, rec.CustomerID, rec.InvoiceID, rec.Amount,
		rec.Description, nullIfEmpty(rec.CreatedBy), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert credit record: %w", err)
	}
	return nil
}

const creditColumns = `id, customer_id, invoice_id, amount, description, created_by, created_at`

func (r *CreditRecordRepo) listQuery(query string, args ...any) ([]*entity.CreditRecord, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list credit records: %w", err)
	}
	defer rows.Close()
	var out []*entity.CreditRecord
	for rows.Next() {
		var rec entity.CreditRecord
		var createdBy *string
		if err := rows.Scan(&rec.ID, &rec.CustomerID, &rec.InvoiceID, &rec.Amount,
			&rec.Description, &createdBy, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan credit record: %w", err)
		}
		rec.CreatedBy = derefStr(createdBy)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// ListByInvoice asientos de una factura en orden de inserción.
func (r *CreditRecordRepo) ListByInvoice(invoiceID string) ([]*entity.CreditRecord, error) {
	query := `SELECT ` + creditColumns + ` FROM credit_records WHERE invoice_id = $1 ORDER BY created_at`
	return r.listQuery(query, invoiceID)
}

// ListByCustomer asientos del cliente, más recientes primero.
func (r *CreditRecordRepo) ListByCustomer(customerID string, limit, offset int) ([]*entity.CreditRecord, error) {
	query := `SELECT ` + creditColumns + ` FROM credit_records
		WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.listQuery(query, customerID, limit, offset)
}
