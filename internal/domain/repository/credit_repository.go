package repository

import "github.com/tu-usuario/cleanpro-portal/internal/domain/entity"

// CreditRecordRepository define el puerto del libro de créditos (append-only).
// No hay Update ni Delete: un asiento escrito es inmutable.
type CreditRecordRepository interface {
	Create(record *entity.CreditRecord) error
	ListByInvoice(invoiceID string) ([]*entity.CreditRecord, error)
	ListByCustomer(customerID string, limit, offset int) ([]*entity.CreditRecord, error)
}
