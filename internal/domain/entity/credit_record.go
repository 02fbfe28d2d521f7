package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditRecord asiento de crédito de cuenta consumido contra una factura.
// Convención de signo: Amount negativo cuando se consume crédito.
// Inmutable una vez escrito (el libro es append-only).
type CreditRecord struct {
	ID          string
	CustomerID  string
	InvoiceID   string
	Amount      decimal.Decimal // negativo al consumir
	Description string
	CreatedBy   string
	CreatedAt   time.Time
}
