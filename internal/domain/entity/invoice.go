package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de una factura.
// draft -> sent -> {paid, cancelled}; sent -> overdue -> {paid, cancelled}.
// paid y cancelled son terminales: una factura paid puede acumular refund_amount
// sin salir de paid (un reembolso ajusta, no revierte).
const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusCancelled = "cancelled"
)

// Métodos de pago registrados al liquidar una factura.
const (
	PaymentMethodStripe = "stripe"
	PaymentMethodCredit = "credit"
	PaymentMethodZelle  = "zelle"
)

// LineItem línea de servicio de la factura (lista ordenada, embebida como JSONB).
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// Invoice representa la obligación de cobro de un servicio de limpieza.
//
// Invariantes de dinero: total == subtotal + tax_amount al crearse; tras aplicar
// crédito, total refleja la obligación restante; un reembolso no reduce total,
// se acumula en refund_amount (refund_amount <= total siempre).
type Invoice struct {
	ID            string
	InvoiceNumber string // consecutivo legible, ej. INV-1042
	CustomerID    string // vacío solo en facturas fuera del portal

	Subtotal     decimal.Decimal
	TaxRate      decimal.Decimal
	TaxAmount    decimal.Decimal
	Total        decimal.Decimal
	RefundAmount decimal.Decimal
	RefundReason string

	Status        string
	PaymentMethod string
	LineItems     []LineItem
	Notes         string

	// Referencias al procesador de pagos (vacías si no aplican).
	StripeInvoiceID       string // factura hospedada en el procesador
	StripePaymentIntentID string // cobro (payment intent) asociado

	DueDate   time.Time
	PaidDate  *time.Time // solo se asigna al pagar
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}
