package dto

import "github.com/shopspring/decimal"

// LineItemRequest línea de servicio al crear una factura.
type LineItemRequest struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
}

// CreateInvoiceRequest body para POST /api/invoices (solo admin).
type CreateInvoiceRequest struct {
	CustomerID string            `json:"customer_id"`
	TaxRate    decimal.Decimal   `json:"tax_rate"`           // fracción, ej. 0.0825
	DueDays    int               `json:"due_days,omitempty"` // 0 = plazo por defecto
	Notes      string            `json:"notes,omitempty"`
	Items      []LineItemRequest `json:"items"`
}

// LineItemResponse línea de servicio en respuestas.
type LineItemResponse struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// InvoiceResponse factura en respuestas.
type InvoiceResponse struct {
	ID            string             `json:"id"`
	InvoiceNumber string             `json:"invoice_number"`
	CustomerID    string             `json:"customer_id,omitempty"`
	Status        string             `json:"status"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	TaxRate       decimal.Decimal    `json:"tax_rate"`
	TaxAmount     decimal.Decimal    `json:"tax_amount"`
	Total         decimal.Decimal    `json:"total"`
	RefundAmount  decimal.Decimal    `json:"refund_amount"`
	PaymentMethod string             `json:"payment_method,omitempty"`
	Items         []LineItemResponse `json:"items"`
	Notes         string             `json:"notes,omitempty"`
	DueDate       string             `json:"due_date"`
	PaidDate      string             `json:"paid_date,omitempty"`
	CreatedAt     string             `json:"created_at"`
}

// PayInvoiceRequest body para POST /api/invoices/:id/pay (cobro directo).
// El monto NUNCA viene del cliente: se deriva del total almacenado.
type PayInvoiceRequest struct {
	PaymentMethodID string `json:"payment_method_id,omitempty"` // instrumento guardado (opcional)
}

// Estados de resultado de un intento de pago hacia el frontend.
const (
	PaymentOutcomeSucceeded             = "succeeded"
	PaymentOutcomeRequiresAction        = "requires_action"
	PaymentOutcomeRequiresPaymentMethod = "requires_payment_method"
)

// PayInvoiceResponse resultado del intento de pago. Cuando el banco exige
// autenticación adicional, ClientSecret es el token de continuación para
// completar el pago del lado del cliente.
type PayInvoiceResponse struct {
	Status          string `json:"status"` // succeeded | requires_action | requires_payment_method
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	ClientSecret    string `json:"client_secret,omitempty"`
}

// PayHostedInvoiceRequest body para POST /api/invoices/pay-hosted.
type PayHostedInvoiceRequest struct {
	InvoiceID         string `json:"invoice_id,omitempty"` // id local si se conoce
	StripeInvoiceID   string `json:"stripe_invoice_id"`
	PaymentMethodID   string `json:"payment_method_id"`
	SavePaymentMethod bool   `json:"save_payment_method,omitempty"`
}

// ApplyCreditRequest body para POST /api/invoices/:id/credit (solo admin).
type ApplyCreditRequest struct {
	CreditAmount decimal.Decimal `json:"credit_amount"`
}

// ApplyCreditResponse resultado de la aplicación de crédito.
type ApplyCreditResponse struct {
	AmountApplied decimal.Decimal `json:"amount_applied"`
	Remaining     decimal.Decimal `json:"remaining"`
	Status        string          `json:"status"`
}

// RefundRequest body para POST /api/invoices/:id/refund (solo admin).
type RefundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason,omitempty"`
}

// RefundResponse resultado del reembolso. Status permanece paid: un reembolso
// ajusta una factura liquidada, no la revierte.
type RefundResponse struct {
	RefundAmount decimal.Decimal `json:"refund_amount"` // acumulado
	Status       string          `json:"status"`
}

// SweepResult resultado agregado de un barrido programado (semántica de
// falla parcial: los errores por factura no detienen el resto).
type SweepResult struct {
	Processed  int      `json:"processed"`
	TotalFound int      `json:"total_found"`
	Errors     []string `json:"errors,omitempty"`
}

// NotificationResponse notificación del cliente en respuestas.
type NotificationResponse struct {
	ID        string `json:"id"`
	InvoiceID string `json:"invoice_id,omitempty"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Link      string `json:"link,omitempty"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}
