package entity

import "time"

// Tipos de evento de notificación.
const (
	NotificationPaymentReceived = "payment_received"
	NotificationInvoiceOverdue  = "invoice_overdue"
	NotificationInvoiceDue      = "invoice_due"
	NotificationCreditApplied   = "credit_applied"
	NotificationRefundProcessed = "refund_processed"
	NotificationZellePending    = "zelle_pending"
)

// Notification notificación dirigida al cliente (con marca de leído).
type Notification struct {
	ID         string
	CustomerID string
	InvoiceID  string
	Type       string
	Title      string
	Message    string
	Link       string
	Read       bool
	CreatedAt  time.Time
}

// AdminNotification notificación dirigida al staff (sin marca de leído).
type AdminNotification struct {
	ID        string
	InvoiceID string
	Type      string
	Title     string
	Message   string
	Link      string
	CreatedAt time.Time
}
