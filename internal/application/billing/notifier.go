package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/entity"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/repository"
	"github.com/tu-usuario/cleanpro-portal/pkg/logger"
)

// Notifier emite los efectos posteriores a un cambio de estado: una fila de
// notificación para el cliente (si hay cliente resoluble), cero o una para el
// staff y cero o un correo. Corre SIEMPRE después de que el estado de dinero
// quedó escrito; ningún fallo aquí deshace ni reintenta el movimiento.
//
// Contrato de error: los métodos devuelven el error de escritura de la fila de
// notificación (el scheduler lo agrega a su lista de errores); los fallos de
// correo se registran y se tragan siempre.
type Notifier struct {
	notifRepo    repository.NotificationRepository
	adminRepo    repository.AdminNotificationRepository
	customerRepo repository.CustomerRepository
	mailer       Mailer
	log          *logger.Logger
	baseURL      string
}

// NewNotifier construye el emisor.
func NewNotifier(
	notifRepo repository.NotificationRepository,
	adminRepo repository.AdminNotificationRepository,
	customerRepo repository.CustomerRepository,
	mailer Mailer,
	log *logger.Logger,
	baseURL string,
) *Notifier {
	return &Notifier{
		notifRepo:    notifRepo,
		adminRepo:    adminRepo,
		customerRepo: customerRepo,
		mailer:       mailer,
		log:          log,
		baseURL:      baseURL,
	}
}

func (n *Notifier) invoiceLink(inv *entity.Invoice) string {
	return fmt.Sprintf("%s/portal/invoices/%s", n.baseURL, inv.ID)
}

func (n *Notifier) adminLink(inv *entity.Invoice) string {
	return fmt.Sprintf("%s/admin/invoices/%s", n.baseURL, inv.ID)
}

// customerRow inserta la fila del cliente; si la factura no tiene cliente
// resoluble no hace nada.
func (n *Notifier) customerRow(inv *entity.Invoice, kind, title, message string) error {
	if inv.CustomerID == "" {
		return nil
	}
	err := n.notifRepo.Create(&entity.Notification{
		ID:         uuid.New().String(),
		CustomerID: inv.CustomerID,
		InvoiceID:  inv.ID,
		Type:       kind,
		Title:      title,
		Message:    message,
		Link:       n.invoiceLink(inv),
		CreatedAt:  time.Now(),
	})
	if err != nil {
		n.log.Error().Err(err).Str("invoice_id", inv.ID).Str("type", kind).
			Msg("insertar notificación del cliente")
	}
	return err
}

func (n *Notifier) adminRow(inv *entity.Invoice, kind, title, message string) {
	err := n.adminRepo.Create(&entity.AdminNotification{
		ID:        uuid.New().String(),
		InvoiceID: inv.ID,
		Type:      kind,
		Title:     title,
		Message:   message,
		Link:      n.adminLink(inv),
		CreatedAt: time.Now(),
	})
	if err != nil {
		n.log.Error().Err(err).Str("invoice_id", inv.ID).Str("type", kind).
			Msg("insertar notificación del staff")
	}
}

// email resuelve el correo del cliente y envía; todo fallo se registra y se traga.
func (n *Notifier) email(ctx context.Context, inv *entity.Invoice, subject, html string) {
	if inv.CustomerID == "" {
		return
	}
	customer, err := n.customerRepo.GetByID(inv.CustomerID)
	if err != nil || customer == nil || customer.Email == "" {
		n.log.Warn().Str("invoice_id", inv.ID).Msg("correo omitido: cliente sin email resoluble")
		return
	}
	if err := n.mailer.Send(ctx, customer.Email, subject, html); err != nil {
		n.log.Error().Err(err).Str("invoice_id", inv.ID).Str("to", customer.Email).
			Msg("envío de correo falló (no fatal)")
	}
}

// PaymentReceived: pago confirmado (cobro directo o factura hospedada).
func (n *Notifier) PaymentReceived(ctx context.Context, inv *entity.Invoice) error {
	title := "Payment received"
	msg := fmt.Sprintf("Your payment of $%s for invoice %s has been received. Thank you!",
		inv.Total.StringFixed(2), inv.InvoiceNumber)
	rowErr := n.customerRow(inv, entity.NotificationPaymentReceived, title, msg)

	n.adminRow(inv, entity.NotificationPaymentReceived, "Invoice paid",
		fmt.Sprintf("Invoice %s was paid ($%s).", inv.InvoiceNumber, inv.Total.StringFixed(2)))

	n.email(ctx, inv, fmt.Sprintf("Payment receipt — invoice %s", inv.InvoiceNumber),
		receiptHTML(inv))
	return rowErr
}

// InvoiceOverdue: la factura pasó a overdue en el barrido.
func (n *Notifier) InvoiceOverdue(ctx context.Context, inv *entity.Invoice) error {
	title := "Invoice overdue"
	msg := fmt.Sprintf("Invoice %s for $%s is past due. Please submit payment to avoid service interruption.",
		inv.InvoiceNumber, inv.Total.StringFixed(2))
	rowErr := n.customerRow(inv, entity.NotificationInvoiceOverdue, title, msg)

	n.adminRow(inv, entity.NotificationInvoiceOverdue, "Invoice overdue",
		fmt.Sprintf("Invoice %s ($%s) is overdue since %s.",
			inv.InvoiceNumber, inv.Total.StringFixed(2), inv.DueDate.Format("2006-01-02")))
	return rowErr
}

// DueTodayReminder: recordatorio del día de vencimiento (correo + fila del cliente).
func (n *Notifier) DueTodayReminder(ctx context.Context, inv *entity.Invoice) error {
	// El correo va primero y es best-effort: su fallo no bloquea la fila.
	n.email(ctx, inv, fmt.Sprintf("Reminder: invoice %s is due today", inv.InvoiceNumber),
		reminderHTML(inv))

	title := "Invoice due today"
	msg := fmt.Sprintf("Invoice %s for $%s is due today.", inv.InvoiceNumber, inv.Total.StringFixed(2))
	return n.customerRow(inv, entity.NotificationInvoiceDue, title, msg)
}

// CreditApplied: crédito aplicado; notificación de staff solo si liquidó la factura.
func (n *Notifier) CreditApplied(ctx context.Context, inv *entity.Invoice, applied decimal.Decimal, settled bool) error {
	title := "Account credit applied"
	msg := fmt.Sprintf("A credit of $%s was applied to invoice %s.", applied.StringFixed(2), inv.InvoiceNumber)
	if settled {
		msg = fmt.Sprintf("A credit of $%s was applied to invoice %s. The invoice is now fully paid.",
			applied.StringFixed(2), inv.InvoiceNumber)
	}
	rowErr := n.customerRow(inv, entity.NotificationCreditApplied, title, msg)

	if settled {
		n.adminRow(inv, entity.NotificationCreditApplied, "Invoice settled with credit",
			fmt.Sprintf("Invoice %s was fully settled with a $%s account credit.",
				inv.InvoiceNumber, applied.StringFixed(2)))
	}
	return rowErr
}

// RefundProcessed: reembolso emitido (parcial o total); la factura sigue paid.
func (n *Notifier) RefundProcessed(ctx context.Context, inv *entity.Invoice, amount decimal.Decimal) error {
	title := "Refund processed"
	msg := fmt.Sprintf("A refund of $%s for invoice %s has been processed. It may take 5-10 business days to appear on your statement.",
		amount.StringFixed(2), inv.InvoiceNumber)
	rowErr := n.customerRow(inv, entity.NotificationRefundProcessed, title, msg)

	n.adminRow(inv, entity.NotificationRefundProcessed, "Refund processed",
		fmt.Sprintf("Refund of $%s issued for invoice %s.", amount.StringFixed(2), inv.InvoiceNumber))

	n.email(ctx, inv, fmt.Sprintf("Refund confirmation — invoice %s", inv.InvoiceNumber),
		refundHTML(inv, amount))
	return rowErr
}

func receiptHTML(inv *entity.Invoice) string {
	return fmt.Sprintf(`<div style="font-family:sans-serif">
<h2>Payment received</h2>
<p>We received your payment of <strong>$%s</strong> for invoice <strong>%s</strong>.</p>
<p>Thank you for choosing CleanPro.</p>
</div>`, inv.Total.StringFixed(2), inv.InvoiceNumber)
}

func reminderHTML(inv *entity.Invoice) string {
	return fmt.Sprintf(`<div style="font-family:sans-serif">
<h2>Invoice due today</h2>
<p>Invoice <strong>%s</strong> for <strong>$%s</strong> is due today (%s).</p>
<p>You can pay from your customer portal.</p>
</div>`, inv.InvoiceNumber, inv.Total.StringFixed(2), inv.DueDate.Format("January 2, 2006"))
}

func refundHTML(inv *entity.Invoice, amount decimal.Decimal) string {
	return fmt.Sprintf(`<div style="font-family:sans-serif">
<h2>Refund confirmation</h2>
<p>A refund of <strong>$%s</strong> was issued for invoice <strong>%s</strong>.</p>
<p>It may take 5-10 business days to appear on your statement.</p>
</div>`, amount.StringFixed(2), inv.InvoiceNumber)
}
