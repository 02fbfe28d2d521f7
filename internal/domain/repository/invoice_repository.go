package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para Invoice.
//
// Las transiciones de estado sensibles a concurrencia (MarkPaid, MarkOverdue)
// son compare-and-set: la escritura condiciona sobre el estado esperado y
// devuelve false si otro request ya transicionó la fila. Eso garantiza a lo
// sumo una transición sent→paid con semántica de éxito aunque dos intentos
// de pago pasen la lectura de guard al mismo tiempo.
type InvoiceRepository interface {
	Create(invoice *entity.Invoice) error
	GetByID(id string) (*entity.Invoice, error)
	// GetByStripeInvoiceID resuelve por la factura hospedada del procesador
	// (segundo paso del lookup dual del flujo hospedado).
	GetByStripeInvoiceID(stripeInvoiceID string) (*entity.Invoice, error)
	ListByCustomer(customerID string, limit, offset int) ([]*entity.Invoice, error)
	ListByStatus(status string, limit, offset int) ([]*entity.Invoice, error)

	// ListOverdueCandidates: facturas sent con due_date anterior al corte.
	ListOverdueCandidates(cutoff time.Time) ([]*entity.Invoice, error)
	// ListDueOn: facturas sent con vencimiento en el día indicado.
	ListDueOn(day time.Time) ([]*entity.Invoice, error)

	// MarkPaid transiciona a paid solo si el estado actual sigue siendo
	// expectedStatus. paymentIntentID vacío conserva el valor existente.
	MarkPaid(id, expectedStatus, paymentMethod, paymentIntentID string, paidAt time.Time) (bool, error)
	// MarkPaidByStripeInvoiceID igual que MarkPaid pero resolviendo por la
	// factura hospedada (los dos sistemas están unidos solo por metadata).
	MarkPaidByStripeInvoiceID(stripeInvoiceID, paymentMethod, paymentIntentID string, paidAt time.Time) (bool, error)
	// MarkOverdue transiciona sent→overdue; false si ya no está en sent.
	MarkOverdue(id string) (bool, error)

	UpdateStatus(id, status string) error
	// ApplyCredit persiste total, estado, paid_date, payment_method y notes
	// tras una aplicación de crédito (la entidad ya trae los valores nuevos).
	ApplyCredit(invoice *entity.Invoice) error
	// UpdateRefund fija el refund_amount acumulado y el motivo.
	UpdateRefund(id string, refundAmount decimal.Decimal, reason string) error
	// SetPaymentIntentID persiste la referencia de cobro del procesador
	// (continuación de pago o auto-reparación previa a un reembolso).
	SetPaymentIntentID(id, paymentIntentID string) error

	// NextInvoiceNumber reserva el siguiente consecutivo legible (INV-<n>).
	NextInvoiceNumber() (string, error)
}
