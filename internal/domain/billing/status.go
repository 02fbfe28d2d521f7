package billing

import (
	"time"

	"github.com/tu-usuario/cleanpro-portal/internal/domain/entity"
)

// Máquina de estados de la factura. Guards evaluados antes de cualquier
// operación de dinero; ninguna operación muta estado si el guard falla.

// CanApplyPayment indica si la factura admite un pago o crédito
// (pago directo, factura hospedada o crédito de cuenta).
// paid y cancelled son terminales para cobros.
func CanApplyPayment(status string) bool {
	return status != entity.InvoiceStatusPaid && status != entity.InvoiceStatusCancelled
}

// CanCancel indica si la factura puede cancelarse.
// Una factura pagada no se cancela: se reembolsa.
func CanCancel(status string) bool {
	return status != entity.InvoiceStatusPaid && status != entity.InvoiceStatusCancelled
}

// CanRefund indica si la factura admite reembolso (solo paid).
func CanRefund(status string) bool {
	return status == entity.InvoiceStatusPaid
}

// OverdueEligible indica si la factura debe pasar a overdue: solo desde sent,
// cuando due_date quedó atrás más allá del período de gracia. Nunca degrada
// una factura paid o cancelled.
func OverdueEligible(status string, dueDate time.Time, graceDays int, now time.Time) bool {
	if status != entity.InvoiceStatusSent {
		return false
	}
	cutoff := now.AddDate(0, 0, -graceDays)
	return dueDate.Before(cutoff)
}
