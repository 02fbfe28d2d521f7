package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/cleanpro-portal/internal/application/billing"
	"github.com/tu-usuario/cleanpro-portal/internal/application/dto"
	"github.com/tu-usuario/cleanpro-portal/internal/domain"
)

// PaymentHandler maneja cobros, créditos y reembolsos sobre facturas.
type PaymentHandler struct {
	payUC    *billing.PayInvoiceUseCase
	hostedUC *billing.PayHostedInvoiceUseCase
	creditUC *billing.ApplyCreditUseCase
	refundUC *billing.RefundInvoiceUseCase
}

// NewPaymentHandler construye el handler.
func NewPaymentHandler(
	payUC *billing.PayInvoiceUseCase,
	hostedUC *billing.PayHostedInvoiceUseCase,
	creditUC *billing.ApplyCreditUseCase,
	refundUC *billing.RefundInvoiceUseCase,
) *PaymentHandler {
	return &PaymentHandler{payUC: payUC, hostedUC: hostedUC, creditUC: creditUC, refundUC: refundUC}
}

// Pay cobra la factura con payment intent (cliente dueño de la factura).
// POST /api/invoices/:id/pay
func (h *PaymentHandler) Pay(c *fiber.Ctx) error {
	invoiceID := c.Params("id")
	if invoiceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	customerID := GetCustomerID(c)
	if customerID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token sin cliente asociado"})
	}
	var in dto.PayInvoiceRequest
	if err := c.BodyParser(&in); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.payUC.Pay(c.Context(), customerID, invoiceID, in)
	if err != nil {
		return paymentError(c, err)
	}
	return c.JSON(out)
}

// PayHosted paga una factura hospedada en el procesador.
// POST /api/invoices/pay-hosted
func (h *PaymentHandler) PayHosted(c *fiber.Ctx) error {
	customerID := GetCustomerID(c)
	if customerID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token sin cliente asociado"})
	}
	var in dto.PayHostedInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.StripeInvoiceID == "" || in.PaymentMethodID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "stripe_invoice_id y payment_method_id requeridos"})
	}
	out, err := h.hostedUC.Pay(c.Context(), customerID, in)
	if err != nil {
		if errors.Is(err, domain.ErrUsePaymentIntentFallback) {
			// La factura hospedada no existe en el procesador: el frontend debe
			// reintentar por la ruta de cobro directo.
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "USE_PAYMENT_INTENT", Message: "la factura no está hospedada; usar el cobro directo"})
		}
		return paymentError(c, err)
	}
	return c.JSON(out)
}

// ApplyCredit aplica crédito de cortesía a una factura pendiente (solo admin).
// POST /api/invoices/:id/credit
func (h *PaymentHandler) ApplyCredit(c *fiber.Ctx) error {
	invoiceID := c.Params("id")
	if invoiceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	var in dto.ApplyCreditRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.creditUC.Apply(c.Context(), GetUserID(c), invoiceID, in)
	if err != nil {
		return paymentError(c, err)
	}
	return c.JSON(out)
}

// Refund reembolsa (parcial o total) una factura pagada (solo admin).
// POST /api/invoices/:id/refund
func (h *PaymentHandler) Refund(c *fiber.Ctx) error {
	invoiceID := c.Params("id")
	if invoiceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	var in dto.RefundRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.refundUC.Refund(c.Context(), GetUserID(c), invoiceID, in)
	if err != nil {
		if errors.Is(err, domain.ErrNoChargeReference) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NO_CHARGE_REFERENCE", Message: "la factura no tiene referencia de cobro para reembolsar"})
		}
		return paymentError(c, err)
	}
	return c.JSON(out)
}

// paymentError traduce los sentinelas de dominio compartidos por las
// operaciones de dinero a códigos HTTP.
func paymentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "factura no encontrada"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado"})
	case errors.Is(err, domain.ErrInvalidState):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_STATE", Message: "la operación no aplica al estado actual de la factura"})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrCardDeclined):
		return c.Status(fiber.StatusPaymentRequired).JSON(dto.ErrorResponse{Code: "CARD_DECLINED", Message: "la tarjeta fue rechazada"})
	case errors.Is(err, domain.ErrPaymentActionRequired):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "REQUIRES_ACTION", Message: "el pago requiere autenticación adicional"})
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "GATEWAY_UNAVAILABLE", Message: "el procesador de pagos no está disponible"})
	case errors.Is(err, domain.ErrPaymentFailed):
		return c.Status(fiber.StatusPaymentRequired).JSON(dto.ErrorResponse{Code: "PAYMENT_FAILED", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
