package billing

import (
	"context"
	"fmt"

	"github.com/tu-usuario/cleanpro-portal/internal/application/dto"
	"github.com/tu-usuario/cleanpro-portal/internal/domain"
	domainbilling "github.com/tu-usuario/cleanpro-portal/internal/domain/billing"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/entity"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/repository"
	"github.com/tu-usuario/cleanpro-portal/pkg/logger"
)

// RefundInvoiceUseCase revierte parte o todo un cobro previo del procesador.
// Solo admin; solo facturas en paid. El reembolso ajusta refund_amount y deja
// el estado en paid: es un ajuste a una factura liquidada, no una reversión.
type RefundInvoiceUseCase struct {
	invoiceRepo repository.InvoiceRepository
	gateway     PaymentGateway
	notifier    *Notifier
	log         *logger.Logger
}

// NewRefundInvoiceUseCase construye el caso de uso.
func NewRefundInvoiceUseCase(
	invoiceRepo repository.InvoiceRepository,
	gateway PaymentGateway,
	notifier *Notifier,
	log *logger.Logger,
) *RefundInvoiceUseCase {
	return &RefundInvoiceUseCase{
		invoiceRepo: invoiceRepo,
		gateway:     gateway,
		notifier:    notifier,
		log:         log,
	}
}

// Refund emite un reembolso por in.Amount contra el cobro original.
//
// refund_amount acumulado nunca puede exceder total: el exceso se rechaza sin
// llamada al procesador y sin mutación. Tras el éxito del procesador, la
// escritura local y las notificaciones son best-effort (el movimiento de
// dinero no debe reintentarse por un retry del cliente).
func (uc *RefundInvoiceUseCase) Refund(ctx context.Context, adminID, invoiceID string, in dto.RefundRequest) (*dto.RefundResponse, error) {
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: el monto del reembolso debe ser positivo", domain.ErrInvalidInput)
	}

	inv, err := uc.invoiceRepo.GetByID(invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if !domainbilling.CanRefund(inv.Status) {
		return nil, domain.ErrInvalidState
	}

	paymentIntentID, err := uc.resolveChargeReference(ctx, inv)
	if err != nil {
		return nil, err
	}

	maxRefundable := domainbilling.MaxRefundable(inv.Total, inv.RefundAmount)
	if in.Amount.GreaterThan(maxRefundable) {
		return nil, fmt.Errorf("%w: $%s excede el máximo reembolsable $%s (total $%s, ya reembolsado $%s)",
			domain.ErrInvalidInput,
			in.Amount.StringFixed(2), maxRefundable.StringFixed(2),
			inv.Total.StringFixed(2), inv.RefundAmount.StringFixed(2))
	}

	_, err = uc.gateway.CreateRefund(ctx, RefundParams{
		PaymentIntentID: paymentIntentID,
		AmountCents:     domainbilling.MinorUnits(in.Amount),
		Reason:          in.Reason,
		Metadata: map[string]string{
			"invoice_id":     inv.ID,
			"invoice_number": inv.InvoiceNumber,
		},
	})
	if err != nil {
		// Nada se mutó: el procesador rechazó el reembolso.
		return nil, err
	}

	// Dinero movido: actualización aditiva con la fila leída como base.
	newRefundAmount := inv.RefundAmount.Add(in.Amount)
	if err := uc.invoiceRepo.UpdateRefund(inv.ID, newRefundAmount, in.Reason); err != nil {
		uc.log.Error().Err(err).Str("invoice_id", inv.ID).
			Str("amount", in.Amount.StringFixed(2)).
			Msg(domain.ErrReconciliationGap.Error())
	} else {
		inv.RefundAmount = newRefundAmount
		inv.RefundReason = in.Reason
	}

	if err := uc.notifier.RefundProcessed(ctx, inv, in.Amount); err != nil {
		uc.log.Warn().Err(err).Str("invoice_id", inv.ID).Msg("notificación de reembolso")
	}

	return &dto.RefundResponse{
		RefundAmount: newRefundAmount,
		Status:       entity.InvoiceStatusPaid,
	}, nil
}

// resolveChargeReference resuelve la referencia de cobro en el procesador:
// la guardada localmente o, si falta, la del documento hospedado — y en ese
// caso la persiste para futuros reembolsos (auto-reparación del vínculo).
func (uc *RefundInvoiceUseCase) resolveChargeReference(ctx context.Context, inv *entity.Invoice) (string, error) {
	if inv.StripePaymentIntentID != "" {
		return inv.StripePaymentIntentID, nil
	}
	if inv.StripeInvoiceID == "" {
		return "", domain.ErrNoChargeReference
	}

	hosted, err := uc.gateway.RetrieveInvoice(ctx, inv.StripeInvoiceID)
	if err != nil {
		return "", fmt.Errorf("recuperar factura hospedada: %w", err)
	}
	if hosted.PaymentIntentID == "" {
		return "", domain.ErrNoChargeReference
	}

	if err := uc.invoiceRepo.SetPaymentIntentID(inv.ID, hosted.PaymentIntentID); err != nil {
		uc.log.Warn().Err(err).Str("invoice_id", inv.ID).
			Msg("persistir referencia de cobro recuperada")
	}
	inv.StripePaymentIntentID = hosted.PaymentIntentID
	return hosted.PaymentIntentID, nil
}
