package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/cleanpro-portal/internal/application/dto"
	"github.com/tu-usuario/cleanpro-portal/internal/domain"
	domainbilling "github.com/tu-usuario/cleanpro-portal/internal/domain/billing"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/entity"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/repository"
	"github.com/tu-usuario/cleanpro-portal/pkg/logger"
)

// ApplyCreditUseCase aplica crédito de cuenta (no efectivo) para reducir o
// liquidar el saldo de una factura. Solo admin.
type ApplyCreditUseCase struct {
	invoiceRepo repository.InvoiceRepository
	creditRepo  repository.CreditRecordRepository
	notifier    *Notifier
	log         *logger.Logger
}

// NewApplyCreditUseCase construye el caso de uso.
func NewApplyCreditUseCase(
	invoiceRepo repository.InvoiceRepository,
	creditRepo repository.CreditRecordRepository,
	notifier *Notifier,
	log *logger.Logger,
) *ApplyCreditUseCase {
	return &ApplyCreditUseCase{
		invoiceRepo: invoiceRepo,
		creditRepo:  creditRepo,
		notifier:    notifier,
		log:         log,
	}
}

// Apply aplica creditAmount contra el total vigente de la factura.
//
// El asiento del libro se escribe ANTES de mutar la factura, con monto
// negativo (convención de consumo): si la actualización posterior falla, el
// asiento existe igual — el libro es append-first a propósito.
func (uc *ApplyCreditUseCase) Apply(ctx context.Context, adminID, invoiceID string, in dto.ApplyCreditRequest) (*dto.ApplyCreditResponse, error) {
	if !in.CreditAmount.IsPositive() {
		return nil, fmt.Errorf("%w: el crédito debe ser positivo", domain.ErrInvalidInput)
	}

	inv, err := uc.invoiceRepo.GetByID(invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if !domainbilling.CanApplyPayment(inv.Status) {
		return nil, domain.ErrInvalidState
	}
	if inv.CustomerID == "" {
		return nil, fmt.Errorf("%w: la factura no tiene cliente vinculado", domain.ErrInvalidInput)
	}

	amountToApply, remaining := domainbilling.SplitCredit(in.CreditAmount, inv.Total)
	now := time.Now()

	// 1) Asiento append-first en el libro de créditos.
	record := &entity.CreditRecord{
		ID:          uuid.New().String(),
		CustomerID:  inv.CustomerID,
		InvoiceID:   inv.ID,
		Amount:      amountToApply.Neg(),
		Description: fmt.Sprintf("Credit applied to invoice %s", inv.InvoiceNumber),
		CreatedBy:   adminID,
		CreatedAt:   now,
	}
	if err := uc.creditRepo.Create(record); err != nil {
		return nil, fmt.Errorf("asiento de crédito: %w", err)
	}

	// 2) Mutación de la factura con la fila recién leída como base.
	// Las notas se anexan, nunca se sobreescriben.
	auditLine := fmt.Sprintf("Credit of $%s applied on %s",
		amountToApply.StringFixed(2), now.Format("2006-01-02"))
	if inv.Notes != "" {
		inv.Notes = inv.Notes + "\n" + auditLine
	} else {
		inv.Notes = auditLine
	}

	settled := !remaining.IsPositive()
	if settled {
		inv.Status = entity.InvoiceStatusPaid
		inv.PaidDate = &now
		inv.PaymentMethod = entity.PaymentMethodCredit
	} else {
		// El total pasa a reflejar la obligación restante.
		inv.Total = remaining
	}
	if err := uc.invoiceRepo.ApplyCredit(inv); err != nil {
		// El asiento ya quedó en el libro; la factura quedó sin actualizar.
		uc.log.Error().Err(err).Str("invoice_id", inv.ID).Str("credit_record", record.ID).
			Msg("actualizar factura tras asiento de crédito")
		return nil, err
	}

	if err := uc.notifier.CreditApplied(ctx, inv, amountToApply, settled); err != nil {
		uc.log.Warn().Err(err).Str("invoice_id", inv.ID).Msg("notificación de crédito aplicado")
	}

	return &dto.ApplyCreditResponse{
		AmountApplied: amountToApply,
		Remaining:     remaining,
		Status:        inv.Status,
	}, nil
}
