package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/tu-usuario/cleanpro-portal/internal/application/billing"
	"github.com/tu-usuario/cleanpro-portal/internal/application/dto"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/repository"
	"github.com/tu-usuario/cleanpro-portal/pkg/logger"
)

// DueRemindersUseCase recordatorios para facturas sent que vencen hoy:
// correo best-effort más notificación del cliente. No cambia estados.
type DueRemindersUseCase struct {
	invoiceRepo repository.InvoiceRepository
	notifier    *billing.Notifier
	log         *logger.Logger
}

// NewDueRemindersUseCase construye el caso de uso.
func NewDueRemindersUseCase(
	invoiceRepo repository.InvoiceRepository,
	notifier *billing.Notifier,
	log *logger.Logger,
) *DueRemindersUseCase {
	return &DueRemindersUseCase{
		invoiceRepo: invoiceRepo,
		notifier:    notifier,
		log:         log,
	}
}

// Run envía los recordatorios del día con la misma agregación de falla
// parcial que el barrido de vencidas.
func (uc *DueRemindersUseCase) Run(ctx context.Context) (*dto.SweepResult, error) {
	today := time.Now()
	due, err := uc.invoiceRepo.ListDueOn(today)
	if err != nil {
		return nil, fmt.Errorf("listar facturas que vencen hoy: %w", err)
	}

	result := &dto.SweepResult{TotalFound: len(due)}
	for _, inv := range due {
		if err := uc.notifier.DueTodayReminder(ctx, inv); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("invoice %s: %v", inv.InvoiceNumber, err))
			continue
		}
		result.Processed++
	}

	uc.log.Info().Int("found", result.TotalFound).Int("processed", result.Processed).
		Int("errors", len(result.Errors)).Msg("recordatorios de vencimiento enviados")
	return result, nil
}
