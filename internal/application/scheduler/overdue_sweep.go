package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/tu-usuario/cleanpro-portal/internal/application/billing"
	"github.com/tu-usuario/cleanpro-portal/internal/application/dto"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/entity"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/repository"
	"github.com/tu-usuario/cleanpro-portal/pkg/logger"
)

// OverdueSweepUseCase barrido periódico que reclasifica facturas sent cuyo
// vencimiento quedó atrás más allá del período de gracia.
//
// Idempotente por factura: la transición sent→overdue es compare-and-set, así
// que una segunda corrida del mismo día encuentra cero filas elegibles (o las
// salta) sin duplicar notificaciones.
type OverdueSweepUseCase struct {
	invoiceRepo repository.InvoiceRepository
	notifier    *billing.Notifier
	log         *logger.Logger
	graceDays   int
}

// NewOverdueSweepUseCase construye el barrido.
func NewOverdueSweepUseCase(
	invoiceRepo repository.InvoiceRepository,
	notifier *billing.Notifier,
	log *logger.Logger,
	graceDays int,
) *OverdueSweepUseCase {
	return &OverdueSweepUseCase{
		invoiceRepo: invoiceRepo,
		notifier:    notifier,
		log:         log,
		graceDays:   graceDays,
	}
}

// Run ejecuta el barrido con semántica de falla parcial: el error de una
// factura se agrega a la lista y no detiene el resto.
func (uc *OverdueSweepUseCase) Run(ctx context.Context) (*dto.SweepResult, error) {
	cutoff := time.Now().AddDate(0, 0, -uc.graceDays)
	candidates, err := uc.invoiceRepo.ListOverdueCandidates(cutoff)
	if err != nil {
		return nil, fmt.Errorf("listar facturas vencidas: %w", err)
	}

	result := &dto.SweepResult{TotalFound: len(candidates)}
	for _, inv := range candidates {
		ok, err := uc.invoiceRepo.MarkOverdue(inv.ID)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("invoice %s: %v", inv.InvoiceNumber, err))
			continue
		}
		if !ok {
			// Otra corrida (o un pago) ya transicionó la fila.
			continue
		}
		inv.Status = entity.InvoiceStatusOverdue
		if err := uc.notifier.InvoiceOverdue(ctx, inv); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("invoice %s: notificación: %v", inv.InvoiceNumber, err))
			continue
		}
		result.Processed++
	}

	uc.log.Info().Int("found", result.TotalFound).Int("processed", result.Processed).
		Int("errors", len(result.Errors)).Msg("barrido de vencidas completado")
	return result, nil
}
