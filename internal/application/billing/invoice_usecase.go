package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/cleanpro-portal/internal/application/dto"
	"github.com/tu-usuario/cleanpro-portal/internal/domain"
	domainbilling "github.com/tu-usuario/cleanpro-portal/internal/domain/billing"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/entity"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/repository"
	"github.com/tu-usuario/cleanpro-portal/pkg/logger"
)

// InvoiceUseCase emisión, consulta y cancelación de facturas.
type InvoiceUseCase struct {
	invoiceRepo  repository.InvoiceRepository
	customerRepo repository.CustomerRepository
	gateway      PaymentGateway
	log          *logger.Logger
	dueDays      int
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(
	invoiceRepo repository.InvoiceRepository,
	customerRepo repository.CustomerRepository,
	gateway PaymentGateway,
	log *logger.Logger,
	defaultDueDays int,
) *InvoiceUseCase {
	return &InvoiceUseCase{
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		gateway:      gateway,
		log:          log,
		dueDays:      defaultDueDays,
	}
}

// Create emite una factura para un cliente (solo admin). La factura nace en
// sent con consecutivo reservado; total == subtotal + tax_amount por
// construcción.
func (uc *InvoiceUseCase) Create(ctx context.Context, adminID string, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if in.CustomerID == "" || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if in.TaxRate.IsNegative() {
		return nil, fmt.Errorf("%w: tax_rate negativo", domain.ErrInvalidInput)
	}

	customer, err := uc.customerRepo.GetByID(in.CustomerID)
	if err != nil || customer == nil {
		return nil, domain.ErrNotFound
	}

	var subtotal decimal.Decimal
	items := make([]entity.LineItem, 0, len(in.Items))
	for _, item := range in.Items {
		if item.Description == "" || !item.Quantity.IsPositive() || item.Rate.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
		amount := item.Quantity.Mul(item.Rate)
		subtotal = subtotal.Add(amount)
		items = append(items, entity.LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
			Amount:      amount,
		})
	}
	taxAmount := subtotal.Mul(in.TaxRate).Round(2)
	total := subtotal.Add(taxAmount)

	number, err := uc.invoiceRepo.NextInvoiceNumber()
	if err != nil {
		return nil, fmt.Errorf("reservar consecutivo: %w", err)
	}

	dueDays := in.DueDays
	if dueDays <= 0 {
		dueDays = uc.dueDays
	}
	now := time.Now()
	inv := &entity.Invoice{
		ID:            uuid.New().String(),
		InvoiceNumber: number,
		CustomerID:    in.CustomerID,
		Subtotal:      subtotal,
		TaxRate:       in.TaxRate,
		TaxAmount:     taxAmount,
		Total:         total,
		Status:        entity.InvoiceStatusSent,
		LineItems:     items,
		Notes:         in.Notes,
		DueDate:       now.AddDate(0, 0, dueDays),
		CreatedBy:     adminID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.invoiceRepo.Create(inv); err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// Get obtiene una factura; el cliente solo puede ver las suyas.
func (uc *InvoiceUseCase) Get(ctx context.Context, callerCustomerID, role, id string) (*dto.InvoiceResponse, error) {
	inv, err := uc.invoiceRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if role != "admin" && inv.CustomerID != callerCustomerID {
		return nil, domain.ErrForbidden
	}
	return toInvoiceResponse(inv), nil
}

// ListForCustomer lista las facturas del cliente autenticado.
func (uc *InvoiceUseCase) ListForCustomer(ctx context.Context, customerID string, limit, offset int) ([]*dto.InvoiceResponse, error) {
	list, err := uc.invoiceRepo.ListByCustomer(customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.InvoiceResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, toInvoiceResponse(inv))
	}
	return out, nil
}

// ListByStatus lista facturas por estado (solo admin).
func (uc *InvoiceUseCase) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*dto.InvoiceResponse, error) {
	list, err := uc.invoiceRepo.ListByStatus(status, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.InvoiceResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, toInvoiceResponse(inv))
	}
	return out, nil
}

// Cancel cancela una factura no pagada (solo admin). Cancelación es un
// estado, no un borrado; una pagada se reembolsa, no se cancela. Si hay
// factura hospedada vinculada se anula en el procesador best-effort.
func (uc *InvoiceUseCase) Cancel(ctx context.Context, adminID, id string) error {
	inv, err := uc.invoiceRepo.GetByID(id)
	if err != nil {
		return err
	}
	if inv == nil {
		return domain.ErrNotFound
	}
	if !domainbilling.CanCancel(inv.Status) {
		return domain.ErrInvalidState
	}
	if err := uc.invoiceRepo.UpdateStatus(inv.ID, entity.InvoiceStatusCancelled); err != nil {
		return err
	}
	if inv.StripeInvoiceID != "" {
		if err := uc.gateway.VoidInvoice(ctx, inv.StripeInvoiceID); err != nil {
			uc.log.Warn().Err(err).Str("invoice_id", inv.ID).
				Str("stripe_invoice_id", inv.StripeInvoiceID).
				Msg("anular factura hospedada")
		}
	}
	return nil
}

func toInvoiceResponse(inv *entity.Invoice) *dto.InvoiceResponse {
	items := make([]dto.LineItemResponse, 0, len(inv.LineItems))
	for _, li := range inv.LineItems {
		items = append(items, dto.LineItemResponse{
			Description: li.Description,
			Quantity:    li.Quantity,
			Rate:        li.Rate,
			Amount:      li.Amount,
		})
	}
	resp := &dto.InvoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID,
		Status:        inv.Status,
		Subtotal:      inv.Subtotal,
		TaxRate:       inv.TaxRate,
		TaxAmount:     inv.TaxAmount,
		Total:         inv.Total,
		RefundAmount:  inv.RefundAmount,
		PaymentMethod: inv.PaymentMethod,
		Items:         items,
		Notes:         inv.Notes,
		DueDate:       inv.DueDate.Format("2006-01-02"),
		CreatedAt:     inv.CreatedAt.Format(time.RFC3339),
	}
	if inv.PaidDate != nil {
		resp.PaidDate = inv.PaidDate.Format(time.RFC3339)
	}
	return resp
}
