package billing

import (
	"context"
	"errors"
	"time"

	"github.com/tu-usuario/cleanpro-portal/internal/application/dto"
	"github.com/tu-usuario/cleanpro-portal/internal/domain"
	domainbilling "github.com/tu-usuario/cleanpro-portal/internal/domain/billing"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/entity"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/repository"
	"github.com/tu-usuario/cleanpro-portal/pkg/logger"
)

// PayHostedInvoiceUseCase paga una factura que ya existe como documento
// hospedado en el procesador (creada fuera de banda).
//
// La actualización local usa resolución en dos pasos: primero por el id
// interno si se conoce, después por el id de la factura hospedada como llave
// de cruce — los dos sistemas solo están unidos por metadata, así que ambos
// caminos deben intentarse.
type PayHostedInvoiceUseCase struct {
	invoiceRepo  repository.InvoiceRepository
	customerRepo repository.CustomerRepository
	gateway      PaymentGateway
	notifier     *Notifier
	log          *logger.Logger
}

// NewPayHostedInvoiceUseCase construye el caso de uso.
func NewPayHostedInvoiceUseCase(
	invoiceRepo repository.InvoiceRepository,
	customerRepo repository.CustomerRepository,
	gateway PaymentGateway,
	notifier *Notifier,
	log *logger.Logger,
) *PayHostedInvoiceUseCase {
	return &PayHostedInvoiceUseCase{
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		gateway:      gateway,
		notifier:     notifier,
		log:          log,
	}
}

// Pay paga la factura hospedada con el instrumento indicado.
//
// Si el documento ya no existe en el procesador devuelve
// ErrUsePaymentIntentFallback para que el caller reintente por cobro directo
// en vez de fallar opaco. Un rechazo de tarjeta sube como ErrCardDeclined,
// distinto de fallas genéricas; si el banco exige autenticación se devuelve
// el client secret del payment intent en vez de error.
func (uc *PayHostedInvoiceUseCase) Pay(ctx context.Context, callerCustomerID string, in dto.PayHostedInvoiceRequest) (*dto.PayInvoiceResponse, error) {
	if in.StripeInvoiceID == "" || in.PaymentMethodID == "" {
		return nil, domain.ErrInvalidInput
	}

	hosted, err := uc.gateway.RetrieveInvoice(ctx, in.StripeInvoiceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUsePaymentIntentFallback
		}
		return nil, err
	}

	// Guard sobre la factura local cuando es resoluble (lookup dual).
	local := uc.resolveLocal(in.InvoiceID, in.StripeInvoiceID)
	if local != nil {
		if local.CustomerID != "" && local.CustomerID != callerCustomerID {
			return nil, domain.ErrForbidden
		}
		if !domainbilling.CanApplyPayment(local.Status) {
			return nil, domain.ErrInvalidState
		}
	}

	// Asociar el instrumento al cliente del documento hospedado.
	// El adaptador trata "ya estaba asociado" como éxito.
	if err := uc.gateway.AttachPaymentMethod(ctx, in.PaymentMethodID, hosted.CustomerID); err != nil {
		return nil, err
	}

	paid, err := uc.gateway.PayInvoice(ctx, hosted.ID, in.PaymentMethodID)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentActionRequired) {
			return uc.continuationToken(ctx, hosted)
		}
		// ErrCardDeclined y demás suben tal cual; sin mutación local.
		return nil, err
	}

	// Dinero movido: de aquí en adelante todo es best-effort.
	if in.SavePaymentMethod {
		uc.savePaymentMethod(ctx, callerCustomerID, in.PaymentMethodID)
	}
	uc.recordPaid(ctx, local, in.InvoiceID, hosted.ID, paid.PaymentIntentID)

	return &dto.PayInvoiceResponse{
		Status:          dto.PaymentOutcomeSucceeded,
		PaymentIntentID: paid.PaymentIntentID,
	}, nil
}

// resolveLocal intenta por id interno y luego por el id hospedado.
func (uc *PayHostedInvoiceUseCase) resolveLocal(invoiceID, stripeInvoiceID string) *entity.Invoice {
	if invoiceID != "" {
		if inv, err := uc.invoiceRepo.GetByID(invoiceID); err == nil && inv != nil {
			return inv
		}
	}
	if inv, err := uc.invoiceRepo.GetByStripeInvoiceID(stripeInvoiceID); err == nil && inv != nil {
		return inv
	}
	return nil
}

// continuationToken busca el client secret del payment intent asociado para
// que el cliente complete la autenticación del lado del navegador.
func (uc *PayHostedInvoiceUseCase) continuationToken(ctx context.Context, hosted *HostedInvoice) (*dto.PayInvoiceResponse, error) {
	if hosted.PaymentIntentID == "" {
		return nil, domain.ErrPaymentActionRequired
	}
	pi, err := uc.gateway.RetrievePaymentIntent(ctx, hosted.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	return &dto.PayInvoiceResponse{
		Status:          dto.PaymentOutcomeRequiresAction,
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
	}, nil
}

// savePaymentMethod guarda el instrumento para reuso futuro; se omite si ya
// está guardado uno idéntico. Best-effort.
func (uc *PayHostedInvoiceUseCase) savePaymentMethod(ctx context.Context, customerID, paymentMethodID string) {
	if customerID == "" {
		return
	}
	customer, err := uc.customerRepo.GetByID(customerID)
	if err != nil || customer == nil {
		return
	}
	if customer.DefaultPaymentMethodID == paymentMethodID {
		return
	}
	if err := uc.customerRepo.UpdateDefaultPaymentMethod(customerID, paymentMethodID); err != nil {
		uc.log.Warn().Err(err).Str("customer_id", customerID).Msg("guardar instrumento de pago")
	}
}

// recordPaid marca la factura local como pagada: primero por id interno si se
// conoce, si no por el id hospedado. El pago ya ocurrió en el procesador, así
// que un fallo aquí es una brecha de conciliación registrada, no un error del
// request.
func (uc *PayHostedInvoiceUseCase) recordPaid(ctx context.Context, local *entity.Invoice, invoiceID, stripeInvoiceID, paymentIntentID string) {
	now := time.Now()
	updated := false

	id := invoiceID
	if id == "" && local != nil {
		id = local.ID
	}
	if id != "" {
		expected := entity.InvoiceStatusSent
		if local != nil {
			expected = local.Status
		}
		ok, err := uc.invoiceRepo.MarkPaid(id, expected, entity.PaymentMethodStripe, paymentIntentID, now)
		if err != nil {
			uc.log.Error().Err(err).Str("invoice_id", id).Msg(domain.ErrReconciliationGap.Error())
		}
		updated = ok && err == nil
	}
	if !updated {
		ok, err := uc.invoiceRepo.MarkPaidByStripeInvoiceID(stripeInvoiceID, entity.PaymentMethodStripe, paymentIntentID, now)
		if err != nil {
			uc.log.Error().Err(err).Str("stripe_invoice_id", stripeInvoiceID).
				Msg(domain.ErrReconciliationGap.Error())
			return
		}
		if !ok {
			uc.log.Error().Str("stripe_invoice_id", stripeInvoiceID).
				Msg("pago hospedado sin factura local que actualizar")
			return
		}
	}

	if local != nil {
		local.Status = entity.InvoiceStatusPaid
		local.PaymentMethod = entity.PaymentMethodStripe
		local.StripePaymentIntentID = paymentIntentID
		local.PaidDate = &now
		if err := uc.notifier.PaymentReceived(ctx, local); err != nil {
			uc.log.Warn().Err(err).Str("invoice_id", local.ID).Msg("notificación de pago recibido")
		}
	}
}
