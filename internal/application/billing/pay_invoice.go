package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/tu-usuario/cleanpro-portal/internal/application/dto"
	"github.com/tu-usuario/cleanpro-portal/internal/domain"
	domainbilling "github.com/tu-usuario/cleanpro-portal/internal/domain/billing"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/entity"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/repository"
	"github.com/tu-usuario/cleanpro-portal/pkg/logger"
)

// PayInvoiceUseCase cobro directo con payment intent: resuelve la identidad
// del cliente en el procesador, crea el cobro por el total almacenado y
// registra el resultado.
type PayInvoiceUseCase struct {
	invoiceRepo  repository.InvoiceRepository
	customerRepo repository.CustomerRepository
	gateway      PaymentGateway
	notifier     *Notifier
	log          *logger.Logger
}

// NewPayInvoiceUseCase construye el caso de uso.
func NewPayInvoiceUseCase(
	invoiceRepo repository.InvoiceRepository,
	customerRepo repository.CustomerRepository,
	gateway PaymentGateway,
	notifier *Notifier,
	log *logger.Logger,
) *PayInvoiceUseCase {
	return &PayInvoiceUseCase{
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		gateway:      gateway,
		notifier:     notifier,
		log:          log,
	}
}

// Pay intenta cobrar la factura al instrumento indicado (o al guardado).
// callerCustomerID debe ser el dueño de la factura.
//
// El monto cobrado es round(total*100) derivado SIEMPRE del total almacenado;
// un monto en el body del request jamás cambia lo cobrado. Si el procesador
// exige autenticación adicional, devuelve el client secret como token de
// continuación sin marcar la factura.
func (uc *PayInvoiceUseCase) Pay(ctx context.Context, callerCustomerID, invoiceID string, in dto.PayInvoiceRequest) (*dto.PayInvoiceResponse, error) {
	inv, err := uc.invoiceRepo.GetByID(invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if inv.CustomerID == "" || inv.CustomerID != callerCustomerID {
		return nil, domain.ErrForbidden
	}
	if !domainbilling.CanApplyPayment(inv.Status) {
		return nil, domain.ErrInvalidState
	}
	if !inv.Total.IsPositive() {
		return nil, fmt.Errorf("%w: la factura no tiene saldo a cobrar", domain.ErrInvalidInput)
	}

	customer, err := uc.customerRepo.GetByID(inv.CustomerID)
	if err != nil || customer == nil {
		return nil, domain.ErrNotFound
	}

	stripeCustomerID, err := uc.resolveGatewayCustomer(ctx, customer, in.PaymentMethodID)
	if err != nil {
		return nil, err
	}

	paymentMethodID := in.PaymentMethodID
	if paymentMethodID == "" {
		paymentMethodID = customer.DefaultPaymentMethodID
	}

	pi, err := uc.gateway.CreatePaymentIntent(ctx, PaymentIntentParams{
		AmountCents:     domainbilling.MinorUnits(inv.Total),
		Currency:        "usd",
		CustomerID:      stripeCustomerID,
		PaymentMethodID: paymentMethodID,
		Confirm:         true,
		Description:     fmt.Sprintf("Invoice %s", inv.InvoiceNumber),
		// Clave determinística por (factura, instrumento): un doble submit con
		// el mismo instrumento no genera un segundo cobro en el procesador.
		IdempotencyKey: fmt.Sprintf("pay-%s-%s", inv.ID, paymentMethodID),
		Metadata: map[string]string{
			"invoice_id":     inv.ID,
			"invoice_number": inv.InvoiceNumber,
		},
	})
	if err != nil {
		// Sin mutación local: el guard y el cobro fallido no dejan rastro.
		return nil, err
	}

	switch pi.Status {
	case IntentStatusSucceeded:
		uc.recordPaid(ctx, inv, pi.ID)
		return &dto.PayInvoiceResponse{
			Status:          dto.PaymentOutcomeSucceeded,
			PaymentIntentID: pi.ID,
		}, nil

	case IntentStatusRequiresAction:
		// Persistir la referencia del cobro sin cambiar estado; el cliente
		// completa la autenticación con el client secret.
		if err := uc.invoiceRepo.SetPaymentIntentID(inv.ID, pi.ID); err != nil {
			uc.log.Error().Err(err).Str("invoice_id", inv.ID).Str("payment_intent", pi.ID).
				Msg("persistir payment intent pendiente")
		}
		return &dto.PayInvoiceResponse{
			Status:          dto.PaymentOutcomeRequiresAction,
			PaymentIntentID: pi.ID,
			ClientSecret:    pi.ClientSecret,
		}, nil

	case IntentStatusRequiresPaymentMethod:
		// Instrumento rechazado/ausente: token de continuación sin persistir nada.
		return &dto.PayInvoiceResponse{
			Status:          dto.PaymentOutcomeRequiresPaymentMethod,
			PaymentIntentID: pi.ID,
			ClientSecret:    pi.ClientSecret,
		}, nil

	default:
		return nil, fmt.Errorf("%w: estado inesperado del cobro: %s", domain.ErrPaymentFailed, pi.Status)
	}
}

// resolveGatewayCustomer resuelve la identidad del cliente en el procesador:
// 1) la guardada, validando que siga existiendo; 2) la asociada al instrumento
// recibido; 3) una nueva. Si cambió, se persiste de vuelta en el perfil.
func (uc *PayInvoiceUseCase) resolveGatewayCustomer(ctx context.Context, customer *entity.Customer, paymentMethodID string) (string, error) {
	resolved := ""

	if customer.StripeCustomerID != "" {
		gc, err := uc.gateway.RetrieveCustomer(ctx, customer.StripeCustomerID)
		if err == nil && gc != nil && !gc.Deleted {
			resolved = gc.ID
		} else if err != nil {
			uc.log.Warn().Err(err).Str("customer_id", customer.ID).
				Str("stripe_customer", customer.StripeCustomerID).
				Msg("identidad guardada en el procesador ya no es válida")
		}
	}

	if resolved == "" && paymentMethodID != "" {
		pm, err := uc.gateway.RetrievePaymentMethod(ctx, paymentMethodID)
		if err == nil && pm != nil && pm.CustomerID != "" {
			resolved = pm.CustomerID
		}
	}

	if resolved == "" {
		gc, err := uc.gateway.CreateCustomer(ctx, CustomerParams{
			Email:    customer.Email,
			Name:     customer.Name,
			Metadata: map[string]string{"customer_id": customer.ID},
		})
		if err != nil {
			return "", err
		}
		resolved = gc.ID
	}

	if resolved != customer.StripeCustomerID {
		if err := uc.customerRepo.UpdateStripeCustomerID(customer.ID, resolved); err != nil {
			// Solo se pierde el cacheo de identidad; el cobro puede continuar.
			uc.log.Warn().Err(err).Str("customer_id", customer.ID).
				Msg("persistir identidad del procesador")
		}
	}
	return resolved, nil
}

// recordPaid escribe la transición a paid con compare-and-set y emite las
// notificaciones. El dinero ya se movió: todo fallo aquí es best-effort y se
// registra como brecha de conciliación, nunca se devuelve al cliente.
func (uc *PayInvoiceUseCase) recordPaid(ctx context.Context, inv *entity.Invoice, paymentIntentID string) {
	now := time.Now()
	ok, err := uc.invoiceRepo.MarkPaid(inv.ID, inv.Status, entity.PaymentMethodStripe, paymentIntentID, now)
	if err != nil {
		uc.log.Error().Err(err).Str("invoice_id", inv.ID).Str("payment_intent", paymentIntentID).
			Msg(domain.ErrReconciliationGap.Error())
		return
	}
	if !ok {
		// Otro request ganó la transición: el cobro de este request quedó
		// duplicado en el procesador y requiere conciliación manual.
		uc.log.Error().Str("invoice_id", inv.ID).Str("payment_intent", paymentIntentID).
			Msg("transición sent→paid perdida contra un pago concurrente; posible cobro duplicado")
		return
	}

	inv.Status = entity.InvoiceStatusPaid
	inv.PaymentMethod = entity.PaymentMethodStripe
	inv.StripePaymentIntentID = paymentIntentID
	inv.PaidDate = &now
	if err := uc.notifier.PaymentReceived(ctx, inv); err != nil {
		uc.log.Warn().Err(err).Str("invoice_id", inv.ID).Msg("notificación de pago recibido")
	}
}
