package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/tu-usuario/cleanpro-portal/internal/application/billing"
	"github.com/tu-usuario/cleanpro-portal/internal/domain"
)

var _ billing.PaymentGateway = (*Gateway)(nil)

// Gateway adaptador del puerto PaymentGateway sobre la API de Stripe.
// Usa un client.API propio (no el estado global del paquete) y traduce los
// errores del SDK a sentinelas de dominio para que stripe-go no se filtre a
// la capa de aplicación.
type Gateway struct {
	client *client.API
}

// NewGateway construye el adaptador con la secret key.
func NewGateway(apiKey string) *Gateway {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &Gateway{client: sc}
}

// RetrieveCustomer obtiene la identidad del cliente en Stripe.
func (g *Gateway) RetrieveCustomer(ctx context.Context, id string) (*billing.GatewayCustomer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	c, err := g.client.Customers.Get(id, params)
	if err != nil {
		return nil, g.mapError(err)
	}
	return &billing.GatewayCustomer{ID: c.ID, Email: c.Email, Deleted: c.Deleted}, nil
}

// CreateCustomer crea la identidad del cliente en Stripe.
func (g *Gateway) CreateCustomer(ctx context.Context, p billing.CustomerParams) (*billing.GatewayCustomer, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(p.Email),
		Name:  stripe.String(p.Name),
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	c, err := g.client.Customers.New(params)
	if err != nil {
		return nil, g.mapError(err)
	}
	return &billing.GatewayCustomer{ID: c.ID, Email: c.Email}, nil
}

// CreatePaymentIntent crea y confirma el cobro. El monto ya llega en
// unidades menores enteras.
func (g *Gateway) CreatePaymentIntent(ctx context.Context, p billing.PaymentIntentParams) (*billing.PaymentIntentResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(p.AmountCents),
		Currency:    stripe.String(p.Currency),
		Description: stripe.String(p.Description),
	}
	params.Context = ctx
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	}
	if p.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(p.PaymentMethodID)
	}
	if p.Confirm {
		params.Confirm = stripe.Bool(true)
	}
	if p.IdempotencyKey != "" {
		// Evita un segundo cobro en Stripe si la red falla pero Stripe ya cobró.
		params.IdempotencyKey = stripe.String(p.IdempotencyKey)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	pi, err := g.client.PaymentIntents.New(params)
	if err != nil {
		return nil, g.mapError(err)
	}
	return toIntentResult(pi), nil
}

// RetrievePaymentIntent obtiene el estado actual del cobro.
func (g *Gateway) RetrievePaymentIntent(ctx context.Context, id string) (*billing.PaymentIntentResult, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.client.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, g.mapError(err)
	}
	return toIntentResult(pi), nil
}

// RetrieveInvoice obtiene la factura hospedada; resource_missing sube como
// domain.ErrNotFound para habilitar el fallback a cobro directo.
func (g *Gateway) RetrieveInvoice(ctx context.Context, id string) (*billing.HostedInvoice, error) {
	params := &stripe.InvoiceParams{}
	params.Context = ctx
	in, err := g.client.Invoices.Get(id, params)
	if err != nil {
		return nil, g.mapError(err)
	}
	return toHostedInvoice(in), nil
}

// PayInvoice paga la factura hospedada con el instrumento indicado.
func (g *Gateway) PayInvoice(ctx context.Context, id, paymentMethodID string) (*billing.HostedInvoice, error) {
	params := &stripe.InvoicePayParams{
		PaymentMethod: stripe.String(paymentMethodID),
	}
	params.Context = ctx
	in, err := g.client.Invoices.Pay(id, params)
	if err != nil {
		return nil, g.mapError(err)
	}
	return toHostedInvoice(in), nil
}

// VoidInvoice anula la factura hospedada.
func (g *Gateway) VoidInvoice(ctx context.Context, id string) error {
	params := &stripe.InvoiceVoidInvoiceParams{}
	params.Context = ctx
	_, err := g.client.Invoices.VoidInvoice(id, params)
	if err != nil {
		return g.mapError(err)
	}
	return nil
}

// AttachPaymentMethod asocia el instrumento al cliente de Stripe.
// "ya estaba asociado" se trata como éxito.
func (g *Gateway) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error {
	params := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx
	_, err := g.client.PaymentMethods.Attach(paymentMethodID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && strings.Contains(stripeErr.Msg, "already been attached") {
			return nil
		}
		return g.mapError(err)
	}
	return nil
}

// RetrievePaymentMethod obtiene el instrumento y su cliente asociado.
func (g *Gateway) RetrievePaymentMethod(ctx context.Context, id string) (*billing.GatewayPaymentMethod, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx
	pm, err := g.client.PaymentMethods.Get(id, params)
	if err != nil {
		return nil, g.mapError(err)
	}
	out := &billing.GatewayPaymentMethod{ID: pm.ID}
	if pm.Customer != nil {
		out.CustomerID = pm.Customer.ID
	}
	if pm.Card != nil {
		out.Brand = string(pm.Card.Brand)
		out.Last4 = pm.Card.Last4
	}
	return out, nil
}

// CreateRefund emite el reembolso contra el payment intent original.
// Stripe solo acepta motivos de su enum, así que el motivo libre viaja en
// metadata.
func (g *Gateway) CreateRefund(ctx context.Context, p billing.RefundParams) (*billing.RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(p.PaymentIntentID),
		Amount:        stripe.Int64(p.AmountCents),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.Reason != "" {
		params.AddMetadata("reason", p.Reason)
	}
	ref, err := g.client.Refunds.New(params)
	if err != nil {
		return nil, g.mapError(err)
	}
	return &billing.RefundResult{ID: ref.ID, Status: string(ref.Status)}, nil
}

func toIntentResult(pi *stripe.PaymentIntent) *billing.PaymentIntentResult {
	out := &billing.PaymentIntentResult{
		ID:           pi.ID,
		Status:       string(pi.Status),
		ClientSecret: pi.ClientSecret,
	}
	if pi.LatestCharge != nil {
		out.ChargeID = pi.LatestCharge.ID
	}
	return out
}

func toHostedInvoice(in *stripe.Invoice) *billing.HostedInvoice {
	out := &billing.HostedInvoice{
		ID:             in.ID,
		Status:         string(in.Status),
		AmountDueCents: in.AmountDue,
	}
	if in.Customer != nil {
		out.CustomerID = in.Customer.ID
	}
	if in.PaymentIntent != nil {
		out.PaymentIntentID = in.PaymentIntent.ID
	}
	if in.Charge != nil {
		out.ChargeID = in.Charge.ID
	}
	return out
}

// mapError traduce errores del SDK a sentinelas de dominio. El rechazo de
// tarjeta se distingue de fallas genéricas; un 5xx del procesador sube como
// no-disponible para que el caller lo trate como resultado desconocido.
func (g *Gateway) mapError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Code {
		case stripe.ErrorCodeCardDeclined, stripe.ErrorCodeExpiredCard, stripe.ErrorCodeIncorrectCVC:
			return fmt.Errorf("%w: %s", domain.ErrCardDeclined, stripeErr.Msg)
		case stripe.ErrorCodeResourceMissing:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, stripeErr.Msg)
		case stripe.ErrorCodeInvoicePaymentIntentRequiresAction:
			return fmt.Errorf("%w: %s", domain.ErrPaymentActionRequired, stripeErr.Msg)
		}
		if stripeErr.HTTPStatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %s", domain.ErrGatewayUnavailable, stripeErr.Msg)
		}
		return fmt.Errorf("%w: %s", domain.ErrPaymentFailed, stripeErr.Msg)
	}
	return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
}
