package billing

import "context"

// Estados de un payment intent del procesador que el core interpreta.
const (
	IntentStatusSucceeded             = "succeeded"
	IntentStatusRequiresAction        = "requires_action"
	IntentStatusRequiresPaymentMethod = "requires_payment_method"
	IntentStatusProcessing            = "processing"
)

// GatewayCustomer identidad del cliente en el procesador.
type GatewayCustomer struct {
	ID      string
	Email   string
	Deleted bool
}

// CustomerParams parámetros para crear la identidad en el procesador.
type CustomerParams struct {
	Email    string
	Name     string
	Metadata map[string]string
}

// PaymentIntentParams parámetros de un cobro directo. AmountCents siempre en
// unidades menores enteras, derivado del total almacenado de la factura.
type PaymentIntentParams struct {
	AmountCents     int64
	Currency        string
	CustomerID      string
	PaymentMethodID string
	Confirm         bool
	Description     string
	IdempotencyKey  string
	Metadata        map[string]string
}

// PaymentIntentResult estado del cobro tras la llamada al procesador.
type PaymentIntentResult struct {
	ID           string
	Status       string
	ClientSecret string
	ChargeID     string
}

// HostedInvoice factura hospedada en el procesador (documento de cobro
// vinculado a la factura local solo por metadata).
type HostedInvoice struct {
	ID              string
	CustomerID      string
	Status          string
	PaymentIntentID string
	ChargeID        string
	AmountDueCents  int64
}

// GatewayPaymentMethod instrumento de pago en el procesador.
type GatewayPaymentMethod struct {
	ID         string
	CustomerID string
	Brand      string
	Last4      string
}

// RefundParams parámetros de un reembolso contra un cobro previo.
type RefundParams struct {
	PaymentIntentID string
	AmountCents     int64
	Reason          string
	Metadata        map[string]string
}

// RefundResult confirmación del reembolso.
type RefundResult struct {
	ID     string
	Status string
}

// PaymentGateway puerto hacia el procesador de pagos. Todas las llamadas son
// RPC síncronas que pueden fallar con independencia de las escrituras locales;
// los adaptadores traducen errores remotos a sentinelas de dominio
// (ErrCardDeclined, ErrNotFound, ErrGatewayUnavailable, ...).
type PaymentGateway interface {
	RetrieveCustomer(ctx context.Context, id string) (*GatewayCustomer, error)
	CreateCustomer(ctx context.Context, params CustomerParams) (*GatewayCustomer, error)

	CreatePaymentIntent(ctx context.Context, params PaymentIntentParams) (*PaymentIntentResult, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntentResult, error)

	RetrieveInvoice(ctx context.Context, id string) (*HostedInvoice, error)
	// PayInvoice paga la factura hospedada con el instrumento indicado.
	PayInvoice(ctx context.Context, id, paymentMethodID string) (*HostedInvoice, error)
	// VoidInvoice anula la factura hospedada (al cancelar la local).
	VoidInvoice(ctx context.Context, id string) error

	// AttachPaymentMethod asocia el instrumento al cliente del procesador.
	// "ya estaba asociado" no es error.
	AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error
	RetrievePaymentMethod(ctx context.Context, id string) (*GatewayPaymentMethod, error)

	CreateRefund(ctx context.Context, params RefundParams) (*RefundResult, error)
}

// Mailer puerto de correo transaccional, fire-and-forget: el que llama
// registra el error y nunca lo propaga al flujo de dinero.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
