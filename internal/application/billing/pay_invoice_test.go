package billing_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/cleanpro-portal/internal/application/billing"
	"github.com/tu-usuario/cleanpro-portal/internal/application/dto"
	"github.com/tu-usuario/cleanpro-portal/internal/domain"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/entity"
	"github.com/tu-usuario/cleanpro-portal/pkg/logger"
)

func newPayUC(env *testEnv) *billing.PayInvoiceUseCase {
	return billing.NewPayInvoiceUseCase(
		env.invoiceRepo, env.customerRepo, env.gateway, env.notifier, logger.Nop(),
	)
}

// Caso feliz: cobro directo exitoso marca la factura como pagada y emite las
// notificaciones (fila del cliente, fila del staff y correo).
func TestPayInvoice_CobroExitosoMarcaPagada(t *testing.T) {
	env := newTestEnv(sentInvoice("160.00"))
	uc := newPayUC(env)

	out, err := uc.Pay(context.Background(), "cust-1", "inv-1", dto.PayInvoiceRequest{PaymentMethodID: "pm_card"})
	require.NoError(t, err)
	assert.Equal(t, dto.PaymentOutcomeSucceeded, out.Status)
	assert.NotEmpty(t, out.PaymentIntentID)

	inv, _ := env.invoiceRepo.GetByID("inv-1")
	assert.Equal(t, entity.InvoiceStatusPaid, inv.Status, "la factura debe quedar en paid")
	assert.Equal(t, entity.PaymentMethodStripe, inv.PaymentMethod)
	assert.Equal(t, out.PaymentIntentID, inv.StripePaymentIntentID)
	require.NotNil(t, inv.PaidDate, "paid_date debe asignarse al pagar")

	require.Len(t, env.notifRepo.rows, 1, "debe existir la notificación del cliente")
	assert.Equal(t, entity.NotificationPaymentReceived, env.notifRepo.rows[0].Type)
	assert.Len(t, env.adminRepo.rows, 1, "debe existir la notificación del staff")
	assert.Len(t, env.mailer.sent, 1, "debe enviarse el recibo por correo")
}

// El monto cobrado se deriva SIEMPRE del total almacenado en unidades menores:
// round(total*100). Nada del request puede alterarlo.
func TestPayInvoice_MontoCobradoDerivadoDelTotalAlmacenado(t *testing.T) {
	env := newTestEnv(sentInvoice("199.99"))
	uc := newPayUC(env)

	_, err := uc.Pay(context.Background(), "cust-1", "inv-1", dto.PayInvoiceRequest{PaymentMethodID: "pm_card"})
	require.NoError(t, err)

	require.Len(t, env.gateway.intentCalls, 1)
	call := env.gateway.intentCalls[0]
	assert.Equal(t, int64(19999), call.AmountCents, "el cobro debe ser round(total*100)")
	assert.Equal(t, "usd", call.Currency)
	assert.True(t, call.Confirm)
	assert.Equal(t, "pay-inv-1-pm_card", call.IdempotencyKey,
		"la clave de idempotencia debe ser determinística por (factura, instrumento)")
}

// Una factura ya pagada rechaza el cobro sin tocar el procesador.
func TestPayInvoice_FacturaPagadaRechazaSinLlamarGateway(t *testing.T) {
	inv := sentInvoice("160.00")
	inv.Status = entity.InvoiceStatusPaid
	env := newTestEnv(inv)
	uc := newPayUC(env)

	_, err := uc.Pay(context.Background(), "cust-1", "inv-1", dto.PayInvoiceRequest{PaymentMethodID: "pm_card"})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Empty(t, env.gateway.intentCalls, "no debe haber llamada al procesador")
}

// Una factura cancelada tampoco se puede cobrar.
func TestPayInvoice_FacturaCanceladaRechaza(t *testing.T) {
	inv := sentInvoice("160.00")
	inv.Status = entity.InvoiceStatusCancelled
	env := newTestEnv(inv)
	uc := newPayUC(env)

	_, err := uc.Pay(context.Background(), "cust-1", "inv-1", dto.PayInvoiceRequest{PaymentMethodID: "pm_card"})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

// Solo el dueño de la factura puede pagarla.
func TestPayInvoice_OtroClienteDevuelveForbidden(t *testing.T) {
	env := newTestEnv(sentInvoice("160.00"))
	uc := newPayUC(env)

	_, err := uc.Pay(context.Background(), "cust-otro", "inv-1", dto.PayInvoiceRequest{PaymentMethodID: "pm_card"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, env.gateway.intentCalls)
}

// Autenticación adicional del banco: se devuelve el client secret como token
// de continuación, la factura NO se marca pagada y la referencia del cobro
// queda persistida para el seguimiento.
func TestPayInvoice_RequiereAccionDevuelveClientSecret(t *testing.T) {
	env := newTestEnv(sentInvoice("160.00"))
	env.gateway.intentStatus = billing.IntentStatusRequiresAction
	uc := newPayUC(env)

	out, err := uc.Pay(context.Background(), "cust-1", "inv-1", dto.PayInvoiceRequest{PaymentMethodID: "pm_card"})
	require.NoError(t, err)
	assert.Equal(t, dto.PaymentOutcomeRequiresAction, out.Status)
	assert.Equal(t, "cs_test_secret", out.ClientSecret)

	inv, _ := env.invoiceRepo.GetByID("inv-1")
	assert.Equal(t, entity.InvoiceStatusSent, inv.Status, "el estado no cambia hasta completar la autenticación")
	assert.Equal(t, out.PaymentIntentID, inv.StripePaymentIntentID, "la referencia del cobro pendiente sí se persiste")
	assert.Empty(t, env.notifRepo.rows, "sin notificación hasta que el pago se confirme")
}

// Tarjeta rechazada: el error sube como ErrCardDeclined y no hay mutación local.
func TestPayInvoice_TarjetaRechazadaSinMutacionLocal(t *testing.T) {
	env := newTestEnv(sentInvoice("160.00"))
	env.gateway.intentErr = fmt.Errorf("%w: tarjeta sin fondos", domain.ErrCardDeclined)
	uc := newPayUC(env)

	_, err := uc.Pay(context.Background(), "cust-1", "inv-1", dto.PayInvoiceRequest{PaymentMethodID: "pm_card"})
	assert.ErrorIs(t, err, domain.ErrCardDeclined)

	inv, _ := env.invoiceRepo.GetByID("inv-1")
	assert.Equal(t, entity.InvoiceStatusSent, inv.Status)
	assert.Empty(t, inv.StripePaymentIntentID)
}

// Carrera de doble pago: si otro request ganó la transición sent→paid, este
// request no escribe ni notifica de nuevo (el cobro duplicado queda para
// conciliación, no para el cliente).
func TestPayInvoice_TransicionPerdidaNoDuplicaNotificacion(t *testing.T) {
	env := newTestEnv(sentInvoice("160.00"))
	env.invoiceRepo.forceLoseMarkPaid = true
	uc := newPayUC(env)

	out, err := uc.Pay(context.Background(), "cust-1", "inv-1", dto.PayInvoiceRequest{PaymentMethodID: "pm_card"})
	require.NoError(t, err)
	assert.Equal(t, dto.PaymentOutcomeSucceeded, out.Status)
	assert.Empty(t, env.notifRepo.rows, "la corrida que pierde el CAS no debe notificar")
	assert.Empty(t, env.adminRepo.rows)
}

// La identidad guardada del procesador se reusa si sigue siendo válida.
func TestPayInvoice_ReusaIdentidadGuardadaDelProcesador(t *testing.T) {
	env := newTestEnv(sentInvoice("160.00"))
	env.customerRepo.customers["cust-1"].StripeCustomerID = "cus_42"
	env.gateway.customers["cus_42"] = &billing.GatewayCustomer{ID: "cus_42", Email: "maria@example.com"}
	uc := newPayUC(env)

	_, err := uc.Pay(context.Background(), "cust-1", "inv-1", dto.PayInvoiceRequest{PaymentMethodID: "pm_card"})
	require.NoError(t, err)

	require.Len(t, env.gateway.intentCalls, 1)
	assert.Equal(t, "cus_42", env.gateway.intentCalls[0].CustomerID)
}

// Sin identidad válida se crea una nueva y se persiste de vuelta en el perfil.
func TestPayInvoice_CreaIdentidadYLaPersiste(t *testing.T) {
	env := newTestEnv(sentInvoice("160.00"))
	uc := newPayUC(env)

	_, err := uc.Pay(context.Background(), "cust-1", "inv-1", dto.PayInvoiceRequest{PaymentMethodID: "pm_card"})
	require.NoError(t, err)

	assert.Equal(t, "cus_new", env.customerRepo.savedStripeIDs["cust-1"],
		"la identidad nueva debe guardarse en el perfil del cliente")
}
