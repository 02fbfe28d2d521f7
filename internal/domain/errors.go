package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")

	// ErrInvalidState: la operación viola el estado actual de la factura
	// (ej. pagar una factura ya pagada, cancelar una cancelada).
	ErrInvalidState = errors.New("estado de factura inválido para la operación")

	// ErrNoChargeReference: la factura pagada no tiene referencia de cobro
	// en el procesador y no se pudo recuperar (sin ella no hay reembolso posible).
	ErrNoChargeReference = errors.New("sin referencia de cobro en el procesador")

	// Errores del procesador de pagos.
	ErrPaymentFailed          = errors.New("el procesador rechazó el pago")
	ErrCardDeclined           = errors.New("tarjeta rechazada")
	ErrPaymentActionRequired  = errors.New("el pago requiere acción adicional del cliente")
	ErrGatewayUnavailable     = errors.New("procesador de pagos no disponible")
	ErrUsePaymentIntentFallback = errors.New("la factura hospedada ya no existe; usar pago directo")

	// ErrReconciliationGap: el procesador confirmó el movimiento de dinero pero
	// la escritura local falló. Se registra para seguimiento manual; nunca se
	// reintenta automáticamente ni se devuelve al cliente.
	ErrReconciliationGap = errors.New("pago confirmado por el procesador sin registro local")
)
