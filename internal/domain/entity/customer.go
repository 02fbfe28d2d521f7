package entity

import "time"

// Customer representa un cliente del portal (facturación y notificaciones).
type Customer struct {
	ID                     string
	Name                   string
	Email                  string
	Phone                  string
	StripeCustomerID       string // identidad en el procesador; puede quedar obsoleta y resolverse de nuevo
	DefaultPaymentMethodID string // instrumento guardado para reuso (opcional)
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
