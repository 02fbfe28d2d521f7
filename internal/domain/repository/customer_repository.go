package repository

import "github.com/tu-usuario/cleanpro-portal/internal/domain/entity"

// CustomerRepository define el puerto de persistencia para Customer.
type CustomerRepository interface {
	Create(customer *entity.Customer) error
	GetByID(id string) (*entity.Customer, error)
	GetByEmail(email string) (*entity.Customer, error)
	List(limit, offset int) ([]*entity.Customer, error)
	// UpdateStripeCustomerID persiste la identidad resuelta en el procesador.
	UpdateStripeCustomerID(id, stripeCustomerID string) error
	// UpdateDefaultPaymentMethod guarda el instrumento preferido para reuso.
	UpdateDefaultPaymentMethod(id, paymentMethodID string) error
}
