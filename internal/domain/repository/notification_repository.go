package repository

import "github.com/tu-usuario/cleanpro-portal/internal/domain/entity"

// NotificationRepository define el puerto de notificaciones del cliente.
type NotificationRepository interface {
	Create(n *entity.Notification) error
	ListByCustomer(customerID string, limit, offset int) ([]*entity.Notification, error)
	// MarkRead marca como leída una notificación del cliente indicado.
	MarkRead(id, customerID string) error
}

// AdminNotificationRepository define el puerto de notificaciones del staff.
type AdminNotificationRepository interface {
	Create(n *entity.AdminNotification) error
	List(limit, offset int) ([]*entity.AdminNotification, error)
}
