package billing

import (
	"context"
	"time"

	"github.com/tu-usuario/cleanpro-portal/internal/application/dto"
	"github.com/tu-usuario/cleanpro-portal/internal/domain"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/repository"
)

// NotificationUseCase consulta y marcado de leído de notificaciones del cliente.
type NotificationUseCase struct {
	repo repository.NotificationRepository
}

// NewNotificationUseCase construye el caso de uso.
func NewNotificationUseCase(repo repository.NotificationRepository) *NotificationUseCase {
	return &NotificationUseCase{repo: repo}
}

// List lista las notificaciones del cliente autenticado.
func (uc *NotificationUseCase) List(ctx context.Context, customerID string, limit, offset int) ([]*dto.NotificationResponse, error) {
	if customerID == "" {
		return nil, domain.ErrUnauthorized
	}
	list, err := uc.repo.ListByCustomer(customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.NotificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, &dto.NotificationResponse{
			ID:        n.ID,
			InvoiceID: n.InvoiceID,
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			Link:      n.Link,
			Read:      n.Read,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		})
	}
	return out, nil
}

// MarkRead marca como leída una notificación propia.
func (uc *NotificationUseCase) MarkRead(ctx context.Context, customerID, id string) error {
	if customerID == "" {
		return domain.ErrUnauthorized
	}
	return uc.repo.MarkRead(id, customerID)
}
