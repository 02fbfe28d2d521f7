package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tu-usuario/cleanpro-portal/internal/domain"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/entity"
	"github.com/tu-usuario/cleanpro-portal/internal/domain/repository"
)

var _ repository.NotificationRepository = (*NotificationRepo)(nil)
var _ repository.AdminNotificationRepository = (*AdminNotificationRepo)(nil)

// NotificationRepo implementación de NotificationRepository (cliente).
type NotificationRepo struct {
	q Querier
}

// NewNotificationRepository construye el adaptador.
func NewNotificationRepository(q Querier) *NotificationRepo {
	return &NotificationRepo{q: q}
}

// Create inserta la notificación del cliente (no leída).
func (r *NotificationRepo) Create(n *entity.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	query := `
		INSERT INTO notifications (id, customer_id, invoice_id, type, title, message, link, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)`
	_, err := r.q.Exec(context.Background(), query,
		n.ID, n.CustomerID, nullIfEmpty(n.InvoiceID), n.Type,
		n.Title, n.Message, nullIfEmpty(n.Link), n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListByCustomer notificaciones del cliente, más recientes primero.
func (r *NotificationRepo) ListByCustomer(customerID string, limit, offset int) ([]*entity.Notification, error) {
	query := `
		SELECT id, customer_id, invoice_id, type, title, message, link, read, created_at
		FROM notifications WHERE customer_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(context.Background(), query, customerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	var out []*entity.Notification
	for rows.Next() {
		var n entity.Notification
		var invoiceID, link *string
		if err := rows.Scan(&n.ID, &n.CustomerID, &invoiceID, &n.Type,
			&n.Title, &n.Message, &link, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.InvoiceID = derefStr(invoiceID)
		n.Link = derefStr(link)
		out = append(out, &n)
	}
	return out, rows.Err()
}

// MarkRead marca como leída; el filtro por customer_id evita marcar ajenas.
func (r *NotificationRepo) MarkRead(id, customerID string) error {
	query := `UPDATE notifications SET read = true WHERE id = $1 AND customer_id = $2`
	tag, err := r.q.Exec(context.Background(), query, id, customerID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AdminNotificationRepo implementación de AdminNotificationRepository (staff).
type AdminNotificationRepo struct {
	q Querier
}

// NewAdminNotificationRepository construye el adaptador.
func NewAdminNotificationRepository(q Querier) *AdminNotificationRepo {
	return &AdminNotificationRepo{q: q}
}

// Create inserta la notificación del staff.
func (r *AdminNotificationRepo) Create(n *entity.AdminNotification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	query := `
		INSERT INTO admin_notifications (id, invoice_id, type, title, message, link, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(context.Background(), query,
		n.ID, nullIfEmpty(n.InvoiceID), n.Type, n.Title, n.Message, nullIfEmpty(n.Link), n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert admin notification: %w", err)
	}
	return nil
}

// List notificaciones del staff, más recientes primero.
func (r *AdminNotificationRepo) List(limit, offset int) ([]*entity.AdminNotification, error) {
	query := `
		SELECT id, invoice_id, type, title, message, link, created_at
		FROM admin_notifications ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(context.Background(), query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list admin notifications: %w", err)
	}
	defer rows.Close()
	var out []*entity.AdminNotification
	for rows.Next() {
		var n entity.AdminNotification
		var invoiceID, link *string
		if err := rows.Scan(&n.ID, &invoiceID, &n.Type, &n.Title, &n.Message, &link, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan admin notification: %w", err)
		}
		n.InvoiceID = derefStr(invoiceID)
		n.Link = derefStr(link)
		out = append(out, &n)
	}
	return out, rows.Err()
}
