package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/cleanpro-portal/internal/application/billing"
	"github.com/tu-usuario/cleanpro-portal/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	InvoiceUC      *billing.InvoiceUseCase
	PayInvoice     *billing.PayInvoiceUseCase
	PayHosted      *billing.PayHostedInvoiceUseCase
	ApplyCredit    *billing.ApplyCreditUseCase
	RefundInvoice  *billing.RefundInvoiceUseCase
	NotificationUC *billing.NotificationUseCase
	OverdueSweep   SweepRunner
	DueReminders   SweepRunner
	JWTSecret      string
	CronSecret     string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Cron (autenticado por secreto compartido, no por JWT)
	cron := api.Group("/cron")
	cronHandler := NewCronHandler(deps.CronSecret, deps.OverdueSweep, deps.DueReminders)
	cron.Post("/mark-overdue", cronHandler.MarkOverdue)
	cron.Post("/due-reminders", cronHandler.DueReminders)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Invoices (protegido)
	invoices := protected.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.InvoiceUC)
	paymentHandler := NewPaymentHandler(deps.PayInvoice, deps.PayHosted, deps.ApplyCredit, deps.RefundInvoice)
	invoices.Post("/", RequireRole(jwt.RoleAdmin), invoiceHandler.Create)
	invoices.Get("/", invoiceHandler.List)
	invoices.Post("/pay-hosted", RequireRole(jwt.RoleCustomer), paymentHandler.PayHosted)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Post("/:id/pay", RequireRole(jwt.RoleCustomer), paymentHandler.Pay)
	invoices.Post("/:id/credit", RequireRole(jwt.RoleAdmin), paymentHandler.ApplyCredit)
	invoices.Post("/:id/refund", RequireRole(jwt.RoleAdmin), paymentHandler.Refund)
	invoices.Post("/:id/cancel", RequireRole(jwt.RoleAdmin), invoiceHandler.Cancel)

	// Notifications (protegido, portal del cliente)
	notifications := protected.Group("/notifications", RequireRole(jwt.RoleCustomer))
	notificationHandler := NewNotificationHandler(deps.NotificationUC)
	notifications.Get("/", notificationHandler.List)
	notifications.Post("/:id/read", notificationHandler.MarkRead)
}
