package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	appbilling "github.com/tu-usuario/cleanpro-portal/internal/application/billing"
	"github.com/tu-usuario/cleanpro-portal/internal/application/scheduler"
	"github.com/tu-usuario/cleanpro-portal/internal/infrastructure/mail"
	"github.com/tu-usuario/cleanpro-portal/internal/infrastructure/postgres"
	infrastripe "github.com/tu-usuario/cleanpro-portal/internal/infrastructure/stripe"
	httpRouter "github.com/tu-usuario/cleanpro-portal/internal/interfaces/http"
	"github.com/tu-usuario/cleanpro-portal/pkg/config"
	"github.com/tu-usuario/cleanpro-portal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	invoiceRepo := postgres.NewInvoiceRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	creditRepo := postgres.NewCreditRecordRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	adminNotificationRepo := postgres.NewAdminNotificationRepository(pool)

	gateway := infrastripe.NewGateway(cfg.Stripe.SecretKey)
	mailer := mail.NewSender(cfg.Mail)
	notifier := appbilling.NewNotifier(
		notificationRepo, adminNotificationRepo, customerRepo,
		mailer, log, cfg.Billing.PortalBaseURL,
	)

	invoiceUC := appbilling.NewInvoiceUseCase(invoiceRepo, customerRepo, gateway, log, cfg.Billing.DefaultDueDays)
	payInvoiceUC := appbilling.NewPayInvoiceUseCase(invoiceRepo, customerRepo, gateway, notifier, log)
	payHostedUC := appbilling.NewPayHostedInvoiceUseCase(invoiceRepo, customerRepo, gateway, notifier, log)
	applyCreditUC := appbilling.NewApplyCreditUseCase(invoiceRepo, creditRepo, notifier, log)
	refundUC := appbilling.NewRefundInvoiceUseCase(invoiceRepo, gateway, notifier, log)
	notificationUC := appbilling.NewNotificationUseCase(notificationRepo)

	overdueSweepUC := scheduler.NewOverdueSweepUseCase(invoiceRepo, notifier, log, cfg.Billing.OverdueGraceDays)
	dueRemindersUC := scheduler.NewDueRemindersUseCase(invoiceRepo, notifier, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "CleanPro Portal API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		InvoiceUC:      invoiceUC,
		PayInvoice:     payInvoiceUC,
		PayHosted:      payHostedUC,
		ApplyCredit:    applyCreditUC,
		RefundInvoice:  refundUC,
		NotificationUC: notificationUC,
		OverdueSweep:   overdueSweepUC,
		DueReminders:   dueRemindersUC,
		JWTSecret:      cfg.JWT.Secret,
		CronSecret:     cfg.Cron.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
