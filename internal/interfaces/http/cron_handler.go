package http

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/cleanpro-portal/internal/application/dto"
)

// SweepRunner es un barrido programado ejecutable vía HTTP.
type SweepRunner interface {
	Run(ctx context.Context) (*dto.SweepResult, error)
}

// CronHandler expone los barridos programados (overdue y recordatorios) a un
// scheduler externo. Autenticado por secreto compartido, no por JWT.
type CronHandler struct {
	secret    string
	overdue   SweepRunner
	reminders SweepRunner
}

// NewCronHandler construye el handler.
func NewCronHandler(secret string, overdue, reminders SweepRunner) *CronHandler {
	return &CronHandler{secret: secret, overdue: overdue, reminders: reminders}
}

// authorize valida `Authorization: Bearer <CRON_SECRET>` antes de tocar nada.
func (h *CronHandler) authorize(c *fiber.Ctx) bool {
	if h.secret == "" {
		return false
	}
	authHeader := c.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(parts[1])), []byte(h.secret)) == 1
}

// MarkOverdue ejecuta el barrido de facturas vencidas.
// POST /api/cron/mark-overdue
func (h *CronHandler) MarkOverdue(c *fiber.Ctx) error {
	if !h.authorize(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "secreto de cron inválido"})
	}
	out, err := h.overdue.Run(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(out)
}

// DueReminders ejecuta el barrido de recordatorios del día de vencimiento.
// POST /api/cron/due-reminders
func (h *CronHandler) DueReminders(c *fiber.Ctx) error {
	if !h.authorize(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "secreto de cron inválido"})
	}
	out, err := h.reminders.Run(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(out)
}
