package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/minibank/minibank/internal/audit"
	"github.com/minibank/minibank/internal/transfers"
)

// RegisterTransferRoutes wires transfer, undo and journal endpoints.
func RegisterTransferRoutes(r fiber.Router, h *transfers.Handler) {
	r.Post("/transfers", h.Transfer)
	r.Post("/undo", h.Undo)
	r.Get("/journal", h.Journal)
}

// RegisterAuditRoutes wires the audit trail endpoints.
func RegisterAuditRoutes(r fiber.Router, h *audit.Handler) {
	r.Get("/audit", h.List)
	r.Get("/audit/verify", h.Verify)
}
