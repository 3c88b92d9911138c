package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/minibank/minibank/internal/accounts"
)

// RegisterAccountRoutes wires account endpoints.
func RegisterAccountRoutes(r fiber.Router, h *accounts.Handler) {
	r.Post("/accounts", h.Create)
	r.Get("/accounts", h.List)
	r.Get("/accounts/:accountId", h.Get)
	r.Post("/accounts/:accountId/deposit", h.Deposit)
	r.Post("/accounts/:accountId/withdraw", h.Withdraw)
}
