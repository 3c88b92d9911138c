package audit

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the audit journal over HTTP.
type Handler struct {
	journal *Journal
}

// NewHandler builds an audit HTTP handler.
func NewHandler(journal *Journal) *Handler {
	return &Handler{journal: journal}
}

// List returns every audit entry, oldest first.
func (h *Handler) List(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(h.journal.Entries())
}

// Verify recomputes the hash chain.
func (h *Handler) Verify(c *fiber.Ctx) error {
	entries := h.journal.Entries()
	broken := verifyChain(entries)
	resp := fiber.Map{
		"valid":   broken == 0,
		"entries": len(entries),
	}
	if broken != 0 {
		resp["broken_at"] = broken
	}
	return c.Status(http.StatusOK).JSON(resp)
}
