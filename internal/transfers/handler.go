package transfers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/minibank/minibank/internal/apierr"
	"github.com/minibank/minibank/internal/ledger"
)

const defaultNote = "manual"

// Ledger is the subset of the core ledger used by transfer and undo endpoints.
type Ledger interface {
	Transfer(from, to int, amount decimal.Decimal, note string) (ledger.TransferResult, error)
	Undo() (ledger.UndoResult, error)
	Log() []ledger.Transaction
}

// Handler exposes transfer, undo and journal endpoints.
type Handler struct {
	ledger Ledger
}

// NewHandler constructs a transfer handler.
func NewHandler(l Ledger) *Handler {
	return &Handler{ledger: l}
}

type transferRequest struct {
	From   int             `json:"from"`
	To     int             `json:"to"`
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

type undoResponse struct {
	Transfer      bool                 `json:"transfer"`
	Reversed      []ledger.Transaction `json:"reversed"`
	Compensations []ledger.Transaction `json:"compensations"`
}

// Transfer moves funds between two accounts.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	note := req.Note
	if note == "" {
		note = defaultNote
	}
	res, err := h.ledger.Transfer(req.From, req.To, req.Amount, note)
	if err != nil {
		return apierr.FromLedger(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transfer_id":  res.TransferID,
		"from":         req.From,
		"to":           req.To,
		"from_balance": res.FromBalance,
		"to_balance":   res.ToBalance,
	})
}

// Undo reverses the most recent operation or transfer pair.
func (h *Handler) Undo(c *fiber.Ctx) error {
	res, err := h.ledger.Undo()
	if err != nil {
		return apierr.FromLedger(err)
	}
	return c.Status(http.StatusOK).JSON(undoResponse{
		Transfer:      res.Transfer,
		Reversed:      res.Reversed,
		Compensations: res.Compensations,
	})
}

// Journal returns the global transaction log, oldest first.
func (h *Handler) Journal(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(h.ledger.Log())
}
