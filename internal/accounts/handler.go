package accounts

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/minibank/minibank/internal/apierr"
	"github.com/minibank/minibank/internal/ledger"
)

const defaultNote = "manual"

// Ledger is the subset of the core ledger used by the account endpoints.
type Ledger interface {
	CreateAccount(owner string, initial decimal.Decimal) (int, error)
	Deposit(id int, amount decimal.Decimal, note string) (ledger.AccountSummary, error)
	Withdraw(id int, amount decimal.Decimal, note string) (ledger.AccountSummary, error)
	Accounts() []ledger.AccountSummary
	Account(id int) (ledger.AccountView, error)
}

// Handler exposes account HTTP endpoints.
type Handler struct {
	ledger Ledger
}

// NewHandler builds an account HTTP handler.
func NewHandler(l Ledger) *Handler {
	return &Handler{ledger: l}
}

type createRequest struct {
	Owner          string          `json:"owner"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type movementRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

type summaryResponse struct {
	ID      int             `json:"id"`
	Owner   string          `json:"owner"`
	Balance decimal.Decimal `json:"balance"`
}

type accountResponse struct {
	ID      int                  `json:"id"`
	Owner   string               `json:"owner"`
	Kind    string               `json:"kind"`
	Balance decimal.Decimal      `json:"balance"`
	History []ledger.Transaction `json:"history"`
}

// Create opens an account with an optional initial balance.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	owner := strings.TrimSpace(req.Owner)
	if owner == "" {
		return fiber.NewError(http.StatusBadRequest, "owner is required")
	}
	id, err := h.ledger.CreateAccount(owner, req.InitialBalance)
	if err != nil {
		return apierr.FromLedger(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"id": id})
}

// List returns every account ordered by id.
func (h *Handler) List(c *fiber.Ctx) error {
	accounts := h.ledger.Accounts()
	out := make([]summaryResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, summaryResponse{ID: a.ID, Owner: a.Owner, Balance: a.Balance})
	}
	return c.Status(http.StatusOK).JSON(out)
}

// Get returns an account with its history.
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := accountID(c)
	if err != nil {
		return err
	}
	view, err := h.ledger.Account(id)
	if err != nil {
		return apierr.FromLedger(err)
	}
	history := view.History
	if history == nil {
		history = []ledger.Transaction{}
	}
	return c.Status(http.StatusOK).JSON(accountResponse{
		ID:      view.ID,
		Owner:   view.Owner,
		Kind:    string(view.Kind),
		Balance: view.Balance,
		History: history,
	})
}

// Deposit credits the account in the path.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	return h.move(c, h.ledger.Deposit)
}

// Withdraw debits the account in the path.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	return h.move(c, h.ledger.Withdraw)
}

func (h *Handler) move(c *fiber.Ctx, op func(int, decimal.Decimal, string) (ledger.AccountSummary, error)) error {
	id, err := accountID(c)
	if err != nil {
		return err
	}
	var req movementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	note := req.Note
	if note == "" {
		note = defaultNote
	}
	after, err := op(id, req.Amount, note)
	if err != nil {
		return apierr.FromLedger(err)
	}
	return c.Status(http.StatusOK).JSON(summaryResponse{ID: after.ID, Owner: after.Owner, Balance: after.Balance})
}

func accountID(c *fiber.Ctx) (int, error) {
	id, err := c.ParamsInt("accountId")
	if err != nil {
		return 0, fiber.NewError(http.StatusBadRequest, "account id must be an integer")
	}
	return id, nil
}
