// Package apierr translates ledger errors into HTTP errors.
package apierr

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/minibank/minibank/internal/ledger"
)

// FromLedger maps a ledger error kind onto a fiber error with a matching status.
func FromLedger(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrSameAccount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrNothingToUndo):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
