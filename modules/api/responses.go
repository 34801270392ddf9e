package api

import (
	"errors"

	"ballot-node/modules/auth"
	"ballot-node/modules/chain"
	"ballot-node/modules/db/ballot/admins"
	"ballot-node/modules/db/ballot/candidates"
	"ballot-node/modules/db/ballot/elections"
	"ballot-node/modules/db/ballot/voters"
	"ballot-node/modules/orchestrator"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(envelope{Success: true, Data: data})
}

func created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(envelope{Success: true, Data: data})
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(envelope{Success: false, Message: message})
}

func validationFail(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		messages := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			messages = append(messages, fe.Field()+" failed on "+fe.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(envelope{
			Success: false,
			Message: "validation failed",
			Errors:  messages,
		})
	}
	return fail(c, fiber.StatusBadRequest, err.Error())
}

// mapError translates domain errors into HTTP status codes: malformed input
// 400, unknown records 404, conflicts and failed preconditions 409, missing
// permissions 403, chain trouble 502.
func mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, voters.ErrNotFound),
		errors.Is(err, candidates.ErrNotFound),
		errors.Is(err, admins.ErrNotFound),
		errors.Is(err, elections.ErrNotFound):
		return fail(c, fiber.StatusNotFound, err.Error())

	case errors.Is(err, voters.ErrWalletExists),
		errors.Is(err, candidates.ErrWalletExists),
		errors.Is(err, admins.ErrUsernameExists),
		errors.Is(err, elections.ErrAddressExists),
		errors.Is(err, elections.ErrIllegalTransition),
		errors.Is(err, elections.ErrRosterConstraint),
		errors.Is(err, elections.ErrAlreadyVoted):
		return fail(c, fiber.StatusConflict, err.Error())

	case orchestrator.IsPrecondition(err):
		return fail(c, fiber.StatusConflict, err.Error())

	case errors.Is(err, orchestrator.ErrForbidden):
		return fail(c, fiber.StatusForbidden, err.Error())

	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSignatureMismatch):
		return fail(c, fiber.StatusUnauthorized, err.Error())

	case errors.Is(err, chain.ErrReverted),
		errors.Is(err, chain.ErrEventMissing),
		errors.Is(err, chain.ErrNoBytecode):
		return fail(c, fiber.StatusBadGateway, err.Error())

	default:
		return fail(c, fiber.StatusInternalServerError, err.Error())
	}
}
