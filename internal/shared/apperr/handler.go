package apperr

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/rs/zerolog/log"
)

// Envelope is the JSON body of every error response.
type Envelope struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
	Details string   `json:"details,omitempty"`
}

func Status(kind Kind) int {
	switch kind {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	case KindAuth:
		return fiber.StatusUnauthorized
	case KindForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// FiberErrorHandler maps errors returned by handlers to the JSON envelope.
// With exposeDetails false the raw collaborator text is never written.
func FiberErrorHandler(exposeDetails bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, body := toEnvelope(err, exposeDetails)
		if status >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
		}
		return c.Status(status).JSON(body)
	}
}

func toEnvelope(err error, exposeDetails bool) (int, Envelope) {
	var appErr *Error
	if errors.As(err, &appErr) {
		body := Envelope{
			Error:   appErr.Label,
			Message: appErr.Message,
			Fields:  appErr.Fields,
		}
		if exposeDetails {
			body.Details = appErr.Details()
		}
		return Status(appErr.Kind), body
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, Envelope{Error: labelFor(fe.Code), Message: fe.Message}
	}

	body := Envelope{Error: "internal_error", Message: "internal server error"}
	if exposeDetails {
		body.Details = err.Error()
	}
	return fiber.StatusInternalServerError, body
}

func labelFor(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return "bad_request"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusForbidden:
		return "forbidden"
	case fiber.StatusNotFound:
		return "not_found"
	}
	return strings.ReplaceAll(strings.ToLower(utils.StatusMessage(code)), " ", "_")
}
