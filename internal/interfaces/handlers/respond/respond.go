// Package respond maps service errors onto the standard error envelope and
// parses the query parameters shared by the list endpoints.
package respond

import (
	"errors"
	"time"

	"armory-backend/internal/application/policies/access"
	"armory-backend/internal/ledger"
	"armory-backend/internal/middleware"
	"armory-backend/internal/pkg/query"
	"armory-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Error writes err with the status its kind maps to. Unknown errors are logged
// and reported as 500 without leaking the cause.
func Error(c *fiber.Ctx, err error) error {
	var insufficient *ledger.InsufficientQuantityError
	switch {
	case errors.As(err, &insufficient):
		return response.Error(c, ledger.ErrInsufficientQuantity.Error(), fiber.StatusUnprocessableEntity, fiber.Map{
			"available": insufficient.Available,
			"requested": insufficient.Requested,
		})
	case errors.Is(err, ledger.ErrInsufficientQuantity):
		return response.Error(c, err.Error(), fiber.StatusUnprocessableEntity, nil)
	case errors.Is(err, ledger.ErrNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, ledger.ErrForbidden):
		return response.Forbidden(c, err.Error())
	case errors.Is(err, ledger.ErrInvalidTransition),
		errors.Is(err, ledger.ErrAlreadyTerminal),
		errors.Is(err, ledger.ErrNotActive),
		errors.Is(err, ledger.ErrDuplicate):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	case errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrBaseMismatch),
		errors.Is(err, ledger.ErrInvalidStatus),
		errors.Is(err, ledger.ErrInvalidInput):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Str("path", c.Path()).Msg("request failed")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}

// Principal returns the authenticated caller or writes 401.
func Principal(c *fiber.Ctx) (access.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		_ = response.Unauthorized(c, "Unauthorized")
	}
	return p, ok
}

// ID parses a uuid route param.
func ID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, ledger.Invalid(name + " must be a uuid")
	}
	return id, nil
}

// OptionalID parses a uuid query param; empty yields nil.
func OptionalID(c *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, ledger.Invalid(name + " must be a uuid")
	}
	return &id, nil
}

func Page(c *fiber.Ctx) query.Page {
	return query.Page{Limit: c.QueryInt("limit"), Offset: c.QueryInt("offset")}.Normalize()
}

// Range parses from/to as RFC 3339 timestamps or YYYY-MM-DD dates. A bare
// "to" date covers the whole day.
func Range(c *fiber.Ctx) (from, to *time.Time, err error) {
	if from, err = parseTime(c.Query("from"), false); err != nil {
		return nil, nil, ledger.Invalid("from must be a date")
	}
	if to, err = parseTime(c.Query("to"), true); err != nil {
		return nil, nil, ledger.Invalid("to must be a date")
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, ledger.Invalid("to must not be before from")
	}
	return from, to, nil
}

func parseTime(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// Body parses the JSON body or reports a 400-class error.
func Body(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return ledger.Invalid("malformed request body")
	}
	return nil
}
