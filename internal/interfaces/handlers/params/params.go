// Package params parses path and query parameters shared by the handlers.
package params

import (
	"strconv"

	"hst-backend/internal/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// UUID parses the named path parameter.
func UUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("Invalid " + name)
	}
	return id, nil
}

// Page reads limit and offset query parameters; bounds are applied by the services.
func Page(c *fiber.Ctx) (limit, offset int) {
	limit, _ = strconv.Atoi(c.Query("limit"))
	offset, _ = strconv.Atoi(c.Query("offset"))
	return limit, offset
}

// Bool parses an optional boolean query parameter.
func Bool(c *fiber.Ctx, name string) *bool {
	v := c.Query(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// Meta is the pagination metadata attached to list responses.
func Meta(total int64, limit, offset int) fiber.Map {
	return fiber.Map{"total": total, "limit": limit, "offset": offset}
}
