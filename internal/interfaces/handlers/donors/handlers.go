package donors

import (
	donorsvc "hst-backend/internal/application/donors"
	"hst-backend/internal/interfaces/handlers/params"
	"hst-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Resolver *donorsvc.Resolver
}

// POST /api/v1/donors/resolve
func (h *Handlers) Resolve(c *fiber.Ctx) error {
	var body donorsvc.Identity
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	res, err := h.Resolver.Resolve(c.Context(), body)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Donor resolved", res, nil)
}

// GET /api/v1/donors/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := params.UUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	d, err := h.Resolver.Get(c.Context(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Donor fetched successfully", d, nil)
}

// GET /api/v1/donors?email=&phone=&duplicate=&limit=&offset=
func (h *Handlers) List(c *fiber.Ctx) error {
	limit, offset := params.Page(c)
	dup := params.Bool(c, "duplicate")
	rows, err := h.Resolver.List(c.Context(), donorsvc.ListFilter{
		Email:         c.Query("email"),
		Phone:         c.Query("phone"),
		DuplicateOnly: dup != nil && *dup,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Donors fetched successfully", rows, nil)
}
