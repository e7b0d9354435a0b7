package settings

import (
	settingssvc "hst-backend/internal/application/settings"
	"hst-backend/internal/middleware"
	"hst-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *settingssvc.Service
}

// GET /api/v1/settings
func (h *Handlers) Get(c *fiber.Ctx) error {
	s, err := h.Service.Snapshot(c.Context())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Settings fetched successfully", s, nil)
}

// PUT /api/v1/settings
func (h *Handlers) Update(c *fiber.Ctx) error {
	var body settingssvc.UpdateInput
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	s, err := h.Service.Update(c.Context(), body, middleware.Actor(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Settings updated", s, nil)
}
