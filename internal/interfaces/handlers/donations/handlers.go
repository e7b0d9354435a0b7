package donations

import (
	"strings"

	"hst-backend/internal/application/certificates"
	donsvc "hst-backend/internal/application/donations"
	"hst-backend/internal/interfaces/handlers/params"
	"hst-backend/internal/middleware"
	"hst-backend/internal/pkg/apperr"
	"hst-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *donsvc.Service
}

type directRequest struct {
	donsvc.Submission
	Orientation string `json:"orientation"`
}

// POST /api/v1/donations/submit (public)
func (h *Handlers) Submit(c *fiber.Ctx) error {
	var body donsvc.Submission
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	res, err := h.Service.SubmitPublic(c.Context(), body)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Donation submitted successfully", res, nil)
}

// POST /api/v1/donations/direct-certificate
func (h *Handlers) CreateDirect(c *fiber.Ctx) error {
	var body directRequest
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	res, err := h.Service.CreateDirect(c.Context(), body.Submission, certificates.IssueOptions{
		Orientation: body.Orientation,
		Actor:       middleware.Actor(c),
	})
	if err != nil && res != nil {
		// The donation is saved; only the certificate is missing.
		return response.Error(c, apperr.PublicMessage(err), apperr.HTTPStatus(err), fiber.Map{
			"retryable":   apperr.Retryable(err),
			"donation_id": res.Donation.DonationID,
			"donation":    res.Donation,
		})
	}
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Donation recorded and certificate issued", res, nil)
}

// PATCH /api/v1/donations/:id/status
func (h *Handlers) UpdateStatus(c *fiber.Ctx) error {
	id, err := params.UUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil || strings.TrimSpace(body.Status) == "" {
		return response.Error(c, "Missing required field: status", fiber.StatusBadRequest, nil)
	}
	d, err := h.Service.UpdateStatus(c.Context(), id, body.Status, middleware.Actor(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Donation status updated", d, nil)
}

// GET /api/v1/donations/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := params.UUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	d, err := h.Service.Get(c.Context(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Donation fetched successfully", d, nil)
}

// GET /api/v1/donations?status=&donor_id=&direct=&limit=&offset=
func (h *Handlers) List(c *fiber.Ctx) error {
	limit, offset := params.Page(c)
	f := donsvc.ListFilter{
		Status: strings.ToUpper(c.Query("status")),
		Direct: params.Bool(c, "direct"),
		Limit:  limit,
		Offset: offset,
	}
	if s := c.Query("donor_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return response.Error(c, "Invalid donor_id", fiber.StatusBadRequest, nil)
		}
		f.DonorID = id
	}
	rows, total, err := h.Service.List(c.Context(), f)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Donations fetched successfully", rows, params.Meta(total, limit, offset))
}
