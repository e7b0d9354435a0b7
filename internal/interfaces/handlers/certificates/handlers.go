package certificates

import (
	"strconv"
	"strings"

	"hst-backend/internal/application/certificates"
	"hst-backend/internal/application/counters"
	"hst-backend/internal/application/donors"
	"hst-backend/internal/domain"
	"hst-backend/internal/interfaces/handlers/params"
	"hst-backend/internal/middleware"
	"hst-backend/internal/pkg/response"
	"hst-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Issuer       *certificates.Issuer
	CounterStore *counters.Store
}

// POST /api/v1/certificates/issue
func (h *Handlers) Issue(c *fiber.Ctx) error {
	var body struct {
		DonationID  string `json:"donation_id"`
		Orientation string `json:"orientation"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	donationID, err := uuid.Parse(body.DonationID)
	if err != nil {
		return response.Error(c, "Missing required field: donation_id", fiber.StatusBadRequest, nil)
	}
	res, err := h.Issuer.Issue(c.Context(), donationID, certificates.IssueOptions{
		Orientation: body.Orientation,
		Actor:       middleware.Actor(c),
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Certificate issued successfully", res, nil)
}

// POST /api/v1/certificates/:id/void
func (h *Handlers) Void(c *fiber.Ctx) error {
	id, err := params.UUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	cert, err := h.Issuer.Void(c.Context(), id, body.Reason, middleware.Actor(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Certificate voided", cert, nil)
}

type previewRequest struct {
	DonationID  string          `json:"donation_id"`
	Orientation string          `json:"orientation"`
	Donor       donors.Identity `json:"donor"`
	Donation    struct {
		Amount         float64 `json:"amount"`
		Currency       string  `json:"currency"`
		PaymentMode    string  `json:"payment_mode"`
		DonatedAt      string  `json:"donated_at"`
		TransactionRef string  `json:"transaction_ref"`
	} `json:"donation"`
}

// POST /api/v1/certificates/preview. Either donation_id of an existing
// donation or inline donor and donation details. Responds with the PDF.
func (h *Handlers) Preview(c *fiber.Ctx) error {
	var body previewRequest
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	var (
		doc []byte
		err error
	)
	if body.DonationID != "" {
		id, perr := uuid.Parse(body.DonationID)
		if perr != nil {
			return response.Error(c, "Invalid donation_id", fiber.StatusBadRequest, nil)
		}
		doc, err = h.Issuer.PreviewDonation(c.Context(), id, body.Orientation)
	} else {
		in := certificates.PreviewInput{
			Donor: domain.Donor{
				Name:  validation.CleanName(body.Donor.Name),
				Email: validation.OptionalString(body.Donor.Email),
				Phone: validation.OptionalString(body.Donor.Phone),
				PAN:   validation.OptionalString(validation.NormalizePAN(body.Donor.PAN)),
			},
			Donation: domain.Donation{
				Amount:         body.Donation.Amount,
				Currency:       strings.ToUpper(body.Donation.Currency),
				PaymentMode:    strings.ToLower(body.Donation.PaymentMode),
				TransactionRef: validation.OptionalString(body.Donation.TransactionRef),
			},
			Orientation: body.Orientation,
		}
		if cat := strings.ToLower(strings.TrimSpace(body.Donor.Category)); cat != "" {
			in.Donor.Category = &cat
		}
		if body.Donation.DonatedAt != "" {
			t, perr := parseDate(body.Donation.DonatedAt)
			if perr != nil {
				return response.Error(c, "Invalid donation.donated_at", fiber.StatusBadRequest, nil)
			}
			in.Donation.DonatedAt = t
		}
		doc, err = h.Issuer.Preview(c.Context(), in)
	}
	if err != nil {
		return response.FromError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="certificate-preview.pdf"`)
	return c.Send(doc)
}

// GET /api/v1/certificates/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := params.UUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	cert, err := h.Issuer.Get(c.Context(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Certificate fetched successfully", cert, nil)
}

// GET /api/v1/certificates/by-donation/:id
func (h *Handlers) GetByDonation(c *fiber.Ctx) error {
	id, err := params.UUID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	cert, err := h.Issuer.GetByDonation(c.Context(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Certificate fetched successfully", cert, nil)
}

// GET /api/v1/certificates?year=&status=&limit=&offset=
func (h *Handlers) List(c *fiber.Ctx) error {
	limit, offset := params.Page(c)
	year, _ := strconv.Atoi(c.Query("year"))
	rows, total, err := h.Issuer.List(c.Context(), certificates.ListFilter{
		Year:   year,
		Status: strings.ToUpper(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Certificates fetched successfully", rows, params.Meta(total, limit, offset))
}

// GET /api/v1/certificates/counters
func (h *Handlers) Counters(c *fiber.Ctx) error {
	rows, err := h.CounterStore.List(c.Context())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Certificate counters fetched successfully", rows, nil)
}
