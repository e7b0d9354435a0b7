package donations

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"hst-backend/internal/application/audit"
	"hst-backend/internal/application/certificates"
	"hst-backend/internal/application/donors"
	"hst-backend/internal/domain"
	"hst-backend/internal/infrastructure/metrics"
	"hst-backend/internal/pkg/apperr"
	"hst-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	PathPublic = "public"
	PathDirect = "direct"
)

var (
	ErrDonationNotFound = apperr.NotFound("Donation not found")
	ErrInvalidStatus    = apperr.Validation("Status must be COMPLETED or CANCELLED")
)

// CertificateIssuer is the part of the certificate issuer intake needs.
type CertificateIssuer interface {
	Issue(ctx context.Context, donationID uuid.UUID, opts certificates.IssueOptions) (*certificates.IssueResult, error)
}

// Submission is a donation as entered by a donor or by staff.
type Submission struct {
	Donor          donors.Identity `json:"donor"`
	Amount         float64         `json:"amount"`
	Currency       string          `json:"currency"`
	PaymentMode    string          `json:"payment_mode"`
	DonatedAt      *time.Time      `json:"donated_at"`
	TransactionRef string          `json:"transaction_ref"`
	Notes          string          `json:"notes"`
}

type SubmitResult struct {
	Donation *domain.Donation   `json:"donation"`
	Donor    *donors.Resolution `json:"donor"`
}

type DirectResult struct {
	Donation    *domain.Donation          `json:"donation"`
	Donor       *donors.Resolution        `json:"donor"`
	Certificate *certificates.IssueResult `json:"certificate,omitempty"`
}

type Service struct {
	DB           *gorm.DB
	Donors       *donors.Resolver
	Certificates CertificateIssuer
	MinAmount    float64
	Audit        *audit.Publisher
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type validSubmission struct {
	amount      float64
	currency    string
	paymentMode string
	donatedAt   time.Time
	txnRef      *string
	notes       *string
}

func (s *Service) validate(sub Submission) (validSubmission, error) {
	v := validSubmission{
		amount:      math.Round(sub.Amount*100) / 100,
		currency:    strings.ToUpper(strings.TrimSpace(sub.Currency)),
		paymentMode: strings.ToLower(strings.TrimSpace(sub.PaymentMode)),
		txnRef:      validation.OptionalString(sub.TransactionRef),
		notes:       validation.OptionalString(sub.Notes),
	}
	if math.IsNaN(sub.Amount) || math.IsInf(sub.Amount, 0) || sub.Amount < s.MinAmount {
		return v, apperr.Validation("Amount is below the minimum donation")
	}
	if v.currency == "" {
		v.currency = "INR"
	}
	if !domain.IsValidPaymentMode(v.paymentMode) {
		return v, apperr.Validation("Invalid payment mode")
	}
	now := s.now()
	v.donatedAt = now
	if sub.DonatedAt != nil && !sub.DonatedAt.IsZero() {
		if sub.DonatedAt.After(now.Add(24 * time.Hour)) {
			return v, apperr.Validation("Donation date cannot be in the future")
		}
		v.donatedAt = *sub.DonatedAt
	}
	if strings.TrimSpace(sub.Donor.Name) == "" {
		return v, apperr.Validation("Donor name is required")
	}
	return v, nil
}

func (s *Service) record(ctx context.Context, sub Submission, status string, direct bool) (*domain.Donation, *donors.Resolution, error) {
	v, err := s.validate(sub)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.Donors.Resolve(ctx, sub.Donor)
	if err != nil {
		return nil, nil, err
	}
	d := &domain.Donation{
		DonorID:             res.DonorID,
		Amount:              v.amount,
		Currency:            v.currency,
		PaymentMode:         v.paymentMode,
		DonatedAt:           v.donatedAt,
		Status:              status,
		TransactionRef:      v.txnRef,
		IsDirectCertificate: direct,
		Notes:               v.notes,
	}
	if err := s.DB.WithContext(ctx).Create(d).Error; err != nil {
		return nil, nil, apperr.Persistence(err)
	}
	return d, res, nil
}

// SubmitPublic records a donor-submitted donation as PENDING. Certificates
// are issued later, after staff verify the payment.
func (s *Service) SubmitPublic(ctx context.Context, sub Submission) (*SubmitResult, error) {
	d, res, err := s.record(ctx, sub, domain.DonationStatusPending, false)
	if err != nil {
		return nil, err
	}
	s.Metrics.IncDonation(PathPublic)
	s.emitSubmitted(ctx, d, res, "")
	log.Info().Str("donation_id", d.DonationID.String()).Str("path", PathPublic).Msg("Donation submitted")
	return &SubmitResult{Donation: d, Donor: res}, nil
}

// CreateDirect records a staff-entered donation as COMPLETED and issues its
// certificate straight away. The donation is kept when issuance fails; the
// result then carries the donation together with the error so the caller can
// retry issuance.
func (s *Service) CreateDirect(ctx context.Context, sub Submission, opts certificates.IssueOptions) (*DirectResult, error) {
	d, res, err := s.record(ctx, sub, domain.DonationStatusCompleted, true)
	if err != nil {
		return nil, err
	}
	s.Metrics.IncDonation(PathDirect)
	s.emitSubmitted(ctx, d, res, opts.Actor)

	out := &DirectResult{Donation: d, Donor: res}
	cert, err := s.Certificates.Issue(ctx, d.DonationID, opts)
	if err != nil {
		log.Warn().Err(err).Str("donation_id", d.DonationID.String()).Msg("Direct donation saved, certificate pending")
		return out, err
	}
	out.Certificate = cert
	return out, nil
}

func (s *Service) emitSubmitted(ctx context.Context, d *domain.Donation, res *donors.Resolution, actor string) {
	s.Audit.Emit(ctx, audit.Event{
		Action:   audit.ActionDonationSubmitted,
		Entity:   "donation",
		EntityID: d.DonationID.String(),
		Actor:    actor,
		Payload: map[string]interface{}{
			"donor_id":      res.DonorID.String(),
			"donor_outcome": res.Outcome,
			"direct":        d.IsDirectCertificate,
			"amount":        d.Amount,
		},
	})
	if res.Outcome == donors.OutcomeForked {
		s.Audit.Emit(ctx, audit.Event{
			Action:   audit.ActionDonorForked,
			Entity:   "donor",
			EntityID: res.DonorID.String(),
			Actor:    actor,
		})
	}
}

// UpdateStatus applies a staff verification decision. A COMPLETED donation
// can only be cancelled while it has no ISSUED certificate.
func (s *Service) UpdateStatus(ctx context.Context, donationID uuid.UUID, status, actor string) (*domain.Donation, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != domain.DonationStatusCompleted && status != domain.DonationStatusCancelled {
		return nil, ErrInvalidStatus
	}

	var d domain.Donation
	var from string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("donation_id = ?", donationID).First(&d).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDonationNotFound
		}
		if err != nil {
			return err
		}
		from = d.Status
		switch {
		case from == status:
			return apperr.Validation("Donation is already " + status)
		case from == domain.DonationStatusCancelled:
			return apperr.Validation("Cancelled donations cannot change status")
		case from == domain.DonationStatusCompleted && status == domain.DonationStatusCancelled:
			var active int64
			if err := tx.Model(&domain.Certificate{}).
				Where("donation_id = ? AND status = ?", donationID, domain.CertificateStatusIssued).
				Count(&active).Error; err != nil {
				return err
			}
			if active > 0 {
				return apperr.Validation("Void the donation's certificate before cancelling it")
			}
		}
		if err := tx.Model(&domain.Donation{}).Where("donation_id = ?", donationID).Update("status", status).Error; err != nil {
			return err
		}
		d.Status = status
		return nil
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperr.Persistence(err)
	}

	s.Audit.Emit(ctx, audit.Event{
		Action:   audit.ActionDonationStatusChange,
		Entity:   "donation",
		EntityID: donationID.String(),
		Actor:    actor,
		Payload:  map[string]interface{}{"from": from, "to": status},
	})
	log.Info().Str("donation_id", donationID.String()).Str("from", from).Str("to", status).Msg("Donation status updated")
	return &d, nil
}
