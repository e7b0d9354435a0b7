// Package certificates issues, voids and previews donation certificates.
//
// Numbers are allocated per calendar year of the donation and are gapless:
// allocation, rendering and the certificate insert share one transaction
// holding the year's counter row lock, so a failure anywhere leaves the
// counter untouched.
package certificates

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hst-backend/internal/application/audit"
	"hst-backend/internal/application/counters"
	"hst-backend/internal/domain"
	"hst-backend/internal/infrastructure/database"
	"hst-backend/internal/infrastructure/metrics"
	"hst-backend/internal/infrastructure/renderer"
	"hst-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Renderer turns a payload into document bytes.
type Renderer interface {
	Render(ctx context.Context, p renderer.Payload) ([]byte, error)
}

// ArtifactStore keeps rendered documents.
type ArtifactStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// SettingsSource returns a value copy of the organization settings.
type SettingsSource interface {
	Snapshot(ctx context.Context) (domain.OrgSettings, error)
}

type Issuer struct {
	DB        *gorm.DB
	Counters  *counters.Store
	Renderer  Renderer
	Artifacts ArtifactStore
	Settings  SettingsSource
	Audit     *audit.Publisher
	Metrics   *metrics.Metrics

	// RenderSlots bounds concurrent renders; nil means unbounded.
	RenderSlots   *semaphore.Weighted
	RenderTimeout time.Duration

	Now func() time.Time
}

type IssueOptions struct {
	Orientation string `json:"orientation"`
	Actor       string `json:"-"`
}

type IssueResult struct {
	CertificateID uuid.UUID `json:"certificate_id"`
	CertificateNo string    `json:"certificate_no"`
	ArtifactRef   string    `json:"artifact_ref"`
	Year          int       `json:"year"`
	Seq           int       `json:"seq"`
	IssuedAt      time.Time `json:"issued_at"`
}

type PreviewInput struct {
	Donor       domain.Donor
	Donation    domain.Donation
	Settings    *domain.OrgSettings
	Orientation string
}

func NewRenderSlots(n int64) *semaphore.Weighted {
	if n <= 0 {
		n = 1
	}
	return semaphore.NewWeighted(n)
}

func (s *Issuer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Issue creates the certificate for a completed donation. Calling it again
// for the same donation returns ErrAlreadyIssued, even after a void.
func (s *Issuer) Issue(ctx context.Context, donationID uuid.UUID, opts IssueOptions) (*IssueResult, error) {
	orientation, err := normalizeOrientation(opts.Orientation)
	if err != nil {
		return nil, err
	}
	settings, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var (
		result    *IssueResult
		storedRef string
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The donation row stays locked until commit so a concurrent
		// cancellation waits for this certificate.
		var donation domain.Donation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("donation_id = ?", donationID).First(&donation).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDonationNotFound
		}
		if err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&domain.Certificate{}).Where("donation_id = ?", donationID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyIssued
		}
		if donation.Status != domain.DonationStatusCompleted {
			return ErrDonationNotCompleted
		}

		var donor domain.Donor
		if err := tx.Where("donor_id = ?", donation.DonorID).First(&donor).Error; err != nil {
			return fmt.Errorf("donor of donation %s: %w", donationID, err)
		}
		donation.Donor = &donor

		year := donation.DonatedAt.Year()
		seq, err := s.Counters.AllocateNext(tx, year)
		if err != nil {
			return err
		}
		number := FormatNumber(settings.CertificatePrefix, year, seq)
		issuedAt := s.now()

		doc, err := s.render(ctx, buildPayload(settings, donation.Donor, &donation, number, orientation, issuedAt, false))
		if err != nil {
			return err
		}
		ref, err := s.Artifacts.Save(ctx, fmt.Sprintf("%d/%s.pdf", year, number), doc, "application/pdf")
		if err != nil {
			return apperr.Wrap(apperr.KindRenderFailure, ErrArtifactFailed.Message, err)
		}
		storedRef = ref

		cert := domain.Certificate{
			DonationID:    donation.DonationID,
			CertificateNo: number,
			Year:          year,
			Seq:           seq,
			IssuedAt:      issuedAt,
			Status:        domain.CertificateStatusIssued,
			ArtifactRef:   ref,
			Orientation:   orientation,
		}
		if opts.Actor != "" {
			actor := opts.Actor
			cert.IssuedBy = &actor
		}
		if err := tx.Create(&cert).Error; err != nil {
			return err
		}
		if err := s.Counters.Advance(tx, year, seq); err != nil {
			return err
		}

		result = &IssueResult{
			CertificateID: cert.CertificateID,
			CertificateNo: number,
			ArtifactRef:   ref,
			Year:          year,
			Seq:           seq,
			IssuedAt:      issuedAt,
		}
		return nil
	})
	if err != nil {
		if storedRef != "" {
			if derr := s.Artifacts.Delete(context.WithoutCancel(ctx), storedRef); derr != nil {
				log.Warn().Err(derr).Str("artifact_ref", storedRef).Msg("Orphaned certificate artifact")
			}
		}
		err = s.classify(ctx, donationID, err)
		s.Metrics.IncIssueFailure(string(apperr.KindOf(err)))
		log.Warn().Err(err).Str("donation_id", donationID.String()).Msg("Certificate issuance failed")
		return nil, err
	}

	s.Metrics.IncIssued(strconv.Itoa(result.Year))
	s.Audit.Emit(ctx, audit.Event{
		Action:   audit.ActionCertificateIssued,
		Entity:   "certificate",
		EntityID: result.CertificateID.String(),
		Actor:    opts.Actor,
		Payload: map[string]interface{}{
			"donation_id":    donationID.String(),
			"certificate_no": result.CertificateNo,
		},
	})
	log.Info().
		Str("certificate_no", result.CertificateNo).
		Str("donation_id", donationID.String()).
		Msg("Certificate issued")
	return result, nil
}

// classify maps a failed issuance to the error taxonomy. A unique violation
// on donation_id means another request issued for the same donation first.
func (s *Issuer) classify(ctx context.Context, donationID uuid.UUID, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if database.UniqueViolationOn(err, "donation_id") {
		return ErrAlreadyIssued
	}
	if database.IsUniqueViolation(err) {
		var n int64
		if cerr := s.DB.WithContext(context.WithoutCancel(ctx)).Model(&domain.Certificate{}).
			Where("donation_id = ?", donationID).Count(&n).Error; cerr == nil && n > 0 {
			return ErrAlreadyIssued
		}
	}
	return apperr.Persistence(err)
}

// Void marks a certificate VOIDED. Its number stays consumed and its donation
// cannot be issued again.
func (s *Issuer) Void(ctx context.Context, certificateID uuid.UUID, reason, actor string) (*domain.Certificate, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrVoidReasonRequired
	}

	var cert domain.Certificate
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("certificate_id = ?", certificateID).First(&cert).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCertificateNotFound
		}
		if err != nil {
			return err
		}
		if cert.Status == domain.CertificateStatusVoided {
			return ErrAlreadyVoided
		}
		now := s.now()
		if err := tx.Model(&domain.Certificate{}).Where("certificate_id = ?", certificateID).Updates(map[string]interface{}{
			"status":      domain.CertificateStatusVoided,
			"void_reason": reason,
			"voided_at":   now,
		}).Error; err != nil {
			return err
		}
		cert.Status = domain.CertificateStatusVoided
		cert.VoidReason = &reason
		cert.VoidedAt = &now
		return nil
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperr.Persistence(err)
	}

	s.Metrics.IncVoided()
	s.Audit.Emit(ctx, audit.Event{
		Action:   audit.ActionCertificateVoided,
		Entity:   "certificate",
		EntityID: cert.CertificateID.String(),
		Actor:    actor,
		Payload: map[string]interface{}{
			"certificate_no": cert.CertificateNo,
			"reason":         reason,
		},
	})
	log.Info().Str("certificate_no", cert.CertificateNo).Msg("Certificate voided")
	return &cert, nil
}

// Preview renders a certificate with a placeholder number. It never touches
// the counter and persists nothing.
func (s *Issuer) Preview(ctx context.Context, in PreviewInput) ([]byte, error) {
	orientation, err := normalizeOrientation(in.Orientation)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Donor.Name) == "" {
		return nil, apperr.Validation("Donor name is required")
	}
	var settings domain.OrgSettings
	if in.Settings != nil {
		settings = *in.Settings
	} else if settings, err = s.Settings.Snapshot(ctx); err != nil {
		return nil, err
	}

	donation := in.Donation
	if donation.DonatedAt.IsZero() {
		donation.DonatedAt = s.now()
	}
	if donation.Currency == "" {
		donation.Currency = "INR"
	}
	number := PreviewNumber(settings.CertificatePrefix, donation.DonatedAt.Year())
	return s.render(ctx, buildPayload(settings, &in.Donor, &donation, number, orientation, s.now(), true))
}

// PreviewDonation previews the certificate an existing donation would get.
func (s *Issuer) PreviewDonation(ctx context.Context, donationID uuid.UUID, orientation string) ([]byte, error) {
	var donation domain.Donation
	err := s.DB.WithContext(ctx).Preload("Donor").Where("donation_id = ?", donationID).First(&donation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDonationNotFound
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	if donation.Donor == nil {
		return nil, apperr.Persistence(fmt.Errorf("donation %s has no donor", donationID))
	}
	return s.Preview(ctx, PreviewInput{Donor: *donation.Donor, Donation: donation, Orientation: orientation})
}

func (s *Issuer) render(ctx context.Context, p renderer.Payload) ([]byte, error) {
	if s.RenderSlots != nil {
		if err := s.RenderSlots.Acquire(ctx, 1); err != nil {
			return nil, apperr.Wrap(apperr.KindRenderFailure, ErrRenderFailure.Message, err)
		}
		defer s.RenderSlots.Release(1)
	}
	if s.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.RenderTimeout)
		defer cancel()
	}

	s.Metrics.RenderStarted()
	defer s.Metrics.RenderFinished()
	start := time.Now()
	doc, err := s.Renderer.Render(ctx, p)
	s.Metrics.ObserveRender(time.Since(start))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindRenderFailure, ErrRenderFailure.Message, err)
	}
	return doc, nil
}

func buildPayload(settings domain.OrgSettings, donor *domain.Donor, donation *domain.Donation, number, orientation string, issuedAt time.Time, preview bool) renderer.Payload {
	p := renderer.Payload{
		CertificateNo: number,
		Preview:       preview,
		Orientation:   orientation,
		IssuedAt:      issuedAt,
		Org: renderer.Org{
			Name:           settings.OrgName,
			RegistrationNo: settings.RegistrationNo,
			PAN:            settings.OrgPAN,
			Address:        settings.Address,
			SignatoryName:  settings.SignatoryName,
			SignatoryTitle: settings.SignatoryTitle,
		},
		Donor: renderer.Donor{
			Name:     donor.Name,
			Email:    deref(donor.Email),
			Phone:    deref(donor.Phone),
			PAN:      deref(donor.PAN),
			Category: donor.EffectiveCategory(),
		},
		Donation: renderer.Donation{
			Amount:         strconv.FormatFloat(donation.Amount, 'f', 2, 64),
			AmountInWords:  renderer.AmountInWords(donation.Amount),
			Currency:       donation.Currency,
			PaymentMode:    donation.PaymentMode,
			DonatedAt:      donation.DonatedAt,
			TransactionRef: deref(donation.TransactionRef),
		},
	}
	if donation.DonationID != uuid.Nil {
		p.Donation.ID = donation.DonationID.String()
	}
	return p
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
