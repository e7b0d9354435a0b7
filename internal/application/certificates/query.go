package certificates

import (
	"context"
	"errors"

	"hst-backend/internal/domain"
	"hst-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ListFilter struct {
	Year   int
	Status string
	Limit  int
	Offset int
}

func (s *Issuer) Get(ctx context.Context, certificateID uuid.UUID) (*domain.Certificate, error) {
	return s.first(ctx, "certificate_id = ?", certificateID)
}

func (s *Issuer) GetByDonation(ctx context.Context, donationID uuid.UUID) (*domain.Certificate, error) {
	return s.first(ctx, "donation_id = ?", donationID)
}

func (s *Issuer) first(ctx context.Context, where string, arg interface{}) (*domain.Certificate, error) {
	var cert domain.Certificate
	err := s.DB.WithContext(ctx).Preload("Donation.Donor").Where(where, arg).First(&cert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCertificateNotFound
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return &cert, nil
}

// List returns certificates newest number first.
func (s *Issuer) List(ctx context.Context, f ListFilter) ([]domain.Certificate, int64, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	q := s.DB.WithContext(ctx).Model(&domain.Certificate{})
	if f.Year > 0 {
		q = q.Where("year = ?", f.Year)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Persistence(err)
	}
	var out []domain.Certificate
	if err := q.Order("year DESC").Order("seq DESC").Limit(f.Limit).Offset(f.Offset).Find(&out).Error; err != nil {
		return nil, 0, apperr.Persistence(err)
	}
	return out, total, nil
}
