package donations

import (
	"context"
	"errors"

	"hst-backend/internal/domain"
	"hst-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ListFilter struct {
	Status  string
	DonorID uuid.UUID
	Direct  *bool
	Limit   int
	Offset  int
}

func (s *Service) Get(ctx context.Context, donationID uuid.UUID) (*domain.Donation, error) {
	var d domain.Donation
	err := s.DB.WithContext(ctx).Preload("Donor").Where("donation_id = ?", donationID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDonationNotFound
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return &d, nil
}

// List returns donations newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Donation, int64, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	q := s.DB.WithContext(ctx).Model(&domain.Donation{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.DonorID != uuid.Nil {
		q = q.Where("donor_id = ?", f.DonorID)
	}
	if f.Direct != nil {
		q = q.Where("is_direct_certificate = ?", *f.Direct)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Persistence(err)
	}
	var out []domain.Donation
	err := q.Preload("Donor").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "donated_at"}, Desc: true}).
		Limit(f.Limit).Offset(f.Offset).Find(&out).Error
	if err != nil {
		return nil, 0, apperr.Persistence(err)
	}
	return out, total, nil
}
