package donors

import (
	"context"
	"errors"
	"strings"

	"hst-backend/internal/domain"
	"hst-backend/internal/pkg/apperr"
	"hst-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListFilter narrows List. Zero values mean no filter.
type ListFilter struct {
	Email         string
	Phone         string
	DuplicateOnly bool
	Limit         int
	Offset        int
}

// Get returns a donor by id.
func (r *Resolver) Get(ctx context.Context, donorID uuid.UUID) (*domain.Donor, error) {
	var d domain.Donor
	err := r.DB.WithContext(ctx).Where("donor_id = ?", donorID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDonorNotFound
	}
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return &d, nil
}

// List returns donors, newest first.
func (r *Resolver) List(ctx context.Context, f ListFilter) ([]domain.Donor, error) {
	q := r.DB.WithContext(ctx).Model(&domain.Donor{})
	if e := validation.NormalizeEmail(f.Email); e != "" {
		q = q.Where("email = ?", e)
	}
	if p := strings.TrimSpace(f.Phone); p != "" {
		q = q.Where("phone = ?", p)
	}
	if f.DuplicateOnly {
		q = q.Where("is_duplicate = ?", true)
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []domain.Donor
	if err := q.Order(clause.OrderByColumn{Column: clause.Column{Name: "createdAt"}, Desc: true}).
		Limit(limit).Offset(f.Offset).
		Find(&out).Error; err != nil {
		return nil, apperr.Persistence(err)
	}
	return out, nil
}
