package settings

import (
	"context"
	"errors"
	"strings"

	"hst-backend/internal/application/audit"
	"hst-backend/internal/domain"
	"hst-backend/internal/pkg/apperr"
	"hst-backend/internal/pkg/validation"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	DB       *gorm.DB
	Defaults domain.OrgSettings
	Audit    *audit.Publisher
}

// UpdateInput carries the fields to change; nil fields are left alone.
type UpdateInput struct {
	OrgName           *string `json:"org_name"`
	CertificatePrefix *string `json:"certificate_prefix"`
	RegistrationNo    *string `json:"registration_no"`
	OrgPAN            *string `json:"org_pan"`
	Address           *string `json:"address"`
	SignatoryName     *string `json:"signatory_name"`
	SignatoryTitle    *string `json:"signatory_title"`
}

// Snapshot returns a value copy of the current settings, or the configured
// defaults when nothing was saved yet. It never writes.
func (s *Service) Snapshot(ctx context.Context) (domain.OrgSettings, error) {
	var row domain.OrgSettings
	err := s.DB.WithContext(ctx).Where("id = ?", domain.OrgSettingsID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		out := s.Defaults
		out.ID = domain.OrgSettingsID
		return out, nil
	}
	if err != nil {
		return domain.OrgSettings{}, apperr.Persistence(err)
	}
	return row, nil
}

// Update applies in on top of the current snapshot and saves the result.
func (s *Service) Update(ctx context.Context, in UpdateInput, actor string) (domain.OrgSettings, error) {
	cur, err := s.Snapshot(ctx)
	if err != nil {
		return domain.OrgSettings{}, err
	}

	changed := map[string]interface{}{}
	set := func(field string, dst *string, v *string) {
		if v == nil {
			return
		}
		val := strings.TrimSpace(*v)
		if val != *dst {
			changed[field] = val
		}
		*dst = val
	}
	set("org_name", &cur.OrgName, in.OrgName)
	set("registration_no", &cur.RegistrationNo, in.RegistrationNo)
	set("address", &cur.Address, in.Address)
	set("signatory_name", &cur.SignatoryName, in.SignatoryName)
	set("signatory_title", &cur.SignatoryTitle, in.SignatoryTitle)
	if in.CertificatePrefix != nil {
		p := strings.ToUpper(strings.TrimSpace(*in.CertificatePrefix))
		in.CertificatePrefix = &p
	}
	set("certificate_prefix", &cur.CertificatePrefix, in.CertificatePrefix)
	if in.OrgPAN != nil {
		p := validation.NormalizePAN(*in.OrgPAN)
		in.OrgPAN = &p
	}
	set("org_pan", &cur.OrgPAN, in.OrgPAN)

	if cur.OrgName == "" {
		return domain.OrgSettings{}, apperr.Validation("Organization name is required")
	}
	if !validation.IsValidCertificatePrefix(cur.CertificatePrefix) {
		return domain.OrgSettings{}, apperr.Validation("Certificate prefix must be 1-20 uppercase letters, digits or dashes")
	}
	if cur.OrgPAN != "" && !validation.IsValidPAN(cur.OrgPAN) {
		return domain.OrgSettings{}, apperr.Validation("Invalid organization PAN")
	}

	cur.ID = domain.OrgSettingsID
	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&cur).Error; err != nil {
		return domain.OrgSettings{}, apperr.Persistence(err)
	}

	if len(changed) > 0 {
		s.Audit.Emit(ctx, audit.Event{
			Action: audit.ActionSettingsUpdated, Entity: "settings", EntityID: "org",
			Actor: actor, Payload: changed,
		})
	}
	return cur, nil
}
