package donors

import (
	"context"
	"errors"
	"strings"

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
	OutcomeCreated = "created"
	OutcomeReused  = "reused"
	OutcomeForked  = "forked"
)

var ErrDonorNotFound = apperr.NotFound("Donor not found")

// Identity is the loosely structured identity carried by a submission.
// Blank optional fields are treated as absent.
type Identity struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	PAN      string `json:"pan"`
	Category string `json:"category"`
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	DonorID     uuid.UUID `json:"donor_id"`
	IsNew       bool      `json:"is_new"`
	IsDuplicate bool      `json:"is_duplicate"`
	Outcome     string    `json:"outcome"`
	Backfilled  []string  `json:"backfilled,omitempty"`
}

// Resolver reconciles submitted identities with existing donors. It only ever
// creates or backfills rows; it never merges or deletes.
//
// Without a Locker, two concurrent submissions carrying the same new identity
// can both miss the lookup and both insert. Both rows are valid donors; set
// Locker to serialize resolution per email/phone when that matters.
type Resolver struct {
	DB      *gorm.DB
	Locker  Locker
	Metrics *metrics.Metrics
}

type normalizedIdentity struct {
	name     string
	nameKey  string
	email    string
	phone    string
	pan      string
	category string
}

func normalize(in Identity) (normalizedIdentity, error) {
	n := normalizedIdentity{
		name:     validation.CleanName(in.Name),
		nameKey:  validation.NormalizeName(in.Name),
		email:    validation.NormalizeEmail(in.Email),
		phone:    validation.NormalizePhone(in.Phone),
		pan:      validation.NormalizePAN(in.PAN),
		category: strings.ToLower(strings.TrimSpace(in.Category)),
	}
	if n.name == "" {
		return n, apperr.Validation("Donor name is required")
	}
	if n.email != "" && !validation.IsValidEmail(n.email) {
		return n, apperr.Validation("Invalid email format")
	}
	if n.phone != "" && !validation.IsValidPhone(n.phone) {
		return n, apperr.Validation("Invalid phone number")
	}
	if n.category != "" && !domain.IsValidDonorCategory(n.category) {
		return n, apperr.Validation("Category must be domestic or foreign")
	}
	if n.pan != "" && n.category != domain.DonorCategoryForeign && !validation.IsValidPAN(n.pan) {
		return n, apperr.Validation("Invalid PAN format")
	}
	return n, nil
}

// lockKey is the identity key the lookup will run on.
func (n normalizedIdentity) lockKey() string {
	switch {
	case n.email != "":
		return "email:" + n.email
	case n.phone != "":
		return "phone:" + n.phone
	}
	return ""
}

// Resolve returns the donor id to attach a donation to, creating or
// backfilling a donor as the identity policy dictates:
//
//   - email given: reuse a donor with that email whose name (and phone, when
//     both sides have one) matches; fork a duplicate-tagged donor when the
//     email is known but nothing matches; create a plain donor otherwise.
//   - phone only: reuse the donor with that phone, else create.
//   - neither: always create.
func (r *Resolver) Resolve(ctx context.Context, in Identity) (*Resolution, error) {
	id, err := normalize(in)
	if err != nil {
		return nil, err
	}

	if r.Locker != nil {
		if key := id.lockKey(); key != "" {
			unlock, err := r.Locker.Lock(ctx, key)
			if err != nil {
				return nil, err
			}
			defer unlock()
		}
	}

	var res *Resolution
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		switch {
		case id.email != "":
			res, err = resolveByEmail(tx, id)
		case id.phone != "":
			res, err = resolveByPhone(tx, id)
		default:
			res, err = createDonor(tx, id, false)
		}
		return err
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperr.Persistence(err)
	}

	r.Metrics.IncDonorResolution(res.Outcome)
	log.Info().
		Str("donor_id", res.DonorID.String()).
		Str("outcome", res.Outcome).
		Bool("is_duplicate", res.IsDuplicate).
		Strs("backfilled", res.Backfilled).
		Msg("Donor resolved")
	return res, nil
}

func resolveByEmail(tx *gorm.DB, id normalizedIdentity) (*Resolution, error) {
	var candidates []domain.Donor
	if err := tx.Where("email = ?", id.email).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "createdAt"}}).
		Find(&candidates).Error; err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return createDonor(tx, id, false)
	}
	for i := range candidates {
		if matches(&candidates[i], id) {
			return reuse(tx, &candidates[i], id)
		}
	}
	// Shared inboxes are common; a second person on the same email gets their
	// own record rather than silently merging into the first.
	return createDonor(tx, id, true)
}

func resolveByPhone(tx *gorm.DB, id normalizedIdentity) (*Resolution, error) {
	var existing domain.Donor
	err := tx.Where("phone = ?", id.phone).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "createdAt"}}).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return createDonor(tx, id, false)
	}
	if err != nil {
		return nil, err
	}
	return reuse(tx, &existing, id)
}

func matches(d *domain.Donor, id normalizedIdentity) bool {
	if validation.NormalizeName(d.Name) != id.nameKey {
		return false
	}
	if d.Phone != nil && *d.Phone != "" && id.phone != "" {
		return validation.NormalizePhone(*d.Phone) == id.phone
	}
	return true
}

func reuse(tx *gorm.DB, d *domain.Donor, id normalizedIdentity) (*Resolution, error) {
	updates := map[string]interface{}{}
	var backfilled []string
	if (d.PAN == nil || *d.PAN == "") && id.pan != "" {
		updates["pan"] = id.pan
		backfilled = append(backfilled, "pan")
	}
	if (d.Category == nil || *d.Category == "") && id.category != "" {
		updates["category"] = id.category
		backfilled = append(backfilled, "category")
	}
	if len(updates) > 0 {
		if err := tx.Model(d).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &Resolution{
		DonorID:     d.DonorID,
		IsNew:       false,
		IsDuplicate: d.IsDuplicate,
		Outcome:     OutcomeReused,
		Backfilled:  backfilled,
	}, nil
}

func createDonor(tx *gorm.DB, id normalizedIdentity, duplicate bool) (*Resolution, error) {
	d := domain.Donor{
		Name:        id.name,
		Email:       validation.OptionalString(id.email),
		Phone:       validation.OptionalString(id.phone),
		PAN:         validation.OptionalString(id.pan),
		Category:    validation.OptionalString(id.category),
		IsDuplicate: duplicate,
	}
	if err := tx.Create(&d).Error; err != nil {
		return nil, err
	}
	outcome := OutcomeCreated
	if duplicate {
		outcome = OutcomeForked
	}
	return &Resolution{DonorID: d.DonorID, IsNew: true, IsDuplicate: duplicate, Outcome: outcome}, nil
}
