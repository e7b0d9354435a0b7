package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DonorCategoryDomestic = "domestic"
	DonorCategoryForeign  = "foreign"
)

// Donor is an identity record. Email and phone are indexed for lookup only;
// uniqueness is decided by donors.Resolver, never by the database. Category
// stays NULL until a submission states it.
type Donor struct {
	DonorID     uuid.UUID `gorm:"column:donor_id;type:uuid;primaryKey" json:"donor_id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Email       *string   `gorm:"column:email;index" json:"email"`
	Phone       *string   `gorm:"column:phone;index" json:"phone"`
	PAN         *string   `gorm:"column:pan;type:varchar(20)" json:"pan"`
	Category    *string   `gorm:"column:category;type:varchar(20)" json:"category"`
	IsDuplicate bool      `gorm:"column:is_duplicate;not null;default:false" json:"is_duplicate"`
	CreatedAt   time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Donor) TableName() string {
	return "Donors"
}

func (d *Donor) BeforeCreate(tx *gorm.DB) error {
	if d.DonorID == uuid.Nil {
		d.DonorID = uuid.New()
	}
	return nil
}

// IsValidDonorCategory reports whether c is a known category value.
func IsValidDonorCategory(c string) bool {
	return c == DonorCategoryDomestic || c == DonorCategoryForeign
}

// EffectiveCategory returns the stored category or domestic when unset.
func (d *Donor) EffectiveCategory() string {
	if d.Category == nil || *d.Category == "" {
		return DonorCategoryDomestic
	}
	return *d.Category
}
