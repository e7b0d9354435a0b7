package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CertificateStatusIssued = "ISSUED"
	CertificateStatusVoided = "VOIDED"
)

const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// Certificate is the tax-exemption certificate issued for a donation.
// donation_id is unique: a voided certificate still occupies its donation.
type Certificate struct {
	CertificateID uuid.UUID  `gorm:"column:certificate_id;type:uuid;primaryKey" json:"certificate_id"`
	DonationID    uuid.UUID  `gorm:"column:donation_id;type:uuid;not null;uniqueIndex" json:"donation_id"`
	Donation      *Donation  `gorm:"foreignKey:DonationID;references:DonationID" json:"donation,omitempty"`
	CertificateNo string     `gorm:"column:certificate_no;not null;uniqueIndex" json:"certificate_no"`
	Year          int        `gorm:"column:year;not null;index" json:"year"`
	Seq           int        `gorm:"column:seq;not null" json:"seq"`
	IssuedAt      time.Time  `gorm:"column:issued_at;not null" json:"issued_at"`
	Status        string     `gorm:"column:status;type:varchar(20);not null;default:'ISSUED'" json:"status"`
	VoidReason    *string    `gorm:"column:void_reason" json:"void_reason"`
	VoidedAt      *time.Time `gorm:"column:voided_at" json:"voided_at"`
	ArtifactRef   string     `gorm:"column:artifact_ref;not null" json:"artifact_ref"`
	Orientation   string     `gorm:"column:orientation;type:varchar(20);not null;default:'portrait'" json:"orientation"`
	IssuedBy      *string    `gorm:"column:issued_by" json:"issued_by"`
	CreatedAt     time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Certificate) TableName() string {
	return "Certificates"
}

func (c *Certificate) BeforeCreate(tx *gorm.DB) error {
	if c.CertificateID == uuid.Nil {
		c.CertificateID = uuid.New()
	}
	return nil
}

// CertificateCounter holds the last allocated sequence for a calendar year.
type CertificateCounter struct {
	Year      int       `gorm:"column:year;primaryKey;autoIncrement:false" json:"year"`
	LastSeq   int       `gorm:"column:last_seq;not null;default:0" json:"last_seq"`
	UpdatedAt time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (CertificateCounter) TableName() string {
	return "CertificateCounters"
}
