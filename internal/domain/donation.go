package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DonationStatusPending   = "PENDING"
	DonationStatusCompleted = "COMPLETED"
	DonationStatusCancelled = "CANCELLED"
)

const (
	PaymentModeCash         = "cash"
	PaymentModeCheque       = "cheque"
	PaymentModeUPI          = "upi"
	PaymentModeBankTransfer = "bank_transfer"
	PaymentModeOnline       = "online"
)

var paymentModes = map[string]bool{
	PaymentModeCash:         true,
	PaymentModeCheque:       true,
	PaymentModeUPI:          true,
	PaymentModeBankTransfer: true,
	PaymentModeOnline:       true,
}

// IsValidPaymentMode reports whether m is an accepted payment mode.
func IsValidPaymentMode(m string) bool {
	return paymentModes[m]
}

// Donation is a single transfer from a donor. Staff move it out of PENDING
// after verifying payment; rows are never deleted.
type Donation struct {
	DonationID          uuid.UUID `gorm:"column:donation_id;type:uuid;primaryKey" json:"donation_id"`
	DonorID             uuid.UUID `gorm:"column:donor_id;type:uuid;not null;index" json:"donor_id"`
	Donor               *Donor    `gorm:"foreignKey:DonorID;references:DonorID" json:"donor,omitempty"`
	Amount              float64   `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	Currency            string    `gorm:"column:currency;type:varchar(10);not null;default:'INR'" json:"currency"`
	PaymentMode         string    `gorm:"column:payment_mode;type:varchar(20);not null" json:"payment_mode"`
	DonatedAt           time.Time `gorm:"column:donated_at;not null" json:"donated_at"`
	Status              string    `gorm:"column:status;type:varchar(20);not null;default:'PENDING'" json:"status"`
	TransactionRef      *string   `gorm:"column:transaction_ref" json:"transaction_ref"`
	IsDirectCertificate bool      `gorm:"column:is_direct_certificate;not null;default:false" json:"is_direct_certificate"`
	Notes               *string   `gorm:"column:notes" json:"notes"`
	CreatedAt           time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt           time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Donation) TableName() string {
	return "Donations"
}

func (d *Donation) BeforeCreate(tx *gorm.DB) error {
	if d.DonationID == uuid.Nil {
		d.DonationID = uuid.New()
	}
	return nil
}
