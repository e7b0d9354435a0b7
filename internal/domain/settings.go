package domain

import "time"

// OrgSettingsID is the primary key of the single OrgSettings row.
const OrgSettingsID = 1

// OrgSettings is the organization profile printed on certificates. Callers
// take a value copy before issuing so a concurrent update never leaks into a
// certificate mid-flight.
type OrgSettings struct {
	ID                int       `gorm:"column:id;primaryKey;autoIncrement:false" json:"-"`
	OrgName           string    `gorm:"column:org_name;not null" json:"org_name"`
	CertificatePrefix string    `gorm:"column:certificate_prefix;type:varchar(20);not null" json:"certificate_prefix"`
	RegistrationNo    string    `gorm:"column:registration_no" json:"registration_no"`
	OrgPAN            string    `gorm:"column:org_pan;type:varchar(20)" json:"org_pan"`
	Address           string    `gorm:"column:address" json:"address"`
	SignatoryName     string    `gorm:"column:signatory_name" json:"signatory_name"`
	SignatoryTitle    string    `gorm:"column:signatory_title" json:"signatory_title"`
	UpdatedAt         time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (OrgSettings) TableName() string {
	return "OrgSettings"
}
