package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is an append-only record of an administrative action.
type AuditLog struct {
	AuditID   uuid.UUID      `gorm:"column:audit_id;type:uuid;primaryKey" json:"audit_id"`
	Action    string         `gorm:"column:action;type:varchar(50);not null;index" json:"action"`
	Entity    string         `gorm:"column:entity;type:varchar(30);not null" json:"entity"`
	EntityID  string         `gorm:"column:entity_id;not null;index" json:"entity_id"`
	Actor     *string        `gorm:"column:actor" json:"actor"`
	Payload   datatypes.JSON `gorm:"column:payload" json:"payload"`
	CreatedAt time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (AuditLog) TableName() string {
	return "AuditLogs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.AuditID == uuid.Nil {
		a.AuditID = uuid.New()
	}
	return nil
}
