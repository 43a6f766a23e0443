package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusActive, StatusInactive:
		return Status(raw), true
	default:
		return "", false
	}
}

// Employee belongs to exactly one tenant. PointsBalance and Version are
// written only by the points ledger.
type Employee struct {
	ID            snowflake.ID   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	TenantID      snowflake.ID   `gorm:"not null;uniqueIndex:ux_employees_tenant_email,priority:1" json:"tenant_id"`
	Email         string         `gorm:"not null;uniqueIndex:ux_employees_tenant_email,priority:2" json:"email"`
	Name          string         `gorm:"not null" json:"name"`
	Department    string         `gorm:"not null;default:''" json:"department,omitempty"`
	PointsBalance int64          `gorm:"column:points_balance;not null" json:"points_balance"`
	Version       int64          `gorm:"not null" json:"-"`
	Status        Status         `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Employee) TableName() string { return "employees" }

func (e Employee) IsActive() bool {
	return e.Status == StatusActive && !e.DeletedAt.Valid
}
