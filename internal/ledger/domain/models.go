package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Direction represents debit or credit postings.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

type SourceType string

const (
	SourceTypeOrder  SourceType = "order"  // checkout debit
	SourceTypeGrant  SourceType = "grant"  // tenant admin top-up
	SourceTypeImport SourceType = "import" // initial points on roster import
)

func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeOrder, SourceTypeGrant, SourceTypeImport:
		return true
	default:
		return false
	}
}

// Entry is the append-only record of one balance mutation.
type Entry struct {
	ID           snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	TenantID     snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	EmployeeID   snowflake.ID `gorm:"not null;uniqueIndex:ux_ledger_source,priority:1" json:"employee_id"`
	Direction    Direction    `gorm:"type:varchar(8);not null" json:"direction"`
	Amount       int64        `gorm:"not null" json:"amount"`
	BalanceAfter int64        `gorm:"not null" json:"balance_after"`
	SourceType   SourceType   `gorm:"type:varchar(16);not null;uniqueIndex:ux_ledger_source,priority:2" json:"source_type"`
	SourceID     string       `gorm:"type:varchar(128);not null;uniqueIndex:ux_ledger_source,priority:3" json:"source_id"`
	Note         string       `gorm:"not null;default:''" json:"note,omitempty"`
	CreatedAt    time.Time    `gorm:"not null;index" json:"created_at"`
}

func (Entry) TableName() string { return "points_ledger_entries" }

// Account is the ledger's view of an employee row.
type Account struct {
	EmployeeID snowflake.ID
	TenantID   snowflake.ID
	Balance    int64
	Version    int64
}

type Balance struct {
	TenantID   snowflake.ID `json:"tenant_id"`
	EmployeeID snowflake.ID `json:"employee_id"`
	Points     int64        `json:"points"`
	Version    int64        `json:"version"`
}

func (a Account) Snapshot() Balance {
	return Balance{
		TenantID:   a.TenantID,
		EmployeeID: a.EmployeeID,
		Points:     a.Balance,
		Version:    a.Version,
	}
}
