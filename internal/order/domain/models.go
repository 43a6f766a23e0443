package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	addressdomain "github.com/smallbiznis/giftflow/internal/address/domain"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
)

var nextStatus = map[Status]Status{
	StatusPending:    StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
}

func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered:
		return Status(raw), true
	default:
		return "", false
	}
}

// Next returns the only status an order may move to from s.
func (s Status) Next() (Status, bool) {
	next, ok := nextStatus[s]
	return next, ok
}

func (s Status) Terminal() bool {
	return s == StatusDelivered
}

// CanTransition allows single forward steps only.
func CanTransition(from, to Status) bool {
	next, ok := from.Next()
	return ok && next == to
}

// Order is an append-only fact. Items and totals never change after
// checkout; only Status moves forward.
type Order struct {
	ID              snowflake.ID                                      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OrderNumber     string                                            `gorm:"type:varchar(32);not null;uniqueIndex" json:"order_number"`
	TenantID        snowflake.ID                                      `gorm:"not null;index:ix_orders_tenant_created,priority:1" json:"tenant_id"`
	EmployeeID      snowflake.ID                                      `gorm:"not null;index:ix_orders_employee_created,priority:1" json:"employee_id"`
	EmployeeName    string                                            `gorm:"not null;default:''" json:"employee_name"`
	EmployeeEmail   string                                            `gorm:"not null;default:''" json:"employee_email"`
	Status          Status                                            `gorm:"type:varchar(16);not null;index" json:"status"`
	TotalPoints     int64                                             `gorm:"not null" json:"total_points"`
	ShippingAddress datatypes.JSONType[addressdomain.ShippingAddress] `gorm:"not null" json:"shipping_address"`
	CreatedAt       time.Time                                         `gorm:"not null;index:ix_orders_tenant_created,priority:2;index:ix_orders_employee_created,priority:2" json:"created_at"`
	UpdatedAt       time.Time                                         `gorm:"not null" json:"updated_at"`
	Items           []OrderItem                                       `gorm:"foreignKey:OrderID" json:"items"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID          snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OrderID     snowflake.ID `gorm:"not null;index" json:"order_id"`
	ProductID   snowflake.ID `gorm:"not null;index" json:"product_id"`
	ProductName string       `gorm:"not null" json:"product_name"`
	UnitCost    int64        `gorm:"not null" json:"unit_cost"`
	Quantity    int64        `gorm:"not null" json:"quantity"`
	LineTotal   int64        `gorm:"not null" json:"line_total"`
}

func (OrderItem) TableName() string { return "order_items" }

// StatusEvent records who moved an order and when.
type StatusEvent struct {
	ID         snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OrderID    snowflake.ID `gorm:"not null;index" json:"order_id"`
	FromStatus Status       `gorm:"type:varchar(16);not null" json:"from_status"`
	ToStatus   Status       `gorm:"type:varchar(16);not null" json:"to_status"`
	Actor      string       `gorm:"not null" json:"actor"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}

func (StatusEvent) TableName() string { return "order_status_events" }

// CheckoutRequest claims an idempotency key for one employee. It is written
// in the same transaction as the order it points to.
type CheckoutRequest struct {
	EmployeeID     snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	IdempotencyKey string       `gorm:"primaryKey;type:varchar(128)"`
	OrderID        snowflake.ID `gorm:"not null"`
	CreatedAt      time.Time    `gorm:"not null"`
}

func (CheckoutRequest) TableName() string { return "checkout_requests" }
