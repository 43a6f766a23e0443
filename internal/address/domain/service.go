package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	Get(ctx context.Context, tenantID, employeeID snowflake.ID) (ShippingAddress, error)
	Save(ctx context.Context, tenantID, employeeID snowflake.ID, addr ShippingAddress) (ShippingAddress, error)
	UpsertTx(ctx context.Context, tx *gorm.DB, tenantID, employeeID snowflake.ID, addr ShippingAddress) error
}

var (
	ErrIncompleteAddress = errors.New("incomplete_address")
	ErrInvalidCountry    = errors.New("invalid_country_code")
	ErrNotFound          = errors.New("address_not_found")
)
