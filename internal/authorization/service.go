package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/internal/principal"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

type Service interface {
	// Authorize checks the principal's role against the policy for object and
	// action. A non-zero tenantID additionally requires the principal to
	// belong to that tenant.
	Authorize(ctx context.Context, p principal.Principal, tenantID snowflake.ID, object, action string) error
}
