// Package identity turns bearer tokens into principals. Authentication itself
// is delegated to the identity provider.
package identity

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/internal/principal"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidClaims   = errors.New("invalid_claims")
)

// Custom claims carried by provider tokens.
const (
	ClaimRole       = "role"
	ClaimTenantID   = "tenant_id"
	ClaimEmployeeID = "employee_id"
	ClaimEmail      = "email"
)

type Verifier interface {
	Verify(ctx context.Context, token string) (principal.Principal, error)
}

// PrincipalFromClaims builds a principal from a verified subject and its
// claims. Tokens without a role are treated as prospective tenant admins so
// they can register a tenant.
func PrincipalFromClaims(subject string, claims map[string]any) (principal.Principal, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return principal.Principal{}, ErrInvalidClaims
	}

	p := principal.Principal{Subject: subject, Role: principal.RoleTenantAdmin}
	if email, ok := claims[ClaimEmail].(string); ok {
		p.Email = strings.ToLower(strings.TrimSpace(email))
	}
	if raw, ok := claims[ClaimRole].(string); ok && strings.TrimSpace(raw) != "" {
		role, ok := principal.ParseRole(raw)
		if !ok {
			return principal.Principal{}, ErrInvalidClaims
		}
		p.Role = role
	}

	var err error
	if p.TenantID, err = claimID(claims[ClaimTenantID]); err != nil {
		return principal.Principal{}, err
	}
	if p.EmployeeID, err = claimID(claims[ClaimEmployeeID]); err != nil {
		return principal.Principal{}, err
	}
	if p.Role == principal.RoleEmployee && (p.TenantID == 0 || p.EmployeeID == 0) {
		return principal.Principal{}, ErrInvalidClaims
	}
	return p, nil
}

// claimID accepts ids as decimal strings or JSON numbers.
func claimID(v any) (snowflake.ID, error) {
	switch value := v.(type) {
	case nil:
		return 0, nil
	case string:
		value = strings.TrimSpace(value)
		if value == "" {
			return 0, nil
		}
		id, err := snowflake.ParseString(value)
		if err != nil {
			return 0, ErrInvalidClaims
		}
		return id, nil
	case float64:
		if value < 0 {
			return 0, ErrInvalidClaims
		}
		return snowflake.ID(int64(value)), nil
	case int64:
		return snowflake.ID(value), nil
	case int:
		return snowflake.ID(int64(value)), nil
	default:
		return 0, ErrInvalidClaims
	}
}

func formatID(id snowflake.ID) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id.Int64(), 10)
}
