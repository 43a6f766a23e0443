package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/giftflow/internal/principal"
)

// StaticVerifier resolves a fixed set of tokens. It exists for local
// development and tests.
type StaticVerifier struct {
	tokens map[string]principal.Principal
}

// ParseStaticTokens reads "token=role:subject[:tenant_id[:employee_id]]"
// entries separated by commas.
func ParseStaticTokens(raw string) (*StaticVerifier, error) {
	v := &StaticVerifier{tokens: make(map[string]principal.Principal)}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		token, spec, ok := strings.Cut(entry, "=")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			return nil, fmt.Errorf("static token %q: missing token", entry)
		}

		parts := strings.Split(spec, ":")
		if len(parts) < 2 || len(parts) > 4 {
			return nil, fmt.Errorf("static token %q: want role:subject[:tenant_id[:employee_id]]", token)
		}
		claims := map[string]any{ClaimRole: parts[0]}
		if len(parts) > 2 {
			claims[ClaimTenantID] = parts[2]
		}
		if len(parts) > 3 {
			claims[ClaimEmployeeID] = parts[3]
		}
		p, err := PrincipalFromClaims(parts[1], claims)
		if err != nil {
			return nil, fmt.Errorf("static token %q: %w", token, err)
		}
		v.tokens[token] = p
	}
	return v, nil
}

func NewStaticVerifier(tokens map[string]principal.Principal) *StaticVerifier {
	return &StaticVerifier{tokens: tokens}
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (principal.Principal, error) {
	p, ok := v.tokens[strings.TrimSpace(token)]
	if !ok {
		return principal.Principal{}, ErrUnauthenticated
	}
	return p, nil
}

// Token returns a static token line for p, as accepted by ParseStaticTokens.
func Token(token string, p principal.Principal) string {
	line := fmt.Sprintf("%s=%s:%s", token, p.Role, p.Subject)
	if p.TenantID != 0 || p.EmployeeID != 0 {
		line += ":" + formatID(p.TenantID)
	}
	if p.EmployeeID != 0 {
		line += ":" + formatID(p.EmployeeID)
	}
	return line
}
