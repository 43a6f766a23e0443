package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/giftflow/internal/principal"
)

const headerIdempotencyKey = "Idempotency-Key"

type authzScope int

const (
	scopeNone authzScope = iota
	scopeTenant
)

// AuthRequired verifies the bearer token and stores the caller's principal on
// the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		p, err := s.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Request = c.Request.WithContext(principal.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// TenantContext resolves the tenant a tenant admin owns when the identity
// token does not carry it.
func (s *Server) TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if p.Role != principal.RoleTenantAdmin {
			AbortWithError(c, ErrForbidden)
			return
		}
		if p.TenantID == 0 {
			tenant, err := s.tenantSvc.GetByOwner(c.Request.Context(), p.Subject)
			if err != nil {
				AbortWithError(c, err)
				return
			}
			p.TenantID = tenant.ID
			c.Request = c.Request.WithContext(principal.WithPrincipal(c.Request.Context(), p))
		}
		c.Next()
	}
}

// EmployeeContext admits only principals bound to one employee of one tenant.
func (s *Server) EmployeeContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if p.Role != principal.RoleEmployee || p.TenantID == 0 || p.EmployeeID == 0 {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

func (s *Server) authorize(object, action string, scope authzScope) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		var tenantID = p.TenantID
		if scope == scopeNone {
			tenantID = 0
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), p, tenantID, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func currentPrincipal(c *gin.Context) principal.Principal {
	p, _ := principal.FromContext(c.Request.Context())
	return p
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
