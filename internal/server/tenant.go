package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/giftflow/internal/catalog/domain"
	tenantdomain "github.com/smallbiznis/giftflow/internal/tenant/domain"
)

type registerTenantRequest struct {
	DisplayName  string `json:"display_name"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
}

type rejectTenantRequest struct {
	Note string `json:"note"`
}

type updateBrandingRequest struct {
	LogoURL          *string `json:"logo_url"`
	PrimaryColor     *string `json:"primary_color"`
	SecondaryColor   *string `json:"secondary_color"`
	Greeting         *string `json:"greeting"`
	FestivalGreeting *string `json:"festival_greeting"`
}

type replaceSelectionRequest struct {
	ProductIDs []snowflake.ID `json:"product_ids"`
}

type setSelectionRequest struct {
	Selected bool `json:"selected"`
}

type tenantProduct struct {
	ID        snowflake.ID `json:"id"`
	Name      string       `json:"name"`
	PointCost int64        `json:"point_cost"`
	Stock     *int64       `json:"stock"`
	Category  string       `json:"category"`
	ImageURL  string       `json:"image_url"`
	Selected  bool         `json:"selected"`
}

func (s *Server) RegisterTenant(c *gin.Context) {
	var req registerTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	p := currentPrincipal(c)
	contactEmail := strings.TrimSpace(req.ContactEmail)
	if contactEmail == "" {
		contactEmail = p.Email
	}

	tenant, err := s.tenantSvc.Register(c.Request.Context(), tenantdomain.RegisterRequest{
		OwnerSubject: p.Subject,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		ContactName:  strings.TrimSpace(req.ContactName),
		ContactEmail: contactEmail,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": tenant})
}

func (s *Server) ListTenants(c *gin.Context) {
	var status tenantdomain.Status
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed, ok := tenantdomain.ParseStatus(raw)
		if !ok {
			AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
			return
		}
		status = parsed
	}

	tenants, err := s.tenantSvc.List(c.Request.Context(), status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tenants})
}

func (s *Server) ApproveTenant(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	tenant, err := s.tenantSvc.Approve(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tenant})
}

func (s *Server) RejectTenant(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req rejectTenantRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	tenant, err := s.tenantSvc.Reject(c.Request.Context(), id, strings.TrimSpace(req.Note))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tenant})
}

func (s *Server) GetTenant(c *gin.Context) {
	tenant, err := s.tenantSvc.Get(c.Request.Context(), currentPrincipal(c).TenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tenant})
}

func (s *Server) UpdateBranding(c *gin.Context) {
	var req updateBrandingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tenant, err := s.tenantSvc.UpdateBranding(c.Request.Context(), currentPrincipal(c).TenantID, tenantdomain.UpdateBrandingRequest{
		LogoURL:          req.LogoURL,
		PrimaryColor:     req.PrimaryColor,
		SecondaryColor:   req.SecondaryColor,
		Greeting:         req.Greeting,
		FestivalGreeting: req.FestivalGreeting,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tenant})
}

// ListTenantProducts returns the active catalog with the tenant's selection
// marked, which is what the selection screen edits.
func (s *Server) ListTenantProducts(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := currentPrincipal(c).TenantID

	active := true
	products, err := s.catalogSvc.List(ctx, catalogdomain.ListProductFilter{Active: &active})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	selectedIDs, err := s.tenantSvc.SelectedProductIDs(ctx, tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	selected := make(map[snowflake.ID]struct{}, len(selectedIDs))
	for _, id := range selectedIDs {
		selected[id] = struct{}{}
	}

	data := make([]tenantProduct, 0, len(products))
	for _, p := range products {
		_, ok := selected[p.ID]
		data = append(data, tenantProduct{
			ID:        p.ID,
			Name:      p.Name,
			PointCost: p.PointCost,
			Stock:     p.Stock,
			Category:  p.Category,
			ImageURL:  p.ImageURL,
			Selected:  ok,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (s *Server) ReplaceTenantProducts(c *gin.Context) {
	var req replaceSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	tenantID := currentPrincipal(c).TenantID
	if err := s.tenantSvc.ReplaceProductSelection(ctx, tenantID, req.ProductIDs); err != nil {
		AbortWithError(c, err)
		return
	}

	ids, err := s.tenantSvc.SelectedProductIDs(ctx, tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"product_ids": ids}})
}

func (s *Server) SetTenantProduct(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		return
	}

	var req setSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.tenantSvc.SetProductSelection(c.Request.Context(), currentPrincipal(c).TenantID, productID, req.Selected); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"product_id": productID, "selected": req.Selected}})
}
