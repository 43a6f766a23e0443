package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/giftflow/internal/catalog/domain"
)

type createProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PointCost   int64  `json:"point_cost"`
	Stock       *int64 `json:"stock"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url"`
	Active      *bool  `json:"active"`
}

type updateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PointCost   *int64  `json:"point_cost"`
	Category    *string `json:"category"`
	ImageURL    *string `json:"image_url"`
	Active      *bool   `json:"active"`
}

type setStockRequest struct {
	// Stock is nil for untracked inventory.
	Stock *int64 `json:"stock"`
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	product, err := s.catalogSvc.Create(c.Request.Context(), catalogdomain.CreateProductRequest{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		PointCost:   req.PointCost,
		Stock:       req.Stock,
		Category:    strings.TrimSpace(req.Category),
		ImageURL:    strings.TrimSpace(req.ImageURL),
		Active:      req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": product})
}

func (s *Server) ListProducts(c *gin.Context) {
	var query struct {
		Category string `form:"category"`
		Active   string `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	products, err := s.catalogSvc.List(c.Request.Context(), catalogdomain.ListProductFilter{
		Category: strings.TrimSpace(query.Category),
		Active:   active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": products})
}

func (s *Server) GetProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	product, err := s.catalogSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": product})
}

func (s *Server) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	product, err := s.catalogSvc.Update(c.Request.Context(), id, catalogdomain.UpdateProductRequest{
		Name:        req.Name,
		Description: req.Description,
		PointCost:   req.PointCost,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		Active:      req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": product})
}

func (s *Server) SetProductStock(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req setStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	product, err := s.catalogSvc.SetStock(c.Request.Context(), id, req.Stock)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": product})
}

func (s *Server) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.catalogSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
