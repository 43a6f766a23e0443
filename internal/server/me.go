package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	addressdomain "github.com/smallbiznis/giftflow/internal/address/domain"
	"github.com/smallbiznis/giftflow/internal/cart"
	checkoutdomain "github.com/smallbiznis/giftflow/internal/checkout/domain"
	employeedomain "github.com/smallbiznis/giftflow/internal/employee/domain"
	ledgerdomain "github.com/smallbiznis/giftflow/internal/ledger/domain"
	"github.com/smallbiznis/giftflow/pkg/db/pagination"
)

type checkoutRequest struct {
	Lines           []cart.LineInput              `json:"lines"`
	ShippingAddress addressdomain.ShippingAddress `json:"shipping_address"`
	SaveAddress     bool                          `json:"save_address"`
}

type meResponse struct {
	Employee employeedomain.Employee `json:"employee"`
	Balance  ledgerdomain.Balance    `json:"balance"`
}

func (s *Server) Me(c *gin.Context) {
	ctx := c.Request.Context()
	p := currentPrincipal(c)

	employee, err := s.employeeSvc.Get(ctx, p.TenantID, p.EmployeeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	balance, err := s.ledgerSvc.GetBalance(ctx, p.TenantID, p.EmployeeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": meResponse{Employee: employee, Balance: balance}})
}

func (s *Server) ListMyCatalog(c *gin.Context) {
	products, err := s.catalogSvc.ListVisibleProducts(c.Request.Context(), currentPrincipal(c).TenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": products})
}

func (s *Server) ListMyLedger(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	p := currentPrincipal(c)
	entries, pageInfo, err := s.ledgerSvc.ListEntries(c.Request.Context(), p.TenantID, p.EmployeeID, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries, "page_info": pageInfo})
}

func (s *Server) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items, err := cart.FromLines(req.Lines)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	p := currentPrincipal(c)
	order, err := s.checkoutSvc.Checkout(c.Request.Context(), checkoutdomain.Request{
		TenantID:        p.TenantID,
		EmployeeID:      p.EmployeeID,
		IdempotencyKey:  strings.TrimSpace(c.GetHeader(headerIdempotencyKey)),
		Cart:            items,
		ShippingAddress: req.ShippingAddress,
		SaveAddress:     req.SaveAddress,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": order})
}

func (s *Server) ListMyOrders(c *gin.Context) {
	filter, ok := bindOrderFilter(c)
	if !ok {
		return
	}

	p := currentPrincipal(c)
	orders, pageInfo, err := s.orderSvc.ListByEmployee(c.Request.Context(), p.TenantID, p.EmployeeID, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders, "page_info": pageInfo})
}

func (s *Server) GetMyAddress(c *gin.Context) {
	p := currentPrincipal(c)
	addr, err := s.addressSvc.Get(c.Request.Context(), p.TenantID, p.EmployeeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": addr})
}

func (s *Server) SaveMyAddress(c *gin.Context) {
	var req addressdomain.ShippingAddress
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	p := currentPrincipal(c)
	addr, err := s.addressSvc.Save(c.Request.Context(), p.TenantID, p.EmployeeID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": addr})
}
