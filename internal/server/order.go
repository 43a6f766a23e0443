package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/giftflow/internal/order/domain"
	"github.com/smallbiznis/giftflow/pkg/db/pagination"
)

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

type orderDetail struct {
	orderdomain.Order
	History []orderdomain.StatusEvent `json:"history"`
}

// bindOrderFilter reads status and pagination from the query string.
func bindOrderFilter(c *gin.Context) (orderdomain.ListFilter, bool) {
	var query struct {
		pagination.Pagination
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return orderdomain.ListFilter{}, false
	}

	filter := orderdomain.ListFilter{Pagination: query.Pagination}
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status, ok := orderdomain.ParseStatus(raw)
		if !ok {
			AbortWithError(c, orderdomain.ErrInvalidStatus)
			return orderdomain.ListFilter{}, false
		}
		filter.Status = status
	}
	return filter, true
}

func (s *Server) ListAllOrders(c *gin.Context) {
	filter, ok := bindOrderFilter(c)
	if !ok {
		return
	}

	orders, pageInfo, err := s.orderSvc.ListAll(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders, "page_info": pageInfo})
}

func (s *Server) GetOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	order, err := s.orderSvc.Get(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	history, err := s.orderSvc.History(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orderDetail{Order: order, History: history}})
}

func (s *Server) UpdateOrderStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	status, valid := orderdomain.ParseStatus(strings.TrimSpace(req.Status))
	if !valid {
		AbortWithError(c, orderdomain.ErrInvalidStatus)
		return
	}

	order, err := s.orderSvc.UpdateStatus(c.Request.Context(), id, status, actorOf(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

func (s *Server) GetPackingSlip(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	slip, order, err := s.orderSvc.PackingSlip(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	body, err := io.ReadAll(slip)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "packing-slip-"+order.OrderNumber+".pdf"))
	c.Data(http.StatusOK, "application/pdf", body)
}

func (s *Server) ListTenantOrders(c *gin.Context) {
	filter, ok := bindOrderFilter(c)
	if !ok {
		return
	}

	orders, pageInfo, err := s.orderSvc.ListByTenant(c.Request.Context(), currentPrincipal(c).TenantID, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders, "page_info": pageInfo})
}

// actorOf names the caller in the order's status history.
func actorOf(c *gin.Context) string {
	p := currentPrincipal(c)
	if email := strings.TrimSpace(p.Email); email != "" {
		return email
	}
	return "user:" + p.Subject
}
