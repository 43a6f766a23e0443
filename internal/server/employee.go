package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	employeedomain "github.com/smallbiznis/giftflow/internal/employee/domain"
	"github.com/smallbiznis/giftflow/pkg/db/pagination"
)

const maxImportBytes = 5 << 20

type createEmployeeRequest struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Points     *int64 `json:"points"`
}

type setEmployeeStatusRequest struct {
	Status string `json:"status"`
}

type grantRequest struct {
	Amount      int64  `json:"amount"`
	ReferenceID string `json:"reference_id"`
	Note        string `json:"note"`
}

func (s *Server) ListEmployees(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	filter := employeedomain.ListFilter{Pagination: query.Pagination}
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status, ok := employeedomain.ParseStatus(raw)
		if !ok {
			AbortWithError(c, employeedomain.ErrInvalidStatus)
			return
		}
		filter.Status = status
	}

	employees, pageInfo, err := s.employeeSvc.List(c.Request.Context(), currentPrincipal(c).TenantID, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": employees, "page_info": pageInfo})
}

func (s *Server) CreateEmployee(c *gin.Context) {
	var req createEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	employee, err := s.employeeSvc.Create(c.Request.Context(), employeedomain.CreateRequest{
		TenantID:   currentPrincipal(c).TenantID,
		Email:      req.Email,
		Name:       req.Name,
		Department: req.Department,
		Points:     req.Points,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": employee})
}

// ImportEmployees accepts the CSV either as a multipart "file" field or as the
// raw request body.
func (s *Server) ImportEmployees(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)

	body := c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			AbortWithError(c, newValidationError("file", "invalid_file", "file is required"))
			return
		}
		file, err := header.Open()
		if err != nil {
			AbortWithError(c, newValidationError("file", "invalid_file", "file cannot be read"))
			return
		}
		defer file.Close()
		body = file
	}

	result, err := s.employeeSvc.Import(c.Request.Context(), currentPrincipal(c).TenantID, body)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) DeleteEmployee(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.employeeSvc.Delete(c.Request.Context(), currentPrincipal(c).TenantID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) SetEmployeeStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req setEmployeeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	status, valid := employeedomain.ParseStatus(strings.TrimSpace(req.Status))
	if !valid {
		AbortWithError(c, employeedomain.ErrInvalidStatus)
		return
	}

	employee, err := s.employeeSvc.SetStatus(c.Request.Context(), currentPrincipal(c).TenantID, id, status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": employee})
}

func (s *Server) GrantPoints(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	balance, err := s.employeeSvc.Grant(c.Request.Context(), employeedomain.GrantRequest{
		TenantID:    currentPrincipal(c).TenantID,
		EmployeeID:  id,
		Amount:      req.Amount,
		ReferenceID: req.ReferenceID,
		Note:        req.Note,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": balance})
}
