package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListCountries(c *gin.Context) {
	countries, err := s.refrepo.ListCountries(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": countries})
}

// SuggestCountry guesses the caller's country from their address. A miss is
// not an error; the client simply gets no suggestion.
func (s *Server) SuggestCountry(c *gin.Context) {
	code, ok := s.geoip.SuggestCountry(c.Request.Context(), c.ClientIP())
	if !ok {
		c.JSON(http.StatusOK, gin.H{"data": nil})
		return
	}

	country, err := s.refrepo.FindCountry(c.Request.Context(), code)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if country == nil {
		c.JSON(http.StatusOK, gin.H{"data": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": country})
}

func (s *Server) GetStorefront(c *gin.Context) {
	storefront, err := s.tenantSvc.GetStorefront(c.Request.Context(), strings.TrimSpace(c.Param("slug")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": storefront})
}
