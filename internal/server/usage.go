package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetUsageHistory(c *gin.Context) {
	email := strings.TrimSpace(c.Param("identity"))

	months := 6
	if raw := c.Query("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		months = parsed
	}

	records, err := s.usageSvc.History(c.Request.Context(), email, months)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": email, "history": records})
}
