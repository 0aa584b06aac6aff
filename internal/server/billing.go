package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tinylojas/conversa/internal/tier"
)

type upgradeTierRequest struct {
	Identity   string `json:"identity" binding:"required"`
	Tier       string `json:"tier" binding:"required"`
	PaymentRef string `json:"payment_ref"`
}

func (s *Server) GetBillingInfo(c *gin.Context) {
	email := strings.TrimSpace(c.Param("identity"))

	info, err := s.billingSvc.Info(c.Request.Context(), email)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) UpgradeTier(c *gin.Context) {
	var req upgradeTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	change, err := s.billingSvc.ApplyTierChange(
		c.Request.Context(),
		strings.TrimSpace(req.Identity),
		tier.Tier(strings.ToLower(strings.TrimSpace(req.Tier))),
		req.PaymentRef,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, change)
}
