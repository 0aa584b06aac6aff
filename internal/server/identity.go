package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	auditdomain "github.com/tinylojas/conversa/internal/audit/domain"
	identitydomain "github.com/tinylojas/conversa/internal/identity/domain"
	"github.com/tinylojas/conversa/internal/tier"
)

type createIdentityRequest struct {
	Email string `json:"email" binding:"required"`
	Tier  string `json:"tier"`
}

func (s *Server) CreateIdentity(c *gin.Context) {
	var req createIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	t := tier.Free
	if req.Tier != "" {
		t = tier.Tier(strings.ToLower(strings.TrimSpace(req.Tier)))
	}

	ident, err := s.identitySvc.Create(c.Request.Context(), strings.TrimSpace(req.Email), t)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ident)
}

// BindChannel links a channel-native id to an identity. Re-binding is an
// explicit operation; nothing in the message path ever does this.
func (s *Server) BindChannel(c *gin.Context) {
	var req identitydomain.BindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	mapping, err := s.identitySvc.Bind(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		if err := s.auditSvc.Record(c.Request.Context(), "identity", mapping.Email, "channel.bound", "channel", mapping.Channel, map[string]any{
			"channel_id": mapping.ChannelID,
		}); err != nil {
			s.log.Warn("audit record failed")
		}
	}

	c.JSON(http.StatusOK, mapping)
}

func (s *Server) ListIdentityChannels(c *gin.Context) {
	email := strings.TrimSpace(c.Param("email"))

	channels, err := s.identitySvc.ChannelsFor(c.Request.Context(), email)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": email, "channels": channels})
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var req auditdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	logs, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit_logs": logs})
}
