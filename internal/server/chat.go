package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	identitydomain "github.com/tinylojas/conversa/internal/identity/domain"
	"github.com/tinylojas/conversa/internal/orchestrator"
)

type chatMessageRequest struct {
	Channel  string `json:"channel" binding:"required"`
	SenderID string `json:"sender_id" binding:"required"`
	ChatID   string `json:"chat_id"`
	Text     string `json:"text" binding:"required"`
}

type chatMessageResponse struct {
	Reply      string `json:"reply"`
	Intent     string `json:"intent,omitempty"`
	Connector  string `json:"connector,omitempty"`
	LatencyMS  int64  `json:"latency_ms"`
	Limited    bool   `json:"limited"`
	UpgradeURL string `json:"upgrade_url,omitempty"`
}

// HandleChatMessage runs one inbound chat message through the pipeline.
// Gated and degraded outcomes are in-band replies, not transport errors;
// only an unbound channel identity surfaces as an error response.
func (s *Server) HandleChatMessage(c *gin.Context) {
	var req chatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	res := s.orch.Process(c.Request.Context(), orchestrator.Inbound{
		Channel:   strings.ToLower(strings.TrimSpace(req.Channel)),
		ChannelID: strings.TrimSpace(req.SenderID),
		Text:      req.Text,
	})

	if errors.Is(res.Err, identitydomain.ErrIdentityNotFound) {
		AbortWithError(c, res.Err)
		return
	}

	resp := chatMessageResponse{
		Reply:     res.Reply,
		Intent:    res.Intent,
		Connector: res.Connector,
		LatencyMS: res.Latency.Milliseconds(),
		Limited:   res.IsLimited(),
	}
	if res.Limited != nil {
		resp.UpgradeURL = res.Limited.UpgradeURL
	}
	c.JSON(http.StatusOK, resp)
}
