package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tinylojas/conversa/internal/events"
	"github.com/tinylojas/conversa/internal/orchestrator"
)

const signatureHeader = "X-Conversa-Signature"

type commerceWebhookRequest struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Merchant  string         `json:"merchant"`
	Channel   string         `json:"channel"`
	ChannelID string         `json:"channel_id"`
	Text      string         `json:"text"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// HandleCommerceWebhook ingests a provider event. The signature is verified
// with a constant-time compare; an unverifiable or throttled delivery is
// logged and counted but still acked with 200, so the provider does not
// enter a redelivery storm. Processing runs after the ack.
func (s *Server) HandleCommerceWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if !s.verifySignature(body, c.GetHeader(signatureHeader)) {
		s.log.Warn("commerce webhook signature rejected",
			zap.String("remote", c.ClientIP()),
		)
		if s.metrics != nil {
			s.metrics.RecordWebhookRejected(c.Request.Context(), "bad_signature")
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	var req commerceWebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.log.Warn("commerce webhook payload invalid", zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordWebhookRejected(c.Request.Context(), "bad_payload")
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	if s.webhookLimiter.Enabled() {
		allowed, retryAfter := s.webhookLimiter.Allow(c.Request.Context(), req.Merchant)
		if !allowed {
			s.log.Warn("commerce webhook rate limited",
				zap.String("merchant", req.Merchant),
				zap.Duration("retry_after", retryAfter),
			)
			if s.metrics != nil {
				s.metrics.RecordWebhookRejected(c.Request.Context(), "rate_limited")
			}
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
	}

	if s.events != nil {
		s.events.Publish(c.Request.Context(), events.Event{
			Type: events.TypeCommerceEventReceived,
			Payload: map[string]any{
				"event_id":   req.EventID,
				"event_type": req.EventType,
				"merchant":   req.Merchant,
			},
		})
	}

	// Quick-ack, then process. Downstream failures are swallowed here; the
	// provider already got its 200.
	go s.processCommerceEvent(req)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) processCommerceEvent(req commerceWebhookRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res := s.orch.Process(ctx, orchestrator.Inbound{
		Channel:   strings.ToLower(strings.TrimSpace(req.Channel)),
		ChannelID: strings.TrimSpace(req.ChannelID),
		Text:      req.Text,
	})
	if res.Err != nil {
		s.log.Warn("commerce event processing failed",
			zap.String("event_id", req.EventID),
			zap.String("merchant", req.Merchant),
			zap.Error(res.Err),
		)
	}
}

func (s *Server) verifySignature(body []byte, signature string) bool {
	secret := s.cfg.CommerceWebhookSecret
	if secret == "" || signature == "" {
		return false
	}

	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}
