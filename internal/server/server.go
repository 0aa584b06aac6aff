// Package server is the gin transport in front of the message pipeline.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	auditdomain "github.com/tinylojas/conversa/internal/audit/domain"
	billingdomain "github.com/tinylojas/conversa/internal/billing/domain"
	"github.com/tinylojas/conversa/internal/config"
	"github.com/tinylojas/conversa/internal/events"
	identitydomain "github.com/tinylojas/conversa/internal/identity/domain"
	"github.com/tinylojas/conversa/internal/observability/metrics"
	"github.com/tinylojas/conversa/internal/orchestrator"
	"github.com/tinylojas/conversa/internal/ratelimit"
	usagedomain "github.com/tinylojas/conversa/internal/usage/domain"
)

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Params struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Orchestrator *orchestrator.Orchestrator
	IdentitySvc  identitydomain.Service
	BillingSvc   billingdomain.Service
	UsageSvc     usagedomain.Service

	AuditSvc       auditdomain.Service      `optional:"true"`
	Events         *events.Publisher        `optional:"true"`
	Metrics        *metrics.Metrics         `optional:"true"`
	WebhookLimiter *ratelimit.WebhookLimiter `optional:"true"`
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	log            *zap.Logger
	orch           *orchestrator.Orchestrator
	identitySvc    identitydomain.Service
	billingSvc     billingdomain.Service
	usageSvc       usagedomain.Service
	auditSvc       auditdomain.Service
	events         *events.Publisher
	metrics        *metrics.Metrics
	webhookLimiter *ratelimit.WebhookLimiter
}

func NewServer(p Params) *Server {
	return &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		log:            p.Log.Named("server"),
		orch:           p.Orchestrator,
		identitySvc:    p.IdentitySvc,
		billingSvc:     p.BillingSvc,
		usageSvc:       p.UsageSvc,
		auditSvc:       p.AuditSvc,
		events:         p.Events,
		metrics:        p.Metrics,
		webhookLimiter: p.WebhookLimiter,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/chat/messages", s.HandleChatMessage)
	v1.POST("/webhooks/commerce", s.HandleCommerceWebhook)

	v1.POST("/identities", s.CreateIdentity)
	v1.POST("/identities/bind", s.BindChannel)
	v1.GET("/identities/:email/channels", s.ListIdentityChannels)

	v1.GET("/billing/:identity", s.GetBillingInfo)
	v1.POST("/billing/upgrade", s.UpgradeTier)

	v1.GET("/usage/:identity/history", s.GetUsageHistory)

	if s.auditSvc != nil {
		v1.GET("/audit-logs", s.ListAuditLogs)
	}
}

// RunHTTP starts the HTTP listener on the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
