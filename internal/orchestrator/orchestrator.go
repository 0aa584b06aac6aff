// Package orchestrator sequences one inbound message through identity
// resolution, limit gating, classification, the reasoning call, and
// channel adaptation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	auditdomain "github.com/tinylojas/conversa/internal/audit/domain"
	"github.com/tinylojas/conversa/internal/brain"
	"github.com/tinylojas/conversa/internal/channels"
	"github.com/tinylojas/conversa/internal/clock"
	convdomain "github.com/tinylojas/conversa/internal/conversation/domain"
	"github.com/tinylojas/conversa/internal/events"
	identitydomain "github.com/tinylojas/conversa/internal/identity/domain"
	"github.com/tinylojas/conversa/internal/intent"
	"github.com/tinylojas/conversa/internal/limits"
	"github.com/tinylojas/conversa/internal/observability/metrics"
	usagedomain "github.com/tinylojas/conversa/internal/usage/domain"
)

// Inbound is one channel-native message.
type Inbound struct {
	Channel   string
	ChannelID string
	Text      string
}

// Result is the terminal outcome of one pipeline run. Exactly one of the
// three shapes holds: success (Err and Limited nil), gated (Limited set),
// or failure (Err set). Reply is always a user-safe string.
type Result struct {
	Reply     string
	Intent    string
	Connector string
	Latency   time.Duration
	Limited   *limits.LimitExceededError
	Err       error
}

func (r Result) OK() bool        { return r.Err == nil && r.Limited == nil }
func (r Result) IsLimited() bool { return r.Limited != nil }

// User-safe terminal replies. Raw errors never reach these strings.
const (
	replyNotRegistered = "Não encontramos seu cadastro neste canal. Acesse o painel da Conversa para vincular sua conta. 🙏"
	replyUpgradeOffer  = "Você atingiu o limite de %d mensagens do plano %s este mês. 💰 Faça upgrade para continuar: %s"
)

var ErrInvalidInput = errors.New("invalid_input")

type Params struct {
	fx.In

	Log          *zap.Logger
	Clock        clock.Clock
	Identity     identitydomain.Service
	Usage        usagedomain.Service
	Conversation convdomain.Service
	Gate         *limits.Gate
	Classifier   *intent.Classifier
	Adapter      *channels.Adapter
	Brain        brain.Generator

	Audit   auditdomain.Service `optional:"true"`
	Events  *events.Publisher   `optional:"true"`
	Metrics *metrics.Metrics    `optional:"true"`
}

type Orchestrator struct {
	log          *zap.Logger
	clock        clock.Clock
	identity     identitydomain.Service
	usage        usagedomain.Service
	conversation convdomain.Service
	gate         *limits.Gate
	classifier   *intent.Classifier
	adapter      *channels.Adapter
	brain        brain.Generator
	audit        auditdomain.Service
	events       *events.Publisher
	metrics      *metrics.Metrics
}

func New(p Params) *Orchestrator {
	return &Orchestrator{
		log:          p.Log.Named("orchestrator"),
		clock:        p.Clock,
		identity:     p.Identity,
		usage:        p.Usage,
		conversation: p.Conversation,
		gate:         p.Gate,
		classifier:   p.Classifier,
		adapter:      p.Adapter,
		brain:        p.Brain,
		audit:        p.Audit,
		events:       p.Events,
		metrics:      p.Metrics,
	}
}

// Process runs the full pipeline for one inbound message. Usage is charged
// before the reasoning call is attempted, so a downstream failure still
// consumes quota.
func (o *Orchestrator) Process(ctx context.Context, in Inbound) Result {
	start := o.clock.Now()

	if in.Channel == "" || in.ChannelID == "" || in.Text == "" {
		return Result{Reply: replyNotRegistered, Latency: o.since(start), Err: ErrInvalidInput}
	}

	email, err := o.identity.Resolve(ctx, in.Channel, in.ChannelID)
	if err != nil {
		o.log.Warn("identity resolution failed",
			zap.String("channel", in.Channel),
			zap.String("channel_id", in.ChannelID),
			zap.Error(err),
		)
		return Result{Reply: replyNotRegistered, Latency: o.since(start), Err: err}
	}

	ident, err := o.identity.Get(ctx, email)
	if err != nil {
		o.log.Error("identity lookup failed", zap.String("email", email), zap.Error(err))
		return Result{Reply: brain.FallbackReply, Latency: o.since(start), Err: err}
	}

	if err := o.gate.Enforce(ctx, email, ident.Tier); err != nil {
		var limited *limits.LimitExceededError
		if errors.As(err, &limited) {
			return o.gated(ctx, in, limited, start)
		}
		o.log.Error("limit check failed", zap.String("email", email), zap.Error(err))
		return Result{Reply: brain.FallbackReply, Latency: o.since(start), Err: err}
	}

	convCtx, err := o.conversation.Get(ctx, email)
	if err != nil {
		o.log.Error("context read failed", zap.String("email", email), zap.Error(err))
		return Result{Reply: brain.FallbackReply, Latency: o.since(start), Err: err}
	}

	cls := o.classifier.Classify(in.Text, convCtx)

	if _, err := o.usage.Increment(ctx, email, 1); err != nil {
		o.log.Error("usage increment failed", zap.String("email", email), zap.Error(err))
		return Result{Reply: brain.FallbackReply, Latency: o.since(start), Err: err}
	}

	reply, err := o.brain.Generate(ctx, in.Text, convCtx)
	if err != nil {
		// Quota stays consumed. The user gets the fixed fallback, the
		// error stays here.
		o.log.Warn("reasoning call failed", zap.String("email", email), zap.Error(err))
		if o.metrics != nil {
			o.metrics.RecordBrainFailure(ctx)
		}
		reply = brain.FallbackReply
	}

	adapted := o.adapter.Adapt(reply, in.Channel, true)

	o.record(ctx, in, email, cls, adapted)

	return Result{
		Reply:     adapted,
		Intent:    string(cls.Intent),
		Connector: cls.Connector,
		Latency:   o.since(start),
	}
}

// gated renders the upgrade offer without touching the counter or the
// reasoning component.
func (o *Orchestrator) gated(ctx context.Context, in Inbound, limited *limits.LimitExceededError, start time.Time) Result {
	o.log.Info("message gated",
		zap.String("email", limited.Email),
		zap.String("tier", string(limited.Tier)),
		zap.Int("used", limited.Used),
		zap.Int("limit", limited.Limit),
	)
	if o.metrics != nil {
		o.metrics.RecordLimitDenied(ctx, string(limited.Tier))
	}
	if o.events != nil {
		o.events.Publish(ctx, events.Event{
			Type: events.TypeLimitExceeded,
			Payload: map[string]any{
				"email": limited.Email,
				"tier":  string(limited.Tier),
				"used":  limited.Used,
				"limit": limited.Limit,
			},
		})
	}

	offer := fmt.Sprintf(replyUpgradeOffer, limited.Limit, limited.Tier, limited.UpgradeURL)
	return Result{
		Reply:   o.adapter.Adapt(offer, in.Channel, true),
		Latency: o.since(start),
		Limited: limited,
	}
}

// record persists the exchange and emits the audit row and integration
// event. All of it is best-effort; the reply already left.
func (o *Orchestrator) record(ctx context.Context, in Inbound, email string, cls intent.Classification, reply string) {
	req := convdomain.AppendRequest{
		Email:      email,
		Inbound:    in.Text,
		Outbound:   reply,
		LastIntent: string(cls.Intent),
	}
	if cls.Connector != "" {
		connector := cls.Connector
		req.LastConnector = &connector
	}
	for _, e := range cls.Entities {
		if e.Type == intent.EntityOrderID {
			orderID := e.Value
			req.LastOrderID = &orderID
			break
		}
	}
	if _, err := o.conversation.AppendExchange(ctx, req); err != nil {
		o.log.Warn("context append failed", zap.String("email", email), zap.Error(err))
	}

	if o.audit != nil {
		if err := o.audit.Record(ctx, "identity", email, "message.processed", "channel", in.Channel, map[string]any{
			"intent":    string(cls.Intent),
			"connector": cls.Connector,
		}); err != nil {
			o.log.Warn("audit record failed", zap.String("email", email), zap.Error(err))
		}
	}
	if o.events != nil {
		o.events.Publish(ctx, events.Event{
			Type: events.TypeMessageProcessed,
			Payload: map[string]any{
				"email":     email,
				"channel":   in.Channel,
				"intent":    string(cls.Intent),
				"connector": cls.Connector,
			},
		})
	}
	if o.metrics != nil {
		o.metrics.RecordMessageProcessed(ctx, in.Channel, string(cls.Intent))
	}
}

func (o *Orchestrator) since(start time.Time) time.Duration {
	return o.clock.Now().Sub(start)
}

// Module provides the message pipeline orchestrator.
var Module = fx.Module("orchestrator",
	fx.Provide(New),
)
