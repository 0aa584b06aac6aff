// Package brain wraps the downstream reasoning component behind a narrow
// generate-reply capability.
package brain

import (
	"context"
	"errors"

	convdomain "github.com/tinylojas/conversa/internal/conversation/domain"
)

// FallbackReply is the fixed user-safe reply returned when the reasoning
// component is unavailable. The raw error stays in logs only.
const FallbackReply = "Desculpe, não consegui processar sua mensagem agora. Tente novamente em alguns instantes. 🙏"

// Generator is the opaque reasoning capability consumed by the orchestrator.
type Generator interface {
	Generate(ctx context.Context, text string, convCtx *convdomain.Context) (string, error)
}

var ErrUpstreamUnavailable = errors.New("upstream_unavailable")
