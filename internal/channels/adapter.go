// Package channels enforces per-channel length limits, emoji policy and
// markup conventions on outbound text.
package channels

import (
	"strings"

	"go.uber.org/fx"
)

const (
	WhatsApp  = "whatsapp"
	Telegram  = "telegram"
	SMS       = "sms"
	Web       = "web"
	Instagram = "instagram"
)

type channelConfig struct {
	maxLength    int
	emojiAllowed bool
}

var channelConfigs = map[string]channelConfig{
	WhatsApp:  {maxLength: 4096, emojiAllowed: true},
	Telegram:  {maxLength: 4096, emojiAllowed: true},
	SMS:       {maxLength: 160, emojiAllowed: false},
	Web:       {maxLength: 8192, emojiAllowed: true},
	Instagram: {maxLength: 1000, emojiAllowed: true},
}

var defaultConfig = channelConfig{maxLength: 4096, emojiAllowed: true}

// emojiFamilies maps keyword cues to the single semantic emoji that may be
// prepended. Scanned in order; first match wins and at most one is added.
var emojiFamilies = []struct {
	cues  []string
	emoji string
}{
	{[]string{"sucesso", "confirmado", "pronto", "success", "confirmed", "done"}, "✅"},
	{[]string{"erro", "falha", "problema", "error", "failed", "sorry", "desculpe"}, "❌"},
	{[]string{"pedido", "pedidos", "order", "orders", "entrega"}, "📦"},
	{[]string{"faturamento", "receita", "revenue", "vendas", "r$", "pagamento"}, "💰"},
}

var knownEmojis = []string{
	"✅", "❌", "📦", "💰", "📊", "🚀", "⚠️", "🎉", "👍", "🙏", "😀", "😊", "🤖", "💬", "🔔",
}

type Adapter struct{}

func NewAdapter() *Adapter {
	return &Adapter{}
}

func configFor(channel string) channelConfig {
	if cfg, ok := channelConfigs[strings.ToLower(channel)]; ok {
		return cfg
	}
	return defaultConfig
}

// MaxLength exposes the configured limit for a channel.
func (a *Adapter) MaxLength(channel string) int {
	return configFor(channel).maxLength
}

// Adapt makes text compliant with the channel: optional semantic emoji
// prefix, hard length truncation with a trailing ellipsis, markup
// normalization, and emoji stripping where the channel disallows them.
func (a *Adapter) Adapt(text, channel string, addEmojis bool) string {
	cfg := configFor(channel)

	if addEmojis && cfg.emojiAllowed {
		text = prependSemanticEmoji(text)
	}

	text = truncate(text, cfg.maxLength)
	text = normalizeMarkup(text, channel)

	if !cfg.emojiAllowed {
		text = stripEmojis(text)
	}
	return text
}

func prependSemanticEmoji(text string) string {
	lower := strings.ToLower(text)
	for _, family := range emojiFamilies {
		for _, cue := range family.cues {
			if strings.Contains(lower, cue) {
				return family.emoji + " " + text
			}
		}
	}
	return text
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func normalizeMarkup(text, channel string) string {
	switch strings.ToLower(channel) {
	case WhatsApp:
		// WhatsApp bold is single asterisks.
		return strings.ReplaceAll(text, "**", "*")
	case SMS:
		text = strings.ReplaceAll(text, "**", "")
		return strings.ReplaceAll(text, "*", "")
	default:
		return text
	}
}

func stripEmojis(text string) string {
	for _, emoji := range knownEmojis {
		text = strings.ReplaceAll(text, emoji, "")
	}
	return strings.TrimSpace(text)
}

// Module provides the channel response adapter.
var Module = fx.Module("channels.adapter",
	fx.Provide(NewAdapter),
)
