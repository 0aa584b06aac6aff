// Package intent classifies free text into the closed retail intent set and
// extracts typed entities. Classification is state-free: callers pass the
// stored conversation context for follow-up resolution.
package intent

import (
	"regexp"
	"strings"

	"github.com/tinylojas/conversa/internal/config"
	convdomain "github.com/tinylojas/conversa/internal/conversation/domain"
	"go.uber.org/fx"
)

type Intent string

const (
	CheckOrders           Intent = "check_orders"
	GetTopItems           Intent = "get_top_items"
	CheckRevenue          Intent = "check_revenue"
	CheckStatus           Intent = "check_status"
	ConnectIntegration    Intent = "connect_integration"
	DisconnectIntegration Intent = "disconnect_integration"
	BillingInfo           Intent = "billing_info"
	UpgradePlan           Intent = "upgrade_plan"
	ConfirmOrder          Intent = "confirm_order"
	CancelOrder           Intent = "cancel_order"
	Greeting              Intent = "greeting"
	Help                  Intent = "help"
	Unknown               Intent = "unknown"
)

// Domain is fixed for the single-domain deployment; the field stays on
// Classification for future multi-domain routing.
const Domain = "retail"

const (
	patternConfidence  = 0.9
	followUpConfidence = 0.7
)

type Classification struct {
	Intent     Intent   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Domain     string   `json:"domain"`
	Connector  string   `json:"connector,omitempty"`
	Entities   []Entity `json:"entities,omitempty"`
}

// intentRules is evaluated top to bottom; the first matching pattern wins.
// Declaration order, not specificity, breaks ties.
var intentRules = []struct {
	intent  Intent
	pattern *regexp.Regexp
}{
	{DisconnectIntegration, regexp.MustCompile(`desconectar|desvincular|disconnect|remover integra`)},
	{ConnectIntegration, regexp.MustCompile(`conectar|vincular|integrar|\bconnect\b`)},
	{ConfirmOrder, regexp.MustCompile(`(confirmar|aceitar|accept)\s+(o\s+)?(pedido|order)`)},
	{CancelOrder, regexp.MustCompile(`(cancelar|recusar|reject|cancel)\s+(o\s+)?(pedido|order)`)},
	{GetTopItems, regexp.MustCompile(`mais vendid|top\s+(itens|items|produtos|products)|best\s*sell`)},
	{CheckOrders, regexp.MustCompile(`(quantos?|meus|ver|listar|list|how many|my|show)\b.*\b(pedidos?|orders?|vendas)\b`)},
	{CheckRevenue, regexp.MustCompile(`faturamento|receita|revenue|quanto\s+(vendi|faturei|ganhei)`)},
	{CheckStatus, regexp.MustCompile(`\bstatus\b|funcionando|est[áa] online|conectado`)},
	{UpgradePlan, regexp.MustCompile(`upgrade|mudar de plano|assinar o?\s*pro|virar pro`)},
	{BillingInfo, regexp.MustCompile(`meu plano|minha conta|assinatura|fatura|billing|uso atual|quantas mensagens`)},
	{Help, regexp.MustCompile(`ajuda|socorro|\bhelp\b|como funciona|o que voc[êe] faz`)},
	{Greeting, regexp.MustCompile(`^(oi|ol[áa]|bom dia|boa tarde|boa noite|hello|hi|hey)\b`)},
}

var (
	superlativeCue = regexp.MustCompile(`mais (caro|barato|vendido|pedido)|maior|menor|melhor|most expensive|cheapest|biggest|best`)
	affirmativeCue = regexp.MustCompile(`^(sim|pode|claro|ok|isso|confirma|yes|sure|yep)\b`)
	negativeCue    = regexp.MustCompile(`^(n[ãa]o|cancela|recusa|nope|no)\b`)
)

// followUpRules resolves context-dependent follow-ups when no pattern
// matched. Evaluated in order against the previous turn's intent.
var followUpRules = []struct {
	previous Intent
	cue      *regexp.Regexp
	intent   Intent
}{
	{CheckOrders, superlativeCue, GetTopItems},
	{CheckOrders, affirmativeCue, ConfirmOrder},
	{CheckOrders, negativeCue, CancelOrder},
	{ConnectIntegration, affirmativeCue, ConnectIntegration},
}

type Classifier struct {
	defaultConnector string
}

func NewClassifier(defaultConnector string) *Classifier {
	if defaultConnector == "" {
		defaultConnector = "ifood"
	}
	return &Classifier{defaultConnector: defaultConnector}
}

// Classify resolves the intent, confidence and entities for text. convCtx
// may be nil; it only enables follow-up heuristics and connector fallback.
func (c *Classifier) Classify(text string, convCtx *convdomain.Context) Classification {
	normalized := strings.ToLower(strings.TrimSpace(text))

	result := Classification{
		Intent:     Unknown,
		Confidence: 0.0,
		Domain:     Domain,
		Entities:   ExtractEntities(normalized),
	}

	matched := false
	for _, rule := range intentRules {
		if rule.pattern.MatchString(normalized) {
			result.Intent = rule.intent
			result.Confidence = patternConfidence
			matched = true
			break
		}
	}

	if !matched && convCtx != nil && convCtx.LastIntent != "" {
		previous := Intent(convCtx.LastIntent)
		for _, rule := range followUpRules {
			if rule.previous == previous && rule.cue.MatchString(normalized) {
				result.Intent = rule.intent
				result.Confidence = followUpConfidence
				break
			}
		}
	}

	result.Connector = c.resolveConnector(result.Entities, convCtx)
	return result
}

// resolveConnector prefers an explicit entity in this message, then the
// stored last connector, then the configured default.
func (c *Classifier) resolveConnector(entities []Entity, convCtx *convdomain.Context) string {
	for _, e := range entities {
		if e.Type == EntityConnector {
			return e.Value
		}
	}
	if convCtx != nil && convCtx.LastConnector != nil && *convCtx.LastConnector != "" {
		return *convCtx.LastConnector
	}
	return c.defaultConnector
}

// NewClassifierFromConfig builds the classifier with the configured
// default connector.
func NewClassifierFromConfig(cfg config.Config) *Classifier {
	return NewClassifier(cfg.DefaultConnector)
}

// Module provides the intent classifier.
var Module = fx.Module("intent.classifier",
	fx.Provide(NewClassifierFromConfig),
)
