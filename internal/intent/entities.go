package intent

import (
	"regexp"
	"strings"
)

type EntityType string

const (
	EntityOrderID   EntityType = "order_id"
	EntityConnector EntityType = "connector"
	EntityDuration  EntityType = "duration"
	EntityDate      EntityType = "date"
)

type Entity struct {
	Type       EntityType `json:"type"`
	Value      string     `json:"value"`
	Confidence float64    `json:"confidence"`
	Start      int        `json:"start,omitempty"`
	End        int        `json:"end,omitempty"`
}

// connectorAliases is the fixed allow-list of downstream commerce
// integrations, plus spelling variants seen in the wild. Scanned in order;
// multi-word aliases come before their collapsed forms.
var connectorAliases = []struct {
	alias     string
	canonical string
}{
	{"ifood", "ifood"},
	{"rappi", "rappi"},
	{"uber eats", "ubereats"},
	{"ubereats", "ubereats"},
	{"shopify", "shopify"},
	{"mercado livre", "mercadolivre"},
	{"mercadolivre", "mercadolivre"},
}

var (
	orderIDPattern  = regexp.MustCompile(`(?:pedido|order)\s*#?\s*(\d+)`)
	durationPattern = regexp.MustCompile(`(\d+)\s*(minutos?|minutes?|min|horas?|hours?|h|dias?|days?)\b`)
	datePattern     = regexp.MustCompile(`hoje|ontem|amanh[ãa]|est[ae] semana|this week|est[ae] m[êe]s|this month|est[ae] ano|this year|today|yesterday|tomorrow`)
)

// ExtractEntities scans normalized (lower-cased) text for typed entities.
// Extraction runs independently of intent matching.
func ExtractEntities(text string) []Entity {
	var entities []Entity

	if m := orderIDPattern.FindStringSubmatchIndex(text); m != nil {
		entities = append(entities, Entity{
			Type:       EntityOrderID,
			Value:      text[m[2]:m[3]],
			Confidence: 0.9,
			Start:      m[2],
			End:        m[3],
		})
	}

	for _, c := range connectorAliases {
		if idx := strings.Index(text, c.alias); idx >= 0 {
			entities = append(entities, Entity{
				Type:       EntityConnector,
				Value:      c.canonical,
				Confidence: 0.95,
				Start:      idx,
				End:        idx + len(c.alias),
			})
			break
		}
	}

	if m := durationPattern.FindStringSubmatchIndex(text); m != nil {
		entities = append(entities, Entity{
			Type:       EntityDuration,
			Value:      text[m[0]:m[1]],
			Confidence: 0.85,
			Start:      m[0],
			End:        m[1],
		})
	}

	if m := datePattern.FindStringIndex(text); m != nil {
		entities = append(entities, Entity{
			Type:       EntityDate,
			Value:      text[m[0]:m[1]],
			Confidence: 0.85,
			Start:      m[0],
			End:        m[1],
		})
	}

	return entities
}
