package mapper

import (
	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/parser"
)

// MinConfidence is the floor below which a header stays unmapped.
const MinConfidence = 0.3

// dncHeaderPatterns are header spellings that force-map a column to the
// dnc field. Matching is against the normalized whole header, not a
// substring, so a column like "contact status" is never caught.
var dncHeaderPatterns = map[string]bool{
	"dnc":       true,
	"isdnc":     true,
	"donotcall": true,
	"dncflag":   true,
	"dncstatus": true,
	"nocall":    true,
	"optout":    true,
}

// sampleLimit caps how many rows feed the value scorer.
const sampleLimit = 20

// Mapper infers mapping rules from source headers and sampled values.
type Mapper struct {
	name  Scorer
	value Scorer
}

// New returns a Mapper with the default name and value scorers.
func New() *Mapper {
	return &Mapper{name: NameScorer{}, value: ValueScorer{}}
}

// NewWithScorers builds a Mapper around custom scorers.
func NewWithScorers(name, value Scorer) *Mapper {
	return &Mapper{name: name, value: value}
}

// Map proposes one MappingRule per source header, in header order.
// Headers recognized as DNC columns are force-mapped with confidence
// 1.0 and appended after the heuristic rules. Headers whose best score
// stays under MinConfidence keep an empty target.
func (m *Mapper) Map(headers []string, sampleRows []parser.RawRow) []models.MappingRule {
	if len(sampleRows) > sampleLimit {
		sampleRows = sampleRows[:sampleLimit]
	}

	rules := make([]models.MappingRule, 0, len(headers))
	var dncRules []models.MappingRule

	for _, header := range headers {
		if dncHeaderPatterns[normalizeKey(header)] {
			dncRules = append(dncRules, models.MappingRule{
				SourceField: header,
				TargetField: "dnc",
				Confidence:  1.0,
			})
			continue
		}

		samples := sampleValues(header, sampleRows)
		target, confidence := m.bestTarget(header, samples)
		rule := models.MappingRule{SourceField: header, Confidence: confidence}
		if confidence >= MinConfidence {
			rule.TargetField = target
			rule.IsRequired = models.IsRequiredField(target)
		}
		rules = append(rules, rule)
	}

	return append(rules, dncRules...)
}

// bestTarget scores the header against every system field and returns
// the winner. The name score is the base; a strong value score (>0.8)
// overrides it, a merely better one is averaged in.
func (m *Mapper) bestTarget(header string, samples []string) (string, float64) {
	bestField := ""
	bestScore := 0.0
	for _, f := range models.SystemFields {
		if f.Value == "dnc" {
			continue // dnc is assigned by header pattern only
		}
		nameScore := m.name.Score(header, samples, f.Value)
		valueScore := m.value.Score(header, samples, f.Value)

		score := nameScore
		if valueScore > score {
			if valueScore > 0.8 {
				score = valueScore
			} else {
				score = (nameScore + valueScore) / 2
			}
		}
		if score > bestScore {
			bestScore = score
			bestField = f.Value
		}
	}
	return bestField, bestScore
}

// BestByTarget selects the winning rule per target field. A rule
// replaces the incumbent only on strictly higher confidence, so on a
// tie the earliest header in file order keeps the target.
func BestByTarget(rules []models.MappingRule) map[string]models.MappingRule {
	best := make(map[string]models.MappingRule)
	for _, r := range rules {
		if r.TargetField == "" {
			continue
		}
		cur, ok := best[r.TargetField]
		if !ok || r.Confidence > cur.Confidence {
			best[r.TargetField] = r
		}
	}
	return best
}

// MissingRequired lists required system fields no rule maps to.
func MissingRequired(rules []models.MappingRule) []string {
	mapped := BestByTarget(rules)
	var missing []string
	for _, f := range models.SystemFields {
		if f.Required && mapped[f.Value].TargetField == "" {
			missing = append(missing, f.Value)
		}
	}
	return missing
}

// ApplyMapping projects a raw row onto the system field catalog using
// the best rule per target. Every system field is present in the
// output; fields no rule reaches carry an empty string, never a
// missing key.
func ApplyMapping(row parser.RawRow, best map[string]models.MappingRule) map[string]string {
	out := make(map[string]string, len(models.SystemFields))
	for _, f := range models.SystemFields {
		rule, ok := best[f.Value]
		if !ok {
			out[f.Value] = ""
			continue
		}
		out[f.Value] = row[rule.SourceField]
	}
	return out
}

func sampleValues(header string, rows []parser.RawRow) []string {
	values := make([]string, 0, len(rows))
	for _, row := range rows {
		values = append(values, row[header])
	}
	return values
}
