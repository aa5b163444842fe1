package core

import (
	"regexp"

	"github.com/valter-silva-au/taskflow/pkg/models"
)

// Layer names which intent summary a pattern feeds.
type Layer string

const (
	LayerExplicit  Layer = "explicit"
	LayerShadow    Layer = "shadow"
	LayerPractical Layer = "practical"
)

// IntentPattern is one row of a classification table. For shadow patterns
// Before and After are the widths of the context window cut around a match.
// Weight is the confidence contribution of the pattern's layer.
type IntentPattern struct {
	Category string
	Layer    Layer
	Regex    *regexp.Regexp
	Weight   int
	Before   int
	After    int
}

// PriorityTier is an urgency tier. Tiers are scanned in table order and the
// first tier with any match wins.
type PriorityTier struct {
	Priority models.Priority
	Patterns []*regexp.Regexp
}

// PriorityKeyword is a secondary signal that may only raise a priority.
type PriorityKeyword struct {
	Keyword  *regexp.Regexp
	Priority models.Priority
}

// Confidence weights.
const (
	checklistWeight = 40
	explicitWeight  = 30
	shadowWeight    = 15
	practicalWeight = 15
	maxConfidence   = 100

	// MinConfidence is the score below which a candidate is noise.
	MinConfidence = 30
)

func ci(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + expr)
}

// explicitPatterns detect a stated intention.
var explicitPatterns = []IntentPattern{
	{Category: "obligation", Layer: LayerExplicit, Weight: explicitWeight,
		Regex: ci(`\b(need to|needs to|have to|must|should|will|want to)\b`)},
	{Category: "imperative", Layer: LayerExplicit, Weight: explicitWeight,
		Regex: ci(`\b(implement|create|build|add|fix|update|change|remove|delete)\b`)},
	{Category: "task noun", Layer: LayerExplicit, Weight: explicitWeight,
		Regex: ci(`\b(task|todo|to-do|action item|deliverable)s?\b`)},
}

// shadowPatterns detect the motivation behind a statement.
var shadowPatterns = []IntentPattern{
	{Category: "causal", Layer: LayerShadow, Weight: shadowWeight, Before: 20, After: 20,
		Regex: ci(`\b(because|since|so that|in order to|to enable|to prevent)\b`)},
	{Category: "affect", Layer: LayerShadow, Weight: shadowWeight, After: 30,
		Regex: ci(`\b(worried|concerned|frustrated|frustrating|painful|tedious)\b`)},
	{Category: "soft modal", Layer: LayerShadow, Weight: shadowWeight, After: 30,
		Regex: ci(`\b(would be nice|could|might|maybe|eventually)\b`)},
	{Category: "stakeholder", Layer: LayerShadow, Weight: shadowWeight, After: 50,
		Regex: ci(`\b(users?|customers?|team)\b.{0,20}?\b(wants?|needs?|expects?|complain(s|ed|ing)?)\b`)},
}

// practicalPatterns detect concrete implementation detail.
var practicalPatterns = []IntentPattern{
	{Category: "steps", Layer: LayerPractical, Weight: practicalWeight,
		Regex: ci(`\b(step \d+|first|then|next|finally|after that)\b`)},
	{Category: "system components", Layer: LayerPractical, Weight: practicalWeight,
		Regex: ci(`\b(files?|functions?|class(es)?|modules?|components?|apis?|endpoints?|databases?)\b`)},
	{Category: "operations", Layer: LayerPractical, Weight: practicalWeight,
		Regex: ci(`\b(test|deploy|configure|setup|set up|install|migrate)\b`)},
}

// priorityTiers is ordered P0 first.
var priorityTiers = []PriorityTier{
	{Priority: models.P0, Patterns: []*regexp.Regexp{
		ci(`\b(critical|urgent|blocker|asap|immediately|breaking|down|outage)\b`),
	}},
	{Priority: models.P1, Patterns: []*regexp.Regexp{
		ci(`\b(important|high priority|soon|this week|pressing|significant)\b`),
	}},
	{Priority: models.P2, Patterns: []*regexp.Regexp{
		ci(`\b(medium|normal|standard|regular|when possible)\b`),
	}},
	{Priority: models.P3, Patterns: []*regexp.Regexp{
		ci(`\b(low priority|nice to have|eventually|someday|minor|trivial)\b`),
	}},
}

// priorityKeywords raise a tier result toward P0, never lower it.
var priorityKeywords = []PriorityKeyword{
	{Keyword: ci(`\b(crash(es|ed|ing)?|data loss|security vulnerability)\b`), Priority: models.P0},
	{Keyword: ci(`\b(bug|regression|security|deadline|customer)\b`), Priority: models.P1},
	{Keyword: ci(`\b(refactor|cleanup|docs|documentation)\b`), Priority: models.P2},
}

// interrogativeStart matches a line opening with a question word.
var interrogativeStart = ci(`^\W*(what|how|why|when|where|who|is|are|was|were|do|does)\b`)

// matchesAny reports whether text matches any pattern in table.
func matchesAny(table []IntentPattern, text string) bool {
	for _, p := range table {
		if p.Regex.MatchString(text) {
			return true
		}
	}
	return false
}
