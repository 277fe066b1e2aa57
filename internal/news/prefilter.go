package news

import "strings"

// Tier-0 macro keywords: stories matching these are admitted to
// classification at the macro (lowest) threshold regardless of fetch health.
var macroKeywords = []string{
	"coup",
	"sanction",
	"sovereign default",
	"debt default",
	"central bank",
	"rate decision",
	"emergency meeting",
	"war",
	"invasion",
	"missile",
	"nuclear",
	"tariff",
	"embargo",
	"currency peg",
	"capital controls",
	"bank run",
}

// MacroMatch reports the first Tier-0 keyword found in the headline.
func MacroMatch(headline string) (string, bool) {
	h := strings.ToLower(headline)
	for _, kw := range macroKeywords {
		if strings.Contains(h, kw) {
			return kw, true
		}
	}
	return "", false
}

// impact keywords and weights for the cheap prefilter
var impactKeywords = map[string]int{
	"earnings":     15,
	"guidance":     15,
	"merger":       20,
	"acquisition":  20,
	"bankruptcy":   25,
	"fda":          20,
	"approval":     10,
	"recall":       15,
	"lawsuit":      10,
	"investigation": 12,
	"upgrade":      8,
	"downgrade":    10,
	"dividend":     8,
	"buyback":      10,
	"ceo":          8,
	"resign":       10,
	"halt":         15,
	"surge":        5,
	"plunge":       8,
}

// PrefilterScore is the cheap heuristic that throttles which items reach
// expensive classification: keyword hits plus a length component, 0..100.
func PrefilterScore(it Item) int {
	h := strings.ToLower(it.Headline)

	score := 0
	for kw, w := range impactKeywords {
		if strings.Contains(h, kw) {
			score += w
		}
	}
	if _, ok := MacroMatch(it.Headline); ok {
		score += 30
	}

	// very short headlines carry little signal; bodies add a bit
	words := len(strings.Fields(it.Headline))
	switch {
	case words >= 8:
		score += 15
	case words >= 4:
		score += 8
	}
	if len(it.Body) > 200 {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score
}
