package confidence

// Rule codes. AVOID/WAIT decisions always carry the code of the first
// matching rule so a reader can tell why a thesis was not actionable.
const (
	RuleLowConfidence = "AVOID_LOW_CONFIDENCE"
	RuleNoEdge        = "AVOID_NO_EDGE"
	RuleConflict      = "AVOID_CONFLICT"
	RuleTooVolatile   = "AVOID_TOO_VOLATILE"
	RuleGapRisk       = "AVOID_GAP_RISK"
	RuleWaitForLevel  = "WAIT_FOR_LEVEL"
	RuleNoDirection   = "AVOID_NO_DIRECTION"
)

const (
	AlignmentTailwind = "tailwind"
	AlignmentHeadwind = "headwind"
	AlignmentNeutral  = "neutral"
)

type ruleInput struct {
	overall    int
	components Components
	echo       *EchoContext
	thesis     *Thesis
}

type rule struct {
	code   string
	action Action
	match  func(ruleInput) bool
	why    func(ruleInput) string
}

// waterfall is evaluated in order, first match wins. Each predicate is
// self-contained so the rules stay independently testable.
var waterfall = []rule{
	{
		code:   RuleLowConfidence,
		action: ActionAvoid,
		match:  func(in ruleInput) bool { return in.overall < 55 },
		why:    func(in ruleInput) string { return "overall confidence below actionable floor" },
	},
	{
		code:   RuleNoEdge,
		action: ActionAvoid,
		match: func(in ruleInput) bool {
			return in.echo != nil && (in.echo.SampleSize < 10 || in.echo.Accuracy < 55)
		},
		why: func(in ruleInput) string { return "historical echo edge too weak to trade" },
	},
	{
		code:   RuleConflict,
		action: ActionAvoid,
		match: func(in ruleInput) bool {
			return in.echo != nil && in.echo.Alignment == AlignmentHeadwind &&
				in.components.EchoEdge > 75 && in.components.EventClarity > 75
		},
		why: func(in ruleInput) string { return "strong echo history contradicts a clear thesis" },
	},
	{
		code:   RuleTooVolatile,
		action: ActionAvoid,
		match:  func(in ruleInput) bool { return in.components.RegimeVol < 35 },
		why:    func(in ruleInput) string { return "volatility regime too hostile" },
	},
	{
		code:   RuleGapRisk,
		action: ActionAvoid,
		match:  func(in ruleInput) bool { return in.components.GapRisk < 35 },
		why:    func(in ruleInput) string { return "overnight gap risk too high" },
	},
	{
		code:   RuleWaitForLevel,
		action: ActionWait,
		match: func(in ruleInput) bool {
			return in.overall >= 55 && in.overall < 70 &&
				(in.thesis.Entry.Type == "wait" || in.thesis.Entry.Level != 0)
		},
		why: func(in ruleInput) string { return "middling confidence, wait for the entry level" },
	},
	{
		code:   RuleWaitForLevel,
		action: ActionWait,
		match: func(in ruleInput) bool {
			return in.components.GapRisk < 50 && in.components.EventClarity > 70
		},
		why: func(in ruleInput) string { return "clear event but gappy tape, wait for a level" },
	},
}

// applyRules returns the first matching rule outcome, or ok=false when no
// rule fires and the signal should follow the thesis direction.
func applyRules(in ruleInput) (Action, string, string, bool) {
	for _, r := range waterfall {
		if r.match(in) {
			return r.action, r.code, r.why(in), true
		}
	}
	return "", "", "", false
}
