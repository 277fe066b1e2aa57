// Package confidence turns a model-generated trade thesis into a graded,
// explainable signal. Scoring is pure: identical inputs always produce
// identical output, so signals are cacheable by (model version, event).
package confidence

import (
	"fmt"
	"math"
	"time"
)

// Engine computes signals for one model version.
type Engine struct {
	ModelVersion int
	Now          func() time.Time
}

func New(modelVersion int) *Engine {
	return &Engine{ModelVersion: modelVersion, Now: time.Now}
}

type weights struct {
	echo, clarity, regime, gap, fresh float64
}

// Two weight regimes, selected by whether echo data was usable.
// Each regime sums to exactly 1.0.
var (
	weightsEchoAware  = weights{echo: 0.40, clarity: 0.20, regime: 0.15, gap: 0.15, fresh: 0.10}
	weightsEchoAbsent = weights{echo: 0.15, clarity: 0.30, regime: 0.20, gap: 0.20, fresh: 0.15}
)

func (w weights) sum() float64 {
	return w.echo + w.clarity + w.regime + w.gap + w.fresh
}

// Score validates the thesis, runs the five component scorers, aggregates
// them under the applicable weight regime, applies the rule waterfall and
// attaches a sizing hint. The only fatal conditions are a nil thesis and
// an unknown direction; everything optional degrades to documented
// neutral defaults recorded in the notes.
func (e *Engine) Score(ev Event, echo *EchoContext, th *Thesis, stats *MarketStats) (*Signal, error) {
	if th == nil {
		return nil, fmt.Errorf("thesis is required")
	}
	switch th.Direction {
	case DirectionLong, DirectionShort, DirectionNone:
	default:
		return nil, fmt.Errorf("invalid thesis direction %q", th.Direction)
	}

	var notes []string

	echoScore, echoNotes, echoUsable := scoreEchoEdge(echo)
	notes = append(notes, echoNotes...)

	clarityScore, clarityNotes := scoreClarity(th)
	notes = append(notes, clarityNotes...)

	regimeScore, regimeNotes := scoreRegimeVol(stats)
	notes = append(notes, regimeNotes...)

	gapScore, gapNotes := scoreGapRisk(stats)
	notes = append(notes, gapNotes...)

	freshScore, freshNotes := scoreFreshness(ev, e.Now())
	notes = append(notes, freshNotes...)

	comp := Components{
		EchoEdge:     echoScore,
		EventClarity: clarityScore,
		RegimeVol:    regimeScore,
		GapRisk:      gapScore,
		Freshness:    freshScore,
	}

	w := weightsEchoAbsent
	if echoUsable {
		w = weightsEchoAware
	}
	overall := int(math.Round(
		w.echo*float64(comp.EchoEdge) +
			w.clarity*float64(comp.EventClarity) +
			w.regime*float64(comp.RegimeVol) +
			w.gap*float64(comp.GapRisk) +
			w.fresh*float64(comp.Freshness)))

	breakdown := Breakdown{
		Components: comp,
		Overall:    overall,
		Grade:      gradeFor(overall),
		Notes:      notes,
	}

	action, code, why, matched := applyRules(ruleInput{
		overall:    overall,
		components: comp,
		echo:       echo,
		thesis:     th,
	})
	var explain []string
	if matched {
		explain = append(explain, why)
	} else {
		switch th.Direction {
		case DirectionLong:
			action = ActionBuy
			explain = append(explain, "no blocking rule, following LONG thesis")
		case DirectionShort:
			action = ActionSell
			explain = append(explain, "no blocking rule, following SHORT thesis")
		case DirectionNone:
			action = ActionAvoid
			code = RuleNoDirection
			explain = append(explain, "thesis has no direction")
		}
	}

	return &Signal{
		Action:     action,
		Confidence: breakdown,
		Sizing:     computeSizing(breakdown.Grade, action, th, stats),
		Explain:    explain,
		Meta: Meta{
			ModelVersion: e.ModelVersion,
			EventID:      ev.ID,
			Symbol:       ev.Symbol,
			Direction:    string(th.Direction),
			RuleCode:     code,
			EchoUsed:     echoUsable,
		},
	}, nil
}

// gradeFor is a pure step function of the overall score.
func gradeFor(overall int) string {
	switch {
	case overall >= 85:
		return "A"
	case overall >= 70:
		return "B"
	case overall >= 55:
		return "C"
	default:
		return "D"
	}
}
