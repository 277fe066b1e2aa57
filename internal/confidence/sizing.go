package confidence

import "math"

var riskByGrade = map[string]float64{
	"A": 1.0,
	"B": 0.5,
	"C": 0.25,
	"D": 0,
}

const defaultStopDistancePct = 3.0

// computeSizing resolves the stop distance through the priority chain
// (explicit entry/invalidation delta, then 1x ATR, then a fixed default)
// and turns grade plus stop into a suggested position size. Fallbacks are
// recorded as notes.
func computeSizing(grade string, action Action, th *Thesis, stats *MarketStats) SizingHint {
	var notes []string

	stop := 0.0
	switch {
	case th.Entry.Level > 0 && th.Invalidation.Level > 0:
		stop = math.Abs(th.Entry.Level-th.Invalidation.Level) / th.Entry.Level * 100
	case stats != nil && stats.ATRPct > 0:
		stop = stats.ATRPct
		notes = append(notes, "stop distance from 1x ATR")
	default:
		stop = defaultStopDistancePct
		notes = append(notes, "stop distance defaulted to 3.0%")
	}

	risk := riskByGrade[grade]

	suggested := 0.0
	if stop > 0 {
		suggested = risk / stop * 10
	}
	if suggested < 1 {
		suggested = 1
	}
	if suggested > 15 {
		suggested = 15
	}
	if action == ActionAvoid || action == ActionWait {
		suggested = 0
	}

	return SizingHint{
		RiskPerTradePct:      round2(risk),
		StopDistancePct:      round1(stop),
		SuggestedPositionPct: round1(suggested),
		Notes:                notes,
	}
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
func round2(x float64) float64 { return math.Round(x*100) / 100 }
