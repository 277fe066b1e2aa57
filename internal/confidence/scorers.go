package confidence

import (
	"fmt"
	"math"
	"time"
)

// ramp maps x linearly from [lo,hi] onto [0,100], clamped at both ends.
func ramp(x, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	f := (x - lo) / (hi - lo)
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return f * 100
}

func clampScore(x float64) int {
	n := int(math.Round(x))
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

const neutralEchoScore = 50

// scoreEchoEdge blends accuracy, correlation strength, sample size and
// average echo move. Thin samples are penalized on top of the blend.
func scoreEchoEdge(echo *EchoContext) (int, []string, bool) {
	if echo == nil {
		return neutralEchoScore, []string{"echo unused: no historical context"}, false
	}

	acc := ramp(echo.Accuracy, 50, 80)
	corr := ramp(math.Abs(echo.Correlation), 0, 0.6)
	sample := ramp(float64(echo.SampleSize), 10, 50)
	move := ramp(math.Abs(echo.AvgEchoMove), 0.5, 3.5)

	score := 0.45*acc + 0.25*corr + 0.20*sample + 0.10*move

	var notes []string
	switch {
	case echo.SampleSize < 10:
		score -= 15
		notes = append(notes, fmt.Sprintf("echo sample very thin (n=%d)", echo.SampleSize))
	case echo.SampleSize < 20:
		score -= 8
		notes = append(notes, fmt.Sprintf("echo sample thin (n=%d)", echo.SampleSize))
	}
	return clampScore(score), notes, true
}

const defaultAmbiguity = 0.3

// scoreClarity rewards an unambiguous, unhedged thesis.
func scoreClarity(th *Thesis) (int, []string) {
	amb := defaultAmbiguity
	if th.Ambiguity != nil {
		amb = *th.Ambiguity
		if amb < 0 {
			amb = 0
		}
		if amb > 1 {
			amb = 1
		}
	}
	score := (1 - amb) * 100
	var notes []string
	if th.Hedged {
		score -= 10
		notes = append(notes, "thesis is hedged")
	}
	return clampScore(score), notes
}

// scoreRegimeVol maps ATR% onto a calm-regime score. No stats means a
// neutral default rather than a failure.
func scoreRegimeVol(stats *MarketStats) (int, []string) {
	if stats == nil {
		return 60, []string{"volatility stats unavailable, neutral default"}
	}
	score := 100 - ramp(stats.ATRPct, 2, 8)
	var notes []string
	if stats.ATRPct >= 5 {
		notes = append(notes, fmt.Sprintf("elevated volatility: ATR %.1f%%", stats.ATRPct))
	}
	return clampScore(score), notes
}

func scoreGapRisk(stats *MarketStats) (int, []string) {
	if stats == nil {
		return 65, []string{"gap stats unavailable, neutral default"}
	}
	score := 100 - ramp(stats.GapPct, 1, 7)
	var notes []string
	if stats.GapPct >= 3 {
		notes = append(notes, fmt.Sprintf("large overnight gap: %.1f%%", stats.GapPct))
	}
	return clampScore(score), notes
}

// scoreFreshness starts neutral, rewards corroborating updates and decays
// once the news is older than a day.
func scoreFreshness(ev Event, now time.Time) (int, []string) {
	score := 60.0
	var notes []string

	switch {
	case ev.Corroborations >= 4:
		score += 20
		notes = append(notes, fmt.Sprintf("%d corroborating updates", ev.Corroborations))
	case ev.Corroborations >= 2:
		score += 10
		notes = append(notes, fmt.Sprintf("%d corroborating updates", ev.Corroborations))
	}
	if score > 90 {
		score = 90
	}

	if !ev.PublishedAt.IsZero() {
		hoursOld := now.Sub(ev.PublishedAt).Hours()
		if hoursOld > 24 {
			penalty := math.Floor((hoursOld-24)/12) * 5
			if penalty > 20 {
				penalty = 20
			}
			if penalty > 0 {
				score -= penalty
				notes = append(notes, fmt.Sprintf("news is %.0fh old", hoursOld))
			}
		}
	}
	if score < 30 {
		score = 30
	}
	return clampScore(score), notes
}
