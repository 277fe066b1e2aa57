package marketdata

import "math"

// Stats are the volatility proxies derived from recent daily bars:
// ATR and the open-vs-prior-close gap, both as a percent of price.
type Stats struct {
	Symbol       string  `json:"symbol"`
	ATRPct       float64 `json:"atr_pct"`
	GapPct       float64 `json:"gap_pct"`
	CurrentPrice float64 `json:"current_price"`
}

const atrWindow = 14

// ComputeStats derives Stats from ascending daily bars. Needs at least
// two bars; returns false otherwise.
func ComputeStats(symbol string, bars []Bar) (Stats, bool) {
	if len(bars) < 2 {
		return Stats{}, false
	}

	last := bars[len(bars)-1]
	prev := bars[len(bars)-2]
	if last.Close <= 0 || prev.Close <= 0 {
		return Stats{}, false
	}

	first := len(bars) - atrWindow
	if first < 1 {
		first = 1
	}
	trSum, trCount := 0.0, 0
	for i := first; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		tr := bars[i].High - bars[i].Low
		if hc := math.Abs(bars[i].High - prevClose); hc > tr {
			tr = hc
		}
		if lc := math.Abs(bars[i].Low - prevClose); lc > tr {
			tr = lc
		}
		trSum += tr
		trCount++
	}
	if trCount == 0 {
		return Stats{}, false
	}

	return Stats{
		Symbol:       symbol,
		ATRPct:       trSum / float64(trCount) / last.Close * 100,
		GapPct:       math.Abs(last.Open-prev.Close) / prev.Close * 100,
		CurrentPrice: last.Close,
	}, true
}
