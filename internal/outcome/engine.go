// Package outcome resolves forward price action for an emitted signal:
// raw and direction-signed returns, worst adverse excursion and stop-outs
// over fixed trading-day horizons.
package outcome

import (
	"time"

	"github.com/marketbrief/signal-engine/internal/confidence"
	"github.com/marketbrief/signal-engine/internal/marketdata"
)

// Horizons are trading-day offsets from the t0 bar's index, not calendar days.
var Horizons = []int{1, 3, 5}

// t0 resolution rules.
const (
	T0SameDayClose  = "same_day_close"
	T0PrevAvailable = "prev_available"
)

// Build failure reasons. A failed build is an explicit record, not an error.
const (
	ReasonNoT0Bar       = "no_t0_bar"
	ReasonNoForwardBars = "no_forward_bars"
)

// Resolution pins the signal onto the bar series.
type Resolution struct {
	T0Bar       marketdata.Bar
	T0Index     int
	T0Rule      string
	HorizonBars map[int]*marketdata.Bar   // nil where forward history is missing
	WindowBars  map[int][]marketdata.Bar  // bars[t0..t0+h] inclusive, truncated
}

// Resolve locates the t0 bar for the reference time: the bar dated the
// same UTC day, else the latest bar on or before it. ok is false when no
// such bar exists.
func Resolve(bars []marketdata.Bar, ref time.Time, horizons []int) (*Resolution, bool) {
	refDate := marketdata.FormatDate(ref)

	t0Index := -1
	t0Rule := ""
	for i, b := range bars {
		if b.Date == refDate {
			t0Index = i
			t0Rule = T0SameDayClose
			break
		}
		if b.Date < refDate {
			t0Index = i
			t0Rule = T0PrevAvailable
		}
	}
	if t0Index < 0 {
		return nil, false
	}

	res := &Resolution{
		T0Bar:       bars[t0Index],
		T0Index:     t0Index,
		T0Rule:      t0Rule,
		HorizonBars: map[int]*marketdata.Bar{},
		WindowBars:  map[int][]marketdata.Bar{},
	}
	for _, h := range horizons {
		if t0Index+h < len(bars) {
			b := bars[t0Index+h]
			res.HorizonBars[h] = &b
			res.WindowBars[h] = bars[t0Index : t0Index+h+1]
		} else {
			res.HorizonBars[h] = nil
			last := len(bars)
			res.WindowBars[h] = bars[t0Index:last]
		}
	}
	return res, true
}

// Record is the realized performance of one signal. Per-horizon numeric
// entries are nil where that horizon's bar is missing; StoppedOut stays
// false in that case.
type Record struct {
	SignalID        string               `json:"signal_id"`
	Symbol          string               `json:"symbol"`
	T0Close         float64              `json:"t0_close"`
	T0Rule          string               `json:"t0_rule"`
	RawReturnPct    map[int]*float64     `json:"raw_return_pct"`
	SignedReturnPct map[int]*float64     `json:"signed_return_pct"`
	WorstAdversePct map[int]*float64     `json:"worst_adverse_pct"`
	StoppedOut      map[int]bool         `json:"stopped_out"`
	OK              bool                 `json:"ok"`
	Reason          string               `json:"reason,omitempty"`
	Direction       confidence.Direction `json:"direction"`
}

// Build resolves t0 and computes the full outcome record. It fails
// explicitly (OK=false plus a named reason) when no t0 bar exists or no
// horizon has forward data.
func Build(signalID, symbol string, bars []marketdata.Bar, ref time.Time, dir confidence.Direction, stopDistancePct float64) *Record {
	rec := &Record{
		SignalID:        signalID,
		Symbol:          symbol,
		Direction:       dir,
		RawReturnPct:    map[int]*float64{},
		SignedReturnPct: map[int]*float64{},
		WorstAdversePct: map[int]*float64{},
		StoppedOut:      map[int]bool{},
	}

	res, ok := Resolve(bars, ref, Horizons)
	if !ok {
		rec.Reason = ReasonNoT0Bar
		return rec
	}
	rec.T0Close = res.T0Bar.Close
	rec.T0Rule = res.T0Rule

	anyForward := false
	for _, h := range Horizons {
		hb := res.HorizonBars[h]
		if hb == nil || rec.T0Close <= 0 {
			rec.RawReturnPct[h] = nil
			rec.SignedReturnPct[h] = nil
			rec.WorstAdversePct[h] = nil
			rec.StoppedOut[h] = false
			continue
		}
		anyForward = true

		raw := (hb.Close/rec.T0Close - 1) * 100
		signed := signedReturn(raw, dir)
		worst := worstAdverse(rec.T0Close, dir, res.WindowBars[h])

		rec.RawReturnPct[h] = &raw
		rec.SignedReturnPct[h] = &signed
		rec.WorstAdversePct[h] = &worst
		rec.StoppedOut[h] = stopDistancePct > 0 && worst <= -stopDistancePct
	}
	if !anyForward {
		rec.Reason = ReasonNoForwardBars
		return rec
	}

	rec.OK = true
	return rec
}

// signedReturn flips the sign for SHORT so positive always means
// profitable; NONE carries no position so it is zero.
func signedReturn(raw float64, dir confidence.Direction) float64 {
	switch dir {
	case confidence.DirectionShort:
		return -raw
	case confidence.DirectionNone:
		return 0
	default:
		return raw
	}
}

// worstAdverse is the most unfavorable excursion within the holding
// window, always <= 0. For LONG it is the deepest low against t0 close;
// for SHORT the highest high.
func worstAdverse(t0Close float64, dir confidence.Direction, window []marketdata.Bar) float64 {
	if t0Close <= 0 || len(window) == 0 || dir == confidence.DirectionNone {
		return 0
	}
	switch dir {
	case confidence.DirectionLong:
		minLow := window[0].Low
		for _, b := range window[1:] {
			if b.Low < minLow {
				minLow = b.Low
			}
		}
		v := (minLow - t0Close) / t0Close * 100
		if v > 0 {
			v = 0
		}
		return v
	case confidence.DirectionShort:
		maxHigh := window[0].High
		for _, b := range window[1:] {
			if b.High > maxHigh {
				maxHigh = b.High
			}
		}
		v := (t0Close - maxHigh) / t0Close * 100
		if v > 0 {
			v = 0
		}
		return v
	}
	return 0
}
