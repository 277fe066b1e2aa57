// Package signalgen wires the pipeline stages together: classified event
// in, graded signal out, telemetry on the side.
package signalgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/marketbrief/signal-engine/internal/confidence"
	"github.com/marketbrief/signal-engine/internal/marketdata"
	"github.com/marketbrief/signal-engine/internal/news"
	"github.com/marketbrief/signal-engine/internal/observ"
	"github.com/marketbrief/signal-engine/internal/store"
	"github.com/marketbrief/signal-engine/internal/telemetry"
)

// Error codes surfaced to callers with ok=false. Infrastructure problems
// are regular errors; these identify business-level failures.
const (
	CodeEventNotFound     = "EVENT_NOT_FOUND"
	CodeThesisUnavailable = "THESIS_UNAVAILABLE"
	CodeThesisInvalid     = "THESIS_INVALID"
)

// GenError is a business-level generation failure.
type GenError struct {
	Code    string
	Message string
	Cause   error
}

func (e *GenError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *GenError) Unwrap() error { return e.Cause }

// EventSource looks up classified events; the ingestion gateway provides it.
type EventSource interface {
	FindEvent(ctx context.Context, eventID string) (*news.Event, bool, error)
}

// Service generates signals for classified events. Signals are cached by
// (model version, event) and invalidated only by a model-version bump.
type Service struct {
	store       store.Store
	engine      *confidence.Engine
	events      EventSource
	thesis      ThesisGenerator
	echo        EchoProvider
	bars        *marketdata.BarCache
	tele        *telemetry.Writer
	statsDays   int
	now         func() time.Time
	asyncWrites bool
}

func NewService(s store.Store, engine *confidence.Engine, events EventSource, thesis ThesisGenerator, echo EchoProvider, bars *marketdata.BarCache, tele *telemetry.Writer) *Service {
	return &Service{
		store:       s,
		engine:      engine,
		events:      events,
		thesis:      thesis,
		echo:        echo,
		bars:        bars,
		tele:        tele,
		statsDays:   30,
		now:         time.Now,
		asyncWrites: true,
	}
}

// SetSynchronousTelemetry makes telemetry writes blocking, for tests.
func (s *Service) SetSynchronousTelemetry() { s.asyncWrites = false }

// Result is one generation outcome.
type Result struct {
	Signal    *confidence.Signal `json:"signal"`
	SignalID  string             `json:"signal_id"`
	CacheHit  bool               `json:"cache_hit"`
	LatencyMs int64              `json:"latency_ms"`
}

// Generate produces (or replays from cache) the signal for an event.
// Echo context and market stats are degrading-optional; a missing or
// malformed thesis is fatal to this signal only.
func (s *Service) Generate(ctx context.Context, eventID string) (*Result, error) {
	started := s.now()

	ev, found, err := s.events.FindEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("event lookup: %w", err)
	}
	if !found {
		return nil, &GenError{Code: CodeEventNotFound, Message: "event " + eventID + " not in store"}
	}

	cacheKey := store.SignalKey(s.engine.ModelVersion, eventID)
	if raw, ok, err := s.store.Get(ctx, cacheKey); err == nil && ok {
		var sig confidence.Signal
		if err := json.Unmarshal([]byte(raw), &sig); err == nil {
			observ.IncCounter("signal_cache_hit_total", nil)
			res := &Result{
				Signal:    &sig,
				SignalID:  telemetry.SignalID(sig.Meta.ModelVersion, sig.Meta.EventID, sig.Meta.Symbol),
				CacheHit:  true,
				LatencyMs: time.Since(started).Milliseconds(),
			}
			return res, nil
		}
		_ = s.store.Del(ctx, cacheKey)
	}
	observ.IncCounter("signal_cache_miss_total", nil)

	th, err := s.thesis.Generate(ctx, *ev)
	if err != nil {
		return nil, &GenError{Code: CodeThesisUnavailable, Message: "thesis generation failed", Cause: err}
	}
	if th == nil {
		return nil, &GenError{Code: CodeThesisInvalid, Message: "thesis is empty"}
	}

	symbol := resolveSymbol(th)

	var echo *confidence.EchoContext
	if s.echo != nil && symbol != "" {
		if e, ok, err := s.echo.Lookup(ctx, symbol); err != nil {
			observ.LogError("echo_lookup_failed", err, map[string]any{"symbol": symbol})
		} else if ok {
			echo = e
			echo.Alignment = alignEcho(echo, th.Direction)
		}
	}

	stats := s.marketStats(ctx, symbol)

	sig, err := s.engine.Score(confidence.Event{
		ID:             ev.ID,
		Symbol:         symbol,
		PublishedAt:    ev.PublishedAt,
		Corroborations: ev.Corroborations,
	}, echo, th, stats)
	if err != nil {
		return nil, &GenError{Code: CodeThesisInvalid, Message: "thesis rejected", Cause: err}
	}

	if b, err := json.Marshal(sig); err == nil {
		if err := s.store.Set(ctx, cacheKey, string(b), store.TTLSignal); err != nil {
			observ.LogError("signal_cache_set_failed", err, map[string]any{"key": cacheKey})
		}
	}

	latency := time.Since(started)
	lg := telemetry.FromSignal(sig, s.now(), latency)
	if s.asyncWrites {
		// non-critical: never blocks or fails the primary response
		go func() {
			wctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := s.tele.Write(wctx, lg); err != nil {
				observ.LogError("telemetry_write_failed", err, map[string]any{"signal_id": lg.SignalID})
			}
		}()
	} else {
		if _, err := s.tele.Write(ctx, lg); err != nil {
			observ.LogError("telemetry_write_failed", err, map[string]any{"signal_id": lg.SignalID})
		}
	}

	return &Result{
		Signal:    sig,
		SignalID:  lg.SignalID,
		CacheHit:  false,
		LatencyMs: latency.Milliseconds(),
	}, nil
}

// marketStats is degrading-optional: any failure logs and returns nil.
func (s *Service) marketStats(ctx context.Context, symbol string) *confidence.MarketStats {
	if s.bars == nil || symbol == "" {
		return nil
	}
	ref := s.now().UTC()
	bars, err := s.bars.DailyBars(ctx, symbol, ref, ref.AddDate(0, 0, -s.statsDays), ref)
	if err != nil {
		observ.LogError("market_stats_unavailable", err, map[string]any{"symbol": symbol})
		return nil
	}
	st, ok := marketdata.ComputeStats(symbol, bars)
	if !ok {
		return nil
	}
	return &confidence.MarketStats{
		ATRPct:       st.ATRPct,
		GapPct:       st.GapPct,
		CurrentPrice: st.CurrentPrice,
		Symbol:       st.Symbol,
	}
}

func resolveSymbol(th *confidence.Thesis) string {
	if len(th.Tickers) > 0 {
		return strings.ToUpper(strings.TrimSpace(th.Tickers[0]))
	}
	return strings.ToUpper(strings.TrimSpace(th.Instrument))
}

// alignEcho classifies the stored echo tendency relative to the thesis
// direction: the echo is a tailwind when its average move points the same
// way the thesis does.
func alignEcho(echo *confidence.EchoContext, dir confidence.Direction) string {
	if echo.AvgEchoMove == 0 || dir == confidence.DirectionNone {
		return confidence.AlignmentNeutral
	}
	sameSign := (echo.AvgEchoMove > 0 && dir == confidence.DirectionLong) ||
		(echo.AvgEchoMove < 0 && dir == confidence.DirectionShort)
	if sameSign {
		return confidence.AlignmentTailwind
	}
	return confidence.AlignmentHeadwind
}
