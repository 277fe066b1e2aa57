// Package outcomes walks a day's signal index and persists realized
// outcomes, idempotently: an existence check short-circuits processed
// signals and a SetNX advisory lock keeps concurrent runs from
// double-computing the same one.
package outcomes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marketbrief/signal-engine/internal/confidence"
	"github.com/marketbrief/signal-engine/internal/marketdata"
	"github.com/marketbrief/signal-engine/internal/observ"
	"github.com/marketbrief/signal-engine/internal/outcome"
	"github.com/marketbrief/signal-engine/internal/store"
	"github.com/marketbrief/signal-engine/internal/telemetry"
)

type Config struct {
	LookbackDays int // calendar days of bar history fetched before t0
	ForwardDays  int // calendar days fetched after t0
}

type Runner struct {
	store     store.Store
	telemetry *telemetry.Writer
	bars      *marketdata.BarCache
	cfg       Config
	now       func() time.Time
}

func NewRunner(s store.Store, tw *telemetry.Writer, bars *marketdata.BarCache, cfg Config) *Runner {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 10
	}
	if cfg.ForwardDays <= 0 {
		cfg.ForwardDays = 10
	}
	return &Runner{store: s, telemetry: tw, bars: bars, cfg: cfg, now: time.Now}
}

// Detail records how one signal fared in a run.
type Detail struct {
	SignalID string `json:"signal_id"`
	Status   string `json:"status"` // "stored", "skipped", "error"
	Reason   string `json:"reason,omitempty"`
}

const (
	StatusStored  = "stored"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// Result summarizes one batch.
type Result struct {
	RunID     string   `json:"run_id"`
	Date      string   `json:"date"`
	Processed int      `json:"processed"`
	Skipped   int      `json:"skipped"`
	Errors    int      `json:"errors"`
	Details   []Detail `json:"details"`
}

// RunForDate processes every signal indexed for the given UTC date
// (YYYY-MM-DD). Signals are handled independently; a failure on one is a
// detail entry, never a batch abort. Failing to acquire a lock means
// another worker has it, which is a skip, not an error.
func (r *Runner) RunForDate(ctx context.Context, date string) (*Result, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	res := &Result{RunID: uuid.NewString(), Date: date}

	ids, err := r.telemetry.ReadByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("read daily index: %w", err)
	}

	for _, id := range ids {
		d := r.processOne(ctx, id)
		res.Details = append(res.Details, d)
		switch d.Status {
		case StatusStored:
			res.Processed++
		case StatusSkipped:
			res.Skipped++
		default:
			res.Errors++
		}
		observ.IncCounter("outcome_signal_total", map[string]string{"status": d.Status})
	}

	observ.Log("outcome_run", map[string]any{
		"run_id":    res.RunID,
		"date":      date,
		"indexed":   len(ids),
		"processed": res.Processed,
		"skipped":   res.Skipped,
		"errors":    res.Errors,
	})
	return res, nil
}

func (r *Runner) processOne(ctx context.Context, signalID string) Detail {
	exists, err := r.store.Exists(ctx, store.OutcomeKey(signalID))
	if err != nil {
		return Detail{SignalID: signalID, Status: StatusError, Reason: "outcome_check_failed: " + err.Error()}
	}
	if exists {
		return Detail{SignalID: signalID, Status: StatusSkipped, Reason: "already_computed"}
	}

	locked, err := r.store.SetNX(ctx, store.OutcomeLockKey(signalID), "1", store.TTLOutcomeLock)
	if err != nil {
		return Detail{SignalID: signalID, Status: StatusError, Reason: "lock_failed: " + err.Error()}
	}
	if !locked {
		// another worker is handling this one
		return Detail{SignalID: signalID, Status: StatusSkipped, Reason: "locked"}
	}

	lg, ok, err := r.telemetry.Read(ctx, signalID)
	if err != nil || !ok {
		reason := "telemetry_missing"
		if err != nil {
			reason = "telemetry_read_failed: " + err.Error()
		}
		return Detail{SignalID: signalID, Status: StatusError, Reason: reason}
	}
	if lg.Symbol == "" || lg.Symbol == "UNKNOWN" {
		return Detail{SignalID: signalID, Status: StatusError, Reason: "symbol_missing"}
	}

	ref := lg.TS.UTC()
	start := ref.AddDate(0, 0, -r.cfg.LookbackDays)
	end := ref.AddDate(0, 0, r.cfg.ForwardDays)
	bars, err := r.bars.DailyBars(ctx, lg.Symbol, ref, start, end)
	if err != nil {
		return Detail{SignalID: signalID, Status: StatusError, Reason: "bars_fetch_failed: " + err.Error()}
	}

	rec := outcome.Build(signalID, lg.Symbol, bars, ref, confidence.Direction(lg.Direction), lg.StopDistancePct)
	if !rec.OK {
		return Detail{SignalID: signalID, Status: StatusError, Reason: rec.Reason}
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return Detail{SignalID: signalID, Status: StatusError, Reason: "outcome_marshal_failed: " + err.Error()}
	}
	if err := r.store.Set(ctx, store.OutcomeKey(signalID), string(b), store.TTLOutcome); err != nil {
		return Detail{SignalID: signalID, Status: StatusError, Reason: "outcome_store_failed: " + err.Error()}
	}

	return Detail{SignalID: signalID, Status: StatusStored}
}

// ReadOutcome loads a stored outcome record.
func (r *Runner) ReadOutcome(ctx context.Context, signalID string) (*outcome.Record, bool, error) {
	raw, ok, err := r.store.Get(ctx, store.OutcomeKey(signalID))
	if err != nil || !ok {
		return nil, false, err
	}
	var rec outcome.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, false, fmt.Errorf("corrupt outcome record %s: %w", signalID, err)
	}
	return &rec, true, nil
}
