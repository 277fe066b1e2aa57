package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketbrief/signal-engine/internal/confidence"
	"github.com/marketbrief/signal-engine/internal/store"
)

func TestSignalID(t *testing.T) {
	cases := []struct {
		symbol string
		want   string
	}{
		{"nvda", "2:evt-1:NVDA"},
		{" NVDA ", "2:evt-1:NVDA"},
		{"", "2:evt-1:UNKNOWN"},
	}
	for _, c := range cases {
		if got := SignalID(2, "evt-1", c.symbol); got != c.want {
			t.Fatalf("SignalID(2, evt-1, %q) = %q, want %q", c.symbol, got, c.want)
		}
	}
}

func TestFromSignal(t *testing.T) {
	sig := &confidence.Signal{
		Action: confidence.ActionBuy,
		Confidence: confidence.Breakdown{
			Overall: 85,
			Grade:   "A",
			Components: confidence.Components{
				EchoEdge: 85, EventClarity: 90, RegimeVol: 83, GapRisk: 100, Freshness: 60,
			},
		},
		Sizing: confidence.SizingHint{RiskPerTradePct: 1.0, StopDistancePct: 3.0, SuggestedPositionPct: 3.3},
		Meta: confidence.Meta{
			ModelVersion: 1, EventID: "evt-1", Symbol: "nvda",
			Direction: "LONG", EchoUsed: true,
		},
	}
	ts := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

	lg := FromSignal(sig, ts, 120*time.Millisecond)
	assert.Equal(t, "1:evt-1:NVDA", lg.SignalID)
	assert.Equal(t, "NVDA", lg.Symbol)
	assert.Equal(t, "BUY", lg.Action)
	assert.Equal(t, "LONG", lg.Direction)
	assert.Equal(t, 85, lg.Overall)
	assert.Equal(t, int64(120), lg.LatencyMs)
}

func TestWriter_WriteReadRoundtrip(t *testing.T) {
	w := NewWriter(store.NewMemoryStore())
	ts := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

	lg := Log{
		SignalID: "1:evt-1:NVDA",
		TS:       ts,
		Symbol:   "NVDA",
		EventID:  "evt-1",
		Action:   "BUY",
		Grade:    "A",
		Overall:  85,
	}
	id, err := w.Write(context.Background(), lg)
	require.NoError(t, err)
	assert.Equal(t, "1:evt-1:NVDA", id)

	got, ok, err := w.Read(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, lg.Overall, got.Overall)
	assert.Equal(t, lg.Grade, got.Grade)
	assert.True(t, lg.TS.Equal(got.TS))
}

func TestWriter_DailyIndexOrderedByTime(t *testing.T) {
	w := NewWriter(store.NewMemoryStore())
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"1:evt-c:C", "1:evt-a:A", "1:evt-b:B"} {
		_, err := w.Write(context.Background(), Log{
			SignalID: id,
			TS:       base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	ids, err := w.ReadByDate(context.Background(), "2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"1:evt-c:C", "1:evt-a:A", "1:evt-b:B"}, ids)

	// other dates are empty, not an error
	ids, err = w.ReadByDate(context.Background(), "2025-06-03")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestWriter_RewriteRefreshesNotDuplicates(t *testing.T) {
	w := NewWriter(store.NewMemoryStore())
	ts := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	lg := Log{SignalID: "1:evt-1:NVDA", TS: ts}
	_, err := w.Write(context.Background(), lg)
	require.NoError(t, err)
	lg.TS = ts.Add(time.Minute)
	_, err = w.Write(context.Background(), lg)
	require.NoError(t, err)

	ids, err := w.ReadByDate(context.Background(), "2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"1:evt-1:NVDA"}, ids)
}

func TestWriter_MissingLog(t *testing.T) {
	w := NewWriter(store.NewMemoryStore())
	_, ok, err := w.Read(context.Background(), "1:nope:NVDA")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriter_EmptySignalIDRejected(t *testing.T) {
	w := NewWriter(store.NewMemoryStore())
	_, err := w.Write(context.Background(), Log{})
	assert.Error(t, err)
}
