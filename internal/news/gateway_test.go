package news

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/marketbrief/signal-engine/internal/store"
)

type fakeProvider struct {
	name  string
	items []Item
	err   error
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Latest(ctx context.Context) ([]Item, error) {
	return f.items, f.err
}

type fakeClassifier struct {
	importance int
	err        error
	calls      int
}

func (f *fakeClassifier) Classify(ctx context.Context, headline, body string) (*Analysis, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Analysis{Summary: "summary", ImportanceScore: f.importance, ImportanceCategory: "high"}, nil
}

var testNow = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func testConfig() GatewayConfig {
	return GatewayConfig{
		LookbackHours:   24,
		MinFetchCount:   1,
		ThresholdNormal: 70,
		ThresholdLow:    60,
		ThresholdMacro:  50,
	}
}

func testItem(id int, url string) Item {
	return Item{
		ID:          fmt.Sprintf("%d", id),
		Headline:    "Chipmaker agrees to merger after strong earnings report",
		Source:      "wire",
		URL:         url,
		PublishedAt: testNow.Add(-1 * time.Hour),
		Provider:    "alpha",
	}
}

func newTestGateway(t *testing.T, primary, secondary Provider, cls Classifier, cfg GatewayConfig) (*Gateway, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	g := NewGateway(primary, secondary, cls, s, cfg)
	g.SetClock(func() time.Time { return testNow })
	return g, s
}

func countActions(diag *Diagnostics, action string) int {
	n := 0
	for _, d := range diag.Decisions {
		if d.Action == action {
			n++
		}
	}
	return n
}

func TestIngest_SameCanonicalURLKeptOnce(t *testing.T) {
	primary := &fakeProvider{name: "alpha", items: []Item{
		testItem(1, "https://example.com/story?utm_source=push"),
		testItem(2, "https://example.com/story"),
	}}
	cls := &fakeClassifier{importance: 80}
	g, _ := newTestGateway(t, primary, nil, cls, testConfig())

	kept, diag, err := g.Ingest(context.Background())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(kept) != 1 {
		t.Fatalf("kept %d events, want exactly 1", len(kept))
	}
	if countActions(diag, ActionSkippedSeen) != 1 {
		t.Fatalf("expected one skipped_seen decision: %+v", diag.Decisions)
	}
	if cls.calls != 1 {
		t.Fatalf("classifier called %d times, want 1", cls.calls)
	}
}

func TestIngest_SeenURLsPersistAcrossRuns(t *testing.T) {
	primary := &fakeProvider{name: "alpha", items: []Item{
		testItem(1, "https://example.com/story?utm_source=push"),
	}}
	cls := &fakeClassifier{importance: 80}
	g, _ := newTestGateway(t, primary, nil, cls, testConfig())

	if _, _, err := g.Ingest(context.Background()); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	// same story from a different channel, fresh provider ID
	primary.items = []Item{testItem(2, "https://example.com/story?utm_source=newsletter")}
	kept, diag, err := g.Ingest(context.Background())
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if len(kept) != 0 {
		t.Fatalf("duplicate story kept: %+v", kept)
	}
	if countActions(diag, ActionSkippedSeen) != 1 {
		t.Fatalf("expected skipped_seen: %+v", diag.Decisions)
	}

	// and the original event gained a corroboration
	events, err := g.Events(context.Background())
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 1 || events[0].Corroborations != 1 {
		t.Fatalf("corroboration not bumped: %+v", events)
	}
}

func TestIngest_CursorSkipsReplayedIDs(t *testing.T) {
	primary := &fakeProvider{name: "alpha", items: []Item{
		testItem(5, "https://example.com/a"),
		testItem(6, "https://example.com/b"),
	}}
	cls := &fakeClassifier{importance: 80}
	g, _ := newTestGateway(t, primary, nil, cls, testConfig())

	if _, _, err := g.Ingest(context.Background()); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	primary.items = []Item{
		testItem(4, "https://example.com/c"), // replay from before the cursor
		testItem(7, "https://example.com/d"),
	}
	kept, diag, err := g.Ingest(context.Background())
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if len(kept) != 1 || kept[0].ID != "7" {
		t.Fatalf("kept %+v, want only item 7", kept)
	}
	if countActions(diag, ActionSkippedCursor) != 1 {
		t.Fatalf("expected skipped_cursor: %+v", diag.Decisions)
	}
}

func TestIngest_StaleItemsSkipped(t *testing.T) {
	old := testItem(1, "https://example.com/old")
	old.PublishedAt = testNow.Add(-48 * time.Hour)
	noTS := testItem(2, "https://example.com/unknown-ts")
	noTS.PublishedAt = time.Time{}

	primary := &fakeProvider{name: "alpha", items: []Item{old, noTS}}
	cls := &fakeClassifier{importance: 80}
	g, _ := newTestGateway(t, primary, nil, cls, testConfig())

	kept, diag, err := g.Ingest(context.Background())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if countActions(diag, ActionSkippedStale) != 1 {
		t.Fatalf("expected one skipped_stale: %+v", diag.Decisions)
	}
	// undated items are kept, not discarded
	if len(kept) != 1 || kept[0].ID != "2" {
		t.Fatalf("kept %+v, want only the undated item", kept)
	}
}

func TestIngest_FallbackUsesLowThreshold(t *testing.T) {
	primary := &fakeProvider{name: "alpha", err: fmt.Errorf("upstream 503")}
	secondary := &fakeProvider{name: "beta", items: []Item{testItem(1, "https://example.com/a")}}
	cls := &fakeClassifier{importance: 65} // below normal 70, above low 60
	g, _ := newTestGateway(t, primary, secondary, cls, testConfig())

	kept, diag, err := g.Ingest(context.Background())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !diag.FallbackUsed || diag.FetchHealthy {
		t.Fatalf("diag = %+v, want fallback_used and unhealthy fetch", diag)
	}
	if len(kept) != 1 {
		t.Fatalf("kept %d, want 1 under the low threshold", len(kept))
	}
	if diag.Decisions[0].Threshold != 60 {
		t.Fatalf("threshold = %d, want 60", diag.Decisions[0].Threshold)
	}
}

func TestIngest_BothProvidersFailing(t *testing.T) {
	primary := &fakeProvider{name: "alpha", err: fmt.Errorf("upstream 503")}
	secondary := &fakeProvider{name: "beta", err: fmt.Errorf("timeout")}
	g, _ := newTestGateway(t, primary, secondary, &fakeClassifier{}, testConfig())

	if _, _, err := g.Ingest(context.Background()); err == nil {
		t.Fatalf("expected error when both providers fail")
	}
}

func TestIngest_MacroThresholdWins(t *testing.T) {
	it := testItem(1, "https://example.com/macro")
	it.Headline = "Central bank calls emergency meeting on currency peg"

	primary := &fakeProvider{name: "alpha", items: []Item{it}}
	cls := &fakeClassifier{importance: 55} // below normal and low, above macro 50
	g, _ := newTestGateway(t, primary, nil, cls, testConfig())

	kept, diag, err := g.Ingest(context.Background())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(kept) != 1 {
		t.Fatalf("macro item not kept: %+v", diag.Decisions)
	}
	if kept[0].Tier != 0 || kept[0].MacroMatch == "" {
		t.Fatalf("macro event not tagged: %+v", kept[0])
	}
}

func TestIngest_PrefilterGatesNonMacroItems(t *testing.T) {
	dull := testItem(1, "https://example.com/dull")
	dull.Headline = "Tuesday notes"

	cfg := testConfig()
	cfg.PrefilterMin = 20
	primary := &fakeProvider{name: "alpha", items: []Item{dull}}
	cls := &fakeClassifier{importance: 99}
	g, _ := newTestGateway(t, primary, nil, cls, cfg)

	kept, diag, err := g.Ingest(context.Background())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(kept) != 0 || cls.calls != 0 {
		t.Fatalf("dull item reached the classifier: kept=%d calls=%d", len(kept), cls.calls)
	}
	if countActions(diag, ActionSkippedPrefilter) != 1 {
		t.Fatalf("expected skipped_prefilter: %+v", diag.Decisions)
	}
}

func TestIngest_DailyCapStopsMidBatch(t *testing.T) {
	cfg := testConfig()
	cfg.DailyClassifyCap = 2
	primary := &fakeProvider{name: "alpha", items: []Item{
		testItem(1, "https://example.com/a"),
		testItem(2, "https://example.com/b"),
		testItem(3, "https://example.com/c"),
		testItem(4, "https://example.com/d"),
	}}
	cls := &fakeClassifier{importance: 80}
	g, _ := newTestGateway(t, primary, nil, cls, cfg)

	kept, diag, err := g.Ingest(context.Background())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if cls.calls != 2 {
		t.Fatalf("classifier called %d times, want 2", cls.calls)
	}
	if len(kept) != 2 || !diag.CapReached {
		t.Fatalf("kept=%d capReached=%v, want 2/true", len(kept), diag.CapReached)
	}
	if countActions(diag, ActionSkippedCap) != 2 {
		t.Fatalf("remaining items not marked skipped_cap: %+v", diag.Decisions)
	}

	// the cap is a persisted daily counter, not per-run
	primary.items = []Item{testItem(5, "https://example.com/e")}
	kept, diag, err = g.Ingest(context.Background())
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if len(kept) != 0 || cls.calls != 2 {
		t.Fatalf("cap not enforced across runs: kept=%d calls=%d", len(kept), cls.calls)
	}
	if countActions(diag, ActionSkippedCap) != 1 {
		t.Fatalf("expected skipped_cap on the second run: %+v", diag.Decisions)
	}
}

func TestIngest_CapSkippedItemStaysAdmissible(t *testing.T) {
	cfg := testConfig()
	cfg.DailyClassifyCap = 1
	primary := &fakeProvider{name: "alpha", items: []Item{
		testItem(1, "https://example.com/a"),
		testItem(2, "https://example.com/b"),
	}}
	cls := &fakeClassifier{importance: 80}
	g, _ := newTestGateway(t, primary, nil, cls, cfg)

	kept, diag, err := g.Ingest(context.Background())
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if len(kept) != 1 || kept[0].ID != "1" {
		t.Fatalf("kept %+v, want only item 1", kept)
	}
	if countActions(diag, ActionSkippedCap) != 1 {
		t.Fatalf("expected skipped_cap for item 2: %+v", diag.Decisions)
	}

	// next day the counter resets and the capped item comes around again;
	// it must classify, not fall to the cursor
	day2 := testNow.Add(24 * time.Hour)
	g.SetClock(func() time.Time { return day2 })
	it2 := testItem(2, "https://example.com/b")
	it2.PublishedAt = day2.Add(-1 * time.Hour)
	primary.items = []Item{it2}

	kept, diag, err = g.Ingest(context.Background())
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if countActions(diag, ActionSkippedCursor) != 0 {
		t.Fatalf("capped item lost to the cursor: %+v", diag.Decisions)
	}
	if len(kept) != 1 || kept[0].ID != "2" {
		t.Fatalf("kept %+v, want item 2 on the second day", kept)
	}
}

func TestIngest_LowImportanceStillMarkedSeen(t *testing.T) {
	primary := &fakeProvider{name: "alpha", items: []Item{testItem(1, "https://example.com/a")}}
	cls := &fakeClassifier{importance: 10}
	g, _ := newTestGateway(t, primary, nil, cls, testConfig())

	kept, _, err := g.Ingest(context.Background())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(kept) != 0 {
		t.Fatalf("low-importance item kept")
	}

	// re-ingesting the same story must not re-classify it
	primary.items = []Item{testItem(2, "https://example.com/a")}
	if _, _, err := g.Ingest(context.Background()); err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if cls.calls != 1 {
		t.Fatalf("classifier called %d times, want 1", cls.calls)
	}
}

func TestIngest_ClassifierErrorRecordedAndContinues(t *testing.T) {
	primary := &fakeProvider{name: "alpha", items: []Item{testItem(1, "https://example.com/a")}}
	cls := &fakeClassifier{err: fmt.Errorf("model timeout")}
	g, _ := newTestGateway(t, primary, nil, cls, testConfig())

	kept, diag, err := g.Ingest(context.Background())
	if err != nil {
		t.Fatalf("classifier failure must not abort the run: %v", err)
	}
	if len(kept) != 0 || countActions(diag, ActionClassifierError) != 1 {
		t.Fatalf("kept=%d decisions=%+v", len(kept), diag.Decisions)
	}

	// the failed item is neither seen nor cursor-advanced: once the
	// classifier recovers it goes through
	cls.err = nil
	cls.importance = 80
	kept, _, err = g.Ingest(context.Background())
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if len(kept) != 1 || kept[0].ID != "1" {
		t.Fatalf("kept %+v, want the recovered item", kept)
	}
}

func TestFindEvent(t *testing.T) {
	primary := &fakeProvider{name: "alpha", items: []Item{testItem(1, "https://example.com/a")}}
	g, _ := newTestGateway(t, primary, nil, &fakeClassifier{importance: 80}, testConfig())

	kept, _, err := g.Ingest(context.Background())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	ev, ok, err := g.FindEvent(context.Background(), kept[0].ID)
	if err != nil || !ok {
		t.Fatalf("FindEvent: ok=%v err=%v", ok, err)
	}
	if ev.ID != kept[0].ID {
		t.Fatalf("found %q, want %q", ev.ID, kept[0].ID)
	}

	if _, ok, _ := g.FindEvent(context.Background(), "missing"); ok {
		t.Fatalf("unexpected hit for missing event")
	}
}
