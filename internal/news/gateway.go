package news

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/marketbrief/signal-engine/internal/observ"
	"github.com/marketbrief/signal-engine/internal/store"
)

// GatewayConfig tunes the ingestion gate.
type GatewayConfig struct {
	LookbackHours    int
	MinFetchCount    int // below this, the fetch is unhealthy and the fallback kicks in
	PrefilterMin     int // non-macro items below this never reach the classifier
	ThresholdNormal  int
	ThresholdLow     int // used when the fetch was unhealthy
	ThresholdMacro   int // always wins for Tier-0 matches
	DailyClassifyCap int
	MaxEvents        int
	SeenURLCap       int
}

// Gateway is the news ingestion gate: provider fetch with fallback,
// dedup against persisted markers, cheap prefilter, and cost-capped
// classification. All shared state lives in the Store, never in memory
// across invocations.
type Gateway struct {
	primary    Provider
	secondary  Provider
	classifier Classifier
	store      store.Store
	cfg        GatewayConfig
	now        func() time.Time
}

func NewGateway(primary, secondary Provider, classifier Classifier, s store.Store, cfg GatewayConfig) *Gateway {
	if cfg.LookbackHours <= 0 {
		cfg.LookbackHours = 24
	}
	if cfg.MinFetchCount <= 0 {
		cfg.MinFetchCount = 5
	}
	if cfg.DailyClassifyCap <= 0 {
		cfg.DailyClassifyCap = 200
	}
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = 100
	}
	if cfg.SeenURLCap <= 0 {
		cfg.SeenURLCap = 1000
	}
	return &Gateway{
		primary:    primary,
		secondary:  secondary,
		classifier: classifier,
		store:      s,
		cfg:        cfg,
		now:        time.Now,
	}
}

// SetClock overrides the clock, for tests.
func (g *Gateway) SetClock(now func() time.Time) { g.now = now }

// Decision is the per-item audit record: nothing is silently dropped.
type Decision struct {
	ItemID         string `json:"item_id"`
	Provider       string `json:"provider"`
	URL            string `json:"url,omitempty"`
	Action         string `json:"action"`
	PrefilterScore int    `json:"prefilter_score,omitempty"`
	Threshold      int    `json:"threshold,omitempty"`
	Importance     int    `json:"importance,omitempty"`
	Note           string `json:"note,omitempty"`
}

// Decision actions.
const (
	ActionKept             = "kept"
	ActionSkippedSeen      = "skipped_seen"
	ActionSkippedCursor    = "skipped_cursor"
	ActionSkippedStale     = "skipped_stale"
	ActionSkippedPrefilter = "skipped_prefilter"
	ActionSkippedCap       = "skipped_cap"
	ActionSkippedLowScore  = "skipped_low_importance"
	ActionClassifierError  = "classifier_error"
)

// Diagnostics summarizes one ingest run.
type Diagnostics struct {
	FetchedPrimary   int        `json:"fetched_primary"`
	FetchedSecondary int        `json:"fetched_secondary"`
	FallbackUsed     bool       `json:"fallback_used"`
	FetchHealthy     bool       `json:"fetch_healthy"`
	MergedDuplicates int        `json:"merged_duplicates"`
	ClassifyCalls    int        `json:"classify_calls"`
	CapReached       bool       `json:"cap_reached"`
	Decisions        []Decision `json:"decisions"`
}

// Ingest runs one gate pass: fetch, filter, dedup, classify under the
// daily cap, persist surviving events and advance the dedup markers.
// Items are processed strictly sequentially so the cap check observes a
// consistent running count between classifier calls.
func (g *Gateway) Ingest(ctx context.Context) ([]Event, *Diagnostics, error) {
	diag := &Diagnostics{}

	items, err := g.fetch(ctx, diag)
	if err != nil {
		return nil, diag, err
	}

	seen, seenOrder, err := g.loadSeenURLs(ctx)
	if err != nil {
		return nil, diag, fmt.Errorf("load seen urls: %w", err)
	}
	cursors := map[string]int64{}
	maxIDs := map[string]int64{}

	events, err := g.loadEvents(ctx)
	if err != nil {
		return nil, diag, fmt.Errorf("load events: %w", err)
	}

	cutoff := g.now().Add(-time.Duration(g.cfg.LookbackHours) * time.Hour)
	today := g.now().UTC().Format("2006-01-02")
	classifyCount, err := g.loadClassifyCount(ctx, today)
	if err != nil {
		return nil, diag, fmt.Errorf("load classify count: %w", err)
	}

	var kept []Event
	capReached := false

	for i, it := range items {
		canon := CanonicalURL(it.URL)

		// items lacking a timestamp are kept
		if !it.PublishedAt.IsZero() && it.PublishedAt.Before(cutoff) {
			diag.Decisions = append(diag.Decisions, Decision{
				ItemID: it.ID, Provider: it.Provider, URL: canon, Action: ActionSkippedStale,
			})
			continue
		}

		if seen[canon] {
			g.bumpCorroboration(events, canon)
			diag.Decisions = append(diag.Decisions, Decision{
				ItemID: it.ID, Provider: it.Provider, URL: canon, Action: ActionSkippedSeen,
			})
			continue
		}

		numericID, hasNumericID := parseNumericID(it.ID)
		if hasNumericID {
			cursor, ok := cursors[it.Provider]
			if !ok {
				cursor, err = g.loadCursor(ctx, it.Provider)
				if err != nil {
					return nil, diag, fmt.Errorf("load cursor %s: %w", it.Provider, err)
				}
				cursors[it.Provider] = cursor
			}
			if numericID <= cursor {
				diag.Decisions = append(diag.Decisions, Decision{
					ItemID: it.ID, Provider: it.Provider, URL: canon, Action: ActionSkippedCursor,
				})
				continue
			}
		}
		// the cursor only advances past items that reached a terminal
		// decision; items bounced by the cap or a classifier failure stay
		// re-admissible on a later run
		advanceCursor := func() {
			if hasNumericID && numericID > maxIDs[it.Provider] {
				maxIDs[it.Provider] = numericID
			}
		}

		prefilter := PrefilterScore(it)
		macroKw, isMacro := MacroMatch(it.Headline)

		threshold := g.cfg.ThresholdNormal
		if !diag.FetchHealthy {
			threshold = g.cfg.ThresholdLow
		}
		if isMacro {
			threshold = g.cfg.ThresholdMacro
		}

		if !isMacro && prefilter < g.cfg.PrefilterMin {
			advanceCursor()
			diag.Decisions = append(diag.Decisions, Decision{
				ItemID: it.ID, Provider: it.Provider, URL: canon,
				Action: ActionSkippedPrefilter, PrefilterScore: prefilter,
			})
			continue
		}

		if classifyCount >= g.cfg.DailyClassifyCap {
			// cap reached mid-batch: record the rest as skipped and stop
			capReached = true
			for _, rest := range items[i:] {
				diag.Decisions = append(diag.Decisions, Decision{
					ItemID: rest.ID, Provider: rest.Provider, URL: CanonicalURL(rest.URL),
					Action: ActionSkippedCap, Note: "daily classification cap reached",
				})
			}
			break
		}

		analysis, err := g.classifier.Classify(ctx, it.Headline, it.Body)
		classifyCount++
		diag.ClassifyCalls++
		if err != nil {
			observ.IncCounter("ingest_classifier_error_total", map[string]string{"provider": it.Provider})
			diag.Decisions = append(diag.Decisions, Decision{
				ItemID: it.ID, Provider: it.Provider, URL: canon,
				Action: ActionClassifierError, Note: err.Error(),
			})
			continue
		}
		advanceCursor()

		if analysis.ImportanceScore < threshold {
			diag.Decisions = append(diag.Decisions, Decision{
				ItemID: it.ID, Provider: it.Provider, URL: canon,
				Action: ActionSkippedLowScore, PrefilterScore: prefilter,
				Threshold: threshold, Importance: analysis.ImportanceScore,
			})
			seen[canon] = true
			seenOrder = append(seenOrder, canon)
			continue
		}

		ev := Event{
			Item:      it,
			Analysis:  *analysis,
			Tier:      1,
			CreatedAt: g.now().UTC(),
		}
		if isMacro {
			ev.MacroMatch = macroKw
			ev.Tier = 0
		}
		kept = append(kept, ev)
		events = append(events, ev)
		seen[canon] = true
		seenOrder = append(seenOrder, canon)

		diag.Decisions = append(diag.Decisions, Decision{
			ItemID: it.ID, Provider: it.Provider, URL: canon,
			Action: ActionKept, PrefilterScore: prefilter,
			Threshold: threshold, Importance: analysis.ImportanceScore,
		})
	}
	diag.CapReached = capReached

	if err := g.persist(ctx, seenOrder, maxIDs, events, classifyCount, today); err != nil {
		return kept, diag, fmt.Errorf("persist markers: %w", err)
	}

	observ.Log("ingest_run", map[string]any{
		"fetched_primary":   diag.FetchedPrimary,
		"fetched_secondary": diag.FetchedSecondary,
		"fallback_used":     diag.FallbackUsed,
		"kept":              len(kept),
		"classify_calls":    diag.ClassifyCalls,
		"cap_reached":       capReached,
	})
	observ.IncCounterBy("ingest_kept_total", nil, int64(len(kept)))

	return kept, diag, nil
}

// fetch pulls from the primary and, when the primary fails or returns too
// few items, merges in the secondary, deduplicating by canonical URL.
func (g *Gateway) fetch(ctx context.Context, diag *Diagnostics) ([]Item, error) {
	items, primaryErr := g.primary.Latest(ctx)
	if primaryErr != nil {
		observ.LogError("ingest_primary_failed", primaryErr, map[string]any{"provider": g.primary.Name()})
		items = nil
	}
	diag.FetchedPrimary = len(items)

	needFallback := primaryErr != nil || len(items) < g.cfg.MinFetchCount
	if needFallback && g.secondary != nil {
		diag.FallbackUsed = true
		secondary, err := g.secondary.Latest(ctx)
		if err != nil {
			if primaryErr != nil {
				return nil, fmt.Errorf("both providers failed: primary: %v; secondary: %w", primaryErr, err)
			}
			observ.LogError("ingest_secondary_failed", err, map[string]any{"provider": g.secondary.Name()})
		} else {
			diag.FetchedSecondary = len(secondary)
			byURL := map[string]bool{}
			for _, it := range items {
				byURL[CanonicalURL(it.URL)] = true
			}
			for _, it := range secondary {
				canon := CanonicalURL(it.URL)
				if byURL[canon] {
					diag.MergedDuplicates++
					continue
				}
				byURL[canon] = true
				items = append(items, it)
			}
		}
	} else if primaryErr != nil {
		return nil, primaryErr
	}

	diag.FetchHealthy = !diag.FallbackUsed && len(items) >= g.cfg.MinFetchCount
	return items, nil
}

// Events returns the capped most-recent-N event store.
func (g *Gateway) Events(ctx context.Context) ([]Event, error) {
	return g.loadEvents(ctx)
}

// FindEvent looks up one event by ID in the ring.
func (g *Gateway) FindEvent(ctx context.Context, eventID string) (*Event, bool, error) {
	events, err := g.loadEvents(ctx)
	if err != nil {
		return nil, false, err
	}
	for i := range events {
		if events[i].ID == eventID {
			return &events[i], true, nil
		}
	}
	return nil, false, nil
}

func (g *Gateway) bumpCorroboration(events []Event, canonURL string) {
	for i := range events {
		if CanonicalURL(events[i].URL) == canonURL {
			events[i].Corroborations++
			return
		}
	}
}

func parseNumericID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (g *Gateway) loadSeenURLs(ctx context.Context) (map[string]bool, []string, error) {
	raw, ok, err := g.store.Get(ctx, store.SeenURLsKey())
	if err != nil {
		return nil, nil, err
	}
	seen := map[string]bool{}
	var order []string
	if ok {
		if err := json.Unmarshal([]byte(raw), &order); err != nil {
			order = nil
		}
		for _, u := range order {
			seen[u] = true
		}
	}
	return seen, order, nil
}

func (g *Gateway) loadCursor(ctx context.Context, provider string) (int64, error) {
	raw, ok, err := g.store.Get(ctx, store.CursorKey(provider))
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (g *Gateway) loadClassifyCount(ctx context.Context, date string) (int, error) {
	raw, ok, err := g.store.Get(ctx, store.ClassifyCountKey(date))
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (g *Gateway) loadEvents(ctx context.Context) ([]Event, error) {
	raw, ok, err := g.store.Get(ctx, store.EventsKey())
	if err != nil || !ok {
		return nil, err
	}
	var events []Event
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		return nil, nil
	}
	return events, nil
}

func (g *Gateway) persist(ctx context.Context, seenOrder []string, maxIDs map[string]int64, events []Event, classifyCount int, date string) error {
	if len(seenOrder) > g.cfg.SeenURLCap {
		seenOrder = seenOrder[len(seenOrder)-g.cfg.SeenURLCap:]
	}
	b, err := json.Marshal(seenOrder)
	if err != nil {
		return err
	}
	if err := g.store.Set(ctx, store.SeenURLsKey(), string(b), 0); err != nil {
		return err
	}

	for provider, maxID := range maxIDs {
		if err := g.store.Set(ctx, store.CursorKey(provider), strconv.FormatInt(maxID, 10), 0); err != nil {
			return err
		}
	}

	if len(events) > g.cfg.MaxEvents {
		events = events[len(events)-g.cfg.MaxEvents:]
	}
	eb, err := json.Marshal(events)
	if err != nil {
		return err
	}
	if err := g.store.Set(ctx, store.EventsKey(), string(eb), 0); err != nil {
		return err
	}

	return g.store.Set(ctx, store.ClassifyCountKey(date), strconv.Itoa(classifyCount), store.TTLClassifyCap)
}
