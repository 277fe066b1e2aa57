package marketdata

import (
	"context"
	"encoding/json"
	"time"

	"github.com/marketbrief/signal-engine/internal/observ"
	"github.com/marketbrief/signal-engine/internal/store"
)

// BarCache fetches daily bars through the provider and caches them in the
// KV store keyed by symbol plus reference date, so every consumer of one
// signal's history hits the provider at most once per TTL window.
type BarCache struct {
	store    store.Store
	provider BarsProvider
	ttl      time.Duration
}

func NewBarCache(s store.Store, provider BarsProvider) *BarCache {
	return &BarCache{store: s, provider: provider, ttl: store.TTLBars}
}

// DailyBars returns bars for [start, end] around the reference date.
// The cache key is scoped to the reference date, not the range, because
// the range is always derived from it.
func (bc *BarCache) DailyBars(ctx context.Context, symbol string, ref, start, end time.Time) ([]Bar, error) {
	key := store.BarsKey(bc.provider.Name(), symbol, FormatDate(ref))

	if raw, ok, err := bc.store.Get(ctx, key); err == nil && ok {
		var bars []Bar
		if err := json.Unmarshal([]byte(raw), &bars); err == nil {
			observ.IncCounter("bar_cache_hit_total", map[string]string{"provider": bc.provider.Name()})
			return bars, nil
		}
		// corrupt entry, refetch
		_ = bc.store.Del(ctx, key)
	}
	observ.IncCounter("bar_cache_miss_total", map[string]string{"provider": bc.provider.Name()})

	fetchStart := time.Now()
	bars, err := bc.provider.DailyBars(ctx, symbol, start, end)
	observ.RecordDuration("bar_fetch", time.Since(fetchStart), map[string]string{"provider": bc.provider.Name()})
	if err != nil {
		observ.IncCounter("bar_fetch_error_total", map[string]string{
			"provider": bc.provider.Name(),
			"type":     ErrorType(err),
		})
		return nil, err
	}

	if b, err := json.Marshal(bars); err == nil {
		if err := bc.store.Set(ctx, key, string(b), bc.ttl); err != nil {
			observ.LogError("bar_cache_set_failed", err, map[string]any{"key": key})
		}
	}
	return bars, nil
}
