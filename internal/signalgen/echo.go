package signalgen

import (
	"context"
	"encoding/json"

	"github.com/marketbrief/signal-engine/internal/confidence"
	"github.com/marketbrief/signal-engine/internal/store"
)

// EchoProvider looks up historical pair-correlation stats for a symbol.
// Absence is never an error: the engine degrades to the echo-absent
// weight regime.
type EchoProvider interface {
	Lookup(ctx context.Context, symbol string) (*confidence.EchoContext, bool, error)
}

// StoreEcho reads precomputed echo stats from the KV store. The offline
// pattern-accuracy calculator that writes them is outside this system.
type StoreEcho struct {
	store store.Store
}

func NewStoreEcho(s store.Store) *StoreEcho {
	return &StoreEcho{store: s}
}

func (e *StoreEcho) Lookup(ctx context.Context, symbol string) (*confidence.EchoContext, bool, error) {
	raw, ok, err := e.store.Get(ctx, store.EchoKey(symbol))
	if err != nil || !ok {
		return nil, false, err
	}
	var echo confidence.EchoContext
	if err := json.Unmarshal([]byte(raw), &echo); err != nil {
		return nil, false, nil // corrupt entry degrades to no echo
	}
	return &echo, true, nil
}
