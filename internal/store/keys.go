package store

import (
	"fmt"
	"strings"
	"time"
)

// Retention windows per key family. Changing a TTL here changes it for
// every writer of that family.
const (
	TTLBars        = 7 * 24 * time.Hour
	TTLSignal      = 7 * 24 * time.Hour
	TTLTelemetry   = 90 * 24 * time.Hour
	TTLDailyIndex  = 90 * 24 * time.Hour
	TTLOutcome     = 180 * 24 * time.Hour
	TTLOutcomeLock = time.Hour
	TTLClassifyCap = 48 * time.Hour
)

// Key builders. All persisted keys are versioned so a format change can
// roll out as a new namespace instead of a migration.

func BarsKey(provider, symbol, date string) string {
	return fmt.Sprintf("mkt:v1:%s:daily:%s:%s", strings.ToUpper(provider), strings.ToUpper(symbol), date)
}

func SignalKey(modelVersion int, eventID string) string {
	return fmt.Sprintf("signal:v%d:%s", modelVersion, eventID)
}

func TelemetryKey(signalID string) string {
	return "tslog:v1:" + signalID
}

// DailyIndexKey scopes the signal index to a UTC calendar date (YYYY-MM-DD).
func DailyIndexKey(date string) string {
	return "tsidx:v1:signals:" + date
}

func OutcomeKey(signalID string) string {
	return "outcome:v1:" + signalID
}

func OutcomeLockKey(signalID string) string {
	return "outcome:lock:v1:" + signalID
}

func SeenURLsKey() string {
	return "news:v1:seen_urls"
}

func CursorKey(provider string) string {
	return "news:v1:cursor:" + strings.ToLower(provider)
}

func ClassifyCountKey(date string) string {
	return "news:v1:classified:" + date
}

func EventsKey() string {
	return "news:v1:events"
}

func EchoKey(symbol string) string {
	return "echo:v1:" + strings.ToUpper(symbol)
}
