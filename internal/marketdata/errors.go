package marketdata

import (
	"errors"
	"fmt"
)

// BarError classifies daily-bar fetch failures so callers can tell a bad
// symbol from a rate limit from a transport problem.
type BarError struct {
	Type    string // "network", "rate_limit", "provider_error", "bad_symbol"
	Symbol  string
	Message string
	Cause   error
}

func (e *BarError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error for %s: %s (%v)", e.Type, e.Symbol, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error for %s: %s", e.Type, e.Symbol, e.Message)
}

func (e *BarError) Unwrap() error { return e.Cause }

func NewNetworkError(symbol, message string, cause error) *BarError {
	return &BarError{Type: "network", Symbol: symbol, Message: message, Cause: cause}
}

func NewRateLimitError(symbol, message string) *BarError {
	return &BarError{Type: "rate_limit", Symbol: symbol, Message: message}
}

func NewProviderError(symbol, message string, cause error) *BarError {
	return &BarError{Type: "provider_error", Symbol: symbol, Message: message, Cause: cause}
}

func NewBadSymbolError(symbol, message string) *BarError {
	return &BarError{Type: "bad_symbol", Symbol: symbol, Message: message}
}

// ErrorType extracts the BarError type, or "unknown".
func ErrorType(err error) string {
	var be *BarError
	if errors.As(err, &be) {
		return be.Type
	}
	return "unknown"
}
