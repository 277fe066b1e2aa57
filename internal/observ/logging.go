// Package observ provides the structured JSON-line log and the in-process
// metrics registry shared by every pipeline stage.
package observ

import (
	"encoding/json"
	"fmt"
	"time"
)

// Log emits one JSON line per event. Values must be json-marshalable.
func Log(event string, kv map[string]any) {
	if kv == nil {
		kv = map[string]any{}
	}
	kv["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	kv["event"] = event
	b, _ := json.Marshal(kv)
	fmt.Println(string(b))
}

// LogError is Log with the error string attached under "error".
func LogError(event string, err error, kv map[string]any) {
	if kv == nil {
		kv = map[string]any{}
	}
	if err != nil {
		kv["error"] = err.Error()
	}
	Log(event, kv)
}
