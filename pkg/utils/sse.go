package utils

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// SetupSSEHeaders prepares a response for Server-Sent Events.
func SetupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// SendSSEEvent writes a named event frame and flushes it.
func SendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		zap.L().Warn("failed to marshal sse event", zap.String("event", event), zap.Error(err))
		return
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		zap.L().Debug("failed to write sse event", zap.String("event", event), zap.Error(err))
		return
	}
	flusher.Flush()
}
