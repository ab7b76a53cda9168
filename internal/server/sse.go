package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// SSE event names used by the streaming endpoint
const (
	eventStep   = "step"
	eventResult = "result"
	eventError  = "error"
)

// SSEWriter helps write Server-Sent Events. Pipeline steps report from several
// goroutines, so writes are serialized.
type SSEWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteError sends an error event using the same envelope as JSON errors
func (s *SSEWriter) WriteError(message string) error {
	return s.WriteEvent(eventError, map[string]string{"detail": message})
}

// WriteResult sends the final payload
func (s *SSEWriter) WriteResult(result any) error {
	return s.WriteEvent(eventResult, result)
}
