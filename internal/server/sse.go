package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const sseWriteTimeout = 3 * time.Second

// SSEStream writes Server-Sent Events to one client.
type SSEStream struct {
	w http.ResponseWriter
	f http.Flusher
}

// NewSSEStream sends the event-stream headers. It fails when w
// cannot flush, leaving the response untouched.
func NewSSEStream(w http.ResponseWriter) (*SSEStream, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &SSEStream{w: w, f: f}, nil
}

// Send writes one event and flushes it. A stalled client gets
// sseWriteTimeout before the write fails.
func (s *SSEStream) Send(event, data string) bool {
	rc := http.NewResponseController(s.w)
	_ = rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout))
	defer func() { _ = rc.SetWriteDeadline(time.Time{}) }()

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		log.Printf("sse write %q: %v", event, err)
		return false
	}
	s.f.Flush()
	return true
}

// SendJSON is Send with v encoded as JSON.
func (s *SSEStream) SendJSON(event string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("sse marshal %q: %v", event, err)
		return false
	}
	return s.Send(event, string(data))
}
