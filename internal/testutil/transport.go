package testutil

import (
	"net/http"
	"sync"
)

// RecordingTransport keeps the outgoing header maps exactly as the client
// built them, before the wire canonicalizes anything.
type RecordingTransport struct {
	Next http.RoundTripper

	mu      sync.Mutex
	headers []http.Header
}

// RoundTrip records req's headers and forwards it.
func (t *RecordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	t.headers = append(t.headers, req.Header.Clone())
	t.mu.Unlock()

	next := t.Next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}

// Headers returns the recorded header maps in send order.
func (t *RecordingTransport) Headers() []http.Header {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]http.Header, len(t.headers))
	copy(out, t.headers)
	return out
}
