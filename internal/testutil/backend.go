package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/tarkov-gateway/internal/infrastructure/config"
	"github.com/GriffinCanCode/tarkov-gateway/internal/protocol"
)

// RecordedRequest is a request as the fake backend received it.
// Header keys are canonicalized by the HTTP server.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Backend is a fake EFT backend.
type Backend struct {
	Server *httptest.Server

	t        *testing.T
	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewBackend starts a fake backend that is closed when the test ends.
// Unknown paths answer 404.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{t: t, routes: make(map[string]http.HandlerFunc)}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	path := strings.TrimPrefix(r.URL.Path, "/")

	b.mu.Lock()
	b.requests = append(b.requests, RecordedRequest{
		Method: r.Method,
		Path:   path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	handler, ok := b.routes[path]
	b.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	handler(w, r)
}

// URL returns the base URL of the fake backend.
func (b *Backend) URL() string {
	return b.Server.URL
}

// Handle registers a handler for path (without leading slash).
func (b *Backend) Handle(path string, handler http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[path] = handler
}

// Envelope makes path answer with doc, zlib-compressed.
func (b *Backend) Envelope(path, doc string) {
	body := Deflate(b.t, doc)
	b.Raw(path, http.StatusOK, body)
}

// Raw makes path answer with status and body as given.
func (b *Backend) Raw(path string, status int, body []byte) {
	b.Handle(path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	})
}

// Delay makes path answer doc after d, or give up when the client leaves.
func (b *Backend) Delay(path, doc string, d time.Duration) {
	body := Deflate(b.t, doc)
	b.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write(body)
	})
}

// Requests returns every request received so far.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RecordedRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

// RequestsTo returns the requests received for path.
func (b *Backend) RequestsTo(path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range b.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Deflate zlib-compresses doc.
func Deflate(t *testing.T, doc string) []byte {
	t.Helper()
	body, err := protocol.Deflate([]byte(doc))
	require.NoError(t, err)
	return body
}

// Config returns a gateway configuration with every endpoint pointing at
// baseURL, the startup refresh off and the breaker off.
func Config(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.Endpoints = config.EndpointsConfig{
		Prod:     baseURL,
		Launcher: baseURL,
		Trading:  baseURL,
		Ragfair:  baseURL,
	}
	cfg.Transport.Timeout = 5 * time.Second
	cfg.Transport.BreakerEnabled = false
	cfg.Refresh.OnStart = false
	return cfg
}
