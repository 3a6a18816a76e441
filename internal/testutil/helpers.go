// Package testutil provides shared helpers for exercising the HTTP API in
// tests: an in-memory server with stub probes and a compact request runner.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/krzko/proxy-switcheroo/internal/api"
	"github.com/krzko/proxy-switcheroo/internal/engine"
	"github.com/krzko/proxy-switcheroo/internal/probe"
	"github.com/krzko/proxy-switcheroo/internal/proxy"
	"github.com/krzko/proxy-switcheroo/internal/rules"
	"github.com/krzko/proxy-switcheroo/internal/store"
	"github.com/krzko/proxy-switcheroo/internal/switcher"
)

// StubProber answers every probe with a fixed verdict.
type StubProber struct {
	Success bool
}

func (s *StubProber) Probe(ctx context.Context, t rules.Trigger, bypassCache bool) probe.Result {
	return probe.Result{Success: s.Success}
}

// NewTestServer creates an API server backed by an in-memory store and a
// stub prober that always succeeds.
func NewTestServer(t *testing.T, adminKey string) (*api.Server, *store.MemoryStore) {
	t.Helper()
	memStore := store.NewMemoryStore()
	ev := engine.New(&StubProber{Success: true}, nil)
	act := proxy.NewStateActivator(memStore, switcher.StateRecorder{Store: memStore}, nil, nil)
	orch := switcher.New(memStore, ev, act, nil, nil)
	return api.NewServer(memStore, orch, ev, adminKey), memStore
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}
