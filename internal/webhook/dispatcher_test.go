package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type capture struct {
	mu       sync.Mutex
	payloads [][]byte
	headers  []http.Header
}

func (c *capture) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	c.payloads = append(c.payloads, body)
	c.headers = append(c.headers, r.Header.Clone())
	c.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func TestDispatchDelivery(t *testing.T) {
	cap := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(cap.handler))
	defer srv.Close()

	d := NewDispatcher([]Endpoint{{URL: srv.URL, Secret: "s3cret"}}, nil)
	d.Start()

	d.Dispatch(Event{
		Type:      EventProfileSwitched,
		Timestamp: time.Now().UTC(),
		RuleID:    "office",
		ProfileID: "corp-proxy",
		Status:    "Matched",
	})
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if cap.count() != 1 {
		t.Fatalf("deliveries = %d, want 1", cap.count())
	}

	var evt Event
	if err := json.Unmarshal(cap.payloads[0], &evt); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if evt.Type != EventProfileSwitched || evt.ProfileID != "corp-proxy" {
		t.Errorf("event = %+v", evt)
	}

	h := cap.headers[0]
	if h.Get("X-Switcheroo-Event") != EventProfileSwitched {
		t.Errorf("event header = %q", h.Get("X-Switcheroo-Event"))
	}
	if h.Get("X-Switcheroo-Delivery") == "" {
		t.Error("missing delivery id header")
	}
	if !VerifySignature(cap.payloads[0], h.Get("X-Switcheroo-Signature"), "s3cret") {
		t.Error("signature does not verify")
	}
}

func TestDispatchEventFilter(t *testing.T) {
	cap := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(cap.handler))
	defer srv.Close()

	d := NewDispatcher([]Endpoint{
		{URL: srv.URL, Events: []string{EventAutoModeChanged}},
	}, nil)
	d.Start()

	d.Dispatch(Event{Type: EventProfileSwitched})
	d.Dispatch(Event{Type: EventAutoModeChanged})
	_ = d.Close()

	if cap.count() != 1 {
		t.Errorf("deliveries = %d, want 1 (filtered)", cap.count())
	}
}

func TestDispatchAfterCloseIsNoop(t *testing.T) {
	d := NewDispatcher(nil, nil)
	d.Start()
	_ = d.Close()
	_ = d.Close()
	d.Dispatch(Event{Type: EventPassFailed}) // must not panic on closed queue
}
