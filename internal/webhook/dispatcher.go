// Package webhook delivers switch events to external HTTP endpoints, with
// HMAC payload signing and exponential backoff on failure. Delivery is
// asynchronous; dispatching never blocks an evaluation pass.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/krzko/proxy-switcheroo/internal/diag"
)

const (
	// queueSize is the buffer size for the event queue
	queueSize = 256

	// maxResponseBodySize limits how much of the response body is read
	maxResponseBodySize = 1024

	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 2
)

// Dispatcher fans events out to the configured endpoints from a single
// worker goroutine.
type Dispatcher struct {
	endpoints []Endpoint
	client    *http.Client
	diag      *diag.Emitter
	queue     chan Event
	done      chan struct{}
	closed    atomic.Bool
}

// NewDispatcher creates a dispatcher for the given endpoints. sink may be
// nil.
func NewDispatcher(endpoints []Endpoint, sink diag.Sink) *Dispatcher {
	return &Dispatcher{
		endpoints: endpoints,
		client:    &http.Client{Timeout: defaultTimeout},
		diag:      diag.NewEmitter(sink, "webhook"),
		queue:     make(chan Event, queueSize),
		done:      make(chan struct{}),
	}
}

// Start begins processing events from the queue
func (d *Dispatcher) Start() {
	go d.worker()
}

// Close drains the queue and stops the worker. Safe to call multiple times.
func (d *Dispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(d.queue)
	<-d.done
	return nil
}

// Dispatch queues an event for delivery. Non-blocking: when the queue is
// full the event is dropped and logged rather than stalling the caller.
func (d *Dispatcher) Dispatch(event Event) {
	if d.closed.Load() {
		return
	}
	select {
	case d.queue <- event:
	default:
		d.diag.Warn("queue full, dropping event", map[string]any{"type": event.Type})
	}
}

func (d *Dispatcher) worker() {
	defer close(d.done)

	for event := range d.queue {
		for _, ep := range d.endpoints {
			if ep.wants(event.Type) {
				d.deliverWithRetry(context.Background(), ep, event)
			}
		}
	}
}

// deliverWithRetry posts the event, retrying with exponential backoff up to
// the endpoint's MaxRetries.
func (d *Dispatcher) deliverWithRetry(ctx context.Context, ep Endpoint, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		d.diag.Error("failed to marshal event", map[string]any{"type": event.Type, "error": err.Error()})
		return
	}

	signature := ComputeHMAC(payload, ep.Secret)
	deliveryID := uuid.New().String()
	maxRetries := ep.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	timeout := ep.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequest(http.MethodPost, ep.URL, bytes.NewReader(payload))
		if err != nil {
			d.diag.Error("failed to create request", map[string]any{"url": ep.URL, "error": err.Error()})
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Switcheroo-Signature", signature)
		req.Header.Set("X-Switcheroo-Event", event.Type)
		req.Header.Set("X-Switcheroo-Delivery", deliveryID)

		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err := d.client.Do(req.WithContext(reqCtx))

		var statusCode int
		var errorMsg string
		if err != nil {
			errorMsg = err.Error()
		} else {
			statusCode = resp.StatusCode
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))
			resp.Body.Close()
		}
		cancel()

		if err == nil && statusCode >= 200 && statusCode < 300 {
			d.diag.Debug("delivery succeeded", map[string]any{
				"url": ep.URL, "type": event.Type, "status": statusCode, "attempt": attempt + 1,
			})
			return
		}

		if attempt < maxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			d.diag.Warn("delivery failed, retrying", map[string]any{
				"url": ep.URL, "type": event.Type, "status": statusCode,
				"error": errorMsg, "attempt": attempt + 1, "backoff": backoff.String(),
			})
			time.Sleep(backoff)
		} else {
			d.diag.Error("delivery failed permanently", map[string]any{
				"url": ep.URL, "type": event.Type, "status": statusCode,
				"error": errorMsg, "attempts": attempt + 1,
			})
		}
	}
}
