// Package scheduler drives the orchestrator: periodic evaluation passes,
// immediate passes on network-change notifications, and cache sweeps.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/krzko/proxy-switcheroo/internal/diag"
	"github.com/krzko/proxy-switcheroo/internal/probe"
	"github.com/krzko/proxy-switcheroo/internal/switcher"
)

// Default cadences. Evaluation mirrors the keep-alive interval of the
// engine; sweeping just bounds cache growth between passes.
const (
	DefaultEvalInterval  = 5 * time.Minute
	DefaultSweepInterval = probe.DefaultSweepInterval
)

// Scheduler owns the background loop of the daemon.
type Scheduler struct {
	orch          *switcher.Orchestrator
	cache         *probe.Cache
	evalInterval  time.Duration
	sweepInterval time.Duration
	diag          *diag.Emitter

	events chan struct{}
	wg     sync.WaitGroup
	cancel context.CancelFunc
	once   sync.Once
}

// New builds a scheduler. Non-positive intervals fall back to defaults;
// cache and sink may be nil.
func New(orch *switcher.Orchestrator, cache *probe.Cache, evalInterval, sweepInterval time.Duration, sink diag.Sink) *Scheduler {
	if evalInterval <= 0 {
		evalInterval = DefaultEvalInterval
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &Scheduler{
		orch:          orch,
		cache:         cache,
		evalInterval:  evalInterval,
		sweepInterval: sweepInterval,
		diag:          diag.NewEmitter(sink, "scheduler"),
		events:        make(chan struct{}, 1),
	}
}

// Notify requests an immediate evaluation pass, e.g. after a network change
// or captive portal event. Coalesces if a request is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.events <- struct{}{}:
	default:
	}
}

// Start launches the background loop. It runs until Stop or ctx cancellation
// and performs one pass immediately on startup.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop halts the loop and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
	})
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	evalTicker := time.NewTicker(s.evalInterval)
	defer evalTicker.Stop()
	sweepTicker := time.NewTicker(s.sweepInterval)
	defer sweepTicker.Stop()

	s.runPass(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-evalTicker.C:
			s.runPass(ctx)
		case <-s.events:
			s.diag.Debug("network event, running pass", nil)
			s.runPass(ctx)
		case <-sweepTicker.C:
			if s.cache != nil {
				if n := s.cache.Sweep(); n > 0 {
					s.diag.Debug("swept expired probe results", map[string]any{"removed": n})
				}
			}
		}
	}
}

func (s *Scheduler) runPass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.orch.RunPass(ctx, false, true); err != nil {
		s.diag.Error("scheduled pass failed", map[string]any{"error": err.Error()})
	}
}
