package probe

import (
	"context"
	"sync"
)

// abortGate hands out a shared parent context for in-flight probes and
// regenerates it when tripped, so one AbortAll cancels everything currently
// running without poisoning probes started afterwards.
type abortGate struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

func newAbortGate() *abortGate {
	ctx, cancel := context.WithCancel(context.Background())
	return &abortGate{ctx: ctx, cancel: cancel}
}

func (g *abortGate) current() context.Context {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ctx
}

func (g *abortGate) trip() {
	g.mu.Lock()
	cancel := g.cancel
	g.ctx, g.cancel = context.WithCancel(context.Background())
	g.mu.Unlock()
	cancel()
}
