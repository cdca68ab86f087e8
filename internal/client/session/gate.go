package session

import (
	"sync"

	"github.com/barre-app/barre/internal/wire"
)

// RefreshGate serializes token refresh so that at most one refresh call is
// in flight per session. The first trigger creates the attempt; triggers
// arriving before it resolves attach to the same pending outcome instead of
// issuing a second call. The handle is cleared after resolution so the next
// genuine trigger starts a fresh attempt.
type RefreshGate struct {
	mu      sync.Mutex
	pending *refreshAttempt
}

type refreshAttempt struct {
	done chan struct{}
	resp wire.TokenResponse
	err  error
}

// NewRefreshGate creates an idle gate.
func NewRefreshGate() *RefreshGate {
	return &RefreshGate{}
}

// Do runs fn unless a refresh is already in flight, in which case it waits
// for and returns that attempt's outcome.
func (g *RefreshGate) Do(fn func() (wire.TokenResponse, error)) (wire.TokenResponse, error) {
	g.mu.Lock()
	if att := g.pending; att != nil {
		g.mu.Unlock()
		<-att.done
		return att.resp, att.err
	}

	att := &refreshAttempt{done: make(chan struct{})}
	g.pending = att
	g.mu.Unlock()

	att.resp, att.err = fn()

	g.mu.Lock()
	g.pending = nil
	g.mu.Unlock()
	close(att.done)

	return att.resp, att.err
}

// Pending reports whether a refresh attempt is currently in flight.
func (g *RefreshGate) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending != nil
}
