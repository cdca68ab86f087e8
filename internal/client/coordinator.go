// Package client implements the client-side session machinery: the
// reconnection coordinator reacting to server auth errors, and the
// sliding-session activity watcher.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/barre-app/barre/internal/client/session"
	"github.com/barre-app/barre/internal/logger"
	"github.com/barre-app/barre/internal/wire"
)

// State is the coordinator's view of the socket's authentication status.
type State int

const (
	// StateConnected is the normal operating state.
	StateConnected State = iota
	// StateAwaitingRefresh means a token refresh is in flight after a
	// TOKEN_EXPIRED auth error.
	StateAwaitingRefresh
	// StateTerminal means the session is over; the user has been routed to
	// the auth entry point and no further recovery is attempted.
	StateTerminal
)

// defaultRetryDelay is how long the coordinator waits before the single
// reconnection attempt it schedules for unrecognized auth_error kinds.
const defaultRetryDelay = 3 * time.Second

// SocketController is the slice of the socket client the coordinator drives.
type SocketController interface {
	SetToken(token string)
	Reconnect() error
}

// RefreshFunc calls the token-refresh endpoint for a user id.
type RefreshFunc func(ctx context.Context, userID string) (wire.TokenResponse, error)

// NavigateFunc routes the user to the auth entry point. All redirect
// decisions are centralized here so concurrent failures cannot trigger
// redirect storms.
type NavigateFunc func(reason string)

// Coordinator reacts to server-emitted auth_error events: expired tokens are
// recovered through a coalesced refresh plus reconnection, invalid tokens
// end the session.
type Coordinator struct {
	session    *session.Session
	gate       *session.RefreshGate
	refresh    RefreshFunc
	socket     SocketController
	navigate   NavigateFunc
	retryDelay time.Duration

	mu           sync.Mutex
	state        State
	retryPending bool
	closed       bool
}

// NewCoordinator wires a coordinator to a session, its refresh gate, the
// socket client and the navigation callback.
func NewCoordinator(sess *session.Session, gate *session.RefreshGate, refresh RefreshFunc, socket SocketController, navigate NavigateFunc) *Coordinator {
	return &Coordinator{
		session:    sess,
		gate:       gate,
		refresh:    refresh,
		socket:     socket,
		navigate:   navigate,
		retryDelay: defaultRetryDelay,
		state:      StateConnected,
	}
}

// SetRetryDelay overrides the delay used for the unknown-error reconnect
// attempt. Tests use this to avoid real waits.
func (c *Coordinator) SetRetryDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retryDelay = d
}

// State returns the coordinator's current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HandleAuthError processes a server-emitted auth_error. Safe to call from
// any goroutine; concurrent TOKEN_EXPIRED triggers collapse into a single
// refresh attempt.
func (c *Coordinator) HandleAuthError(p wire.AuthErrorPayload) {
	switch p.Type {
	case wire.AuthErrorTokenExpired:
		c.mu.Lock()
		if c.state != StateConnected || c.closed {
			// A refresh is already in flight, or the session is over; the
			// running attempt's outcome covers this trigger too.
			c.mu.Unlock()
			return
		}
		c.state = StateAwaitingRefresh
		c.mu.Unlock()

		go c.refreshAndReconnect()

	case wire.AuthErrorInvalidToken:
		// Not recoverable by refreshing; the token is malformed or revoked.
		logger.Warnf("Invalid token reported by server: %s", p.Message)
		c.terminate("session is no longer valid")

	default:
		logger.Warnf("Unrecognized auth_error kind %q: %s", p.Type, p.Message)
		c.scheduleRetry()
	}
}

// HandleConnectFailure processes a transport-level handshake rejection. The
// server closes rejected handshakes without emitting anything, so an
// immediate disconnect before connection_confirmed is an auth failure and
// ends the session. Ignored while a refresh is in flight; that attempt's
// outcome decides.
func (c *Coordinator) HandleConnectFailure(reason string) {
	c.mu.Lock()
	if c.closed || c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	logger.Warnf("Connection rejected before confirmation: %s", reason)
	c.terminate("authentication rejected")
}

// RefreshNow performs a proactive refresh (sliding-session path). It shares
// the gate with the reactive path, so a concurrent auth_error trigger
// observes the same attempt. A refresh failure ends the session: continuing
// with a known-bad token is unsafe.
func (c *Coordinator) RefreshNow() {
	resp, err := c.gate.Do(func() (wire.TokenResponse, error) {
		return c.refresh(context.Background(), c.session.UserIDString())
	})

	c.mu.Lock()
	if c.closed {
		// Session torn down while the call was in flight; discard.
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err != nil {
		logger.Warnf("Proactive token refresh failed: %v", err)
		c.terminate("session expired")
		return
	}

	c.session.Apply(resp)
	c.socket.SetToken(c.session.AccessToken())
}

func (c *Coordinator) refreshAndReconnect() {
	resp, err := c.gate.Do(func() (wire.TokenResponse, error) {
		return c.refresh(context.Background(), c.session.UserIDString())
	})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err != nil {
		logger.Warnf("Token refresh failed: %v", err)
		c.terminate("session expired")
		return
	}

	c.session.Apply(resp)
	c.socket.SetToken(c.session.AccessToken())

	if err := c.socket.Reconnect(); err != nil {
		logger.Warnf("Reconnect after refresh failed: %v", err)
		c.terminate("connection lost")
		return
	}

	c.mu.Lock()
	if c.state == StateAwaitingRefresh {
		c.state = StateConnected
	}
	c.mu.Unlock()

	logger.Debugf("Token refreshed and socket reconnected")
}

// scheduleRetry schedules a single reconnection attempt after a fixed delay.
// Unknown error kinds are never treated as fatal.
func (c *Coordinator) scheduleRetry() {
	c.mu.Lock()
	if c.retryPending || c.closed || c.state == StateTerminal {
		c.mu.Unlock()
		return
	}
	c.retryPending = true
	delay := c.retryDelay
	c.mu.Unlock()

	time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.retryPending = false
		closed := c.closed || c.state == StateTerminal
		c.mu.Unlock()
		if closed {
			return
		}
		if err := c.socket.Reconnect(); err != nil {
			logger.Warnf("Fallback reconnect failed: %v", err)
		}
	})
}

func (c *Coordinator) terminate(reason string) {
	c.mu.Lock()
	if c.state == StateTerminal {
		c.mu.Unlock()
		return
	}
	c.state = StateTerminal
	c.mu.Unlock()

	if c.navigate != nil {
		c.navigate(reason)
	}
}

// Close marks the session as torn down (logout). A refresh in flight at this
// moment is allowed to finish; its result is discarded. No navigation is
// performed.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.state = StateTerminal
}
