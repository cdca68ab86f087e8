// Package websocket is the Socket.IO client for the Barre realtime channel.
package websocket

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/barre-app/barre/internal/logger"
	"github.com/barre-app/barre/internal/wire"
	socket "github.com/zishang520/socket.io/clients/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"
)

// SocketPath must match the server's Socket.IO mount point.
const SocketPath = "/v1/realtime"

// Client is a Socket.IO client connection carrying a bearer token in its
// handshake auth.
type Client struct {
	serverURL string

	mu        sync.RWMutex
	token     string
	socket    *socket.Socket
	connected bool
	handlers  map[string]func(map[string]interface{})

	authErrorFn func(wire.AuthErrorPayload)
	confirmedFn func(wire.ConnectionConfirmedPayload)
	failureFn   func(reason string)

	done      chan struct{}
	closeOnce sync.Once
	debug     bool
}

// NewClient creates a Socket.IO client.
func NewClient(serverURL, token string, debug bool) *Client {
	return &Client{
		serverURL: serverURL,
		token:     token,
		handlers:  make(map[string]func(map[string]interface{})),
		done:      make(chan struct{}),
		debug:     debug,
	}
}

// SetToken replaces the token used for the next handshake. The previous
// token is never presented again.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// OnAuthError registers the handler invoked for server-emitted auth_error
// events.
func (c *Client) OnAuthError(fn func(wire.AuthErrorPayload)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authErrorFn = fn
}

// OnConnectionConfirmed registers the handler invoked when the server
// confirms authentication.
func (c *Client) OnConnectionConfirmed(fn func(wire.ConnectionConfirmedPayload)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirmedFn = fn
}

// OnConnectFailure registers the handler invoked when the server drops the
// connection before confirming authentication. Rejected handshakes close
// the transport without any event, so this is the only client-side signal
// for them.
func (c *Client) OnConnectFailure(fn func(reason string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureFn = fn
}

// On registers a handler for a broadcast event.
func (c *Client) On(event string, handler func(map[string]interface{})) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = handler
}

// Connect establishes a Socket.IO connection to the server.
func (c *Client) Connect() error {
	if c.debug {
		logger.Debugf("Connecting to Socket.IO: %s (path: %s)", c.serverURL, SocketPath)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(SocketPath)
	opts.SetTransports(types.NewSet(socket.Polling, socket.WebSocket))

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	opts.SetAuth(map[string]interface{}{
		"token": token,
	})

	sock, err := socket.Connect(c.serverURL, opts)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.socket = sock
	c.mu.Unlock()

	// Tracks whether this socket ever reached connection_confirmed. A
	// disconnect before that point means the server rejected the handshake.
	confirmed := false

	sock.On(types.EventName("connect"), func(args ...any) {
		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()

		if c.debug {
			logger.Debugf("Socket.IO connected! ID: %s", sock.Id())
		}
	})

	sock.On(types.EventName("disconnect"), func(args ...any) {
		reason := ""
		if len(args) > 0 {
			if r, ok := args[0].(string); ok {
				reason = r
			}
		}

		c.mu.Lock()
		c.connected = false
		// Reconnect and Close clear c.socket before disconnecting, so a
		// stale socket's disconnect never counts as a rejection.
		rejected := c.socket == sock && !confirmed
		fn := c.failureFn
		c.mu.Unlock()

		if c.debug {
			logger.Debugf("Socket.IO disconnected: %s", reason)
		}
		if rejected && fn != nil {
			go fn(reason)
		}
	})

	sock.On(types.EventName("connect_error"), func(args ...any) {
		if len(args) > 0 {
			logger.Warnf("Socket.IO connection error: %v", args[0])
		}
	})

	sock.On(types.EventName("connection_confirmed"), func(args ...any) {
		var payload wire.ConnectionConfirmedPayload
		if !decodeFirst(args, &payload) {
			return
		}
		c.mu.Lock()
		confirmed = true
		fn := c.confirmedFn
		c.mu.Unlock()
		if fn != nil {
			go fn(payload)
		}
	})

	sock.On(types.EventName("auth_error"), func(args ...any) {
		var payload wire.AuthErrorPayload
		if !decodeFirst(args, &payload) {
			return
		}
		c.mu.RLock()
		fn := c.authErrorFn
		c.mu.RUnlock()
		if fn != nil {
			go fn(payload)
		}
	})

	c.mu.RLock()
	events := make([]string, 0, len(c.handlers))
	for event := range c.handlers {
		events = append(events, event)
	}
	c.mu.RUnlock()

	for _, event := range events {
		ev := event // Capture for closure
		sock.On(types.EventName(ev), func(args ...any) {
			if c.debug {
				logger.Tracef("Received event: %s", ev)
			}

			var data map[string]interface{}
			if len(args) > 0 {
				if m, ok := args[0].(map[string]interface{}); ok {
					data = m
				}
			}

			c.mu.RLock()
			handler, ok := c.handlers[ev]
			c.mu.RUnlock()

			if ok && handler != nil {
				go handler(data)
			}
		})
	}

	return nil
}

// Reconnect tears down the current socket and dials again with the current
// token.
func (c *Client) Reconnect() error {
	c.mu.Lock()
	sock := c.socket
	c.socket = nil
	c.connected = false
	c.mu.Unlock()

	if sock != nil {
		sock.Disconnect()
	}

	return c.Connect()
}

// WaitForConnect waits for the socket to report connected or times out.
func (c *Client) WaitForConnect(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.IsConnected() {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return c.IsConnected()
}

// Emit sends an event to the server.
func (c *Client) Emit(event string, data any) error {
	c.mu.RLock()
	sock := c.socket
	c.mu.RUnlock()

	if sock == nil {
		return fmt.Errorf("not connected")
	}

	if c.debug {
		logger.Tracef("Sending event: %s", event)
	}

	sock.Emit(event, data)
	return nil
}

// SendClassMessage relays a message to a class room.
func (c *Client) SendClassMessage(classID int64, content string) error {
	return c.Emit("class_message", wire.ClassMessagePayload{
		ClassID: classID,
		Content: content,
	})
}

// SendPresencePing sends a liveness ping.
func (c *Client) SendPresencePing() error {
	return c.Emit("presence_ping", wire.PresencePingPayload{
		Time: time.Now().UnixMilli(),
	})
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	sock := c.socket
	connected := c.connected
	c.mu.RUnlock()

	if connected {
		return true
	}

	if sock != nil && sock.Connected() {
		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()
		return true
	}

	return false
}

// Close closes the Socket.IO connection.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.socket != nil {
		c.socket.Disconnect()
		c.socket = nil
	}

	c.connected = false
	return nil
}

func decodeFirst(args []any, out any) bool {
	if len(args) == 0 {
		return false
	}
	raw, err := json.Marshal(args[0])
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}
