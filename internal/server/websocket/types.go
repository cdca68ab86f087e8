package websocket

import (
	"time"

	"github.com/barre-app/barre/internal/server/websocket/handlers"
	socket "github.com/zishang520/socket.io/servers/socket/v3"
)

// sessionSocket is the slice of the transport socket the connection
// lifecycle drives: handshake auth data, room joins, emits and teardown.
// The production implementation wraps the Socket.IO socket.
type sessionSocket interface {
	ID() string
	AuthData() map[string]any
	Join(room string)
	Emit(event string, payload any)
	OnEvent(event string, fn func(args ...any))
	Close()
}

// ioSocket adapts a Socket.IO socket to sessionSocket.
type ioSocket struct {
	s *socket.Socket
}

func (w *ioSocket) ID() string { return string(w.s.Id()) }

func (w *ioSocket) AuthData() map[string]any { return w.s.Handshake().Auth }

func (w *ioSocket) Join(room string) { w.s.Join(socket.Room(room)) }

func (w *ioSocket) Emit(event string, payload any) { w.s.Emit(event, payload) }

func (w *ioSocket) OnEvent(event string, fn func(args ...any)) { w.s.On(event, fn) }

func (w *ioSocket) Close() { w.s.Disconnect(true) }

// ConnectionRecord is the in-memory representation of one live, authenticated
// socket connection. The Socket handle is owned by the registry entry and is
// not shared.
type ConnectionRecord struct {
	Socket    sessionSocket
	UserID    int64
	Role      handlers.Role
	AcademyID *int64
	ClassIDs  []int64
	// TokenExpiresAt is the expiry of the token presented at handshake time.
	// Operations after this instant are rejected with auth_error.
	TokenExpiresAt time.Time
}

// auth_error codes
const (
	codeTokenExpired = "AUTH_TOKEN_EXPIRED"
	codeInvalidToken = "AUTH_INVALID_TOKEN"
)
