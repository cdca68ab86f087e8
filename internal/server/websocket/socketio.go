package websocket

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/barre-app/barre/internal/logger"
	"github.com/barre-app/barre/internal/server/crypto"
	"github.com/barre-app/barre/internal/server/database"
	"github.com/barre-app/barre/internal/server/websocket/handlers"
	"github.com/gin-gonic/gin"
	socket "github.com/zishang520/socket.io/servers/socket/v3"
	sockettypes "github.com/zishang520/socket.io/v3/pkg/types"
)

// SocketPath is the HTTP path the Socket.IO endpoint is mounted at.
const SocketPath = "/v1/realtime"

// SocketIOServer is the authenticated realtime gateway. It validates a JWT
// at handshake time, joins each connection to its role/user/academy/class
// rooms and tracks connections in the registry.
type SocketIOServer struct {
	db         *sql.DB
	jwtManager *crypto.JWTManager
	server     *socket.Server
	registry   *Registry
	deps       handlers.Deps
}

// NewSocketIOServer creates a new Socket.IO server.
func NewSocketIOServer(db *sql.DB, jwtManager *crypto.JWTManager) *SocketIOServer {
	opts := socket.DefaultServerOptions()

	opts.SetCors(&sockettypes.Cors{
		Origin:      "*",
		Credentials: false,
	})

	// PingInterval defines how frequently the server pings clients to detect
	// stale/disconnected sockets. This influences how quickly the registry
	// drops connections after an abrupt client exit.
	const PingInterval = 5 * time.Second

	// PingTimeout defines how long the server waits before considering a
	// socket dead (no pong received).
	const PingTimeout = 15 * time.Second

	opts.SetPingTimeout(PingTimeout)
	opts.SetPingInterval(PingInterval)
	opts.SetPath(SocketPath)

	server := socket.NewServer(nil, opts)

	queries := database.New(db)
	s := &SocketIOServer{
		db:         db,
		jwtManager: jwtManager,
		server:     server,
		registry:   NewRegistry(),
		deps:       handlers.NewDeps(queries, queries, time.Now),
	}

	s.server.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		s.handleConnection(&ioSocket{s: client})
	})

	return s
}

func decodeAny(input any, out any) error {
	raw, err := json.Marshal(input)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Registry exposes the connection registry for introspection endpoints.
func (s *SocketIOServer) Registry() *Registry {
	return s.registry
}

// ConnectionCount returns the number of live authenticated connections.
func (s *SocketIOServer) ConnectionCount() int {
	return s.registry.Count()
}

// BroadcastToAcademy emits an event to every connection in an academy room.
func (s *SocketIOServer) BroadcastToAcademy(academyID int64, event string, payload any) {
	s.broadcast(handlers.AcademyRoom(academyID), event, payload)
}

// BroadcastToClass emits an event to every connection in a class room.
func (s *SocketIOServer) BroadcastToClass(classID int64, event string, payload any) {
	s.broadcast(handlers.ClassRoom(classID), event, payload)
}

// BroadcastToUser emits an event to every connection of a user.
func (s *SocketIOServer) BroadcastToUser(userID int64, event string, payload any) {
	s.broadcast(handlers.UserRoom(userID), event, payload)
}

// BroadcastToRole emits an event to every connection with a role.
func (s *SocketIOServer) BroadcastToRole(role handlers.Role, event string, payload any) {
	s.broadcast(handlers.RoleRoom(role), event, payload)
}

func (s *SocketIOServer) broadcast(room, event string, payload any) {
	logger.Tracef("Broadcast %s -> %s", event, room)
	s.server.To(socket.Room(room)).Emit(event, payload)
}

// HandleSocketIO creates a Gin handler for the Socket.IO endpoint.
func (s *SocketIOServer) HandleSocketIO() gin.HandlerFunc {
	httpHandler := s.server.ServeHandler(nil)

	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "false")

		if c.Request.Method == "OPTIONS" {
			c.Status(http.StatusOK)
			return
		}

		logger.Tracef("Socket.IO request: %s %s", c.Request.Method, c.Request.URL.Path)

		httpHandler.ServeHTTP(c.Writer, c.Request)
	}
}

// Close shuts down the Socket.IO server.
func (s *SocketIOServer) Close() error {
	s.server.Close(nil)
	return nil
}
