package websocket

import (
	"net/http"
	"time"

	"github.com/barre-app/barre/internal/logger"
	"github.com/barre-app/barre/internal/server/api/middleware"
	"github.com/barre-app/barre/internal/server/websocket/handlers"
	"github.com/barre-app/barre/internal/wire"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// statsInterval is how often the monitor pushes a connection-count snapshot.
const statsInterval = 5 * time.Second

// Monitor streams registry statistics over a plain WebSocket. It rides
// behind the HTTP auth middleware and is limited to principals.
type Monitor struct {
	registry *Registry
}

// NewMonitor creates a stats monitor over the given registry.
func NewMonitor(registry *Registry) *Monitor {
	return &Monitor{registry: registry}
}

// HandleStats upgrades the request and streams StatsPayload snapshots until
// the client goes away.
func (m *Monitor) HandleStats(c *gin.Context) {
	role, ok := middleware.GetRole(c)
	if !ok || handlers.Role(role) != handlers.RolePrincipal {
		c.JSON(http.StatusForbidden, gin.H{"error": "principal role required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("Stats WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		payload := wire.StatsPayload{
			Connections: m.registry.Count(),
			Time:        time.Now().UnixMilli(),
		}
		if err := conn.WriteJSON(payload); err != nil {
			logger.Debugf("Stats WebSocket closed: %v", err)
			return
		}
		<-ticker.C
	}
}
