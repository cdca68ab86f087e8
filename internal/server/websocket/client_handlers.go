package websocket

import (
	"context"

	"github.com/barre-app/barre/internal/logger"
	"github.com/barre-app/barre/internal/server/websocket/handlers"
	"github.com/barre-app/barre/internal/wire"
)

func (s *SocketIOServer) registerClientHandlers(client sessionSocket, grant handlers.Grant, socketID string) {
	// Class message - relayed to the class room after an authorization and
	// token-freshness check.
	client.OnEvent("class_message", func(data ...any) {
		record, ok := s.requireFreshAuth(client, socketID)
		if !ok {
			return
		}

		if len(data) == 0 {
			return
		}
		var payload wire.ClassMessagePayload
		if err := decodeAny(data[0], &payload); err != nil {
			logger.Warnf("class_message decode error (socket %s): %v", socketID, err)
			return
		}
		if payload.ClassID == 0 || payload.Content == "" {
			return
		}

		allowed, err := handlers.CanPostToClass(context.Background(), s.deps, grant, payload.ClassID)
		if err != nil {
			logger.Errorf("class_message authorization failed (socket %s): %v", socketID, err)
			return
		}
		if !allowed {
			logger.Warnf("class_message denied (socket %s, user %d, class %d)", socketID, record.UserID, payload.ClassID)
			return
		}

		payload.SenderID = record.UserID
		payload.SentAt = s.deps.Now().UnixMilli()
		s.BroadcastToClass(payload.ClassID, "class_message", payload)
	})

	// Presence ping - liveness marker from the client, also exercises the
	// post-handshake expiry check.
	client.OnEvent("presence_ping", func(data ...any) {
		record, ok := s.requireFreshAuth(client, socketID)
		if !ok {
			return
		}
		logger.Tracef("presence_ping (socket %s, user %d)", socketID, record.UserID)
	})

	client.OnEvent("disconnect", func(data ...any) {
		reason := ""
		if len(data) > 0 {
			if r, ok := data[0].(string); ok {
				reason = r
			}
		}
		record, _ := s.registry.Get(socketID)
		if record != nil {
			logger.Infof("User disconnected: %d (socket %s, reason: %s)", record.UserID, socketID, reason)
		} else {
			logger.Debugf("Unregistered socket disconnected: %s (reason: %s)", socketID, reason)
		}
		// Room membership cleanup is the transport's job; the registry entry
		// is ours.
		s.registry.Remove(socketID)
	})
}
