package websocket

import (
	"context"
	"errors"

	"github.com/barre-app/barre/internal/logger"
	"github.com/barre-app/barre/internal/server/websocket/handlers"
	"github.com/barre-app/barre/internal/wire"
)

func (s *SocketIOServer) handleConnection(client sessionSocket) {
	socketID := client.ID()

	logger.Infof("Socket.IO connection attempt (socket ID: %s)", socketID)

	// Handshake failures close the transport without emitting anything:
	// no authenticated channel exists yet, so the client treats the
	// immediate disconnect as an auth failure.
	authMap := client.AuthData()
	if len(authMap) == 0 {
		logger.Warnf("Socket.IO missing auth data (socket %s)", socketID)
		client.Close()
		return
	}

	var authPayload wire.SocketAuthPayload
	if err := decodeAny(authMap, &authPayload); err != nil {
		logger.Warnf("Socket.IO invalid auth data (socket %s): %v", socketID, err)
		client.Close()
		return
	}

	if err := handlers.ValidateSocketAuthPayload(authPayload); err != nil {
		logger.Warnf("Socket.IO handshake auth rejected (socket %s): %v", socketID, err)
		client.Close()
		return
	}

	// Any verification failure at handshake time is terminal, including
	// expiry; the client reconnects with a fresh token.
	claims, err := s.jwtManager.VerifyToken(authPayload.Token)
	if err != nil {
		logger.Warnf("Socket.IO token rejected (socket %s): %v", socketID, err)
		client.Close()
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		logger.Warnf("Socket.IO bad token subject (socket %s): %v", socketID, err)
		client.Close()
		return
	}

	if claims.ExpiresAt == nil {
		logger.Warnf("Socket.IO token missing expiry (socket %s)", socketID)
		client.Close()
		return
	}

	user, grant, err := handlers.ResolveGrant(context.Background(), s.deps, userID)
	if err != nil {
		if errors.Is(err, handlers.ErrUnknownUser) {
			logger.Warnf("Socket.IO token subject has no user record (socket %s, user %d)", socketID, userID)
		} else {
			logger.Errorf("Socket.IO grant resolution failed (socket %s, user %d): %v", socketID, userID, err)
		}
		client.Close()
		return
	}

	record := &ConnectionRecord{
		Socket:         client,
		UserID:         user.ID,
		Role:           grant.Role(),
		ClassIDs:       grant.ClassIDs(),
		TokenExpiresAt: claims.ExpiresAt.Time,
	}
	if academyID, ok := grant.AcademyID(); ok {
		record.AcademyID = &academyID
	}
	s.registry.Record(socketID, record)

	rooms := handlers.Rooms(user.ID, grant)
	for _, room := range rooms {
		client.Join(room)
	}

	logger.Infof("Socket.IO client ready (user: %d, role: %s, rooms: %d)", user.ID, grant.Role(), len(rooms))

	client.Emit("connection_confirmed", wire.ConnectionConfirmedPayload{
		UserID:  user.ID,
		Role:    string(grant.Role()),
		Message: "connected",
	})

	s.registerClientHandlers(client, grant, socketID)
}

// requireFreshAuth checks that the connection is still registered and its
// handshake token has not expired. A registry miss means the socket is
// mid-disconnect (these handlers are only installed after authentication),
// so the event is silently dropped; an expired token emits auth_error.
func (s *SocketIOServer) requireFreshAuth(client sessionSocket, socketID string) (*ConnectionRecord, bool) {
	record, ok := s.registry.Get(socketID)
	if !ok {
		logger.Debugf("Dropping event from unregistered socket %s", socketID)
		return nil, false
	}

	if s.deps.Now().After(record.TokenExpiresAt) {
		logger.Debugf("Rejecting event on expired token (socket %s, user %d)", socketID, record.UserID)
		client.Emit("auth_error", wire.AuthErrorPayload{
			Type:    wire.AuthErrorTokenExpired,
			Message: "Access token has expired",
			Code:    codeTokenExpired,
		})
		return nil, false
	}

	return record, true
}
