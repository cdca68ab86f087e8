// Package wire defines the JSON payloads shared between the Barre server and
// its clients, for both the HTTP API and the Socket.IO channel.
package wire

// SocketAuthPayload is the handshake auth object a client supplies when
// opening the Socket.IO connection.
type SocketAuthPayload struct {
	// Token is the bearer access token. Required; there are no anonymous
	// connections.
	Token string `json:"token"`
}

// ConnectionConfirmedPayload is emitted to a client once its handshake has
// been authenticated and its rooms joined.
type ConnectionConfirmedPayload struct {
	UserID  int64  `json:"userId"`
	Role    string `json:"role"`
	Message string `json:"message"`
}

// Auth error types carried in AuthErrorPayload.Type.
const (
	AuthErrorTokenExpired = "TOKEN_EXPIRED"
	AuthErrorInvalidToken = "INVALID_TOKEN"
)

// AuthErrorPayload is emitted when the server rejects an operation on an
// established connection for authentication reasons. Handshake-time failures
// never emit this; they close the transport instead.
type AuthErrorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// LoginRequest is the HTTP POST /v1/auth/login request body.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest is the HTTP POST /v1/auth/refresh request body.
//
// The refresh endpoint re-derives a new token from server-side user state,
// so the expired token itself is not a parameter.
type RefreshRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// TokenResponse is the body returned by the login and refresh endpoints.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// User is the session user object returned by the auth endpoints.
type User struct {
	// ID is the numeric primary key.
	ID int64 `json:"id"`
	// UserID is the human login identifier.
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}
