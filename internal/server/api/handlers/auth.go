package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/barre-app/barre/internal/logger"
	"github.com/barre-app/barre/internal/server/crypto"
	"github.com/barre-app/barre/internal/server/database"
	"github.com/barre-app/barre/internal/wire"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler serves the token issuer/refresher endpoints.
type AuthHandler struct {
	queries    *database.Queries
	jwtManager *crypto.JWTManager
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(queries *database.Queries, jwtManager *crypto.JWTManager) *AuthHandler {
	return &AuthHandler{
		queries:    queries,
		jwtManager: jwtManager,
	}
}

// PostLogin handles POST /v1/auth/login.
func (h *AuthHandler) PostLogin(c *gin.Context) {
	var req wire.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := h.queries.GetUserByEmail(c.Request.Context(), req.Email)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err != nil {
		logger.Errorf("Login lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.respondWithToken(c, user)
}

// PostRefresh handles POST /v1/auth/refresh.
//
// The new token is re-derived from server-side user state; the expired token
// is not part of the request. A subject that no longer resolves to a user is
// a terminal failure for the caller.
func (h *AuthHandler) PostRefresh(c *gin.Context) {
	var req wire.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	userID, err := strconv.ParseInt(req.UserID, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid userId"})
		return
	}

	user, err := h.queries.GetUserByID(c.Request.Context(), userID)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		logger.Errorf("Refresh lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	logger.Debugf("Refreshing access token for user %d", user.ID)
	h.respondWithToken(c, user)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, user database.User) {
	token, err := h.jwtManager.CreateToken(user.ID, user.Role)
	if err != nil {
		logger.Errorf("Token creation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, wire.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(h.jwtManager.TokenTTL().Seconds()),
		TokenType:   "Bearer",
		User: wire.User{
			ID:     user.ID,
			UserID: user.UserID,
			Name:   user.Name,
			Role:   user.Role,
		},
	})
}
