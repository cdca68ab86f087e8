package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/barre-app/barre/internal/logger"
	"github.com/barre-app/barre/internal/server/api/middleware"
	"github.com/barre-app/barre/internal/server/database"
	wshandlers "github.com/barre-app/barre/internal/server/websocket/handlers"
	"github.com/barre-app/barre/internal/wire"
	"github.com/gin-gonic/gin"
)

// Broadcaster fans events out to realtime rooms.
type Broadcaster interface {
	BroadcastToAcademy(academyID int64, event string, payload any)
	BroadcastToClass(classID int64, event string, payload any)
}

// AnnouncementHandler posts announcements into academy and class rooms.
type AnnouncementHandler struct {
	queries     *database.Queries
	broadcaster Broadcaster
}

// NewAnnouncementHandler creates an announcement handler.
func NewAnnouncementHandler(queries *database.Queries, broadcaster Broadcaster) *AnnouncementHandler {
	return &AnnouncementHandler{
		queries:     queries,
		broadcaster: broadcaster,
	}
}

// PostClassAnnouncement handles POST /v1/classes/:id/announcements.
// Staff only, and the class must belong to the caller's academy.
func (h *AnnouncementHandler) PostClassAnnouncement(c *gin.Context) {
	userID, role, ok := h.requireStaff(c)
	if !ok {
		return
	}

	classID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid class id"})
		return
	}

	var req wire.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and content are required"})
		return
	}

	classAcademy, err := h.queries.GetClassAcademyID(c.Request.Context(), classID)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "class not found"})
		return
	}
	if err != nil {
		logger.Errorf("Class lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	staffAcademy, affiliated, err := h.queries.GetStaffAcademyID(c.Request.Context(), userID)
	if err != nil {
		logger.Errorf("Staff lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !affiliated || staffAcademy != classAcademy {
		c.JSON(http.StatusForbidden, gin.H{"error": "class is outside your academy"})
		return
	}

	payload := wire.AnnouncementPayload{
		Scope:    "class",
		ClassID:  classID,
		Title:    req.Title,
		Content:  req.Content,
		PostedBy: userID,
		PostedAt: nowMillis(),
	}
	h.broadcaster.BroadcastToClass(classID, "announcement", payload)

	logger.Infof("Class announcement posted (class %d, by %d, role %s)", classID, userID, role)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PostAcademyAnnouncement handles POST /v1/academies/:id/announcements.
// Staff only, and only for the caller's own academy.
func (h *AnnouncementHandler) PostAcademyAnnouncement(c *gin.Context) {
	userID, role, ok := h.requireStaff(c)
	if !ok {
		return
	}

	academyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid academy id"})
		return
	}

	var req wire.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and content are required"})
		return
	}

	staffAcademy, affiliated, err := h.queries.GetStaffAcademyID(c.Request.Context(), userID)
	if err != nil {
		logger.Errorf("Staff lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !affiliated || staffAcademy != academyID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your academy"})
		return
	}

	payload := wire.AnnouncementPayload{
		Scope:     "academy",
		AcademyID: academyID,
		Title:     req.Title,
		Content:   req.Content,
		PostedBy:  userID,
		PostedAt:  nowMillis(),
	}
	h.broadcaster.BroadcastToAcademy(academyID, "announcement", payload)

	logger.Infof("Academy announcement posted (academy %d, by %d, role %s)", academyID, userID, role)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AnnouncementHandler) requireStaff(c *gin.Context) (int64, string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return 0, "", false
	}
	role, ok := middleware.GetRole(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return 0, "", false
	}
	switch wshandlers.Role(role) {
	case wshandlers.RoleTeacher, wshandlers.RolePrincipal:
		return userID, role, true
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "staff role required"})
	return 0, "", false
}
