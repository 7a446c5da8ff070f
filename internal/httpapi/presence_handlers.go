package httpapi

import (
	"net/http"

	"ptt-dispatch/internal/presence"

	"github.com/gin-gonic/gin"
)

type updatePresenceRequest struct {
	Status string `json:"status"`
}

func (h Handlers) UpdatePresence(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req updatePresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Status == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "status required"})
		return
	}

	out, err := h.Presence.UpsertStatus(c.Request.Context(), uid, presence.Status(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presence": out})
}

func (h Handlers) Heartbeat(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	out, err := h.Presence.Heartbeat(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presence": out})
}

// GetPresence returns one user's presence; own presence when userId is omitted.
// Absence is a null presence, not a 404.
func (h Handlers) GetPresence(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	target := c.Query("userId")
	if target == "" {
		target = uid
	}

	out, found, err := h.Presence.Get(c.Request.Context(), target)
	if err != nil {
		respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"presence": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"presence": out})
}

func (h Handlers) TalkgroupPresence(c *gin.Context) {
	if _, ok := userID(c); !ok {
		return
	}
	talkgroupID := c.Query("talkgroupId")
	if talkgroupID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "talkgroupId required"})
		return
	}

	out, err := h.Presence.TalkgroupPresence(c.Request.Context(), talkgroupID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presences": out})
}

func (h Handlers) OnlinePresence(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	out, err := h.Presence.OnlinePresence(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presences": out})
}
