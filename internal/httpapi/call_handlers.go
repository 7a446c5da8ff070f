package httpapi

import (
	"net/http"
	"strconv"

	"ptt-dispatch/internal/call"

	"github.com/gin-gonic/gin"
)

type initiateCallRequest struct {
	CalleeID  string  `json:"calleeId"`
	ChannelID *string `json:"channelId,omitempty"`
}

func (h Handlers) InitiateCall(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req initiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.CalleeID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "calleeId required"})
		return
	}

	out, err := h.Calls.Initiate(c.Request.Context(), uid, req.CalleeID, req.ChannelID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call": out})
}

type updateCallRequest struct {
	CallID    string `json:"callId"`
	Action    string `json:"action"`
	EndReason string `json:"endReason,omitempty"`
}

func (h Handlers) UpdateCall(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req updateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.CallID == "" || req.Action == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "callId and action required"})
		return
	}

	out, err := h.Calls.Update(c.Request.Context(), uid, req.CallID, call.Action(req.Action), req.EndReason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call": out})
}

func (h Handlers) ActiveCall(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	out, found, err := h.Calls.Active(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"call": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"call": out})
}

func (h Handlers) CallHistory(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	out, err := h.Calls.History(c.Request.Context(), uid, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": out})
}
