package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"ptt-dispatch/internal/signal"

	"github.com/gin-gonic/gin"
)

type sendSignalRequest struct {
	CallID     string          `json:"callId"`
	ToUserID   string          `json:"toUserId"`
	SignalType string          `json:"signalType"`
	SignalData json.RawMessage `json:"signalData"`
}

func (h Handlers) SendSignal(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req sendSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.CallID == "" || req.ToUserID == "" || req.SignalType == "" || len(req.SignalData) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "callId, toUserId, signalType, signalData required"})
		return
	}

	out, err := h.Signals.Send(c.Request.Context(), uid, signal.SendRequest{
		CallID:   req.CallID,
		ToUserID: req.ToUserID,
		Type:     signal.Type(req.SignalType),
		Data:     req.SignalData,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"signal": out})
}

// PollSignals drains the caller's mailbox for one call. The since cursor is
// exclusive; replaying the same cursor redelivers, by contract.
func (h Handlers) PollSignals(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	callID := c.Query("callId")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "callId required"})
		return
	}

	var since *time.Time
	if v := c.Query("since"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC3339 timestamp"})
			return
		}
		since = &t
	}

	out, err := h.Signals.Poll(c.Request.Context(), uid, callID, since)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": out})
}
