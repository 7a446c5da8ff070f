package httpapi

import (
	"errors"
	"net/http"

	"ptt-dispatch/internal/call"
	"ptt-dispatch/internal/presence"
	"ptt-dispatch/internal/signal"
	"ptt-dispatch/pkg/logger"

	"github.com/gin-gonic/gin"
)

// respondError maps domain sentinel errors onto the HTTP taxonomy:
// InvalidArgument 400, Forbidden 403, NotFound 404, Conflict 409, Internal 500.
// Unauthorized (401) is produced by the auth middleware before handlers run.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, call.ErrInvalidArgument),
		errors.Is(err, call.ErrSelfCall),
		errors.Is(err, presence.ErrInvalidArgument),
		errors.Is(err, presence.ErrInvalidStatus),
		errors.Is(err, signal.ErrInvalidArgument),
		errors.Is(err, signal.ErrInvalidPayload):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, call.ErrForbidden),
		errors.Is(err, call.ErrWrongActor),
		errors.Is(err, signal.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, call.ErrNotFound),
		errors.Is(err, call.ErrCalleeNotFound),
		errors.Is(err, signal.ErrCallNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, call.ErrCalleeBusy),
		errors.Is(err, call.ErrInvalidTransition):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})

	default:
		logger.FromGin(c).Error("internal error", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
