package main

import (
	"ptt-dispatch/internal/httpapi"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, authMW gin.HandlerFunc, h httpapi.Handlers) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")

	// Token issuance (dev only; real credential validation is external).
	v1.POST("/auth/login", h.Login)

	// Everything else requires a bearer access token.
	protected := v1.Group("")
	protected.Use(authMW)
	{
		calls := protected.Group("/calls")
		{
			calls.POST("/initiate", h.InitiateCall)
			calls.POST("/update", h.UpdateCall)
			calls.GET("/active", h.ActiveCall)
			calls.GET("/history", h.CallHistory)
		}

		pres := protected.Group("/presence")
		{
			pres.GET("", h.GetPresence)
			pres.POST("/update", h.UpdatePresence)
			pres.POST("/heartbeat", h.Heartbeat)
			pres.GET("/talkgroup", h.TalkgroupPresence)
			pres.GET("/online", h.OnlinePresence)
		}

		sigs := protected.Group("/signals")
		{
			sigs.POST("", h.SendSignal)
			sigs.GET("", h.PollSignals)
		}
	}
}
