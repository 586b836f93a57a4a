package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hubsync/issue-ticket-sync/internal/auth"
	"github.com/hubsync/issue-ticket-sync/internal/config"
	"github.com/hubsync/issue-ticket-sync/internal/handlers"
	"github.com/hubsync/issue-ticket-sync/internal/store"
)

// NewRouter wires public endpoints and the token-guarded webhook.
// Public: /health, /ready
// Guarded: /webhooks/github
func NewRouter(cfg config.Config, st *store.PostgresStore, engine handlers.EventSyncer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the correlation store is reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	hookGroup := r.Group("/")
	hookGroup.Use(auth.WebhookTokenMiddleware(cfg.WebhookToken))

	handlers.RegisterWebhookRoutes(hookGroup, engine)

	return r
}
