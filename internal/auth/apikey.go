package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// WebhookTokenMiddleware guards the webhook endpoint with a shared token
// carried in X-Webhook-Token. Signature (HMAC) verification of the delivery
// body is the ingestion platform's concern, not this service's; the token is
// a deployment-level guard against stray POSTs.
func WebhookTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := strings.TrimSpace(c.GetHeader("X-Webhook-Token"))
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
