package middleware

import (
	"github.com/gin-gonic/gin"
)

// ActorHeader carries the caller identity used for audit attribution.
const ActorHeader = "X-Actor-ID"

// Actor copies the caller identity header into the request context so
// handlers can attribute mutations in the audit trail.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actorID := c.GetHeader(ActorHeader); actorID != "" {
			c.Set("actorID", actorID)
		}
		c.Next()
	}
}
