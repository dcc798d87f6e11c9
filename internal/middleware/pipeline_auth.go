package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// pipelineKeyHeader carries the shared secret the external scheduler sends
// when triggering an ingestion cycle.
const pipelineKeyHeader = "X-API-Key"

// PipelineAuthMiddleware guards the scheduler-triggered ingestion route.
// With no key configured the route is disabled outright rather than open.
func PipelineAuthMiddleware(configuredKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if configuredKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": gin.H{"code": "PIPELINE_NOT_CONFIGURED", "message": "Pipeline endpoints are not configured"}})
			return
		}

		presented := c.GetHeader(pipelineKeyHeader)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(configuredKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": gin.H{"code": "INVALID_API_KEY", "message": "Invalid or missing API key"}})
			return
		}

		c.Next()
	}
}
