package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func pipelineRouter(apiKey string) *gin.Engine {
	router := gin.New()
	router.POST("/ingest/run", PipelineAuthMiddleware(apiKey), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func pipelineRequest(router *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/ingest/run", nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPipelineAuthMiddleware(t *testing.T) {
	t.Run("matching_key_passes", func(t *testing.T) {
		rec := pipelineRequest(pipelineRouter("pipeline-secret"), "pipeline-secret")
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("wrong_key_rejected", func(t *testing.T) {
		rec := pipelineRequest(pipelineRouter("pipeline-secret"), "guess")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("missing_key_rejected", func(t *testing.T) {
		rec := pipelineRequest(pipelineRouter("pipeline-secret"), "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("unconfigured_key_disables_endpoint", func(t *testing.T) {
		rec := pipelineRequest(pipelineRouter(""), "anything")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
	})
}
