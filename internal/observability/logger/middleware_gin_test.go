package logger

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/gymdesk/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newLoggedEngine(level zapcore.Level) (*gin.Engine, *observer.ObservedLogs) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(level)
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{
		Logger: zap.New(core),
		ErrorClassifier: func(error) string {
			return "conflict"
		},
	}))
	return r, logs
}

func TestGinMiddlewareCarriesRequestIDAndActor(t *testing.T) {
	r, logs := newLoggedEngine(zapcore.InfoLevel)
	var seenActor string
	r.POST("/members/:id/check-ins", func(c *gin.Context) {
		seenActor = obscontext.ActorFromContext(c.Request.Context())
		_ = c.Error(errors.New("membership_expired"))
		c.Status(http.StatusConflict)
	})

	req := httptest.NewRequest(http.MethodPost, "/members/9/check-ins", nil)
	req.Header.Set(ActorHeader, "front-desk")
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "front-desk", seenActor)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "abc-123", fields["request_id"])
	assert.Equal(t, "front-desk", fields["actor"])
	assert.Equal(t, "9", fields["resource_id"])
	assert.Equal(t, "conflict", fields["error_type"])
	assert.Equal(t, "/members/:id/check-ins", fields["route"])
}

func TestGinMiddlewareGeneratesRequestID(t *testing.T) {
	r, _ := newLoggedEngine(zapcore.InfoLevel)
	r.GET("/members", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/members", nil))

	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestGinMiddlewareLevels(t *testing.T) {
	r, logs := newLoggedEngine(zapcore.DebugLevel)
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}
