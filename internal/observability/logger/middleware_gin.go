package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/gymdesk/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// ActorHeader carries the operator id on mutating requests.
	ActorHeader = "X-Actor-ID"
	// RequestIDHeader is echoed back so a desk client can quote it.
	RequestIDHeader = "X-Request-Id"
)

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	// Logger defaults to the global logger installed by New.
	Logger *zap.Logger
	// ErrorClassifier labels the last handler error, e.g. "validation".
	ErrorClassifier func(err error) string
	// QuietRoutes are logged at debug level. Defaults to /health and /metrics.
	QuietRoutes []string
}

// GinMiddleware puts the request id and operator on the request context and
// writes one http_request line per request once the handler chain is done.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	quiet := map[string]bool{"/health": true, "/metrics": true}
	if len(cfg.QuietRoutes) > 0 {
		quiet = make(map[string]bool, len(cfg.QuietRoutes))
		for _, r := range cfg.QuietRoutes {
			quiet[r] = true
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		ctx = obscontext.WithActor(ctx, c.GetHeader(ActorHeader))
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("resource_id", id))
		}
		if lastErr := c.Errors.Last(); lastErr != nil && cfg.ErrorClassifier != nil {
			fields = append(fields, zap.String("error_type", cfg.ErrorClassifier(lastErr.Err)))
		}

		base := cfg.Logger
		if base == nil {
			base = zap.L()
		}
		level := zapcore.InfoLevel
		switch {
		case quiet[route]:
			level = zapcore.DebugLevel
		case status >= http.StatusInternalServerError:
			level = zapcore.ErrorLevel
		}
		WithContext(c.Request.Context(), base).Log(level, "http_request", fields...)
	}
}
