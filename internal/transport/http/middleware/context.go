package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/arklim/homescout-onboarding/internal/infra/logger"
)

const (
	// TraceIDHeader is the HTTP header name for trace ID
	TraceIDHeader = "X-Trace-ID"
	// InstallationIDHeader identifies the client installation driving onboarding
	InstallationIDHeader = "X-Installation-ID"
	// TraceIDKey is the context key for trace ID
	TraceIDKey = "trace_id"
	// InstallationIDKey is the context key for the installation ID
	InstallationIDKey = "installation_id"
)

// RequestContext holds request-scoped information
type RequestContext struct {
	TraceID        string
	UserID         string
	InstallationID string
	IP             string
	UserAgent      string
}

// EnrichContext adds trace ID, installation ID and request context to each request.
// Without an X-Trace-ID header the active span's trace ID is used.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
				traceID = sc.TraceID().String()
			} else {
				traceID = uuid.NewString()
			}
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		installationID := strings.TrimSpace(c.GetHeader(InstallationIDHeader))
		if installationID != "" {
			c.Set(InstallationIDKey, installationID)
			ctx := context.WithValue(c.Request.Context(), logger.InstallationIDKey{}, installationID)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Set("request_context", &RequestContext{
			TraceID:        traceID,
			InstallationID: installationID,
			IP:             c.ClientIP(),
			UserAgent:      c.Request.UserAgent(),
		})

		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}

// GetInstallationID returns the installation that issued the request.
func GetInstallationID(c *gin.Context) string {
	return c.GetString(InstallationIDKey)
}

// GetRequestContext retrieves the full request context
func GetRequestContext(c *gin.Context) *RequestContext {
	if ctx, exists := c.Get("request_context"); exists {
		if reqCtx, ok := ctx.(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{}
}
