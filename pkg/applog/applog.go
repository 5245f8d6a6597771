// Package applog configures logrus and carries a correlation id per request
// or per scanned file through context.
package applog

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type contextKey string

// CorrelationIDKey stores the correlation id in a context.
const CorrelationIDKey contextKey = "correlation_id"

const correlationIDField = "correlation_id"

// Setup sets the global level and formatter. Unknown levels fall back to
// info; format "json" selects the JSON formatter.
func Setup(level, format string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	if strings.EqualFold(format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, PadLevelText: true})
}

// WithCorrelationID returns a child context carrying a fresh id.
func WithCorrelationID(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return context.WithValue(ctx, CorrelationIDKey, id), id
}

// CorrelationID returns the id stored in ctx, if any.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// ForContext returns an entry tagged with ctx's correlation id.
func ForContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(logrus.StandardLogger())
	if ctx == nil {
		return entry
	}
	if id := CorrelationID(ctx); id != "" {
		entry = entry.WithField(correlationIDField, id)
	}
	return entry
}

// Middleware tags each request with a correlation id (reusing an incoming
// X-Correlation-ID header) and logs its outcome.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := c.GetHeader("X-Correlation-ID")
		if id == "" {
			ctx, id = WithCorrelationID(ctx)
		} else {
			ctx = context.WithValue(ctx, CorrelationIDKey, id)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Correlation-ID", id)

		c.Next()

		ForContext(ctx).WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status_code": c.Writer.Status(),
		}).Info("request")
	}
}
