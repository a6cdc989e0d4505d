package logger

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

// Fields represents structured log fields
type Fields map[string]interface{}

// Context keys set by the request middleware
const (
	RequestIDKey = "request_id"
	SessionIDKey = "session_id"
)

// WithContext extracts request context for logging
func WithContext(c *gin.Context) Fields {
	fields := Fields{
		RequestIDKey: c.GetString(RequestIDKey),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
	}

	if sessionID := c.Param("id"); sessionID != "" {
		fields[SessionIDKey] = sessionID
	} else if sessionID, exists := c.Get(SessionIDKey); exists {
		fields[SessionIDKey] = sessionID
	}

	return fields
}

// Info logs an informational message with structured fields
func Info(msg string, fields Fields) {
	log.Printf("[INFO] %s %s", msg, formatFields(fields))
	breadcrumb("info", msg, fields, sentry.LevelInfo)
}

// Warn logs a warning message with structured fields
func Warn(msg string, fields Fields) {
	log.Printf("[WARN] %s %s", msg, formatFields(fields))
	breadcrumb("warning", msg, fields, sentry.LevelWarning)
}

// Debug logs a debug message with structured fields
func Debug(msg string, fields Fields) {
	log.Printf("[DEBUG] %s %s", msg, formatFields(fields))
	breadcrumb("debug", msg, fields, sentry.LevelDebug)
}

// Error logs an error message with structured fields and sends to Sentry
func Error(msg string, err error, fields Fields) {
	log.Printf("[ERROR] %s: %v %s", msg, err, formatFields(fields))

	hub := sentry.CurrentHub()
	if hub.Client() == nil || err == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		applyScope(scope, fields)
		hub.CaptureException(err)
	})
}

// LogToSentry sends a log message directly to Sentry as an event
func LogToSentry(level sentry.Level, msg string, fields Fields) {
	hub := sentry.CurrentHub()
	if hub.Client() == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		applyScope(scope, fields)
		hub.CaptureMessage(msg)
	})
}

// LogAPIRequest logs API request metrics
func LogAPIRequest(c *gin.Context, duration time.Duration, statusCode int, fields Fields) {
	if fields == nil {
		fields = Fields{}
	}
	for k, v := range WithContext(c) {
		fields[k] = v
	}
	fields["duration_ms"] = duration.Milliseconds()
	fields["status_code"] = statusCode
	fields["client_ip"] = c.ClientIP()

	Info("API request completed", fields)
}

// LogGenerationRequest logs one language model call
func LogGenerationRequest(ctx context.Context, model string, duration time.Duration, tokenUsage map[string]interface{}, fields Fields) {
	if fields == nil {
		fields = Fields{}
	}

	fields["model"] = model
	fields["duration_ms"] = duration.Milliseconds()
	for _, k := range []string{"total_tokens", "input_tokens", "output_tokens"} {
		fields[k] = tokenUsage[k]
	}

	Info("Generation request completed", fields)

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		span := sentry.StartSpan(ctx, "llm.generate")
		span.Description = model
		span.SetData("tokens", tokenUsage)
		span.Finish()
	}
}

func breadcrumb(kind, msg string, fields Fields, level sentry.Level) {
	if hub := sentry.CurrentHub(); hub.Client() != nil {
		sentry.AddBreadcrumb(&sentry.Breadcrumb{
			Type:     kind,
			Category: "log",
			Message:  msg,
			Data:     map[string]interface{}(fields),
			Level:    level,
		})
	}
}

// applyScope copies fields into a Sentry scope; request, session and model
// become tags for filtering.
func applyScope(scope *sentry.Scope, fields Fields) {
	for key, value := range fields {
		scope.SetContext(key, map[string]interface{}{
			"value": value,
		})
	}
	for _, tag := range []string{RequestIDKey, SessionIDKey, "model"} {
		if v, ok := fields[tag].(string); ok && v != "" {
			scope.SetTag(tag, v)
		}
	}
}

// formatFields renders fields as {k=v, ...} in key order
func formatFields(fields Fields) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + formatValue(fields[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%.2f", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
