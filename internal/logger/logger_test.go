package logger

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev, flags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prev)
		log.SetFlags(flags)
	})
	return &buf
}

func TestFormatFieldsIsSorted(t *testing.T) {
	got := formatFields(Fields{"b": 2, "a": "x", "c": 1.5})
	assert.Equal(t, "{a=x, b=2, c=1.50}", got)
	assert.Empty(t, formatFields(nil))
}

func TestLevels(t *testing.T) {
	buf := captureLog(t)

	Info("hello", Fields{"session_id": "s1"})
	Warn("careful", nil)
	Debug("details", Fields{"n": 3})
	Error("failed", errors.New("boom"), Fields{"request_id": "r1"})

	out := buf.String()
	assert.Contains(t, out, "[INFO] hello {session_id=s1}")
	assert.Contains(t, out, "[WARN] careful")
	assert.Contains(t, out, "[DEBUG] details {n=3}")
	assert.Contains(t, out, "[ERROR] failed: boom {request_id=r1}")
}

func TestWithContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/sessions/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	c.Set(RequestIDKey, "req-1")

	fields := WithContext(c)
	assert.Equal(t, "req-1", fields[RequestIDKey])
	assert.Equal(t, "abc", fields[SessionIDKey])
	assert.Equal(t, http.MethodGet, fields["method"])
	assert.Equal(t, "/api/sessions/abc", fields["path"])
}

func TestLogGenerationRequest(t *testing.T) {
	buf := captureLog(t)

	LogGenerationRequest(context.Background(), "llama3", 1500*time.Millisecond, map[string]interface{}{
		"total_tokens": int64(15), "input_tokens": int64(10), "output_tokens": int64(5),
	}, nil)

	assert.Contains(t, buf.String(), "duration_ms=1500")
	assert.Contains(t, buf.String(), "model=llama3")
	assert.Contains(t, buf.String(), "total_tokens=15")
}
