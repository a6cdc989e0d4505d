package handlers

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCounter reports how many editor sessions are open.
type SessionCounter interface {
	Len() int
}

type MetricsHandler struct {
	startTime time.Time
	version   string
	sessions  SessionCounter
	suggester string
}

func NewMetricsHandler(version string, sessions SessionCounter, suggester string) *MetricsHandler {
	return &MetricsHandler{
		startTime: time.Now(),
		version:   version,
		sessions:  sessions,
		suggester: suggester,
	}
}

const (
	secondsPerMinute = 60
	secondsPerHour   = 3600
	bytesToMB        = 1024 * 1024
)

// formatUptime formats the uptime duration with seconds rounded to 2 decimal places
func formatUptime(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % secondsPerMinute
	seconds := d.Seconds() - float64(hours*secondsPerHour) - float64(minutes*secondsPerMinute)

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh%dm%.2fs", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm%.2fs", minutes, seconds)
	default:
		return fmt.Sprintf("%.2fs", seconds)
	}
}

type MetricsResponse struct {
	Status    string        `json:"status"`
	Uptime    string        `json:"uptime"`
	Timestamp string        `json:"timestamp"`
	Version   string        `json:"version"`
	StartTime string        `json:"start_time"`
	System    SystemMetrics `json:"system"`
	Editor    EditorMetrics `json:"editor"`
}

type SystemMetrics struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAllocMB   uint64 `json:"mem_alloc_mb"`
	MemTotalMB   uint64 `json:"mem_total_mb"`
	NumGC        uint32 `json:"num_gc"`
}

type EditorMetrics struct {
	OpenSessions int    `json:"open_sessions"`
	Suggester    string `json:"suggester"`
}

func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	open := 0
	if h.sessions != nil {
		open = h.sessions.Len()
	}

	c.JSON(http.StatusOK, MetricsResponse{
		Status:    "healthy",
		Uptime:    formatUptime(time.Since(h.startTime)),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		StartTime: h.startTime.UTC().Format(time.RFC3339),
		System: SystemMetrics{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAllocMB:   m.Alloc / bytesToMB,
			MemTotalMB:   m.TotalAlloc / bytesToMB,
			NumGC:        m.NumGC,
		},
		Editor: EditorMetrics{
			OpenSessions: open,
			Suggester:    h.suggester,
		},
	})
}
