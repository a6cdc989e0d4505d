package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Little6thingys/lyric-mind/internal/database"
)

type HealthHandler struct {
	db        *gorm.DB
	suggester string
}

// NewHealthHandler reports on db when it is non-nil.
func NewHealthHandler(db *gorm.DB, suggester string) *HealthHandler {
	return &HealthHandler{db: db, suggester: suggester}
}

// HealthCheck returns the health status of the API
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	dbStatus := "memory"
	if h.db != nil {
		dbStatus = "connected"
		if err := database.Ping(h.db); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
			dbStatus = "unreachable"
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"database":  dbStatus,
		"suggester": h.suggester,
	})
}
