package handlers

import (
	"net/http"

	"github.com/Southclaws/fault/fmsg"
	"github.com/gin-gonic/gin"

	"github.com/Little6thingys/lyric-mind/internal/logger"
)

// respondError writes {"error": msg}; fault descriptions win over raw
// error text.
func respondError(c *gin.Context, status int, err error) {
	msg := fmsg.GetIssue(err)
	if msg == "" {
		msg = err.Error()
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", err, logger.WithContext(c))
	}
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
