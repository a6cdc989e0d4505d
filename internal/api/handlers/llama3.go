package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Little6thingys/lyric-mind/internal/suggest"
)

// SuggestHandler serves POST /api/llama3.
type SuggestHandler struct {
	suggester suggest.Suggester
	timeout   time.Duration
}

func NewSuggestHandler(suggester suggest.Suggester, timeout time.Duration) *SuggestHandler {
	if timeout <= 0 {
		timeout = defaultSuggestTimeout
	}
	return &SuggestHandler{suggester: suggester, timeout: timeout}
}

// Suggest answers {prompt, xml} with exactly two options.
func (h *SuggestHandler) Suggest(c *gin.Context) {
	var req suggest.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	log.Printf("🎼 Suggestion request via %s (%d bytes of score)", h.suggester.Name(), len(req.XML))

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp, err := h.suggester.Suggest(ctx, req)
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
