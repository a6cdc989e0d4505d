package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Little6thingys/lyric-mind/internal/models"
	"github.com/Little6thingys/lyric-mind/internal/score"
	"github.com/Little6thingys/lyric-mind/internal/store"
)

// ScoreHandler serves the saved score library.
type ScoreHandler struct {
	library store.ScoreStore
}

func NewScoreHandler(library store.ScoreStore) *ScoreHandler {
	return &ScoreHandler{library: library}
}

type SaveRequest struct {
	Title string `json:"title"`
}

// Save stores the session's active document in the library.
func (h *ScoreHandler) Save(c *gin.Context) {
	var req SaveRequest
	if err := bindOptional(c, &req); err != nil {
		badRequest(c, err.Error())
		return
	}

	s := current(c)
	saved := &models.SavedScore{
		SessionID: s.ID,
		Title:     strings.TrimSpace(req.Title),
		XML:       s.XML(),
	}
	if doc, err := score.Parse(saved.XML); err == nil {
		saved.Measures = len(doc.Measures())
		if saved.Title == "" {
			saved.Title = doc.Title()
		}
	}
	if saved.Title == "" {
		saved.Title = score.DefaultTitle
	}

	if err := h.library.Save(c.Request.Context(), saved); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, saved.Summary())
}

func (h *ScoreHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultScorePageSize)))
	if err != nil {
		badRequest(c, "limit must be a number")
		return
	}
	scores, err := h.library.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if scores == nil {
		scores = []models.ScoreSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"scores": scores})
}

func (h *ScoreHandler) Get(c *gin.Context) {
	saved, err := h.library.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, libraryStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *ScoreHandler) Delete(c *gin.Context) {
	if err := h.library.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, libraryStatus(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Open loads a saved score into the session.
func (h *ScoreHandler) Open(c *gin.Context) {
	saved, err := h.library.Get(c.Request.Context(), c.Param("scoreID"))
	if err != nil {
		respondError(c, libraryStatus(err), err)
		return
	}
	s := current(c)
	if err := s.Import(saved.XML); err != nil {
		respondError(c, http.StatusUnprocessableEntity, err)
		return
	}
	c.JSON(http.StatusOK, s.State())
}

func libraryStatus(err error) int {
	if store.IsNotFound(err) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
