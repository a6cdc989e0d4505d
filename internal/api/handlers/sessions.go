package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/Southclaws/fault/ftag"
	"github.com/gin-gonic/gin"

	"github.com/Little6thingys/lyric-mind/internal/api/middleware"
	"github.com/Little6thingys/lyric-mind/internal/editor"
	"github.com/Little6thingys/lyric-mind/internal/logger"
	"github.com/Little6thingys/lyric-mind/internal/playback"
	"github.com/Little6thingys/lyric-mind/internal/render"
	"github.com/Little6thingys/lyric-mind/internal/score"
	"github.com/Little6thingys/lyric-mind/internal/suggest"
)

const sessionKey = "editor_session"

// Pointer kinds accepted by the pointer route.
const (
	PointerClick       = "click"
	PointerDoubleClick = "dblclick"
)

type SessionHandler struct {
	sessions *editor.Store
	timeout  time.Duration
}

func NewSessionHandler(sessions *editor.Store, suggestTimeout time.Duration) *SessionHandler {
	if suggestTimeout <= 0 {
		suggestTimeout = defaultSuggestTimeout
	}
	return &SessionHandler{sessions: sessions, timeout: suggestTimeout}
}

// Load resolves :id to an open session or answers 404.
func (h *SessionHandler) Load() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := h.sessions.Get(c.Param("id"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.Set(sessionKey, s)
		c.Set(logger.SessionIDKey, s.ID)
		c.Next()
	}
}

func current(c *gin.Context) *editor.Session {
	return c.MustGet(sessionKey).(*editor.Session)
}

// bindOptional decodes a JSON body when there is one.
func bindOptional(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func blankOptions(c *gin.Context) (score.BlankOptions, error) {
	opts := score.DefaultBlankOptions()
	if err := bindOptional(c, &opts); err != nil {
		return opts, err
	}
	return opts, nil
}

// Create opens a session on a fresh blank score.
func (h *SessionHandler) Create(c *gin.Context) {
	opts, err := blankOptions(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	s := h.sessions.Create(opts)
	middleware.RememberSession(c, s.ID)
	logger.Info("Session created", logger.Fields{logger.SessionIDKey: s.ID, "measures": opts.MeasureCount})
	c.JSON(http.StatusCreated, s.State())
}

// Current returns the session remembered by the cookie.
func (h *SessionHandler) Current(c *gin.Context) {
	id, ok := middleware.LastSession(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no session"})
		return
	}
	s, ok := h.sessions.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session expired"})
		return
	}
	c.JSON(http.StatusOK, s.State())
}

func (h *SessionHandler) Get(c *gin.Context) {
	s := current(c)
	middleware.RememberSession(c, s.ID)
	c.JSON(http.StatusOK, s.State())
}

func (h *SessionHandler) Delete(c *gin.Context) {
	h.sessions.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) Regenerate(c *gin.Context) {
	opts, err := blankOptions(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	s := current(c)
	s.Regenerate(opts)
	c.JSON(http.StatusOK, s.State())
}

type PointerRequest struct {
	Kind     string  `json:"kind" binding:"required"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	TargetID string  `json:"target_id"`
	Duration string  `json:"duration"`
	Rest     bool    `json:"rest"`
	Dynamic  string  `json:"dynamic"`
}

// Pointer feeds a raw click into the debouncer. The resulting action runs
// once the gesture is decided, so the answer is 202.
func (h *SessionHandler) Pointer(c *gin.Context) {
	var req PointerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	s := current(c)
	if req.Duration != "" || req.Rest || req.Dynamic != "" {
		s.SetToolbar(editor.Toolbar{Duration: req.Duration, Rest: req.Rest, Dynamic: req.Dynamic})
	}

	p := editor.Pointer{X: req.X, Y: req.Y, TargetID: req.TargetID}
	switch req.Kind {
	case PointerClick:
		s.Click(p)
	case PointerDoubleClick:
		s.DoubleClick(p)
	default:
		badRequest(c, "kind must be click or dblclick")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": req.Kind})
}

func (h *SessionHandler) SetToolbar(c *gin.Context) {
	var t editor.Toolbar
	if err := c.ShouldBindJSON(&t); err != nil {
		badRequest(c, err.Error())
		return
	}
	s := current(c)
	s.SetToolbar(t)
	c.JSON(http.StatusOK, s.State())
}

type NoteRequest struct {
	Y        *float64 `json:"y"`
	MIDI     *int     `json:"midi"`
	Duration string   `json:"duration"`
	Rest     bool     `json:"rest"`
	Dynamic  string   `json:"dynamic"`
}

// InsertNote inserts at the cursor without debouncing. A pointer height
// maps to a pitch with the toolbar shape; a MIDI number uses the given
// shape.
func (h *SessionHandler) InsertNote(c *gin.Context) {
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	s := current(c)
	var (
		pitch    score.PitchName
		inserted bool
	)
	switch {
	case req.MIDI != nil:
		pitch = score.MIDIToPitch(*req.MIDI)
		inserted = s.InsertAtCursor(req.Duration, req.Rest, req.Dynamic, pitch)
	case req.Y != nil:
		pitch, inserted = s.InsertAt(*req.Y)
	default:
		badRequest(c, "y or midi is required")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"inserted": inserted,
		"pitch":    pitch.String(),
		"state":    s.State(),
	})
}

type ToggleRequest struct {
	Measure  int    `json:"measure"`
	TargetID string `json:"target_id"`
}

// Toggle flips a measure by number or by the id of a rendered element.
func (h *SessionHandler) Toggle(c *gin.Context) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	s := current(c)
	switch {
	case req.Measure > 0:
		s.ToggleMeasure(req.Measure)
	case req.TargetID != "":
		if _, ok := s.ToggleAt(req.TargetID); !ok {
			c.JSON(http.StatusOK, gin.H{"toggled": false, "state": s.State()})
			return
		}
	default:
		badRequest(c, "measure or target_id is required")
		return
	}
	c.JSON(http.StatusOK, gin.H{"toggled": true, "state": s.State()})
}

type ClearRequest struct {
	Measures []int `json:"measures"`
}

// ClearMeasures empties the listed measures, the selection when none are
// listed.
func (h *SessionHandler) ClearMeasures(c *gin.Context) {
	var req ClearRequest
	if err := bindOptional(c, &req); err != nil {
		badRequest(c, err.Error())
		return
	}

	s := current(c)
	var cleared int
	if len(req.Measures) > 0 {
		cleared = s.ClearMeasures(req.Measures)
	} else {
		cleared = s.ClearSelected()
	}
	c.JSON(http.StatusOK, gin.H{"cleared": cleared, "state": s.State()})
}

func (h *SessionHandler) ClearHighlights(c *gin.Context) {
	s := current(c)
	s.ClearHighlights()
	c.JSON(http.StatusOK, s.State())
}

// Import accepts a multipart "file" field or the raw document as the body.
func (h *SessionHandler) Import(c *gin.Context) {
	text, err := readUpload(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	s := current(c)
	if err := s.Import(text); err != nil {
		respondError(c, http.StatusUnprocessableEntity, err)
		return
	}
	c.JSON(http.StatusOK, s.State())
}

func readUpload(c *gin.Context) (string, error) {
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return "", err
		}
		defer f.Close()
		b, err := io.ReadAll(io.LimitReader(f, maxImportBytes))
		return string(b), err
	}

	b, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		return "", err
	}
	if len(b) == 0 {
		return "", errors.New("empty upload")
	}
	return string(b), nil
}

func (h *SessionHandler) Export(c *gin.Context) {
	name, body := current(c).Export(c.Query("name"))
	setAttachment(c, name, editor.DefaultExportName+".musicxml")
	c.Data(http.StatusOK, musicXMLContentType, body)
}

func (h *SessionHandler) MIDI(c *gin.Context) {
	data, err := current(c).MIDI()
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	setAttachment(c, midiFileName, midiFileName)
	c.Data(http.StatusOK, midiContentType, data)
}

// Playback returns the note events of the score and plays them on the
// server output when one is attached.
func (h *SessionHandler) Playback(c *gin.Context) {
	tracks, err := current(c).Playback()
	if err != nil {
		respondError(c, statusFor(err), err)
		return
	}
	if tracks == nil {
		tracks = []playback.Track{}
	}
	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

type ChatRequest struct {
	Prompt   string `json:"prompt"`
	Region   string `json:"region"`
	Category string `json:"category"`
	Example  string `json:"example"`
	Input    string `json:"input"`
}

func (r ChatRequest) text() string {
	if r.Prompt != "" {
		return r.Prompt
	}
	if r.Input == "" && r.Region == "" && r.Category == "" && r.Example == "" {
		return ""
	}
	return editor.ComposePrompt(r.Region, r.Category, r.Example, r.Input)
}

// Chat asks the suggester. A failed call still answers 200 with the error
// recorded in the chat log.
func (h *SessionHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	prompt := req.text()
	if prompt == "" {
		badRequest(c, "prompt is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	s := current(c)
	err := s.Ask(ctx, prompt)
	resp := gin.H{"ok": err == nil, "state": s.State()}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) SelectOption(c *gin.Context) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "index must be a number")
		return
	}
	s := current(c)
	if !s.SelectOption(i) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such option"})
		return
	}
	c.JSON(http.StatusOK, s.State())
}

func (h *SessionHandler) Compare(c *gin.Context) {
	c.JSON(http.StatusOK, current(c).Compare())
}

// statusFor maps domain error kinds to HTTP statuses.
func statusFor(err error) int {
	switch ftag.Get(err) {
	case playback.KindPlayback, render.KindRender, suggest.KindInvalidScore:
		return http.StatusUnprocessableEntity
	case editor.KindNetwork, suggest.KindUpstream:
		return http.StatusBadGateway
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// setAttachment names the download. The name is encoded as a header
// parameter so quotes and control characters cannot break out of it.
func setAttachment(c *gin.Context, name, fallback string) {
	v := mime.FormatMediaType("attachment", map[string]string{"filename": name})
	if v == "" {
		v = mime.FormatMediaType("attachment", map[string]string{"filename": fallback})
	}
	c.Header("Content-Disposition", v)
}
