package editor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	"github.com/Little6thingys/lyric-mind/internal/logger"
	"github.com/Little6thingys/lyric-mind/internal/playback"
	"github.com/Little6thingys/lyric-mind/internal/render"
	"github.com/Little6thingys/lyric-mind/internal/score"
	"github.com/Little6thingys/lyric-mind/internal/suggest"
)

// KindNetwork tags failed calls to the suggestion endpoint.
const KindNetwork ftag.Kind = "network"

// Capacity modes decide when the insertion cursor leaves a measure.
const (
	CapacityFixed         = "fixed"
	CapacityTimeSignature = "time-signature"

	fixedCapacity = 4

	DefaultExportName = "edited-score"
	exportExtension   = ".musicxml"
)

type Options struct {
	Capacity    string
	ClickWindow time.Duration
	// IdleTTL is how long a session may go unused before the store drops
	// it. Zero keeps sessions until they are deleted.
	IdleTTL time.Duration
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Pipeline  *render.Pipeline
	Suggester suggest.Suggester
	Player    *playback.Player
}

// Toolbar is the note shape used by click insertion.
type Toolbar struct {
	Duration string `json:"duration"`
	Rest     bool   `json:"rest"`
	Dynamic  string `json:"dynamic"`
}

func defaultToolbar() Toolbar {
	return Toolbar{Duration: score.TypeQuarter}
}

// Session is one open document and everything the editor tracks about it.
// All methods are safe for concurrent use; click timers call back into it.
type Session struct {
	mu   sync.Mutex
	ID   string
	deps Deps
	opts Options

	xml      string
	doc      *score.Document
	cursor   int
	fill     map[int]float64
	selected map[int]bool

	toolbar   Toolbar
	rendering *render.Rendering
	debug     []string
	chat      []ChatMessage
	options   []string

	clicker   *Clicker
	createdAt time.Time
	updatedAt time.Time
	seenAt    time.Time
}

// NewSession opens a session on a blank score built from blank.
func NewSession(id string, deps Deps, opts Options, blank score.BlankOptions) *Session {
	if opts.Capacity == "" {
		opts.Capacity = CapacityFixed
	}
	s := &Session{
		ID:        id,
		deps:      deps,
		opts:      opts,
		toolbar:   defaultToolbar(),
		createdAt: time.Now(),
	}
	s.clicker = NewClicker(opts.ClickWindow, s.singleClick, s.doubleClick)
	s.Regenerate(blank)
	return s
}

func (s *Session) touch() {
	s.updatedAt = time.Now()
}

func (s *Session) markSeen(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seenAt = now
}

// lastActive is the latest of creation, last edit and last lookup.
func (s *Session) lastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.createdAt
	for _, u := range []time.Time{s.updatedAt, s.seenAt} {
		if u.After(t) {
			t = u
		}
	}
	return t
}

func (s *Session) addLog(msg string) {
	s.debug = append(s.debug, msg)
	logger.Debug(msg, logger.Fields{"session_id": s.ID})
}

// setDocument replaces the active document text. Text that does not parse
// is kept verbatim; edits become no-ops until a parseable document arrives.
func (s *Session) setDocument(text string) {
	s.xml = text
	doc, err := score.Parse(text)
	if err != nil {
		s.doc = nil
		s.addLog(fmt.Sprintf("Parse error: %v", err))
		return
	}
	s.doc = doc
}

// commit serializes the mutated document back into the active text.
func (s *Session) commit() {
	if s.doc == nil {
		return
	}
	b, err := s.doc.Marshal()
	if err != nil {
		s.addLog(fmt.Sprintf("Serialize error: %v", err))
		return
	}
	s.xml = string(b)
}

func (s *Session) isSelected(n int) bool {
	return s.selected[n]
}

// rerender draws the active document. Failures are logged and the last
// successful rendering stays on screen.
func (s *Session) rerender() {
	if s.deps.Pipeline == nil {
		return
	}
	if s.doc == nil {
		s.addLog("Render error: score is not valid MusicXML")
		return
	}
	r, err := s.deps.Pipeline.Render(s.doc, s.isSelected)
	if err != nil {
		s.addLog(fmt.Sprintf("Render error: %v", err))
		return
	}
	if r.Truncated() {
		s.addLog(fmt.Sprintf("Tagged %d of %d measures", r.Tagged, r.Measures))
	}
	s.rendering = r
}

func (s *Session) capacity() float64 {
	if s.opts.Capacity == CapacityTimeSignature && s.doc != nil {
		beats, beatType := s.doc.TimeSignature()
		return float64(beats) * 4 / float64(beatType)
	}
	return fixedCapacity
}

// rebuildFill recomputes the fill of every measure from its notes.
func (s *Session) rebuildFill() {
	s.fill = map[int]float64{}
	if s.doc == nil {
		return
	}
	div := s.doc.Divisions()
	for _, m := range s.doc.Measures() {
		s.fill[m.Index()] = m.FilledTicks(div)
	}
}

// Regenerate replaces the document with a blank score and resets the
// cursor, fill and selection.
func (s *Session) Regenerate(opts score.BlankOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := score.Blank(opts)
	s.doc = doc
	s.commit()
	s.cursor = 1
	s.fill = map[int]float64{}
	for _, m := range doc.Measures() {
		s.fill[m.Index()] = 0
	}
	s.selected = map[int]bool{}
	s.options = nil
	s.touch()
	s.rerender()
}

// InsertAtCursor appends a note or rest to the cursor's measure and
// advances the cursor once the measure reaches capacity. It reports whether
// a note was inserted.
func (s *Session) InsertAtCursor(durationType string, isRest bool, dynamic string, pitch score.PitchName) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(durationType, isRest, dynamic, pitch)
}

func (s *Session) insertLocked(durationType string, isRest bool, dynamic string, pitch score.PitchName) bool {
	if s.doc == nil {
		return false
	}
	m := s.doc.MeasureByNumber(s.cursor)
	if m == nil {
		return false
	}

	ticks := score.DurationTicks(durationType)
	typ := durationType
	if typ == "" {
		typ = score.TypeQuarter
	}
	note := &score.Note{
		Duration: ticks * s.doc.Divisions(),
		Type:     typ,
	}
	if isRest {
		note.Rest = &score.Empty{}
	} else {
		note.Pitch = pitch.Element()
	}
	if dynamic = strings.TrimSpace(dynamic); dynamic != "" {
		note.Notations = &score.Notations{Dynamics: score.NewMarks(dynamic)}
	}
	m.Notes = append(m.Notes, note)

	s.fill[s.cursor] += ticks
	if s.fill[s.cursor] >= s.capacity() && s.doc.MeasureByNumber(s.cursor+1) != nil {
		s.cursor++
	}
	s.commit()
	s.touch()
	s.rerender()
	return true
}

// InsertAt maps a pointer height to a pitch against the current rendering
// and inserts a note shaped by the toolbar.
func (s *Session) InsertAt(y float64) (score.PitchName, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var staves []render.Box
	if s.rendering != nil {
		staves = s.rendering.Staves
	}
	pitch := MapPitch(y, staves)
	return pitch, s.insertLocked(s.toolbar.Duration, s.toolbar.Rest, s.toolbar.Dynamic, pitch)
}

// ClearMeasures empties the given measures and resets their fill. Numbers
// not in the document are ignored. It returns how many measures were
// cleared.
func (s *Session) ClearMeasures(numbers []int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(numbers) == 0 {
		s.addLog("No measure is selected, skip clearing")
		return 0
	}
	if s.doc == nil {
		return 0
	}
	cleared := 0
	for _, n := range numbers {
		m := s.doc.MeasureByNumber(n)
		if m == nil {
			continue
		}
		m.ClearNotes()
		s.fill[n] = 0
		cleared++
	}
	if cleared == 0 {
		return 0
	}
	s.commit()
	s.touch()
	s.rerender()
	return cleared
}

// ClearSelected empties every selected measure.
func (s *Session) ClearSelected() int {
	return s.ClearMeasures(s.Selected())
}

// ToggleMeasure flips n in the selection set and moves the cursor to n. It
// returns whether n is now selected.
func (s *Session) ToggleMeasure(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggleLocked(n)
}

func (s *Session) toggleLocked(n int) bool {
	if s.selected[n] {
		delete(s.selected, n)
	} else {
		s.selected[n] = true
	}
	s.cursor = n
	s.touch()
	s.highlightLocked()
	return s.selected[n]
}

// ToggleAt resolves a rendered element id to its measure and toggles it.
// Clicks outside any measure are ignored.
func (s *Session) ToggleAt(targetID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rendering == nil || s.rendering.Root() == nil {
		return 0, false
	}
	target := s.rendering.Root().FindByID(targetID)
	if target == nil {
		return 0, false
	}
	n, ok := render.FindMeasure(target)
	if !ok {
		return 0, false
	}
	s.toggleLocked(n)
	return n, true
}

// ClearHighlights empties the selection and redraws overlays only.
func (s *Session) ClearHighlights() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = map[int]bool{}
	s.touch()
	s.highlightLocked()
}

func (s *Session) highlightLocked() {
	if s.deps.Pipeline == nil || s.rendering == nil {
		return
	}
	r, err := s.deps.Pipeline.Highlight(s.rendering, s.isSelected)
	if err != nil {
		s.addLog(fmt.Sprintf("Render error: %v", err))
		return
	}
	s.rendering = r
}

// Selected returns the selected measure numbers in ascending order.
func (s *Session) Selected() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedLocked()
}

func (s *Session) selectedLocked() []int {
	out := make([]int, 0, len(s.selected))
	for n := range s.selected {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Click and DoubleClick feed the debouncer.
func (s *Session) Click(p Pointer)       { s.clicker.Click(p) }
func (s *Session) DoubleClick(p Pointer) { s.clicker.DoubleClick(p) }

func (s *Session) singleClick(p Pointer) {
	s.InsertAt(p.Y)
}

func (s *Session) doubleClick(p Pointer) {
	s.ToggleAt(p.TargetID)
}

// SetToolbar changes the shape of future click insertions.
func (s *Session) SetToolbar(t Toolbar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Duration == "" {
		t.Duration = score.TypeQuarter
	}
	s.toolbar = t
}

// Import replaces the document with user-supplied text. A document that
// does not parse is rejected and the current one kept.
func (s *Session) Import(text string) error {
	doc, err := score.Parse(text)
	if err != nil {
		s.mu.Lock()
		s.addLog(fmt.Sprintf("Render error: %v", err))
		s.mu.Unlock()
		return fault.Wrap(err, ftag.With(render.KindRender), fmsg.WithDesc("import", "The file is not a MusicXML score"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.xml = text
	s.doc = doc
	s.cursor = 1
	s.rebuildFill()
	s.selected = map[int]bool{}
	s.touch()
	s.rerender()
	return nil
}

// Export returns a file name and the active document text.
func (s *Session) Export(name string) (string, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultExportName
	}
	if !strings.HasSuffix(name, exportExtension) {
		name += exportExtension
	}
	return name, []byte(s.xml)
}

// XML returns the active document text.
func (s *Session) XML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.xml
}

// Document returns a copy of the parsed document, nil when the active text
// is not a valid score.
func (s *Session) Document() *score.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil
	}
	return s.doc.Clone()
}

// MIDI renders the active document to a Standard MIDI File.
func (s *Session) MIDI() ([]byte, error) {
	doc := s.Document()
	if doc == nil {
		return nil, fault.New("no score to play", ftag.With(playback.KindPlayback), fmsg.WithDesc("invalid score", "The score cannot be played"))
	}
	if s.deps.Pipeline != nil {
		return s.deps.Pipeline.MIDI(doc)
	}
	return playback.EncodeMIDI(doc)
}

// Playback returns the note events of the active document and, when the
// server has an output, schedules them on it. Failures are logged and
// nothing plays.
func (s *Session) Playback() ([]playback.Track, error) {
	data, err := s.MIDI()
	if err != nil {
		logger.Error("Playback failed", err, logger.Fields{"session_id": s.ID})
		return nil, err
	}
	tracks, err := playback.Decode(data)
	if err != nil {
		logger.Error("Playback failed", err, logger.Fields{"session_id": s.ID})
		return nil, err
	}
	if s.deps.Player != nil {
		if _, err := s.deps.Player.PlayMIDI(data); err != nil {
			return nil, err
		}
	}
	return tracks, nil
}

// Ask sends prompt and the active document to the suggester. The reply's
// options replace any earlier ones; failures become an assistant message.
func (s *Session) Ask(ctx context.Context, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return nil
	}

	s.mu.Lock()
	s.chat = append(s.chat, ChatMessage{Role: RoleUser, Text: prompt, Created: time.Now()})
	s.options = nil
	xml := s.xml
	suggester := s.deps.Suggester
	s.mu.Unlock()

	if suggester == nil {
		return s.suggestFailed(fault.New("no suggester configured"))
	}
	resp, err := suggester.Suggest(ctx, suggest.Request{Prompt: prompt, XML: xml})
	if err != nil {
		return s.suggestFailed(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.options = append([]string(nil), resp.Options...)
	reply := MsgOptionsReady
	if resp.Clarify != "" {
		reply = resp.Clarify
	}
	s.chat = append(s.chat, ChatMessage{Role: RoleAssistant, Text: reply, Created: time.Now()})
	s.touch()
	return nil
}

func (s *Session) suggestFailed(err error) error {
	logger.Error("Suggestion request failed", err, logger.Fields{"session_id": s.ID})
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = append(s.chat, ChatMessage{Role: RoleAssistant, Text: MsgSuggestFailed, Created: time.Now()})
	s.touch()
	return fault.Wrap(err, ftag.With(KindNetwork), fmsg.WithDesc("suggest", MsgSuggestFailed))
}

// SelectOption replaces the active document with option i verbatim. Empty
// or missing options are ignored.
func (s *Session) SelectOption(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.options) || s.options[i] == "" {
		return false
	}
	s.setDocument(s.options[i])
	s.cursor = 1
	s.rebuildFill()
	s.touch()
	s.rerender()
	return true
}

// Comparison holds the original and each option rendered side by side.
type Comparison struct {
	Original string   `json:"original"`
	Options  []string `json:"options"`
}

// Compare renders the active document and every option without overlays.
// An option that is empty or fails to render yields "".
func (s *Session) Compare() Comparison {
	s.mu.Lock()
	xml := s.xml
	options := append([]string(nil), s.options...)
	s.mu.Unlock()

	out := Comparison{Original: s.renderText(xml), Options: make([]string, len(options))}
	for i, opt := range options {
		out.Options[i] = s.renderText(opt)
	}
	return out
}

func (s *Session) renderText(text string) string {
	if text == "" || s.deps.Pipeline == nil {
		return ""
	}
	doc, err := score.Parse(text)
	if err != nil {
		return ""
	}
	r, err := s.deps.Pipeline.Render(doc, nil)
	if err != nil {
		s.mu.Lock()
		s.addLog(fmt.Sprintf("Render error: %v", err))
		s.mu.Unlock()
		return ""
	}
	return r.SVG
}

// State is a snapshot for the browser.
type State struct {
	ID        string          `json:"id"`
	XML       string          `json:"xml"`
	SVG       string          `json:"svg"`
	Staves    []render.Box    `json:"staves"`
	Cursor    int             `json:"cursor"`
	Fill      map[int]float64 `json:"fill"`
	Selected  []int           `json:"selected"`
	Toolbar   Toolbar         `json:"toolbar"`
	Log       []string        `json:"log"`
	Chat      []ChatMessage   `json:"chat"`
	Options   []string        `json:"options"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	fill := make(map[int]float64, len(s.fill))
	for k, v := range s.fill {
		fill[k] = v
	}
	st := State{
		ID:        s.ID,
		XML:       s.xml,
		Cursor:    s.cursor,
		Fill:      fill,
		Selected:  s.selectedLocked(),
		Toolbar:   s.toolbar,
		Log:       append([]string(nil), s.debug...),
		Chat:      append([]ChatMessage(nil), s.chat...),
		Options:   append([]string(nil), s.options...),
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
	if s.rendering != nil {
		st.SVG = s.rendering.SVG
		st.Staves = s.rendering.Staves
	}
	return st
}

// Cursor returns the insertion cursor.
func (s *Session) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Close drops any pending click.
func (s *Session) Close() {
	s.clicker.Cancel()
}
