package render

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/Southclaws/fault/ftag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Little6thingys/lyric-mind/internal/score"
)

const handSVG = `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink">
  <g class="page-margin">
    <g class="system">
      <g class="measure" id="a">
        <g class="staff"><rect x="10" y="10" width="100" height="1"/><rect x="10" y="50" width="100" height="1"/>
          <g class="layer"><g class="note" id="a-n1"><use xlink:href="#head" x="30" y="20" width="8" height="6"/></g></g>
        </g>
      </g>
      <g class="bounding-box measure"><rect x="10" y="0" width="100" height="60"/></g>
      <g class="measure" id="b">
        <g class="staff"><rect x="110" y="10" width="100" height="1"/><rect x="110" y="0" width="0" height="99"/></g>
      </g>
      <g class="measure" id="c"><rect x="210" y="10" width="100" height="41"/></g>
    </g>
  </g>
</svg>`

func parseHand(t *testing.T) *Node {
	t.Helper()
	root, err := ParseSVG(handSVG)
	require.NoError(t, err)
	return root
}

func TestParseSVGRoundTripKeepsPrefixes(t *testing.T) {
	root := parseHand(t)
	out := root.String()
	assert.Contains(t, out, `xlink:href="#head"`)
	assert.Contains(t, out, `xmlns:xlink="http://www.w3.org/1999/xlink"`)

	again, err := ParseSVG(out)
	require.NoError(t, err)
	assert.Equal(t, out, again.String())
}

func TestParseSVGErrors(t *testing.T) {
	_, err := ParseSVG("")
	require.Error(t, err)
	assert.Equal(t, KindRender, ftag.Get(err))

	_, err = ParseSVG("<svg><g></svg>")
	assert.Error(t, err)
}

func TestTagMeasuresSkipsBoundingBoxes(t *testing.T) {
	root := parseHand(t)
	tagged := TagMeasures(root, []string{"1", "2", "3"})
	assert.Equal(t, 3, tagged)

	for id, want := range map[string]string{"a": "1", "b": "2", "c": "3"} {
		v, ok := root.FindByID(id).Attr(MeasureAttr)
		require.True(t, ok, id)
		assert.Equal(t, want, v)
	}

	root.Walk(func(n *Node) bool {
		if n.HasClass(classBoundingBox) {
			_, ok := n.Attr(MeasureAttr)
			assert.False(t, ok)
		}
		return true
	})
}

func TestTagMeasuresTruncates(t *testing.T) {
	root := parseHand(t)
	assert.Equal(t, 3, TagMeasures(root, []string{"1", "2", "3", "4", "5"}))

	// retagging with fewer numbers clears stale tags
	assert.Equal(t, 1, TagMeasures(root, []string{"7"}))
	_, ok := root.FindByID("b").Attr(MeasureAttr)
	assert.False(t, ok)
}

func TestFindMeasureWalksAncestors(t *testing.T) {
	root := parseHand(t)
	TagMeasures(root, []string{"4", "5", "6"})

	n, ok := FindMeasure(root.FindByID("a-n1"))
	require.True(t, ok)
	assert.Equal(t, 4, n)

	_, ok = FindMeasure(root)
	assert.False(t, ok)

	var bbox *Node
	root.Walk(func(n *Node) bool {
		if n.HasClass(classBoundingBox) {
			bbox = n.Children[0]
		}
		return true
	})
	require.NotNil(t, bbox)
	_, ok = FindMeasure(bbox)
	assert.False(t, ok)
}

func TestApplyHighlightsTogglesOverlay(t *testing.T) {
	root := parseHand(t)
	TagMeasures(root, []string{"1", "2", "3"})

	selected := map[int]bool{1: true, 2: true}
	added, removed := ApplyHighlights(root, func(n int) bool { return selected[n] })
	assert.Equal(t, 2, added)
	assert.Equal(t, 0, removed)

	a := root.FindByID("a")
	overlay := a.Children[0]
	assert.True(t, isOverlay(overlay))
	x, _ := overlay.Attr("x")
	y, _ := overlay.Attr("y")
	w, _ := overlay.Attr("width")
	h, _ := overlay.Attr("height")
	assert.Equal(t, []string{"10", "10", "100", "41"}, []string{x, y, w, h})
	fill, _ := overlay.Attr("fill")
	assert.Equal(t, "yellow", fill)

	// zero-area rect in b is ignored
	bo := root.FindByID("b").Children[0]
	h, _ = bo.Attr("height")
	assert.Equal(t, "1", h)

	// applying again keeps a single overlay
	added, _ = ApplyHighlights(root, func(n int) bool { return selected[n] })
	assert.Equal(t, 0, added)
	assert.Equal(t, 1, strings.Count(a.String(), HighlightAttr))

	delete(selected, 1)
	_, removed = ApplyHighlights(root, func(n int) bool { return selected[n] })
	assert.Equal(t, 1, removed)
	assert.NotContains(t, a.String(), HighlightAttr)
}

func TestStaffBoxesUseLinesOnly(t *testing.T) {
	boxes := StaffBoxes(parseHand(t))
	require.Len(t, boxes, 2)
	assert.Equal(t, Box{X: 10, Y: 10, W: 100, H: 41}, boxes[0])
	assert.Equal(t, Box{X: 110, Y: 10, W: 100, H: 1}, boxes[1])
}

func TestStaffEngineLayout(t *testing.T) {
	doc := score.Blank(score.BlankOptions{MeasureCount: 6, Title: "Sketch"})
	doc.MeasureByNumber(1).Notes = []*score.Note{
		{Pitch: score.MIDIToPitch(72).Element(), Duration: 1, Type: score.TypeQuarter},
	}

	e := NewStaffEngine()
	require.NoError(t, e.LoadData(doc.String(), FormatMusicXML))
	svg, err := e.RenderToSVG(1)
	require.NoError(t, err)

	root, err := ParseSVG(svg)
	require.NoError(t, err)
	assert.Len(t, MeasureGroups(root), 6)
	assert.Contains(t, svg, "Sketch")

	staves := StaffBoxes(root)
	require.Len(t, staves, 6)
	center := staves[0].Y + staves[0].H/2

	head := root.FindByID("m1-n1").Children[0]
	cy, _ := head.Attr("cy")
	assert.Equal(t, fmtNum(PitchY(center, 72)), cy)

	_, err = e.RenderToSVG(2)
	assert.Error(t, err)

	midi, err := e.RenderToMIDI()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(midi), "MThd"))
}

func TestStaffEngineBoundingBoxHitsResolve(t *testing.T) {
	e := NewStaffEngine()
	require.NoError(t, e.LoadData(score.Blank(score.BlankOptions{MeasureCount: 5}).String(), FormatMusicXML))
	svg, err := e.RenderToSVG(1)
	require.NoError(t, err)
	root, err := ParseSVG(svg)
	require.NoError(t, err)

	assert.Equal(t, 5, TagMeasures(root, []string{"1", "2", "3", "4", "5"}))
	for i := 1; i <= 5; i++ {
		bbox := root.FindByID("bbox-m" + strconv.Itoa(i))
		require.NotNil(t, bbox)
		n, ok := FindMeasure(bbox.Children[0])
		require.True(t, ok)
		assert.Equal(t, i, n)
	}
}

func TestBoundsCountsSizedPaths(t *testing.T) {
	root, err := ParseSVG(`<svg><g class="measure"><path d="M0 0" x="5" y="5" width="20" height="10"/><path d="M1 1"/></g></svg>`)
	require.NoError(t, err)
	b, ok := Bounds(root.Children[0])
	require.True(t, ok)
	assert.Equal(t, Box{X: 5, Y: 5, W: 20, H: 10}, b)
}

func TestStaffEngineRejectsInput(t *testing.T) {
	e := NewStaffEngine()
	_, err := e.RenderToSVG(1)
	assert.Error(t, err)

	assert.Error(t, e.LoadData("<score-partwise/>", "abc"))
	err = e.LoadData("not xml at all", FormatMusicXML)
	require.Error(t, err)
	assert.Equal(t, KindRender, ftag.Get(err))
}

func TestStaffEnginePaginates(t *testing.T) {
	e := NewStaffEngine()
	e.SetOptions(Options{Scale: 100, PageWidth: 1200, PageHeight: 400})
	doc := score.Blank(score.BlankOptions{MeasureCount: 12})
	require.NoError(t, e.LoadData(doc.String(), FormatMusicXML))

	// (400-60-50)/140 = 2 systems of 4 measures per page
	assert.Equal(t, 2, e.PageCount())
	svg, err := e.RenderToSVG(2)
	require.NoError(t, err)
	root, err := ParseSVG(svg)
	require.NoError(t, err)
	assert.Len(t, MeasureGroups(root), 4)
}

type brokenEngine struct{ StaffEngine }

func (b *brokenEngine) RenderToSVG(int) (string, error) { return "", errors.New("engine crashed") }

type shortEngine struct{ *StaffEngine }

// RenderToSVG drops the last measure group.
func (s shortEngine) RenderToSVG(page int) (string, error) {
	svg, err := s.StaffEngine.RenderToSVG(page)
	if err != nil {
		return "", err
	}
	root, err := ParseSVG(svg)
	if err != nil {
		return "", err
	}
	groups := MeasureGroups(root)
	last := groups[len(groups)-1]
	last.Parent.Remove(last)
	return root.String(), nil
}

func TestPipelineRender(t *testing.T) {
	p := NewPipeline(NewStaffEngine())
	doc := score.Blank(score.DefaultBlankOptions())

	r, err := p.Render(doc, func(n int) bool { return n == 3 })
	require.NoError(t, err)
	assert.Equal(t, 8, r.Tagged)
	assert.False(t, r.Truncated())
	assert.Len(t, r.Staves, 8)
	assert.Equal(t, 1, strings.Count(r.SVG, `data-highlight="true"`))
	assert.Contains(t, r.SVG, `data-measure="8"`)

	cleared, err := p.Highlight(r, func(int) bool { return false })
	require.NoError(t, err)
	assert.NotContains(t, cleared.SVG, HighlightAttr)
	assert.Equal(t, 8, strings.Count(cleared.SVG, `data-measure=`))
}

func TestPipelineTruncatesOnShortRender(t *testing.T) {
	p := NewPipeline(shortEngine{NewStaffEngine()})
	r, err := p.Render(score.Blank(score.BlankOptions{MeasureCount: 3}), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Tagged)
	assert.True(t, r.Truncated())
}

func TestPipelineRenderFailure(t *testing.T) {
	p := NewPipeline(&brokenEngine{})
	_, err := p.Render(score.Blank(score.DefaultBlankOptions()), nil)
	assert.EqualError(t, err, "engine crashed")
}
