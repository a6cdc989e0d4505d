package render

import (
	"math"
	"strconv"
	"strings"
)

const (
	HighlightAttr    = "data-highlight"
	highlightFill    = "yellow"
	highlightOpacity = "0.3"

	classStaff = "staff"
)

// Box is an axis-aligned rectangle in SVG user units.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

func (b Box) Top() float64    { return b.Y }
func (b Box) Bottom() float64 { return b.Y + b.H }
func (b Box) Empty() bool     { return b.W <= 0 || b.H <= 0 }

// ContainsY reports whether y lies within the box's vertical extent.
func (b Box) ContainsY(y float64) bool {
	return y >= b.Top() && y <= b.Bottom()
}

func (b Box) Union(o Box) Box {
	x0 := math.Min(b.X, o.X)
	y0 := math.Min(b.Y, o.Y)
	x1 := math.Max(b.X+b.W, o.X+o.W)
	y1 := math.Max(b.Y+b.H, o.Y+o.H)
	return Box{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func num(n *Node, name string) float64 {
	v, ok := n.Attr(name)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(v, "px")), 64)
	if err != nil {
		return 0
	}
	return f
}

// shapeBox returns the extent of a shape primitive. Paths count only when
// they carry explicit x, y, width and height attributes.
func shapeBox(n *Node) (Box, bool) {
	var b Box
	switch n.Name {
	case "rect", "use", "image", "path":
		b = Box{X: num(n, "x"), Y: num(n, "y"), W: num(n, "width"), H: num(n, "height")}
	case "ellipse":
		rx, ry := num(n, "rx"), num(n, "ry")
		b = Box{X: num(n, "cx") - rx, Y: num(n, "cy") - ry, W: 2 * rx, H: 2 * ry}
	case "circle":
		r := num(n, "r")
		b = Box{X: num(n, "cx") - r, Y: num(n, "cy") - r, W: 2 * r, H: 2 * r}
	default:
		return Box{}, false
	}
	return b, !b.Empty()
}

func isOverlay(n *Node) bool {
	v, ok := n.Attr(HighlightAttr)
	return ok && v == "true"
}

// Bounds is the union of every shape primitive under g with a positive area.
// Highlight overlays are ignored.
func Bounds(g *Node) (Box, bool) {
	var out Box
	found := false
	g.Walk(func(n *Node) bool {
		if isOverlay(n) {
			return false
		}
		if b, ok := shapeBox(n); ok {
			if found {
				out = out.Union(b)
			} else {
				out = b
				found = true
			}
		}
		return true
	})
	return out, found
}

func overlayOf(g *Node) *Node {
	for _, c := range g.Children {
		if c.IsElement() && isOverlay(c) {
			return c
		}
	}
	return nil
}

func fmtNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func newOverlay(b Box) *Node {
	n := &Node{Name: "rect"}
	n.SetAttr(HighlightAttr, "true")
	setOverlayBounds(n, b)
	n.SetAttr("fill", highlightFill)
	n.SetAttr("fill-opacity", highlightOpacity)
	n.SetAttr("stroke", "none")
	return n
}

func setOverlayBounds(n *Node, b Box) {
	n.SetAttr("x", fmtNum(b.X))
	n.SetAttr("y", fmtNum(b.Y))
	n.SetAttr("width", fmtNum(b.W))
	n.SetAttr("height", fmtNum(b.H))
}

// ApplyHighlights adds an overlay rectangle as the first child of every
// tagged measure group that is selected and removes it from the rest. An
// existing overlay on a selected group is resized to the group's bounds.
func ApplyHighlights(root *Node, selected func(int) bool) (added, removed int) {
	for _, g := range MeasureGroups(root) {
		n, tagged := MeasureNumber(g)
		overlay := overlayOf(g)
		if !tagged || selected == nil || !selected(n) {
			if overlay != nil {
				g.Remove(overlay)
				removed++
			}
			continue
		}

		b, ok := Bounds(g)
		if !ok {
			continue
		}
		if overlay != nil {
			setOverlayBounds(overlay, b)
			continue
		}
		g.InsertFirst(newOverlay(b))
		added++
	}
	return added, removed
}

// StaffBoxes returns, per staff group in rendered order, the bounds of its
// staff lines: the shapes that are direct children of the group. Notes sit
// in nested layer groups and do not widen the box.
func StaffBoxes(root *Node) []Box {
	var out []Box
	root.Walk(func(n *Node) bool {
		if n.Name != "g" || !n.HasClass(classStaff) {
			return true
		}
		var box Box
		found := false
		for _, c := range n.Children {
			b, ok := shapeBox(c)
			if !ok {
				continue
			}
			if found {
				box = box.Union(b)
			} else {
				box, found = b, true
			}
		}
		if found {
			out = append(out, box)
		}
		return false
	})
	return out
}
