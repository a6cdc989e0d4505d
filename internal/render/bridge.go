package render

import (
	"strconv"
	"strings"
)

const (
	// MeasureAttr carries the source measure number on a rendered measure group.
	MeasureAttr = "data-measure"

	classMeasure     = "measure"
	classBoundingBox = "bounding-box"
)

func isMeasureGroup(n *Node) bool {
	return n.Name == "g" && n.HasClass(classMeasure) && !n.HasClass(classBoundingBox)
}

// MeasureGroups returns the outermost measure groups in rendered order,
// skipping bounding-box groups.
func MeasureGroups(root *Node) []*Node {
	var out []*Node
	root.Walk(func(n *Node) bool {
		if isMeasureGroup(n) {
			out = append(out, n)
			return false
		}
		return true
	})
	return out
}

// TagMeasures writes numbers onto the measure groups positionally: the Nth
// group gets the Nth number. Stale tags are cleared first. It returns how
// many groups were tagged; a count below len(numbers) means the renderer
// produced fewer groups than the document has measures.
func TagMeasures(root *Node, numbers []string) int {
	root.Walk(func(n *Node) bool {
		n.RemoveAttr(MeasureAttr)
		return true
	})

	groups := MeasureGroups(root)
	tagged := 0
	for tagged < len(groups) && tagged < len(numbers) {
		groups[tagged].SetAttr(MeasureAttr, numbers[tagged])
		tagged++
	}
	return tagged
}

// MeasureNumber returns the tag of a measure group.
func MeasureNumber(g *Node) (int, bool) {
	v, ok := g.Attr(MeasureAttr)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

// FindMeasure walks from target up through its ancestors to the first tagged
// measure group and returns its measure number.
func FindMeasure(target *Node) (int, bool) {
	for n := target; n != nil; n = n.Parent {
		if !isMeasureGroup(n) {
			continue
		}
		if num, ok := MeasureNumber(n); ok {
			return num, true
		}
	}
	return 0, false
}
