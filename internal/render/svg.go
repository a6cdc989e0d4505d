package render

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// Node is an element or text node of a rendered SVG document. Names keep
// their namespace prefix as written ("xlink:href").
type Node struct {
	Name     string
	Attrs    []Attr
	Children []*Node
	Text     string
	Parent   *Node
}

type Attr struct {
	Name  string
	Value string
}

// IsElement reports whether n is an element rather than character data.
func (n *Node) IsElement() bool {
	return n.Name != ""
}

// ParseSVG builds a Node tree from SVG markup and returns the root element.
func ParseSVG(text string) (*Node, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.Strict = false

	var root, cur *Node
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fault.Wrap(err, ftag.With(KindRender), fmsg.WithDesc("parse svg", "The rendered score could not be read"))
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Node{Name: qualified(t.Name)}
			for _, a := range t.Attr {
				el.Attrs = append(el.Attrs, Attr{Name: qualified(a.Name), Value: a.Value})
			}
			if cur == nil {
				if root != nil {
					return nil, fault.New("svg has more than one root element", ftag.With(KindRender))
				}
				root = el
			} else {
				cur.Append(el)
			}
			cur = el
		case xml.EndElement:
			if cur == nil {
				return nil, fault.New("unbalanced svg end element", ftag.With(KindRender))
			}
			cur = cur.Parent
		case xml.CharData:
			if cur != nil && len(bytes.TrimSpace(t)) > 0 {
				cur.Append(&Node{Text: string(t)})
			}
		}
	}
	if root == nil {
		return nil, fault.New("svg has no root element", ftag.With(KindRender), fmsg.WithDesc("empty svg", "The renderer produced no output"))
	}
	if cur != nil {
		return nil, fault.New("svg ends inside an element", ftag.With(KindRender))
	}
	return root, nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// String serializes the subtree rooted at n.
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	if !n.IsElement() {
		_ = xml.EscapeText(b, []byte(n.Text))
		return
	}
	b.WriteByte('<')
	b.WriteString(n.Name)
	for _, a := range n.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		_ = xml.EscapeText(b, []byte(a.Value))
		b.WriteByte('"')
	}
	if len(n.Children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	for _, c := range n.Children {
		c.write(b)
	}
	b.WriteString("</")
	b.WriteString(n.Name)
	b.WriteByte('>')
}

func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (n *Node) SetAttr(name, value string) {
	for i, a := range n.Attrs {
		if a.Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

func (n *Node) RemoveAttr(name string) {
	kept := n.Attrs[:0]
	for _, a := range n.Attrs {
		if a.Name != name {
			kept = append(kept, a)
		}
	}
	n.Attrs = kept
}

// HasClass reports whether the class attribute lists class.
func (n *Node) HasClass(class string) bool {
	v, ok := n.Attr("class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// Append adds child as the last child of n.
func (n *Node) Append(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// InsertFirst adds child as the first child of n.
func (n *Node) InsertFirst(child *Node) {
	child.Parent = n
	n.Children = append([]*Node{child}, n.Children...)
}

// Remove detaches child from n. It reports whether child was found.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			return true
		}
	}
	return false
}

// Walk visits elements depth first in document order. Returning false from
// fn skips the element's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !n.IsElement() {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// FindByID returns the element whose id attribute equals id.
func (n *Node) FindByID(id string) *Node {
	if id == "" {
		return nil
	}
	var found *Node
	n.Walk(func(el *Node) bool {
		if found != nil {
			return false
		}
		if v, ok := el.Attr("id"); ok && v == id {
			found = el
			return false
		}
		return true
	})
	return found
}
