package score

import (
	"encoding/xml"
	"sort"
	"strings"
)

// Element is a child the typed tree does not model, kept verbatim so a
// parsed score marshals back without losing it.
type Element struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   string     `xml:",innerxml"`
}

// Name returns the local element name.
func (e *Element) Name() string {
	return e.XMLName.Local
}

// Duration reads a <duration> child, as carried by <backup> and <forward>.
func (e *Element) Duration() float64 {
	var v struct {
		Duration float64 `xml:"duration"`
	}
	if err := xml.Unmarshal([]byte("<e>"+e.Inner+"</e>"), &v); err != nil {
		return 0
	}
	return v.Duration
}

// child is one element queued for ordered encoding.
type child struct {
	name string
	v    any
}

// sequence fixes the order of an element's children by name. Names missing
// from the list sort last; ties keep their queued order.
type sequence []string

func (s sequence) rank(name string) int {
	for i, n := range s {
		if n == name {
			return i
		}
	}
	return len(s)
}

func extras(els []*Element) []child {
	out := make([]child, 0, len(els))
	for _, el := range els {
		out = append(out, child{name: el.Name(), v: el})
	}
	return out
}

func (s sequence) encode(e *xml.Encoder, start xml.StartElement, kids []child) error {
	sort.SliceStable(kids, func(i, j int) bool { return s.rank(kids[i].name) < s.rank(kids[j].name) })
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := encodeChildren(e, kids); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

func encodeChildren(e *xml.Encoder, kids []child) error {
	for _, k := range kids {
		var err error
		if el, ok := k.v.(*Element); ok {
			err = e.Encode(el)
		} else {
			err = e.EncodeElement(k.v, xml.StartElement{Name: xml.Name{Local: k.name}})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func textChild(name, value string) []child {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return []child{{name: name, v: value}}
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}
