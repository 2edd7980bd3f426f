// Package xmlutil implements the XML side of the codec engine: a small
// DOM of named, attributed nodes over encoding/xml tokens, and the
// mapping between that DOM and shape value trees.
package xmlutil

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Node is one XML element: a name, attributes, ordered children and
// character data.
type Node struct {
	Name     xml.Name
	Attr     []xml.Attr
	Children []*Node
	Text     string
}

// NewNode returns an element with the given local name.
func NewNode(name string) *Node {
	return &Node{Name: xml.Name{Local: name}}
}

// AddChild appends c and returns it.
func (n *Node) AddChild(c *Node) *Node {
	n.Children = append(n.Children, c)
	return c
}

// AddText appends a text-only child element.
func (n *Node) AddText(name, text string) *Node {
	c := NewNode(name)
	c.Text = text
	return n.AddChild(c)
}

// Child returns the first child with the given local name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name.Local == name {
			return c
		}
	}
	return nil
}

// AttrValue returns the value of the named attribute.
func (n *Node) AttrValue(name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// ChildrenNamed returns all children with the given local name.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name.Local == name {
			out = append(out, c)
		}
	}
	return out
}

// FindPath walks first-children by local names, nil when any hop is
// missing.
func (n *Node) FindPath(names ...string) *Node {
	cur := n
	for _, name := range names {
		cur = cur.Child(name)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Parse reads one XML document into a node tree. Character data is
// accumulated per element; whitespace-only text between child elements
// is dropped.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("empty xml document")
		}
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return parseElement(dec, start)
		}
	}
}

func parseElement(dec *xml.Decoder, start xml.StartElement) (*Node, error) {
	n := &Node{Name: start.Name, Attr: start.Attr}
	var text bytes.Buffer
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := parseElement(dec, t)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if len(n.Children) == 0 {
				n.Text = text.String()
			} else if s := strings.TrimSpace(text.String()); s != "" {
				n.Text = s
			}
			return n, nil
		}
	}
}

// Serialize writes the node tree as an XML document fragment.
func (n *Node) Serialize(w io.Writer) error {
	var buf bytes.Buffer
	buf.WriteByte('<')
	buf.WriteString(n.Name.Local)
	for _, a := range n.Attr {
		buf.WriteByte(' ')
		name := a.Name.Local
		if a.Name.Space != "" {
			name = a.Name.Space + ":" + a.Name.Local
		}
		buf.WriteString(name)
		buf.WriteString(`="`)
		if err := xml.EscapeText(&buf, []byte(a.Value)); err != nil {
			return err
		}
		buf.WriteByte('"')
	}
	buf.WriteByte('>')
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}

	if len(n.Children) > 0 {
		for _, c := range n.Children {
			if err := c.Serialize(w); err != nil {
				return err
			}
		}
	} else if n.Text != "" {
		var tb bytes.Buffer
		if err := xml.EscapeText(&tb, []byte(n.Text)); err != nil {
			return err
		}
		if _, err := w.Write(tb.Bytes()); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "</%s>", n.Name.Local)
	return err
}
