// Package head models the document head managed by the navigation controller.
//
// A Document owns the <title> element and the set of <meta> elements that
// navigations inject. Injected elements carry MarkerAttr so that a later
// navigation can find and remove them: Reconcile always clears every
// marked element before inserting the new set, which keeps repeated
// navigations from accumulating tags.
package head

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MarkerAttr marks meta elements owned by the navigation controller.
const MarkerAttr = "data-router-controlled"

// ErrNoHead is returned by Parse when the input has no head element.
var ErrNoHead = errors.New("head: document has no <head> element")

// Tag is one meta element as an ordered attribute list.
type Tag []html.Attribute

// Document is a document head.
// It is not safe for concurrent use; callers clone it per navigation.
type Document struct {
	head  *html.Node
	title *html.Node
}

// New returns a minimal head with a charset, viewport and the given title.
func New(title string) *Document {
	doc, err := Parse(strings.NewReader(`<meta charset="utf-8">` +
		`<meta name="viewport" content="width=device-width,initial-scale=1">`))
	if err != nil {
		// The literal above always parses.
		panic(err)
	}
	doc.SetTitle(title)
	return doc
}

// Parse parses an HTML document or head fragment and keeps its head.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	h := find(root, atom.Head)
	if h == nil {
		return nil, ErrNoHead
	}
	h.Parent.RemoveChild(h)
	return &Document{head: h, title: find(h, atom.Title)}, nil
}

// Title returns the current title text.
func (d *Document) Title() string {
	if d.title == nil || d.title.FirstChild == nil {
		return ""
	}
	return d.title.FirstChild.Data
}

// SetTitle sets the title text, creating the element when missing.
func (d *Document) SetTitle(title string) {
	if d.title == nil {
		d.title = &html.Node{Type: html.ElementNode, Data: "title", DataAtom: atom.Title}
		d.head.AppendChild(d.title)
	}
	for c := d.title.FirstChild; c != nil; {
		next := c.NextSibling
		d.title.RemoveChild(c)
		c = next
	}
	d.title.AppendChild(&html.Node{Type: html.TextNode, Data: title})
}

// Reconcile removes every controlled meta element and injects one element
// per tag, copying the attributes in order and stamping MarkerAttr.
// It returns the number of elements removed.
//
// A nil or empty tags slice only clears.
func (d *Document) Reconcile(tags []Tag) int {
	removed := d.clear()
	for _, tag := range tags {
		el := &html.Node{Type: html.ElementNode, Data: "meta", DataAtom: atom.Meta}
		for _, a := range tag {
			if a.Key == MarkerAttr {
				continue
			}
			el.Attr = setAttr(el.Attr, a.Key, a.Val)
		}
		el.Attr = append(el.Attr, html.Attribute{Key: MarkerAttr})
		d.head.AppendChild(el)
	}
	return removed
}

func (d *Document) clear() int {
	var marked []*html.Node
	for c := d.head.FirstChild; c != nil; c = c.NextSibling {
		if isControlled(c) {
			marked = append(marked, c)
		}
	}
	for _, c := range marked {
		d.head.RemoveChild(c)
	}
	return len(marked)
}

// Controlled returns the injected meta elements in document order.
// The marker attribute is not included.
func (d *Document) Controlled() []Tag {
	var out []Tag
	for c := d.head.FirstChild; c != nil; c = c.NextSibling {
		if !isControlled(c) {
			continue
		}
		tag := make(Tag, 0, len(c.Attr))
		for _, a := range c.Attr {
			if a.Key != MarkerAttr {
				tag = append(tag, a)
			}
		}
		out = append(out, tag)
	}
	return out
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	h := cloneNode(d.head)
	return &Document{head: h, title: find(h, atom.Title)}
}

// Render writes the <head> element.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.head)
}

// String renders the head for logs and tests.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

func isControlled(n *html.Node) bool {
	if n.Type != html.ElementNode || n.DataAtom != atom.Meta {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == MarkerAttr {
			return true
		}
	}
	return false
}

func setAttr(attrs []html.Attribute, key, val string) []html.Attribute {
	for i := range attrs {
		if attrs[i].Key == key {
			attrs[i].Val = val
			return attrs
		}
	}
	return append(attrs, html.Attribute{Key: key, Val: val})
}

func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, a); found != nil {
			return found
		}
	}
	return nil
}

func cloneNode(n *html.Node) *html.Node {
	out := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out.AppendChild(cloneNode(c))
	}
	return out
}
