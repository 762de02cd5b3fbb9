package editor

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// placeholderClass marks a tracked wrapper element binding an inline image
// rendering to a stable filename reference.
const placeholderClass = "image-placeholder"

// pdfImageBase is where extracted PDF images are served from.
const pdfImageBase = "/temp_uploads/imagens_extraidas/"

// Document is a mutable HTML fragment standing in for the rich-text surface
// content. It round-trips through the serialized form the persistence bridge
// sends to the backend.
type Document struct {
	root *html.Node
}

// Parse builds a Document from serialized HTML. An empty string yields an
// empty document.
func Parse(s string) (*Document, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(s), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Document{root: root}, nil
}

// HTML serializes the document content.
func (d *Document) HTML() string {
	var b strings.Builder
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

// SetHTML replaces the whole content.
func (d *Document) SetHTML(s string) error {
	nd, err := Parse(s)
	if err != nil {
		return err
	}
	d.root = nd.root
	return nil
}

func (d *Document) walk(fn func(n *html.Node) bool) {
	var rec func(n *html.Node) bool
	rec = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !fn(c) {
				return false
			}
			if !rec(c) {
				return false
			}
		}
		return true
	}
	rec(d.root)
}

// TextNodes returns the document's text nodes in DOM order.
func (d *Document) TextNodes() []*html.Node {
	var out []*html.Node
	d.walk(func(n *html.Node) bool {
		if n.Type == html.TextNode {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Text returns the concatenated text content.
func (d *Document) Text() string {
	var b strings.Builder
	for _, n := range d.TextNodes() {
		b.WriteString(n.Data)
	}
	return b.String()
}

// HasMedia reports whether the document contains any media element: images,
// canvases, videos, inline svg, or an element styled with a background
// image.
func (d *Document) HasMedia() bool {
	found := false
	d.walk(func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		switch n.DataAtom {
		case atom.Img, atom.Canvas, atom.Video, atom.Svg:
			found = true
			return false
		}
		if style := attr(n, "style"); strings.Contains(strings.ToLower(style), "background-image") {
			found = true
			return false
		}
		return true
	})
	return found
}

// EmptyAndMediaFree reports whether there is nothing worth saving: the text
// is blank and no media element remains. A document of pure whitespace is
// not dirty even if it once had content.
func (d *Document) EmptyAndMediaFree() bool {
	return strings.TrimSpace(d.Text()) == "" && !d.HasMedia()
}

// AppendChild inserts a node at the end of the document.
func (d *Document) AppendChild(n *html.Node) {
	d.root.AppendChild(n)
}

// InsertAfter places n immediately after ref. Ref must belong to this
// document.
func (d *Document) InsertAfter(ref, n *html.Node) {
	parent := ref.Parent
	if parent == nil {
		d.root.AppendChild(n)
		return
	}
	if ref.NextSibling != nil {
		parent.InsertBefore(n, ref.NextSibling)
	} else {
		parent.AppendChild(n)
	}
}

// Placeholders returns the data-image-name of every tracked placeholder in
// document order.
func (d *Document) Placeholders() []string {
	var names []string
	d.walk(func(n *html.Node) bool {
		if isPlaceholder(n) {
			names = append(names, attr(n, "data-image-name"))
		}
		return true
	})
	return names
}

// RemoveFirstPlaceholder deletes the first tracked placeholder bound to
// name. It reports whether one was found.
func (d *Document) RemoveFirstPlaceholder(name string) bool {
	var target *html.Node
	d.walk(func(n *html.Node) bool {
		if isPlaceholder(n) && attr(n, "data-image-name") == name {
			target = n
			return false
		}
		return true
	})
	if target == nil {
		return false
	}
	target.Parent.RemoveChild(target)
	return true
}

// RemoveAllPlaceholders deletes every tracked placeholder and returns how
// many were removed.
func (d *Document) RemoveAllPlaceholders() int {
	var targets []*html.Node
	d.walk(func(n *html.Node) bool {
		if isPlaceholder(n) {
			targets = append(targets, n)
		}
		return true
	})
	for _, t := range targets {
		t.Parent.RemoveChild(t)
	}
	return len(targets)
}

// InsertedImageCount scans the whole document and counts tracked
// placeholders plus inline images that are not nested inside one. The full
// scan survives host-editor mutations (undo/redo, paste-as-HTML) that bypass
// incremental counters.
func (d *Document) InsertedImageCount() int {
	count := 0
	d.walk(func(n *html.Node) bool {
		if isPlaceholder(n) {
			count++
			return true
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Img && !insidePlaceholder(n) {
			count++
		}
		return true
	})
	return count
}

// newPlaceholder builds the tracked wrapper: the current image rendering
// plus a remove control, bound to the filename.
func newPlaceholder(name, src string) *html.Node {
	wrapper := &html.Node{
		Type: html.ElementNode, Data: "div", DataAtom: atom.Div,
		Attr: []html.Attribute{
			{Key: "class", Val: placeholderClass},
			{Key: "data-image-name", Val: name},
		},
	}
	img := &html.Node{
		Type: html.ElementNode, Data: "img", DataAtom: atom.Img,
		Attr: []html.Attribute{
			{Key: "src", Val: src},
			{Key: "alt", Val: name},
		},
	}
	remove := &html.Node{
		Type: html.ElementNode, Data: "div", DataAtom: atom.Div,
		Attr: []html.Attribute{{Key: "class", Val: "remove-btn"}},
	}
	remove.AppendChild(&html.Node{Type: html.TextNode, Data: "×"})
	wrapper.AppendChild(img)
	wrapper.AppendChild(remove)
	return wrapper
}

// newInlineImage builds a plain inline image element.
func newInlineImage(src, alt string) *html.Node {
	return &html.Node{
		Type: html.ElementNode, Data: "img", DataAtom: atom.Img,
		Attr: []html.Attribute{
			{Key: "src", Val: src},
			{Key: "alt", Val: alt},
			{Key: "style", Val: "max-width:100%;display:block;"},
		},
	}
}

func newBreak() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "br", DataAtom: atom.Br}
}

func isPlaceholder(n *html.Node) bool {
	if n.Type != html.ElementNode || n.DataAtom != atom.Div {
		return false
	}
	for _, cls := range strings.Fields(attr(n, "class")) {
		if cls == placeholderClass {
			return true
		}
	}
	return false
}

func insidePlaceholder(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if isPlaceholder(p) {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// PDFImageSrc builds the served URL of an extracted PDF image with the
// session cache-bust token appended.
func PDFImageSrc(name string, bust int64) string {
	return fmt.Sprintf("%s%s?v=%d", pdfImageBase, name, bust)
}
