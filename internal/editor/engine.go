package editor

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	"github.com/Wislan-Pablo/resumopro.com.br/internal/notify"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/session"
)

// Rect is the rendered vertical extent of a text node, supplied by the host
// surface. Only the vertical axis matters for drop placement.
type Rect struct {
	Top, Bottom float64
}

// Layout reports rendered text-node extents. Implementations come from the
// host surface; tests use synthetic line layouts.
type Layout interface {
	TextNodeRect(n *html.Node) (Rect, bool)
}

// Payload carries the data of one drag or paste gesture, mirroring the
// transfer flavors a browser exposes.
type Payload struct {
	URI  string
	Text string
	HTML string
}

// value returns the preferred payload value, URI list first.
func (p Payload) value() string {
	if p.URI != "" {
		return p.URI
	}
	return p.Text
}

func isDirectURL(v string) bool {
	return strings.HasPrefix(v, "blob:") || strings.HasPrefix(v, "data:") ||
		strings.HasPrefix(v, "http:") || strings.HasPrefix(v, "https:")
}

// CaptureStore persists a pasted capture in the captures namespace and
// appends the server-confirmed ref to the session.
type CaptureStore interface {
	AddCapture(ctx context.Context, data []byte, mime string) (session.ImageRef, error)
}

// ModeSwitcher flips the gallery to another collection.
type ModeSwitcher interface {
	SetMode(ctx context.Context, k session.Kind)
}

// Engine translates user gestures into document mutations and keeps the
// session's placement tracking consistent with the resulting markup.
type Engine struct {
	sess     *session.Session
	doc      *Document
	layout   Layout
	captures CaptureStore
	modes    ModeSwitcher
	notifier notify.Notifier
}

// NewEngine wires the insertion engine. Layout, captures and modes may be
// nil when the corresponding gesture is not available in the host.
func NewEngine(sess *session.Session, doc *Document, layout Layout, captures CaptureStore, modes ModeSwitcher, notifier notify.Notifier) *Engine {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Engine{sess: sess, doc: doc, layout: layout, captures: captures, modes: modes, notifier: notifier}
}

// Document exposes the engine's working document.
func (e *Engine) Document() *Document { return e.doc }

// DropAt handles a drop gesture at the given pointer Y coordinate.
// Classification order: direct image URL, then PDF-gallery reference, then
// verbatim content. A payload with no recognizable data is ignored.
func (e *Engine) DropAt(p Payload, y float64) {
	v := strings.TrimSpace(p.value())
	if v == "" && strings.TrimSpace(p.HTML) == "" {
		return
	}

	switch {
	case isDirectURL(v):
		e.insertAt(newInlineImage(v, "Captura"), y)
		e.notifier.Notify(notify.Info, "Imagem de captura inserida")
	case e.inPDFCollection(v):
		src := PDFImageSrc(v, e.sess.CacheBust())
		ph := newPlaceholder(v, src)
		e.insertAt(ph, y)
		e.doc.InsertAfter(ph, newBreak())
		e.sess.AppendPlaced(v)
		e.notifier.Notify(notify.Info, fmt.Sprintf("Imagem %s inserida", v))
	default:
		e.insertVerbatim(p, y)
	}
}

// insertAt places the node after the first text node whose rendered rect
// vertically straddles y. Without a straddling node (or without layout
// information at all) it appends to the end of the document. This is a
// heuristic, not exact caret placement.
func (e *Engine) insertAt(n *html.Node, y float64) {
	if e.layout != nil {
		for _, tn := range e.doc.TextNodes() {
			r, ok := e.layout.TextNodeRect(tn)
			if !ok {
				continue
			}
			if r.Top <= y && y <= r.Bottom {
				e.doc.InsertAfter(tn, n)
				return
			}
		}
	}
	e.doc.AppendChild(n)
}

// insertVerbatim drops opaque text or HTML into the document untracked.
func (e *Engine) insertVerbatim(p Payload, y float64) {
	raw := p.HTML
	if raw == "" {
		raw = html.EscapeString(p.value())
	}
	frag, err := Parse(raw)
	if err != nil {
		log.Debug().Err(err).Msg("unparseable drop payload ignored")
		return
	}
	var nodes []*html.Node
	for c := frag.root.FirstChild; c != nil; c = c.NextSibling {
		nodes = append(nodes, c)
	}
	// The anchor is resolved once; siblings chain after it so the fragment
	// keeps its original order.
	var prev *html.Node
	for _, n := range nodes {
		frag.root.RemoveChild(n)
		if prev == nil {
			e.insertAt(n, y)
		} else {
			e.doc.InsertAfter(prev, n)
		}
		prev = n
	}
}

func (e *Engine) inPDFCollection(name string) bool {
	for _, ref := range e.sess.Images(session.PDF) {
		if ref.ID == name {
			return true
		}
	}
	return false
}

// HandlePaste processes one paste event. It returns true when the paste was
// consumed by the capture workflow (the host must suppress its default
// handling), false when the paste should proceed normally.
//
// A paste only qualifies when the explicit capture trigger armed it; the arm
// is spent by this call whether or not the upload succeeds. On upload
// failure nothing is inserted and no collection entry appears: the user
// retries the capture.
func (e *Engine) HandlePaste(ctx context.Context, data []byte, mime string) bool {
	if !e.sess.ConsumeCaptureArm() {
		return false
	}
	if len(data) == 0 || e.captures == nil {
		return true
	}
	ref, err := e.captures.AddCapture(ctx, data, mime)
	if err != nil {
		log.Warn().Err(err).Msg("capture upload failed")
		e.notifier.Notify(notify.Error, "Não foi possível salvar a captura")
		return true
	}
	if e.modes != nil {
		e.modes.SetMode(ctx, session.Captures)
	}
	e.doc.AppendChild(newInlineImage(ref.URL, "Captura"))
	e.notifier.Notify(notify.Success, "Captura salva na galeria")
	return true
}

// RemovePlaced deletes one tracked placeholder bound to name from the
// document and drops the first matching entry from the session's placement
// list, so duplicate placements of the same name survive a single removal.
func (e *Engine) RemovePlaced(name string) bool {
	removed := e.doc.RemoveFirstPlaceholder(name)
	if removed {
		e.sess.RemovePlacedFirst(name)
		e.notifier.Notify(notify.Info, fmt.Sprintf("Imagem %s removida", name))
	}
	return removed
}

// ClearPlaced removes every tracked placeholder and resets the placement
// list.
func (e *Engine) ClearPlaced() int {
	n := e.doc.RemoveAllPlaceholders()
	e.sess.ClearPlaced()
	return n
}

// PlacedCount is the incrementally-tracked counter value.
func (e *Engine) PlacedCount() int { return e.sess.PlacedCount() }

// Reconcile recomputes the visible inserted-image count from the document
// itself. The host editor can mutate markup behind the model's back
// (undo/redo, paste-as-HTML); the full scan is the recovery path for those
// mutations.
func (e *Engine) Reconcile() int {
	return e.doc.InsertedImageCount()
}
