package persist

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Wislan-Pablo/resumopro.com.br/internal/editor"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/gallery"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/session"
)

type scenarioManifest struct{ entries []gallery.ManifestEntry }

func (s scenarioManifest) Manifest(context.Context) ([]gallery.ManifestEntry, error) {
	return s.entries, nil
}

type scenarioRemote struct {
	mu     sync.Mutex
	added  []string
	addErr error
}

func (r *scenarioRemote) List(context.Context) ([]session.ImageRef, error) { return nil, nil }

func (r *scenarioRemote) Add(_ context.Context, data []byte, mime string) (session.ImageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addErr != nil {
		return session.ImageRef{}, r.addErr
	}
	id := "cap-" + mime
	r.added = append(r.added, id)
	return session.ImageRef{ID: id, URL: "/api/files/captures/" + id}, nil
}

func (r *scenarioRemote) Delete(context.Context, string) error { return nil }
func (r *scenarioRemote) DeleteAll(context.Context) error      { return nil }

type scenarioView struct {
	mu      sync.Mutex
	renders []session.Kind
}

func (v *scenarioView) ShowSpinner(bool) {}

func (v *scenarioView) Render(k session.Kind, _ []session.ImageRef, _, _ string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renders = append(v.renders, k)
}

// modeAdapter lets the engine flip gallery modes through the controller.
type modeAdapter struct{ c *gallery.Controller }

func (m modeAdapter) SetMode(ctx context.Context, k session.Kind) { m.c.SetMode(ctx, k) }

// The full editing session: load a document, browse the extracted images,
// place one in the summary, let the debounce persist it, paste a capture,
// and remove the placed image again.
func TestEditingSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	sess := session.New()

	doc, err := editor.Parse("<p>rascunho do resumo</p>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	pdf := gallery.NewPDFManager(sess, scenarioManifest{entries: []gallery.ManifestEntry{
		{Name: "img_001.png", Page: 1},
		{Name: "img_002.png", Page: 2},
		{Name: "img_003.png", Page: 3},
	}}, nil)
	captures := gallery.NewManager(session.Captures, sess, &scenarioRemote{}, nil)

	view := &scenarioView{}
	ctrl := gallery.NewController(sess, view, 0, pdf, captures)

	eng := editor.NewEngine(sess, doc, nil, gallery.CaptureAdapter{M: captures}, modeAdapter{c: ctrl}, nil)
	saver := &saverStub{}
	bridge := NewBridge(sess, doc, saver, 20*time.Millisecond, nil)
	sess.SetLastSavedHTML(doc.HTML())

	// Open the PDF gallery.
	ctrl.SetMode(ctx, session.PDF)
	if sess.ActiveCollection() != session.PDF || pdf.Count() != 3 {
		t.Fatalf("pdf gallery not loaded: %s %d", sess.ActiveCollection(), pdf.Count())
	}

	// Drag a page image into the summary.
	eng.DropAt(editor.Payload{Text: "img_003.png"}, 0)
	if got := sess.PlacedImageIDs(); len(got) != 1 || got[0] != "img_003.png" {
		t.Fatalf("placed = %v", got)
	}
	bridge.NoteChange()

	deadline := time.Now().Add(2 * time.Second)
	for len(saver.all()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	saved := saver.all()
	if len(saved) != 1 || !strings.Contains(saved[0], "img_003.png") {
		t.Fatalf("debounced save = %v", saved)
	}
	if bridge.Dirty() {
		t.Fatal("document must be clean after the debounced save")
	}

	// Paste a capture: arm first, then the paste lands in the captures
	// gallery and switches the mode there.
	sess.ArmCapture()
	if !eng.HandlePaste(ctx, []byte("screenshot"), "image/png") {
		t.Fatal("armed paste was not consumed")
	}
	if sess.ActiveCollection() != session.Captures || captures.Count() != 1 {
		t.Fatalf("capture flow: active=%s captures=%d", sess.ActiveCollection(), captures.Count())
	}

	// Remove the placed PDF image and persist the removal.
	if !eng.RemovePlaced("img_003.png") {
		t.Fatal("placed image removal failed")
	}
	if sess.PlacedCount() != 0 {
		t.Fatalf("placed count = %d", sess.PlacedCount())
	}
	if err := bridge.Flush(ctx); err != nil {
		t.Fatalf("final flush: %v", err)
	}
	final := saver.all()
	if strings.Contains(final[len(final)-1], "img_003.png") {
		t.Fatalf("removal not persisted: %q", final[len(final)-1])
	}
}

// A capture whose upload fails must leave nothing behind: the paste is spent
// but the gallery stays empty, the mode stays put and the document keeps its
// previous content.
func TestFailedCapturePasteLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	sess := session.New()

	doc, err := editor.Parse("<p>rascunho</p>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	captures := gallery.NewManager(session.Captures, sess, &scenarioRemote{addErr: errors.New("sem rede")}, nil)
	ctrl := gallery.NewController(sess, &scenarioView{}, 0, captures)
	eng := editor.NewEngine(sess, doc, nil, gallery.CaptureAdapter{M: captures}, modeAdapter{c: ctrl}, nil)

	before := doc.HTML()
	sess.ArmCapture()
	if !eng.HandlePaste(ctx, []byte("screenshot"), "image/png") {
		t.Fatal("armed paste must be consumed even when the upload fails")
	}
	if captures.Count() != 0 {
		t.Fatalf("captures = %d after failed upload, want 0", captures.Count())
	}
	if doc.HTML() != before {
		t.Fatalf("document changed after failed capture: %q", doc.HTML())
	}
	if sess.ActiveCollection() == session.Captures {
		t.Fatal("mode must not switch to captures on a failed upload")
	}
	if sess.ConsumeCaptureArm() {
		t.Fatal("arm must be spent by the failed paste")
	}
}

// Deleting a placed image from its gallery hides the gallery entry only: the
// document placeholder and its placement record survive.
func TestGalleryDeleteKeepsPlacedImage(t *testing.T) {
	ctx := context.Background()
	sess := session.New()

	doc, err := editor.Parse("<p>rascunho</p>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	pdf := gallery.NewPDFManager(sess, scenarioManifest{entries: []gallery.ManifestEntry{
		{Name: "img_002.png", Page: 2},
	}}, nil)
	eng := editor.NewEngine(sess, doc, nil, nil, nil, nil)

	pdf.List(ctx)
	eng.DropAt(editor.Payload{Text: "img_002.png"}, 0)
	if got := sess.PlacedImageIDs(); len(got) != 1 || got[0] != "img_002.png" {
		t.Fatalf("placed = %v", got)
	}

	if !pdf.Remove("img_002.png") {
		t.Fatal("gallery removal failed")
	}
	if pdf.Count() != 0 {
		t.Fatalf("gallery count = %d, want 0", pdf.Count())
	}
	if got := sess.PlacedImageIDs(); len(got) != 1 || got[0] != "img_002.png" {
		t.Fatalf("placement record lost with the gallery entry: %v", got)
	}
	if !strings.Contains(doc.HTML(), `data-image-name="img_002.png"`) {
		t.Fatalf("placeholder gone from the document: %q", doc.HTML())
	}
}
