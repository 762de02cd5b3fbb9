package persist

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Wislan-Pablo/resumopro.com.br/internal/editor"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/metrics"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/notify"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/session"
)

// Saver persists the summary document.
type Saver interface {
	SaveSummary(ctx context.Context, html string) error
}

// Loader fetches the stored summary document.
type Loader interface {
	LoadSummary(ctx context.Context) (string, error)
}

// Bridge connects editor mutations to storage with a trailing debounce: a
// burst of edits yields exactly one save, carrying whatever the document
// holds when the quiet period elapses. A save is skipped while the document
// is clean, where clean means either empty with no media or byte-identical
// to the last stored copy.
type Bridge struct {
	sess     *session.Session
	doc      *editor.Document
	saver    Saver
	debounce time.Duration
	notifier notify.Notifier

	mu    sync.Mutex
	timer *time.Timer
}

func NewBridge(sess *session.Session, doc *editor.Document, saver Saver, debounce time.Duration, notifier notify.Notifier) *Bridge {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Bridge{sess: sess, doc: doc, saver: saver, debounce: debounce, notifier: notifier}
}

// Dirty reports whether the document diverged from the stored baseline.
func (b *Bridge) Dirty() bool {
	if b.doc.EmptyAndMediaFree() {
		return false
	}
	return b.doc.HTML() != b.sess.LastSavedHTML()
}

// NoteChange records one edit. The pending save, if any, is pushed back so
// only the trailing edge of an edit burst persists.
func (b *Bridge) NoteChange() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.debounce, func() {
		if err := b.Flush(context.Background()); err != nil {
			log.Warn().Err(err).Msg("debounced save failed")
		}
	})
}

// Flush saves immediately when dirty, cancelling any pending debounce. It is
// a no-op on a clean document.
func (b *Bridge) Flush(ctx context.Context) error {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	if !b.Dirty() {
		metrics.IncSave("skipped")
		return nil
	}
	html := b.doc.HTML()
	if err := b.saver.SaveSummary(ctx, html); err != nil {
		metrics.IncSave("error")
		b.notifier.Notify(notify.Error, "Não foi possível salvar o resumo")
		return err
	}
	b.sess.SetLastSavedHTML(html)
	metrics.IncSave("ok")
	return nil
}

// Shutdown performs a final save decoupled from the caller's lifetime, the
// way a page-unload keepalive request outlives its page.
func (b *Bridge) Shutdown(ctx context.Context) error {
	return b.Flush(context.WithoutCancel(ctx))
}

// Load replaces the document with the stored summary and resets the
// baseline, so a freshly loaded document starts clean.
func (b *Bridge) Load(ctx context.Context, loader Loader) error {
	html, err := loader.LoadSummary(ctx)
	if err != nil {
		return err
	}
	if err := b.doc.SetHTML(html); err != nil {
		return err
	}
	b.sess.SetLastSavedHTML(b.doc.HTML())
	return nil
}
