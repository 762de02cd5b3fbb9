package gallery

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Wislan-Pablo/resumopro.com.br/internal/editor"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/notify"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/session"
)

// ManifestEntry names one image extracted from the source PDF and the page
// it came from.
type ManifestEntry struct {
	Name string `json:"name"`
	Page int    `json:"page"`
}

// ManifestSource fetches the extraction manifest of the active document.
type ManifestSource interface {
	Manifest(ctx context.Context) ([]ManifestEntry, error)
}

// PDFManager owns the extracted-from-PDF collection. Unlike the user
// collections it is read-only for the user: entries come from the extraction
// manifest, and deletion only hides them until a recovery reloads the
// manifest.
type PDFManager struct {
	sess     *session.Session
	source   ManifestSource
	notifier notify.Notifier
	coll     *collate.Collator
}

func NewPDFManager(sess *session.Session, source ManifestSource, notifier notify.Notifier) *PDFManager {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &PDFManager{
		sess:     sess,
		source:   source,
		notifier: notifier,
		// Numeric collation gives img_2 < img_10, matching page order.
		coll: collate.New(language.BrazilianPortuguese, collate.Numeric),
	}
}

func (m *PDFManager) Kind() session.Kind { return session.PDF }

// List returns the extracted images, loading the manifest on first use.
func (m *PDFManager) List(ctx context.Context) []session.ImageRef {
	if m.sess.Count(session.PDF) > 0 {
		return m.sess.Images(session.PDF)
	}
	if err := m.load(ctx); err != nil {
		log.Warn().Err(err).Msg("pdf manifest load failed")
		return nil
	}
	return m.sess.Images(session.PDF)
}

// Remove hides one extracted image from the gallery. The file itself stays
// on the server so Recover can bring it back.
func (m *PDFManager) Remove(id string) bool {
	_, ok := m.sess.Remove(session.PDF, id)
	return ok
}

// RemoveAll hides every extracted image.
func (m *PDFManager) RemoveAll() {
	m.sess.Clear(session.PDF)
}

func (m *PDFManager) Count() int { return m.sess.Count(session.PDF) }

// Recover reloads the manifest and restores the full extracted set,
// including entries the user had hidden. The cache-bust counter is bumped so
// restored URLs bypass any stale browser cache of a same-named file from an
// earlier extraction.
func (m *PDFManager) Recover(ctx context.Context) error {
	m.sess.BumpCacheBust()
	if err := m.load(ctx); err != nil {
		m.notifier.Notify(notify.Error, "Não foi possível recuperar as imagens do PDF")
		return err
	}
	m.notifier.Notify(notify.Success, "Imagens do PDF recuperadas")
	return nil
}

func (m *PDFManager) load(ctx context.Context) error {
	if m.source == nil {
		return nil
	}
	entries, err := m.source.Manifest(ctx)
	if err != nil {
		return err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return m.coll.CompareString(entries[i].Name, entries[j].Name) < 0
	})
	bust := m.sess.CacheBust()
	refs := make([]session.ImageRef, 0, len(entries))
	for _, e := range entries {
		refs = append(refs, session.ImageRef{
			ID:          e.Name,
			URL:         editor.PDFImageSrc(e.Name, bust),
			DisplayName: e.Name,
			Page:        e.Page,
		})
	}
	m.sess.Replace(session.PDF, refs)
	return nil
}
