// Package workspace assembles the editor-side synchronization stack: one
// session, the four gallery managers, the insertion engine, the persistence
// bridge and the clipboard copier, all talking to one backend.
package workspace

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/Wislan-Pablo/resumopro.com.br/internal/apiclient"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/clipboard"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/config"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/editor"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/gallery"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/notify"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/persist"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/session"
)

// Host bundles the surfaces the embedding application provides.
type Host struct {
	View     gallery.View
	Layout   editor.Layout
	Board    clipboard.Board
	Feedback clipboard.Feedback
	Notifier notify.Notifier
}

// Workspace is one user's live editing context.
type Workspace struct {
	Session    *session.Session
	API        *apiclient.Client
	Document   *editor.Document
	Engine     *editor.Engine
	Bridge     *persist.Bridge
	Controller *gallery.Controller
	Copier     *clipboard.Copier
	PDF        *gallery.PDFManager
	Captures   *gallery.Manager
	Uploads    *gallery.Manager
	Clips      *gallery.Manager

	store *persist.HTTPStore
}

// New wires a workspace against the backend at baseURL. The document starts
// empty; call Load to pull the stored summary.
func New(baseURL string, cfg config.EditorConfig, host Host) (*Workspace, error) {
	if host.Notifier == nil {
		host.Notifier = notify.Log{}
	}
	sess := session.New()
	api := apiclient.New(baseURL, host.Notifier)

	doc, err := editor.Parse("")
	if err != nil {
		return nil, err
	}

	pdf := gallery.NewPDFManager(sess, gallery.NewHTTPManifest(api), host.Notifier)
	captures := gallery.NewManager(session.Captures, sess, gallery.NewHTTPRemote(api, session.Captures), host.Notifier)
	uploads := gallery.NewManager(session.Uploads, sess, gallery.NewHTTPRemote(api, session.Uploads), host.Notifier)
	clips := gallery.NewManager(session.Clipboard, sess, nil, host.Notifier)

	ctrl := gallery.NewController(sess, host.View, cfg.SpinnerMinShow, pdf, captures, uploads, clips)
	eng := editor.NewEngine(sess, doc, host.Layout, gallery.CaptureAdapter{M: captures}, controllerModes{ctrl}, host.Notifier)
	store := persist.NewHTTPStore(api)
	bridge := persist.NewBridge(sess, doc, store, cfg.SaveDebounce, host.Notifier)
	copier := clipboard.NewCopier(sess, host.Board, api, host.Feedback, host.Notifier, cfg.CopyFeedbackTTL)

	return &Workspace{
		Session:    sess,
		API:        api,
		store:      store,
		Document:   doc,
		Engine:     eng,
		Bridge:     bridge,
		Controller: ctrl,
		Copier:     copier,
		PDF:        pdf,
		Captures:   captures,
		Uploads:    uploads,
		Clips:      clips,
	}, nil
}

// Load pulls the stored summary into the document and opens the PDF gallery.
func (w *Workspace) Load(ctx context.Context) error {
	if err := w.Bridge.Load(ctx, w.store); err != nil {
		return err
	}
	w.Controller.SetMode(ctx, session.PDF)
	return nil
}

// Close flushes any pending save. Call it on page teardown.
func (w *Workspace) Close(ctx context.Context) {
	if err := w.Bridge.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("final save failed on teardown")
	}
}

type controllerModes struct{ c *gallery.Controller }

func (m controllerModes) SetMode(ctx context.Context, k session.Kind) { m.c.SetMode(ctx, k) }
