package gallery

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Wislan-Pablo/resumopro.com.br/internal/metrics"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/notify"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/session"
)

// Remote is the server side of one image collection.
type Remote interface {
	List(ctx context.Context) ([]session.ImageRef, error)
	Add(ctx context.Context, data []byte, mime string) (session.ImageRef, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// Manager owns one user image collection. Reads prefer the in-memory session
// copy; the remote is consulted only when the collection has never been
// loaded. Every server failure degrades instead of blocking the user.
type Manager struct {
	kind     session.Kind
	sess     *session.Session
	remote   Remote
	notifier notify.Notifier

	mu        sync.Mutex
	attempted bool
}

func NewManager(kind session.Kind, sess *session.Session, remote Remote, notifier notify.Notifier) *Manager {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Manager{kind: kind, sess: sess, remote: remote, notifier: notifier}
}

func (m *Manager) Kind() session.Kind { return m.kind }

// List returns the collection contents. The session copy wins when present;
// a cold load fetches from the remote and caches the result. The remote gets
// exactly one attempt per session: a failed cold load yields an empty
// collection and later calls do not refetch, and an emptied collection stays
// empty instead of resurrecting server copies.
func (m *Manager) List(ctx context.Context) []session.ImageRef {
	if m.sess.Count(m.kind) > 0 {
		return m.sess.Images(m.kind)
	}
	m.mu.Lock()
	done := m.attempted
	m.attempted = true
	m.mu.Unlock()
	if done || m.remote == nil {
		return nil
	}
	refs, err := m.remote.List(ctx)
	if err != nil {
		log.Warn().Err(err).Str("collection", string(m.kind)).Msg("collection load failed")
		metrics.IncCollectionOp(string(m.kind), "list", "error")
		return nil
	}
	m.sess.Replace(m.kind, refs)
	metrics.IncCollectionOp(string(m.kind), "list", "ok")
	return m.sess.Images(m.kind)
}

// Add uploads data and appends the server-confirmed ref to the collection.
// When the upload fails the image stays usable as a local blob entry, so the
// user keeps working offline; the entry is promoted if a later upload
// succeeds elsewhere.
func (m *Manager) Add(ctx context.Context, data []byte, mime string) (session.ImageRef, error) {
	if m.remote != nil {
		ref, err := m.remote.Add(ctx, data, mime)
		if err == nil {
			if aerr := m.sess.Append(m.kind, ref); aerr != nil {
				return session.ImageRef{}, aerr
			}
			metrics.IncCollectionOp(string(m.kind), "add", "ok")
			metrics.AddUploadBytes(string(m.kind), int64(len(data)))
			return ref, nil
		}
		log.Warn().Err(err).Str("collection", string(m.kind)).Msg("upload failed, keeping local copy")
		metrics.IncCollectionOp(string(m.kind), "add", "fallback")
		m.notifier.Notify(notify.Warning, "Falha no envio. Imagem mantida localmente.")
	}
	id := uuid.NewString()
	ref := session.ImageRef{
		ID:        id,
		URL:       "blob:local/" + id,
		OwnedBlob: session.NewBlob(data, mime),
	}
	if err := m.sess.Append(m.kind, ref); err != nil {
		ref.OwnedBlob.Release()
		return session.ImageRef{}, err
	}
	return ref, nil
}

// AddStrict uploads without the local-blob fallback: either the server
// confirms the entry or the caller gets the error and nothing is appended.
// The capture workflow needs this, since a capture that never reached the
// server must not show up in the gallery or the document.
func (m *Manager) AddStrict(ctx context.Context, data []byte, mime string) (session.ImageRef, error) {
	if m.remote == nil {
		return session.ImageRef{}, errors.New("coleção sem servidor configurado")
	}
	ref, err := m.remote.Add(ctx, data, mime)
	if err != nil {
		metrics.IncCollectionOp(string(m.kind), "add", "error")
		return session.ImageRef{}, err
	}
	if aerr := m.sess.Append(m.kind, ref); aerr != nil {
		return session.ImageRef{}, aerr
	}
	metrics.IncCollectionOp(string(m.kind), "add", "ok")
	metrics.AddUploadBytes(string(m.kind), int64(len(data)))
	return ref, nil
}

// Remove drops the entry from the session immediately and tells the remote
// afterwards. A failed server delete is logged only; the entry is already
// gone from the user's view and a stale server copy is harmless.
func (m *Manager) Remove(ctx context.Context, id string) bool {
	if _, ok := m.sess.Remove(m.kind, id); !ok {
		return false
	}
	if m.remote != nil {
		if err := m.remote.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Str("collection", string(m.kind)).Str("id", id).Msg("server delete failed")
			metrics.IncCollectionOp(string(m.kind), "remove", "error")
			return true
		}
	}
	metrics.IncCollectionOp(string(m.kind), "remove", "ok")
	return true
}

// RemoveAll clears the collection locally and best-effort on the server. The
// clear also spends the fetch attempt, so a failed server delete cannot bring
// the items back on the next listing.
func (m *Manager) RemoveAll(ctx context.Context) {
	m.sess.Clear(m.kind)
	m.mu.Lock()
	m.attempted = true
	m.mu.Unlock()
	if m.remote != nil {
		if err := m.remote.DeleteAll(ctx); err != nil {
			log.Warn().Err(err).Str("collection", string(m.kind)).Msg("server bulk delete failed")
			metrics.IncCollectionOp(string(m.kind), "remove_all", "error")
			return
		}
	}
	metrics.IncCollectionOp(string(m.kind), "remove_all", "ok")
}

func (m *Manager) Count() int { return m.sess.Count(m.kind) }

// CaptureAdapter presents the captures manager as the editor's paste target.
// Captures go through AddStrict: the user-upload fallback does not apply to
// them, a failed capture is reported and retried from scratch.
type CaptureAdapter struct {
	M *Manager
}

func (a CaptureAdapter) AddCapture(ctx context.Context, data []byte, mime string) (session.ImageRef, error) {
	return a.M.AddStrict(ctx, data, mime)
}
