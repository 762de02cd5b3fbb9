package clipboard

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Wislan-Pablo/resumopro.com.br/internal/notify"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/session"
)

// Board is the host clipboard surface. Image writes are only available in
// secure contexts; implementations report that so the copier can pick a
// fallback instead of failing.
type Board interface {
	SecureContext() bool
	WriteImage(ctx context.Context, data []byte, mime string) error
	WriteText(ctx context.Context, text string) error
}

// Fetcher retrieves image bytes for refs that do not own a local blob.
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, string, error)
}

// Feedback flips the per-item "Copiado!" badge on and off.
type Feedback interface {
	SetCopied(id string, on bool)
}

// Copier copies gallery images to the host clipboard, degrading through a
// fallback chain: real image write, then the image URL as text. Whatever
// lands on the clipboard, the user gets the same transient badge.
type Copier struct {
	sess     *session.Session
	board    Board
	fetcher  Fetcher
	feedback Feedback
	notifier notify.Notifier
	ttl      time.Duration

	after func(time.Duration, func()) *time.Timer

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewCopier(sess *session.Session, board Board, fetcher Fetcher, feedback Feedback, notifier notify.Notifier, ttl time.Duration) *Copier {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Copier{
		sess:     sess,
		board:    board,
		fetcher:  fetcher,
		feedback: feedback,
		notifier: notifier,
		ttl:      ttl,
		after:    time.AfterFunc,
		timers:   make(map[string]*time.Timer),
	}
}

// Copy puts the image identified by (kind, id) on the clipboard. It returns
// false only when the ref does not exist; every clipboard-side failure
// degrades to a weaker copy instead of surfacing an error.
func (c *Copier) Copy(ctx context.Context, kind session.Kind, id string) bool {
	ref, ok := c.lookup(kind, id)
	if !ok {
		return false
	}

	if c.board.SecureContext() {
		data, mime, err := c.imageBytes(ctx, ref)
		if err == nil {
			if werr := c.board.WriteImage(ctx, data, mime); werr == nil {
				c.markCopied(id)
				return true
			} else {
				log.Debug().Err(werr).Str("id", id).Msg("image clipboard write failed")
			}
		} else {
			log.Debug().Err(err).Str("id", id).Msg("image bytes unavailable")
		}
	}

	if err := c.board.WriteText(ctx, ref.URL); err != nil {
		log.Warn().Err(err).Str("id", id).Msg("clipboard fallback failed")
		c.notifier.Notify(notify.Error, "Não foi possível copiar a imagem")
		return true
	}
	c.markCopied(id)
	return true
}

func (c *Copier) lookup(kind session.Kind, id string) (session.ImageRef, bool) {
	for _, ref := range c.sess.Images(kind) {
		if ref.ID == id {
			return ref, true
		}
	}
	return session.ImageRef{}, false
}

// imageBytes prefers the locally owned blob and falls back to fetching the
// ref's URL.
func (c *Copier) imageBytes(ctx context.Context, ref session.ImageRef) ([]byte, string, error) {
	if ref.OwnedBlob != nil && !ref.OwnedBlob.Released() {
		return ref.OwnedBlob.Bytes(), ref.OwnedBlob.MIME(), nil
	}
	return c.fetcher.FetchBytes(ctx, ref.URL)
}

// markCopied shows the badge and schedules its dismissal. Copying the same
// item again restarts the countdown instead of stacking badges.
func (c *Copier) markCopied(id string) {
	c.feedback.SetCopied(id, true)
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[id]; ok {
		t.Stop()
	}
	c.timers[id] = c.after(c.ttl, func() {
		c.feedback.SetCopied(id, false)
		c.mu.Lock()
		delete(c.timers, id)
		c.mu.Unlock()
	})
}
