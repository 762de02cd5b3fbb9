package gallery

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Wislan-Pablo/resumopro.com.br/internal/metrics"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/session"
)

// Collection is what the controller needs from any gallery manager.
type Collection interface {
	Kind() session.Kind
	List(ctx context.Context) []session.ImageRef
	Count() int
}

// View renders gallery state. The controller never touches presentation
// directly.
type View interface {
	ShowSpinner(on bool)
	Render(k session.Kind, refs []session.ImageRef, emptyMessage, bulkLabel string)
}

var emptyMessages = map[session.Kind]string{
	session.PDF:       "Nenhuma imagem extraída do PDF.",
	session.Captures:  "Nenhuma captura salva. Use Ctrl+V após ativar a captura.",
	session.Uploads:   "Nenhum arquivo enviado.",
	session.Clipboard: "Nenhum item copiado.",
}

var bulkLabels = map[session.Kind]string{
	session.PDF:       "Excluir todas as imagens",
	session.Captures:  "Excluir todas as capturas",
	session.Uploads:   "Excluir todos os envios",
	session.Clipboard: "Limpar área de transferência",
}

// Controller drives gallery mode switches. Each switch shows a spinner for
// at least minShow even when the data is already in memory, so fast loads do
// not flash. Concurrent switches are serialized by an epoch token: a switch
// that finishes after a newer one started renders nothing.
type Controller struct {
	sess        *session.Session
	view        View
	collections map[session.Kind]Collection
	minShow     time.Duration

	now   func() time.Time
	sleep func(time.Duration)

	mu    sync.Mutex
	epoch uint64
}

func NewController(sess *session.Session, view View, minShow time.Duration, colls ...Collection) *Controller {
	c := &Controller{
		sess:        sess,
		view:        view,
		collections: make(map[session.Kind]Collection, len(colls)),
		minShow:     minShow,
		now:         time.Now,
		sleep:       time.Sleep,
	}
	for _, col := range colls {
		c.collections[col.Kind()] = col
	}
	return c
}

// SetMode switches the gallery to collection k and renders its contents.
func (c *Controller) SetMode(ctx context.Context, k session.Kind) {
	if !k.Valid() {
		log.Error().Str("collection", string(k)).Msg("unknown gallery mode")
		return
	}
	c.mu.Lock()
	c.epoch++
	token := c.epoch
	c.mu.Unlock()

	c.sess.SetActiveCollection(k)
	metrics.IncGallerySwitch(string(k))
	c.view.ShowSpinner(true)

	start := c.now()
	var refs []session.ImageRef
	if col, ok := c.collections[k]; ok {
		refs = col.List(ctx)
	}
	if rem := c.minShow - c.now().Sub(start); rem > 0 {
		c.sleep(rem)
	}

	c.mu.Lock()
	stale := token != c.epoch
	c.mu.Unlock()
	if stale {
		return
	}

	c.view.ShowSpinner(false)
	c.view.Render(k, refs, emptyMessages[k], bulkLabels[k])
}

// Refresh re-renders the active collection without changing modes.
func (c *Controller) Refresh(ctx context.Context) {
	c.SetMode(ctx, c.sess.ActiveCollection())
}
