package gallery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Wislan-Pablo/resumopro.com.br/internal/session"
)

type fakeClock struct {
	mu    sync.Mutex
	t     time.Time
	slept []time.Duration
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type renderCall struct {
	kind  session.Kind
	refs  int
	empty string
	bulk  string
}

type viewStub struct {
	mu      sync.Mutex
	spinner []bool
	renders []renderCall
}

func (v *viewStub) ShowSpinner(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.spinner = append(v.spinner, on)
}

func (v *viewStub) Render(k session.Kind, refs []session.ImageRef, empty, bulk string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renders = append(v.renders, renderCall{kind: k, refs: len(refs), empty: empty, bulk: bulk})
}

type fixedCollection struct {
	kind session.Kind
	refs []session.ImageRef
	list func(ctx context.Context)
}

func (c *fixedCollection) Kind() session.Kind { return c.kind }
func (c *fixedCollection) Count() int         { return len(c.refs) }
func (c *fixedCollection) List(ctx context.Context) []session.ImageRef {
	if c.list != nil {
		c.list(ctx)
	}
	return c.refs
}

func TestSetModeEnforcesSpinnerFloor(t *testing.T) {
	sess := session.New()
	view := &viewStub{}
	clock := &fakeClock{t: time.Unix(0, 0)}
	col := &fixedCollection{kind: session.Captures}
	c := NewController(sess, view, 180*time.Millisecond, col)
	c.now, c.sleep = clock.now, clock.sleep

	c.SetMode(context.Background(), session.Captures)

	if len(clock.slept) != 1 || clock.slept[0] != 180*time.Millisecond {
		t.Fatalf("slept = %v, want one 180ms hold", clock.slept)
	}
	if len(view.renders) != 1 || view.renders[0].kind != session.Captures {
		t.Fatalf("renders = %+v", view.renders)
	}
	if view.renders[0].empty == "" || view.renders[0].bulk == "" {
		t.Fatalf("missing mode copy: %+v", view.renders[0])
	}
	if sess.ActiveCollection() != session.Captures {
		t.Fatalf("active = %s", sess.ActiveCollection())
	}
}

func TestSetModeSkipsHoldOnSlowLoad(t *testing.T) {
	sess := session.New()
	view := &viewStub{}
	clock := &fakeClock{t: time.Unix(0, 0)}
	col := &fixedCollection{kind: session.Uploads}
	col.list = func(context.Context) { clock.advance(500 * time.Millisecond) }
	c := NewController(sess, view, 180*time.Millisecond, col)
	c.now, c.sleep = clock.now, clock.sleep

	c.SetMode(context.Background(), session.Uploads)

	if len(clock.slept) != 0 {
		t.Fatalf("slow load still slept: %v", clock.slept)
	}
}

func TestStaleSwitchDoesNotRender(t *testing.T) {
	sess := session.New()
	view := &viewStub{}
	clock := &fakeClock{t: time.Unix(0, 0)}

	var c *Controller
	uploads := &fixedCollection{kind: session.Uploads}
	// A newer switch arrives while the uploads load is still in flight.
	slow := &fixedCollection{kind: session.PDF}
	slow.list = func(ctx context.Context) {
		c.SetMode(ctx, session.Uploads)
	}
	c = NewController(sess, view, 0, slow, uploads)
	c.now, c.sleep = clock.now, clock.sleep

	c.SetMode(context.Background(), session.PDF)

	if len(view.renders) != 1 || view.renders[0].kind != session.Uploads {
		t.Fatalf("renders = %+v, want only the newer switch", view.renders)
	}
	if sess.ActiveCollection() != session.Uploads {
		t.Fatalf("active = %s", sess.ActiveCollection())
	}
}

func TestSetModeRejectsUnknownKind(t *testing.T) {
	sess := session.New()
	view := &viewStub{}
	c := NewController(sess, view, 0)

	c.SetMode(context.Background(), session.Kind("galeria-x"))

	if len(view.renders) != 0 || len(view.spinner) != 0 {
		t.Fatal("unknown mode must be ignored")
	}
}
