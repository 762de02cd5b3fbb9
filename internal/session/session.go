package session

import (
	"fmt"
	"sync"
	"time"
)

// Kind identifies one of the four image collections.
type Kind string

const (
	PDF       Kind = "pdf"
	Captures  Kind = "captures"
	Uploads   Kind = "uploads"
	Clipboard Kind = "clipboard"
)

// Kinds lists all collections in display order.
var Kinds = []Kind{PDF, Captures, Uploads, Clipboard}

// Valid reports whether k names a known collection.
func (k Kind) Valid() bool {
	switch k {
	case PDF, Captures, Uploads, Clipboard:
		return true
	}
	return false
}

// ImageRef represents one image in a collection.
type ImageRef struct {
	// ID is unique within its collection: the server filename for uploads
	// and PDF-extracted images, a client-generated id for items not yet
	// persisted.
	ID          string
	URL         string
	DisplayName string
	// Page is the originating PDF page, 1-based. Zero for non-PDF items.
	Page int
	// OwnedBlob holds in-memory bytes for items not yet uploaded. It must
	// be released when the ref leaves its collection.
	OwnedBlob *Blob
}

// Session is the shared mutable state of one editor page. One instance is
// created at application start and passed by injection; all writes go
// through its methods.
type Session struct {
	mu          sync.Mutex
	active      Kind
	collections map[Kind][]ImageRef
	placed      []string
	lastSaved   string
	cacheBust   int64
	armed       bool
	infoClosed  bool
}

// New returns a Session with the PDF collection active and an initial
// cache-bust token.
func New() *Session {
	return &Session{
		active:      PDF,
		collections: make(map[Kind][]ImageRef),
		cacheBust:   time.Now().UnixMilli(),
	}
}

// ActiveCollection returns the collection currently shown to the user.
func (s *Session) ActiveCollection() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActiveCollection switches the active collection.
func (s *Session) SetActiveCollection(k Kind) {
	if !k.Valid() {
		k = PDF
	}
	s.mu.Lock()
	s.active = k
	s.mu.Unlock()
}

// Images returns a copy of the collection's current sequence.
func (s *Session) Images(k Kind) []ImageRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := s.collections[k]
	out := make([]ImageRef, len(refs))
	copy(out, refs)
	return out
}

// Count returns the collection's current length without fetching.
func (s *Session) Count(k Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[k])
}

// Replace swaps the collection's contents wholesale. Blobs owned by replaced
// refs that do not reappear in the new sequence are released.
func (s *Session) Replace(k Kind, refs []ImageRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keep := make(map[string]bool, len(refs))
	for _, r := range refs {
		keep[r.ID] = true
	}
	for _, old := range s.collections[k] {
		if old.OwnedBlob != nil && !keep[old.ID] {
			old.OwnedBlob.Release()
		}
	}
	cp := make([]ImageRef, len(refs))
	copy(cp, refs)
	s.collections[k] = cp
}

// Append adds a ref to the end of a collection. It fails if the id already
// exists there, preserving per-collection id uniqueness.
func (s *Session) Append(k Kind, ref ImageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.collections[k] {
		if r.ID == ref.ID {
			return fmt.Errorf("session: duplicate id %q in %s collection", ref.ID, k)
		}
	}
	s.collections[k] = append(s.collections[k], ref)
	return nil
}

// Remove deletes the ref with the given id from a collection, releasing any
// owned blob. It returns the removed ref.
func (s *Session) Remove(k Kind, id string) (ImageRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := s.collections[k]
	for i, r := range refs {
		if r.ID == id {
			if r.OwnedBlob != nil {
				r.OwnedBlob.Release()
			}
			s.collections[k] = append(refs[:i], refs[i+1:]...)
			return r, true
		}
	}
	return ImageRef{}, false
}

// Clear empties a collection, releasing all owned blobs.
func (s *Session) Clear(k Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.collections[k] {
		if r.OwnedBlob != nil {
			r.OwnedBlob.Release()
		}
	}
	s.collections[k] = nil
}

// Promote transitions a locally-held ref to its server-confirmed identity.
// The owned blob is released exactly once; the ref must not keep a stale
// handle past this point. The id changes to the server-assigned one.
func (s *Session) Promote(k Kind, id, serverID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := s.collections[k]
	for i := range refs {
		if refs[i].ID != id {
			continue
		}
		if refs[i].OwnedBlob == nil {
			return fmt.Errorf("session: ref %q in %s has no blob to promote", id, k)
		}
		for _, other := range refs {
			if other.ID == serverID {
				return fmt.Errorf("session: duplicate id %q in %s collection", serverID, k)
			}
		}
		refs[i].OwnedBlob.Release()
		refs[i].OwnedBlob = nil
		refs[i].ID = serverID
		refs[i].URL = url
		return nil
	}
	return fmt.Errorf("session: no ref %q in %s collection", id, k)
}

// PlacedImageIDs returns a copy of the ids currently materialized inside the
// document as tracked placeholders.
func (s *Session) PlacedImageIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.placed))
	copy(out, s.placed)
	return out
}

// AppendPlaced records one tracked placement. Duplicates are allowed: the
// same gallery image may be placed more than once.
func (s *Session) AppendPlaced(id string) {
	s.mu.Lock()
	s.placed = append(s.placed, id)
	s.mu.Unlock()
}

// RemovePlacedFirst removes the first matching placement only, so duplicate
// placements of the same name survive a single removal.
func (s *Session) RemovePlacedFirst(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.placed {
		if p == id {
			s.placed = append(s.placed[:i], s.placed[i+1:]...)
			return true
		}
	}
	return false
}

// ClearPlaced drops all tracked placements.
func (s *Session) ClearPlaced() {
	s.mu.Lock()
	s.placed = nil
	s.mu.Unlock()
}

// PlacedCount returns the number of tracked placements.
func (s *Session) PlacedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.placed)
}

// LastSavedHTML returns the baseline content of the last successful save.
func (s *Session) LastSavedHTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

// SetLastSavedHTML establishes a new dirty-comparison baseline.
func (s *Session) SetLastSavedHTML(html string) {
	s.mu.Lock()
	s.lastSaved = html
	s.mu.Unlock()
}

// CacheBust returns the current cache-defeat token for PDF image URLs.
func (s *Session) CacheBust() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cacheBust
}

// BumpCacheBust advances the token. It is strictly monotonic even when
// called more than once within a millisecond.
func (s *Session) BumpCacheBust() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UnixMilli()
	if now <= s.cacheBust {
		now = s.cacheBust + 1
	}
	s.cacheBust = now
	return now
}

// ArmCapture marks that the next qualifying paste came from the explicit
// capture trigger.
func (s *Session) ArmCapture() {
	s.mu.Lock()
	s.armed = true
	s.mu.Unlock()
}

// ConsumeCaptureArm reports whether a capture was armed and disarms it in
// the same step. One qualifying paste consumes the arm whether or not its
// upload succeeds.
func (s *Session) ConsumeCaptureArm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.armed
	s.armed = false
	return was
}

// SetInfoClosed remembers that the user dismissed the gallery info banner
// for this session.
func (s *Session) SetInfoClosed(v bool) {
	s.mu.Lock()
	s.infoClosed = v
	s.mu.Unlock()
}

// InfoClosed reports whether the gallery info banner was dismissed.
func (s *Session) InfoClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoClosed
}
