package session

import "sync"

// Blob is an in-memory binary payload owned by an ImageRef that has not been
// persisted yet. Its handle must be released exactly once when the owning
// ref leaves its collection; failing to do so leaks the bytes for the
// session lifetime.
type Blob struct {
	mu       sync.Mutex
	data     []byte
	mime     string
	released bool
	releases int
}

// NewBlob wraps bytes with their MIME type.
func NewBlob(data []byte, mime string) *Blob {
	if mime == "" {
		mime = "image/png"
	}
	return &Blob{data: data, mime: mime}
}

// Bytes returns the payload, or nil once released.
func (b *Blob) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return nil
	}
	return b.data
}

// MIME returns the payload content type.
func (b *Blob) MIME() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mime
}

// Release frees the handle. Calling it again is a no-op; ReleaseCount still
// records every call so tests can detect double-revokes.
func (b *Blob) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releases++
	if b.released {
		return
	}
	b.released = true
	b.data = nil
}

// Released reports whether the handle was freed.
func (b *Blob) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

// ReleaseCount returns how many times Release was called.
func (b *Blob) ReleaseCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.releases
}
