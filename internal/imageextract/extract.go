package imageextract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"os"
	"time"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/Wislan-Pablo/resumopro.com.br/internal/metrics"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/storage"
)

// Entry names one extracted page image.
type Entry struct {
	Name string `json:"name"`
	Page int    `json:"page"`
}

const manifestKey = "manifest.json"

// Extractor renders each page of an uploaded PDF to a PNG and stores the
// results plus a manifest under the document's storage prefix.
type Extractor struct {
	store storage.BlobStore
	dpi   int
}

func New(store storage.BlobStore, dpi int) *Extractor {
	if dpi <= 0 {
		dpi = 150
	}
	return &Extractor{store: store, dpi: dpi}
}

// Prefix is the storage prefix holding one document's extracted images.
func Prefix(userID, pdfName string) string {
	return fmt.Sprintf("users/%s/pdf/%s", userID, pdfName)
}

// Extract renders pdfData page by page. Images are named img_001.png,
// img_002.png and so on in page order; the manifest records the mapping. Any
// previous extraction under the same prefix is replaced.
func (e *Extractor) Extract(ctx context.Context, userID, pdfName string, pdfData []byte) ([]Entry, error) {
	start := time.Now()

	// pdfcpu validates the document before mupdf touches it; a corrupt
	// upload fails here with a clean error instead of mid-render.
	pages, err := api.PageCount(bytes.NewReader(pdfData), nil)
	if err != nil {
		return nil, fmt.Errorf("pdf page count failed: %w", err)
	}
	if pages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	// go-fitz wants a file path.
	tmp, err := os.CreateTemp("", "extract-*.pdf")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(pdfData); err != nil {
		tmp.Close()
		return nil, err
	}
	tmp.Close()

	doc, err := fitz.New(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	prefix := Prefix(userID, pdfName)
	if err := e.store.DeletePrefix(ctx, prefix); err != nil {
		log.Warn().Err(err).Str("prefix", prefix).Msg("stale extraction cleanup failed")
	}

	entries := make([]Entry, 0, pages)
	for p := 1; p <= pages; p++ {
		img, rerr := doc.ImageDPI(p-1, float64(e.dpi))
		if rerr != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", p, rerr)
		}
		var buf bytes.Buffer
		if perr := png.Encode(&buf, img); perr != nil {
			return nil, fmt.Errorf("failed to encode page %d: %w", p, perr)
		}
		name := fmt.Sprintf("img_%03d.png", p)
		key := prefix + "/" + name
		if serr := e.store.Put(ctx, key, buf.Bytes(), "image/png", nil); serr != nil {
			return nil, fmt.Errorf("failed to store page %d: %w", p, serr)
		}
		entries = append(entries, Entry{Name: name, Page: p})
		log.Debug().Int("page", p).Str("key", key).Int("size", buf.Len()).Msg("extracted page image")
	}

	manifest, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	if err := e.store.Put(ctx, prefix+"/"+manifestKey, manifest, "application/json", nil); err != nil {
		return nil, fmt.Errorf("failed to store manifest: %w", err)
	}

	metrics.ObserveExtract(time.Since(start), len(entries))
	log.Info().
		Str("user", userID).
		Str("pdf", pdfName).
		Int("pages", pages).
		Dur("took", time.Since(start)).
		Msg("pdf extraction complete")
	return entries, nil
}

// Manifest loads a previous extraction's manifest. A missing manifest
// returns an empty slice.
func Manifest(ctx context.Context, store storage.BlobStore, userID, pdfName string) ([]Entry, error) {
	data, _, err := store.Get(ctx, Prefix(userID, pdfName)+"/"+manifestKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("corrupt manifest: %w", err)
	}
	return entries, nil
}
