package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Wislan-Pablo/resumopro.com.br/internal/filetype"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/imageextract"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/limiter"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/metrics"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/storage"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/store"
)

// sessionCookie carries the opaque user id issued at login. The service
// behind this API handles authentication; here an absent or empty cookie is
// simply an anonymous request.
const sessionCookie = "resumopro_session"

// SummaryStore is the summary persistence surface the API needs.
type SummaryStore interface {
	Save(ctx context.Context, userID, pdfName, html string) error
	Load(ctx context.Context, userID, pdfName string) (string, bool, error)
	SetCurrentPDF(ctx context.Context, userID, pdfName string) error
	CurrentPDF(ctx context.Context, userID string) (string, error)
}

// ProjectStore is the snapshot persistence surface the API needs.
type ProjectStore interface {
	Save(ctx context.Context, userID string, p store.Project) (store.Project, error)
	Get(ctx context.Context, userID, slug string) (store.Project, bool, error)
	List(ctx context.Context, userID string) ([]store.Project, error)
	Delete(ctx context.Context, userID, slug string) error
}

// Extractor renders an uploaded PDF into page images.
type Extractor interface {
	Extract(ctx context.Context, userID, pdfName string, pdfData []byte) ([]imageextract.Entry, error)
}

// Server exposes the editor's backend API.
type Server struct {
	blobs     storage.BlobStore
	summaries SummaryStore
	projects  ProjectStore
	extractor Extractor
	limits    *limiter.Upload
	maxUpload int64
}

// NewServer builds the API. limits may be nil; uploads are then unthrottled.
func NewServer(blobs storage.BlobStore, summaries SummaryStore, projects ProjectStore, extractor Extractor, limits *limiter.Upload, maxUploadMB int) *Server {
	if maxUploadMB <= 0 {
		maxUploadMB = 25
	}
	return &Server{
		blobs:     blobs,
		summaries: summaries,
		projects:  projects,
		extractor: extractor,
		limits:    limits,
		maxUpload: int64(maxUploadMB) << 20,
	}
}

// acquireUpload reserves throttle capacity for one upload. The returned
// release func is always safe to call.
func (s *Server) acquireUpload(w http.ResponseWriter, r *http.Request, userID string, size int64) (func(), bool) {
	if s.limits == nil {
		return func() {}, true
	}
	release, err := s.limits.Acquire(r.Context(), userID, size)
	if err != nil {
		if errors.Is(err, limiter.ErrQuotaExceeded) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "limite diário de envios atingido"})
		} else {
			serverError(w, err, "failed to acquire upload slot")
		}
		return nil, false
	}
	return release, true
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/me", s.requireUser(s.handleMe))
	mux.HandleFunc("/api/get-editor-data", s.requireUser(s.handleGetEditorData))
	mux.HandleFunc("/api/save-structured-summary", s.requireUser(s.handleSaveSummary))

	mux.HandleFunc("/api/captures/list", s.requireUser(s.collectionList("captures")))
	mux.HandleFunc("/api/captures/upload", s.requireUser(s.collectionUpload("captures")))
	mux.HandleFunc("/api/captures/delete", s.requireUser(s.collectionDelete("captures")))
	mux.HandleFunc("/api/captures/delete-all", s.requireUser(s.collectionDeleteAll("captures")))
	mux.HandleFunc("/api/uploads/list", s.requireUser(s.collectionList("uploads")))
	mux.HandleFunc("/api/uploads/upload", s.requireUser(s.collectionUpload("uploads")))
	mux.HandleFunc("/api/uploads/delete", s.requireUser(s.collectionDelete("uploads")))
	mux.HandleFunc("/api/uploads/delete-all", s.requireUser(s.collectionDeleteAll("uploads")))

	mux.HandleFunc("/api/pdf-images/list", s.requireUser(s.handlePDFImagesList))
	mux.HandleFunc("/api/delete-all-images", s.requireUser(s.handleDeleteAllImages))
	mux.HandleFunc("/api/upload-pdf", s.requireUser(s.handleUploadPDF))
	mux.HandleFunc("/api/recover-initial-images", s.requireUser(s.handleRecoverImages))
	mux.HandleFunc("/api/list-pdfs", s.requireUser(s.handleListPDFs))

	mux.HandleFunc("/api/editor-state/save", s.requireUser(s.handleProjectSave))
	mux.HandleFunc("/api/editor-state/list", s.requireUser(s.handleProjectList))
	mux.HandleFunc("/api/editor-state/get", s.requireUser(s.handleProjectGet))
	mux.HandleFunc("/api/editor-state/delete", s.requireUser(s.handleProjectDelete))

	mux.HandleFunc("/api/files/", s.requireUser(s.handleFile))
	mux.HandleFunc("/temp_uploads/imagens_extraidas/", s.requireUser(s.handleExtractedImage))
	mux.Handle("/metrics", metrics.Handler())
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

func (s *Server) requireUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil || c.Value == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "UNAUTHORIZED"})
			return
		}
		next(w, r, c.Value)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, userID string) {
	writeJSON(w, http.StatusOK, map[string]string{"user_id": userID})
}

// handleGetEditorData returns everything the editor needs to boot: the saved
// summary, the active PDF and its extraction manifest.
func (s *Server) handleGetEditorData(w http.ResponseWriter, r *http.Request, userID string) {
	ctx := r.Context()
	pdfName, err := s.summaries.CurrentPDF(ctx, userID)
	if err != nil {
		serverError(w, err, "failed to load current pdf")
		return
	}
	html := ""
	if pdfName != "" {
		html, _, err = s.summaries.Load(ctx, userID, pdfName)
		if err != nil {
			serverError(w, err, "failed to load summary")
			return
		}
	}
	entries, err := imageextract.Manifest(ctx, s.blobs, userID, pdfName)
	if err != nil {
		serverError(w, err, "failed to load manifest")
		return
	}
	images := make([]string, 0, len(entries))
	info := make(map[string]int, len(entries))
	for _, e := range entries {
		images = append(images, e.Name)
		info[e.Name] = e.Page
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"html":         html,
		"pdf_name":     pdfName,
		"images":       images,
		"imagens_info": info,
	})
}

func (s *Server) handleSaveSummary(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var body struct {
		HTML string `json:"html"`
	}
	if err := readJSON(r, &body); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	ctx := r.Context()
	pdfName, err := s.summaries.CurrentPDF(ctx, userID)
	if err != nil {
		serverError(w, err, "failed to load current pdf")
		return
	}
	if err := s.summaries.Save(ctx, userID, pdfName, body.HTML); err != nil {
		serverError(w, err, "failed to save summary")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

type imageEntry struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func collectionPrefix(userID, kind string) string {
	return fmt.Sprintf("users/%s/%s", userID, kind)
}

func fileURL(kind, id string) string {
	return fmt.Sprintf("/api/files/%s/%s", kind, id)
}

func (s *Server) collectionList(kind string) userHandler {
	return func(w http.ResponseWriter, r *http.Request, userID string) {
		infos, err := s.blobs.List(r.Context(), collectionPrefix(userID, kind))
		if err != nil {
			serverError(w, err, "failed to list collection")
			return
		}
		out := make([]imageEntry, 0, len(infos))
		for _, info := range infos {
			id := path.Base(info.Key)
			out = append(out, imageEntry{ID: id, URL: fileURL(kind, id)})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		writeJSON(w, http.StatusOK, map[string]any{"images": out})
	}
}

func (s *Server) collectionUpload(kind string) userHandler {
	return func(w http.ResponseWriter, r *http.Request, userID string) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
		if err := r.ParseMultipartForm(s.maxUpload); err != nil {
			badRequest(w, "invalid multipart form")
			return
		}
		file, hdr, err := r.FormFile("file")
		if err != nil {
			badRequest(w, "missing file")
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			serverError(w, err, "failed to read upload")
			return
		}

		info := filetype.Sniff(data)
		if !info.IsImage {
			badRequest(w, "only images are accepted")
			return
		}
		release, ok := s.acquireUpload(w, r, userID, int64(len(data)))
		if !ok {
			return
		}
		defer release()
		id := uuid.NewString() + info.Extension
		key := collectionPrefix(userID, kind) + "/" + id
		meta := map[string]string{"original-name": hdr.Filename}
		if err := s.blobs.Put(r.Context(), key, data, info.MIMEType, meta); err != nil {
			serverError(w, err, "failed to store upload")
			return
		}
		metrics.AddUploadBytes(kind, int64(len(data)))
		metrics.IncCollectionOp(kind, "upload", "ok")
		writeJSON(w, http.StatusOK, imageEntry{ID: id, URL: fileURL(kind, id)})
	}
}

func (s *Server) collectionDelete(kind string) userHandler {
	return func(w http.ResponseWriter, r *http.Request, userID string) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		var body struct {
			ID string `json:"id"`
		}
		if err := readJSON(r, &body); err != nil || body.ID == "" {
			badRequest(w, "missing id")
			return
		}
		key := collectionPrefix(userID, kind) + "/" + path.Base(body.ID)
		if err := s.blobs.Delete(r.Context(), key); err != nil {
			serverError(w, err, "failed to delete image")
			return
		}
		metrics.IncCollectionOp(kind, "delete", "ok")
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func (s *Server) collectionDeleteAll(kind string) userHandler {
	return func(w http.ResponseWriter, r *http.Request, userID string) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		if err := s.blobs.DeletePrefix(r.Context(), collectionPrefix(userID, kind)); err != nil {
			serverError(w, err, "failed to clear collection")
			return
		}
		metrics.IncCollectionOp(kind, "delete_all", "ok")
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func (s *Server) handlePDFImagesList(w http.ResponseWriter, r *http.Request, userID string) {
	ctx := r.Context()
	pdfName, err := s.summaries.CurrentPDF(ctx, userID)
	if err != nil {
		serverError(w, err, "failed to load current pdf")
		return
	}
	entries, err := imageextract.Manifest(ctx, s.blobs, userID, pdfName)
	if err != nil {
		serverError(w, err, "failed to load manifest")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"images": entries})
}

func (s *Server) handleDeleteAllImages(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	ctx := r.Context()
	pdfName, err := s.summaries.CurrentPDF(ctx, userID)
	if err != nil {
		serverError(w, err, "failed to load current pdf")
		return
	}
	if err := s.blobs.DeletePrefix(ctx, imageextract.Prefix(userID, pdfName)); err != nil {
		serverError(w, err, "failed to delete extracted images")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleUploadPDF stores the source document and extracts its page images in
// the same request, so the gallery is ready as soon as the upload returns.
func (s *Server) handleUploadPDF(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "missing file")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		serverError(w, err, "failed to read upload")
		return
	}
	if !filetype.Sniff(data).IsPDF {
		badRequest(w, "only PDF files are accepted")
		return
	}
	release, ok := s.acquireUpload(w, r, userID, int64(len(data)))
	if !ok {
		return
	}
	defer release()

	ctx := r.Context()
	pdfName := path.Base(hdr.Filename)
	if err := s.blobs.Put(ctx, sourceKey(userID, pdfName), data, "application/pdf", nil); err != nil {
		serverError(w, err, "failed to store pdf")
		return
	}
	if err := s.summaries.SetCurrentPDF(ctx, userID, pdfName); err != nil {
		serverError(w, err, "failed to set current pdf")
		return
	}
	entries, err := s.extractor.Extract(ctx, userID, pdfName, data)
	if err != nil {
		serverError(w, err, "extraction failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pdf_name": pdfName, "images": entries})
}

// handleRecoverImages re-runs extraction on the stored source document,
// regenerating every page image from scratch.
func (s *Server) handleRecoverImages(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	ctx := r.Context()
	pdfName, err := s.summaries.CurrentPDF(ctx, userID)
	if err != nil {
		serverError(w, err, "failed to load current pdf")
		return
	}
	if pdfName == "" {
		badRequest(w, "no pdf uploaded")
		return
	}
	data, _, err := s.blobs.Get(ctx, sourceKey(userID, pdfName))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			badRequest(w, "source pdf is gone")
			return
		}
		serverError(w, err, "failed to load source pdf")
		return
	}
	entries, err := s.extractor.Extract(ctx, userID, pdfName, data)
	if err != nil {
		serverError(w, err, "extraction failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"images": entries})
}

func sourceKey(userID, pdfName string) string {
	return fmt.Sprintf("users/%s/source/%s", userID, pdfName)
}

func (s *Server) handleListPDFs(w http.ResponseWriter, r *http.Request, userID string) {
	infos, err := s.blobs.List(r.Context(), fmt.Sprintf("users/%s/source", userID))
	if err != nil {
		serverError(w, err, "failed to list pdfs")
		return
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, path.Base(info.Key))
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string]any{"pdfs": names})
}

func (s *Server) handleProjectSave(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var body struct {
		Name          string   `json:"name"`
		HTML          string   `json:"html"`
		PDFName       string   `json:"pdf_name"`
		GalleryImages []string `json:"gallery_images"`
	}
	if err := readJSON(r, &body); err != nil || body.Name == "" {
		badRequest(w, "missing project name")
		return
	}
	p, err := s.projects.Save(r.Context(), userID, store.Project{
		Name:          body.Name,
		HTML:          body.HTML,
		PDFName:       body.PDFName,
		GalleryImages: body.GalleryImages,
	})
	if err != nil {
		serverError(w, err, "failed to save project")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProjectList(w http.ResponseWriter, r *http.Request, userID string) {
	projects, err := s.projects.List(r.Context(), userID)
	if err != nil {
		serverError(w, err, "failed to list projects")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) handleProjectGet(w http.ResponseWriter, r *http.Request, userID string) {
	slug := r.URL.Query().Get("slug")
	if slug == "" {
		badRequest(w, "missing slug")
		return
	}
	p, found, err := s.projects.Get(r.Context(), userID, slug)
	if err != nil {
		serverError(w, err, "failed to load project")
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "project not found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProjectDelete(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var body struct {
		Slug string `json:"slug"`
	}
	if err := readJSON(r, &body); err != nil || body.Slug == "" {
		badRequest(w, "missing slug")
		return
	}
	if err := s.projects.Delete(r.Context(), userID, body.Slug); err != nil {
		serverError(w, err, "failed to delete project")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleFile serves a stored collection image: /api/files/{kind}/{id}.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request, userID string) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/files/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || (parts[0] != "captures" && parts[0] != "uploads") {
		badRequest(w, "invalid file path")
		return
	}
	key := collectionPrefix(userID, parts[0]) + "/" + path.Base(parts[1])
	s.serveObject(w, r, key)
}

// handleExtractedImage serves PDF page images under the path the editor
// embeds in placeholders. The cache-bust query parameter only varies the
// URL; the object behind it is always the latest extraction.
func (s *Server) handleExtractedImage(w http.ResponseWriter, r *http.Request, userID string) {
	ctx := r.Context()
	pdfName, err := s.summaries.CurrentPDF(ctx, userID)
	if err != nil || pdfName == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "image not found"})
		return
	}
	name := path.Base(strings.TrimPrefix(r.URL.Path, "/temp_uploads/imagens_extraidas/"))
	s.serveObject(w, r, imageextract.Prefix(userID, pdfName)+"/"+name)
}

func (s *Server) serveObject(w http.ResponseWriter, r *http.Request, key string) {
	data, info, err := s.blobs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "image not found"})
			return
		}
		serverError(w, err, "failed to load image")
		return
	}
	ct := info.ContentType
	if ct == "" {
		ct = mimetype.Detect(data).String()
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func readJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

func serverError(w http.ResponseWriter, err error, msg string) {
	log.Error().Err(err).Msg(msg)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
}
