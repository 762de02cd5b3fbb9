package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Wislan-Pablo/resumopro.com.br/internal/imageextract"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/storage"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/store"
)

var pngBytes = append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 16)...)

type memSummaries struct {
	html    map[string]string
	current map[string]string
}

func newMemSummaries() *memSummaries {
	return &memSummaries{html: map[string]string{}, current: map[string]string{}}
}

func (m *memSummaries) Save(_ context.Context, userID, pdfName, html string) error {
	m.html[userID+":"+pdfName] = html
	return nil
}

func (m *memSummaries) Load(_ context.Context, userID, pdfName string) (string, bool, error) {
	h, ok := m.html[userID+":"+pdfName]
	return h, ok, nil
}

func (m *memSummaries) SetCurrentPDF(_ context.Context, userID, pdfName string) error {
	m.current[userID] = pdfName
	return nil
}

func (m *memSummaries) CurrentPDF(_ context.Context, userID string) (string, error) {
	return m.current[userID], nil
}

type memProjects struct {
	byUser map[string]map[string]store.Project
}

func newMemProjects() *memProjects {
	return &memProjects{byUser: map[string]map[string]store.Project{}}
}

func (m *memProjects) Save(_ context.Context, userID string, p store.Project) (store.Project, error) {
	if p.Slug == "" {
		p.Slug = store.Slugify(p.Name)
	}
	if m.byUser[userID] == nil {
		m.byUser[userID] = map[string]store.Project{}
	}
	m.byUser[userID][p.Slug] = p
	return p, nil
}

func (m *memProjects) Get(_ context.Context, userID, slug string) (store.Project, bool, error) {
	p, ok := m.byUser[userID][slug]
	return p, ok, nil
}

func (m *memProjects) List(_ context.Context, userID string) ([]store.Project, error) {
	var out []store.Project
	for _, p := range m.byUser[userID] {
		out = append(out, p)
	}
	return out, nil
}

func (m *memProjects) Delete(_ context.Context, userID, slug string) error {
	delete(m.byUser[userID], slug)
	return nil
}

// fakeExtractor writes two page images and a manifest straight to storage.
type fakeExtractor struct {
	blobs storage.BlobStore
	calls int
}

func (f *fakeExtractor) Extract(ctx context.Context, userID, pdfName string, _ []byte) ([]imageextract.Entry, error) {
	f.calls++
	entries := []imageextract.Entry{{Name: "img_001.png", Page: 1}, {Name: "img_002.png", Page: 2}}
	prefix := imageextract.Prefix(userID, pdfName)
	for _, e := range entries {
		if err := f.blobs.Put(ctx, prefix+"/"+e.Name, pngBytes, "image/png", nil); err != nil {
			return nil, err
		}
	}
	manifest, _ := json.Marshal(entries)
	if err := f.blobs.Put(ctx, prefix+"/manifest.json", manifest, "application/json", nil); err != nil {
		return nil, err
	}
	return entries, nil
}

type fixture struct {
	srv       *httptest.Server
	summaries *memSummaries
	extractor *fakeExtractor
}

func newServer(t *testing.T) *fixture {
	t.Helper()
	blobs, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	summaries := newMemSummaries()
	extractor := &fakeExtractor{blobs: blobs}
	s := NewServer(blobs, summaries, newMemProjects(), extractor, nil, 25)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, summaries: summaries, extractor: extractor}
}

func (f *fixture) request(t *testing.T, method, path, contentType string, body []byte, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "user-1"})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func multipartBody(t *testing.T, field, filename string, data []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()
	return buf.Bytes(), mw.FormDataContentType()
}

func TestRequiresSessionCookie(t *testing.T) {
	f := newServer(t)
	resp, err := http.Get(f.srv.URL + "/api/me")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "UNAUTHORIZED" {
		t.Fatalf("error = %q", body["error"])
	}
}

func TestCaptureUploadListDelete(t *testing.T) {
	f := newServer(t)

	body, ct := multipartBody(t, "file", "print.png", pngBytes)
	var uploaded imageEntry
	if code := f.request(t, http.MethodPost, "/api/captures/upload", ct, body, &uploaded); code != http.StatusOK {
		t.Fatalf("upload status = %d", code)
	}
	if uploaded.ID == "" || !strings.HasPrefix(uploaded.URL, "/api/files/captures/") {
		t.Fatalf("uploaded = %+v", uploaded)
	}

	var list struct {
		Images []imageEntry `json:"images"`
	}
	f.request(t, http.MethodGet, "/api/captures/list", "", nil, &list)
	if len(list.Images) != 1 || list.Images[0].ID != uploaded.ID {
		t.Fatalf("list = %+v", list.Images)
	}

	del, _ := json.Marshal(map[string]string{"id": uploaded.ID})
	if code := f.request(t, http.MethodPost, "/api/captures/delete", "application/json", del, nil); code != http.StatusOK {
		t.Fatalf("delete status = %d", code)
	}
	f.request(t, http.MethodGet, "/api/captures/list", "", nil, &list)
	if len(list.Images) != 0 {
		t.Fatalf("list after delete = %+v", list.Images)
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	f := newServer(t)
	body, ct := multipartBody(t, "file", "nota.txt", []byte("apenas texto"))
	if code := f.request(t, http.MethodPost, "/api/uploads/upload", ct, body, nil); code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
}

func TestUploadPDFAndEditorData(t *testing.T) {
	f := newServer(t)

	pdf := []byte("%PDF-1.4\n%fake body\n%%EOF")
	body, ct := multipartBody(t, "file", "apostila.pdf", pdf)
	var upload struct {
		PDFName string               `json:"pdf_name"`
		Images  []imageextract.Entry `json:"images"`
	}
	if code := f.request(t, http.MethodPost, "/api/upload-pdf", ct, body, &upload); code != http.StatusOK {
		t.Fatalf("upload-pdf status = %d", code)
	}
	if upload.PDFName != "apostila.pdf" || len(upload.Images) != 2 {
		t.Fatalf("upload = %+v", upload)
	}

	save, _ := json.Marshal(map[string]string{"html": "<p>resumo</p>"})
	if code := f.request(t, http.MethodPost, "/api/save-structured-summary", "application/json", save, nil); code != http.StatusOK {
		t.Fatalf("save status = %d", code)
	}

	var data struct {
		HTML        string         `json:"html"`
		PDFName     string         `json:"pdf_name"`
		Images      []string       `json:"images"`
		ImagensInfo map[string]int `json:"imagens_info"`
	}
	f.request(t, http.MethodGet, "/api/get-editor-data", "", nil, &data)
	if data.HTML != "<p>resumo</p>" || data.PDFName != "apostila.pdf" {
		t.Fatalf("editor data = %+v", data)
	}
	if len(data.Images) != 2 || data.ImagensInfo["img_002.png"] != 2 {
		t.Fatalf("manifest data = %+v", data)
	}
}

func TestRecoverReextractsFromStoredPDF(t *testing.T) {
	f := newServer(t)

	pdf := []byte("%PDF-1.4\nconteúdo\n%%EOF")
	body, ct := multipartBody(t, "file", "apostila.pdf", pdf)
	f.request(t, http.MethodPost, "/api/upload-pdf", ct, body, nil)

	if code := f.request(t, http.MethodPost, "/api/delete-all-images", "", nil, nil); code != http.StatusOK {
		t.Fatalf("delete-all-images status = %d", code)
	}
	var recovered struct {
		Images []imageextract.Entry `json:"images"`
	}
	if code := f.request(t, http.MethodPost, "/api/recover-initial-images", "", nil, &recovered); code != http.StatusOK {
		t.Fatalf("recover status = %d", code)
	}
	if len(recovered.Images) != 2 {
		t.Fatalf("recovered = %+v", recovered.Images)
	}
	if f.extractor.calls != 2 {
		t.Fatalf("extractor calls = %d, want 2", f.extractor.calls)
	}

	// The embedded placeholder path serves the regenerated image.
	code := f.request(t, http.MethodGet, "/temp_uploads/imagens_extraidas/img_001.png?v=3", "", nil, nil)
	if code != http.StatusOK {
		t.Fatalf("extracted image status = %d", code)
	}
}

func TestRecoverWithoutPDF(t *testing.T) {
	f := newServer(t)
	if code := f.request(t, http.MethodPost, "/api/recover-initial-images", "", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
}

func TestProjectLifecycle(t *testing.T) {
	f := newServer(t)

	save, _ := json.Marshal(map[string]any{
		"name":           "Relatório Física",
		"html":           "<p>snapshot</p>",
		"pdf_name":       "apostila.pdf",
		"gallery_images": []string{"img_001.png"},
	})
	var p store.Project
	if code := f.request(t, http.MethodPost, "/api/editor-state/save", "application/json", save, &p); code != http.StatusOK {
		t.Fatalf("save status = %d", code)
	}
	if p.Slug != "relatorio-fisica" {
		t.Fatalf("slug = %q", p.Slug)
	}

	var got store.Project
	code := f.request(t, http.MethodGet, "/api/editor-state/get?slug="+p.Slug, "", nil, &got)
	if code != http.StatusOK || got.HTML != "<p>snapshot</p>" {
		t.Fatalf("get = %d %+v", code, got)
	}

	del, _ := json.Marshal(map[string]string{"slug": p.Slug})
	f.request(t, http.MethodPost, "/api/editor-state/delete", "application/json", del, nil)
	if code := f.request(t, http.MethodGet, "/api/editor-state/get?slug="+p.Slug, "", nil, nil); code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", code)
	}
}

func TestFileServingIsolatedPerUser(t *testing.T) {
	f := newServer(t)

	body, ct := multipartBody(t, "file", "print.png", pngBytes)
	var uploaded imageEntry
	f.request(t, http.MethodPost, "/api/captures/upload", ct, body, &uploaded)

	// Another user cannot read it through the same URL.
	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+uploaded.URL, nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "user-2"})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-user status = %d, want 404", resp.StatusCode)
	}

	if code := f.request(t, http.MethodGet, uploaded.URL, "", nil, nil); code != http.StatusOK {
		t.Fatalf("owner status = %d", code)
	}
}

func TestMethodGuards(t *testing.T) {
	f := newServer(t)
	paths := []string{
		"/api/save-structured-summary",
		"/api/captures/delete",
		"/api/editor-state/delete",
	}
	for _, p := range paths {
		if code := f.request(t, http.MethodGet, p, "", nil, nil); code != http.StatusMethodNotAllowed {
			t.Fatalf("%s GET = %d, want 405", p, code)
		}
	}
}
