package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Wislan-Pablo/resumopro.com.br/internal/notify"
)

// ErrUnauthorized is returned for any 401 from any endpoint. The surrounding
// shell reacts by prompting re-login; this layer never refreshes credentials
// itself.
var ErrUnauthorized = errors.New("apiclient: unauthorized")

// Client wraps HTTP access to the backend. All collection managers and the
// persistence bridge go through it so 401 handling and user-facing error
// notification stay in one place.
type Client struct {
	base     string
	http     *http.Client
	notifier notify.Notifier
}

// New builds a client for the given base URL. Cookies are kept so the
// session credential travels with every request.
func New(base string, notifier notify.Notifier) *Client {
	jar, _ := cookiejar.New(nil)
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Client{
		base:     base,
		http:     &http.Client{Jar: jar, Timeout: 30 * time.Second},
		notifier: notifier,
	}
}

// User is the authenticated session owner.
type User struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Me fetches the current user, surfacing ErrUnauthorized for expired
// sessions.
func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	if err := c.GetJSON(ctx, "/api/me", &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// GetJSON issues a GET and decodes a JSON body into out. Pass nil to discard
// the body.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

// PostJSON issues a POST with a JSON body and decodes a JSON response into
// out when non-nil.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// Upload sends one file as multipart form data under the given field name.
func (c *Client) Upload(ctx context.Context, path, field, filename, mime string, data []byte, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if mime == "" {
		mime = "application/octet-stream"
	}
	hdr.Set("Content-Type", mime)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, out)
}

// FetchBytes downloads a resource as raw bytes, used by the clipboard copier
// when an item holds no in-memory blob.
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, string, error) {
	if url != "" && url[0] == '/' {
		url = c.base + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Cache-Control", "no-store")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp); err != nil {
		return nil, "", err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.notifier.Notify(notify.Error, "Sessão expirada. Faça login novamente.")
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		c.notifier.Notify(notify.Error, "Recurso não encontrado.")
	case resp.StatusCode >= 500:
		c.notifier.Notify(notify.Error, "Erro no servidor.")
	case resp.StatusCode >= 400:
		c.notifier.Notify(notify.Error, "Erro na requisição.")
	}
	if resp.StatusCode >= 400 {
		log.Debug().Int("status", resp.StatusCode).Str("url", resp.Request.URL.Path).Msg("request failed")
		return fmt.Errorf("apiclient: http %d", resp.StatusCode)
	}
	return nil
}
