package gallery

import (
	"context"
	"fmt"

	"github.com/Wislan-Pablo/resumopro.com.br/internal/apiclient"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/session"
)

// HTTPRemote serves a user collection over the backend API.
type HTTPRemote struct {
	api  *apiclient.Client
	kind session.Kind
}

func NewHTTPRemote(api *apiclient.Client, kind session.Kind) *HTTPRemote {
	return &HTTPRemote{api: api, kind: kind}
}

type wireImage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (r *HTTPRemote) List(ctx context.Context) ([]session.ImageRef, error) {
	var body struct {
		Images []wireImage `json:"images"`
	}
	if err := r.api.GetJSON(ctx, fmt.Sprintf("/api/%s/list", r.kind), &body); err != nil {
		return nil, err
	}
	refs := make([]session.ImageRef, 0, len(body.Images))
	for _, img := range body.Images {
		refs = append(refs, session.ImageRef{ID: img.ID, URL: img.URL, DisplayName: img.ID})
	}
	return refs, nil
}

func (r *HTTPRemote) Add(ctx context.Context, data []byte, mime string) (session.ImageRef, error) {
	var out wireImage
	err := r.api.Upload(ctx, fmt.Sprintf("/api/%s/upload", r.kind), "file", "imagem.png", mime, data, &out)
	if err != nil {
		return session.ImageRef{}, err
	}
	return session.ImageRef{ID: out.ID, URL: out.URL, DisplayName: out.ID}, nil
}

func (r *HTTPRemote) Delete(ctx context.Context, id string) error {
	return r.api.PostJSON(ctx, fmt.Sprintf("/api/%s/delete", r.kind), map[string]string{"id": id}, nil)
}

func (r *HTTPRemote) DeleteAll(ctx context.Context) error {
	return r.api.PostJSON(ctx, fmt.Sprintf("/api/%s/delete-all", r.kind), nil, nil)
}

// HTTPManifest fetches the extraction manifest from the backend.
type HTTPManifest struct {
	api *apiclient.Client
}

func NewHTTPManifest(api *apiclient.Client) *HTTPManifest {
	return &HTTPManifest{api: api}
}

func (m *HTTPManifest) Manifest(ctx context.Context) ([]ManifestEntry, error) {
	var body struct {
		Images []ManifestEntry `json:"images"`
	}
	if err := m.api.GetJSON(ctx, "/api/pdf-images/list", &body); err != nil {
		return nil, err
	}
	return body.Images, nil
}
