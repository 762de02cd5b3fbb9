package persist

import (
	"context"

	"github.com/Wislan-Pablo/resumopro.com.br/internal/apiclient"
)

// HTTPStore saves and loads the summary through the backend API.
type HTTPStore struct {
	api *apiclient.Client
}

func NewHTTPStore(api *apiclient.Client) *HTTPStore {
	return &HTTPStore{api: api}
}

func (s *HTTPStore) SaveSummary(ctx context.Context, html string) error {
	return s.api.PostJSON(ctx, "/api/save-structured-summary", map[string]string{"html": html}, nil)
}

func (s *HTTPStore) LoadSummary(ctx context.Context) (string, error) {
	var body struct {
		HTML string `json:"html"`
	}
	if err := s.api.GetJSON(ctx, "/api/get-editor-data", &body); err != nil {
		return "", err
	}
	return body.HTML, nil
}
