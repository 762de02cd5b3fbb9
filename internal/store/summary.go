package store

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// SummaryStore keeps each user's working summary document in Redis. One
// summary exists per user and source PDF.
type SummaryStore struct {
	client *redis.Client
}

func NewSummaryStore(redisURL string) (*SummaryStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &SummaryStore{client: c}, nil
}

func (s *SummaryStore) Close() error { return s.client.Close() }

// Client returns the underlying Redis client so other stores can share the
// connection.
func (s *SummaryStore) Client() *redis.Client { return s.client }

func (s *SummaryStore) key(userID, pdfName string) string {
	return fmt.Sprintf("summary:%s:%s", userID, pdfName)
}

func (s *SummaryStore) Save(ctx context.Context, userID, pdfName, html string) error {
	m := map[string]interface{}{
		"html":     html,
		"saved_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	return s.client.HSet(ctx, s.key(userID, pdfName), m).Err()
}

// Load returns the stored summary HTML. A missing summary is not an error;
// it returns the empty string with found=false.
func (s *SummaryStore) Load(ctx context.Context, userID, pdfName string) (string, bool, error) {
	res, err := s.client.HGetAll(ctx, s.key(userID, pdfName)).Result()
	if err != nil {
		return "", false, err
	}
	if len(res) == 0 {
		return "", false, nil
	}
	return res["html"], true, nil
}

func (s *SummaryStore) Delete(ctx context.Context, userID, pdfName string) error {
	return s.client.Del(ctx, s.key(userID, pdfName)).Err()
}

// SetCurrentPDF records which source document the user is working on.
func (s *SummaryStore) SetCurrentPDF(ctx context.Context, userID, pdfName string) error {
	return s.client.Set(ctx, fmt.Sprintf("current_pdf:%s", userID), pdfName, 0).Err()
}

// CurrentPDF returns the user's active source document, or "" when none was
// uploaded yet.
func (s *SummaryStore) CurrentPDF(ctx context.Context, userID string) (string, error) {
	v, err := s.client.Get(ctx, fmt.Sprintf("current_pdf:%s", userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}
