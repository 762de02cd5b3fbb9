package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	redis "github.com/redis/go-redis/v9"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Project is a named snapshot of the editor: the summary markup plus the
// gallery refs it depended on at save time. Snapshots are independent copies;
// later edits to the live document never touch them.
type Project struct {
	Slug          string    `json:"slug"`
	Name          string    `json:"name"`
	HTML          string    `json:"html"`
	PDFName       string    `json:"pdf_name"`
	GalleryImages []string  `json:"gallery_images"`
	SavedAt       time.Time `json:"saved_at"`
}

// ProjectStore keeps project snapshots in Redis, one hash per project plus a
// per-user index sorted by save time.
type ProjectStore struct {
	client *redis.Client
}

func NewProjectStore(client *redis.Client) *ProjectStore {
	return &ProjectStore{client: client}
}

func (s *ProjectStore) key(userID, slug string) string {
	return fmt.Sprintf("project:%s:%s", userID, slug)
}

func (s *ProjectStore) indexKey(userID string) string {
	return fmt.Sprintf("projects:%s", userID)
}

var slugDashes = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify folds a project name into a stable key: accents stripped,
// lowercased, runs of other characters collapsed to single dashes.
// "Relatório Física 2ª prova" becomes "relatorio-fisica-2a-prova".
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)
	folded = strings.ReplaceAll(folded, "ª", "a")
	folded = strings.ReplaceAll(folded, "º", "o")
	return strings.Trim(slugDashes.ReplaceAllString(folded, "-"), "-")
}

// Save stores a snapshot under the slug of its name, overwriting any
// previous snapshot with the same slug.
func (s *ProjectStore) Save(ctx context.Context, userID string, p Project) (Project, error) {
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}
	if p.Slug == "" {
		return Project{}, fmt.Errorf("project name %q yields an empty slug", p.Name)
	}
	if p.SavedAt.IsZero() {
		p.SavedAt = time.Now().UTC()
	}
	images, err := json.Marshal(p.GalleryImages)
	if err != nil {
		return Project{}, err
	}
	m := map[string]interface{}{
		"name":           p.Name,
		"html":           p.HTML,
		"pdf_name":       p.PDFName,
		"gallery_images": string(images),
		"saved_at":       p.SavedAt.Format(time.RFC3339Nano),
	}
	if err := s.client.HSet(ctx, s.key(userID, p.Slug), m).Err(); err != nil {
		return Project{}, err
	}
	err = s.client.ZAdd(ctx, s.indexKey(userID), redis.Z{
		Score:  float64(p.SavedAt.UnixNano()),
		Member: p.Slug,
	}).Err()
	if err != nil {
		return Project{}, err
	}
	return p, nil
}

func (s *ProjectStore) Get(ctx context.Context, userID, slug string) (Project, bool, error) {
	res, err := s.client.HGetAll(ctx, s.key(userID, slug)).Result()
	if err != nil {
		return Project{}, false, err
	}
	if len(res) == 0 {
		return Project{}, false, nil
	}
	p := Project{
		Slug:    slug,
		Name:    res["name"],
		HTML:    res["html"],
		PDFName: res["pdf_name"],
	}
	if v := res["gallery_images"]; v != "" {
		_ = json.Unmarshal([]byte(v), &p.GalleryImages)
	}
	if v := res["saved_at"]; v != "" {
		if t, perr := time.Parse(time.RFC3339Nano, v); perr == nil {
			p.SavedAt = t
		}
	}
	return p, true, nil
}

// List returns the user's snapshots, most recent first.
func (s *ProjectStore) List(ctx context.Context, userID string) ([]Project, error) {
	slugs, err := s.client.ZRevRange(ctx, s.indexKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Project, 0, len(slugs))
	for _, slug := range slugs {
		p, found, gerr := s.Get(ctx, userID, slug)
		if gerr != nil {
			return nil, gerr
		}
		if !found {
			// Index entry outlived its hash; drop it lazily.
			_ = s.client.ZRem(ctx, s.indexKey(userID), slug).Err()
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *ProjectStore) Delete(ctx context.Context, userID, slug string) error {
	if err := s.client.Del(ctx, s.key(userID, slug)).Err(); err != nil {
		return err
	}
	return s.client.ZRem(ctx, s.indexKey(userID), slug).Err()
}
