package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"BlogHarvester/internal/adapter"
	"BlogHarvester/internal/domain"
)

const (
	archivePageSize = 12
	archiveMaxPages = 25
	// A page smaller than this signals the end of the archive.
	archiveMinItems = 3
)

// ArchiveAdapter walks a paginated JSON archive endpoint (newsletter
// platforms expose these) until a page comes back short or empty.
type ArchiveAdapter struct {
	client *http.Client
	logger *slog.Logger
}

var _ adapter.Adapter = (*ArchiveAdapter)(nil)

// NewArchiveAdapter wires an HTTP client; nil falls back to a 15s-timeout client.
func NewArchiveAdapter(client *http.Client, logger *slog.Logger) *ArchiveAdapter {
	if client == nil {
		client = HTTPClient(0)
	}
	return &ArchiveAdapter{client: client, logger: logger}
}

// Kind identifies the adapter inside the registry.
func (a *ArchiveAdapter) Kind() domain.PlatformKind {
	return domain.PlatformPaginatedArchive
}

type archiveEntry struct {
	Title        string `json:"title"`
	CanonicalURL string `json:"canonical_url"`
	PostDate     string `json:"post_date"`
	CoverImage   string `json:"cover_image"`
	Subtitle     string `json:"subtitle"`
	Author       struct {
		Name string `json:"name"`
	} `json:"author"`
}

// Fetch concatenates archive pages until the end-of-archive signal.
func (a *ArchiveAdapter) Fetch(ctx context.Context, source domain.Source) ([]domain.RawPost, error) {
	endpoint := source.FeedURL
	if endpoint == "" {
		endpoint = strings.TrimSuffix(source.OriginURL, "/") + "/api/v1/archive"
	}

	var posts []domain.RawPost
	for page := 0; page < archiveMaxPages; page++ {
		batch, err := a.fetchPage(ctx, endpoint, page*archivePageSize)
		if err != nil {
			return nil, fmt.Errorf("archive page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break
		}
		for _, entry := range batch {
			post, ok := a.toPost(source, entry)
			if !ok {
				continue
			}
			posts = append(posts, post)
		}
		if len(batch) < archiveMinItems {
			break
		}
	}
	return posts, nil
}

func (a *ArchiveAdapter) fetchPage(ctx context.Context, endpoint string, offset int) ([]archiveEntry, error) {
	pageURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid archive url %s: %w", endpoint, err)
	}
	q := pageURL.Query()
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(archivePageSize))
	pageURL.RawQuery = q.Encode()

	body, err := fetchBytes(ctx, a.client, pageURL.String())
	if err != nil {
		return nil, err
	}

	var entries []archiveEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		// Some platforms wrap the array in a posts field.
		var wrapped struct {
			Posts []archiveEntry `json:"posts"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, fmt.Errorf("decode archive page: %w", err)
		}
		entries = wrapped.Posts
	}
	return entries, nil
}

func (a *ArchiveAdapter) toPost(source domain.Source, entry archiveEntry) (domain.RawPost, bool) {
	link := absolutize(source.OriginURL, entry.CanonicalURL)
	title := strings.TrimSpace(entry.Title)
	if title == "" || link == "" {
		return domain.RawPost{}, false
	}
	published, _ := parseAnyDate(entry.PostDate)
	return domain.RawPost{
		Title:       title,
		Link:        link,
		PublishedAt: published,
		Author:      strings.TrimSpace(entry.Author.Name),
		Image:       absolutize(link, entry.CoverImage),
		BodyText:    strings.TrimSpace(entry.Subtitle),
		SourceID:    source.ID,
	}, true
}
