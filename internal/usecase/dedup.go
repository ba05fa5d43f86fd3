package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/ports"
)

// DedupGateway filters already-known links in bulk before posts enter
// the pipeline. A redis seen-set answers for hot links; the store's
// unique link index is the final correctness backstop.
type DedupGateway struct {
	posts  ports.PostRepository
	cache  ports.LinkCache
	logger *slog.Logger
}

// NewDedupGateway wires the store and the optional cache layer.
func NewDedupGateway(posts ports.PostRepository, cache ports.LinkCache, logger *slog.Logger) *DedupGateway {
	return &DedupGateway{posts: posts, cache: cache, logger: logger}
}

// FilterNew drops invalid posts, then performs one bulk existence check
// and returns only posts whose link is unseen. A zero publish time is
// derived from the harvest time rather than failing validation.
func (g *DedupGateway) FilterNew(ctx context.Context, posts []domain.RawPost) ([]domain.RawPost, error) {
	valid := make([]domain.RawPost, 0, len(posts))
	links := make([]string, 0, len(posts))
	for _, p := range posts {
		if err := validateRawPost(p); err != nil {
			g.debug("dropping invalid post", "link", p.Link, "reason", err)
			continue
		}
		if p.PublishedAt.IsZero() {
			p.PublishedAt = time.Now().UTC()
		}
		valid = append(valid, p)
		links = append(links, p.Link)
	}
	if len(valid) == 0 {
		return nil, nil
	}

	seen := map[string]bool{}
	if g.cache != nil {
		cached, err := g.cache.Seen(ctx, links)
		if err != nil {
			g.debug("link cache unavailable, falling through to store", "error", err)
		} else {
			seen = cached
		}
	}

	unknown := make([]string, 0, len(links))
	for _, link := range links {
		if !seen[link] {
			unknown = append(unknown, link)
		}
	}
	if len(unknown) > 0 && g.posts != nil {
		existing, err := g.posts.ExistingLinks(ctx, unknown)
		if err != nil {
			return nil, fmt.Errorf("bulk existence check: %w", err)
		}
		for link, exists := range existing {
			if exists {
				seen[link] = true
			}
		}
	}

	fresh := make([]domain.RawPost, 0, len(valid))
	for _, p := range valid {
		if seen[p.Link] {
			continue
		}
		fresh = append(fresh, p)
	}
	return fresh, nil
}

// MarkPersisted records links in the cache after a successful save;
// cache failures are logged, never surfaced.
func (g *DedupGateway) MarkPersisted(ctx context.Context, links []string) {
	if g.cache == nil || len(links) == 0 {
		return
	}
	if err := g.cache.MarkSeen(ctx, links); err != nil {
		g.debug("link cache mark failed", "error", err)
	}
}

func validateRawPost(p domain.RawPost) error {
	if p.Title == "" {
		return fmt.Errorf("empty title")
	}
	if p.SourceID == "" {
		return fmt.Errorf("missing source tag")
	}
	u, err := url.Parse(p.Link)
	if err != nil {
		return fmt.Errorf("unparseable link: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("link is not absolute http(s)")
	}
	return nil
}

func (g *DedupGateway) debug(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}
