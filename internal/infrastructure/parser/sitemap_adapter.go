package parser

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"BlogHarvester/internal/adapter"
	"BlogHarvester/internal/domain"
)

// defaultPostPath matches yeared permalinks and the common /p/ and
// /blog/ conventions; a source's ExtractionMethod may override it.
const defaultPostPath = `/(20\d\d/|p/|post/|blog/[^/]+)`

const maxSitemapDepth = 3

// SitemapAdapter walks a sitemap index recursively, keeps URLs matching
// the platform's post-path convention and extracts metadata from each
// post page.
type SitemapAdapter struct {
	client   *http.Client
	logger   *slog.Logger
	maxPosts int
}

var _ adapter.Adapter = (*SitemapAdapter)(nil)

// NewSitemapAdapter wires an HTTP client; maxPosts caps per-run page fetches.
func NewSitemapAdapter(client *http.Client, logger *slog.Logger) *SitemapAdapter {
	if client == nil {
		client = HTTPClient(0)
	}
	return &SitemapAdapter{client: client, logger: logger, maxPosts: 100}
}

// Kind identifies the adapter inside the registry.
func (s *SitemapAdapter) Kind() domain.PlatformKind {
	return domain.PlatformSitemap
}

type sitemapIndex struct {
	Sitemaps []sitemapRef `xml:"sitemap"`
	URLs     []sitemapRef `xml:"url"`
}

type sitemapRef struct {
	Loc string `xml:"loc"`
}

// Fetch collects post URLs from the sitemap tree and parses each page.
func (s *SitemapAdapter) Fetch(ctx context.Context, source domain.Source) ([]domain.RawPost, error) {
	pattern := defaultPostPath
	if source.ExtractionMethod != "" {
		pattern = source.ExtractionMethod
	}
	pathExpr, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("post path pattern %q: %w", pattern, err)
	}

	top := source.FeedURL
	if top == "" {
		top = strings.TrimSuffix(source.OriginURL, "/") + "/sitemap.xml"
	}

	seen := map[string]struct{}{}
	var links []string
	if err := s.collect(ctx, top, pathExpr, seen, &links, 0); err != nil {
		return nil, err
	}

	if len(links) > s.maxPosts {
		links = links[:s.maxPosts]
	}

	posts := make([]domain.RawPost, 0, len(links))
	for _, link := range links {
		doc, err := fetchDocument(ctx, s.client, link)
		if err != nil {
			s.debug("post page fetch failed", "link", link, "error", err)
			continue
		}
		title := titleFromDoc(doc)
		if title == "" {
			continue
		}
		published, _ := dateFromDoc(doc)
		posts = append(posts, domain.RawPost{
			Title:       title,
			Link:        link,
			PublishedAt: published,
			Author:      authorFromDoc(doc),
			Image:       imageFromDoc(doc, link),
			BodyText:    bodyTextFromDoc(doc),
			SourceID:    source.ID,
		})
	}
	return posts, nil
}

func (s *SitemapAdapter) collect(ctx context.Context, sitemapURL string, pathExpr *regexp.Regexp, seen map[string]struct{}, links *[]string, depth int) error {
	if depth > maxSitemapDepth {
		return nil
	}
	body, err := fetchBytes(ctx, s.client, sitemapURL)
	if err != nil {
		if depth == 0 {
			return fmt.Errorf("fetch sitemap: %w", err)
		}
		s.debug("child sitemap fetch failed", "url", sitemapURL, "error", err)
		return nil
	}

	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err != nil {
		if depth == 0 {
			return fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
		}
		s.debug("child sitemap parse failed", "url", sitemapURL, "error", err)
		return nil
	}

	for _, child := range index.Sitemaps {
		loc := strings.TrimSpace(child.Loc)
		if loc == "" {
			continue
		}
		if err := s.collect(ctx, loc, pathExpr, seen, links, depth+1); err != nil {
			return err
		}
	}

	for _, entry := range index.URLs {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" || !pathExpr.MatchString(loc) {
			continue
		}
		if _, ok := seen[loc]; ok {
			continue
		}
		seen[loc] = struct{}{}
		*links = append(*links, loc)
	}
	return nil
}

func (s *SitemapAdapter) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
