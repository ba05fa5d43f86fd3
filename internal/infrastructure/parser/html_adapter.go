package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"BlogHarvester/internal/adapter"
	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/infrastructure/llm"
	"BlogHarvester/internal/ports"
)

// llmHTMLBudget caps how much page HTML is handed to the extractor.
const llmHTMLBudget = 40_000

const extractorSystemPrompt = `You extract blog post listings from raw HTML.
Return ONLY a JSON array, no prose, no markdown fences. Each element:
{"title": string, "link": string, "publishedAt": string or "", "author": string or null, "image": string or null}.
Only include real article entries from the page's main listing. Ignore
navigation, sidebars and related-post widgets. Links may be relative.`

// SiteScraper is one site-specific extractor inside the ordered registry.
type SiteScraper interface {
	Matches(originURL string) bool
	Extract(doc *goquery.Document, baseURL string) []domain.RawPost
}

// HTMLAdapter serves generic-HTML sources: site scrapers are tried in
// order and the first returning at least one post wins; an LLM-based
// extractor is the last resort. A failed extraction yields an empty
// list, never an error.
type HTMLAdapter struct {
	client     *http.Client
	scrapers   []SiteScraper
	completion ports.Completion
	logger     *slog.Logger
}

var _ adapter.Adapter = (*HTMLAdapter)(nil)

// NewHTMLAdapter wires the scraper registry and the LLM fallback.
func NewHTMLAdapter(client *http.Client, scrapers []SiteScraper, completion ports.Completion, logger *slog.Logger) *HTMLAdapter {
	if client == nil {
		client = HTTPClient(0)
	}
	return &HTMLAdapter{client: client, scrapers: scrapers, completion: completion, logger: logger}
}

// Kind identifies the adapter inside the registry.
func (h *HTMLAdapter) Kind() domain.PlatformKind {
	return domain.PlatformGenericHTML
}

// Fetch downloads the origin page and runs the extractor chain.
func (h *HTMLAdapter) Fetch(ctx context.Context, source domain.Source) ([]domain.RawPost, error) {
	body, err := fetchBytes(ctx, h.client, source.OriginURL)
	if err != nil {
		return nil, fmt.Errorf("fetch origin: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse origin %s: %w", source.OriginURL, err)
	}

	for _, scraper := range h.scrapers {
		if !scraper.Matches(source.OriginURL) {
			continue
		}
		posts := scraper.Extract(doc, source.OriginURL)
		if len(posts) > 0 {
			for i := range posts {
				posts[i].SourceID = source.ID
			}
			return posts, nil
		}
	}

	return h.llmExtract(ctx, source, string(body)), nil
}

// llmExtractedPost is the strict schema the model must return.
type llmExtractedPost struct {
	Title       string  `json:"title"`
	Link        string  `json:"link"`
	PublishedAt string  `json:"publishedAt"`
	Author      *string `json:"author"`
	Image       *string `json:"image"`
}

func (h *HTMLAdapter) llmExtract(ctx context.Context, source domain.Source, html string) []domain.RawPost {
	if h.completion == nil {
		return nil
	}
	if len(html) > llmHTMLBudget {
		html = html[:llmHTMLBudget]
	}

	raw, err := h.completion.Complete(ctx, extractorSystemPrompt,
		fmt.Sprintf("Base URL: %s\n\nHTML:\n%s", source.OriginURL, html))
	if err != nil {
		h.warn("llm extraction failed", "source", source.ID, "error", err)
		return nil
	}

	payload, err := llm.ExtractJSON(raw)
	if err != nil {
		h.warn("llm returned no parseable json", "source", source.ID, "error", err)
		return nil
	}

	var extracted []llmExtractedPost
	if err := json.Unmarshal(payload, &extracted); err != nil {
		h.warn("llm json failed schema", "source", source.ID, "error", err)
		return nil
	}

	posts := make([]domain.RawPost, 0, len(extracted))
	for _, e := range extracted {
		link := absolutize(source.OriginURL, e.Link)
		title := strings.TrimSpace(e.Title)
		if title == "" || link == "" {
			continue
		}
		published, _ := parseAnyDate(e.PublishedAt)
		post := domain.RawPost{
			Title:       title,
			Link:        link,
			PublishedAt: published,
			SourceID:    source.ID,
		}
		if e.Author != nil {
			post.Author = strings.TrimSpace(*e.Author)
		}
		if e.Image != nil {
			post.Image = absolutize(source.OriginURL, *e.Image)
		}
		posts = append(posts, post)
	}
	return posts
}

func (h *HTMLAdapter) warn(msg string, args ...any) {
	if h.logger != nil {
		h.logger.Warn(msg, args...)
	}
}
