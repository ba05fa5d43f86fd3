package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"BlogHarvester/internal/domain"
)

type stubScraper struct {
	match bool
	posts []domain.RawPost
}

func (s *stubScraper) Matches(string) bool { return s.match }
func (s *stubScraper) Extract(*goquery.Document, string) []domain.RawPost {
	return s.posts
}

type stubCompletion struct {
	response string
	err      error
	calls    int
}

func (s *stubCompletion) Complete(_ context.Context, _, _ string) (string, error) {
	s.calls++
	return s.response, s.err
}

func listingServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="whatever">listing</div></body></html>`))
	}))
}

func TestHTMLAdapterFirstMatchingScraperWins(t *testing.T) {
	t.Parallel()

	server := listingServer(t)
	defer server.Close()

	first := &stubScraper{match: true, posts: []domain.RawPost{{Title: "From First", Link: server.URL + "/p/1"}}}
	second := &stubScraper{match: true, posts: []domain.RawPost{{Title: "From Second", Link: server.URL + "/p/2"}}}
	llm := &stubCompletion{}

	a := NewHTMLAdapter(server.Client(), []SiteScraper{first, second}, llm, nil)
	posts, err := a.Fetch(context.Background(), domain.Source{ID: "g-1", OriginURL: server.URL})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(posts) != 1 || posts[0].Title != "From First" {
		t.Fatalf("expected first scraper result, got %+v", posts)
	}
	if posts[0].SourceID != "g-1" {
		t.Fatalf("post not tagged with source")
	}
	if llm.calls != 0 {
		t.Fatal("llm fallback invoked despite scraper success")
	}
}

func TestHTMLAdapterEmptyScraperFallsThrough(t *testing.T) {
	t.Parallel()

	server := listingServer(t)
	defer server.Close()

	empty := &stubScraper{match: true}
	llm := &stubCompletion{response: "```json\n[{\"title\": \"LLM Post\", \"link\": \"/p/llm\", \"publishedAt\": \"2025-02-01\", \"author\": null, \"image\": null}]\n```"}

	a := NewHTMLAdapter(server.Client(), []SiteScraper{empty}, llm, nil)
	posts, err := a.Fetch(context.Background(), domain.Source{ID: "g-2", OriginURL: server.URL})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 llm post, got %d", len(posts))
	}
	if posts[0].Link != server.URL+"/p/llm" {
		t.Fatalf("llm link not absolutized: %q", posts[0].Link)
	}
	if posts[0].PublishedAt.IsZero() {
		t.Fatal("expected parsed publishedAt")
	}
}

func TestHTMLAdapterUnparseableLLMYieldsEmpty(t *testing.T) {
	t.Parallel()

	server := listingServer(t)
	defer server.Close()

	llm := &stubCompletion{response: "I could not find any posts, sorry!"}
	a := NewHTMLAdapter(server.Client(), nil, llm, nil)
	posts, err := a.Fetch(context.Background(), domain.Source{ID: "g-3", OriginURL: server.URL})
	if err != nil {
		t.Fatalf("failed parse must not propagate: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("expected empty list, got %d", len(posts))
	}
}

func TestBloggerScraper(t *testing.T) {
	t.Parallel()

	html := `<div class="date-outer">
	  <h2 class="date-header">June 5, 2025</h2>
	  <div class="post-outer">
	    <h3 class="post-title"><a href="https://stocks.blogspot.com/2025/06/pick.html">A Mid Cap Pick</a></h3>
	    <div class="post-body"><img src="/pick.png"/></div>
	  </div>
	</div>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	s := &BloggerScraper{}
	if !s.Matches("https://stocks.blogspot.com") {
		t.Fatal("expected blogspot origin to match")
	}
	posts := s.Extract(doc, "https://stocks.blogspot.com")
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	if posts[0].Title != "A Mid Cap Pick" {
		t.Fatalf("unexpected title: %q", posts[0].Title)
	}
	if posts[0].PublishedAt.IsZero() {
		t.Fatal("expected date from date-header")
	}
}
