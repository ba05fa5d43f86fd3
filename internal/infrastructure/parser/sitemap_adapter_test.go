package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"BlogHarvester/internal/domain"
)

func TestSitemapAdapterWalksIndexAndFiltersPaths(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
		<sitemapindex>
		  <sitemap><loc>%s/sitemap-posts.xml</loc></sitemap>
		  <sitemap><loc>%s/sitemap-pages.xml</loc></sitemap>
		</sitemapindex>`, server.URL, server.URL)
	})
	mux.HandleFunc("/sitemap-posts.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
		<urlset>
		  <url><loc>%s/2025/05/steel-cycle</loc></url>
		  <url><loc>%s/about</loc></url>
		</urlset>`, server.URL, server.URL)
	})
	mux.HandleFunc("/sitemap-pages.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
		<urlset>
		  <url><loc>%s/contact</loc></url>
		</urlset>`, server.URL)
	})
	mux.HandleFunc("/2025/05/steel-cycle", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head>
		  <meta property="og:title" content="The Steel Cycle Turns"/>
		  <meta name="author" content="S. Rao"/>
		  <meta property="article:published_time" content="2025-05-20T07:00:00Z"/>
		</head><body><article>Long body.</article></body></html>`))
	})

	source := domain.Source{ID: "map-1", OriginURL: server.URL}
	posts, err := NewSitemapAdapter(server.Client(), nil).Fetch(context.Background(), source)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post (non-post paths filtered), got %d", len(posts))
	}
	if posts[0].Title != "The Steel Cycle Turns" {
		t.Fatalf("unexpected title: %q", posts[0].Title)
	}
	if posts[0].Author != "S. Rao" {
		t.Fatalf("unexpected author: %q", posts[0].Author)
	}
	if posts[0].PublishedAt.IsZero() {
		t.Fatal("expected published time from article meta")
	}
}

func TestSitemapAdapterBrokenChildDoesNotAbort(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
		<sitemapindex>
		  <sitemap><loc>%s/missing.xml</loc></sitemap>
		  <sitemap><loc>%s/good.xml</loc></sitemap>
		</sitemapindex>`, server.URL, server.URL)
	})
	mux.HandleFunc("/good.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
		<urlset><url><loc>%s/p/survivor</loc></url></urlset>`, server.URL)
	})
	mux.HandleFunc("/p/survivor", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Survivor Post</title></head><body></body></html>`))
	})

	source := domain.Source{ID: "map-2", OriginURL: server.URL}
	posts, err := NewSitemapAdapter(server.Client(), nil).Fetch(context.Background(), source)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(posts) != 1 || posts[0].Title != "Survivor Post" {
		t.Fatalf("unexpected posts: %+v", posts)
	}
}
