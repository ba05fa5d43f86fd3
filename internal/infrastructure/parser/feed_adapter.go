package parser

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"BlogHarvester/internal/adapter"
	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/fallback"
)

// FeedAdapter extracts posts from syndication-style XML feeds (RSS and
// Atom). Author, image and date come from an ordered chain of candidate
// fields; later stages run only when earlier ones yield nothing.
type FeedAdapter struct {
	client *http.Client
	logger *slog.Logger
}

var _ adapter.Adapter = (*FeedAdapter)(nil)

// NewFeedAdapter wires an HTTP client; nil falls back to a 15s-timeout client.
func NewFeedAdapter(client *http.Client, logger *slog.Logger) *FeedAdapter {
	if client == nil {
		client = HTTPClient(0)
	}
	return &FeedAdapter{client: client, logger: logger}
}

// Kind identifies the adapter inside the registry.
func (f *FeedAdapter) Kind() domain.PlatformKind {
	return domain.PlatformFeed
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
	Creator string `xml:"creator"`
	Author  string `xml:"author"`
	// content:encoded and media:content differ in local name, so the
	// unqualified tags below stay unambiguous.
	Encoded   string       `xml:"encoded"`
	Desc      string       `xml:"description"`
	Media     []rssMedia   `xml:"content"`
	Enclosure rssEnclosure `xml:"enclosure"`
}

type rssMedia struct {
	URL string `xml:"url,attr"`
}

type rssEnclosure struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	Author    struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Content string `xml:"content"`
	Summary string `xml:"summary"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

// Fetch downloads and parses the feed, resolving each item through the
// extraction fallback chains.
func (f *FeedAdapter) Fetch(ctx context.Context, source domain.Source) ([]domain.RawPost, error) {
	feedURL := source.FeedURL
	if feedURL == "" {
		feedURL = strings.TrimSuffix(source.OriginURL, "/") + "/feed"
	}

	body, err := fetchBytes(ctx, f.client, feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	items, err := parseFeedItems(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	posts := make([]domain.RawPost, 0, len(items))
	for _, item := range items {
		post, ok := f.buildPost(ctx, source, item)
		if !ok {
			continue
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// feedEntry is the format-neutral view of one feed item.
type feedEntry struct {
	title    string
	link     string
	dates    []string
	authors  []string
	images   []string
	fragment string
}

func parseFeedItems(body []byte) ([]feedEntry, error) {
	var rss rssFeed
	if err := xml.Unmarshal(body, &rss); err == nil && len(rss.Channel.Items) > 0 {
		entries := make([]feedEntry, 0, len(rss.Channel.Items))
		for _, it := range rss.Channel.Items {
			entry := feedEntry{
				title:    strings.TrimSpace(it.Title),
				link:     strings.TrimSpace(it.Link),
				dates:    []string{it.PubDate},
				authors:  []string{it.Creator, it.Author},
				fragment: firstNonEmpty(it.Encoded, it.Desc),
			}
			for _, m := range it.Media {
				entry.images = append(entry.images, m.URL)
			}
			if strings.HasPrefix(it.Enclosure.Type, "image/") {
				entry.images = append(entry.images, it.Enclosure.URL)
			}
			entries = append(entries, entry)
		}
		return entries, nil
	}

	var atom atomFeed
	if err := xml.Unmarshal(body, &atom); err != nil {
		return nil, fmt.Errorf("neither rss nor atom: %w", err)
	}
	entries := make([]feedEntry, 0, len(atom.Entries))
	for _, e := range atom.Entries {
		link := ""
		for _, l := range e.Links {
			if l.Rel == "" || l.Rel == "alternate" {
				link = l.Href
				break
			}
		}
		entries = append(entries, feedEntry{
			title:    strings.TrimSpace(e.Title),
			link:     strings.TrimSpace(link),
			dates:    []string{e.Published, e.Updated},
			authors:  []string{e.Author.Name},
			fragment: firstNonEmpty(e.Content, e.Summary),
		})
	}
	return entries, nil
}

func (f *FeedAdapter) buildPost(ctx context.Context, source domain.Source, entry feedEntry) (domain.RawPost, bool) {
	link := absolutize(source.OriginURL, entry.link)
	if entry.title == "" || link == "" {
		return domain.RawPost{}, false
	}

	// The article page is fetched at most once, and only when a prior
	// extraction stage came up empty.
	var (
		pageDoc     *goquery.Document
		pageFetched bool
	)
	page := func() *goquery.Document {
		if pageFetched {
			return pageDoc
		}
		pageFetched = true
		doc, err := fetchDocument(ctx, f.client, link)
		if err != nil {
			f.debug("article page fetch failed", "link", link, "error", err)
			return nil
		}
		pageDoc = doc
		return pageDoc
	}

	var fragDoc *goquery.Document
	if entry.fragment != "" {
		fragDoc, _ = goquery.NewDocumentFromReader(strings.NewReader(entry.fragment))
	}

	author := fallback.FirstString(
		func() string { return firstNonEmpty(entry.authors...) },
		func() string { return fragmentAuthor(fragDoc) },
		func() string { return authorFromDoc(page()) },
	)

	image := fallback.FirstString(
		func() string { return firstNonEmpty(entry.images...) },
		func() string { return fragmentImage(fragDoc, link) },
		func() string { return imageFromDoc(page(), link) },
	)

	published, _ := fallback.First(
		func() (time.Time, bool) {
			for _, d := range entry.dates {
				if t, ok := parseAnyDate(d); ok {
					return t, true
				}
			}
			return time.Time{}, false
		},
		func() (time.Time, bool) { return fragmentDate(fragDoc) },
		func() (time.Time, bool) { return dateFromDoc(page()) },
	)

	body := ""
	if fragDoc != nil {
		body = strings.Join(strings.Fields(fragDoc.Text()), " ")
	}
	if body == "" {
		body = bodyTextFromDoc(page())
	}

	return domain.RawPost{
		Title:       entry.title,
		Link:        link,
		PublishedAt: published,
		Author:      strings.TrimSpace(author),
		Image:       absolutize(link, image),
		BodyText:    body,
		SourceID:    source.ID,
	}, true
}

func fragmentAuthor(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	return strings.TrimSpace(doc.Find(`[rel="author"], .author`).First().Text())
}

func fragmentImage(doc *goquery.Document, base string) string {
	if doc == nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return absolutize(base, src)
}

func fragmentDate(doc *goquery.Document) (time.Time, bool) {
	if doc == nil {
		return time.Time{}, false
	}
	if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		return parseAnyDate(dt)
	}
	return time.Time{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (f *FeedAdapter) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
