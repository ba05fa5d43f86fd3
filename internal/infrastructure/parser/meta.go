package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Publish-date layouts seen across platforms, tried in order.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02 January 2006",
}

var visibleDateExpr = regexp.MustCompile(`([A-Z][a-z]+ \d{1,2}, \d{4}|\d{1,2} [A-Z][a-z]+ \d{4})`)

func parseAnyDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// metaContent reads the first non-empty content attribute among the
// given selectors.
func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// authorFromDoc reads the author from article meta tags, falling back
// to a byline element.
func authorFromDoc(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	if v := metaContent(doc,
		`meta[name="author"]`,
		`meta[property="article:author"]`,
		`meta[name="twitter:creator"]`,
	); v != "" && !strings.HasPrefix(v, "http") {
		return v
	}
	byline := strings.TrimSpace(doc.Find(`[rel="author"], .author-name, .byline a`).First().Text())
	return byline
}

// imageFromDoc reads the lead image from meta tags, falling back to the
// first prominent in-article img.
func imageFromDoc(doc *goquery.Document, base string) string {
	if doc == nil {
		return ""
	}
	if v := metaContent(doc,
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
		`meta[itemprop="image"]`,
	); v != "" {
		return absolutize(base, v)
	}
	src, _ := doc.Find("article img, .post-content img, .entry-content img").First().Attr("src")
	return absolutize(base, src)
}

// dateFromDoc reads the publish date by meta-tag priority: explicit
// article metadata, then a structured time element, then a visible
// date-looking text pattern.
func dateFromDoc(doc *goquery.Document) (time.Time, bool) {
	if doc == nil {
		return time.Time{}, false
	}
	if v := metaContent(doc,
		`meta[property="article:published_time"]`,
		`meta[name="publish-date"]`,
		`meta[itemprop="datePublished"]`,
	); v != "" {
		if t, ok := parseAnyDate(v); ok {
			return t, true
		}
	}
	if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		if t, ok := parseAnyDate(dt); ok {
			return t, true
		}
	}
	visible := doc.Find(".post-date, .published, .entry-date").First().Text()
	if visible == "" {
		visible = visibleDateExpr.FindString(doc.Find("body").Text())
	} else {
		visible = visibleDateExpr.FindString(visible)
	}
	return parseAnyDate(visible)
}

// titleFromDoc reads the page title with og:title priority.
func titleFromDoc(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	if v := metaContent(doc, `meta[property="og:title"]`); v != "" {
		return v
	}
	if v := strings.TrimSpace(doc.Find("h1").First().Text()); v != "" {
		return v
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// bodyTextFromDoc extracts the main narrative text, excluding related
// posts, navigation and sidebar sections so downstream company
// extraction never sees them.
func bodyTextFromDoc(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	doc.Find("nav, aside, header, footer, .related-posts, .related, .sidebar, .widget").Remove()
	main := doc.Find("article, .post-content, .entry-content, main").First()
	if main.Length() == 0 {
		main = doc.Find("body")
	}
	return strings.Join(strings.Fields(main.Text()), " ")
}
