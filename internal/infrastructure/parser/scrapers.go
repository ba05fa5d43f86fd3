package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"BlogHarvester/internal/domain"
)

// DefaultScrapers is the ordered site-specific registry consulted
// before the LLM fallback.
func DefaultScrapers() []SiteScraper {
	return []SiteScraper{
		&BloggerScraper{},
		&WordPressScraper{},
	}
}

// BloggerScraper handles Blogger/Blogspot listing pages.
type BloggerScraper struct{}

// Matches keys on the blogspot domain.
func (b *BloggerScraper) Matches(originURL string) bool {
	return strings.Contains(originURL, "blogspot.")
}

// Extract walks the date-outer/post-outer structure Blogger renders.
func (b *BloggerScraper) Extract(doc *goquery.Document, baseURL string) []domain.RawPost {
	var posts []domain.RawPost
	doc.Find(".post-outer, .post.hentry").Each(func(_ int, sel *goquery.Selection) {
		titleLink := sel.Find("h3.post-title a, h2.post-title a").First()
		href, _ := titleLink.Attr("href")
		title := strings.TrimSpace(titleLink.Text())
		link := absolutize(baseURL, href)
		if title == "" || link == "" {
			return
		}
		post := domain.RawPost{Title: title, Link: link}
		if dateText := strings.TrimSpace(sel.Closest(".date-outer").Find(".date-header").First().Text()); dateText != "" {
			if t, ok := parseAnyDate(dateText); ok {
				post.PublishedAt = t
			}
		}
		if src, ok := sel.Find(".post-body img").First().Attr("src"); ok {
			post.Image = absolutize(link, src)
		}
		post.Author = strings.TrimSpace(sel.Find(".post-author .fn").First().Text())
		posts = append(posts, post)
	})
	return posts
}

// WordPressScraper handles classic WordPress archive listings.
type WordPressScraper struct{}

// Matches accepts any origin whose markup is probed in Extract; the
// registry ordering keeps it after more specific scrapers.
func (w *WordPressScraper) Matches(originURL string) bool {
	return true
}

// Extract walks article.post entries with entry-title links.
func (w *WordPressScraper) Extract(doc *goquery.Document, baseURL string) []domain.RawPost {
	var posts []domain.RawPost
	doc.Find("article.post, article[id^=post-]").Each(func(_ int, sel *goquery.Selection) {
		titleLink := sel.Find(".entry-title a, h2 a, h1 a").First()
		href, _ := titleLink.Attr("href")
		title := strings.TrimSpace(titleLink.Text())
		link := absolutize(baseURL, href)
		if title == "" || link == "" {
			return
		}
		post := domain.RawPost{Title: title, Link: link}
		if dt, ok := sel.Find("time[datetime]").First().Attr("datetime"); ok {
			if t, ok := parseAnyDate(dt); ok {
				post.PublishedAt = t
			}
		}
		if src, ok := sel.Find("img").First().Attr("src"); ok {
			post.Image = absolutize(link, src)
		}
		post.Author = strings.TrimSpace(sel.Find(".author a, .byline a").First().Text())
		posts = append(posts, post)
	})
	return posts
}
