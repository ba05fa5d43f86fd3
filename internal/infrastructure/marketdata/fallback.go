package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/ports"
)

const crore = 1e7

// capExpr matches figures like "₹ 5,20,340 Cr." on quote pages.
var capExpr = regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*cr`)

// ScrapeClient extracts market cap from public quote pages. It is the
// fallback when the API provider is rate limited or unavailable.
type ScrapeClient struct {
	baseURL string
	http    *http.Client
}

var _ ports.MarketCapProvider = (*ScrapeClient)(nil)

func NewScrapeClient(baseURL string) *ScrapeClient {
	return &ScrapeClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *ScrapeClient) Name() string {
	return "fallback-scrape"
}

func (c *ScrapeClient) MarketCap(ctx context.Context, ref domain.CompanyReference) (float64, error) {
	symbol := ref.NSECode
	if symbol == "" {
		symbol = ref.BSECode
	}
	if symbol == "" {
		return 0, fmt.Errorf("no ticker for %s", ref.Name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+symbol, nil)
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", "BlogHarvester/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch quote page %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return 0, fmt.Errorf("quote page %s: %w", symbol, ports.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("quote page %s: unexpected status %s", symbol, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("parse quote page %s: %w", symbol, err)
	}

	capValue := capFromDocument(doc)
	if capValue <= 0 {
		return 0, fmt.Errorf("quote page %s: market cap not found", symbol)
	}
	return capValue, nil
}

// capFromDocument looks for a labelled market-cap row first and falls
// back to the first crore figure anywhere on the page.
func capFromDocument(doc *goquery.Document) float64 {
	var value float64
	doc.Find("li, tr, div").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		if !strings.Contains(strings.ToLower(text), "market cap") {
			return true
		}
		if v, ok := parseCroreFigure(text); ok {
			value = v
			return false
		}
		return true
	})
	if value > 0 {
		return value
	}
	if v, ok := parseCroreFigure(doc.Text()); ok {
		return v
	}
	return 0
}

// parseCroreFigure converts "5,20,340 Cr" to rupees.
func parseCroreFigure(text string) (float64, bool) {
	m := capExpr.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n * crore, true
}
