package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/ports"
)

func acmeRef() domain.CompanyReference {
	return domain.CompanyReference{Name: "ACME LIMITED", NSECode: "ACME", Exchange: "NSE"}
}

func TestPrimaryReturnsQuote(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "ACME" {
			t.Errorf("unexpected symbol %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("unexpected auth header %q", got)
		}
		_, _ = w.Write([]byte(`{"marketCap": 5200000000}`))
	}))
	defer srv.Close()

	capValue, err := NewPrimaryClient(srv.URL, "k").MarketCap(context.Background(), acmeRef())
	if err != nil {
		t.Fatal(err)
	}
	if capValue != 5.2e9 {
		t.Fatalf("unexpected market cap %v", capValue)
	}
}

func TestPrimaryMapsThrottleToRateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewPrimaryClient(srv.URL, "").MarketCap(context.Background(), acmeRef())
	if !errors.Is(err, ports.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestPrimaryRejectsRefWithoutTicker(t *testing.T) {
	t.Parallel()

	_, err := NewPrimaryClient("http://unused", "").MarketCap(context.Background(), domain.CompanyReference{Name: "Unlisted"})
	if err == nil {
		t.Fatal("expected an error for a ref without tickers")
	}
}

func TestCapFromDocumentPrefersLabelledRow(t *testing.T) {
	t.Parallel()

	page := `<html><body>
        <ul>
            <li>Revenue 1,000 Cr</li>
            <li>Market Cap <span>5,20,340 Cr.</span></li>
        </ul>
    </body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatal(err)
	}

	got := capFromDocument(doc)
	if got != 520340*crore {
		t.Fatalf("unexpected cap %v", got)
	}
}

func TestParseCroreFigure(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"Market Cap 5,234.56 Cr", 5234.56 * crore, true},
		{"520 Cr.", 520 * crore, true},
		{"no figures here", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseCroreFigure(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("parseCroreFigure(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestScrapeMapsThrottleToRateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewScrapeClient(srv.URL).MarketCap(context.Background(), acmeRef())
	if !errors.Is(err, ports.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}
