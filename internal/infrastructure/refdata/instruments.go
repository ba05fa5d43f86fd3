// Package refdata loads the exchange instrument master list used to
// seed the company reference table.
package refdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/resolver"
)

// Client downloads the daily instrument dump, a CSV with one row per
// listed instrument across exchanges.
type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// Fetch downloads and parses the dump into company references. Only
// equity rows from NSE and BSE are kept; rows for the same ISIN are
// merged so a company listed on both exchanges yields one reference
// carrying both tickers.
func (c *Client) Fetch(ctx context.Context) ([]domain.CompanyReference, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch instruments: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch instruments: unexpected status %s", resp.Status)
	}
	return ParseInstruments(resp.Body)
}

// ParseInstruments reads the CSV dump. The header row names the
// columns; unknown columns are ignored so upstream format additions do
// not break the refresh.
func ParseInstruments(r io.Reader) ([]domain.CompanyReference, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"tradingsymbol", "name", "exchange"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("instrument dump missing column %q", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	byKey := map[string]*domain.CompanyReference{}
	var order []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		exchange := strings.ToUpper(field(row, "exchange"))
		if exchange != "NSE" && exchange != "BSE" {
			continue
		}
		if t := strings.ToUpper(field(row, "instrument_type")); t != "" && t != "EQ" {
			continue
		}
		name := field(row, "name")
		symbol := field(row, "tradingsymbol")
		if name == "" || symbol == "" {
			continue
		}

		isin := field(row, "isin")
		key := isin
		if key == "" {
			// Without an ISIN fall back to the normalized name so the
			// two listings still merge.
			key = resolver.Normalize(name)
		}

		ref, ok := byKey[key]
		if !ok {
			normalized := resolver.Normalize(name)
			ref = &domain.CompanyReference{
				Name:         name,
				ISIN:         isin,
				SearchTokens: strings.Fields(normalized),
			}
			byKey[key] = ref
			order = append(order, key)
		}

		switch exchange {
		case "NSE":
			ref.NSECode = symbol
		case "BSE":
			ref.BSECode = symbol
		}
		if ref.Exchange == "" || exchange == "NSE" {
			// NSE wins as the primary exchange when both list.
			ref.Exchange = exchange
		}
		if token, err := strconv.ParseInt(field(row, "instrument_token"), 10, 64); err == nil && (ref.InstrumentToken == 0 || exchange == "NSE") {
			ref.InstrumentToken = token
		}
	}

	refs := make([]domain.CompanyReference, 0, len(order))
	for _, key := range order {
		refs = append(refs, *byKey[key])
	}
	return refs, nil
}
