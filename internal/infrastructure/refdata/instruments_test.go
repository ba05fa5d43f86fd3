package refdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const dump = `instrument_token,tradingsymbol,name,exchange,instrument_type,isin
408065,ACME,ACME LIMITED,NSE,EQ,INE000A01001
505200,532606,ACME LIMITED,BSE,EQ,INE000A01001
738561,RELIANCE,Reliance Industries Limited,NSE,EQ,INE002A01018
12345,NIFTYFUT,NIFTY,NSE,FUT,
99999,XYZ,XYZ Corp,MCX,EQ,INE999Z01009
`

func TestParseInstrumentsMergesDualListings(t *testing.T) {
	t.Parallel()

	refs, err := ParseInstruments(strings.NewReader(dump))
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 companies (futures and MCX rows dropped), got %d: %+v", len(refs), refs)
	}

	acme := refs[0]
	if acme.Name != "ACME LIMITED" || acme.NSECode != "ACME" || acme.BSECode != "532606" {
		t.Fatalf("dual listing not merged: %+v", acme)
	}
	if acme.Exchange != "NSE" {
		t.Fatalf("NSE must be the primary exchange, got %s", acme.Exchange)
	}
	if acme.InstrumentToken != 408065 {
		t.Fatalf("expected the NSE token, got %d", acme.InstrumentToken)
	}
	if len(acme.SearchTokens) != 1 || acme.SearchTokens[0] != "acme" {
		t.Fatalf("unexpected search tokens: %v", acme.SearchTokens)
	}

	reliance := refs[1]
	if reliance.NSECode != "RELIANCE" || reliance.BSECode != "" {
		t.Fatalf("unexpected single listing: %+v", reliance)
	}
}

func TestParseInstrumentsRejectsMissingColumns(t *testing.T) {
	t.Parallel()

	_, err := ParseInstruments(strings.NewReader("foo,bar\n1,2\n"))
	if err == nil {
		t.Fatal("expected an error for an unrecognized header")
	}
}

func TestFetchDownloadsAndParses(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(dump))
	}))
	defer srv.Close()

	refs, err := NewClient(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 companies, got %d", len(refs))
	}
}
