package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/ports"
)

// CompanyRepo stores the reference instrument list.
type CompanyRepo struct {
	db *sql.DB
}

var _ ports.CompanyRepository = (*CompanyRepo)(nil)

func NewCompanyRepo(db *sql.DB) *CompanyRepo {
	return &CompanyRepo{db: db}
}

const companyColumns = "instrument_token, name, nse_code, bse_code, exchange, isin, market_cap, market_cap_checked, search_tokens, created_at"

// All loads the full reference list for the resolver.
func (r *CompanyRepo) All(ctx context.Context) ([]domain.CompanyReference, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+companyColumns+` FROM companies ORDER BY created_at, instrument_token`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()
	return scanCompanies(rows)
}

// UpsertBatch refreshes the reference list from an instrument dump.
// Market-cap fields are preserved on conflict so a refresh never
// re-queues already enriched rows.
func (r *CompanyRepo) UpsertBatch(ctx context.Context, refs []domain.CompanyReference) error {
	for start := 0; start < len(refs); start += batchRows {
		end := start + batchRows
		if end > len(refs) {
			end = len(refs)
		}
		if err := r.upsertChunk(ctx, refs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *CompanyRepo) upsertChunk(ctx context.Context, refs []domain.CompanyReference) error {
	builder := psql.
		Insert("companies").
		Columns("instrument_token", "name", "nse_code", "bse_code", "exchange", "isin", "search_tokens")
	for _, ref := range refs {
		builder = builder.Values(
			ref.InstrumentToken, ref.Name, ref.NSECode, ref.BSECode,
			ref.Exchange, ref.ISIN, pq.StringArray(ref.SearchTokens),
		)
	}
	query, args, err := builder.
		Suffix(`ON CONFLICT (instrument_token) DO UPDATE SET
            name = EXCLUDED.name,
            nse_code = EXCLUDED.nse_code,
            bse_code = EXCLUDED.bse_code,
            exchange = EXCLUDED.exchange,
            isin = EXCLUDED.isin,
            search_tokens = EXCLUDED.search_tokens`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert companies: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert companies: %w", err)
	}
	return nil
}

// UncheckedBatch pages through rows awaiting a market-cap lookup in
// creation order. after is an exclusive cursor; zero time starts over.
func (r *CompanyRepo) UncheckedBatch(ctx context.Context, after time.Time, limit int) ([]domain.CompanyReference, error) {
	query, args, err := psql.
		Select("instrument_token", "name", "nse_code", "bse_code", "exchange", "isin",
			"market_cap", "market_cap_checked", "search_tokens", "created_at").
		From("companies").
		Where(sq.Eq{"market_cap_checked": false}).
		Where(sq.Gt{"created_at": after}).
		OrderBy("created_at", "instrument_token").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build unchecked batch: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unchecked batch: %w", err)
	}
	defer rows.Close()
	return scanCompanies(rows)
}

// PatchMarketCap records a lookup outcome. The checked flag flips true
// even when no cap was found so the row leaves the work queue.
func (r *CompanyRepo) PatchMarketCap(ctx context.Context, instrumentToken int64, marketCap float64, found bool) error {
	builder := psql.
		Update("companies").
		Set("market_cap_checked", true).
		Where(sq.Eq{"instrument_token": instrumentToken})
	if found {
		builder = builder.Set("market_cap", marketCap)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build patch market cap: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("patch market cap %d: %w", instrumentToken, err)
	}
	return nil
}

func scanCompanies(rows *sql.Rows) ([]domain.CompanyReference, error) {
	var refs []domain.CompanyReference
	for rows.Next() {
		var ref domain.CompanyReference
		var tokens pq.StringArray
		if err := rows.Scan(&ref.InstrumentToken, &ref.Name, &ref.NSECode, &ref.BSECode,
			&ref.Exchange, &ref.ISIN, &ref.MarketCap, &ref.MarketCapChecked, &tokens, &ref.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		ref.SearchTokens = tokens
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return refs, nil
}
