package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/ports"
)

// PostRepo persists enriched posts keyed by link.
type PostRepo struct {
	db *sql.DB
}

var _ ports.PostRepository = (*PostRepo)(nil)

func NewPostRepo(db *sql.DB) *PostRepo {
	return &PostRepo{db: db}
}

// ExistingLinks returns the subset of links already stored.
func (r *PostRepo) ExistingLinks(ctx context.Context, links []string) (map[string]bool, error) {
	if len(links) == 0 {
		return map[string]bool{}, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT link FROM posts WHERE link = ANY($1)`, pq.StringArray(links))
	if err != nil {
		return nil, fmt.Errorf("query existing links: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		existing[link] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return existing, nil
}

// SaveBatch upserts posts in chunks. On conflict the enrichment fields
// are refreshed while link and created_at stay fixed.
func (r *PostRepo) SaveBatch(ctx context.Context, posts []domain.EnrichedPost) error {
	for start := 0; start < len(posts); start += batchRows {
		end := start + batchRows
		if end > len(posts) {
			end = len(posts)
		}
		if err := r.saveChunk(ctx, posts[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostRepo) saveChunk(ctx context.Context, posts []domain.EnrichedPost) error {
	builder := psql.
		Insert("posts").
		Columns("link", "title", "published_at", "author", "image", "summary",
			"classification", "sentiment_tags", "company_matches", "last_checked_at")
	for _, post := range posts {
		matches, err := json.Marshal(post.CompanyMatches)
		if err != nil {
			return fmt.Errorf("marshal matches for %s: %w", post.Link, err)
		}
		builder = builder.Values(
			post.Link, post.Title, post.PublishedAt, post.Author, post.Image, post.Summary,
			post.Classification, pq.StringArray(post.SentimentTags), matches, post.LastCheckedAt,
		)
	}
	query, args, err := builder.
		Suffix(`ON CONFLICT (link) DO UPDATE SET
            summary = EXCLUDED.summary,
            classification = EXCLUDED.classification,
            sentiment_tags = EXCLUDED.sentiment_tags,
            company_matches = EXCLUDED.company_matches,
            last_checked_at = EXCLUDED.last_checked_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build save posts: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save posts: %w", err)
	}
	return nil
}

// ListByClassification pages stored posts newest first.
func (r *PostRepo) ListByClassification(ctx context.Context, class domain.Classification, limit, offset int) ([]domain.EnrichedPost, error) {
	query, args, err := psql.
		Select("link", "title", "published_at", "author", "image", "summary",
			"classification", "sentiment_tags", "company_matches", "created_at", "last_checked_at").
		From("posts").
		Where(sq.Eq{"classification": class}).
		OrderBy("published_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list posts: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.EnrichedPost
	for rows.Next() {
		var p domain.EnrichedPost
		var tags pq.StringArray
		var matches []byte
		if err := rows.Scan(&p.Link, &p.Title, &p.PublishedAt, &p.Author, &p.Image, &p.Summary,
			&p.Classification, &tags, &matches, &p.CreatedAt, &p.LastCheckedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.SentimentTags = tags
		if err := json.Unmarshal(matches, &p.CompanyMatches); err != nil {
			return nil, fmt.Errorf("unmarshal matches for %s: %w", p.Link, err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return posts, nil
}
