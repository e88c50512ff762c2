package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxErrorCount is the number of consecutive processing failures after which
// an article is no longer retried.
const MaxErrorCount = 5

// ArticleRepository handles database operations for articles
type ArticleRepository struct {
	db *DB
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Upsert stores an article keyed by its source URL. Re-processing an already
// stored URL refreshes the row in place, clears the error bookkeeping and
// revives a soft-deleted row.
func (r *ArticleRepository) Upsert(article *Article) error {
	now := time.Now().UTC()
	if article.ID == "" {
		article.ID = uuid.NewString()
	}

	_, err := r.db.Exec(`
		INSERT INTO articles (
			id, source_url, title, translated_title, content, summary,
			image_url, source_name, language, category, published_at,
			importance_score, source_weight, keyword_weight,
			freshness_weight, content_length_weight,
			last_scraped_at, error_count, last_error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, '', ?, ?)
		ON CONFLICT (source_url) DO UPDATE SET
			title = excluded.title,
			translated_title = excluded.translated_title,
			content = excluded.content,
			summary = excluded.summary,
			image_url = excluded.image_url,
			source_name = excluded.source_name,
			language = excluded.language,
			category = excluded.category,
			published_at = excluded.published_at,
			importance_score = excluded.importance_score,
			source_weight = excluded.source_weight,
			keyword_weight = excluded.keyword_weight,
			freshness_weight = excluded.freshness_weight,
			content_length_weight = excluded.content_length_weight,
			last_scraped_at = excluded.last_scraped_at,
			error_count = 0,
			last_error = '',
			deleted_at = NULL,
			updated_at = excluded.updated_at
	`, article.ID, article.SourceURL, article.Title, article.TranslatedTitle,
		article.Content, article.Summary, article.ImageURL, article.SourceName,
		article.Language, article.Category, article.PublishedAt,
		article.Importance.Score, article.Importance.SourceWeight,
		article.Importance.KeywordWeight, article.Importance.Freshness,
		article.Importance.ContentLength,
		article.LastScrapedAt, now, now)

	if err != nil {
		return fmt.Errorf("failed to upsert article: %w", err)
	}

	return nil
}

// RecordError bumps the error counter for a URL, creating a stub row when the
// article has never been stored successfully.
func (r *ArticleRepository) RecordError(sourceURL, message string) error {
	now := time.Now().UTC()

	_, err := r.db.Exec(`
		INSERT INTO articles (id, source_url, error_count, last_error, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT (source_url) DO UPDATE SET
			error_count = error_count + 1,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at
	`, uuid.NewString(), sourceURL, message, now, now)

	if err != nil {
		return fmt.Errorf("failed to record article error: %w", err)
	}

	return nil
}

// IsRetryExhausted reports whether a URL has failed too many times to be
// worth processing again. Unknown URLs are never exhausted.
func (r *ArticleRepository) IsRetryExhausted(sourceURL string) (bool, error) {
	var count int
	err := r.db.QueryRow("SELECT error_count FROM articles WHERE source_url = ?", sourceURL).Scan(&count)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check retry state: %w", err)
	}
	return count >= MaxErrorCount, nil
}

const articleColumns = `
	id, source_url, title, translated_title, content, summary,
	image_url, source_name, language, category, published_at,
	importance_score, source_weight, keyword_weight,
	freshness_weight, content_length_weight,
	last_scraped_at, error_count, last_error, deleted_at, created_at, updated_at
`

// GetBySourceURL returns the article stored for a URL, including soft-deleted
// and error-only stub rows.
func (r *ArticleRepository) GetBySourceURL(sourceURL string) (*Article, error) {
	row := r.db.QueryRow("SELECT "+articleColumns+" FROM articles WHERE source_url = ?", sourceURL)

	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article by URL: %w", err)
	}
	return article, nil
}

// GetByID returns a single non-deleted article
func (r *ArticleRepository) GetByID(id string) (*Article, error) {
	row := r.db.QueryRow("SELECT "+articleColumns+" FROM articles WHERE id = ? AND deleted_at IS NULL", id)

	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article by id: %w", err)
	}
	return article, nil
}

// ListOptions narrows and pages a List call. Zero values mean no filter;
// Limit 0 falls back to 50.
type ListOptions struct {
	Category string
	Language string
	Limit    int
	Offset   int
}

// List returns non-deleted articles ordered by importance, most important
// first. Error-only stub rows carry no title and are excluded.
func (r *ArticleRepository) List(opts ListOptions) ([]Article, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := "SELECT " + articleColumns + ` FROM articles
		WHERE deleted_at IS NULL AND title != ''`
	args := []interface{}{}

	if opts.Category != "" {
		query += " AND category = ?"
		args = append(args, opts.Category)
	}
	if opts.Language != "" {
		query += " AND language = ?"
		args = append(args, opts.Language)
	}

	query += ` ORDER BY importance_score DESC, published_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, *article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

// SoftDelete hides an article from listings without dropping the row, so the
// URL stays known to future pipeline runs.
func (r *ArticleRepository) SoftDelete(id string) error {
	now := time.Now().UTC()

	result, err := r.db.Exec(`
		UPDATE articles SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete article: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check soft delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("article not found: %s", id)
	}

	return nil
}

// GetStats returns aggregate counts over the article table
func (r *ArticleRepository) GetStats() (total, summarized, failed int, err error) {
	err = r.db.QueryRow(`
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN summary != '' THEN 1 ELSE 0 END), 0) as summarized,
			COALESCE(SUM(CASE WHEN error_count > 0 THEN 1 ELSE 0 END), 0) as failed
		FROM articles
		WHERE deleted_at IS NULL
	`).Scan(&total, &summarized, &failed)

	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get article stats: %w", err)
	}

	return total, summarized, failed, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row rowScanner) (*Article, error) {
	var article Article
	var publishedAt, lastScrapedAt, deletedAt sql.NullTime

	err := row.Scan(
		&article.ID, &article.SourceURL, &article.Title, &article.TranslatedTitle,
		&article.Content, &article.Summary, &article.ImageURL, &article.SourceName,
		&article.Language, &article.Category, &publishedAt,
		&article.Importance.Score, &article.Importance.SourceWeight,
		&article.Importance.KeywordWeight, &article.Importance.Freshness,
		&article.Importance.ContentLength,
		&lastScrapedAt, &article.ErrorCount, &article.LastError,
		&deletedAt, &article.CreatedAt, &article.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if publishedAt.Valid {
		article.PublishedAt = &publishedAt.Time
	}
	if lastScrapedAt.Valid {
		article.LastScrapedAt = &lastScrapedAt.Time
	}
	if deletedAt.Valid {
		article.DeletedAt = &deletedAt.Time
	}

	return &article, nil
}
