package database

import (
	"time"
)

// Article represents a processed article record in the database
type Article struct {
	ID              string // Database UUID
	SourceURL       string // Canonical article URL, unique per row
	Title           string
	TranslatedTitle string
	Content         string
	Summary         string
	ImageURL        string
	SourceName      string
	Language        string
	Category        string
	PublishedAt     *time.Time
	Importance      ImportanceFactors
	LastScrapedAt   *time.Time
	ErrorCount      int
	LastError       string
	DeletedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ImportanceFactors keeps the composite score alongside the factors it was
// computed from, so score changes can be audited after the fact.
type ImportanceFactors struct {
	Score         float64
	SourceWeight  float64
	KeywordWeight float64
	Freshness     float64
	ContentLength float64
}
