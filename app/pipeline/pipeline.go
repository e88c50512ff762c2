package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/akifumi/technews/app/database"
	"github.com/akifumi/technews/app/dedupe"
	"github.com/akifumi/technews/app/feed"
	"github.com/akifumi/technews/app/score"
	"github.com/akifumi/technews/app/scrape"
	"github.com/akifumi/technews/app/sources"
	"github.com/akifumi/technews/app/summary"
)

// excerptChars bounds the summary stored for articles that never reach the
// LLM; mirrors the client's fallback length.
const excerptChars = 200

type SourceProvider interface {
	GetEnabledSources() map[string]*sources.Source
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, content, url string, opts summary.Options) string
	Classify(ctx context.Context, title, content string) string
	Translate(ctx context.Context, text, targetLang string) string
	Cache() *summary.Cache
}

type RunError struct {
	Source  string `json:"source"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message"`
}

type RunStats struct {
	Total          int
	Success        int
	Failed         int
	Skipped        int
	Errors         []RunError
	ProcessingTime time.Duration
}

// Pipeline executes one full ingestion run: every enabled source is fetched
// concurrently, items flow through dedupe, scraping, scoring and the LLM
// steps, and results land in the article store. A fresh Deduper is built per
// run so earlier runs never suppress current items.
type Pipeline struct {
	sources   SourceProvider
	fetcher   Fetcher
	parser    *feed.Parser
	extractor *scrape.Extractor
	llm       Summarizer
	repo      database.ArticleStore
	threshold float64
}

func New(sourceProvider SourceProvider, fetcher Fetcher, parser *feed.Parser,
	extractor *scrape.Extractor, llm Summarizer, repo database.ArticleStore,
	summaryThreshold float64) *Pipeline {
	return &Pipeline{
		sources:   sourceProvider,
		fetcher:   fetcher,
		parser:    parser,
		extractor: extractor,
		llm:       llm,
		repo:      repo,
		threshold: summaryThreshold,
	}
}

// Run processes all enabled sources and returns aggregate statistics. One
// source failing, or any number of items failing, never aborts the run; the
// failures are counted and reported instead.
func (p *Pipeline) Run(ctx context.Context) *RunStats {
	started := time.Now()

	p.llm.Cache().Sweep()

	stats := &RunStats{}
	deduper := dedupe.New()
	var mu sync.Mutex

	enabled := p.sources.GetEnabledSources()
	slog.Info("Pipeline run started", "sources", len(enabled))

	var wg sync.WaitGroup
	for _, source := range enabled {
		wg.Add(1)
		go func(source *sources.Source) {
			defer wg.Done()
			p.processSource(ctx, source, deduper, &mu, stats)
		}(source)
	}
	wg.Wait()

	stats.ProcessingTime = time.Since(started)
	slog.Info("Pipeline run finished",
		"total", stats.Total,
		"success", stats.Success,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"duration", stats.ProcessingTime)

	return stats
}

func (p *Pipeline) processSource(ctx context.Context, source *sources.Source,
	deduper *dedupe.Deduper, mu *sync.Mutex, stats *RunStats) {

	data, err := p.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		slog.Warn("Failed to fetch feed", "source", source.Name, "error", err)
		mu.Lock()
		stats.Errors = append(stats.Errors, RunError{Source: source.Name, Message: err.Error()})
		mu.Unlock()
		return
	}

	_, items, err := p.parser.Run(data)
	if err != nil {
		slog.Warn("Failed to parse feed", "source", source.Name, "error", err)
		mu.Lock()
		stats.Errors = append(stats.Errors, RunError{Source: source.Name, Message: err.Error()})
		mu.Unlock()
		return
	}

	if len(items) > source.MaxItems {
		items = items[:source.MaxItems]
	}

	for _, item := range items {
		select {
		case <-ctx.Done():
			return
		default:
		}

		p.processItem(ctx, source, item, deduper, mu, stats)
	}
}

func (p *Pipeline) processItem(ctx context.Context, source *sources.Source,
	item feed.Item, deduper *dedupe.Deduper, mu *sync.Mutex, stats *RunStats) {

	mu.Lock()
	stats.Total++
	duplicate := deduper.IsDuplicate(item.Link, item.Title, item.PublishedAt)
	mu.Unlock()

	if duplicate {
		slog.Debug("Duplicate item skipped", "source", source.Name, "url", item.Link)
		mu.Lock()
		stats.Skipped++
		mu.Unlock()
		return
	}

	exhausted, err := p.repo.IsRetryExhausted(item.Link)
	if err != nil {
		p.recordFailure(source, item.Link, fmt.Errorf("failed to check retry state: %w", err), mu, stats)
		return
	}
	if exhausted {
		slog.Debug("Item skipped after repeated failures", "source", source.Name, "url", item.Link)
		mu.Lock()
		stats.Skipped++
		mu.Unlock()
		return
	}

	article, err := p.buildArticle(ctx, source, item)
	if err != nil {
		if dbErr := p.repo.RecordError(item.Link, err.Error()); dbErr != nil {
			slog.Error("Failed to record article error", "url", item.Link, "error", dbErr)
		}
		p.recordFailure(source, item.Link, err, mu, stats)
		return
	}

	if err := p.repo.Upsert(article); err != nil {
		p.recordFailure(source, item.Link, err, mu, stats)
		return
	}

	mu.Lock()
	stats.Success++
	mu.Unlock()
}

// buildArticle assembles the stored record for one feed item: scraped or
// feed-provided content, the importance factors, and LLM enrichment for
// items above the summary threshold.
func (p *Pipeline) buildArticle(ctx context.Context, source *sources.Source, item feed.Item) (*database.Article, error) {
	if strings.TrimSpace(item.Title) == "" {
		return nil, fmt.Errorf("feed item has no title")
	}

	content := item.Content
	imageURL := item.ImageURL
	var scrapedAt *time.Time

	if source.AllowsScrape {
		if scraped := p.scrapePage(ctx, source, item.Link); scraped != nil {
			content = scraped.Body
			if imageURL == "" {
				imageURL = scraped.ImageURL
			}
			now := time.Now().UTC()
			scrapedAt = &now
		}
	}

	importance := score.Score(source.Weight, item.Title, content, item.PublishedAt, time.Now().UTC())

	article := &database.Article{
		SourceURL:     item.Link,
		Title:         item.Title,
		Content:       content,
		ImageURL:      imageURL,
		SourceName:    source.Name,
		Language:      source.Language,
		Category:      summary.CategoryOther,
		PublishedAt:   &item.PublishedAt,
		LastScrapedAt: scrapedAt,
		Importance: database.ImportanceFactors{
			Score:         importance.Score,
			SourceWeight:  importance.SourceWeight,
			KeywordWeight: importance.KeywordWeight,
			Freshness:     importance.FreshnessWeight,
			ContentLength: importance.ContentLengthWeight,
		},
	}

	if importance.Score >= p.threshold {
		article.Summary = p.llm.Summarize(ctx, content, item.Link, summary.Options{Language: source.Language})
		article.Category = p.llm.Classify(ctx, item.Title, content)
		if source.Language == "en" {
			article.TranslatedTitle = p.llm.Translate(ctx, item.Title, "ja")
		}
	} else {
		article.Summary = excerpt(content)
	}

	return article, nil
}

// scrapePage fetches and extracts the full article page. Any failure is a
// silent fallback to the feed-provided content.
func (p *Pipeline) scrapePage(ctx context.Context, source *sources.Source, url string) *scrape.Content {
	data, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		slog.Debug("Page fetch failed, using feed content", "source", source.Name, "url", url, "error", err)
		return nil
	}

	content, err := p.extractor.Run(data, source.Selectors)
	if err != nil {
		slog.Debug("Content extraction failed, using feed content", "source", source.Name, "url", url, "error", err)
		return nil
	}

	return content
}

func (p *Pipeline) recordFailure(source *sources.Source, url string, err error, mu *sync.Mutex, stats *RunStats) {
	slog.Warn("Failed to process item", "source", source.Name, "url", url, "error", err)

	mu.Lock()
	stats.Failed++
	stats.Errors = append(stats.Errors, RunError{Source: source.Name, URL: url, Message: err.Error()})
	mu.Unlock()
}

func excerpt(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= excerptChars {
		return string(runes)
	}
	return string(runes[:excerptChars]) + "..."
}
