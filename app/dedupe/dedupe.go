package dedupe

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Duplicate policy constants. Aggregated sources republish wire-service
// stories with near-identical titles at nearly the same time, so either a
// high title overlap or close publish times alone marks a duplicate.
const (
	TitleOverlapThreshold = 0.7
	PublishWindow         = time.Hour
)

type seenItem struct {
	tokens      map[string]struct{}
	publishedAt time.Time
}

// Deduper tracks the articles accepted within a single ingestion run. It is
// built per run and owned by the pipeline; accesses happen from the source
// fan-out goroutines, so the caller serializes them behind its own mutex.
type Deduper struct {
	urls  map[string]struct{}
	items []seenItem
}

func New() *Deduper {
	return &Deduper{
		urls: make(map[string]struct{}),
	}
}

// IsDuplicate reports whether the article matches something already accepted
// in this run: same URL, title-token Jaccard overlap above the threshold, or
// publish times within the window. On a negative answer the article is
// recorded as seen.
func (d *Deduper) IsDuplicate(url, title string, publishedAt time.Time) bool {
	if _, ok := d.urls[url]; ok {
		return true
	}

	tokens := tokenizeTitle(title)
	for _, seen := range d.items {
		if jaccard(tokens, seen.tokens) > TitleOverlapThreshold {
			return true
		}
		if delta := publishedAt.Sub(seen.publishedAt); delta > -PublishWindow && delta < PublishWindow {
			return true
		}
	}

	d.urls[url] = struct{}{}
	d.items = append(d.items, seenItem{tokens: tokens, publishedAt: publishedAt})
	return false
}

// SeenCount returns the number of distinct articles accepted so far.
func (d *Deduper) SeenCount() int {
	return len(d.items)
}

func tokenizeTitle(title string) map[string]struct{} {
	normalized := norm.NFKC.String(strings.ToLower(title))

	tokens := make(map[string]struct{})
	for _, field := range strings.FieldsFunc(normalized, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '、' || r == '。' ||
			r == ',' || r == '.' || r == ':' || r == ';' || r == '!' || r == '?' ||
			r == '「' || r == '」' || r == '(' || r == ')' || r == '-' || r == '・'
	}) {
		tokens[field] = struct{}{}
	}
	return tokens
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
