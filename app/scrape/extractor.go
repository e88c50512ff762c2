package scrape

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// minBodyLength is the smallest selector match considered a real article
// body; shorter matches fall through to the next strategy.
const minBodyLength = 200

type Content struct {
	Title    string
	Body     string
	ImageURL string
}

// Extractor pulls the article title, body text and lead image out of a full
// HTML page. Selectors are tried in priority order (per-source list first,
// then generic semantic containers); when none match, the block holding the
// longest paragraph text wins, and readability is the last resort.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

var genericSelectors = []string{"article", "main", ".entry-content", ".post-content", "#content"}

func (e *Extractor) Run(data []byte, selectors []string) (*Content, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	content := &Content{
		Title:    e.extractTitle(doc),
		ImageURL: e.extractImage(doc),
	}

	for _, selector := range append(append([]string{}, selectors...), genericSelectors...) {
		body := normalizeWhitespace(doc.Find(selector).First().Text())
		if len(body) >= minBodyLength {
			content.Body = body
			slog.Debug("Content extracted via selector", "selector", selector, "length", len(body))
			return content, nil
		}
	}

	if body := e.longestParagraphBlock(doc); len(body) >= minBodyLength {
		content.Body = body
		return content, nil
	}

	article, err := readability.FromReader(bytes.NewReader(data), nil)
	if err == nil {
		if body := normalizeWhitespace(article.TextContent); len(body) >= minBodyLength {
			content.Body = body
			if content.Title == "" {
				content.Title = article.Title
			}
			return content, nil
		}
	}

	return nil, fmt.Errorf("no content extracted from HTML data")
}

func (e *Extractor) extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("h1").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func (e *Extractor) extractImage(doc *goquery.Document) string {
	if src, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok && src != "" {
		return src
	}
	if src, ok := doc.Find("article img, main img, img").First().Attr("src"); ok {
		return src
	}
	return ""
}

// longestParagraphBlock finds the parent element whose direct <p> children
// carry the most text.
func (e *Extractor) longestParagraphBlock(doc *goquery.Document) string {
	best := ""
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		parent := p.Parent()
		var buf strings.Builder
		parent.ChildrenFiltered("p").Each(func(_ int, sibling *goquery.Selection) {
			buf.WriteString(sibling.Text())
			buf.WriteString(" ")
		})
		if text := normalizeWhitespace(buf.String()); len(text) > len(best) {
			best = text
		}
	})
	return best
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
