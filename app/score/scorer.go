package score

import (
	"strings"
	"time"
)

// Factor weights form a convex combination; they must sum to 1. The keyword
// factor carries the most weight since topical relevance matters more than
// source reputation for a curated tech feed.
const (
	SourceFactorWeight        = 0.25
	KeywordFactorWeight       = 0.35
	FreshnessFactorWeight     = 0.25
	ContentLengthFactorWeight = 0.15

	keywordMatchStep = 0.25
)

// techKeywords is the curated bilingual term list used for the keyword
// factor. Matching is case-insensitive substring search over title+content.
var techKeywords = []string{
	// programming languages
	"typescript", "javascript", "python", "java", "go", "rust", "c++", "php", "ruby",
	// frameworks
	"react", "next.js", "vue", "angular", "svelte", "laravel", "django", "spring",
	// cloud and infrastructure
	"aws", "azure", "gcp", "kubernetes", "docker", "terraform", "cloudflare",
	// AI and machine learning
	"ai", "人工知能", "machine learning", "deep learning", "llm", "gpt", "stable diffusion",
	"openai", "deepseek", "gemini", "claude", "anthropic",
	// trending tech
	"web3", "blockchain", "crypto", "nft", "metaverse", "量子コンピュータ",
	// security
	"security", "vulnerability", "exploit", "cyber", "hack",
	// companies and products
	"google", "microsoft", "amazon", "apple", "meta", "oracle", "softbank",
	// general technical terms
	"api", "sdk", "database", "cloud", "server", "frontend", "backend", "fullstack",
	"open source", "オープンソース", "開発", "プログラミング", "コーディング",
	"デプロイ", "インフラ", "サーバー", "クラウド",
}

type Importance struct {
	Score               float64
	SourceWeight        float64
	KeywordWeight       float64
	FreshnessWeight     float64
	ContentLengthWeight float64
}

// Score computes the weighted importance of an article. It is a pure, total
// function: any non-negative content length and any timestamp (future
// included) yields factors within [0,1].
func Score(sourceWeight float64, title, content string, publishedAt, now time.Time) Importance {
	imp := Importance{
		SourceWeight:        clamp(sourceWeight),
		KeywordWeight:       keywordWeight(title, content),
		FreshnessWeight:     freshnessWeight(publishedAt, now),
		ContentLengthWeight: contentLengthWeight(content),
	}

	imp.Score = imp.SourceWeight*SourceFactorWeight +
		imp.KeywordWeight*KeywordFactorWeight +
		imp.FreshnessWeight*FreshnessFactorWeight +
		imp.ContentLengthWeight*ContentLengthFactorWeight

	return imp
}

func keywordWeight(title, content string) float64 {
	text := strings.ToLower(title + " " + content)

	matches := 0
	for _, keyword := range techKeywords {
		if strings.Contains(text, keyword) {
			matches++
		}
	}

	weight := float64(matches) * keywordMatchStep
	if weight > 1.0 {
		weight = 1.0
	}
	return weight
}

// freshnessWeight is a step function of article age. Future timestamps count
// as brand new rather than producing a negative age.
func freshnessWeight(publishedAt, now time.Time) float64 {
	age := now.Sub(publishedAt)
	switch {
	case age < 24*time.Hour:
		return 1.0
	case age < 48*time.Hour:
		return 0.8
	case age < 72*time.Hour:
		return 0.5
	default:
		return 0.3
	}
}

func contentLengthWeight(content string) float64 {
	if content == "" {
		return 0.6
	}

	length := len([]rune(content))
	switch {
	case length > 5000:
		return 1.0
	case length > 2000:
		return 0.9
	case length > 1000:
		return 0.7
	default:
		return 0.5
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
