package score

import (
	"strings"
	"testing"
	"time"
)

func TestFactorWeightsSumToOne(t *testing.T) {
	sum := SourceFactorWeight + KeywordFactorWeight + FreshnessFactorWeight + ContentLengthFactorWeight
	if sum < 0.9999 || sum > 1.0001 {
		t.Errorf("Factor weights must sum to 1, got %f", sum)
	}
}

func TestScoreBounds(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name         string
		sourceWeight float64
		title        string
		content      string
		publishedAt  time.Time
	}{
		{"empty everything", 0, "", "", now},
		{"max everything", 1.0, "kubernetes docker aws gcp react", strings.Repeat("cloud ai security blockchain ", 300), now},
		{"out-of-range source weight high", 5.0, "title", "content", now},
		{"out-of-range source weight low", -1.0, "title", "content", now},
		{"future timestamp", 0.8, "title", "content", now.Add(48 * time.Hour)},
		{"ancient timestamp", 0.8, "title", "content", now.Add(-10000 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp := Score(tt.sourceWeight, tt.title, tt.content, tt.publishedAt, now)

			factors := map[string]float64{
				"score":          imp.Score,
				"source":         imp.SourceWeight,
				"keyword":        imp.KeywordWeight,
				"freshness":      imp.FreshnessWeight,
				"content_length": imp.ContentLengthWeight,
			}
			for name, v := range factors {
				if v < 0 || v > 1 {
					t.Errorf("Factor %s out of [0,1]: %f", name, v)
				}
			}
		})
	}
}

func TestKeywordWeight(t *testing.T) {
	now := time.Now()

	// No keywords at all
	imp := Score(0.5, "無関係な話題", "まったく違う内容", now, now)
	if imp.KeywordWeight != 0 {
		t.Errorf("Expected keyword weight 0, got %f", imp.KeywordWeight)
	}

	// Two distinct keyword hits: 2 * 0.25 = 0.5
	imp = Score(0.5, "kubernetes release", "terraform update", now, now)
	if imp.KeywordWeight != 0.5 {
		t.Errorf("Expected keyword weight 0.5, got %f", imp.KeywordWeight)
	}

	// Japanese keywords count too
	imp = Score(0.5, "人工知能の最新動向", "", now, now)
	if imp.KeywordWeight == 0 {
		t.Error("Expected Japanese keyword to match")
	}

	// Many keywords cap at 1.0
	imp = Score(0.5, "kubernetes docker terraform cloudflare react vue angular", "", now, now)
	if imp.KeywordWeight != 1.0 {
		t.Errorf("Expected keyword weight capped at 1.0, got %f", imp.KeywordWeight)
	}
}

func TestFreshnessWeightSteps(t *testing.T) {
	now := time.Now()

	tests := []struct {
		age      time.Duration
		expected float64
	}{
		{1 * time.Hour, 1.0},
		{23 * time.Hour, 1.0},
		{25 * time.Hour, 0.8},
		{47 * time.Hour, 0.8},
		{49 * time.Hour, 0.5},
		{71 * time.Hour, 0.5},
		{73 * time.Hour, 0.3},
		{-5 * time.Hour, 1.0}, // future publication
	}

	for _, tt := range tests {
		imp := Score(0.5, "", "", now.Add(-tt.age), now)
		if imp.FreshnessWeight != tt.expected {
			t.Errorf("Age %v: expected freshness %f, got %f", tt.age, tt.expected, imp.FreshnessWeight)
		}
	}
}

func TestContentLengthWeightSteps(t *testing.T) {
	now := time.Now()

	tests := []struct {
		length   int
		expected float64
	}{
		{6000, 1.0},
		{3000, 0.9},
		{1500, 0.7},
		{500, 0.5},
	}

	for _, tt := range tests {
		imp := Score(0.5, "", strings.Repeat("x", tt.length), now, now)
		if imp.ContentLengthWeight != tt.expected {
			t.Errorf("Length %d: expected weight %f, got %f", tt.length, tt.expected, imp.ContentLengthWeight)
		}
	}

	// Empty content keeps the neutral default
	imp := Score(0.5, "", "", now, now)
	if imp.ContentLengthWeight != 0.6 {
		t.Errorf("Expected empty-content weight 0.6, got %f", imp.ContentLengthWeight)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	now := time.Now()
	a := Score(0.8, "kubernetes update", "docker content here", now.Add(-time.Hour), now)
	b := Score(0.8, "kubernetes update", "docker content here", now.Add(-time.Hour), now)
	if a != b {
		t.Errorf("Score must be deterministic: %+v != %+v", a, b)
	}
}
