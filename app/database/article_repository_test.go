package database

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestRepository(t *testing.T) *ArticleRepository {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return NewArticleRepository(db)
}

func sampleArticle(url string) *Article {
	publishedAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return &Article{
		SourceURL:   url,
		Title:       "Kubernetes 1.30 Released",
		Content:     "The release adds new scheduling features.",
		Summary:     "New Kubernetes release.",
		SourceName:  "Publickey",
		Language:    "ja",
		Category:    "Cloud",
		PublishedAt: &publishedAt,
		Importance: ImportanceFactors{
			Score:         0.85,
			SourceWeight:  0.9,
			KeywordWeight: 0.5,
			Freshness:     1.0,
			ContentLength: 0.7,
		},
	}
}

func TestUpsert_InsertAndGet(t *testing.T) {
	repo := newTestRepository(t)

	article := sampleArticle("https://example.com/k8s")
	if err := repo.Upsert(article); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if article.ID == "" {
		t.Error("Expected Upsert to assign an ID")
	}

	stored, err := repo.GetBySourceURL("https://example.com/k8s")
	if err != nil {
		t.Fatalf("GetBySourceURL failed: %v", err)
	}
	if stored == nil {
		t.Fatal("Expected stored article, got nil")
	}
	if stored.Title != "Kubernetes 1.30 Released" {
		t.Errorf("Expected title preserved, got '%s'", stored.Title)
	}
	if stored.Importance.Score != 0.85 {
		t.Errorf("Expected importance score 0.85, got %f", stored.Importance.Score)
	}
	if stored.PublishedAt == nil || !stored.PublishedAt.Equal(*article.PublishedAt) {
		t.Errorf("Expected published_at preserved, got %v", stored.PublishedAt)
	}
}

func TestUpsert_SameURLUpdatesInPlace(t *testing.T) {
	repo := newTestRepository(t)

	article := sampleArticle("https://example.com/k8s")
	if err := repo.Upsert(article); err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}
	firstID := article.ID

	updated := sampleArticle("https://example.com/k8s")
	updated.Title = "Kubernetes 1.30 Released (updated)"
	updated.Summary = "Revised summary."
	if err := repo.Upsert(updated); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	articles, err := repo.List(ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("Expected single row after re-upsert, got %d", len(articles))
	}
	if articles[0].ID != firstID {
		t.Errorf("Expected original row ID %s to survive, got %s", firstID, articles[0].ID)
	}
	if articles[0].Title != "Kubernetes 1.30 Released (updated)" {
		t.Errorf("Expected updated title, got '%s'", articles[0].Title)
	}
}

func TestUpsert_ResetsErrorBookkeeping(t *testing.T) {
	repo := newTestRepository(t)

	url := "https://example.com/flaky"
	if err := repo.RecordError(url, "timeout"); err != nil {
		t.Fatalf("RecordError failed: %v", err)
	}
	if err := repo.RecordError(url, "timeout again"); err != nil {
		t.Fatalf("RecordError failed: %v", err)
	}

	article := sampleArticle(url)
	if err := repo.Upsert(article); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	stored, err := repo.GetBySourceURL(url)
	if err != nil {
		t.Fatalf("GetBySourceURL failed: %v", err)
	}
	if stored.ErrorCount != 0 {
		t.Errorf("Expected error_count reset to 0, got %d", stored.ErrorCount)
	}
	if stored.LastError != "" {
		t.Errorf("Expected last_error cleared, got '%s'", stored.LastError)
	}
}

func TestRecordError_IncrementsAndExhausts(t *testing.T) {
	repo := newTestRepository(t)

	url := "https://example.com/broken"
	for i := 0; i < MaxErrorCount-1; i++ {
		if err := repo.RecordError(url, "parse error"); err != nil {
			t.Fatalf("RecordError failed: %v", err)
		}
	}

	exhausted, err := repo.IsRetryExhausted(url)
	if err != nil {
		t.Fatalf("IsRetryExhausted failed: %v", err)
	}
	if exhausted {
		t.Errorf("Expected URL not exhausted at %d errors", MaxErrorCount-1)
	}

	if err := repo.RecordError(url, "parse error"); err != nil {
		t.Fatalf("RecordError failed: %v", err)
	}

	exhausted, err = repo.IsRetryExhausted(url)
	if err != nil {
		t.Fatalf("IsRetryExhausted failed: %v", err)
	}
	if !exhausted {
		t.Errorf("Expected URL exhausted at %d errors", MaxErrorCount)
	}

	stored, err := repo.GetBySourceURL(url)
	if err != nil {
		t.Fatalf("GetBySourceURL failed: %v", err)
	}
	if stored.ErrorCount != MaxErrorCount {
		t.Errorf("Expected error_count %d, got %d", MaxErrorCount, stored.ErrorCount)
	}
}

func TestIsRetryExhausted_UnknownURL(t *testing.T) {
	repo := newTestRepository(t)

	exhausted, err := repo.IsRetryExhausted("https://example.com/never-seen")
	if err != nil {
		t.Fatalf("IsRetryExhausted failed: %v", err)
	}
	if exhausted {
		t.Error("Unknown URL must not be exhausted")
	}
}

func TestList_OrderingAndFilters(t *testing.T) {
	repo := newTestRepository(t)

	low := sampleArticle("https://example.com/low")
	low.Importance.Score = 0.3
	low.Category = "Web"

	high := sampleArticle("https://example.com/high")
	high.Importance.Score = 0.9
	high.Category = "Security"

	mid := sampleArticle("https://example.com/mid")
	mid.Importance.Score = 0.6
	mid.Category = "Security"
	mid.Language = "en"

	for _, a := range []*Article{low, high, mid} {
		if err := repo.Upsert(a); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	articles, err := repo.List(ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(articles) != 3 {
		t.Fatalf("Expected 3 articles, got %d", len(articles))
	}
	if articles[0].SourceURL != "https://example.com/high" || articles[2].SourceURL != "https://example.com/low" {
		t.Errorf("Expected importance-descending order, got %s first and %s last",
			articles[0].SourceURL, articles[2].SourceURL)
	}

	security, err := repo.List(ListOptions{Category: "Security"})
	if err != nil {
		t.Fatalf("List with category failed: %v", err)
	}
	if len(security) != 2 {
		t.Errorf("Expected 2 Security articles, got %d", len(security))
	}

	english, err := repo.List(ListOptions{Category: "Security", Language: "en"})
	if err != nil {
		t.Fatalf("List with category and language failed: %v", err)
	}
	if len(english) != 1 || english[0].SourceURL != "https://example.com/mid" {
		t.Errorf("Expected only the English Security article, got %d rows", len(english))
	}

	limited, err := repo.List(ListOptions{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("List with paging failed: %v", err)
	}
	if len(limited) != 1 || limited[0].SourceURL != "https://example.com/mid" {
		t.Errorf("Expected second-ranked article on page 2, got %v", limited)
	}
}

func TestList_ExcludesErrorStubs(t *testing.T) {
	repo := newTestRepository(t)

	if err := repo.RecordError("https://example.com/stub", "fetch failed"); err != nil {
		t.Fatalf("RecordError failed: %v", err)
	}
	if err := repo.Upsert(sampleArticle("https://example.com/real")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	articles, err := repo.List(ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("Expected error stub excluded from listing, got %d rows", len(articles))
	}
}

func TestSoftDelete(t *testing.T) {
	repo := newTestRepository(t)

	article := sampleArticle("https://example.com/k8s")
	if err := repo.Upsert(article); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := repo.SoftDelete(article.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	articles, err := repo.List(ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(articles) != 0 {
		t.Errorf("Expected soft-deleted article hidden from listing, got %d rows", len(articles))
	}

	if got, err := repo.GetByID(article.ID); err != nil || got != nil {
		t.Errorf("Expected GetByID to hide deleted article, got %v (err %v)", got, err)
	}

	// The row itself survives, so the URL stays known
	stored, err := repo.GetBySourceURL("https://example.com/k8s")
	if err != nil {
		t.Fatalf("GetBySourceURL failed: %v", err)
	}
	if stored == nil || stored.DeletedAt == nil {
		t.Error("Expected soft-deleted row to remain reachable by URL")
	}

	if err := repo.SoftDelete(article.ID); err == nil {
		t.Error("Expected error when soft deleting an already deleted article")
	}
}

func TestSoftDelete_RevivedByUpsert(t *testing.T) {
	repo := newTestRepository(t)

	article := sampleArticle("https://example.com/k8s")
	if err := repo.Upsert(article); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := repo.SoftDelete(article.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	if err := repo.Upsert(sampleArticle("https://example.com/k8s")); err != nil {
		t.Fatalf("Re-upsert failed: %v", err)
	}

	articles, err := repo.List(ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(articles) != 1 {
		t.Errorf("Expected re-upserted article visible again, got %d rows", len(articles))
	}
}

func TestGetStats(t *testing.T) {
	repo := newTestRepository(t)

	// A freshly migrated table has no rows; the SUM aggregates must still
	// come back as zero, not NULL
	total, summarized, failed, err := repo.GetStats()
	if err != nil {
		t.Fatalf("GetStats on empty table failed: %v", err)
	}
	if total != 0 || summarized != 0 || failed != 0 {
		t.Errorf("Expected all-zero stats on empty table, got %d/%d/%d", total, summarized, failed)
	}

	if err := repo.Upsert(sampleArticle("https://example.com/a")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	unsummarized := sampleArticle("https://example.com/b")
	unsummarized.Summary = ""
	if err := repo.Upsert(unsummarized); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := repo.RecordError("https://example.com/c", "boom"); err != nil {
		t.Fatalf("RecordError failed: %v", err)
	}

	total, summarized, failed, err = repo.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected total 3, got %d", total)
	}
	if summarized != 1 {
		t.Errorf("Expected 1 summarized, got %d", summarized)
	}
	if failed != 1 {
		t.Errorf("Expected 1 failed, got %d", failed)
	}
}
