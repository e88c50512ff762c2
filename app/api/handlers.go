package api

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/akifumi/technews/app/database"
	"github.com/akifumi/technews/app/pipeline"
	"github.com/akifumi/technews/app/sources"
)

func NewHandler(articleRepo database.ArticleStore, sourcesCache *sources.Cache,
	runner PipelineRunnerInterface, cronSecret, version string) *Handler {
	return &Handler{
		articleRepo:  articleRepo,
		sourcesCache: sourcesCache,
		runner:       runner,
		cronSecret:   cronSecret,
		version:      version,
	}
}

// RunCron triggers a synchronous pipeline run. The secret check happens
// before anything else; a mismatch never touches the pipeline.
func (h *Handler) RunCron(c *gin.Context) {
	auth := c.GetHeader("Authorization")
	expected := "Bearer " + h.cronSecret
	if subtle.ConstantTimeCompare([]byte(auth), []byte(expected)) != 1 {
		slog.Warn("Cron trigger rejected", "client_ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "Unauthorized",
		})
		return
	}

	stats, err := h.runner.Run(c.Request.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error":   "A pipeline run is already in progress",
			})
			return
		}
		slog.Error("Pipeline run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"total":          stats.Total,
			"success":        stats.Success,
			"failed":         stats.Failed,
			"skipped":        stats.Skipped,
			"errors":         stats.Errors,
			"processingTime": stats.ProcessingTime.String(),
		},
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	health["loaded_sources"] = h.sourcesCache.Count()

	if total, _, _, err := h.articleRepo.GetStats(); err == nil {
		health["articles"] = total
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	total, summarized, failed, err := h.articleRepo.GetStats()
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"articles": gin.H{
			"total":      total,
			"summarized": summarized,
			"failed":     failed,
		},
		"sources": h.sourcesCache.Count(),
	})
}

func (h *Handler) ListArticles(c *gin.Context) {
	opts := database.ListOptions{
		Category: c.Query("category"),
		Language: c.Query("language"),
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		opts.Offset = offset
	}

	articles, err := h.articleRepo.List(opts)
	if err != nil {
		slog.Error("Database error", "operation", "list_articles", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	payload := make([]map[string]interface{}, 0, len(articles))
	for _, article := range articles {
		payload = append(payload, articleJSON(&article))
	}

	c.JSON(http.StatusOK, gin.H{
		"articles": payload,
		"count":    len(payload),
	})
}

func (h *Handler) APIGetArticle(c *gin.Context) {
	article, err := h.articleRepo.GetByID(c.Param("id"))
	if err != nil {
		slog.Error("Database error", "operation", "get_article", "id", c.Param("id"), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if article == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}

	c.JSON(http.StatusOK, articleJSON(article))
}

func (h *Handler) APIDeleteArticle(c *gin.Context) {
	id := c.Param("id")

	article, err := h.articleRepo.GetByID(id)
	if err != nil {
		slog.Error("Database error", "operation", "delete_article", "id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if article == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}

	if err := h.articleRepo.SoftDelete(id); err != nil {
		slog.Error("Database error", "operation", "soft_delete", "id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	slog.Info("Article soft deleted", "id", id, "url", article.SourceURL)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func articleJSON(article *database.Article) map[string]interface{} {
	payload := map[string]interface{}{
		"id":              article.ID,
		"url":             article.SourceURL,
		"title":           article.Title,
		"translatedTitle": article.TranslatedTitle,
		"summary":         article.Summary,
		"imageUrl":        article.ImageURL,
		"sourceName":      article.SourceName,
		"language":        article.Language,
		"category":        article.Category,
		"importance": map[string]float64{
			"score":         article.Importance.Score,
			"sourceWeight":  article.Importance.SourceWeight,
			"keywordWeight": article.Importance.KeywordWeight,
			"freshness":     article.Importance.Freshness,
			"contentLength": article.Importance.ContentLength,
		},
		"createdAt": article.CreatedAt.Format(time.RFC3339),
		"updatedAt": article.UpdatedAt.Format(time.RFC3339),
	}

	if article.PublishedAt != nil {
		payload["publishedAt"] = article.PublishedAt.Format(time.RFC3339)
	}

	return payload
}
