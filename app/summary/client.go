package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxInputChars    = 1000
	fallbackChars    = 200
	requestTimeout   = 20 * time.Second
	maxAttempts      = 3
	initialBackoff   = time.Second
	maxBackoff       = 10 * time.Second
	requestInterval  = 2 * time.Second
	summaryMaxTokens = 200
)

// Categories the classifier may assign. Anything the model returns outside
// this list collapses to CategoryOther.
const (
	CategoryAIML       = "AI/ML"
	CategoryDev        = "Development"
	CategorySecurity   = "Security"
	CategoryCloud      = "Cloud"
	CategoryMobile     = "Mobile"
	CategoryWeb        = "Web"
	CategoryBlockchain = "Blockchain"
	CategoryOther      = "Other"
)

var validCategories = map[string]bool{
	CategoryAIML:       true,
	CategoryDev:        true,
	CategorySecurity:   true,
	CategoryCloud:      true,
	CategoryMobile:     true,
	CategoryWeb:        true,
	CategoryBlockchain: true,
	CategoryOther:      true,
}

type Options struct {
	Language  string // "ja" or "en"
	MaxLength int    // characters, 0 means default 300
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// terminalError marks upstream 4xx responses that must not be retried.
type terminalError struct {
	status int
	body   string
}

func (e *terminalError) Error() string {
	return fmt.Sprintf("API rejected request: %d %s", e.status, e.body)
}

// Client wraps the DeepSeek chat-completion API. All calls share a single
// fixed-interval rate limiter because the upstream rate limit is a
// process-wide resource, not a per-article one.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *Cache

	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func NewClient(endpoint, model, apiKey string, httpClient *http.Client, cache *Cache) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{
		endpoint:       endpoint,
		model:          model,
		apiKey:         apiKey,
		httpClient:     httpClient,
		limiter:        rate.NewLimiter(rate.Every(requestInterval), 1),
		cache:          cache,
		maxAttempts:    maxAttempts,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
	}
}

// Cache exposes the underlying TTL cache so the pipeline can sweep it before
// each run.
func (c *Client) Cache() *Cache {
	return c.cache
}

// Summarize returns a short summary of the content, keyed and cached by URL.
// It never fails: when the API is unreachable or keeps erroring, the first
// 200 characters of the content serve as a deterministic fallback.
func (c *Client) Summarize(ctx context.Context, content, url string, opts Options) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}

	if cached, ok := c.cache.Get(url); ok {
		slog.Debug("Summary cache hit", "url", url)
		return cached
	}

	result, err := c.complete(ctx,
		summarySystemPrompt(opts),
		truncateRunes(content, maxInputChars),
		summaryMaxTokens, 0.3)
	if err != nil {
		slog.Warn("Summarization failed, using fallback excerpt", "url", url, "error", err)
		return fallbackExcerpt(content)
	}

	c.cache.Set(url, result)
	return result
}

// Classify assigns one of the fixed category labels. Failures and
// unrecognized answers degrade to CategoryOther.
func (c *Client) Classify(ctx context.Context, title, content string) string {
	prompt := fmt.Sprintf("タイトル: %s\n%s", title, truncateRunes(content, maxInputChars))

	result, err := c.complete(ctx, classifySystemPrompt, prompt, 10, 0.0)
	if err != nil {
		slog.Warn("Classification failed", "title", title, "error", err)
		return CategoryOther
	}

	category := strings.TrimSpace(result)
	if !validCategories[category] {
		slog.Debug("Classifier returned unknown category", "category", category)
		return CategoryOther
	}
	return category
}

// Translate renders text into the target language. An empty return value
// means the caller should keep the original text.
func (c *Client) Translate(ctx context.Context, text, targetLang string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	key := "translate:" + targetLang + ":" + text
	if cached, ok := c.cache.Get(key); ok {
		return cached
	}

	system := "以下のテキストを自然な日本語に翻訳してください。翻訳のみを出力してください。"
	if targetLang == "en" {
		system = "Translate the following text into natural English. Output only the translation."
	}

	result, err := c.complete(ctx, system, truncateRunes(text, maxInputChars), 300, 0.3)
	if err != nil {
		slog.Warn("Translation failed", "target", targetLang, "error", err)
		return ""
	}

	c.cache.Set(key, result)
	return result
}

// complete performs one rate-limited chat completion with a bounded retry
// loop. 4xx responses are terminal; everything else retries with exponential
// backoff up to maxAttempts.
func (c *Client) complete(ctx context.Context, system, user string, maxTokens int, temperature float64) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	backoff := c.initialBackoff

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		result, err := c.post(ctx, payload)
		if err == nil {
			return result, nil
		}

		if terminal, ok := err.(*terminalError); ok {
			return "", terminal
		}

		lastErr = err
		slog.Debug("Chat completion attempt failed", "attempt", attempt, "max_attempts", c.maxAttempts, "error", err)

		if attempt < c.maxAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > c.maxBackoff {
				backoff = c.maxBackoff
			}
		}
	}

	return "", fmt.Errorf("chat completion failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) post(ctx context.Context, payload []byte) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return "", &terminalError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse API response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from API")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func summarySystemPrompt(opts Options) string {
	maxLength := opts.MaxLength
	if maxLength == 0 {
		maxLength = 300
	}

	if opts.Language == "en" {
		return fmt.Sprintf("You are an expert at summarizing technical articles. Summarize the given article in 3-4 concise sentences, at most %d characters.", maxLength)
	}
	return fmt.Sprintf("あなたは技術記事の要約を生成する専門家です。与えられた記事を3-4文、最大%d文字で簡潔に要約してください。", maxLength)
}

const classifySystemPrompt = `記事のカテゴリーを以下から1つ選んでください：
- AI/ML: AI、機械学習、データサイエンス関連
- Development: プログラミング、開発ツール、開発手法
- Security: セキュリティ、プライバシー、暗号化
- Cloud: クラウドサービス、インフラ、サーバー
- Mobile: モバイルアプリ、スマートフォン、タブレット
- Web: Webサービス、ブラウザ、フロントエンド
- Blockchain: ブロックチェーン、暗号通貨、NFT
- Other: 上記に当てはまらないもの

カテゴリー名のみを英語で回答してください。`

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func fallbackExcerpt(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= fallbackChars {
		return string(runes)
	}
	return string(runes[:fallbackChars]) + "..."
}
