package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const requestTimeout = 10 * time.Second

// Notifier posts pipeline results to a Slack incoming webhook. An empty
// webhook URL disables it entirely, which is the default for local runs.
// Delivery is best effort: failures are logged and never propagate.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

func NewNotifier(webhookURL string, httpClient *http.Client) *Notifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Notifier{webhookURL: webhookURL, httpClient: httpClient}
}

func (n *Notifier) Enabled() bool {
	return n.webhookURL != ""
}

type block struct {
	Type   string `json:"type"`
	Text   *text  `json:"text,omitempty"`
	Fields []text `json:"fields,omitempty"`
}

type text struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// NotifySuccess posts a run completion message with the given detail fields
func (n *Notifier) NotifySuccess(ctx context.Context, message string, details map[string]any) {
	if !n.Enabled() {
		return
	}

	blocks := []block{
		{Type: "header", Text: &text{Type: "plain_text", Text: "✅ 処理が完了しました", Emoji: true}},
		{Type: "section", Text: &text{Type: "mrkdwn", Text: message}},
	}
	if len(details) > 0 {
		detail, _ := json.MarshalIndent(details, "", "  ")
		blocks = append(blocks, block{
			Type: "section",
			Text: &text{Type: "mrkdwn", Text: fmt.Sprintf("*詳細:*\n```%s```", detail)},
		})
	}

	n.post(ctx, blocks)
}

// NotifyError posts a failure message with the error and its context
func (n *Notifier) NotifyError(ctx context.Context, runErr error, errContext map[string]any) {
	if !n.Enabled() {
		return
	}

	detail, _ := json.MarshalIndent(errContext, "", "  ")
	blocks := []block{
		{Type: "header", Text: &text{Type: "plain_text", Text: "🚨 エラーが発生しました", Emoji: true}},
		{Type: "section", Fields: []text{
			{Type: "mrkdwn", Text: fmt.Sprintf("*タイムスタンプ:*\n%s", time.Now().Format(time.RFC3339))},
		}},
		{Type: "section", Text: &text{Type: "mrkdwn", Text: fmt.Sprintf("*エラーメッセージ:*\n```%s```", runErr.Error())}},
		{Type: "section", Text: &text{Type: "mrkdwn", Text: fmt.Sprintf("*コンテキスト:*\n```%s```", detail)}},
	}

	n.post(ctx, blocks)
}

func (n *Notifier) post(ctx context.Context, blocks []block) {
	payload, err := json.Marshal(map[string]any{"blocks": blocks})
	if err != nil {
		slog.Error("Failed to marshal Slack payload", "error", err)
		return
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		slog.Error("Failed to create Slack request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		slog.Error("Failed to send Slack notification", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("Slack webhook rejected notification", "status", resp.StatusCode)
	}
}
