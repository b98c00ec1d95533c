package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stakahashi/technotify/internal/model"
)

// Notifier は実行結果レポートのSlackへの配信機能を定義する。
type Notifier interface {
	// Send はレポートをSlackへ配信する。記事が0件の場合も
	// パイプラインの正常動作を示すメッセージを必ず送信する。
	Send(ctx context.Context, report *model.RunReport) error
}

// webhookPayload はIncoming Webhookへ送るリクエストボディ。
type webhookPayload struct {
	Text      string `json:"text"`
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"icon_emoji,omitempty"`
}

// WebhookClient はSlack Incoming Webhookによる配信クライアント。
// レポート全体を1通のメッセージとして送信する。
type WebhookClient struct {
	webhookURL string
	formatter  *Formatter
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookClient はWebhookClientの新しいインスタンスを生成する。
func NewWebhookClient(webhookURL string, formatter *Formatter, logger *slog.Logger) *WebhookClient {
	return &WebhookClient{
		webhookURL: webhookURL,
		formatter:  formatter,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// Send はレポートを1通のWebhookメッセージとして配信する。
func (c *WebhookClient) Send(ctx context.Context, report *model.RunReport) error {
	text := c.formatter.FormatSummary(report, time.Now())

	payload := webhookPayload{
		Text:      text,
		Username:  "Technotify",
		IconEmoji: ":newspaper:",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ペイロードのエンコードに失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Webhookリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("Webhookがステータス %d を返しました: %s", resp.StatusCode, string(respBody))
	}

	c.logger.Info("Slack Webhookへの配信が完了しました",
		slog.Int("article_count", len(report.Articles)),
		slog.Int("error_count", len(report.Errors)),
	)

	return nil
}
