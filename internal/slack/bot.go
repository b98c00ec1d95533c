package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/stakahashi/technotify/internal/model"
)

// defaultAPIBaseURL はSlack Web APIのベースURL。テストで差し替える。
const defaultAPIBaseURL = "https://slack.com/api"

// postMessageRequest はchat.postMessageのリクエストボディ。
type postMessageRequest struct {
	Channel  string `json:"channel"`
	Text     string `json:"text"`
	ThreadTS string `json:"thread_ts,omitempty"`
}

// postMessageResponse はchat.postMessageのレスポンスボディ。
type postMessageResponse struct {
	OK    bool   `json:"ok"`
	TS    string `json:"ts"`
	Error string `json:"error"`
}

// BotClient はSlack Bot Token（chat.postMessage）による配信クライアント。
// 親メッセージとして見出しを投稿し、各記事をそのスレッドへ返信として送る。
// Slack APIのレートリミット（Tier: 1メッセージ/秒）を遵守するため
// 各投稿の前にレートリミッタで待機する。
type BotClient struct {
	baseURL    string
	token      string
	channel    string
	formatter  *Formatter
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewBotClient はBotClientの新しいインスタンスを生成する。
func NewBotClient(token, channel string, formatter *Formatter, logger *slog.Logger) *BotClient {
	return &BotClient{
		baseURL:    defaultAPIBaseURL,
		token:      token,
		channel:    channel,
		formatter:  formatter,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
		logger:     logger,
	}
}

// Send は見出しメッセージを投稿し、各記事をスレッド返信として配信する。
// いずれかの投稿が失敗した場合はエラーを返し、実行全体が失敗扱いとなる。
func (c *BotClient) Send(ctx context.Context, report *model.RunReport) error {
	now := time.Now()

	headlineTS, err := c.postMessage(ctx, c.formatter.FormatHeadline(report, now), "")
	if err != nil {
		return fmt.Errorf("見出しメッセージの投稿に失敗: %w", err)
	}

	for i, article := range report.Articles {
		text := c.formatter.FormatArticle(i+1, &article)
		if _, err := c.postMessage(ctx, text, headlineTS); err != nil {
			return fmt.Errorf("記事のスレッド投稿に失敗 (%d件目): %w", i+1, err)
		}
	}

	c.logger.Info("Slack Botによる配信が完了しました",
		slog.String("channel", c.channel),
		slog.Int("article_count", len(report.Articles)),
		slog.Int("error_count", len(report.Errors)),
	)

	return nil
}

// postMessage は1通のメッセージを投稿し、投稿先スレッド特定用のtsを返す。
func (c *BotClient) postMessage(ctx context.Context, text, threadTS string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("レートリミッタ待機中に中断: %w", err)
	}

	body, err := json.Marshal(postMessageRequest{
		Channel:  c.channel,
		Text:     text,
		ThreadTS: threadTS,
	})
	if err != nil {
		return "", fmt.Errorf("ペイロードのエンコードに失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("APIリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("APIがステータス %d を返しました", resp.StatusCode)
	}

	var apiResp postMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("レスポンスのデコードに失敗: %w", err)
	}

	if !apiResp.OK {
		return "", fmt.Errorf("Slack APIエラー: %s", apiResp.Error)
	}

	return apiResp.TS, nil
}
