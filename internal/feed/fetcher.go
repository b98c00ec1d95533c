// Package feed はフィードのHTTPフェッチとパースを提供する。
package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/stakahashi/technotify/internal/model"
	"github.com/stakahashi/technotify/internal/security"
)

// defaultTitle はタイトルのないエントリに使用するプレースホルダ。
const defaultTitle = "No Title"

// FetchResult は1情報源のフェッチ+パース結果を表す。
// Warningが非空の場合、フィードは不完全な状態からパースされたが
// エントリ自体は利用可能であることを示す。
type FetchResult struct {
	Entries []model.ParsedArticle
	Warning string
}

// Fetcher は情報源のHTTPフェッチとgofeedによるパースを行う。
// SSRF検証付きクライアントを使用し、フィードURLとして
// ブログのHTMLページが登録されている場合は自動検出で実フィードへ辿る。
type Fetcher struct {
	ssrfGuard   security.SSRFGuardService
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
func NewFetcher(
	ssrfGuard security.SSRFGuardService,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
) *Fetcher {
	return &Fetcher{
		ssrfGuard:   ssrfGuard,
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// FetchEntries は情報源のフィードをフェッチ・パースし、正規化済みエントリを返す。
// ネットワークエラー、タイムアウト、非200ステータス、パース不能はエラーとして返し、
// 呼び出し元が情報源単位のエラーとして集計する。1情報源の失敗は他に波及しない。
func (f *Fetcher) FetchEntries(ctx context.Context, source *model.Source) (*FetchResult, error) {
	start := time.Now()

	body, err := f.fetch(ctx, source.URL)
	if err != nil {
		return nil, err
	}

	var warning string

	parser := gofeed.NewParser()
	parsedFeed, parseErr := parser.ParseString(string(body))
	if parseErr != nil {
		// フィードとしてパースできないHTMLページの場合はフィードリンクを自動検出する
		if !looksLikeHTML(body) {
			return nil, fmt.Errorf("フィードのパースに失敗: %w", parseErr)
		}

		feedURL := discoverFeedURL(body, source.URL)
		if feedURL == "" {
			return nil, fmt.Errorf("HTMLページからフィードを検出できませんでした: %s", source.URL)
		}

		f.logger.Info("HTMLページからフィードを自動検出しました",
			slog.String("source_name", source.Name),
			slog.String("page_url", source.URL),
			slog.String("feed_url", feedURL),
		)

		body, err = f.fetch(ctx, feedURL)
		if err != nil {
			return nil, err
		}

		parsedFeed, parseErr = parser.ParseString(string(body))
		if parseErr != nil {
			return nil, fmt.Errorf("自動検出したフィードのパースに失敗: %w", parseErr)
		}

		warning = fmt.Sprintf("フィードURLをHTMLページから自動検出しました: %s", feedURL)
	}

	entries := convertItems(parsedFeed.Items, source.ID)

	f.logger.Info("フィードフェッチが完了しました",
		slog.String("source_name", source.Name),
		slog.String("url", source.URL),
		slog.Int("entry_count", len(entries)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return &FetchResult{Entries: entries, Warning: warning}, nil
}

// fetch は1つのURLをSSRF検証付きクライアントで取得し、サイズ制限付きでボディを返す。
// 429および5xxは一時的な失敗とみなし、指数バックオフで最大3回まで試行する。
func (f *Fetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.ssrfGuard.ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("URL検証に失敗: %w", err)
	}

	client := f.ssrfGuard.NewSafeClient(f.timeout)

	var lastErr error
	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, backoffDelay(attempt-1)); err != nil {
				return nil, err
			}
			f.logger.Warn("フェッチをリトライします",
				slog.String("url", rawURL),
				slog.Int("attempt", attempt+1),
			)
		}

		body, retryable, err := f.doFetch(ctx, client, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, lastErr
}

// doFetch は1回のHTTPリクエストを実行する。
// 2番目の戻り値は失敗が一時的でリトライに値するかを示す。
func (f *Fetcher) doFetch(ctx context.Context, client *http.Client, rawURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}

	req.Header.Set("User-Agent", "Technotify/1.0 RSS Notifier")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html, */*")

	resp, err := client.Do(req)
	if err != nil {
		// 接続断やタイムアウトは一時的な失敗として扱う
		return nil, true, fmt.Errorf("HTTPリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, isRetryableStatus(resp.StatusCode),
			fmt.Errorf("HTTPステータス %d が返されました", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, true, fmt.Errorf("レスポンスボディの読み取りに失敗: %w", err)
	}

	return body, false, nil
}

// convertItems はgofeedのエントリをmodel.ParsedArticleに変換する。
// リンクを解決できないエントリは黙ってスキップする（エラーではない）。
// 公開日時が解析できないエントリはPublishedAt = nilとなり、後段の
// 鮮度フィルタが設定に従って扱う。これも正常系である。
func convertItems(items []*gofeed.Item, sourceID string) []model.ParsedArticle {
	entries := make([]model.ParsedArticle, 0, len(items))

	for _, item := range items {
		if item == nil {
			continue
		}

		link := item.Link
		// リンクがなくGUIDがURL形式の場合はGUIDをリンクとして使用
		if link == "" && item.GUID != "" &&
			(strings.HasPrefix(item.GUID, "http://") || strings.HasPrefix(item.GUID, "https://")) {
			link = item.GUID
		}
		if link == "" {
			continue
		}

		title := item.Title
		if title == "" {
			title = defaultTitle
		}

		var publishedAt *time.Time
		if item.PublishedParsed != nil {
			t := *item.PublishedParsed
			publishedAt = &t
		} else if item.UpdatedParsed != nil {
			t := *item.UpdatedParsed
			publishedAt = &t
		}

		entries = append(entries, model.ParsedArticle{
			URL:         link,
			Title:       title,
			PublishedAt: publishedAt,
			SourceID:    sourceID,
		})
	}

	return entries
}
