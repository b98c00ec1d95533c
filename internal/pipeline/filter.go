// Package pipeline はフェッチ済みエントリに対する選別処理を提供する。
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stakahashi/technotify/internal/model"
)

// DefaultAgeLimitDays は鮮度フィルタのデフォルト日数。
const DefaultAgeLimitDays = 7

// DefaultExcludeKeywords はキーワードフィルタのデフォルト除外語。
// 技術記事ではなくイベント告知・採用情報を対象とする。
var DefaultExcludeKeywords = []string{
	"イベント",
	"セミナー",
	"勉強会",
	"募集",
	"採用",
	"アドベントカレンダー",
	"advent calendar",
	"meetup",
	"カンファレンス",
}

// HistoryChecker は通知履歴の存在確認機能を定義する。
type HistoryChecker interface {
	Exists(ctx context.Context, articleURL string) (bool, error)
}

// TitleCleaner は記事タイトルの正規化機能を定義する。
type TitleCleaner interface {
	Clean(rawTitle string) string
}

// Config はフィルタの動作設定。
type Config struct {
	// AgeLimitDays は記事を新着とみなす日数。0以下の場合はデフォルト値を使う。
	AgeLimitDays int
	// AllowUnknownDate は公開日時が不明な記事を通過させるかどうか。
	AllowUnknownDate bool
	// EnableKeywordFilter はキーワードフィルタを有効にするかどうか。
	EnableKeywordFilter bool
	// ExcludeKeywords は除外キーワード。nilの場合はデフォルトを使う。
	ExcludeKeywords []string
}

// Filter はエントリ列に対して重複・鮮度・キーワードの3段階の選別を適用する。
type Filter struct {
	history          HistoryChecker
	cleaner          TitleCleaner
	logger           *slog.Logger
	ageLimit         int
	allowUnknownDate bool
	keywordEnabled   bool
	excludeKeywords  []string
}

// New はFilterの新しいインスタンスを生成する。
// cfg.AgeLimitDaysが0以下の場合、cfg.ExcludeKeywordsがnilの場合はデフォルトを適用する。
func New(history HistoryChecker, cleaner TitleCleaner, logger *slog.Logger, cfg Config) *Filter {
	ageLimit := cfg.AgeLimitDays
	if ageLimit <= 0 {
		ageLimit = DefaultAgeLimitDays
	}

	keywords := cfg.ExcludeKeywords
	if keywords == nil {
		keywords = DefaultExcludeKeywords
	}

	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}

	return &Filter{
		history:          history,
		cleaner:          cleaner,
		logger:           logger,
		ageLimit:         ageLimit,
		allowUnknownDate: cfg.AllowUnknownDate,
		keywordEnabled:   cfg.EnableKeywordFilter,
		excludeKeywords:  lowered,
	}
}

// FilterEntries はエントリ列に重複排除・鮮度・キーワードの選別を順に適用し、
// 通過した記事を入力順のまま返す。タイトルは正規化済みのものに置き換えられる。
// 履歴の照会に失敗した場合はエラーを返し、呼び出し元が情報源単位の失敗として扱う。
func (f *Filter) FilterEntries(ctx context.Context, entries []model.ParsedArticle, sourceName string) ([]model.Article, error) {
	accepted := make([]model.Article, 0, len(entries))
	now := time.Now()
	cutoff := now.AddDate(0, 0, -f.ageLimit)

	var droppedDup, droppedStale, droppedKeyword int

	for _, entry := range entries {
		exists, err := f.history.Exists(ctx, entry.URL)
		if err != nil {
			return nil, fmt.Errorf("通知履歴の照会に失敗: %w", err)
		}
		if exists {
			droppedDup++
			continue
		}

		if !f.isFresh(entry.PublishedAt, cutoff) {
			droppedStale++
			continue
		}

		cleanTitle := f.cleaner.Clean(entry.Title)

		if f.keywordEnabled && f.matchesExcludeKeyword(cleanTitle) {
			droppedKeyword++
			continue
		}

		article := model.Article{
			ParsedArticle: entry,
			SourceName:    sourceName,
		}
		article.Title = cleanTitle
		accepted = append(accepted, article)
	}

	f.logger.Debug("エントリの選別が完了しました",
		slog.String("source_name", sourceName),
		slog.Int("input_count", len(entries)),
		slog.Int("accepted_count", len(accepted)),
		slog.Int("dropped_duplicate", droppedDup),
		slog.Int("dropped_stale", droppedStale),
		slog.Int("dropped_keyword", droppedKeyword),
	)

	return accepted, nil
}

// isFresh は公開日時が鮮度範囲内かを判定する。
// 境界ちょうど（cutoffと同時刻）の記事は新着として扱う。
// 公開日時が不明な記事の扱いはAllowUnknownDate設定に従う。
func (f *Filter) isFresh(publishedAt *time.Time, cutoff time.Time) bool {
	if publishedAt == nil {
		return f.allowUnknownDate
	}
	return !publishedAt.Before(cutoff)
}

// matchesExcludeKeyword は正規化済みタイトルが除外キーワードを含むかを判定する。
// 照合は大文字小文字を区別しない部分一致。
func (f *Filter) matchesExcludeKeyword(cleanTitle string) bool {
	loweredTitle := strings.ToLower(cleanTitle)
	for _, kw := range f.excludeKeywords {
		if strings.Contains(loweredTitle, kw) {
			return true
		}
	}
	return false
}
