package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stakahashi/technotify/internal/model"
	"github.com/stakahashi/technotify/internal/security"
)

// mockHistory はHistoryCheckerのモック実装。
type mockHistory struct {
	notified map[string]bool
	err      error
}

func (m *mockHistory) Exists(ctx context.Context, articleURL string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.notified[articleURL], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFilter(history *mockHistory, cfg Config) *Filter {
	return New(history, security.NewTitleSanitizer(), testLogger(), cfg)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestFilterEntries_DropsAlreadyNotified(t *testing.T) {
	history := &mockHistory{notified: map[string]bool{
		"https://example.com/old": true,
	}}
	filter := newTestFilter(history, Config{AllowUnknownDate: true})

	now := time.Now()
	entries := []model.ParsedArticle{
		{URL: "https://example.com/old", Title: "既知の記事", PublishedAt: timePtr(now)},
		{URL: "https://example.com/new", Title: "新しい記事", PublishedAt: timePtr(now)},
	}

	accepted, err := filter.FilterEntries(context.Background(), entries, "ブログ")
	if err != nil {
		t.Fatalf("FilterEntries failed: %v", err)
	}

	if len(accepted) != 1 {
		t.Fatalf("accepted = %d, want 1", len(accepted))
	}
	if accepted[0].URL != "https://example.com/new" {
		t.Errorf("URL = %q", accepted[0].URL)
	}
	if accepted[0].SourceName != "ブログ" {
		t.Errorf("SourceName = %q, want ブログ", accepted[0].SourceName)
	}
}

// 鮮度境界の判定を検証。境界ちょうどの記事は新着として通過する。
func TestFilterEntries_AgeBoundary(t *testing.T) {
	history := &mockHistory{notified: map[string]bool{}}
	filter := newTestFilter(history, Config{AgeLimitDays: 7})

	now := time.Now()
	entries := []model.ParsedArticle{
		{URL: "https://example.com/fresh", Title: "新着", PublishedAt: timePtr(now.AddDate(0, 0, -7).Add(time.Second))},
		{URL: "https://example.com/stale", Title: "古い", PublishedAt: timePtr(now.AddDate(0, 0, -7).Add(-time.Second))},
	}

	accepted, err := filter.FilterEntries(context.Background(), entries, "ブログ")
	if err != nil {
		t.Fatalf("FilterEntries failed: %v", err)
	}

	if len(accepted) != 1 {
		t.Fatalf("accepted = %d, want 1", len(accepted))
	}
	if accepted[0].URL != "https://example.com/fresh" {
		t.Errorf("URL = %q", accepted[0].URL)
	}
}

func TestFilterEntries_UnknownDate(t *testing.T) {
	entries := []model.ParsedArticle{
		{URL: "https://example.com/undated", Title: "日付なし"},
	}

	t.Run("許可する場合は通過", func(t *testing.T) {
		filter := newTestFilter(&mockHistory{notified: map[string]bool{}}, Config{AllowUnknownDate: true})
		accepted, err := filter.FilterEntries(context.Background(), entries, "ブログ")
		if err != nil {
			t.Fatalf("FilterEntries failed: %v", err)
		}
		if len(accepted) != 1 {
			t.Errorf("accepted = %d, want 1", len(accepted))
		}
	})

	t.Run("許可しない場合は除外", func(t *testing.T) {
		filter := newTestFilter(&mockHistory{notified: map[string]bool{}}, Config{AllowUnknownDate: false})
		accepted, err := filter.FilterEntries(context.Background(), entries, "ブログ")
		if err != nil {
			t.Fatalf("FilterEntries failed: %v", err)
		}
		if len(accepted) != 0 {
			t.Errorf("accepted = %d, want 0", len(accepted))
		}
	})
}

func TestFilterEntries_KeywordFilter(t *testing.T) {
	history := &mockHistory{notified: map[string]bool{}}
	filter := newTestFilter(history, Config{
		AllowUnknownDate:    true,
		EnableKeywordFilter: true,
	})

	entries := []model.ParsedArticle{
		{URL: "https://example.com/1", Title: "Goのジェネリクス入門"},
		{URL: "https://example.com/2", Title: "社内勉強会を開催しました"},
		{URL: "https://example.com/3", Title: "エンジニア採用はじめました"},
		{URL: "https://example.com/4", Title: "Advent Calendar 2026 やります"},
	}

	accepted, err := filter.FilterEntries(context.Background(), entries, "ブログ")
	if err != nil {
		t.Fatalf("FilterEntries failed: %v", err)
	}

	if len(accepted) != 1 {
		t.Fatalf("accepted = %d, want 1", len(accepted))
	}
	if accepted[0].URL != "https://example.com/1" {
		t.Errorf("URL = %q", accepted[0].URL)
	}
}

// キーワードフィルタ無効時は除外キーワードを含む記事も通過する
func TestFilterEntries_KeywordFilterDisabled(t *testing.T) {
	history := &mockHistory{notified: map[string]bool{}}
	filter := newTestFilter(history, Config{
		AllowUnknownDate:    true,
		EnableKeywordFilter: false,
	})

	entries := []model.ParsedArticle{
		{URL: "https://example.com/1", Title: "社内勉強会を開催しました"},
	}

	accepted, err := filter.FilterEntries(context.Background(), entries, "ブログ")
	if err != nil {
		t.Fatalf("FilterEntries failed: %v", err)
	}
	if len(accepted) != 1 {
		t.Errorf("accepted = %d, want 1", len(accepted))
	}
}

// HTML実体参照を含むタイトルがデコード後に照合されることを検証
func TestFilterEntries_KeywordMatchesDecodedTitle(t *testing.T) {
	history := &mockHistory{notified: map[string]bool{}}
	filter := newTestFilter(history, Config{
		AllowUnknownDate:    true,
		EnableKeywordFilter: true,
		ExcludeKeywords:     []string{"meetup & lt"},
	})

	entries := []model.ParsedArticle{
		{URL: "https://example.com/1", Title: "Meetup &#38; LT Night"},
	}

	accepted, err := filter.FilterEntries(context.Background(), entries, "ブログ")
	if err != nil {
		t.Fatalf("FilterEntries failed: %v", err)
	}
	if len(accepted) != 0 {
		t.Errorf("accepted = %d, want 0 (decoded title should match keyword)", len(accepted))
	}
}

func TestFilterEntries_CaseInsensitiveKeyword(t *testing.T) {
	history := &mockHistory{notified: map[string]bool{}}
	filter := newTestFilter(history, Config{
		AllowUnknownDate:    true,
		EnableKeywordFilter: true,
	})

	entries := []model.ParsedArticle{
		{URL: "https://example.com/1", Title: "Tokyo Gopher MEETUP vol.5"},
	}

	accepted, err := filter.FilterEntries(context.Background(), entries, "ブログ")
	if err != nil {
		t.Fatalf("FilterEntries failed: %v", err)
	}
	if len(accepted) != 0 {
		t.Errorf("accepted = %d, want 0", len(accepted))
	}
}

func TestFilterEntries_CustomKeywordsReplaceDefaults(t *testing.T) {
	history := &mockHistory{notified: map[string]bool{}}
	filter := newTestFilter(history, Config{
		AllowUnknownDate:    true,
		EnableKeywordFilter: true,
		ExcludeKeywords:     []string{"ポエム"},
	})

	entries := []model.ParsedArticle{
		{URL: "https://example.com/1", Title: "社内勉強会を開催しました"},
		{URL: "https://example.com/2", Title: "転職ポエム"},
	}

	accepted, err := filter.FilterEntries(context.Background(), entries, "ブログ")
	if err != nil {
		t.Fatalf("FilterEntries failed: %v", err)
	}
	if len(accepted) != 1 {
		t.Fatalf("accepted = %d, want 1", len(accepted))
	}
	if accepted[0].URL != "https://example.com/1" {
		t.Errorf("URL = %q", accepted[0].URL)
	}
}

func TestFilterEntries_HistoryErrorPropagates(t *testing.T) {
	history := &mockHistory{err: errors.New("接続エラー")}
	filter := newTestFilter(history, Config{AllowUnknownDate: true})

	entries := []model.ParsedArticle{
		{URL: "https://example.com/1", Title: "記事"},
	}

	if _, err := filter.FilterEntries(context.Background(), entries, "ブログ"); err == nil {
		t.Fatal("expected error when history lookup fails")
	}
}

func TestFilterEntries_PreservesOrder(t *testing.T) {
	history := &mockHistory{notified: map[string]bool{}}
	filter := newTestFilter(history, Config{AllowUnknownDate: true})

	entries := []model.ParsedArticle{
		{URL: "https://example.com/a", Title: "記事A"},
		{URL: "https://example.com/b", Title: "記事B"},
		{URL: "https://example.com/c", Title: "記事C"},
	}

	accepted, err := filter.FilterEntries(context.Background(), entries, "ブログ")
	if err != nil {
		t.Fatalf("FilterEntries failed: %v", err)
	}

	want := []string{"https://example.com/a", "https://example.com/b", "https://example.com/c"}
	for i, u := range want {
		if accepted[i].URL != u {
			t.Errorf("accepted[%d].URL = %q, want %q", i, accepted[i].URL, u)
		}
	}
}

func TestFilterEntries_EmptyInput(t *testing.T) {
	filter := newTestFilter(&mockHistory{notified: map[string]bool{}}, Config{})

	accepted, err := filter.FilterEntries(context.Background(), nil, "ブログ")
	if err != nil {
		t.Fatalf("FilterEntries failed: %v", err)
	}
	if len(accepted) != 0 {
		t.Errorf("accepted = %d, want 0", len(accepted))
	}
}
