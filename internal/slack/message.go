// Package slack はSlackへの通知メッセージの整形と送信を提供する。
package slack

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stakahashi/technotify/internal/model"
)

// emptyMessage は新着記事が1件もない場合の本文。
const emptyMessage = "本日は新着記事がありませんでした。"

// footer は全メッセージ共通の末尾。
const footer = "_良い一日を！_ :coffee:"

// Formatter は実行結果レポートをSlackのmrkdwn形式テキストへ整形する。
// cacheBusterが有効な場合、記事URLの末尾に一意なフラグメントを付加して
// Slackのリンクプレビューキャッシュを回避する。フラグメントはメッセージ上の
// 表示にのみ使われ、通知履歴には元のURLが記録される。
type Formatter struct {
	loc         *time.Location
	cacheBuster bool
}

// NewFormatter はFormatterの新しいインスタンスを生成する。
func NewFormatter(loc *time.Location, cacheBuster bool) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{loc: loc, cacheBuster: cacheBuster}
}

// FormatSummary はレポート全体を1通のメッセージ本文へ整形する。
// Webhook配信モードで使用する。
func (f *Formatter) FormatSummary(report *model.RunReport, now time.Time) string {
	var b strings.Builder

	b.WriteString(f.header(report, now))

	if len(report.Articles) > 0 {
		b.WriteString("\n")
		for i, article := range report.Articles {
			b.WriteString("\n")
			b.WriteString(f.FormatArticle(i+1, &article))
			b.WriteString("\n")
		}
	}

	if len(report.Errors) > 0 {
		b.WriteString("\n")
		b.WriteString(f.formatErrors(report.Errors))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(footer)

	return b.String()
}

// FormatHeadline はBot配信モードのスレッド親メッセージ本文を整形する。
// 記事本体はスレッド返信として個別に送られるため件数のみを含む。
func (f *Formatter) FormatHeadline(report *model.RunReport, now time.Time) string {
	var b strings.Builder

	b.WriteString(f.header(report, now))

	if len(report.Errors) > 0 {
		b.WriteString("\n")
		b.WriteString(f.formatErrors(report.Errors))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(footer)

	return b.String()
}

// FormatArticle は1記事をメッセージの1エントリへ整形する。
//
//	1. <https://example.com/post|記事タイトル>
//	   :office: ブログ名 | 2026-08-29
func (f *Formatter) FormatArticle(number int, article *model.Article) string {
	url := article.URL
	if f.cacheBuster {
		url = url + "#" + uuid.NewString()
	}

	dateLabel := "日付不明"
	if article.PublishedAt != nil {
		dateLabel = article.PublishedAt.In(f.loc).Format("2006-01-02")
	}

	return fmt.Sprintf("%d. <%s|%s>\n   :office: %s | %s",
		number, url, escapeText(article.Title), article.SourceName, dateLabel)
}

// header は日付・情報源数・記事件数を含むメッセージ冒頭を整形する。
func (f *Formatter) header(report *model.RunReport, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, ":newspaper: *本日の新着記事* (%s)\n", now.In(f.loc).Format("2006年01月02日"))

	if len(report.Articles) == 0 {
		b.WriteString(emptyMessage)
	} else {
		fmt.Fprintf(&b, "%d情報源から%d件の新着記事があります。",
			report.TotalSources, len(report.Articles))
	}

	return b.String()
}

// formatErrors はエラーが発生した情報源の一覧を整形する。
func (f *Formatter) formatErrors(errs []model.SourceError) string {
	var b strings.Builder

	fmt.Fprintf(&b, ":warning: %d件の情報源でエラーが発生しました。", len(errs))
	for _, e := range errs {
		fmt.Fprintf(&b, "\n• %s: %s", e.SourceName, e.Message)
	}

	return b.String()
}

// escapeText はSlackのmrkdwnで特別な意味を持つ文字をエスケープする。
// リンクラベル内に & < > が含まれると表示が壊れるため。
func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
