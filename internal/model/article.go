// Package model はドメインモデルを定義する。
package model

import "time"

// ParsedArticle はフィードパース直後の未フィルタの記事を表す。
// フェッチごとに生成される一時データであり、永続化されない。
type ParsedArticle struct {
	URL         string     // 記事URL（必須。リンクのないエントリはパース段階で除外される）
	Title       string     // タイトル（欠落時は "No Title"）
	PublishedAt *time.Time // 公開日時。フィードに解析可能な日付がない場合はnil
	SourceID    string
}

// Article は全フィルタを通過し、通知対象として確定した記事を表す。
type Article struct {
	ParsedArticle
	SourceName string // 通知メッセージに表示する情報源名
}

// NotifiedArticle は通知済み記事の永続レコードを表す。
// article_urlはテーブル全体で一意であり、一度記録されたURLは
// 情報源の無効化・削除に関わらず二度と通知されない。
type NotifiedArticle struct {
	ID          string
	ArticleURL  string
	Title       string
	PublishedAt *time.Time
	NotifiedAt  time.Time
	SourceID    string // 情報源への参照。情報源が削除された場合は空になる
}
