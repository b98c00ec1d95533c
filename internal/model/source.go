// Package model はドメインモデルを定義する。
package model

import "time"

// Source は巡回対象のRSS/Atomフィード情報源を表す。
// URLはシステム全体で一意であり、情報源の実質的な識別キーとなる。
type Source struct {
	ID        string
	Name      string // 企業名・サイト名（表示用、一意ではない）
	URL       string // フィードまたはブログトップのURL（一意）
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
