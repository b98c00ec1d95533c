// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/stakahashi/technotify/internal/model"
)

// SourceRepository はRSS情報源の永続化インターフェース。
type SourceRepository interface {
	// ListActive はis_active = trueの情報源を返す。
	// 並び順はcreated_at、idの昇順で固定され、同一ラン内で安定している。
	ListActive(ctx context.Context) ([]*model.Source, error)

	// FindByURL はフィードURLで情報源を検索する。見つからない場合はnilを返す。
	FindByURL(ctx context.Context, url string) (*model.Source, error)

	// Create は情報源を作成する。URLの一意制約に違反する場合はエラーを返す。
	Create(ctx context.Context, source *model.Source) error

	// SetActive は情報源の有効/無効を切り替える。
	// パイプライン本体からは呼ばれない管理用操作。
	SetActive(ctx context.Context, id string, active bool) error

	// CountAll は登録済み情報源の総数を返す。
	CountAll(ctx context.Context) (int, error)
}

// HistoryRepository は通知済み記事履歴の永続化インターフェース。
// パイプラインから見て履歴は追記専用であり、既存行の更新・削除は行わない。
type HistoryRepository interface {
	// Exists は指定URLが通知済みかをarticle_urlの一意キーに対して検査する。
	Exists(ctx context.Context, articleURL string) (bool, error)

	// RecordAll は受理された記事を1トランザクションで通知済みとして記録する。
	// 途中で失敗した場合はバッチ全体をロールバックする（部分コミットなし）。
	// article_urlの一意キー衝突は「通知済み」として扱い、エラーにしない。
	RecordAll(ctx context.Context, articles []model.Article) error

	// Count は通知履歴の総件数を返す。
	Count(ctx context.Context) (int, error)

	// DeleteAll は通知履歴を全削除し、削除件数を返す。
	// リセット用の管理操作であり、パイプライン本体からは呼ばれない。
	DeleteAll(ctx context.Context) (int64, error)
}
