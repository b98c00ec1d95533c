// Package reset は通知履歴のリセット処理を提供する。
package reset

import (
	"context"
	"fmt"
	"log/slog"
)

// HistoryStore は履歴リセットに必要な永続化機能を定義する。
type HistoryStore interface {
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// Job は通知履歴の全削除を行う管理用ジョブ。
// 削除された記事は次回サイクルで鮮度フィルタを通過すれば再通知される。
type Job struct {
	history HistoryStore
	logger  *slog.Logger
}

// NewJob はJobの新しいインスタンスを生成する。
func NewJob(history HistoryStore, logger *slog.Logger) *Job {
	return &Job{history: history, logger: logger}
}

// Run は通知履歴を全削除し、削除件数を返す。
func (j *Job) Run(ctx context.Context) (int64, error) {
	count, err := j.history.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("通知履歴数の取得に失敗: %w", err)
	}

	j.logger.Info("通知履歴のリセットを開始します",
		slog.Int("current_count", count),
	)

	deleted, err := j.history.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("通知履歴の削除に失敗: %w", err)
	}

	j.logger.Info("通知履歴のリセットが完了しました",
		slog.Int64("deleted_count", deleted),
	)

	return deleted, nil
}
