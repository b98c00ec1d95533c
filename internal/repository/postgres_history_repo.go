package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stakahashi/technotify/internal/model"
)

// PostgresHistoryRepo はPostgreSQLを使用した通知履歴リポジトリ。
type PostgresHistoryRepo struct {
	db *sql.DB
}

// NewPostgresHistoryRepo はPostgresHistoryRepoを生成する。
func NewPostgresHistoryRepo(db *sql.DB) *PostgresHistoryRepo {
	return &PostgresHistoryRepo{db: db}
}

// Exists は指定URLが通知済みかを検査する。
func (r *PostgresHistoryRepo) Exists(ctx context.Context, articleURL string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM notified_articles WHERE article_url = $1)`,
		articleURL,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("通知済みチェックに失敗しました: %w", err)
	}
	return exists, nil
}

// RecordAll は受理された記事を1トランザクションで通知済みとして記録する。
// ON CONFLICT DO NOTHINGにより、並行ラン同士でarticle_urlが衝突しても
// 後着のINSERTは黙って無視され、バッチ全体は失敗しない。
// 衝突以外の失敗時は全件ロールバックする。
func (r *PostgresHistoryRepo) RecordAll(ctx context.Context, articles []model.Article) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, article := range articles {
		var publishedAt sql.NullTime
		if article.PublishedAt != nil {
			publishedAt = sql.NullTime{Time: *article.PublishedAt, Valid: true}
		}

		var sourceID sql.NullString
		if article.SourceID != "" {
			sourceID = sql.NullString{String: article.SourceID, Valid: true}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO notified_articles (id, article_url, title, published_at, notified_at, source_id)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (article_url) DO NOTHING`,
			uuid.NewString(), article.URL, article.Title,
			publishedAt, now, sourceID,
		)
		if err != nil {
			return fmt.Errorf("通知履歴の記録に失敗しました (%s): %w", article.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("通知履歴のコミットに失敗しました: %w", err)
	}

	return nil
}

// Count は通知履歴の総件数を返す。
func (r *PostgresHistoryRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notified_articles`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("通知履歴件数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// DeleteAll は通知履歴を全削除し、削除件数を返す。
func (r *PostgresHistoryRepo) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notified_articles`)
	if err != nil {
		return 0, fmt.Errorf("通知履歴の削除に失敗しました: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}

	return deleted, nil
}
