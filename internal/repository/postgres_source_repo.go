package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stakahashi/technotify/internal/model"
)

// PostgresSourceRepo はPostgreSQLを使用した情報源リポジトリ。
type PostgresSourceRepo struct {
	db *sql.DB
}

// NewPostgresSourceRepo はPostgresSourceRepoを生成する。
func NewPostgresSourceRepo(db *sql.DB) *PostgresSourceRepo {
	return &PostgresSourceRepo{db: db}
}

// ListActive はis_active = trueの情報源をcreated_at、idの昇順で返す。
func (r *PostgresSourceRepo) ListActive(ctx context.Context) ([]*model.Source, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, url, is_active, created_at, updated_at
		 FROM rss_sources
		 WHERE is_active = TRUE
		 ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("有効な情報源の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var sources []*model.Source
	for rows.Next() {
		source := &model.Source{}
		if err := rows.Scan(
			&source.ID, &source.Name, &source.URL,
			&source.IsActive, &source.CreatedAt, &source.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("情報源のスキャンに失敗しました: %w", err)
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("情報源の読み取り中にエラーが発生しました: %w", err)
	}

	return sources, nil
}

// FindByURL はフィードURLで情報源を検索する。見つからない場合はnilを返す。
func (r *PostgresSourceRepo) FindByURL(ctx context.Context, url string) (*model.Source, error) {
	source := &model.Source{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, url, is_active, created_at, updated_at
		 FROM rss_sources WHERE url = $1`,
		url,
	).Scan(
		&source.ID, &source.Name, &source.URL,
		&source.IsActive, &source.CreatedAt, &source.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("URLによる情報源の検索に失敗しました: %w", err)
	}

	return source, nil
}

// Create は情報源を作成する。
func (r *PostgresSourceRepo) Create(ctx context.Context, source *model.Source) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rss_sources (id, name, url, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		source.ID, source.Name, source.URL, source.IsActive,
		source.CreatedAt, source.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("情報源の作成に失敗しました: %w", err)
	}
	return nil
}

// SetActive は情報源の有効/無効を切り替える。
func (r *PostgresSourceRepo) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE rss_sources SET is_active = $2, updated_at = now() WHERE id = $1`,
		id, active,
	)
	if err != nil {
		return fmt.Errorf("情報源の有効状態の更新に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("指定された情報源が見つかりません: %s", id)
	}

	return nil
}

// CountAll は登録済み情報源の総数を返す。
func (r *PostgresSourceRepo) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rss_sources`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("情報源数の取得に失敗しました: %w", err)
	}
	return count, nil
}
