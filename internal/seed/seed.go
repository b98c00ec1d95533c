// Package seed は初期データの投入を提供する。
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stakahashi/technotify/internal/model"
)

// SourceStore は情報源の登録に必要な永続化機能を定義する。
type SourceStore interface {
	CountAll(ctx context.Context) (int, error)
	Create(ctx context.Context, source *model.Source) error
}

// defaultSources は初期投入する技術ブログの一覧。
// URLはブログのトップページで、フィードの実URLはフェッチ時に自動検出される。
var defaultSources = []struct {
	name string
	url  string
}{
	{"メルカリ", "https://engineering.mercari.com/blog"},
	{"サイバーエージェント", "https://developers.cyberagent.co.jp/blog/"},
	{"LINE", "https://engineering.linecorp.com/ja/blog/"},
	{"楽天", "https://tech.rakuten.co.jp/"},
	{"DeNA", "https://engineering.dena.com/blog/"},
	{"クックパッド", "https://techlife.cookpad.com"},
	{"ヤフー", "https://techblog.yahoo.co.jp/"},
	{"リクルート", "https://engineer.recruit-lifestyle.co.jp/techblog/"},
	{"はてな", "https://developer.hatenastaff.com"},
	{"ミクシィ", "https://mixi-developers.mixi.co.jp"},
	{"GMOペパボ", "https://tech.pepabo.com"},
	{"ZOZO", "https://techblog.zozo.com"},
}

// Seeder はデフォルトの情報源一覧をデータベースへ投入する。
type Seeder struct {
	sources SourceStore
	logger  *slog.Logger
}

// NewSeeder はSeederの新しいインスタンスを生成する。
func NewSeeder(sources SourceStore, logger *slog.Logger) *Seeder {
	return &Seeder{sources: sources, logger: logger}
}

// Run はデフォルトの情報源を投入する。
// 既に1件でも情報源が登録されている場合は何もしない（冪等）。
func (s *Seeder) Run(ctx context.Context) error {
	count, err := s.sources.CountAll(ctx)
	if err != nil {
		return fmt.Errorf("情報源数の取得に失敗: %w", err)
	}

	if count > 0 {
		s.logger.Info("情報源が登録済みのため初期投入をスキップします",
			slog.Int("existing_count", count),
		)
		return nil
	}

	now := time.Now()
	for _, src := range defaultSources {
		source := &model.Source{
			ID:        uuid.NewString(),
			Name:      src.name,
			URL:       src.url,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.sources.Create(ctx, source); err != nil {
			return fmt.Errorf("情報源の作成に失敗 (%s): %w", src.name, err)
		}

		s.logger.Info("情報源を登録しました",
			slog.String("source_name", src.name),
			slog.String("url", src.url),
		)
	}

	s.logger.Info("初期データの投入が完了しました",
		slog.Int("source_count", len(defaultSources)),
	)

	return nil
}
