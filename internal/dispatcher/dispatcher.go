// Package dispatcher は通知サイクル全体のオーケストレーションを提供する。
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stakahashi/technotify/internal/feed"
	"github.com/stakahashi/technotify/internal/model"
)

// SourceLister は有効な情報源の列挙機能を定義する。
type SourceLister interface {
	ListActive(ctx context.Context) ([]*model.Source, error)
}

// EntryFetcher は情報源からのエントリ取得機能を定義する。
type EntryFetcher interface {
	FetchEntries(ctx context.Context, source *model.Source) (*feed.FetchResult, error)
}

// EntryFilter はエントリの選別機能を定義する。
type EntryFilter interface {
	FilterEntries(ctx context.Context, entries []model.ParsedArticle, sourceName string) ([]model.Article, error)
}

// Notifier はレポートの配信機能を定義する。
type Notifier interface {
	Send(ctx context.Context, report *model.RunReport) error
}

// Recorder は通知済み記事の記録機能を定義する。
type Recorder interface {
	RecordAll(ctx context.Context, articles []model.Article) error
}

// RunMetrics は通知サイクルの計測フックを定義する。
type RunMetrics interface {
	ObserveRun(duration time.Duration, succeeded bool)
	AddSourceErrors(count int)
	AddArticlesNotified(count int)
}

// Dispatcher は通知サイクルを統括する。
// 1サイクルは「有効な情報源の列挙→並行フェッチ→選別→配信→記録」の順で進み、
// 個々の情報源の失敗はサイクルを止めず情報源単位のエラーとして集計される。
type Dispatcher struct {
	sources       SourceLister
	fetcher       EntryFetcher
	filter        EntryFilter
	notifier      Notifier
	recorder      Recorder
	metrics       RunMetrics
	logger        *slog.Logger
	maxConcurrent int
}

// New はDispatcherの新しいインスタンスを生成する。
// maxConcurrentが0以下の場合は並行度1として扱う。
func New(
	sources SourceLister,
	fetcher EntryFetcher,
	filter EntryFilter,
	notifier Notifier,
	recorder Recorder,
	metrics RunMetrics,
	logger *slog.Logger,
	maxConcurrent int,
) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Dispatcher{
		sources:       sources,
		fetcher:       fetcher,
		filter:        filter,
		notifier:      notifier,
		recorder:      recorder,
		metrics:       metrics,
		logger:        logger,
		maxConcurrent: maxConcurrent,
	}
}

// sourceResult は1情報源の処理結果。結果スライスの添字は情報源の列挙順に対応し、
// 集計時の並び順がゴルーチンの完了順に依存しないようにする。
type sourceResult struct {
	articles  []model.Article
	err       *model.SourceError
	succeeded bool
}

// Run は通知サイクルを1回実行し、集計レポートを返す。
// 情報源の列挙・配信・記録の失敗はサイクル全体の失敗としてエラーを返す。
// 配信は記事が0件でも必ず1回行われ、パイプラインの死活通知を兼ねる。
// 履歴への記録は配信が成功し、かつ受理記事が1件以上ある場合のみ行う。
func (d *Dispatcher) Run(ctx context.Context) (*model.RunReport, error) {
	start := time.Now()

	report, err := d.run(ctx)

	duration := time.Since(start)
	d.metrics.ObserveRun(duration, err == nil)
	if report != nil {
		d.metrics.AddSourceErrors(len(report.Errors))
		if err == nil {
			d.metrics.AddArticlesNotified(len(report.Articles))
		}
	}

	if err != nil {
		d.logger.Error("通知サイクルが失敗しました",
			slog.String("error", err.Error()),
			slog.Duration("duration", duration),
		)
		return report, err
	}

	d.logger.Info("通知サイクルが完了しました",
		slog.Int("total_sources", report.TotalSources),
		slog.Int("successful_sources", report.SuccessfulSources),
		slog.Int("source_errors", len(report.Errors)),
		slog.Int("articles_notified", len(report.Articles)),
		slog.Duration("duration", duration),
	)

	return report, nil
}

func (d *Dispatcher) run(ctx context.Context) (*model.RunReport, error) {
	sources, err := d.sources.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("情報源の列挙に失敗: %w", err)
	}

	results := d.processSources(ctx, sources)

	report := &model.RunReport{
		TotalSources: len(sources),
		Errors:       make([]model.SourceError, 0),
		Articles:     make([]model.Article, 0),
	}

	// 列挙順のまま集計する
	for _, result := range results {
		if result.succeeded {
			report.SuccessfulSources++
		}
		if result.err != nil {
			report.Errors = append(report.Errors, *result.err)
		}
		report.Articles = append(report.Articles, result.articles...)
	}

	if err := d.notifier.Send(ctx, report); err != nil {
		return report, fmt.Errorf("Slackへの配信に失敗: %w", err)
	}

	if len(report.Articles) > 0 {
		if err := d.recorder.RecordAll(ctx, report.Articles); err != nil {
			return report, fmt.Errorf("通知履歴の記録に失敗: %w", err)
		}
	}

	return report, nil
}

// processSources は全情報源をセマフォで並行度を制限しながら処理する。
func (d *Dispatcher) processSources(ctx context.Context, sources []*model.Source) []sourceResult {
	results := make([]sourceResult, len(sources))

	var wg sync.WaitGroup
	sem := make(chan struct{}, d.maxConcurrent)

	for i, source := range sources {
		wg.Add(1)
		go func(index int, src *model.Source) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[index] = d.processSource(ctx, src)
		}(i, source)
	}

	wg.Wait()

	return results
}

// processSource は1情報源のフェッチと選別を行う。
// パニックを含むあらゆる失敗を情報源単位のエラーへ降格し、他の情報源へ波及させない。
func (d *Dispatcher) processSource(ctx context.Context, source *model.Source) (result sourceResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("情報源の処理中にパニックが発生しました",
				slog.String("source_name", source.Name),
				slog.Any("panic", r),
			)
			result = sourceResult{
				err: &model.SourceError{
					SourceName: source.Name,
					Message:    fmt.Sprintf("panic: %v", r),
				},
			}
		}
	}()

	fetchResult, err := d.fetcher.FetchEntries(ctx, source)
	if err != nil {
		d.logger.Warn("フィードのフェッチに失敗しました",
			slog.String("source_name", source.Name),
			slog.String("url", source.URL),
			slog.String("error", err.Error()),
		)
		return sourceResult{
			err: &model.SourceError{SourceName: source.Name, Message: err.Error()},
		}
	}

	if len(fetchResult.Entries) == 0 {
		return sourceResult{
			err: &model.SourceError{
				SourceName: source.Name,
				Message:    "フィードにエントリがありません",
			},
		}
	}

	if fetchResult.Warning != "" {
		d.logger.Warn("フィードのフェッチで警告が発生しました",
			slog.String("source_name", source.Name),
			slog.String("warning", fetchResult.Warning),
		)
	}

	articles, err := d.filter.FilterEntries(ctx, fetchResult.Entries, source.Name)
	if err != nil {
		return sourceResult{
			err: &model.SourceError{SourceName: source.Name, Message: err.Error()},
		}
	}

	// フィルタで全件除外されても情報源としては成功
	return sourceResult{articles: articles, succeeded: true}
}
