// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stakahashi/technotify/internal/config"
	"github.com/stakahashi/technotify/internal/database"
	"github.com/stakahashi/technotify/internal/dispatcher"
	"github.com/stakahashi/technotify/internal/feed"
	"github.com/stakahashi/technotify/internal/handler"
	"github.com/stakahashi/technotify/internal/logger"
	"github.com/stakahashi/technotify/internal/metrics"
	"github.com/stakahashi/technotify/internal/pipeline"
	"github.com/stakahashi/technotify/internal/repository"
	"github.com/stakahashi/technotify/internal/scheduler"
	"github.com/stakahashi/technotify/internal/security"
	"github.com/stakahashi/technotify/internal/seed"
	"github.com/stakahashi/technotify/internal/slack"
	"github.com/stakahashi/technotify/internal/worker/reset"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("notification_time", cfg.NotificationTime),
		slog.String("timezone", cfg.Timezone),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandNotify:
		return runNotify(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(cfg)
	case CommandReset:
		return runReset(cfg)
	case CommandDisable:
		return runDisable(cfg, args[1:])
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// buildDispatcher は通知サイクルの全依存関係をワイヤリングする。
// 返されるレジストリには通知サイクルのメトリクスが登録済みである。
func buildDispatcher(cfg *config.Config, db *sql.DB) (*dispatcher.Dispatcher, *prometheus.Registry, error) {
	// 1. リポジトリの初期化
	sourceRepo := repository.NewPostgresSourceRepo(db)
	historyRepo := repository.NewPostgresHistoryRepo(db)

	// 2. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewTitleSanitizer()

	// 3. フェッチャーとフィルタの初期化
	fetcher := feed.NewFetcher(ssrfGuard, slog.Default(), cfg.FetchTimeout, cfg.FetchMaxSize)

	filter := pipeline.New(historyRepo, sanitizer, slog.Default(), pipeline.Config{
		AgeLimitDays:        cfg.AgeLimitDays,
		AllowUnknownDate:    cfg.AllowUnknownDate,
		EnableKeywordFilter: cfg.EnableKeywordFilter,
		ExcludeKeywords:     cfg.ExcludeKeywords,
	})

	// 4. Slackクライアントの初期化
	notifier, err := buildNotifier(cfg)
	if err != nil {
		return nil, nil, err
	}

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	d := dispatcher.New(
		sourceRepo, fetcher, filter, notifier, historyRepo,
		collector, slog.Default(), cfg.FetchMaxConcurrent,
	)

	return d, registry, nil
}

// buildNotifier は設定に応じてSlack配信クライアントを選択する。
// Botトークンとチャンネルが設定されていればスレッド投稿を行うBotクライアントを、
// そうでなければWebhookクライアントを使用する。
func buildNotifier(cfg *config.Config) (slack.Notifier, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}

	formatter := slack.NewFormatter(loc, cfg.SlackCacheBuster)

	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		slog.Info("slack delivery mode: bot (threaded)",
			slog.String("channel", cfg.SlackChannel),
		)
		return slack.NewBotClient(cfg.SlackBotToken, cfg.SlackChannel, formatter, slog.Default()), nil
	}

	slog.Info("slack delivery mode: incoming webhook")
	return slack.NewWebhookClient(cfg.SlackWebhookURL, formatter, slog.Default()), nil
}

// runServe はサーバーモードで起動する。
// 日次スケジューラをバックグラウンドで動かしつつ、監視用HTTPサーバーを提供する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	d, registry, err := buildDispatcher(cfg, db)
	if err != nil {
		return err
	}

	sched, err := scheduler.New(d, slog.Default(), cfg.NotificationTime, cfg.Timezone)
	if err != nil {
		return fmt.Errorf("failed to build scheduler: %w", err)
	}

	router := handler.NewRouter(db, registry, slog.Default())

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	if cfg.SchedulerEnabled {
		go sched.Start(ctx)
	} else {
		slog.Info("scheduler disabled, serving monitoring endpoints only")
	}

	go func() {
		slog.Info("monitoring server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 監視用HTTPサーバーを持たず、日次スケジューラのみを実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	d, _, err := buildDispatcher(cfg, db)
	if err != nil {
		return err
	}

	sched, err := scheduler.New(d, slog.Default(), cfg.NotificationTime, cfg.Timezone)
	if err != nil {
		return fmt.Errorf("failed to build scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	// スケジューラをメインgoroutineで実行（ブロッキング）
	sched.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runNotify は通知サイクルを1回だけ実行する。
// cronなど外部スケジューラからの起動用サブコマンド。
func runNotify(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	d, _, err := buildDispatcher(cfg, db)
	if err != nil {
		return err
	}

	if _, err := d.Run(context.Background()); err != nil {
		return fmt.Errorf("notification cycle failed: %w", err)
	}

	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSeed はデフォルト情報源の初期投入を実行する。
func runSeed(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	seeder := seed.NewSeeder(repository.NewPostgresSourceRepo(db), slog.Default())
	if err := seeder.Run(context.Background()); err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	return nil
}

// runReset は通知履歴の全削除を実行する。
func runReset(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	job := reset.NewJob(repository.NewPostgresHistoryRepo(db), slog.Default())
	if _, err := job.Run(context.Background()); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	return nil
}

// runDisable は指定URLの情報源を無効化する。
// フィードが閉鎖された情報源を履歴を残したまま巡回対象から外すための管理操作。
func runDisable(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: disable <feed-url>")
	}
	url := args[0]

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	repo := repository.NewPostgresSourceRepo(db)

	source, err := repo.FindByURL(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to find source: %w", err)
	}
	if source == nil {
		return fmt.Errorf("source not found: %s", url)
	}

	if err := repo.SetActive(ctx, source.ID, false); err != nil {
		return fmt.Errorf("failed to disable source: %w", err)
	}

	slog.Info("source disabled",
		slog.String("source_name", source.Name),
		slog.String("url", source.URL),
	)

	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
