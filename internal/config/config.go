package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Slack（WebhookまたはBotトークンのいずれかが必須）
	SlackWebhookURL  string
	SlackBotToken    string
	SlackChannel     string
	SlackCacheBuster bool // 記事URLにフラグメントを付与してリンクプレビューを強制更新する

	// Notification
	NotificationTime string // "HH:MM" 形式
	Timezone         string

	// Article filtering
	AgeLimitDays        int
	AllowUnknownDate    bool
	EnableKeywordFilter bool
	ExcludeKeywords     []string // 空の場合はパイプラインの組み込みリストを使用する

	// Fetch
	FetchTimeout       time.Duration
	FetchMaxSize       int64
	FetchMaxConcurrent int

	// Server
	ServerPort string
	// SchedulerEnabled はserveモードで日次スケジューラを動かすかどうか。
	// 別コンテナのworkerにスケジュール実行を任せる構成でfalseにする。
	SchedulerEnabled bool
}

// Load は環境変数からConfigを読み込む。
// DATABASE_URLが未設定、またはSlackの認証情報（SLACK_WEBHOOK_URLか
// SLACK_BOT_TOKEN+SLACK_CHANNELの組）が一切設定されていない場合はエラーを返す。
// 通知先が未設定のまま起動して無言で失敗することを防ぐための検証である。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("required environment variable is not set: DATABASE_URL")
	}

	cfg.SlackWebhookURL = os.Getenv("SLACK_WEBHOOK_URL")
	cfg.SlackBotToken = os.Getenv("SLACK_BOT_TOKEN")
	cfg.SlackChannel = os.Getenv("SLACK_CHANNEL")

	if cfg.SlackWebhookURL == "" {
		if cfg.SlackBotToken == "" {
			return nil, fmt.Errorf("slack delivery is not configured: set SLACK_WEBHOOK_URL or SLACK_BOT_TOKEN")
		}
		if cfg.SlackChannel == "" {
			return nil, fmt.Errorf("SLACK_CHANNEL is required when SLACK_BOT_TOKEN is set")
		}
	}

	cfg.NotificationTime = getEnvString("NOTIFICATION_TIME", "09:00")
	if _, _, err := ParseNotificationTime(cfg.NotificationTime); err != nil {
		return nil, fmt.Errorf("invalid NOTIFICATION_TIME: %w", err)
	}

	cfg.Timezone = getEnvString("TZ", "Asia/Tokyo")
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TZ: %w", err)
	}

	cfg.SlackCacheBuster = getEnvBool("SLACK_CACHE_BUSTER", false)
	cfg.AgeLimitDays = getEnvInt("ARTICLE_AGE_LIMIT_DAYS", 7)
	cfg.AllowUnknownDate = getEnvBool("ALLOW_UNKNOWN_DATE", true)
	cfg.EnableKeywordFilter = getEnvBool("ENABLE_KEYWORD_FILTER", true)
	cfg.ExcludeKeywords = getEnvList("EXCLUDE_KEYWORDS")

	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.FetchMaxConcurrent = getEnvInt("FETCH_MAX_CONCURRENT", 5)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.SchedulerEnabled = getEnvBool("SCHEDULER_ENABLED", true)

	return cfg, nil
}

// ParseNotificationTime は "HH:MM" 形式の通知時刻を時と分に分解する。
func ParseNotificationTime(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("notification time must be in HH:MM format: %q", s)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in notification time: %q", s)
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in notification time: %q", s)
	}

	return hour, minute, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvList はカンマ区切りの環境変数を文字列スライスに分解する。
// 空要素は除去され、未設定の場合はnilを返す。
func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var list []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			list = append(list, item)
		}
	}
	return list
}
