// Package handler は運用監視用のHTTPエンドポイントを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stakahashi/technotify/internal/metrics"
)

// Pinger はデータベースの死活確認機能を定義する。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Router は監視用エンドポイントのルーティングを保持する。
type Router struct {
	db       Pinger
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// NewRouter はRouterの新しいインスタンスを生成する。
func NewRouter(db Pinger, gatherer prometheus.Gatherer, logger *slog.Logger) *Router {
	return &Router{db: db, gatherer: gatherer, logger: logger}
}

// Handler は全エンドポイントを登録したhttp.Handlerを返す。
//
//	GET /        サービス情報
//	GET /health  ヘルスチェック（DB接続確認を含む）
//	GET /metrics Prometheusスクレイプ
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", rt.handleRoot)
	r.Get("/health", rt.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(rt.gatherer))

	return r
}

// handleRoot はサービス名と稼働状態を返す。
func (rt *Router) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "technotify",
		"status":  "running",
	})
}

// handleHealth はデータベース接続を確認し、健全性を返す。
// DBに到達できない場合は503を返す。
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := rt.db.PingContext(ctx); err != nil {
		rt.logger.Error("ヘルスチェックでDB接続に失敗しました",
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "unhealthy",
			"database": "unreachable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"database": "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
