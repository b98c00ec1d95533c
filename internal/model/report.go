// Package model はドメインモデルを定義する。
package model

// SourceError は1つの情報源で発生したフェッチ/パース失敗を表す。
// 記事単位の除外（フィルタによる棄却）はエラーとして扱わない。
type SourceError struct {
	SourceName string
	Message    string
}

// RunReport は1回の通知サイクルの集計結果を表す。
// SuccessfulSourcesはフェッチに成功し1件以上のエントリを返した情報源の数であり、
// フィルタで何件除外されたかには依存しない。
type RunReport struct {
	TotalSources      int
	SuccessfulSources int
	Errors            []SourceError
	Articles          []Article
}

// RunPhase は通知サイクルの実行フェーズを表す。
type RunPhase string

const (
	// PhaseIdle は待機状態。
	PhaseIdle RunPhase = "idle"
	// PhaseFetching はフィード取得中。
	PhaseFetching RunPhase = "fetching"
	// PhaseFiltering は記事フィルタリング中。
	PhaseFiltering RunPhase = "filtering"
	// PhaseDelivering はSlack通知送信中。
	PhaseDelivering RunPhase = "delivering"
	// PhaseRecording は通知履歴の記録中。
	PhaseRecording RunPhase = "recording"
	// PhaseFailed は失敗状態。
	PhaseFailed RunPhase = "failed"
)
