package feed

import (
	"context"
	"time"
)

const (
	// maxFetchAttempts は1URLに対するフェッチの最大試行回数。
	maxFetchAttempts = 3
	// retryBaseDelay はリトライの初回遅延。試行ごとに2倍になる。
	retryBaseDelay = 500 * time.Millisecond
)

// isRetryableStatus は一時的な失敗としてリトライしてよいHTTPステータスかを判定する。
// 404/410/401/403は恒久的な失敗でありリトライしない。
func isRetryableStatus(statusCode int) bool {
	return statusCode == 429 || statusCode >= 500
}

// backoffDelay はリトライ回数に応じた指数バックオフ遅延を返す。
func backoffDelay(attempt int) time.Duration {
	delay := retryBaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// sleepContext はctxのキャンセルに反応しつつ指定時間待機する。
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
