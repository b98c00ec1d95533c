package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stakahashi/technotify/internal/model"
)

func TestIsRetryableStatus(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{404, false},
		{410, false},
		{401, false},
		{403, false},
		{400, false},
	}

	for _, tt := range tests {
		if got := isRetryableStatus(tt.status); got != tt.want {
			t.Errorf("isRetryableStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestBackoffDelay(t *testing.T) {
	if got := backoffDelay(0); got != retryBaseDelay {
		t.Errorf("backoffDelay(0) = %v, want %v", got, retryBaseDelay)
	}
	if got := backoffDelay(1); got != 2*retryBaseDelay {
		t.Errorf("backoffDelay(1) = %v, want %v", got, 2*retryBaseDelay)
	}
	if got := backoffDelay(2); got != 4*retryBaseDelay {
		t.Errorf("backoffDelay(2) = %v, want %v", got, 4*retryBaseDelay)
	}
}

func TestSleepContext_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := sleepContext(ctx, 10*time.Second); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if time.Since(start) > time.Second {
		t.Error("sleepContext should return immediately on cancelled context")
	}
}

// 一時的な5xx失敗の後にリトライで成功することを検証
func TestFetchEntries_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, sampleRSS)
	}))
	defer server.Close()

	fetcher := newTestFetcher()
	source := &model.Source{ID: "src-1", Name: "不安定なブログ", URL: server.URL}

	result, err := fetcher.FetchEntries(context.Background(), source)
	if err != nil {
		t.Fatalf("FetchEntries failed: %v", err)
	}

	if got := calls.Load(); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
	if len(result.Entries) != 2 {
		t.Errorf("entries = %d, want 2", len(result.Entries))
	}
}

// 恒久的な4xx失敗はリトライしないことを検証
func TestFetchEntries_NoRetryOnPermanentFailure(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := newTestFetcher()
	source := &model.Source{ID: "src-1", Name: "消えたブログ", URL: server.URL}

	if _, err := fetcher.FetchEntries(context.Background(), source); err == nil {
		t.Fatal("expected error on 404")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("requests = %d, want 1 (no retry on 404)", got)
	}
}
