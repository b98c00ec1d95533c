package slack

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stakahashi/technotify/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWebhookClient_ImplementsNotifier(t *testing.T) {
	var _ Notifier = (*WebhookClient)(nil)
}

func TestWebhookSend_PostsFormattedMessage(t *testing.T) {
	var received webhookPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode failed: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewWebhookClient(server.URL, NewFormatter(jst(t), false), testLogger())

	if err := client.Send(context.Background(), sampleReport()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if !strings.Contains(received.Text, "Goのジェネリクス入門") {
		t.Errorf("payload text missing article title:\n%s", received.Text)
	}
	if received.Username != "Technotify" {
		t.Errorf("username = %q", received.Username)
	}
}

// 記事0件でもハートビートとしてメッセージが送信されることを検証
func TestWebhookSend_SendsHeartbeatWhenEmpty(t *testing.T) {
	var received webhookPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode failed: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewWebhookClient(server.URL, NewFormatter(jst(t), false), testLogger())

	report := &model.RunReport{TotalSources: 12, SuccessfulSources: 12}
	if err := client.Send(context.Background(), report); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if !strings.Contains(received.Text, emptyMessage) {
		t.Errorf("payload text missing empty message:\n%s", received.Text)
	}
}

func TestWebhookSend_FailsOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewWebhookClient(server.URL, NewFormatter(jst(t), false), testLogger())

	if err := client.Send(context.Background(), sampleReport()); err == nil {
		t.Fatal("expected error on 400 status")
	}
}

func TestWebhookSend_FailsOnUnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewWebhookClient(server.URL, NewFormatter(jst(t), false), testLogger())

	if err := client.Send(context.Background(), sampleReport()); err == nil {
		t.Fatal("expected error when server is unreachable")
	}
}
