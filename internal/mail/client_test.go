package mail

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(serverURL string, apiKey string) *Client {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewClient(http.DefaultClient, logger, serverURL, apiKey)
}

// TestSend_Success は正常な送信依頼を検証する。
func TestSend_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer re_test" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}

		var msg Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(msg.To) != 1 || msg.To[0] != "casting@example.com" {
			t.Errorf("To = %v", msg.To)
		}
		if msg.ReplyTo != "fan@example.com" {
			t.Errorf("ReplyTo = %q", msg.ReplyTo)
		}
		if msg.Subject != "お問い合わせ" {
			t.Errorf("Subject = %q", msg.Subject)
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"49a3999c"}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL, "re_test").Send(context.Background(), Message{
		From:    "Castline <noreply@castline.example>",
		To:      []string{"casting@example.com"},
		ReplyTo: "fan@example.com",
		Subject: "お問い合わせ",
		HTML:    "<p>hello</p>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestSend_ErrorStatus はエラーステータス時にエラーを返すことを検証する。
func TestSend_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"400", http.StatusBadRequest},
		{"401", http.StatusUnauthorized},
		{"500", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			err := newTestClient(server.URL, "k").Send(context.Background(), Message{To: []string{"a@example.com"}})
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// TestSend_NoRecipient は宛先なしの場合に送信しないことを検証する。
func TestSend_NoRecipient(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	if err := newTestClient(server.URL, "k").Send(context.Background(), Message{}); err == nil {
		t.Error("expected error, got nil")
	}
	if called {
		t.Error("API should not be called without recipients")
	}
}

// TestSend_ContextCancelled はコンテキストキャンセル時にエラーを返すことを検証する。
func TestSend_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := newTestClient(server.URL, "k").Send(ctx, Message{To: []string{"a@example.com"}}); err == nil {
		t.Error("expected error, got nil")
	}
}

// TestNewClient_DefaultEndpoint はエンドポイント未指定時の既定値を検証する。
func TestNewClient_DefaultEndpoint(t *testing.T) {
	c := NewClient(http.DefaultClient, slog.Default(), "", "")
	if c.endpoint != DefaultEndpoint {
		t.Errorf("endpoint = %q, want %q", c.endpoint, DefaultEndpoint)
	}
}
