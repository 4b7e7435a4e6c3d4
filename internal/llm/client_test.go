package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello from model"}}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model")
	reply, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply != "hello from model" {
		t.Errorf("Chat() = %q, want %q", reply, "hello from model")
	}
}

func TestClientChatBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m")
	if _, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}); err == nil {
		t.Error("Chat() should return error on bad status")
	}
}

func TestClientStreamChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{"The", " pump", " seal"}
		for _, c := range chunks {
			_, _ = fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"%s\"}}]}\n\n", c)
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m")
	var got strings.Builder
	err := client.StreamChat(context.Background(), []Message{{Role: "user", Content: "q"}}, func(chunk string) error {
		got.WriteString(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}
	if got.String() != "The pump seal" {
		t.Errorf("streamed = %q, want %q", got.String(), "The pump seal")
	}
}

func TestClientStreamChatCallbackCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 10; i++ {
			_, _ = fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n")
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "m")
	calls := 0
	err := client.StreamChat(context.Background(), []Message{{Role: "user", Content: "q"}}, func(string) error {
		calls++
		if calls == 2 {
			return fmt.Errorf("consumer closed")
		}
		return nil
	})
	if err == nil {
		t.Fatal("StreamChat() should surface callback error")
	}
	if calls != 2 {
		t.Errorf("callback called %d times after cancel, want 2", calls)
	}
}

func TestModelChecker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"llama3.2:latest"},{"id":"other"}]}`))
	}))
	defer server.Close()

	checker := NewModelChecker(server.URL)

	ok, err := checker.IsModelAvailable(context.Background(), "llama3.2:latest")
	if err != nil {
		t.Fatalf("IsModelAvailable() error = %v", err)
	}
	if !ok {
		t.Error("expected model to be available")
	}

	ok, err = checker.IsModelAvailable(context.Background(), "missing")
	if err != nil {
		t.Fatalf("IsModelAvailable() error = %v", err)
	}
	if ok {
		t.Error("expected missing model to be unavailable")
	}
}
