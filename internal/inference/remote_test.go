package inference

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func newUpstream(t *testing.T, handler http.HandlerFunc) *RemoteEngine {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	engine, err := NewRemoteEngine(RemoteConfig{BaseURL: srv.URL + "/", APIKey: "secret", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewRemoteEngine: %v", err)
	}
	return engine
}

func TestRemoteEngineGenerate(t *testing.T) {
	t.Parallel()

	engine := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "modelgate/") {
			t.Errorf("unexpected user agent %q", ua)
		}
		var req upstreamRequest
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("decode upstream request: %v", err)
		}
		if req.Model != "gpt2" || req.MaxTokens != 8 || req.Temperature != 0.5 {
			t.Errorf("unexpected upstream request: %+v", req)
		}
		_, _ = io.WriteString(w, `{"choices":[{"text":"hello world and more"}]}`)
	})

	res, err := engine.Generate(context.Background(), &Request{Model: "gpt2", Prompt: "hello world", MaxTokens: 8, Temperature: 0.5})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Text != "and more" {
		t.Fatalf("expected echoed prompt to be stripped, got %q", res.Text)
	}
	if res.Stats.PromptTokens != 2 || res.Stats.CompletionTokens != 2 {
		t.Fatalf("unexpected stats: %+v", res.Stats)
	}
}

func TestRemoteEnginePrefersUpstreamUsage(t *testing.T) {
	t.Parallel()

	engine := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[{"text":"x"}],"usage":{"prompt_tokens":11,"completion_tokens":7}}`)
	})
	res, err := engine.Generate(context.Background(), &Request{Model: "gpt2", Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Stats.PromptTokens != 11 || res.Stats.CompletionTokens != 7 {
		t.Fatalf("unexpected stats: %+v", res.Stats)
	}
}

func TestRemoteEngineUpstreamError(t *testing.T) {
	t.Parallel()

	engine := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"detail":"CUDA out of memory"}`)
	})

	_, err := engine.Generate(context.Background(), &Request{Model: "gpt2", Prompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
	var ierr *Error
	if !errors.As(err, &ierr) || ierr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected *Error with status 500, got %v", err)
	}
	if !strings.Contains(err.Error(), "CUDA out of memory") {
		t.Fatalf("expected upstream detail in message, got %v", err)
	}
}

func TestRemoteEngineNoChoices(t *testing.T) {
	t.Parallel()

	engine := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[]}`)
	})
	if _, err := engine.Generate(context.Background(), &Request{Model: "gpt2"}); !errors.Is(err, ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
}

func TestRemoteEngineHonoursContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	engine := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := engine.Generate(ctx, &Request{Model: "gpt2"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNewRemoteEngineRequiresURL(t *testing.T) {
	t.Parallel()
	if _, err := NewRemoteEngine(RemoteConfig{BaseURL: "  "}); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestUpstreamMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{`{"error":{"message":"model not loaded"}}`, "model not loaded"},
		{`{"detail":"bad"}`, "bad"},
		{"plain text failure\n", "plain text failure"},
		{"", "empty error response"},
	}
	for _, tc := range tests {
		if got := upstreamMessage([]byte(tc.raw)); got != tc.want {
			t.Errorf("upstreamMessage(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
