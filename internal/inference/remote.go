package inference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/samcharles93/modelgate/internal/version"
)

// maxErrorBody caps how much of an upstream error body ends up in messages.
const maxErrorBody = 4 << 10

type RemoteConfig struct {
	// BaseURL of an OpenAI-compatible server, e.g. http://127.0.0.1:8000.
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// RemoteEngine forwards generation to an upstream /v1/completions endpoint.
type RemoteEngine struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewRemoteEngine(cfg RemoteConfig) (*RemoteEngine, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("remote engine: base URL is required")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &RemoteEngine{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		http:    client,
	}, nil
}

type upstreamRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

type upstreamResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type upstreamError struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Detail string `json:"detail"`
}

func (e *RemoteEngine) Generate(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	start := time.Now()

	body, err := json.Marshal(upstreamRequest{
		Model:       req.Model,
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, newError(req.Model, 0, fmt.Errorf("encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return nil, newError(req.Model, 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.http.Do(httpReq)
	if err != nil {
		return nil, newError(req.Model, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newError(req.Model, resp.StatusCode, errors.New(upstreamMessage(raw)))
	}

	var out upstreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, newError(req.Model, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	if len(out.Choices) == 0 {
		return nil, newError(req.Model, resp.StatusCode, errors.New("upstream returned no choices"))
	}

	text := CleanCompletion(req.Prompt, out.Choices[0].Text)
	res := &Result{
		Text: text,
		Stats: Stats{
			PromptTokens:     CountWords(req.Prompt),
			CompletionTokens: CountWords(text),
			Duration:         time.Since(start),
		},
	}
	if out.Usage != nil {
		res.Stats.PromptTokens = out.Usage.PromptTokens
		res.Stats.CompletionTokens = out.Usage.CompletionTokens
	}
	return res, nil
}

func (e *RemoteEngine) Close() error {
	e.http.CloseIdleConnections()
	return nil
}

func upstreamMessage(raw []byte) string {
	var ue upstreamError
	if json.Unmarshal(raw, &ue) == nil {
		if ue.Error != nil && ue.Error.Message != "" {
			return ue.Error.Message
		}
		if ue.Detail != "" {
			return ue.Detail
		}
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return "empty error response"
	}
	return msg
}
