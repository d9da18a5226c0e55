package api

import (
	"time"

	"github.com/samcharles93/modelgate/internal/version"
)

const (
	defaultMaxTokens   = 16
	defaultTemperature = 1.0
)

// CompletionRequest is an OpenAI-style legacy completion request.
type CompletionRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type CompletionChoice struct {
	Text         string               `json:"text"`
	Index        int                  `json:"index"`
	Logprobs     map[string][]float64 `json:"logprobs"`
	FinishReason string               `json:"finish_reason"`
}

type CompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type CompletionResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   CompletionUsage    `json:"usage"`
}

// QueueEntry describes a request that is waiting for, or was served by, the
// dispatcher.
type QueueEntry struct {
	ID                   string              `json:"id"`
	Object               string              `json:"object"`
	Status               string              `json:"status"`
	Model                string              `json:"model"`
	Created              int64               `json:"created"`
	Position             *int                `json:"position,omitempty"`
	EstimatedWait        string              `json:"estimated_wait,omitempty"`
	EstimatedWaitSeconds float64             `json:"estimated_wait_seconds,omitempty"`
	Result               *CompletionResponse `json:"result,omitempty"`
	Error                *ResponseError      `json:"error,omitempty"`
}

type Model struct {
	ID                         string  `json:"id"`
	Object                     string  `json:"object"`
	Created                    int64   `json:"created"`
	OwnedBy                    string  `json:"owned_by"`
	EstimatedProcessingSeconds float64 `json:"estimated_processing_seconds"`
}

type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

type QueueStatus struct {
	Object   string             `json:"object"`
	Mode     string             `json:"mode"`
	Capacity int                `json:"capacity"`
	Workers  int                `json:"workers"`
	Size     int                `json:"size"`
	Entries  []QueueStatusEntry `json:"entries"`
}

type QueueStatusEntry struct {
	ID                       string    `json:"id"`
	Model                    string    `json:"model"`
	Position                 int       `json:"position"`
	Status                   string    `json:"status"`
	EnqueuedAt               time.Time `json:"enqueued_at"`
	EstimatedDurationSeconds float64   `json:"estimated_duration_seconds"`
	EstimatedWaitSeconds     float64   `json:"estimated_wait_seconds"`
}

type Health struct {
	Status         string       `json:"status"`
	Name           string       `json:"name"`
	ProjectVersion string       `json:"project_version,omitempty"`
	Build          version.Info `json:"build"`
	QueueSize      int          `json:"queue_size"`
	QueueCapacity  int          `json:"queue_capacity"`
}

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error ResponseError `json:"error"`
}
