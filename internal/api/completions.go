package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/modelgate/internal/admission"
	"github.com/samcharles93/modelgate/internal/inference"
)

const (
	msgOverloaded   = "Server is at capacity, please try again later"
	msgShuttingDown = "Server is shutting down, please try again later"
)

func (s *Server) handleCreateCompletion(c *echo.Context) error {
	req, err := decodeBody[CompletionRequest](c, s.maxBody)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		msg := fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)
		return writeError(c, http.StatusRequestEntityTooLarge, "invalid_request_error", msg, "", "")
	}
	if err != nil {
		return writeBadRequest(c, "", "invalid JSON body: "+err.Error())
	}
	genReq, err := s.toInferenceRequest(req)
	if err != nil {
		return writeBadRequest(c, errorParam(err), err.Error())
	}

	created := s.clock()
	log := s.log.With("model", genReq.Model)
	log.Info("completion request received", "max_tokens", genReq.MaxTokens)

	d, err := s.controller.Admit(c.Request().Context(), genReq.Model, func(ctx context.Context) (any, error) {
		return s.engine.Generate(ctx, genReq)
	})

	switch d.Outcome {
	case admission.OutcomeRejected:
		c.Response().Header().Set(headerRetryAfter, retryAfter(s.controller.Profile().Default()))
		if errors.Is(err, admission.ErrClosed) {
			return writeError(c, http.StatusServiceUnavailable, "service_unavailable", msgShuttingDown, "", "")
		}
		return writeError(c, http.StatusServiceUnavailable, "server_overloaded", msgOverloaded, "", "")

	case admission.OutcomeDeferred:
		entry := QueueEntry{
			ID:                   d.EntryID,
			Object:               "queue.entry",
			Status:               admission.JobQueued.String(),
			Model:                genReq.Model,
			Created:              created.Unix(),
			Position:             &d.Position,
			EstimatedWait:        d.EstimatedWait.String(),
			EstimatedWaitSeconds: d.EstimatedWait.Seconds(),
		}
		if d.Job != nil {
			s.store.Add(&jobRecord{
				Job:           d.Job,
				Model:         genReq.Model,
				Prompt:        genReq.Prompt,
				Created:       created,
				EstimatedWait: d.EstimatedWait,
			})
		}
		return writeJSON(c, http.StatusAccepted, entry)
	}

	setProcessTime(c, d.Elapsed)
	if err != nil {
		log.Error("text generation failed", "id", d.EntryID, "error", err)
		return writeGenerationError(c, err)
	}
	res, ok := d.Result.(*inference.Result)
	if !ok || res == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "inference engine returned no result", "", "")
	}
	log.Info("text generation successful", "id", d.EntryID, "elapsed", d.Elapsed)
	return writeJSON(c, http.StatusOK, newCompletionResponse(d.EntryID, genReq, res, created))
}

func (s *Server) handleGetCompletion(c *echo.Context) error {
	id := c.Param("id")
	rec, ok := s.store.Get(id)
	if !ok {
		return writeNotFound(c, fmt.Sprintf("completion %s not found", id))
	}
	return writeJSON(c, http.StatusOK, queueEntryFor(rec))
}

func (s *Server) handleCancelCompletion(c *echo.Context) error {
	id := c.Param("id")
	rec, ok := s.store.Get(id)
	if !ok {
		return writeNotFound(c, fmt.Sprintf("completion %s not found", id))
	}
	if err := rec.Job.Cancel(); err != nil {
		if errors.Is(err, admission.ErrNotCancellable) {
			msg := fmt.Sprintf("completion %s is %s and can no longer be cancelled", id, rec.Job.State())
			return writeError(c, http.StatusConflict, "conflict_error", msg, "", "")
		}
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
	s.log.Info("queued completion cancelled", "id", id, "model", rec.Model)
	return writeJSON(c, http.StatusOK, queueEntryFor(rec))
}

func (s *Server) toInferenceRequest(req CompletionRequest) (*inference.Request, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = s.defaultModel
	}
	if !s.isSupported(model) {
		return nil, newUnsupportedModel(model)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, newInvalidRequest("prompt", "prompt must not be empty")
	}
	out := &inference.Request{
		Model:       model,
		Prompt:      req.Prompt,
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
	}
	if req.MaxTokens != nil {
		if *req.MaxTokens < 0 {
			return nil, newInvalidRequest("max_tokens", "max_tokens must not be negative")
		}
		out.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		if *req.Temperature < 0 {
			return nil, newInvalidRequest("temperature", "temperature must not be negative")
		}
		out.Temperature = *req.Temperature
	}
	return out, nil
}

func writeGenerationError(c *echo.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return writeError(c, http.StatusGatewayTimeout, "timeout_error", err.Error(), "", "")
	}
	return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
}

func newCompletionResponse(id string, req *inference.Request, res *inference.Result, created time.Time) CompletionResponse {
	return CompletionResponse{
		ID:      "cmpl-" + id,
		Object:  "text_completion",
		Created: created.Unix(),
		Model:   req.Model,
		Choices: []CompletionChoice{{
			Text:         res.Text,
			Index:        0,
			FinishReason: "length",
		}},
		Usage: CompletionUsage{
			PromptTokens:     res.Stats.PromptTokens,
			CompletionTokens: res.Stats.CompletionTokens,
			TotalTokens:      res.Stats.PromptTokens + res.Stats.CompletionTokens,
		},
	}
}

func queueEntryFor(rec *jobRecord) QueueEntry {
	state := rec.Job.State()
	entry := QueueEntry{
		ID:      rec.Job.ID(),
		Object:  "queue.entry",
		Status:  state.String(),
		Model:   rec.Model,
		Created: rec.Created.Unix(),
	}
	if state == admission.JobQueued {
		if pos := rec.Job.Position(); pos >= 0 {
			entry.Position = &pos
		}
		entry.EstimatedWait = rec.EstimatedWait.String()
		entry.EstimatedWaitSeconds = rec.EstimatedWait.Seconds()
	}
	res, done := rec.Job.Result()
	if !done {
		return entry
	}
	// The state is re-read so it agrees with the result.
	entry.Status = rec.Job.State().String()
	if res.Err != nil {
		entry.Error = &ResponseError{Message: res.Err.Error(), Type: errorTypeFor(res.Err)}
		return entry
	}
	if out, ok := res.Value.(*inference.Result); ok && out != nil {
		req := &inference.Request{Model: rec.Model, Prompt: rec.Prompt}
		resp := newCompletionResponse(rec.Job.ID(), req, out, rec.Created)
		entry.Result = &resp
	}
	return entry
}

func errorTypeFor(err error) string {
	switch {
	case errors.Is(err, admission.ErrTTLExpired):
		return "queue_timeout"
	case errors.Is(err, admission.ErrCancelled):
		return "cancelled"
	case errors.Is(err, admission.ErrClosed):
		return "service_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout_error"
	default:
		return "server_error"
	}
}
