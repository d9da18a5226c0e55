package api

import (
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
)

const (
	headerProcessTime = "X-Process-Time"
	headerRetryAfter  = "Retry-After"
)

func writeBadRequest(c *echo.Context, param, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, param, "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "", "")
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return writeJSON(c, status, errorEnvelope{Error: ResponseError{
		Message: msg,
		Type:    errType,
		Code:    code,
		Param:   param,
	}})
}

// writeJSON encodes with go-json and hands echo the bytes.
func writeJSON(c *echo.Context, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.JSONBlob(status, b)
}

// maxRequestBody caps request bodies; completion prompts are far smaller.
const maxRequestBody = 1 << 20

// decodeBody reads at most limit bytes of the request body and decodes them.
// An oversized body returns an *http.MaxBytesError.
func decodeBody[T any](c *echo.Context, limit int64) (T, error) {
	var out T
	raw, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, limit))
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func setProcessTime(c *echo.Context, d time.Duration) {
	c.Response().Header().Set(headerProcessTime, strconv.FormatFloat(d.Seconds(), 'f', -1, 64))
}

// retryAfter renders d as whole seconds, rounded up and at least 1.
func retryAfter(d time.Duration) string {
	secs := max(int64(math.Ceil(d.Seconds())), 1)
	return strconv.FormatInt(secs, 10)
}
