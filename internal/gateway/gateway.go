// Package gateway is the uniform invocation layer between the session core
// and the backend: it performs one call per command, normalizes failures
// into typed errors, and logs the outcome. Nothing above it ever sees a
// raised error — every call folds into a Result.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ita-prog/worryless/internal/logging"
	"github.com/ita-prog/worryless/internal/models"
	"github.com/ita-prog/worryless/internal/result"
)

// Invoker executes one named command against the backend. *backend.Backend
// satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, command string, args any) (json.RawMessage, error)
}

// Recorder observes command outcomes. *metrics.Collector satisfies it.
type Recorder interface {
	RecordCommand(command string, ok bool, duration time.Duration)
}

// Gateway wraps an Invoker with outcome logging and metrics.
type Gateway struct {
	invoker Invoker
	log     logging.Logger
	rec     Recorder
}

// New builds a gateway. rec may be nil when metrics are disabled.
func New(invoker Invoker, log logging.Logger, rec Recorder) *Gateway {
	return &Gateway{invoker: invoker, log: log, rec: rec}
}

// Call invokes command exactly once and projects the raw response into R.
// Retries are a caller concern. The returned Result is the only failure
// channel: transport failures, backend failures, and projector failures all
// come back as Err. Call never panics, even for a panicking projector.
func Call[R any](ctx context.Context, g *Gateway, command string, args any, project func(json.RawMessage) (R, error)) (res result.Result[R]) {
	name := strings.ReplaceAll(command, "_", " ")
	callID := uuid.NewString()
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			res = result.Err[R](fmt.Errorf("%s: projection panic: %v", name, p))
		}
		if g.rec != nil {
			g.rec.RecordCommand(command, res.IsOk(), time.Since(start))
		}
	}()

	raw, err := g.invoker.Invoke(ctx, command, args)
	if err != nil {
		normalized := normalizeError(err, callID)
		g.log.Warn(ctx, name+" failed", "call_id", callID, "error", normalized)
		return result.Err[R](normalized)
	}

	value, err := project(raw)
	if err != nil {
		g.log.Warn(ctx, name+" returned an unusable response",
			"call_id", callID, "error", err)
		return result.Err[R](fmt.Errorf("%s: %w", name, err))
	}

	g.log.Info(ctx, name+" succeeded", "call_id", callID)
	return result.Ok(value)
}

// Discard is the projector for commands whose only meaningful outcome is
// that they succeeded.
func Discard(json.RawMessage) (struct{}, error) {
	return struct{}{}, nil
}

// JSON returns a projector that decodes the raw response into R.
func JSON[R any]() func(json.RawMessage) (R, error) {
	return func(raw json.RawMessage) (R, error) {
		var v R
		if len(raw) == 0 {
			return v, nil
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return v, fmt.Errorf("decode response: %w", err)
		}
		return v, nil
	}
}

// normalizeError prefers the structured failure shape. When the underlying
// error is not already an APIError, its text is tried as an APIError JSON
// payload; anything unparsable stays a plain error. This fallback never
// raises.
func normalizeError(err error, callID string) error {
	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var parsed models.APIError
	if jsonErr := json.Unmarshal([]byte(err.Error()), &parsed); jsonErr == nil &&
		(parsed.ID != "" || parsed.Message != "") {
		if parsed.RequestID == "" {
			parsed.RequestID = callID
		}
		return &parsed
	}
	return err
}
