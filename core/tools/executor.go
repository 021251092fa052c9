package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrToolFailed = errors.New("tool failed")

// Invocation is one validated call.
type Invocation struct {
	CallID    string
	Name      string
	Arguments Arguments
	Identity  string
}

// Executor runs tool invocations against the backend. Returned output must be
// a JSON document.
type Executor interface {
	Execute(ctx context.Context, invocation Invocation) (json.RawMessage, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, invocation Invocation) (json.RawMessage, error)

func (f ExecutorFunc) Execute(ctx context.Context, invocation Invocation) (json.RawMessage, error) {
	return f(ctx, invocation)
}

// HTTPExecutor posts {toolName, arguments, identity} to the tool backend and
// expects {succeeded, output, errorMessage}.
type HTTPExecutor struct {
	url    string
	apiKey string
	client *http.Client
}

type ExecutorOption func(*HTTPExecutor)

func WithAPIKey(apiKey string) ExecutorOption {
	return func(e *HTTPExecutor) { e.apiKey = apiKey }
}

func WithHTTPClient(client *http.Client) ExecutorOption {
	return func(e *HTTPExecutor) {
		if client != nil {
			e.client = client
		}
	}
}

func NewHTTPExecutor(url string, opts ...ExecutorOption) *HTTPExecutor {
	e := &HTTPExecutor{
		url: url,
		client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type executeRequest struct {
	ToolName  string    `json:"toolName"`
	Arguments Arguments `json:"arguments"`
	Identity  string    `json:"identity,omitempty"`
}

type executeResponse struct {
	Succeeded    bool            `json:"succeeded"`
	Output       json.RawMessage `json:"output"`
	ErrorMessage string          `json:"errorMessage"`
}

func (e *HTTPExecutor) Execute(ctx context.Context, invocation Invocation) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "execute tool request")
	defer span.End()
	span.SetAttributes(
		attribute.String("tool.name", invocation.Name),
		attribute.String("tool.call_id", invocation.CallID),
	)

	fail := func(err error) (json.RawMessage, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	body, err := json.Marshal(executeRequest{
		ToolName:  invocation.Name,
		Arguments: invocation.Arguments,
		Identity:  invocation.Identity,
	})
	if err != nil {
		return fail(fmt.Errorf("failed to marshal tool request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return fail(fmt.Errorf("failed to create tool request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	started := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return fail(fmt.Errorf("failed to call tool backend: %w", err))
	}
	defer resp.Body.Close()
	span.SetAttributes(
		attribute.Int("response.status_code", resp.StatusCode),
		attribute.Float64("response.duration", time.Since(started).Seconds()),
	)

	var decoded executeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fail(fmt.Errorf("non-OK HTTP status: %s", resp.Status))
		}
		return fail(fmt.Errorf("failed to decode tool response: %w", err))
	}

	if !decoded.Succeeded {
		message := decoded.ErrorMessage
		if message == "" {
			message = fmt.Sprintf("backend returned %s", resp.Status)
		}
		logger.Info("tool backend reported failure", "tool", invocation.Name, "call_id", invocation.CallID, "message", message)
		return fail(fmt.Errorf("%w: %s", ErrToolFailed, message))
	}

	if len(decoded.Output) == 0 {
		return json.RawMessage("null"), nil
	}
	return decoded.Output, nil
}
