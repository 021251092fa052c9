package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chukwumela909/voice-agent-market/core/ratelimit"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultTimeout   = 10 * time.Second
	anonymousLimitID = "anonymous"
)

// HTTPAcquirer requests credentials from an HTTP endpoint with
// POST {contextTag, identity} and expects {credential, expiresAt}.
type HTTPAcquirer struct {
	url     string
	apiKey  string
	client  *http.Client
	limiter *ratelimit.Limiter
	now     func() time.Time
}

type Option func(*HTTPAcquirer)

// WithAPIKey authenticates requests with a bearer token.
func WithAPIKey(apiKey string) Option {
	return func(a *HTTPAcquirer) { a.apiKey = apiKey }
}

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(client *http.Client) Option {
	return func(a *HTTPAcquirer) {
		if client != nil {
			a.client = client
		}
	}
}

// WithRateLimiter limits credential requests per identity. Requests without an
// identity share one bucket.
func WithRateLimiter(limiter *ratelimit.Limiter) Option {
	return func(a *HTTPAcquirer) { a.limiter = limiter }
}

// WithClock replaces the time source used for the expiry check.
func WithClock(now func() time.Time) Option {
	return func(a *HTTPAcquirer) {
		if now != nil {
			a.now = now
		}
	}
}

func NewHTTPAcquirer(url string, opts ...Option) *HTTPAcquirer {
	a := &HTTPAcquirer{
		url: url,
		client: &http.Client{
			Timeout: defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
					return operationName + " " + request.URL.Path
				}),
			),
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type acquireRequest struct {
	ContextTag string `json:"contextTag"`
	Identity   string `json:"identity,omitempty"`
}

type acquireResponse struct {
	Credential string    `json:"credential"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

func (a *HTTPAcquirer) Acquire(ctx context.Context, contextTag, identity string) (Credential, error) {
	ctx, span := tracer.Start(ctx, "acquire credential")
	defer span.End()
	span.SetAttributes(attribute.String("credential.context", contextTag))

	fail := func(err error) (Credential, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Credential{}, err
	}

	limitKey := identity
	if limitKey == "" {
		limitKey = anonymousLimitID
	}
	if err := a.limiter.Allow(ctx, "credentials:"+limitKey); err != nil {
		return fail(err)
	}

	body, err := json.Marshal(acquireRequest{ContextTag: contextTag, Identity: identity})
	if err != nil {
		return fail(fmt.Errorf("failed to marshal credential request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return fail(fmt.Errorf("failed to create credential request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fail(fmt.Errorf("failed to request credential: %w", err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		logger.Warn("credential endpoint rejected request", "status", resp.StatusCode, "body", string(errorBody))
		return fail(fmt.Errorf("non-OK HTTP status: %s", resp.Status))
	}

	var decoded acquireResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fail(fmt.Errorf("failed to decode credential response: %w", err))
	}
	if decoded.Credential == "" {
		return fail(ErrEmptyCredential)
	}

	credential := Credential{Value: decoded.Credential, ExpiresAt: decoded.ExpiresAt}
	if credential.Expired(a.now()) {
		return fail(fmt.Errorf("%w at %s", ErrExpiredCredential, credential.ExpiresAt.Format(time.RFC3339)))
	}

	return credential, nil
}
