// Package vertex calls Gemini models through the Vertex AI REST API.
package vertex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"GeminiTrace/internal/backend"
	"GeminiTrace/internal/config"
	"GeminiTrace/internal/langfuse"
	"GeminiTrace/internal/observe"
)

const (
	scopeName          = "GeminiTrace/internal/vertex"
	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
	system             = "vertex_ai"
)

var (
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("empty response from Vertex AI")

	// ErrBlocked is returned when the prompt was rejected by safety filters.
	ErrBlocked = errors.New("prompt blocked by Vertex AI")
)

// APIError is a non-2xx reply from Vertex AI.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("API error: %d %s - %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("API error: %d - %s", e.StatusCode, e.Message)
}

// Unauthorized reports whether credentials were missing or lacked permission.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// QuotaExceeded reports whether the request was rate limited.
func (e *APIError) QuotaExceeded() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Response is the outcome of one generateContent call.
type Response struct {
	Text         string
	ModelVersion string
	FinishReason string
	Usage        backend.UsageMetadata
	Latency      time.Duration
}

// Client sends prompts to one Gemini model.
type Client struct {
	cfg    config.VertexConfig
	http   *resty.Client
	tokens oauth2.TokenSource
	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter

	latency metric.Float64Histogram
}

// Option configures a Client.
type Option func(*Client)

// WithTokenSource replaces Application Default Credentials.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithHTTPClient sets the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

func WithMeter(meter metric.Meter) Option {
	return func(c *Client) {
		c.meter = meter
	}
}

// New creates a client for cfg. Without WithTokenSource it resolves
// Application Default Credentials, which may also supply the project.
func New(ctx context.Context, cfg config.VertexConfig, opts ...Option) (*Client, error) {
	c := &Client{
		cfg:    cfg,
		http:   resty.New(),
		logger: slog.Default(),
		tracer: otel.Tracer(scopeName),
		meter:  otel.Meter(scopeName),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.tokens == nil {
		creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("failed to find default credentials: %w", err)
		}
		c.tokens = creds.TokenSource
		if c.cfg.Project == "" && creds.ProjectID != "" {
			c.logger.Debug("using project from default credentials", "project", creds.ProjectID)
			c.cfg.Project = creds.ProjectID
		}
	}
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := c.cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c.http.
		SetBaseURL(c.cfg.BaseURL()).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "geminitrace/"+langfuse.Version)

	histogram, err := c.meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram: %w", err)
	}
	c.latency = histogram

	return c, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Project returns the resolved Google Cloud project.
func (c *Client) Project() string {
	return c.cfg.Project
}

// GenerateText sends a single-turn prompt and returns the generated text.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// GenerateContent sends a single-turn prompt.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (*Response, error) {
	return c.Generate(ctx, backend.NewTextRequest(prompt))
}

// Generate calls generateContent once. Failures are not retried.
func (c *Client) Generate(ctx context.Context, req *backend.GenerateContentRequest) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "vertex.generate_content",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(langfuse.ObservationType, langfuse.TypeGeneration),
			attribute.String(langfuse.ObservationModel, c.cfg.Model),
			attribute.String(langfuse.ObservationInput, observe.Serialize(req.Contents)),
			attribute.String(langfuse.GenAISystem, system),
			attribute.String(langfuse.GenAIRequestModel, c.cfg.Model),
		),
	)
	defer span.End()
	if req.GenerationConfig != nil {
		span.SetAttributes(attribute.String(langfuse.ObservationModelParams, observe.Serialize(req.GenerationConfig)))
	}

	resp, err := c.generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(
			attribute.String(langfuse.ObservationLevel, langfuse.LevelError),
			attribute.String(langfuse.ObservationStatusMessage, err.Error()),
		)
		c.logger.Error("generate content failed", "model", c.cfg.Model, "error", err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String(langfuse.ObservationOutput, resp.Text),
		attribute.String(langfuse.GenAIResponseModel, resp.ModelVersion),
		attribute.Int64(langfuse.GenAIUsageInputTokens, resp.Usage.PromptTokenCount),
		attribute.Int64(langfuse.GenAIUsageOutputTokens, resp.Usage.CandidatesTokenCount),
		attribute.String(langfuse.ObservationUsageDetails, observe.Serialize(map[string]int64{
			"input":  resp.Usage.PromptTokenCount,
			"output": resp.Usage.CandidatesTokenCount,
			"total":  resp.Usage.TotalTokenCount,
		})),
	)
	span.SetStatus(codes.Ok, "")
	c.logger.Debug("generate content",
		"model", c.cfg.Model,
		"finish_reason", resp.FinishReason,
		"total_tokens", resp.Usage.TotalTokenCount,
		"latency", resp.Latency)

	return resp, nil
}

func (c *Client) generate(ctx context.Context, req *backend.GenerateContentRequest) (*Response, error) {
	start := time.Now()

	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	httpResp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetBody(req).
		Post(c.path())
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	duration := time.Since(start)
	c.latency.Record(ctx, float64(duration.Milliseconds()),
		metric.WithAttributes(
			attribute.String(langfuse.GenAIRequestModel, c.cfg.Model),
			attribute.Int("http.response.status_code", httpResp.StatusCode()),
		))

	if httpResp.IsError() {
		return nil, newAPIError(httpResp)
	}

	var apiResp backend.GenerateContentResponse
	if err := json.Unmarshal(httpResp.Body(), &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	c.recordMetrics(ctx, apiResp.UsageMetadata.AsMap())

	if fb := apiResp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return nil, fmt.Errorf("%w: %s", ErrBlocked, fb.BlockReason)
	}

	text := apiResp.Text()
	if text == "" {
		return nil, ErrEmptyResponse
	}

	resp := &Response{
		Text:         text,
		ModelVersion: apiResp.ModelVersion,
		FinishReason: apiResp.Candidates[0].FinishReason,
		Latency:      duration,
	}
	if apiResp.UsageMetadata != nil {
		resp.Usage = *apiResp.UsageMetadata
	}
	return resp, nil
}

func (c *Client) path() string {
	location := c.cfg.Location
	if location == "" {
		location = config.GlobalLocation
	}
	return fmt.Sprintf("/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		c.cfg.Project, location, c.cfg.Model)
}

// recordMetrics records OpenTelemetry metrics from usage data
func (c *Client) recordMetrics(ctx context.Context, usage map[string]int64) {
	for key, value := range usage {
		counter, err := c.meter.Int64Counter(
			fmt.Sprintf("llm.usage.%s", key),
			metric.WithDescription(fmt.Sprintf("LLM usage metric: %s", key)),
		)
		if err != nil {
			c.logger.Warn("failed to create counter", "key", key, "error", err)
			continue
		}
		counter.Add(ctx, value, metric.WithAttributes(attribute.String(langfuse.GenAIRequestModel, c.cfg.Model)))
	}
}

func newAPIError(resp *resty.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode(), Message: resp.String()}

	var body backend.ErrorResponse
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error.Message != "" {
		apiErr.Status = body.Error.Status
		apiErr.Message = body.Error.Message
	}
	return apiErr
}
