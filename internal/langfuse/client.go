// Package langfuse talks to the Langfuse tracing dashboard: credential checks
// over its public REST API and the coordinates of its OpenTelemetry ingestion
// endpoint.
package langfuse

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"GeminiTrace/internal/config"
)

const (
	projectsPath = "/api/public/projects"
	otlpPath     = "/api/public/otel/v1/traces"
)

// ErrTracingDisabled is returned when the public or secret key is missing.
var ErrTracingDisabled = errors.New("LANGFUSE_PUBLIC_KEY and LANGFUSE_SECRET_KEY must both be set")

// AuthError reports a rejected credential check.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("langfuse auth check failed: %d %s", e.StatusCode, e.Body)
}

// Client is a minimal Langfuse API client.
type Client struct {
	cfg    config.LangfuseConfig
	http   *resty.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient swaps the transport used by resty.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client for the configured host.
func New(cfg config.LangfuseConfig, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		http:   resty.New(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http.
		SetBaseURL(strings.TrimRight(cfg.Host, "/")).
		SetTimeout(10*time.Second).
		SetRetryCount(0).
		SetHeader("User-Agent", "geminitrace/"+Version)

	return c
}

// Enabled reports whether both keys are configured.
func (c *Client) Enabled() bool {
	return c.cfg.Enabled()
}

// OTLPEndpoint is the URL spans are exported to.
func (c *Client) OTLPEndpoint() string {
	return strings.TrimRight(c.cfg.Host, "/") + otlpPath
}

// AuthHeader is the HTTP Basic credential for both the REST and OTLP APIs.
func (c *Client) AuthHeader() string {
	return BasicAuth(c.cfg.PublicKey, c.cfg.SecretKey)
}

// AuthCheck verifies the key pair against the project endpoint. It is a
// synchronous round trip and is meant for setup checks, not the hot path.
func (c *Client) AuthCheck(ctx context.Context) error {
	if !c.Enabled() {
		return ErrTracingDisabled
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.cfg.PublicKey, c.cfg.SecretKey).
		SetHeader("Accept", "application/json").
		Get(projectsPath)
	if err != nil {
		return fmt.Errorf("failed to reach langfuse: %w", err)
	}

	if resp.IsError() {
		return &AuthError{StatusCode: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
	}

	c.logger.Info("langfuse credentials accepted", "host", c.cfg.Host)
	return nil
}

// BasicAuth encodes a key pair as an Authorization header value.
func BasicAuth(publicKey, secretKey string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(publicKey+":"+secretKey))
}
