// Package cli wires configuration, logging, telemetry and the story flows
// into the geminitrace command tree.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"GeminiTrace/internal/config"
	"GeminiTrace/internal/render"
	"GeminiTrace/internal/story"
	"GeminiTrace/internal/telemetry"
	"GeminiTrace/internal/vertex"
)

const rootLongDesc string = `GeminiTrace asks a Gemini model on Vertex AI to explain Langfuse and
prints the answer. Every step is traced to Langfuse over OpenTelemetry.

Configuration is read from the environment and an optional .env file:
  GOOGLE_CLOUD_PROJECT     Google Cloud project (falls back to default credentials)
  GOOGLE_CLOUD_LOCATION    Vertex AI location (default europe-west1)
  LANGFUSE_PUBLIC_KEY      Langfuse public key
  LANGFUSE_SECRET_KEY      Langfuse secret key
  LANGFUSE_HOST            Langfuse host (default https://cloud.langfuse.com)

Without Langfuse keys traces are only written to the log directory.`

const rootShortDesc string = "GeminiTrace - traced Gemini generations"

// GeneratorFactory builds the model client for a run.
type GeneratorFactory func(ctx context.Context, cfg *config.Config, tel *telemetry.Telemetry, logger *slog.Logger) (story.Generator, error)

// Option configures the command tree.
type Option func(*options)

type options struct {
	newGenerator GeneratorFactory
	dotEnv       string
}

// WithGeneratorFactory replaces the Vertex AI client.
func WithGeneratorFactory(f GeneratorFactory) Option {
	return func(o *options) {
		o.newGenerator = f
	}
}

// WithDotEnv sets the .env file read at startup.
func WithDotEnv(path string) Option {
	return func(o *options) {
		o.dotEnv = path
	}
}

// NewRootCmd builds the geminitrace command. Run without a subcommand it
// performs the explain flow.
func NewRootCmd(opts ...Option) *cobra.Command {
	o := &options{
		newGenerator: newVertexGenerator,
		dotEnv:       ".env",
	}
	for _, opt := range opts {
		opt(o)
	}

	cmd := &cobra.Command{
		Use:           "geminitrace",
		Short:         rootShortDesc,
		Long:          rootLongDesc,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExplain(cmd, o)
		},
	}

	cmd.AddCommand(newAuthCheckCmd(o))
	cmd.AddCommand(newEpicCmd(o))
	cmd.AddCommand(newShowcaseCmd(o))

	return cmd
}

func runExplain(cmd *cobra.Command, o *options) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, o, true)
	if err != nil {
		return err
	}
	defer a.close()

	gen, err := o.newGenerator(ctx, a.cfg, a.tel, a.logger)
	if err != nil {
		return err
	}

	text, err := story.Explain(ctx, gen)
	if err != nil {
		return fmt.Errorf("failed to generate story: %w", err)
	}

	out := cmd.OutOrStdout()
	if err := render.Story(out, text, a.markdown(out)); err != nil {
		return err
	}
	render.DashboardHint(cmd.ErrOrStderr(), a.dashboardHost())
	return nil
}

func newVertexGenerator(ctx context.Context, cfg *config.Config, tel *telemetry.Telemetry, logger *slog.Logger) (story.Generator, error) {
	client, err := vertex.New(ctx, cfg.Vertex,
		vertex.WithLogger(logger),
		vertex.WithTracer(tel.Tracer),
		vertex.WithMeter(tel.Meter),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}
	logger.Info("vertex ai client ready",
		"project", client.Project(),
		"location", cfg.Vertex.Location,
		"model", client.Model())
	return client, nil
}
