package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/term"

	"GeminiTrace/internal/config"
	"GeminiTrace/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// app holds what one command run needs.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
	tel       *telemetry.Telemetry
}

func newApp(ctx context.Context, o *options, withTelemetry bool) (*app, error) {
	cfg, err := config.LoadWithDotEnv(o.dotEnv)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger, logCloser, err := telemetry.InitLogger(
		telemetry.WithLevel(level),
		telemetry.WithDir(cfg.Logging.Dir),
		telemetry.WithPretty(cfg.Logging.Pretty),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, logCloser: logCloser}

	if withTelemetry {
		tel, err := telemetry.InitTelemetry(ctx, cfg, logger)
		if err != nil {
			logCloser.Close()
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		a.tel = tel
	}

	return a, nil
}

// close flushes pending spans. A failed flush is logged and does not change
// the outcome of the command.
func (a *app) close() {
	if a.tel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.tel.Flush(ctx); err != nil {
			a.logger.Error("failed to flush traces", "error", err)
		}
		if err := a.tel.Shutdown(ctx); err != nil {
			a.logger.Error("failed to shutdown telemetry", "error", err)
		}
	}
	a.logCloser.Close()
}

// markdown reports whether output should be rendered through glamour.
func (a *app) markdown(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && a.cfg.Logging.Pretty && term.IsTerminal(int(f.Fd()))
}

func (a *app) dashboardHost() string {
	if !a.cfg.Langfuse.Enabled() {
		return ""
	}
	return a.cfg.Langfuse.Host
}
