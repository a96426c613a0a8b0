package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "geminitrace.log"

// LoggerOption configures InitLogger.
type LoggerOption func(*loggerConfig)

type loggerConfig struct {
	level   slog.Level
	dir     string
	pretty  bool
	console io.Writer
}

// WithLevel sets the minimum level written to the log file.
func WithLevel(level slog.Level) LoggerOption {
	return func(c *loggerConfig) {
		c.level = level
	}
}

// WithDir sets the directory holding the rotated log file. Empty disables the file.
func WithDir(dir string) LoggerOption {
	return func(c *loggerConfig) {
		c.dir = dir
	}
}

// WithPretty enables the charmbracelet/log handler for console output.
func WithPretty(pretty bool) LoggerOption {
	return func(c *loggerConfig) {
		c.pretty = pretty
	}
}

// WithConsole overrides the console writer. Defaults to os.Stderr; nil disables it.
func WithConsole(w io.Writer) LoggerOption {
	return func(c *loggerConfig) {
		c.console = w
	}
}

// InitLogger initializes structured logging with rotation. Records go to a
// JSON file under the log directory and, at warn and above unless debugging,
// to the console. The returned closer releases the file.
func InitLogger(opts ...LoggerOption) (*slog.Logger, io.Closer, error) {
	cfg := &loggerConfig{
		level:   slog.LevelInfo,
		dir:     "logs",
		console: os.Stderr,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var handlers []slog.Handler
	var closer io.Closer = nopCloser{}

	if cfg.dir != "" {
		if err := os.MkdirAll(cfg.dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
		}

		lumberjackLogger := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.dir, logFileName),
			MaxSize:    10, // 10 MB
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		closer = lumberjackLogger

		handlers = append(handlers, slog.NewJSONHandler(lumberjackLogger, &slog.HandlerOptions{
			Level: cfg.level,
		}))
	}

	if cfg.console != nil {
		level := consoleLevel(cfg.level)
		if cfg.pretty {
			handlers = append(handlers, charmlog.NewWithOptions(cfg.console, charmlog.Options{
				Level:           charmlog.Level(level),
				ReportTimestamp: true,
			}))
		} else {
			handlers = append(handlers, slog.NewTextHandler(cfg.console, &slog.HandlerOptions{
				Level: level,
			}))
		}
	}

	logger := slog.New(newMultiHandler(handlers...))
	slog.SetDefault(logger)

	return logger, closer, nil
}

// consoleLevel keeps program output readable: only warnings and errors reach
// the terminal unless debug logging was asked for.
func consoleLevel(level slog.Level) slog.Level {
	if level <= slog.LevelDebug || level > slog.LevelWarn {
		return level
	}
	return slog.LevelWarn
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
