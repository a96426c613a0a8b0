package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

const (
	DefaultLocation     = "europe-west1"
	DefaultModel        = "gemini-2.0-flash"
	DefaultLangfuseHost = "https://cloud.langfuse.com"
	DefaultEnvironment  = "default"
	DefaultLogDir       = "logs"

	// GlobalLocation selects the location-less Vertex AI endpoint.
	GlobalLocation = "global"
)

// ErrMissingProject is returned when no Google Cloud project is configured.
var ErrMissingProject = errors.New("GOOGLE_CLOUD_PROJECT not set")

// Config holds application configuration
type Config struct {
	Vertex   VertexConfig
	Langfuse LangfuseConfig
	Logging  LogConfig
}

// VertexConfig holds the generative model settings
type VertexConfig struct {
	Project  string        `envconfig:"GOOGLE_CLOUD_PROJECT"`
	Location string        `envconfig:"GOOGLE_CLOUD_LOCATION" default:"europe-west1"`
	Model    string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	Endpoint string        `envconfig:"VERTEX_ENDPOINT"` // overrides the location-derived base URL
	Timeout  time.Duration `envconfig:"VERTEX_TIMEOUT" default:"60s"`
}

// LangfuseConfig holds the tracing dashboard settings
type LangfuseConfig struct {
	PublicKey   string `envconfig:"LANGFUSE_PUBLIC_KEY"`
	SecretKey   string `envconfig:"LANGFUSE_SECRET_KEY"`
	Host        string `envconfig:"LANGFUSE_HOST" default:"https://cloud.langfuse.com"`
	Environment string `envconfig:"LANGFUSE_TRACING_ENVIRONMENT" default:"default"`
	Release     string `envconfig:"LANGFUSE_RELEASE"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Dir    string `envconfig:"LOG_DIR" default:"logs"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"true"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadWithDotEnv merges the dotenv file at path into the environment, then loads.
func LoadWithDotEnv(path string) (*Config, error) {
	if err := LoadDotEnv(path); err != nil {
		return nil, err
	}
	return Load()
}

// LoadDotEnv copies the keys of a dotenv file into the process environment.
// Variables that are already set win over the file. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat dotenv file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read dotenv file: %w", err)
	}

	// viper lower-cases keys; environment names are conventionally upper case.
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return fmt.Errorf("failed to set %s: %w", name, err)
		}
	}
	return nil
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		Vertex: VertexConfig{
			Location: DefaultLocation,
			Model:    DefaultModel,
			Timeout:  60 * time.Second,
		},
		Langfuse: LangfuseConfig{
			Host:        DefaultLangfuseHost,
			Environment: DefaultEnvironment,
		},
		Logging: LogConfig{
			Level:  "info",
			Dir:    DefaultLogDir,
			Pretty: true,
		},
	}
}

// Validate checks the settings shared by every command.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Langfuse.Host)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid LANGFUSE_HOST %q", c.Langfuse.Host)
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// Validate checks the settings needed to call the model.
func (v VertexConfig) Validate() error {
	if v.Project == "" {
		return ErrMissingProject
	}
	if v.Model == "" {
		return errors.New("GEMINI_MODEL is empty")
	}
	return nil
}

// BaseURL returns the Vertex AI API root for the configured location.
func (v VertexConfig) BaseURL() string {
	if v.Endpoint != "" {
		return strings.TrimRight(v.Endpoint, "/")
	}
	if v.Location == "" || v.Location == GlobalLocation {
		return "https://aiplatform.googleapis.com"
	}
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com", v.Location)
}

// Enabled reports whether both Langfuse keys are present.
func (l LangfuseConfig) Enabled() bool {
	return l.PublicKey != "" && l.SecretKey != ""
}

// ParseLevel maps LOG_LEVEL values to slog levels.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", level)
	}
}
