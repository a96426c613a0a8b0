package cli_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"GeminiTrace/internal/cli"
	"GeminiTrace/internal/config"
	"GeminiTrace/internal/story"
	"GeminiTrace/internal/telemetry"
)

var envNames = []string{
	"GOOGLE_CLOUD_PROJECT",
	"GOOGLE_CLOUD_LOCATION",
	"GEMINI_MODEL",
	"LANGFUSE_PUBLIC_KEY",
	"LANGFUSE_SECRET_KEY",
	"LANGFUSE_HOST",
	"LOG_LEVEL",
	"LOG_DIR",
	"LOG_PRETTY",
}

// isolateEnv unsets every variable the config reads and restores them afterwards.
func isolateEnv() {
	saved := map[string]string{}
	for _, name := range envNames {
		if v, ok := os.LookupEnv(name); ok {
			saved[name] = v
		}
		Expect(os.Unsetenv(name)).To(Succeed())
	}
	DeferCleanup(func() {
		for _, name := range envNames {
			os.Unsetenv(name)
			if v, ok := saved[name]; ok {
				os.Setenv(name, v)
			}
		}
	})
}

type fakeGenerator struct {
	calls int
	reply func(prompt string) (string, error)
}

func (f *fakeGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	f.calls++
	return f.reply(prompt)
}

func subcommandNames(cmd *cobra.Command) []string {
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	return names
}

var _ = Describe("NewRootCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := cli.NewRootCmd()
		Expect(cmd.Use).To(Equal("geminitrace"))
	})

	It("registers the subcommands", func() {
		cmd := cli.NewRootCmd()
		Expect(subcommandNames(cmd)).To(ConsistOf("auth-check", "epic", "showcase"))
	})

	It("rejects any arguments", func() {
		cmd := cli.NewRootCmd()
		Expect(cmd.Args(cmd, []string{})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})

	It("has no flags of its own", func() {
		cmd := cli.NewRootCmd()
		Expect(cmd.Flags().HasFlags()).To(BeFalse())
	})
})

var _ = Describe("command execution", func() {
	var (
		ctx     context.Context
		logDir  string
		stdout  *bytes.Buffer
		stderr  *bytes.Buffer
		gen     *fakeGenerator
		gotCfg  *config.Config
		factory cli.GeneratorFactory
	)

	BeforeEach(func() {
		isolateEnv()
		ctx = context.Background()

		tmp := GinkgoT().TempDir()
		logDir = filepath.Join(tmp, "logs")
		Expect(os.Setenv("GOOGLE_CLOUD_PROJECT", "demo-project")).To(Succeed())
		Expect(os.Setenv("LOG_DIR", logDir)).To(Succeed())
		Expect(os.Setenv("LOG_PRETTY", "false")).To(Succeed())

		stdout = &bytes.Buffer{}
		stderr = &bytes.Buffer{}
		gen = &fakeGenerator{reply: func(string) (string, error) {
			return "Langfuse records what your LLM app does.", nil
		}}
		gotCfg = nil
		factory = func(_ context.Context, cfg *config.Config, tel *telemetry.Telemetry, _ *slog.Logger) (story.Generator, error) {
			Expect(tel).NotTo(BeNil())
			gotCfg = cfg
			return gen, nil
		}
	})

	execute := func(args ...string) error {
		cmd := cli.NewRootCmd(
			cli.WithGeneratorFactory(factory),
			cli.WithDotEnv(filepath.Join(logDir, "missing.env")),
		)
		cmd.SetOut(stdout)
		cmd.SetErr(stderr)
		cmd.SetArgs(args)
		return cmd.ExecuteContext(ctx)
	}

	Describe("explain", func() {
		It("prints the generated story once", func() {
			Expect(execute()).To(Succeed())

			Expect(gen.calls).To(Equal(1))
			Expect(stdout.String()).To(Equal(
				"Generated Story:\n" + strings.Repeat("=", 50) + "\nLangfuse records what your LLM app does.\n"))
			Expect(gotCfg.Vertex.Project).To(Equal("demo-project"))
		})

		It("flushes the trace to the log directory", func() {
			Expect(execute()).To(Succeed())

			data, err := os.ReadFile(filepath.Join(logDir, "geminitrace_traces.log"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("story_generation"))
			Expect(string(data)).To(ContainSubstring(`"Name": "story"`))
		})

		It("surfaces generator failures", func() {
			denied := errors.New("permission denied")
			gen.reply = func(string) (string, error) { return "", denied }

			err := execute()
			Expect(err).To(MatchError(denied))
			Expect(stdout.String()).To(BeEmpty())
		})

		It("surfaces client construction failures", func() {
			factory = func(context.Context, *config.Config, *telemetry.Telemetry, *slog.Logger) (story.Generator, error) {
				return nil, config.ErrMissingProject
			}

			Expect(execute()).To(MatchError(config.ErrMissingProject))
		})

		It("reads the dotenv file", func() {
			Expect(os.MkdirAll(logDir, 0o755)).To(Succeed())
			dotEnv := filepath.Join(logDir, ".env")
			Expect(os.WriteFile(dotEnv, []byte("GEMINI_MODEL=gemini-2.5-pro\n"), 0o600)).To(Succeed())

			cmd := cli.NewRootCmd(cli.WithGeneratorFactory(factory), cli.WithDotEnv(dotEnv))
			cmd.SetOut(stdout)
			cmd.SetErr(stderr)
			cmd.SetArgs([]string{})
			Expect(cmd.ExecuteContext(ctx)).To(Succeed())
			Expect(gotCfg.Vertex.Model).To(Equal("gemini-2.5-pro"))
		})

		It("rejects an invalid log level", func() {
			Expect(os.Setenv("LOG_LEVEL", "loud")).To(Succeed())

			Expect(execute()).To(MatchError(ContainSubstring("invalid LOG_LEVEL")))
			Expect(gen.calls).To(BeZero())
		})
	})

	Describe("auth-check", func() {
		var (
			status  int
			gotPath string
		)

		BeforeEach(func() {
			status = http.StatusOK
			gotPath = ""
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"data": []}`))
			}))
			DeferCleanup(server.Close)

			Expect(os.Setenv("LANGFUSE_HOST", server.URL)).To(Succeed())
			Expect(os.Setenv("LANGFUSE_PUBLIC_KEY", "pk-lf-1")).To(Succeed())
			Expect(os.Setenv("LANGFUSE_SECRET_KEY", "sk-lf-1")).To(Succeed())
		})

		It("reports accepted credentials", func() {
			Expect(execute("auth-check")).To(Succeed())
			Expect(gotPath).To(Equal("/api/public/projects"))
			Expect(stdout.String()).To(ContainSubstring("authenticated and ready"))
		})

		It("fails on rejected credentials", func() {
			status = http.StatusUnauthorized

			Expect(execute("auth-check")).NotTo(Succeed())
			Expect(stdout.String()).To(ContainSubstring("Authentication failed"))
		})
	})

	Describe("epic", func() {
		It("prints the epic report", func() {
			gen.reply = func(prompt string) (string, error) {
				if strings.Contains(prompt, "character for an epic story") {
					return `{"name": "Vexa", "species": "android"}`, nil
				}
				return "A scene.", nil
			}

			Expect(execute("epic")).To(Succeed())
			Expect(gen.calls).To(Equal(8))
			Expect(stdout.String()).To(ContainSubstring("CHARACTERS"))
			Expect(stdout.String()).To(ContainSubstring("1. Vexa"))
			Expect(stderr.String()).To(ContainSubstring("Creating an epic story..."))
		})
	})

	Describe("showcase", func() {
		It("prints the quality report", func() {
			Expect(execute("showcase", "--user", "alice")).To(Succeed())
			Expect(gen.calls).To(Equal(2))
			Expect(stdout.String()).To(ContainSubstring("Overall Score:"))

			data, err := os.ReadFile(filepath.Join(logDir, "geminitrace_traces.log"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("alice"))
		})
	})
})
