// Package cli provides the Cobra command tree for circli.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/chazuruo/circli/internal/apiclient"
	"github.com/chazuruo/circli/internal/circleci"
	"github.com/chazuruo/circli/internal/config"
	clierrors "github.com/chazuruo/circli/internal/errors"
	"github.com/chazuruo/circli/internal/logging"
	"github.com/chazuruo/circli/internal/output"
)

// Globals holds the persistent flags every command shares.
type Globals struct {
	Debug      bool
	JSON       bool
	YAML       bool
	NoTUI      bool
	Query      string
	Template   string
	Token      string
	Host       string
	ConfigPath string
	Timeout    time.Duration
}

// App is the state one invocation of circli runs with. The config and the
// API service are built on first use, after flags are parsed.
type App struct {
	Globals

	Out   io.Writer
	Err   io.Writer
	Build BuildInfo

	// baseURL replaces the host-derived API root. Tests point it at a fake
	// server.
	baseURL string

	cfg        *config.Config
	configPath string
	svc        *circleci.Service
}

// NewApp returns an App writing to stdout and stderr.
func NewApp(build BuildInfo) *App {
	return &App{Out: os.Stdout, Err: os.Stderr, Build: build}
}

// AddGlobalFlags adds global flags to a command.
func (a *App) AddGlobalFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.BoolVar(&a.Debug, "debug", false, "log API requests to stderr")
	f.BoolVar(&a.JSON, "json", false, "print JSON")
	f.BoolVar(&a.YAML, "yaml", false, "print YAML")
	f.StringVarP(&a.Query, "query", "q", "", "JMESPath expression applied to the result")
	f.StringVar(&a.Template, "template", "", "Go template applied to the result")
	f.BoolVar(&a.NoTUI, "no-tui", false,
		"disable TUI/interactive mode; never prompt or animate")
	f.StringVar(&a.Token, "token", "", "API token (overrides CIRCLECI_TOKEN and the config file)")
	f.StringVar(&a.Host, "host", "", "CircleCI host (default https://circleci.com)")
	f.StringVar(&a.ConfigPath, "config", "", "config file path (default ~/.circleci/config.yml)")
	f.DurationVar(&a.Timeout, "timeout", 0, "timeout for each API request, e.g. 30s")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")
}

// setupLogging installs the default logger for the parsed flags.
func (a *App) setupLogging() {
	level := slog.LevelWarn
	if a.Debug {
		level = slog.LevelDebug
	}
	logging.Init(level, a.Err)
}

// Interactive reports whether prompts and spinners may be shown.
func (a *App) Interactive() bool {
	if a.NoTUI || a.JSON || a.YAML {
		return false
	}
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Config loads the config once. Flags win over the environment, which wins
// over the file.
func (a *App) Config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}

	path := a.ConfigPath
	if path == "" {
		path = config.DetectConfigPath()
	}
	var cfg *config.Config
	var err error
	if path == "" {
		cfg, err = config.LoadWithDefaults()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, err
	}

	if a.Token != "" {
		cfg.APIToken = a.Token
		cfg.TokenSource = config.TokenFromFlag
	}
	if a.Host != "" {
		cfg.Host = a.Host
		if err := cfg.Validate(); err != nil {
			return nil, &clierrors.ValidationError{Op: "config", Field: "host", Err: err}
		}
	}
	if a.Timeout > 0 {
		cfg.Timeout = a.Timeout.String()
	}

	a.cfg = cfg
	a.configPath = path
	return cfg, nil
}

// Service returns the API façade, built from the resolved config. It fails
// when no token can be found.
func (a *App) Service() (*circleci.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}
	if cfg.APIToken == "" {
		return nil, &clierrors.ValidationError{
			Op:    "config",
			Field: "api-token",
			Err:   fmt.Errorf("%w; run `circli config set api-token` or set CIRCLECI_TOKEN", clierrors.ErrNoToken),
		}
	}
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, &clierrors.ValidationError{Op: "config", Field: "timeout", Err: err}
	}

	baseURL := a.baseURL
	if baseURL == "" {
		baseURL = cfg.BaseURL()
	}
	client := apiclient.New(apiclient.Config{
		BaseURL:    baseURL,
		Token:      cfg.APIToken,
		AuthScheme: cfg.AuthScheme,
		UserAgent:  "circli/" + a.Build.Version,
		Timeout:    timeout,
		Telemetry:  cfg.Telemetry,
	})
	a.svc = circleci.New(client)
	return a.svc, nil
}

// Printer returns a printer for the output flags, falling back to the
// config's output setting.
func (a *App) Printer() *output.Printer {
	format := output.FormatTable
	switch {
	case a.JSON:
		format = output.FormatJSON
	case a.YAML:
		format = output.FormatYAML
	case a.cfg != nil && a.cfg.Output != "":
		if f, err := output.ParseFormat(a.cfg.Output); err == nil {
			format = f
		}
	}
	return &output.Printer{Format: format, Query: a.Query, Template: a.Template, Out: a.Out}
}

// Structured reports whether output goes to a machine-readable format.
func (a *App) Structured() bool {
	p := a.Printer()
	return p.Format != output.FormatTable || p.Query != "" || p.Template != ""
}

// Infof prints a human note. Structured output suppresses it so stdout
// stays parseable.
func (a *App) Infof(format string, args ...any) {
	if a.Structured() {
		return
	}
	fmt.Fprintf(a.Out, format+"\n", args...)
}

// projectSlug returns the positional slug, the --project-slug flag, or the
// configured default, in that order.
func (a *App) projectSlug(op string, flag string, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if flag != "" {
		return flag, nil
	}
	cfg, err := a.Config()
	if err != nil {
		return "", err
	}
	if cfg.DefaultProjectSlug != "" {
		return cfg.DefaultProjectSlug, nil
	}
	return "", clierrors.Invalid(op, "project-slug",
		"a project slug is required; pass it or run `circli config set default-project-slug gh/<org>/<repo>`")
}

// parseParams turns repeated key=value flags into a map. Values that read
// as booleans or integers are sent as such, since pipeline parameters are
// typed.
func parseParams(op string, pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, clierrors.Invalid(op, "param", "%q is not key=value", p)
		}
		params[k] = typedValue(v)
	}
	return params, nil
}

func typedValue(v string) any {
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	var n int64
	if _, err := fmt.Sscanf(v, "%d", &n); err == nil && fmt.Sprint(n) == v {
		return n
	}
	return v
}

// parseNumber parses a positive integer argument.
func parseNumber(op, field, s string) (int64, error) {
	var n int64
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || fmt.Sprint(n) != s || n <= 0 {
		return 0, clierrors.Invalid(op, field, "%q is not a positive number", s)
	}
	return n, nil
}

// envDefault returns the value of the first set environment variable.
func envDefault(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
