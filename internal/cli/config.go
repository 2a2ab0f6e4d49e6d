package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazuruo/circli/internal/config"
	clierrors "github.com/chazuruo/circli/internal/errors"
	"github.com/chazuruo/circli/internal/output"
	"github.com/chazuruo/circli/internal/tui"
)

// newConfigCommand creates the config command.
func (a *App) newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write the circli config file",
		Long: `Read and write the circli config file (~/.circleci/config.yml, or
$CIRCLECI_CLI_CONFIG). Keys: ` + strings.Join(config.Keys(), ", ") + `.`,
	}
	cmd.AddCommand(a.newConfigSetCommand(), a.newConfigGetCommand(), a.newConfigViewCommand())
	return cmd
}

// configPathForWrite returns where config changes are saved.
func (a *App) configPathForWrite() (string, error) {
	path := a.ConfigPath
	if path == "" {
		path = config.DetectConfigPath()
	}
	if path == "" {
		return "", &clierrors.ConfigError{Err: fmt.Errorf("cannot determine the home directory; pass --config")}
	}
	return path, nil
}

func (a *App) newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> [value]",
		Short: "Set a config value",
		Example: `  circli config set api-token            # prompts for the token
  circli config set default-project-slug gh/acme/api
  circli config set output json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			var value string
			switch {
			case len(args) == 2:
				value = args[1]
			case key == "api-token" && a.Interactive():
				token, err := tui.PromptToken()
				if err != nil {
					return err
				}
				value = token
			default:
				return clierrors.Invalid("config.set", "value", "a value for %s is required", key)
			}

			path, err := a.configPathForWrite()
			if err != nil {
				return err
			}
			if err := config.SetValue(path, key, value); err != nil {
				return err
			}
			if key == "api-token" {
				fmt.Fprintln(a.Out, "API token has been set successfully")
			} else {
				fmt.Fprintf(a.Out, "%s set to %s\n", key, value)
			}
			a.hint("Saved to %s", path)
			return nil
		},
	}
}

func (a *App) newConfigGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one config value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.Config()
			if err != nil {
				return err
			}
			v, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			if args[0] == "api-token" {
				v = config.MaskedToken(v)
			}
			fmt.Fprintln(a.Out, v)
			return nil
		},
	}
}

// configView is what config view prints. The token is masked.
type configView struct {
	Path               string `json:"path" yaml:"path"`
	APIToken           string `json:"api_token" yaml:"api_token"`
	TokenSource        string `json:"token_source,omitempty" yaml:"token_source,omitempty"`
	DefaultProjectSlug string `json:"default_project_slug" yaml:"default_project_slug"`
	Host               string `json:"host" yaml:"host"`
	AuthScheme         string `json:"auth_scheme" yaml:"auth_scheme"`
	Output             string `json:"output" yaml:"output"`
	Timeout            string `json:"timeout" yaml:"timeout"`
}

func (a *App) newConfigViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the effective configuration",
		Long: `Show the configuration after the environment and flags are applied.
The API token is masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.Config()
			if err != nil {
				return err
			}
			return output.Record(a.Printer(), configView{
				Path:               a.configPath,
				APIToken:           config.MaskedToken(cfg.APIToken),
				TokenSource:        cfg.TokenSource,
				DefaultProjectSlug: cfg.DefaultProjectSlug,
				Host:               cfg.Host,
				AuthScheme:         cfg.AuthScheme,
				Output:             cfg.Output,
				Timeout:            cfg.Timeout,
			})
		},
	}
}
