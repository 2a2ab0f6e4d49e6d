package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/chazuruo/circli/internal/output"
	"github.com/chazuruo/circli/internal/upgrade"
)

// BuildInfo is stamped into the binary at build time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
	BuiltBy string
}

// VersionInfo contains version information for the binary.
type VersionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
	BuiltBy string `json:"built_by,omitempty" yaml:"built_by,omitempty"`
	Go      string `json:"go_version" yaml:"go_version"`
}

// VersionOptions contains the options for the version command.
type VersionOptions struct {
	Short      bool
	Check      bool
	Prerelease bool
}

// newVersionCommand creates the version command.
func (a *App) newVersionCommand() *cobra.Command {
	opts := &VersionOptions{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long: `Display the circli version information.

Shows version, commit hash, build date, who built it, and Go version.
With --check, also asks GitHub whether a newer release exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Check {
				return a.runVersionCheck(cmd, opts)
			}
			return a.runVersion(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Short, "short", false, "print only the version number")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "check GitHub for a newer release")
	cmd.Flags().BoolVar(&opts.Prerelease, "pre", false, "consider prereleases with --check")

	return cmd
}

func (a *App) versionInfo() VersionInfo {
	return VersionInfo{
		Version: a.Build.Version,
		Commit:  a.Build.Commit,
		Date:    a.Build.Date,
		BuiltBy: a.Build.BuiltBy,
		Go:      runtime.Version(),
	}
}

func (a *App) runVersion(opts *VersionOptions) error {
	info := a.versionInfo()

	if a.Structured() {
		return output.Record(a.Printer(), info)
	}

	if opts.Short {
		fmt.Fprintln(a.Out, info.Version)
		return nil
	}

	fmt.Fprintf(a.Out, "circli version %s\n", info.Version)
	fmt.Fprintf(a.Out, "commit: %s\n", info.Commit)
	fmt.Fprintf(a.Out, "built at: %s\n", info.Date)
	if info.BuiltBy != "" && info.BuiltBy != "unknown" {
		fmt.Fprintf(a.Out, "built by: %s\n", info.BuiltBy)
	}
	fmt.Fprintf(a.Out, "go version: %s\n", info.Go)

	return nil
}

// releaseChecker is replaced in tests.
var releaseChecker = func(pre bool) *upgrade.Checker {
	return upgrade.NewChecker(upgrade.RepoOwner, upgrade.RepoName, pre)
}

func (a *App) runVersionCheck(cmd *cobra.Command, opts *VersionOptions) error {
	res, err := releaseChecker(opts.Prerelease).Check(cmd.Context(), a.Build.Version)
	if err != nil {
		return err
	}
	if a.Structured() {
		return output.Record(a.Printer(), res)
	}
	if !res.Newer {
		fmt.Fprintf(a.Out, "circli %s is up to date (latest: %s)\n", res.Current, res.Latest)
		return nil
	}
	fmt.Fprintf(a.Out, "A new version of circli is available: %s -> %s\n", res.Current, res.Latest)
	if res.URL != "" {
		fmt.Fprintf(a.Out, "%s\n", res.URL)
	}
	return nil
}
