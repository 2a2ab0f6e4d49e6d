package app

import (
	"context"
	"fmt"
	"io"

	"github.com/chazuruo/circli/internal/circleci"
	"github.com/chazuruo/circli/internal/config"
)

// WhoamiOutput contains the information displayed by the whoami command.
type WhoamiOutput struct {
	ConfigPath  string        `json:"config_path" yaml:"config_path"`
	Host        string        `json:"host" yaml:"host"`
	Token       string        `json:"token" yaml:"token"`
	TokenSource string        `json:"token_source" yaml:"token_source"`
	User        circleci.User `json:"user" yaml:"user"`
}

// Whoami asks the API who the configured token belongs to and reports where
// the token came from. The token itself is masked.
func Whoami(ctx context.Context, svc *circleci.Service, cfg *config.Config, configPath string) (*WhoamiOutput, error) {
	user, err := svc.Users.Me(ctx).Wait()
	if err != nil {
		return nil, err
	}
	return &WhoamiOutput{
		ConfigPath:  configPath,
		Host:        cfg.Host,
		Token:       config.MaskedToken(cfg.APIToken),
		TokenSource: cfg.TokenSource,
		User:        user,
	}, nil
}

// PrintWhoami prints whoami information in plain text format.
func PrintWhoami(w io.Writer, out *WhoamiOutput) {
	fmt.Fprintf(w, "User: %s (%s)\n", out.User.Login, out.User.Name)
	fmt.Fprintf(w, "ID: %s\n", out.User.ID)
	fmt.Fprintf(w, "Host: %s\n", out.Host)
	fmt.Fprintf(w, "Token: %s (from %s)\n", out.Token, out.TokenSource)
	if out.ConfigPath != "" {
		fmt.Fprintf(w, "Config: %s\n", out.ConfigPath)
	}
}
