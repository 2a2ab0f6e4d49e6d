package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
)

// ErrAborted is returned when the user leaves a prompt without answering.
var ErrAborted = errors.New("prompt aborted")

// PromptToken asks for an API token without echoing it.
func PromptToken() (string, error) {
	var token string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("CircleCI API token").
				Description("Create one at https://app.circleci.com/settings/user/tokens").
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("token is required")
					}
					return nil
				}).
				Value(&token),
		),
	).Run()
	if err != nil {
		return "", formError(err)
	}
	return token, nil
}

// Confirm asks a yes/no question. The default answer is no.
func Confirm(title, description string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).Run()
	if err != nil {
		return false, formError(err)
	}
	return ok, nil
}

// SelectOne asks the user to pick one of options, shown with their labels.
func SelectOne(title string, labels, values []string) (string, error) {
	opts := make([]huh.Option[string], len(values))
	for i, v := range values {
		opts[i] = huh.NewOption(labels[i], v)
	}
	var choice string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(opts...).
				Value(&choice),
		),
	).Run()
	if err != nil {
		return "", formError(err)
	}
	return choice, nil
}

func formError(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return fmt.Errorf("form error: %w", err)
}
