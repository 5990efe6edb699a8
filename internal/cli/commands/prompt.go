package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/optivoo/crm/internal/onboarding"
)

// ErrNonInteractive is returned when a prompt is needed but stdin is not a terminal
var ErrNonInteractive = errors.New("input required in non-interactive mode")

// Prompter asks the user for input
type Prompter interface {
	Input(label, defaultValue string, validate func(string) error) (string, error)
	Password(label string) (string, error)
	Select(label string, options []onboarding.Option, current string) (string, error)
}

type terminalPrompter struct{}

func newTerminalPrompter() Prompter {
	return terminalPrompter{}
}

func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func (terminalPrompter) Input(label, defaultValue string, validate func(string) error) (string, error) {
	if !interactive() {
		return "", fmt.Errorf("%s: %w", label, ErrNonInteractive)
	}
	prompt := promptui.Prompt{
		Label:    label,
		Default:  defaultValue,
		Validate: promptui.ValidateFunc(validate),
	}
	return prompt.Run()
}

func (terminalPrompter) Password(label string) (string, error) {
	if !interactive() {
		return "", fmt.Errorf("%s: %w", label, ErrNonInteractive)
	}
	fmt.Fprintf(os.Stderr, "%s: ", label)
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

func (terminalPrompter) Select(label string, options []onboarding.Option, current string) (string, error) {
	if !interactive() {
		return "", fmt.Errorf("%s: %w", label, ErrNonInteractive)
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Name | cyan }}",
		Inactive: "  {{ .Name }}",
		Selected: "{{ .Name | green }}",
		Details:  "{{ .Description | faint }}",
	}

	cursor := 0
	for i, o := range options {
		if o.ID == current {
			cursor = i
		}
	}

	prompt := promptui.Select{
		Label:     label,
		Items:     options,
		Templates: templates,
		Size:      10,
		CursorPos: cursor,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("selection cancelled: %w", err)
	}
	return options[index].ID, nil
}
