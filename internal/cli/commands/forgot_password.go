package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewForgotPasswordCmd creates the forgot-password command
func NewForgotPasswordCmd(opts ...Option) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Send a password recovery link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDeps(cmd, opts)
			if err != nil {
				return err
			}

			email = strings.TrimSpace(envOr(email, "OPTIVOO_EMAIL"))
			if email == "" {
				if email, err = d.prompter.Input("Email", "", notBlank); err != nil {
					return fmt.Errorf("email is required (use --email flag or OPTIVOO_EMAIL env var): %w", err)
				}
			}

			msg, err := d.apiClient.ForgotPassword(cmd.Context(), email)
			if err != nil {
				return fmt.Errorf("failed to request recovery link: %w", err)
			}
			fmt.Fprintf(d.out, "✓ %s\n", msg)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set OPTIVOO_EMAIL)")

	return cmd
}
