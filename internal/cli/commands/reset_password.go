package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewResetPasswordCmd creates the reset-password command
func NewResetPasswordCmd(opts ...Option) *cobra.Command {
	var token, password string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Choose a new password with the token from the recovery e-mail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDeps(cmd, opts)
			if err != nil {
				return err
			}

			if token == "" {
				return fmt.Errorf("token is required (use --token flag)")
			}

			password = envOr(password, "OPTIVOO_PASSWORD")
			if password == "" {
				if password, err = d.prompter.Password("New password"); err != nil {
					return fmt.Errorf("password is required (use --password flag or OPTIVOO_PASSWORD env var): %w", err)
				}
				confirm, err := d.prompter.Password("Confirm password")
				if err != nil {
					return err
				}
				if confirm != password {
					return fmt.Errorf("passwords do not match")
				}
			}

			if err := d.apiClient.ResetPassword(cmd.Context(), token, password); err != nil {
				return fmt.Errorf("failed to reset password: %w", err)
			}
			fmt.Fprintln(d.out, "✓ Password updated. Run 'optivoo login' to sign in.")
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Reset token from the recovery e-mail")
	cmd.Flags().StringVar(&password, "password", "", "New password (or set OPTIVOO_PASSWORD, will prompt if not provided)")

	return cmd
}
