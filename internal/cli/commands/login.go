package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewLoginCmd creates the login command
func NewLoginCmd(opts ...Option) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to Optivoo CRM",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDeps(cmd, opts)
			if err != nil {
				return err
			}
			return runLogin(cmd, d, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set OPTIVOO_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set OPTIVOO_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(cmd *cobra.Command, d *deps, email, password string) error {
	// Check for environment variables (useful for CI/CD)
	email = strings.TrimSpace(envOr(email, "OPTIVOO_EMAIL"))
	password = envOr(password, "OPTIVOO_PASSWORD")

	m, unsubscribe := d.newManager()
	defer unsubscribe()

	m.Initialize(cmd.Context())
	if st := m.Snapshot(); st.IsAuthenticated() {
		fmt.Fprintf(d.out, "Already signed in as %s (%s). Run 'optivoo logout' first.\n", st.Identity.DisplayName, st.Identity.Email)
		return nil
	}

	var err error
	if email == "" {
		if email, err = d.prompter.Input("Email", "", nil); err != nil {
			return fmt.Errorf("email is required (use --email flag or OPTIVOO_EMAIL env var): %w", err)
		}
	}
	if password == "" {
		if password, err = d.prompter.Password("Password"); err != nil {
			return fmt.Errorf("password is required (use --password flag or OPTIVOO_PASSWORD env var): %w", err)
		}
	}

	nav, err := m.Login(cmd.Context(), email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	d.rememberAPIURL()

	st := m.Snapshot()
	fmt.Fprintf(d.out, "  User: %s (%s)\n", st.Identity.DisplayName, st.Identity.Email)
	printNext(d, nav, m.Paths().OnboardingPrefix)
	return nil
}
