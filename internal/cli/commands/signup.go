package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/optivoo/crm/internal/guard"
	"github.com/optivoo/crm/internal/session"
)

// NewSignupCmd creates the signup command
func NewSignupCmd(opts ...Option) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an Optivoo CRM account",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDeps(cmd, opts)
			if err != nil {
				return err
			}
			return runSignup(cmd, d, name, email, password)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Your name")
	cmd.Flags().StringVar(&email, "email", "", "Email address (or set OPTIVOO_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set OPTIVOO_PASSWORD, will prompt if not provided)")

	return cmd
}

func runSignup(cmd *cobra.Command, d *deps, name, email, password string) error {
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
	if name == "" {
		if name, err = d.prompter.Input("Name", "", notBlank); err != nil {
			return fmt.Errorf("name is required (use --name flag): %w", err)
		}
	}
	if email == "" {
		if email, err = d.prompter.Input("Email", "", notBlank); err != nil {
			return fmt.Errorf("email is required (use --email flag or OPTIVOO_EMAIL env var): %w", err)
		}
	}

	// A password passed non-interactively is its own confirmation
	confirm := password
	if password == "" {
		if password, err = d.prompter.Password("Password"); err != nil {
			return fmt.Errorf("password is required (use --password flag or OPTIVOO_PASSWORD env var): %w", err)
		}
		if confirm, err = d.prompter.Password("Confirm password"); err != nil {
			return err
		}
	}

	nav, err := m.Register(cmd.Context(), session.Registration{
		Name:     strings.TrimSpace(name),
		Email:    email,
		Password: password,
		Confirm:  confirm,
	})
	if err != nil {
		return fmt.Errorf("signup failed: %w", err)
	}
	d.rememberAPIURL()

	printNext(d, nav, m.Paths().OnboardingPrefix)
	return nil
}

func notBlank(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("value is required")
	}
	return nil
}

// printNext tells the user which command matches the navigation target
func printNext(d *deps, nav, onboardingPrefix string) {
	if guard.UnderPrefix(nav, onboardingPrefix) {
		fmt.Fprintln(d.out, "Next: finish setting up your business with 'optivoo onboarding'")
	}
}
