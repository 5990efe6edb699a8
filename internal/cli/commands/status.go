package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/optivoo/crm/internal/session"
)

// Status is the machine-readable output of 'optivoo status --json'
type Status struct {
	Authenticated bool              `json:"authenticated"`
	User          *session.Identity `json:"user,omitempty"`
}

// NewStatusCmd creates the status command
func NewStatusCmd(opts ...Option) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show who is signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDeps(cmd, opts)
			if err != nil {
				return err
			}
			return runStatus(cmd, d, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, d *deps, asJSON bool) error {
	m, unsubscribe := d.newManager()
	defer unsubscribe()

	m.Initialize(cmd.Context())
	st := m.Snapshot()

	if asJSON {
		enc := json.NewEncoder(d.out)
		enc.SetIndent("", "  ")
		return enc.Encode(Status{Authenticated: st.IsAuthenticated(), User: st.Identity})
	}

	if !st.IsAuthenticated() {
		fmt.Fprintln(d.out, "Not signed in. Run 'optivoo login' or 'optivoo signup'.")
		return nil
	}

	onboardingState := "complete"
	if st.NeedsOnboarding() {
		onboardingState = "pending (run 'optivoo onboarding')"
	}
	fmt.Fprintf(d.out, "Signed in as %s (%s)\n", st.Identity.DisplayName, st.Identity.Email)
	fmt.Fprintf(d.out, "  Onboarding: %s\n", onboardingState)
	return nil
}
