package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/optivoo/crm/internal/session"
)

// NewContactsCmd creates the contacts command
func NewContactsCmd(opts ...Option) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "contacts [query]",
		Short: "List your contacts, optionally filtered by name, phone, email or company",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDeps(cmd, opts)
			if err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return runContacts(cmd, d, query, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print contacts as JSON")

	return cmd
}

// signedIn restores the stored session and fails when there is none
func (d *deps) signedIn(ctx context.Context) (session.State, error) {
	m, unsubscribe := d.newManager()
	defer unsubscribe()

	m.Initialize(ctx)
	st := m.Snapshot()
	if !st.IsAuthenticated() {
		return st, ErrNotSignedIn
	}
	return st, nil
}

func runContacts(cmd *cobra.Command, d *deps, query string, asJSON bool) error {
	ctx := cmd.Context()
	st, err := d.signedIn(ctx)
	if err != nil {
		return err
	}

	contacts, err := d.apiClient.ListContacts(ctx, st.Token, query)
	if err != nil {
		return fmt.Errorf("failed to list contacts: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(d.out)
		enc.SetIndent("", "  ")
		return enc.Encode(contacts)
	}

	if len(contacts) == 0 {
		if query != "" {
			fmt.Fprintf(d.out, "No contacts match %q.\n", query)
		} else {
			fmt.Fprintln(d.out, "No contacts yet.")
		}
		return nil
	}

	w := tabwriter.NewWriter(d.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPHONE\tCOMPANY\tTAG\tUNREAD")
	fmt.Fprintln(w, "────\t─────\t───────\t───\t──────")
	for _, c := range contacts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", c.Name, c.Phone, c.Company, c.Tag, c.UnreadCount)
	}
	return w.Flush()
}

// NewSentimentCmd creates the sentiment command
func NewSentimentCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "sentiment <text>",
		Short: "Score the sentiment of a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDeps(cmd, opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := d.signedIn(ctx)
			if err != nil {
				return err
			}

			a, err := d.apiClient.AnalyzeSentiment(ctx, st.Token, strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("failed to analyze sentiment: %w", err)
			}
			fmt.Fprintf(d.out, "%s (confidence %.0f%%)\n", a.Sentiment, a.Confidence*100)
			return nil
		},
	}
}
