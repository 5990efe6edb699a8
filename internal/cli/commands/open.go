package commands

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/optivoo/crm/internal/guard"
)

// NewOpenCmd creates the open command. It evaluates a web route against the
// current session and prints whether it would render or redirect.
func NewOpenCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Check where a web page would take you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDeps(cmd, opts)
			if err != nil {
				return err
			}
			return runOpen(cmd, d, args[0])
		},
	}
}

func runOpen(cmd *cobra.Command, d *deps, path string) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	m, unsubscribe := d.newManager()
	defer unsubscribe()
	m.Initialize(cmd.Context())

	intent := guard.DefaultTable().Intent(path)
	decision := guard.Decide(intent, m.Snapshot(), m.Paths())

	if decision.Render() {
		fmt.Fprintf(d.out, "%s (%s): render\n", intent.Path, intent.Access)
		return nil
	}
	if decision.Kind == guard.Loading {
		fmt.Fprintf(d.out, "%s (%s): loading\n", intent.Path, intent.Access)
		return nil
	}

	target := decision.Redirect
	if decision.ReturnTo != "" {
		target += "?" + url.Values{"from": {decision.ReturnTo}}.Encode()
	}
	fmt.Fprintf(d.out, "%s (%s): redirect to %s [%s]\n", intent.Path, intent.Access, target, decision.Kind)
	return nil
}
