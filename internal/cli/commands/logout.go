package commands

import (
	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDeps(cmd, opts)
			if err != nil {
				return err
			}

			m, unsubscribe := d.newManager()
			defer unsubscribe()
			m.Logout()
			return nil
		},
	}
}
