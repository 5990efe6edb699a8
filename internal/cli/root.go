package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/optivoo/crm/internal/cli/commands"
	"github.com/optivoo/crm/internal/logger"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the optivoo command tree. Options are passed to every
// subcommand; production runs pass none.
func NewRootCmd(opts ...commands.Option) *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "optivoo",
		Short: "Optivoo CRM - sign in and set up your business from the terminal",
		Long: `Optivoo CRM CLI - Manage your Optivoo CRM session.

Sign in or create an account, finish the business onboarding, and check
which pages of the web app your session can reach.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Logs go to stderr so they never mix with command output
			logger.InitWithWriter(os.Stderr, logLevel, "console")
		},
	}

	rootCmd.PersistentFlags().String(commands.FlagAPIURL, commands.DefaultAPIURL, "Optivoo API URL (or set OPTIVOO_API_URL)")
	rootCmd.PersistentFlags().String(commands.FlagTokenStore, commands.TokenStoreKeyring, "Where to keep the credential: keyring or file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "optivoo version %s\n", version)
		},
	})

	// Add all subcommands
	rootCmd.AddCommand(commands.NewLoginCmd(opts...))
	rootCmd.AddCommand(commands.NewSignupCmd(opts...))
	rootCmd.AddCommand(commands.NewLogoutCmd(opts...))
	rootCmd.AddCommand(commands.NewStatusCmd(opts...))
	rootCmd.AddCommand(commands.NewOnboardingCmd(opts...))
	rootCmd.AddCommand(commands.NewContactsCmd(opts...))
	rootCmd.AddCommand(commands.NewSentimentCmd(opts...))
	rootCmd.AddCommand(commands.NewOpenCmd(opts...))
	rootCmd.AddCommand(commands.NewForgotPasswordCmd(opts...))
	rootCmd.AddCommand(commands.NewResetPasswordCmd(opts...))

	return rootCmd
}

// Execute runs the root command; cancelling ctx aborts an in-flight request
func Execute(ctx context.Context) error {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
