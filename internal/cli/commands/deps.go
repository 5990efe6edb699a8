package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/optivoo/crm/internal/cli/userconfig"
	"github.com/optivoo/crm/internal/client"
	"github.com/optivoo/crm/internal/crm"
	"github.com/optivoo/crm/internal/logger"
	"github.com/optivoo/crm/internal/onboarding"
	"github.com/optivoo/crm/internal/session"
	"github.com/optivoo/crm/internal/slot"
)

const (
	DefaultAPIURL = "http://localhost:8080"

	TokenStoreKeyring = "keyring"
	TokenStoreFile    = "file"

	// Persistent flag names, registered on the root command
	FlagAPIURL     = "api-url"
	FlagTokenStore = "token-store"
)

// Backend is what the CLI needs from the API
type Backend interface {
	session.Authenticator
	session.Registrar
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, resetToken, password string) error
	GetOnboarding(ctx context.Context, token string) (onboarding.Profile, error)
	SaveOnboarding(ctx context.Context, token string, p onboarding.Profile) (session.Identity, error)
	ListContacts(ctx context.Context, token, query string) ([]crm.Contact, error)
	AnalyzeSentiment(ctx context.Context, token, text string) (crm.Analysis, error)
}

// deps are the collaborators a command runs with. Production values are
// resolved from flags, the environment and the user config; tests inject them.
type deps struct {
	apiClient  Backend
	apiURL     string
	tokenStore slot.Slot
	prompter   Prompter
	settings   *userconfig.File
	out        io.Writer
	log        zerolog.Logger
}

// Option overrides one collaborator
type Option func(*deps)

// WithAPIClient replaces the HTTP API client
func WithAPIClient(b Backend) Option {
	return func(d *deps) { d.apiClient = b }
}

// WithTokenStore replaces the credential slot
func WithTokenStore(s slot.Slot) Option {
	return func(d *deps) { d.tokenStore = s }
}

// WithPrompter replaces the interactive prompts
func WithPrompter(p Prompter) Option {
	return func(d *deps) { d.prompter = p }
}

// WithOutput redirects command output
func WithOutput(w io.Writer) Option {
	return func(d *deps) { d.out = w }
}

// WithLogger sets the logger handed to the session manager
func WithLogger(log zerolog.Logger) Option {
	return func(d *deps) { d.log = log }
}

func resolveDeps(cmd *cobra.Command, opts []Option) (*deps, error) {
	var err error
	d := &deps{log: logger.GetLogger()}
	for _, opt := range opts {
		opt(d)
	}
	if d.out == nil {
		d.out = cmd.OutOrStdout()
	}
	if d.prompter == nil {
		d.prompter = newTerminalPrompter()
	}

	if d.settings, err = userconfig.Default(); err != nil {
		return nil, err
	}
	ucfg, err := d.settings.Load()
	if err != nil {
		return nil, err
	}

	if d.apiClient == nil {
		d.apiURL = resolveAPIURL(cmd, ucfg)
		d.apiClient = client.New(d.apiURL)
	}

	if d.tokenStore == nil {
		d.tokenStore, err = resolveTokenStore(cmd, ucfg)
		if err != nil {
			return nil, err
		}
	}

	return d, nil
}

// resolveAPIURL: --api-url, then OPTIVOO_API_URL, then the user config
func resolveAPIURL(cmd *cobra.Command, ucfg *userconfig.UserConfig) string {
	if f := cmd.Flags().Lookup(FlagAPIURL); f != nil && f.Changed {
		return f.Value.String()
	}
	if v := os.Getenv("OPTIVOO_API_URL"); v != "" {
		return v
	}
	if ucfg.APIURL != "" {
		return ucfg.APIURL
	}
	return DefaultAPIURL
}

func resolveTokenStore(cmd *cobra.Command, ucfg *userconfig.UserConfig) (slot.Slot, error) {
	kind := ucfg.TokenStore
	if f := cmd.Flags().Lookup(FlagTokenStore); f != nil && (f.Changed || kind == "") {
		kind = f.Value.String()
	}

	switch strings.ToLower(kind) {
	case "", TokenStoreKeyring:
		return slot.NewKeyring(slot.DefaultService, slot.DefaultKey), nil
	case TokenStoreFile:
		path, err := slot.DefaultFilePath()
		if err != nil {
			return nil, err
		}
		return slot.NewFile(path), nil
	default:
		return nil, fmt.Errorf("invalid token store %q, must be one of: keyring, file", kind)
	}
}

// newManager builds a session manager whose notices are printed to out
func (d *deps) newManager() (*session.Manager, func()) {
	m := session.NewManager(d.apiClient, d.tokenStore, session.WithLogger(d.log))
	unsubscribe := m.Subscribe(func(ev session.Event) {
		if ev.Notice != nil {
			printNotice(d.out, *ev.Notice)
		}
	})
	return m, unsubscribe
}

func printNotice(w io.Writer, n session.Notice) {
	switch n.Level {
	case session.NoticeSuccess:
		fmt.Fprintf(w, "✓ %s\n", n.Message)
	case session.NoticeError:
		fmt.Fprintf(w, "✗ %s\n", n.Message)
	default:
		fmt.Fprintf(w, "%s\n", n.Message)
	}
}

// rememberAPIURL stores the API a sign-in succeeded against
func (d *deps) rememberAPIURL() {
	if d.apiURL == "" {
		return
	}
	err := d.settings.Update(func(c *userconfig.UserConfig) { c.APIURL = d.apiURL })
	if err != nil {
		d.log.Warn().Err(err).Msg("Failed to save user config")
	}
}

// envOr returns value, or the named environment variable when value is empty
func envOr(value, key string) string {
	if value != "" {
		return value
	}
	return os.Getenv(key)
}
