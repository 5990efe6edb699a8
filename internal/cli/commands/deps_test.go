package commands

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optivoo/crm/internal/cli/userconfig"
	"github.com/optivoo/crm/internal/slot"
)

func newFlagCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().String(FlagAPIURL, DefaultAPIURL, "")
	cmd.Flags().String(FlagTokenStore, TokenStoreKeyring, "")
	return cmd
}

func TestResolveAPIURL(t *testing.T) {
	t.Setenv("OPTIVOO_API_URL", "")
	cmd := newFlagCmd()

	assert.Equal(t, DefaultAPIURL, resolveAPIURL(cmd, &userconfig.UserConfig{}))
	assert.Equal(t, "https://saved.test", resolveAPIURL(cmd, &userconfig.UserConfig{APIURL: "https://saved.test"}))

	t.Setenv("OPTIVOO_API_URL", "https://env.test")
	assert.Equal(t, "https://env.test", resolveAPIURL(cmd, &userconfig.UserConfig{APIURL: "https://saved.test"}))

	require.NoError(t, cmd.Flags().Set(FlagAPIURL, "https://flag.test"))
	assert.Equal(t, "https://flag.test", resolveAPIURL(cmd, &userconfig.UserConfig{APIURL: "https://saved.test"}))
}

func TestResolveTokenStore(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, err := resolveTokenStore(newFlagCmd(), &userconfig.UserConfig{})
	require.NoError(t, err)
	assert.IsType(t, &slot.Keyring{}, s)

	s, err = resolveTokenStore(newFlagCmd(), &userconfig.UserConfig{TokenStore: "file"})
	require.NoError(t, err)
	require.IsType(t, &slot.File{}, s)
	assert.Equal(t, filepath.Join(home, ".config", "optivoo", "credentials.json"), s.(*slot.File).Path())

	cmd := newFlagCmd()
	require.NoError(t, cmd.Flags().Set(FlagTokenStore, "keyring"))
	s, err = resolveTokenStore(cmd, &userconfig.UserConfig{TokenStore: "file"})
	require.NoError(t, err)
	assert.IsType(t, &slot.Keyring{}, s, "flag wins over user config")

	require.NoError(t, cmd.Flags().Set(FlagTokenStore, "vault"))
	_, err = resolveTokenStore(cmd, &userconfig.UserConfig{})
	assert.ErrorContains(t, err, `invalid token store "vault"`)
}
