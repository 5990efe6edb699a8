package guard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()

	tests := map[string]Access{
		"/":                       Public,
		"/login":                  PublicOnly,
		"/login/":                 PublicOnly,
		"/signup":                 PublicOnly,
		"/forgot-password":        PublicOnly,
		"/reset-password":         PublicOnly,
		"/onboarding":             RequireAuth,
		"/onboarding/sector":      RequireAuth,
		"/onboarding/support":     RequireAuth,
		"/dashboard":              RequireAuth,
		"/dashboard/contacts":     RequireAuth,
		"/dashboard/ai-assistant": RequireAuth,
		"/dashboardx":             Public,
		"/logout":                 Public,
		"/does-not-exist":         Public,
	}

	for path, want := range tests {
		assert.Equal(t, want, table.Lookup(path), path)
	}

	assert.Equal(t, Intent{Path: "/dashboard", Access: RequireAuth}, table.Intent("/dashboard"))
}

func TestLoadTable_LongestPrefixWins(t *testing.T) {
	table, err := LoadTable(strings.NewReader(`
routes:
  - pattern: /app/*
    access: require-auth
  - pattern: /app/public/*
    access: public
`))
	require.NoError(t, err)

	assert.Equal(t, RequireAuth, table.Lookup("/app/settings"))
	assert.Equal(t, Public, table.Lookup("/app/public/terms"))
}

func TestLoadTable_Errors(t *testing.T) {
	tests := map[string]string{
		"unknown access": "routes:\n  - pattern: /x\n    access: admins\n",
		"relative":       "routes:\n  - pattern: x\n    access: public\n",
		"duplicate":      "routes:\n  - pattern: /x\n    access: public\n  - pattern: /x\n    access: public-only\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadTable(strings.NewReader(doc))
			require.Error(t, err)
		})
	}
}
