package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	t.Parallel()

	paths := [][]string{
		{"serve"},
		{"migrate"},
		{"token", "status"},
		{"token", "validate"},
		{"token", "refresh"},
		{"token", "code"},
		{"token", "authorize"},
		{"token", "logout"},
		{"sync", "wallet"},
		{"sync", "orders"},
		{"remote", "credentials"},
		{"remote", "refresh"},
		{"remote", "budget"},
		{"remote", "sync", "orders"},
		{"remote", "sync", "wallet"},
		{"remote", "jobs", "list"},
		{"remote", "jobs", "history"},
		{"version"},
	}
	for _, p := range paths {
		c, rest, err := Root().Find(p)
		require.NoError(t, err, p)
		assert.Empty(t, rest, p)
		assert.Equal(t, p[len(p)-1], c.Name(), p)
	}
}

func TestPersistentFlags(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"config", "env-file", "server", "output"} {
		assert.NotNil(t, Root().PersistentFlags().Lookup(name), name)
	}
}
