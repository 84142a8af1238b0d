package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "storefront", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"serve", "migrate"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "command %s should exist", name)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	f := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, f)
	assert.Equal(t, "", f.DefValue)
}

func TestMigrateFlags(t *testing.T) {
	cmd := NewRootCommand()
	migrate, _, err := cmd.Find([]string{"migrate"})
	require.NoError(t, err)

	f := migrate.Flags().Lookup("skip-mongo")
	require.NotNil(t, f)
	assert.Equal(t, "false", f.DefValue)
}

func TestServe_MissingBackendConfig(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	t.Setenv("BACKEND_API_KEY", "")

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"serve"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKEND_URL")
}

func TestMigrate_SQLiteOutbox(t *testing.T) {
	t.Setenv("OUTBOX_DRIVER", "sqlite")
	t.Setenv("OUTBOX_DSN", ":memory:")

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"migrate", "--skip-mongo"})

	assert.NoError(t, cmd.Execute())
}

func TestSessionKey(t *testing.T) {
	key, err := sessionKey("configured")
	require.NoError(t, err)
	assert.Equal(t, []byte("configured"), key)

	random, err := sessionKey("")
	require.NoError(t, err)
	assert.Len(t, random, 32)
}
