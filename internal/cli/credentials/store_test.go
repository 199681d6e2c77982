package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHasAPIKey(t *testing.T) {
	ctx := &Context{}
	assert.False(t, ctx.HasAPIKey())

	ctx.APIKey = "key"
	assert.True(t, ctx.HasAPIKey())
}

func TestGenerateContextName(t *testing.T) {
	tests := []struct {
		serverURL string
		expected  string
	}{
		{"http://localhost:8080", "localhost"},
		{"https://coredock.internal.example.com", "coredock-internal-example-com"},
		{"not a url", "default"},
		{"", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.serverURL, func(t *testing.T) {
			assert.Equal(t, tt.expected, GenerateContextName(tt.serverURL))
		})
	}
}

func TestStoreOperations(t *testing.T) {
	// Create temp directory for test
	tmpDir, err := os.MkdirTemp("", "coredockctl-test-*")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	// Set XDG_CONFIG_HOME to temp directory
	oldXDG := os.Getenv("XDG_CONFIG_HOME")
	_ = os.Setenv("XDG_CONFIG_HOME", tmpDir)
	defer func() { _ = os.Setenv("XDG_CONFIG_HOME", oldXDG) }()

	// Create store
	store, err := NewStore()
	require.NoError(t, err)
	assert.NotNil(t, store)

	// Verify config file location
	expectedPath := filepath.Join(tmpDir, DefaultConfigDir, ConfigFileName)
	assert.Equal(t, expectedPath, store.ConfigPath())

	// Test empty state
	_, err = store.GetCurrentContext()
	assert.ErrorIs(t, err, ErrNoCurrentContext)
	assert.Empty(t, store.ListContexts())

	// Add a context; SetContext makes it current
	ctx1 := &Context{
		ServerURL: "http://localhost:8080",
		APIKey:    "key1",
	}
	err = store.SetContext("default", ctx1)
	require.NoError(t, err)

	// Get current context
	current, err := store.GetCurrentContext()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", current.ServerURL)
	assert.Equal(t, "key1", current.APIKey)

	// Add another context
	ctx2 := &Context{
		ServerURL: "http://production:8080",
		APIKey:    "key2",
	}
	err = store.SetContext("production", ctx2)
	require.NoError(t, err)

	// List contexts
	contexts := store.ListContexts()
	assert.Len(t, contexts, 2)
	assert.Contains(t, contexts, "default")
	assert.Contains(t, contexts, "production")

	// Switch context
	err = store.UseContext("default")
	require.NoError(t, err)
	assert.Equal(t, "default", store.GetCurrentContextName())

	// Rename context
	err = store.RenameContext("default", "local")
	require.NoError(t, err)
	assert.Equal(t, "local", store.GetCurrentContextName())

	// Delete context
	err = store.DeleteContext("local")
	require.NoError(t, err)
	assert.Empty(t, store.GetCurrentContextName())

	// Try to get non-existent context
	_, err = store.GetContext("nonexistent")
	assert.ErrorIs(t, err, ErrContextNotFound)

	// Try to use non-existent context
	err = store.UseContext("nonexistent")
	assert.ErrorIs(t, err, ErrContextNotFound)
}

func TestStoreClearCurrentContext(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "coredockctl-test-*")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	oldXDG := os.Getenv("XDG_CONFIG_HOME")
	_ = os.Setenv("XDG_CONFIG_HOME", tmpDir)
	defer func() { _ = os.Setenv("XDG_CONFIG_HOME", oldXDG) }()

	store, err := NewStore()
	require.NoError(t, err)

	// Create a context with an API key
	ctx := &Context{
		ServerURL: "http://localhost:8080",
		APIKey:    "key",
	}
	err = store.SetContext("default", ctx)
	require.NoError(t, err)

	// Clear context
	err = store.ClearCurrentContext()
	require.NoError(t, err)

	// Verify key cleared but server remains
	current, err := store.GetCurrentContext()
	require.NoError(t, err)
	assert.Empty(t, current.APIKey)
	assert.Equal(t, "http://localhost:8080", current.ServerURL)
}

func TestStorePreferences(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "coredockctl-test-*")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	oldXDG := os.Getenv("XDG_CONFIG_HOME")
	_ = os.Setenv("XDG_CONFIG_HOME", tmpDir)
	defer func() { _ = os.Setenv("XDG_CONFIG_HOME", oldXDG) }()

	store, err := NewStore()
	require.NoError(t, err)

	// Get default preferences
	prefs := store.GetPreferences()
	assert.Empty(t, prefs.DefaultOutput)
	assert.Empty(t, prefs.Color)

	// Set preferences
	newPrefs := Preferences{
		DefaultOutput: "json",
		Color:         "auto",
		Editor:        "vim",
	}
	err = store.SetPreferences(newPrefs)
	require.NoError(t, err)

	// Verify preferences persisted
	prefs = store.GetPreferences()
	assert.Equal(t, "json", prefs.DefaultOutput)
	assert.Equal(t, "auto", prefs.Color)
	assert.Equal(t, "vim", prefs.Editor)
}
