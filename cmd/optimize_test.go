package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/penflow/penflow/internal/prefs"
	"github.com/penflow/penflow/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetOptimizeFlags() {
	optimizeMode = ""
	optimizeScope = ""
	optimizeParagraphs = ""
	optimizeDimensions = nil
}

func testConfig() *types.AppConfig {
	c := &types.AppConfig{}
	c.Optimize.Mode = "auto"
	c.Optimize.Scope = "full"
	c.Optimize.Dimensions = []string{"clarity"}
	return c
}

func newMemPrefs(t *testing.T) *prefs.Store {
	t.Helper()
	store, err := prefs.NewStore(afero.NewMemMapFs(), "prefs.json", "json")
	require.NoError(t, err)
	return store
}

func TestResolveSettingsDefaults(t *testing.T) {
	resetOptimizeFlags()
	store := newMemPrefs(t)

	mode, scope, dims := resolveSettings(store, "doc", testConfig())
	assert.Equal(t, "auto", mode)
	assert.Equal(t, "full", scope)
	assert.Equal(t, []string{"clarity"}, dims)
}

func TestResolveSettingsPrefsOverrideDefaults(t *testing.T) {
	resetOptimizeFlags()
	store := newMemPrefs(t)
	require.NoError(t, store.Set("doc", prefs.DocumentPrefs{
		Mode:       "review",
		Dimensions: []string{"pacing", "tone"},
	}))

	mode, scope, dims := resolveSettings(store, "doc", testConfig())
	assert.Equal(t, "review", mode)
	assert.Equal(t, "full", scope, "prefs without scope keep the default")
	assert.Equal(t, []string{"pacing", "tone"}, dims)
}

func TestResolveSettingsFlagsWinOverPrefs(t *testing.T) {
	resetOptimizeFlags()
	store := newMemPrefs(t)
	require.NoError(t, store.Set("doc", prefs.DocumentPrefs{Mode: "review"}))

	optimizeMode = "plan"
	optimizeParagraphs = "1-3"
	defer resetOptimizeFlags()

	mode, scope, _ := resolveSettings(store, "doc", testConfig())
	assert.Equal(t, "plan", mode)
	assert.Equal(t, "selected", scope, "a paragraph selection implies selected scope")
}

func TestFileHostWriteThrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chapter.md")
	require.NoError(t, os.WriteFile(path, []byte("one\n\ntwo"), 0644))

	host, err := newFileHost(path)
	require.NoError(t, err)
	assert.Equal(t, "one\n\ntwo", host.Content())

	host.SetContent("one\n\nthree")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\n\nthree", string(data))

	// The next reload is our own write and must be suppressed.
	assert.False(t, host.reload())
}

func TestFileHostReloadExternalEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chapter.md")
	require.NoError(t, os.WriteFile(path, []byte("before"), 0644))

	host, err := newFileHost(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("after"), 0644))
	assert.True(t, host.reload())
	assert.Equal(t, "after", host.Content())
}

func TestDocumentKeyIsAbsolute(t *testing.T) {
	key := documentKey("chapter.md")
	assert.True(t, filepath.IsAbs(key))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short", 10))
	assert.Equal(t, "héllo wörl…", snippet("héllo wörld and more", 10))
}
