package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path, yaml string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
}

func TestHolderReloadAppliesAndNotifies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, "logLevel: info\npipeline:\n  workers: 2\n")

	loader := NewLoader(path, "dev")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader, path)
	applied := make(chan AppConfig, 1)
	h.RegisterListener(applied)

	writeConfig(t, path, "logLevel: debug\npipeline:\n  workers: 6\n")
	require.NoError(t, h.Reload(context.Background()))

	got := h.Get()
	assert.Equal(t, "debug", got.LogLevel)
	assert.Equal(t, 6, got.Workers)

	select {
	case next := <-applied:
		assert.Equal(t, 6, next.Workers)
	default:
		t.Fatal("listener was not notified of the reload")
	}
}

func TestHolderReloadKeepsOldConfigOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, "pipeline:\n  workers: 2\n")

	loader := NewLoader(path, "dev")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader, path)

	writeConfig(t, path, "pipeline: [not a mapping\n")
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, 2, h.Get().Workers)
}
