package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obplab/swingmech/internal/config"
)

func TestRunVersion(t *testing.T) {
	assert.Equal(t, 0, run([]string{"version"}))
	assert.Equal(t, 0, run([]string{"--version"}))
}

func TestRunUsage(t *testing.T) {
	assert.Equal(t, 2, run(nil))
	assert.Equal(t, 2, run([]string{"frobnicate"}))
}

func TestRunComputeEmptyDataset(t *testing.T) {
	dir := t.TempDir()
	captures := filepath.Join(dir, "c3d")
	require.NoError(t, os.MkdirAll(captures, 0o755))
	t.Setenv("SWINGMECH_CAPTURE_DIR", captures)
	t.Setenv("SWINGMECH_DATA", dir)

	assert.Equal(t, 0, run([]string{"compute"}))

	// Header-only export for an empty dataset.
	_, err := os.Stat(filepath.Join(dir, "output.csv"))
	require.NoError(t, err)
}

func TestRunComputeMissingCaptureDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SWINGMECH_CAPTURE_DIR", filepath.Join(dir, "nope"))
	t.Setenv("SWINGMECH_DATA", dir)

	assert.Equal(t, 1, run([]string{"compute"}))
}

func TestRunEvaluateWithoutTarget(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SWINGMECH_DATA", dir)

	assert.Equal(t, 1, run([]string{"evaluate"}))
}

func TestRunBadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("::: not yaml"), 0o600))

	assert.Equal(t, 1, run([]string{"compute", "-config", path}))
}

func TestBuildCacheDefaultsToMemory(t *testing.T) {
	ch := buildCache(config.AppConfig{})
	require.NotNil(t, ch)

	ctx := context.Background()
	ch.Set(ctx, "angles:492_1", []byte("v"), time.Minute)
	got, ok := ch.Get(ctx, "angles:492_1")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestBuildCacheFallsBackWhenRedisUnreachable(t *testing.T) {
	ch := buildCache(config.AppConfig{RedisAddr: "127.0.0.1:1"})
	require.NotNil(t, ch)

	ctx := context.Background()
	ch.Set(ctx, "k", []byte("v"), time.Minute)
	_, ok := ch.Get(ctx, "k")
	assert.True(t, ok)
}
