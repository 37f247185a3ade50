package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VIBE_TASK_MANAGER_READ_DIR", filepath.Join(dir, "read"))
	t.Setenv("VIBE_CODER_OUTPUT_DIR", filepath.Join(dir, "write"))

	cfg, err := Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, PolicyHybridOptimal, cfg.Scheduler)
	assert.Equal(t, 3, cfg.RDD.MaxDepth)
	assert.Equal(t, SecurityModeStrict, cfg.Storage.SecurityMode)
}

func TestLoad_OverlayWins(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VIBE_TASK_MANAGER_READ_DIR", filepath.Join(dir, "read"))
	t.Setenv("VIBE_CODER_OUTPUT_DIR", filepath.Join(dir, "write"))

	overlay := []byte(`
scheduler: shortest_job
rdd:
  max_depth: 5
storage:
  compression_enabled: true
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "core.yaml"), overlay, 0o644))

	cfg, err := Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, PolicyShortestJob, cfg.Scheduler)
	assert.Equal(t, 5, cfg.RDD.MaxDepth)
	assert.True(t, cfg.Storage.CompressionEnabled)
}

func TestLoad_EnvOverridesOverlay(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VIBE_TASK_MANAGER_READ_DIR", "/env/read")
	t.Setenv("VIBE_CODER_OUTPUT_DIR", "/env/write")
	t.Setenv("VIBE_TASK_MANAGER_SECURITY_MODE", "permissive")
	t.Setenv("VIBE_SECURITY_PERFORMANCE_THRESHOLD", "500")

	cfg, err := Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "/env/read", cfg.Storage.ReadRoot)
	assert.Equal(t, "/env/write", cfg.Storage.WriteRoot)
	assert.Equal(t, SecurityModePermissive, cfg.Storage.SecurityMode)
	assert.Equal(t, 500, cfg.Performance.RegressionThresholdMS)
}

func TestLoad_MissingRoots(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(context.Background(), dir)
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VIBE_TASK_MANAGER_READ_DIR", "/env/read")
	t.Setenv("VIBE_CODER_OUTPUT_DIR", "/env/write")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "core.yaml"), []byte("scheduler: [oops"), 0o644))

	_, err := Load(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err.(*LoadError).Err, ErrInvalidYAML)
}
