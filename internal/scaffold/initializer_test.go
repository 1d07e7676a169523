package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitche/storage-timeline/internal/config"
)

func TestInitialize(t *testing.T) {
	t.Run("fresh initialization", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, CheckExisting(dir))
		require.NoError(t, Initialize(dir, false))

		t.Setenv("STL_MODULE", "")
		t.Setenv("STL_STORAGE_URI", "")
		t.Setenv("REDIS_URL", "")
		cfg, err := config.Load(filepath.Join(dir, "stl.yml"))
		require.NoError(t, err)
		assert.Equal(t, "storage_timeline.wasm", cfg.Module.Location)
		assert.Equal(t, config.SourceAuto, cfg.Data.Source)
	})

	t.Run("existing file is reported", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "stl.yml"), []byte("old content"), 0644))

		err := CheckExisting(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "project already initialized")
		assert.Contains(t, err.Error(), "stl init --force")
	})

	t.Run("force replaces existing file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "stl.yml")
		require.NoError(t, os.WriteFile(path, []byte("old content"), 0644))

		require.NoError(t, Initialize(dir, true))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(content), "old content")
		assert.Contains(t, string(content), `version: "1.0"`)
	})

	t.Run("missing directory", func(t *testing.T) {
		err := Initialize(filepath.Join(t.TempDir(), "absent"), false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to write")
	})
}

func TestValidateCreatedFiles(t *testing.T) {
	t.Run("invalid yaml", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "stl.yml"), []byte("version: [unterminated"), 0644))

		err := validateCreatedFiles(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is not valid YAML")
	})

	t.Run("invalid config", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "stl.yml"), []byte(`version: "0.1"`), 0644))

		err := validateCreatedFiles(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported version")
	})
}
