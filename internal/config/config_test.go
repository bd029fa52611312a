package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(dir), cfg)
	assert.Equal(t, time.Second, cfg.AutosaveDelay())
	assert.Equal(t, 5*time.Second, cfg.GeocoderTimeout())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"folders": ["/photos/1990s"],
		"recursive": true,
		"codec": "exiftool",
		"geocoder": {"baseURL": "http://localhost:8080", "userAgent": "test", "limit": 3, "timeoutSeconds": 2}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/photos/1990s"}, cfg.Folders)
	assert.True(t, cfg.Recursive)
	assert.Equal(t, "exiftool", cfg.Codec)
	assert.Equal(t, 3, cfg.Geocoder.Limit)
	assert.Equal(t, 1000, cfg.AutosaveDelayMs)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "history.db"), cfg.HistoryPath)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `{"codec": "exiftool", "scanWorkers": 2}`)
	t.Setenv("PHOTOMETA_CODEC", "native")
	t.Setenv("PHOTOMETA_SCAN_WORKERS", "8")
	t.Setenv("PHOTOMETA_RECURSIVE", "true")
	t.Setenv("PHOTOMETA_FOLDERS", "/a"+string(os.PathListSeparator)+"/b")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "native", cfg.Codec)
	assert.Equal(t, 8, cfg.ScanWorkers)
	assert.True(t, cfg.Recursive)
	assert.Equal(t, []string{"/a", "/b"}, cfg.Folders)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("PHOTOMETA_SCAN_WORKERS", "many")

	_, err := Load(filepath.Join(t.TempDir(), "config.json"))
	assert.ErrorContains(t, err, "PHOTOMETA_SCAN_WORKERS")
}

func TestLoad_InvalidJSON(t *testing.T) {
	_, err := Load(writeConfig(t, `{"codec": `))
	assert.ErrorContains(t, err, "failed to parse config JSON")
}

func TestLoad_ValidationFailure(t *testing.T) {
	_, err := Load(writeConfig(t, `{"codec": "magick", "scanWorkers": 0}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Codec must satisfy oneof=native exiftool")
	assert.Contains(t, err.Error(), "ScanWorkers must satisfy min=1")
}

func TestLoad_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg, err := Load(writeConfig(t, `{"folders": ["~/Pictures"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(home, "Pictures")}, cfg.Folders)
}

func TestLoadDotEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(file, []byte("PHOTOMETA_LOG_LEVEL=debug\n"), 0o644))
	t.Setenv("PHOTOMETA_LOG_LEVEL", "")
	os.Unsetenv("PHOTOMETA_LOG_LEVEL")

	require.NoError(t, loadDotEnv(file))
	assert.Equal(t, "debug", os.Getenv("PHOTOMETA_LOG_LEVEL"))

	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
