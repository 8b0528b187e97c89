package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Url      string `json:"url"`
	Password string `json:"password"`
	Limit    int    `json:"limit"`
}

func TestReadConfigLocalOverride(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")

	err := os.WriteFile(name, []byte(`{url: "https://example.com", limit: 5}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(
		filepath.Join(dir, "config.local.json5"),
		[]byte(`{limit: 10}`),
		0600,
	)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, "https://example.com", cfg.Url)
	require.Equal(t, 10, cfg.Limit)
}

func TestReadConfigExpandsEnv(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")

	t.Setenv("LOTSCOUT_TEST_PASSWORD", "hunter2")
	err := os.WriteFile(name, []byte(`{password: "${LOTSCOUT_TEST_PASSWORD}"}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, "hunter2", cfg.Password)
}

func TestReadConfigNotFound(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "missing.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
