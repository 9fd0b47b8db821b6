package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv(EnvAPIKey, "secret")
	t.Setenv(EnvLibonnx, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, BackendONNX, cfg.Backend)
	assert.Equal(t, "./hf_cache", cfg.ModelDir)
	assert.Equal(t, []string{"normal", "nsfw"}, cfg.Labels)
	assert.Equal(t, 5, cfg.TopK)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
port = "9090"
backend = "ONNX"
top_k = 1
sessions = 4
labels = ["safe", "unsafe"]
libonnx = "/from/file.so"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv(EnvAPIKey, "k")
	t.Setenv(EnvLibonnx, "/from/env.so")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())
	assert.Equal(t, BackendONNX, cfg.Backend)
	assert.Equal(t, 1, cfg.TopK)
	assert.Equal(t, 4, cfg.Sessions)
	assert.Equal(t, []string{"safe", "unsafe"}, cfg.Labels)
	assert.Equal(t, "/from/env.so", cfg.Libonnx)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = ["), 0o644))
	t.Setenv(EnvAPIKey, "k")

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Default()
	base.APIKey = "k"
	require.NoError(t, base.Validate())

	cases := map[string]func(c *Config){
		"unknown backend": func(c *Config) { c.Backend = "tensorflow" },
		"zero top_k":      func(c *Config) { c.TopK = 0 },
		"zero sessions":   func(c *Config) { c.Sessions = 0 },
		"no labels":       func(c *Config) { c.Labels = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
