// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gscientist/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "openai-api-key", "  sk-abc123  \n")
				writeFile(t, dir, "openai-base-url", "https://gateway.example/v1\n")
				return dir
			},
			want: map[string]string{
				"openai-api-key":  "sk-abc123",
				"openai-base-url": "https://gateway.example/v1",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "openai-api-key", "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{
				"openai-api-key": "valid-key",
			},
		},
		{
			name: "skips dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, "openai-api-key", "sk-real")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				"openai-api-key": "sk-real",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), zerolog.Nop())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root can read any file")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "value123", got["good-key"])
	assert.NotContains(t, got, "bad-key")
}

func TestLookupPrefersEnvironment(t *testing.T) {
	secrets := map[string]string{OpenAIAPIKey: "from-file"}

	t.Setenv("OPENAI_API_KEY", "")
	assert.Equal(t, "from-file", Lookup(secrets, OpenAIAPIKey))

	t.Setenv("OPENAI_API_KEY", "from-env")
	assert.Equal(t, "from-env", Lookup(secrets, OpenAIAPIKey))

	assert.Empty(t, Lookup(secrets, "unknown"))
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("GSCIENTIST_TEST_VALUE=hello\n"), 0o644))
	t.Setenv("GSCIENTIST_TEST_VALUE", "")
	os.Unsetenv("GSCIENTIST_TEST_VALUE")

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "hello", os.Getenv("GSCIENTIST_TEST_VALUE"))

	assert.NoError(t, LoadEnv(filepath.Join(dir, "missing.env")))
}

func TestApply(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")

	cfg := types.Config{Agent: types.AgentConfig{BaseURL: "https://configured"}}
	Apply(map[string]string{OpenAIAPIKey: "sk-file", OpenAIBaseURL: "https://file"}, &cfg)

	assert.Equal(t, "sk-file", cfg.Agent.APIKey)
	assert.Equal(t, "https://configured", cfg.Agent.BaseURL, "config wins over secrets")
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
