// Copyright fmforge, 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmforge/fmforge/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  Secrets
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, AnthropicAPIKey, "  sk-ant-abc123  \n")
				writeFile(t, dir, OllamaHost, "http://gpu-box:11434\n")
				return dir
			},
			want: Secrets{
				AnthropicAPIKey: "sk-ant-abc123",
				OllamaHost:      "http://gpu-box:11434",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: Secrets{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, AnthropicAPIKey, "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: Secrets{
				AnthropicAPIKey: "valid-key",
			},
		},
		{
			name: "skips dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, OllamaHost, "http://localhost:11434")
				return dir
			},
			want: Secrets{
				OllamaHost: "http://localhost:11434",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, AnthropicAPIKey, "ak_123")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: Secrets{
				AnthropicAPIKey: "ak_123",
			},
		},
		{
			name: "returns empty map for empty directory",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
			want: Secrets{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			got, err := Load(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	// Create a file then remove read permission.
	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir)
	require.NoError(t, err)
	// The good file should still be returned; the bad file is skipped with a warning.
	assert.Equal(t, "value123", got["good-key"])
	_, hasBad := got["bad-key"]
	assert.False(t, hasBad, "unreadable file should not appear in result")
}

func TestGet(t *testing.T) {
	s := Secrets{AnthropicAPIKey: "from-secret"}

	assert.Equal(t, "from-flag", s.Get(AnthropicAPIKey, "from-flag"),
		"non-empty fallback wins")
	assert.Equal(t, "from-secret", s.Get(AnthropicAPIKey, ""))
	assert.Equal(t, "", s.Get("missing-key", ""))
}

func TestApply(t *testing.T) {
	def := types.DefaultConfig().Generator

	t.Run("fills empty api key", func(t *testing.T) {
		gen := def
		Secrets{AnthropicAPIKey: "sk-ant-1"}.Apply(&gen)
		assert.Equal(t, "sk-ant-1", gen.APIKey)
	})

	t.Run("keeps configured api key", func(t *testing.T) {
		gen := def
		gen.APIKey = "configured"
		Secrets{AnthropicAPIKey: "sk-ant-1"}.Apply(&gen)
		assert.Equal(t, "configured", gen.APIKey)
	})

	t.Run("replaces default host", func(t *testing.T) {
		gen := def
		Secrets{OllamaHost: "http://gpu-box:11434"}.Apply(&gen)
		assert.Equal(t, "http://gpu-box:11434", gen.Host)
	})

	t.Run("keeps explicit host", func(t *testing.T) {
		gen := def
		gen.Host = "http://elsewhere:11434"
		Secrets{OllamaHost: "http://gpu-box:11434"}.Apply(&gen)
		assert.Equal(t, "http://elsewhere:11434", gen.Host)
	})

	t.Run("no secrets leaves config alone", func(t *testing.T) {
		gen := def
		Secrets{}.Apply(&gen)
		assert.Equal(t, def, gen)
	})
}

func TestKeys(t *testing.T) {
	s := Secrets{OllamaHost: "h", AnthropicAPIKey: "k"}
	assert.Equal(t, []string{AnthropicAPIKey, OllamaHost}, s.Keys())
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
