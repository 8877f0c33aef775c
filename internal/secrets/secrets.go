// Copyright fmforge, 2026. All rights reserved.

// Package secrets loads generator credentials from a directory of
// plain-text files. Each file in the directory is one secret: the
// filename is the key name and the file contents (trimmed) are the
// value.
//
// Supported key files: anthropic-api-key, ollama-host.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fmforge/fmforge/pkg/types"
)

// Key file names the CLI looks up after loading.
const (
	AnthropicAPIKey = "anthropic-api-key"
	OllamaHost      = "ollama-host"
)

// Secrets maps key file names to trimmed values.
type Secrets map[string]string

// Load reads all files in dir and returns the key-to-value map.
// A missing directory or missing files are not errors; Load returns an
// empty map. Unreadable files produce a warning on stderr but do not
// abort.
func Load(dir string) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	s := make(Secrets)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			s[name] = value
		}
	}

	return s, nil
}

// Get returns fallback if it is non-empty, otherwise the value stored
// under key. Config-file and flag values pass through as the fallback,
// so secrets only fill gaps.
func (s Secrets) Get(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return s[key]
}

// Apply fills generator credentials that the config file and flags left
// alone. The API key applies whenever it is empty. The host applies only
// while it still holds the built-in default, so an explicit host always
// wins over the key file.
func (s Secrets) Apply(gen *types.GeneratorConfig) {
	gen.APIKey = s.Get(AnthropicAPIKey, gen.APIKey)

	if host, ok := s[OllamaHost]; ok {
		def := types.DefaultConfig().Generator.Host
		if gen.Host == "" || gen.Host == def {
			gen.Host = host
		}
	}
}

// Keys returns the loaded key names in sorted order. Values never
// appear in logs or error messages.
func (s Secrets) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
