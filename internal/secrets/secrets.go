// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files and
// from a dotenv file. In the directory, each file is one secret: the
// filename is the key and the trimmed contents are the value.
//
// Supported keys: openai-api-key, openai-base-url.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/pdiddy/gscientist/pkg/types"
)

// Secret file names.
const (
	OpenAIAPIKey  = "openai-api-key"
	OpenAIBaseURL = "openai-base-url"
)

// envNames maps secret keys to the environment variables that override them.
var envNames = map[string]string{
	OpenAIAPIKey:  "OPENAI_API_KEY",
	OpenAIBaseURL: "OPENAI_BASE_URL",
}

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, log zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
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
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadEnv loads a dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an
// error.
func LoadEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Lookup returns the value for key. The environment variable wins over the
// secret file.
func Lookup(secrets map[string]string, key string) string {
	if env, ok := envNames[key]; ok {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return secrets[key]
}

// Apply fills credentials the config file left empty.
func Apply(secrets map[string]string, cfg *types.Config) {
	if cfg.Agent.APIKey == "" {
		cfg.Agent.APIKey = Lookup(secrets, OpenAIAPIKey)
	}
	if cfg.Agent.BaseURL == "" {
		cfg.Agent.BaseURL = Lookup(secrets, OpenAIBaseURL)
	}
}
