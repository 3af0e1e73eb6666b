// Package credentials manages the stored API key for the live service.
package credentials

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoCredential indicates that no API key is configured.
var ErrNoCredential = errors.New("credentials: no API key found, set GEMINI_API_KEY or run setup")

// DefaultCredentialsPath is the credentials file location relative to the
// user's home directory.
const DefaultCredentialsPath = ".config/spotlight/credentials.json"

// credentialFile is the on-disk JSON shape.
type credentialFile struct {
	APIKey string `json:"api_key"`
}

// EnvStore reads the API key from the environment. Clear unsets the
// variables for the current process; a fresh key must be provided before the
// next start.
type EnvStore struct{}

// envVars in lookup order.
var envVars = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

// Read returns the first configured key.
func (EnvStore) Read() (string, error) {
	for _, name := range envVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, nil
		}
	}
	return "", nil
}

// Clear unsets both variables.
func (EnvStore) Clear() error {
	for _, name := range envVars {
		if err := os.Unsetenv(name); err != nil {
			return err
		}
	}
	return nil
}

// FileStore persists the API key as a JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store. If path is empty, uses the
// default path under the user's home directory.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFilePath()
	}
	return &FileStore{path: path}
}

// DefaultFilePath returns the default credentials file path.
func DefaultFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultCredentialsPath
	}
	return filepath.Join(home, DefaultCredentialsPath)
}

// Path returns the path to the credentials file.
func (s *FileStore) Path() string {
	return s.path
}

// Read returns the stored key, or empty when no file exists.
func (s *FileStore) Read() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	var f credentialFile
	if err := json.Unmarshal(data, &f); err != nil {
		return "", err
	}
	return strings.TrimSpace(f.APIKey), nil
}

// Write persists the key.
func (s *FileStore) Write(apiKey string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(credentialFile{APIKey: apiKey}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Clear removes the stored key. Missing file is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Chain reads from each store in order and clears the first store that has
// a key. Env wins over file by default.
type Chain []interface {
	Read() (string, error)
	Clear() error
}

// Default returns the standard lookup chain: environment, then file.
func Default() Chain {
	return Chain{EnvStore{}, NewFileStore("")}
}

// Read returns the first non-empty key in the chain.
func (c Chain) Read() (string, error) {
	for _, s := range c {
		key, err := s.Read()
		if err != nil {
			return "", err
		}
		if key != "" {
			return key, nil
		}
	}
	return "", nil
}

// Clear clears every store in the chain so a rejected key cannot resurface
// from a lower-priority source.
func (c Chain) Clear() error {
	var firstErr error
	for _, s := range c {
		if err := s.Clear(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
