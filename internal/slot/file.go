package slot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDirName       = "optivoo"
	credentialsFileName = "credentials.json"
)

// File stores the token in a JSON file readable only by the owner. It is the
// fallback for machines without a usable keychain.
type File struct {
	path string
}

type fileContents struct {
	Token string `json:"token"`
}

// NewFile returns a file slot at path
func NewFile(path string) *File {
	return &File{path: path}
}

// DefaultFilePath returns ~/.config/optivoo/credentials.json
func DefaultFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", configDirName, credentialsFileName), nil
}

// Path returns the backing file path
func (f *File) Path() string {
	return f.path
}

func (f *File) Load() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrEmpty
		}
		return "", fmt.Errorf("failed to read credentials file: %w", err)
	}

	var contents fileContents
	if err := json.Unmarshal(data, &contents); err != nil {
		return "", fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if contents.Token == "" {
		return "", ErrEmpty
	}
	return contents.Token, nil
}

func (f *File) Save(token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(fileContents{Token: token}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}

func (f *File) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials file: %w", err)
	}
	return nil
}
