// Package userconfig persists the CLI's per-user settings as JSON under
// ~/.config/optivoo.
package userconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Dir is the directory under ~/.config shared by every CLI file
const Dir = "optivoo"

// UserConfig is what the CLI remembers between runs
type UserConfig struct {
	APIURL     string `json:"api_url,omitempty"`
	TokenStore string `json:"token_store,omitempty"`
}

// File is a settings file at a fixed path
type File struct {
	path string
}

// Open returns the settings file at path; it need not exist yet
func Open(path string) *File {
	return &File{path: path}
}

// Default returns ~/.config/optivoo/config.json
func Default() (*File, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return Open(filepath.Join(home, ".config", Dir, "config.json")), nil
}

// Path returns the file location
func (f *File) Path() string {
	return f.path
}

// Load reads the settings. A missing file yields empty settings.
func (f *File) Load() (*UserConfig, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &UserConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file %s: %w", f.path, err)
	}
	return &cfg, nil
}

// Save replaces the file through a rename so readers never see a partial write
func (f *File) Save(cfg *UserConfig) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".config-*.json")
	if err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	return os.Rename(tmp.Name(), f.path)
}

// Update loads, applies fn and saves, skipping the write when nothing changed
func (f *File) Update(fn func(*UserConfig)) error {
	cfg, err := f.Load()
	if err != nil {
		return err
	}

	before := *cfg
	fn(cfg)
	if *cfg == before {
		return nil
	}
	return f.Save(cfg)
}
