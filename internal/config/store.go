package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store reads and writes the persisted user configuration. A single mutex
// serializes Load and Save so concurrent callers observe a consistent
// last-writer-wins file.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store for the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// NewDefaultStore creates a store at the per-user default path.
func NewDefaultStore() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("cannot determine config directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the config file path.
func (s *Store) Path() string { return s.path }

// Load reads the config file. A missing file yields defaults with no error.
// A corrupt or invalid file yields defaults AND a *ValidationError so the
// caller can warn without crashing.
func (s *Store) Load() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Defaults(), &ValidationError{Path: s.path, Reason: "unreadable", Err: err}
	}

	// Parse into a generic map first so missing keys can be defaulted
	// field-by-field during migration.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Defaults(), &ValidationError{Path: s.path, Reason: "malformed YAML", Err: err}
	}
	if raw == nil {
		return Defaults(), nil
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return Defaults(), &ValidationError{Path: s.path, Reason: "schema mismatch", Err: err}
	}

	if cfg.Version > SchemaVersion {
		return Defaults(), &ValidationError{
			Path:   s.path,
			Reason: fmt.Sprintf("config version %d is newer than supported version %d", cfg.Version, SchemaVersion),
		}
	}

	migrate(cfg, raw)

	if err := validate(cfg); err != nil {
		return Defaults(), &ValidationError{Path: s.path, Reason: "invalid values", Err: err}
	}

	return cfg, nil
}

// Save atomically persists the config: write to a temp file in the same
// directory, fsync, then rename over the target. No partial file is ever
// observable.
func (s *Store) Save(cfg *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validate(cfg); err != nil {
		return &ValidationError{Path: s.path, Reason: "refusing to save invalid config", Err: err}
	}

	out := *cfg
	out.Version = SchemaVersion

	data, err := yaml.Marshal(&out)
	if err != nil {
		return &WriteError{Path: s.path, Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return &WriteError{Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, DefaultFileName+".tmp-*")
	if err != nil {
		return &WriteError{Path: s.path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &WriteError{Path: s.path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &WriteError{Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &WriteError{Path: s.path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return &WriteError{Path: s.path, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return &WriteError{Path: s.path, Err: err}
	}

	return nil
}

// migrate applies field-by-field defaults for keys absent from the raw file.
// Older schema versions are accepted; unknown extra keys are ignored.
func migrate(cfg *Config, raw map[string]any) {
	def := Defaults()

	if _, ok := raw["version"]; !ok {
		cfg.Version = 1 // pre-versioned files are treated as version 1
	}
	if _, ok := raw["default_region"]; !ok {
		cfg.DefaultRegion = def.DefaultRegion
	}
	if _, ok := raw["download_dir"]; !ok {
		cfg.DownloadDir = def.DownloadDir
	}
	if _, ok := raw["timeout_seconds"]; !ok {
		cfg.TimeoutSeconds = def.TimeoutSeconds
	}
	if cfg.Preferences == nil {
		cfg.Preferences = map[string]string{}
	}
	cfg.Version = SchemaVersion
}

func validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative, got %d", cfg.TimeoutSeconds)
	}
	if cfg.Version < 0 {
		return fmt.Errorf("version must not be negative, got %d", cfg.Version)
	}
	return nil
}
