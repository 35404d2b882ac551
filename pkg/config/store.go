package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Store edits the YAML config file read by Resolve.
type Store struct {
	path string
}

// NewStore creates a store for the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStorePath returns the file written by `config set` when no path is given.
// An existing file in the search path wins over the first candidate.
func DefaultStorePath(searchPaths []string) string {
	for _, candidate := range searchPaths {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	if len(searchPaths) == 0 {
		return ""
	}
	return searchPaths[0]
}

// Path returns the file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads all values from the file. A missing file yields an empty map.
func (s *Store) Load() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, &Error{Kind: Malformed, Path: s.path, Detail: err.Error(), Err: err}
	}
	return values, nil
}

// Get returns the raw value of key.
func (s *Store) Get(key string) (any, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	values, err := s.Load()
	if err != nil {
		return nil, false, err
	}
	value, ok := values[key]
	return value, ok, nil
}

// Set writes key=value, converting the value to the key's natural type.
func (s *Store) Set(key, raw string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	value, err := convertValue(key, raw)
	if err != nil {
		return err
	}

	values, err := s.Load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

// Unset removes key from the file.
func (s *Store) Unset(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	values, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

// SortedKeys returns the keys present in values, sorted.
func SortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) save(values map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func checkKey(key string) error {
	if !slices.Contains(Keys, key) {
		return &Error{Kind: Invalid, Key: key, Detail: fmt.Sprintf("unknown key (valid keys: %v)", Keys)}
	}
	return nil
}

func convertValue(key, raw string) (any, error) {
	switch key {
	case KeyVerbose, KeyNoColor:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, &Error{Kind: Invalid, Key: key, Detail: "must be true or false"}
		}
		return b, nil
	case KeyMaxAttempts:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, &Error{Kind: Invalid, Key: key, Detail: "must be a positive integer"}
		}
		return n, nil
	case KeyRateLimit:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < 0 {
			return nil, &Error{Kind: Invalid, Key: key, Detail: "must be a non-negative number"}
		}
		return f, nil
	case KeyTimeout:
		if _, err := parseTimeout(raw); err != nil {
			return nil, &Error{Kind: Invalid, Key: key, Detail: err.Error()}
		}
		return raw, nil
	case KeyFormat:
		switch raw {
		case FormatTable, FormatJSON, FormatYAML:
			return raw, nil
		}
		return nil, &Error{Kind: Invalid, Key: key, Detail: "must be table, json or yaml"}
	case KeyAPIURL:
		if err := validateURL(raw); err != nil {
			return nil, &Error{Kind: Invalid, Key: key, Detail: err.Error()}
		}
		return raw, nil
	default:
		return raw, nil
	}
}
