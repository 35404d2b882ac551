package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStoreSetGetUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config")
	store := NewStore(path)

	if err := store.Set(KeyAPIURL, "https://sandbox.nimbasms.com/v1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(KeyMaxAttempts, "5"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected mode 0600, got %o", perm)
	}

	value, ok, err := store.Get(KeyMaxAttempts)
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if value != 5 {
		t.Errorf("expected 5, got %#v", value)
	}

	if err := store.Unset(KeyAPIURL); err != nil {
		t.Fatalf("Unset failed: %v", err)
	}
	if _, ok, _ := store.Get(KeyAPIURL); ok {
		t.Error("expected api_url to be removed")
	}
}

func TestStoreWrittenFileResolves(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config")
	store := NewStore(path)

	for key, value := range map[string]string{
		KeyAPIKey:  "stored",
		KeyTimeout: "5s",
		KeyFormat:  FormatJSON,
		KeyVerbose: "true",
	} {
		if err := store.Set(key, value); err != nil {
			t.Fatalf("Set(%s) failed: %v", key, err)
		}
	}

	cfg, err := Resolve(Options{FilePath: path})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.APIKey != "stored" || cfg.Format != FormatJSON || !cfg.Verbose {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestStoreRejectsUnknownKeyAndBadValues(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "config"))

	tests := []struct {
		key, value string
	}{
		{"colour", "blue"},
		{KeyVerbose, "maybe"},
		{KeyFormat, "xml"},
		{KeyTimeout, "later"},
		{KeyAPIURL, "not a url"},
		{KeyRateLimit, "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			err := store.Set(tt.key, tt.value)
			var cfgErr *Error
			if !errors.As(err, &cfgErr) || cfgErr.Kind != Invalid {
				t.Errorf("expected Invalid config error, got %v", err)
			}
		})
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	values, err := NewStore(filepath.Join(t.TempDir(), "absent")).Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("expected empty map, got %v", values)
	}
}

func TestDefaultStorePath(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first")
	second := filepath.Join(dir, "second")

	if got := DefaultStorePath([]string{first, second}); got != first {
		t.Errorf("expected %s, got %s", first, got)
	}

	if err := os.WriteFile(second, []byte("format: json\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := DefaultStorePath([]string{first, second}); got != second {
		t.Errorf("expected existing file %s, got %s", second, got)
	}
}
