package config

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore(AppName)
	if err != nil {
		t.Fatalf("NewKeyringStore failed: %v", err)
	}

	if _, err := store.Get("svc"); !errors.Is(err, ErrNoCredential) {
		t.Errorf("expected ErrNoCredential, got %v", err)
	}

	if err := store.Set("svc", "token"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := store.Get("svc")
	if err != nil || got != "token" {
		t.Errorf("Get = %q, %v; want token", got, err)
	}

	if err := store.Delete("svc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete("svc"); err != nil {
		t.Errorf("second Delete should be a no-op, got %v", err)
	}
}

func TestNewKeyringStoreRequiresService(t *testing.T) {
	if _, err := NewKeyringStore(""); err == nil {
		t.Error("expected error for empty service")
	}
}

func TestResolveWithKeyringStore(t *testing.T) {
	keyring.MockInit()
	clearEnv(t)

	store, _ := NewKeyringStore(AppName)
	if err := store.Set(DefaultKeyringUser, "kr-secret"); err != nil {
		t.Fatal(err)
	}

	cfg, err := Resolve(Options{Credentials: store})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.APIKey != "kr-secret" {
		t.Errorf("expected keyring secret, got %q", cfg.APIKey)
	}
}
