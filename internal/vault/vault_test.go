package vault

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mtzanidakis/workforce/internal/config"
	"github.com/mtzanidakis/workforce/internal/store"
)

func mustVault(t *testing.T, passphrase string) *Vault {
	t.Helper()
	v, err := New(passphrase)
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	return v
}

func TestRoundTrip(t *testing.T) {
	v := mustVault(t, "test-passphrase")
	plaintext := []byte("hello, vault!")

	ciphertext, nonce, err := v.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	decrypted, err := v.Decrypt(ciphertext, nonce)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}

	if !bytes.Equal(plaintext, decrypted) {
		t.Fatalf("got %q, want %q", decrypted, plaintext)
	}
}

func TestWrongPassphrase(t *testing.T) {
	v1 := mustVault(t, "correct-passphrase")
	v2 := mustVault(t, "wrong-passphrase")

	ciphertext, nonce, err := v1.Encrypt([]byte("secret"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if _, err := v2.Decrypt(ciphertext, nonce); err == nil {
		t.Fatal("expected error decrypting with wrong passphrase")
	}
	if v1.key == v2.key {
		t.Fatal("different passphrases produced the same key")
	}
}

func TestEmptyPassphrase(t *testing.T) {
	if _, err := New(""); !errors.Is(err, ErrEmptyPassphrase) {
		t.Fatalf("expected ErrEmptyPassphrase, got %v", err)
	}
}

func TestBadNonce(t *testing.T) {
	v := mustVault(t, "test")
	ciphertext, _, _ := v.Encrypt([]byte("x"))
	if _, err := v.Decrypt(ciphertext, []byte("short")); err == nil {
		t.Fatal("expected error for short nonce")
	}
}

func newTestSecrets(t *testing.T) *Secrets {
	t.Helper()
	s, err := store.New(config.StoreConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewSecrets(mustVault(t, "pass"), s)
}

func TestSecretsLifecycle(t *testing.T) {
	secrets := newTestSecrets(t)

	if err := secrets.Set("gateway_key", "AI gateway", []byte("sk-1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := secrets.Set("gateway_key", "AI gateway", []byte("sk-2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := secrets.Lookup("gateway_key")
	if err != nil || got != "sk-2" {
		t.Fatalf("expected sk-2, got %q (%v)", got, err)
	}

	list, _ := secrets.List()
	if len(list) != 1 || list[0].Value != nil {
		t.Errorf("expected one metadata-only secret, got %+v", list)
	}

	if err := secrets.Delete("gateway_key"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := secrets.Get("gateway_key"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("expected ErrSecretNotFound, got %v", err)
	}
	if err := secrets.Delete("gateway_key"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("expected ErrSecretNotFound on second delete, got %v", err)
	}
}

func TestSecretsInvalidName(t *testing.T) {
	secrets := newTestSecrets(t)
	if err := secrets.Set("bad name!", "", []byte("x")); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
}

func TestResolveSecretsThroughVault(t *testing.T) {
	secrets := newTestSecrets(t)
	if err := secrets.Set("tg", "", []byte("123:abc")); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	cfg.Telegram.Token = "secret:tg"
	cfg.Gateway.APIKey = "plain-key"
	if err := cfg.ResolveSecrets(secrets.Lookup); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Gateway.APIKey != "plain-key" {
		t.Errorf("unexpected resolved config: token=%q key=%q", cfg.Telegram.Token, cfg.Gateway.APIKey)
	}
}
