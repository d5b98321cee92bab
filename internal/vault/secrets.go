package vault

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/mtzanidakis/workforce/internal/store"
)

var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrInvalidName    = errors.New("invalid secret name")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// Secrets stores vault-sealed values by name.
type Secrets struct {
	vault *Vault
	store *store.Store
}

func NewSecrets(v *Vault, s *store.Store) *Secrets {
	return &Secrets{vault: v, store: s}
}

// Set creates or replaces the named secret.
func (s *Secrets) Set(name, description string, value []byte) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	ciphertext, nonce, err := s.vault.Encrypt(value)
	if err != nil {
		return err
	}

	id := uuid.New().String()
	if existing, err := s.store.GetSecretByName(name); err != nil {
		return err
	} else if existing != nil {
		id = existing.ID
	}

	return s.store.SaveSecret(&store.Secret{
		ID:          id,
		Name:        name,
		Description: description,
		Value:       ciphertext,
		Nonce:       nonce,
	})
}

func (s *Secrets) Get(name string) ([]byte, error) {
	sec, err := s.store.GetSecretByName(name)
	if err != nil {
		return nil, err
	}
	if sec == nil {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	return s.vault.Decrypt(sec.Value, sec.Nonce)
}

// Lookup returns the secret as a string. It matches config.SecretLookup.
func (s *Secrets) Lookup(name string) (string, error) {
	value, err := s.Get(name)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

func (s *Secrets) List() ([]store.Secret, error) {
	return s.store.ListSecrets()
}

func (s *Secrets) Delete(name string) error {
	sec, err := s.store.GetSecretByName(name)
	if err != nil {
		return err
	}
	if sec == nil {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	return s.store.DeleteSecret(name)
}
