package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"

	"github.com/nhle/trackmate/internal/model"
)

const serviceName = "trackmate"

// Well-known credential keys.
const (
	KeyGoogleClientSecret = "google-client-secret"
	KeySecretKey          = "jwt-secret-key"
)

// IMAPPasswordKey returns the key holding the password of an IMAP source.
func IMAPPasswordKey(sourceID string) string {
	return "imap-" + sourceID
}

// ErrNotFound is returned when no credential is stored under a key.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes secrets in a keyring.
type Store struct {
	ring keyring.Keyring
}

// NewStore wraps an already opened keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open returns a Store backed by the system keyring, falling back to an
// encrypted file under ~/.config/trackmate/credentials.
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/trackmate/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("trackmate-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewStore(ring), nil
}

// Get retrieves a credential value by key.
func (s *Store) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key.
func (s *Store) Set(key string, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key.
func (s *Store) Delete(key string) error {
	err := s.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// ApplySecrets fills secrets that configuration and environment left unset
// from the keyring. Missing keyring entries are not an error.
func (s *Store) ApplySecrets(cfg *model.AppConfig) error {
	if cfg.Google.ClientSecret == "" {
		secret, err := s.Get(KeyGoogleClientSecret)
		switch {
		case err == nil:
			cfg.Google.ClientSecret = secret
		case !errors.Is(err, ErrNotFound):
			return err
		}
	}

	if cfg.Auth.SecretKey == "" || cfg.Auth.SecretKey == model.DefaultSecretKey {
		key, err := s.Get(KeySecretKey)
		switch {
		case err == nil:
			cfg.Auth.SecretKey = key
		case !errors.Is(err, ErrNotFound):
			return err
		}
	}

	return nil
}
