// Package credentials keeps the gateway token in the OS credential store.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/99designs/keyring"
)

// ServiceName identifies the tether namespace in the credential store.
const ServiceName = "tether"

// KeyGatewayToken is the key the gateway auth token is stored under.
const KeyGatewayToken = "gateway_token"

// PasswordEnv unlocks the encrypted file backend where no native store exists.
const PasswordEnv = "TETHER_KEYRING_PASSWORD"

// ErrNoToken is returned when no token has been saved.
var ErrNoToken = errors.New("no token stored; run 'tether login'")

// Store is a thread-safe wrapper around a keyring.
type Store struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// New wraps an already opened keyring.
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open opens the platform credential store without ever prompting. The
// encrypted file backend under dataDir is only considered when it can be
// unlocked from PasswordEnv or already holds a token.
func Open(dataDir string) (*Store, error) {
	return open(dataDir, false)
}

// OpenInteractive is Open for commands run at a terminal: the file backend
// may ask for its password.
func OpenInteractive(dataDir string) (*Store, error) {
	return open(dataDir, true)
}

func open(dataDir string, allowPrompt bool) (*Store, error) {
	fileDir := filepath.Join(dataDir, "keyring")
	ring, err := keyring.Open(keyring.Config{
		AllowedBackends:         allowedBackends(fileDir, allowPrompt),
		ServiceName:             ServiceName,
		KeychainName:            ServiceName,
		PassPrefix:              ServiceName,
		WinCredPrefix:           ServiceName,
		LibSecretCollectionName: ServiceName,
		KWalletAppID:            ServiceName,
		KWalletFolder:           ServiceName,
		FileDir:                 fileDir,
		FilePasswordFunc:        filePassword,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}
	return New(ring), nil
}

// allowedBackends lists the host's backends, dropping the file backend
// when opening it would mean a password prompt for nothing.
func allowedBackends(fileDir string, allowPrompt bool) []keyring.BackendType {
	keepFile := allowPrompt || os.Getenv(PasswordEnv) != ""
	if !keepFile {
		_, err := os.Stat(filepath.Join(fileDir, KeyGatewayToken))
		keepFile = err == nil
	}

	var out []keyring.BackendType
	for _, b := range keyring.AvailableBackends() {
		if b == keyring.FileBackend && !keepFile {
			continue
		}
		out = append(out, b)
	}
	return out
}

func filePassword(prompt string) (string, error) {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}
	return keyring.TerminalPrompt(prompt)
}

// SaveToken stores the gateway token.
func (s *Store) SaveToken(token string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.ring.Set(keyring.Item{
		Key:   KeyGatewayToken,
		Data:  []byte(token),
		Label: "tether gateway token",
	})
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// LoadToken returns the stored gateway token or ErrNoToken.
func (s *Store) LoadToken() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, err := s.ring.Get(KeyGatewayToken)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	if len(it.Data) == 0 {
		return "", ErrNoToken
	}
	return string(it.Data), nil
}

// DeleteToken removes the stored token. Deleting a missing token is not an
// error.
func (s *Store) DeleteToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.ring.Remove(KeyGatewayToken)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
