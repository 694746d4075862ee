// Package secrets keeps RPC URLs that embed API keys out of the plain
// config file by storing them in the OS keychain.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/99designs/keyring"
)

const keychainService = "ogview"

// PasswordEnv supplies the password for the encrypted-file fallback backend.
const PasswordEnv = "OGVIEW_KEYRING_PASSWORD"

var (
	// ErrNotFound is returned when a reference has no stored value.
	ErrNotFound = errors.New("secret not found")
	// ErrUnavailable is returned when no keychain backend could be opened.
	ErrUnavailable = errors.New("keychain not available")
)

// Store saves and loads secrets by reference.
type Store interface {
	Put(name, value string) (ref string, err error)
	Get(ref string) (string, error)
	Delete(ref string) error
}

// RPCName is the secret name for a network's RPC URL override.
func RPCName(network string) string {
	return "rpc." + strings.ToLower(network)
}

// IsRef reports whether s looks like a reference returned by Put.
func IsRef(s string) bool {
	return strings.HasPrefix(s, keychainService+".")
}

func refFor(name string) string {
	return keychainService + "." + name
}

// Keychain is a Store backed by the OS keychain.
type Keychain struct {
	ring keyring.Keyring
}

// OpenKeychain opens the OS keychain. On Linux without a desktop session
// it falls back to an encrypted file under fileDir.
func OpenKeychain(fileDir string) *Keychain {
	cfg := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
		FileDir:                  filepath.Join(fileDir, "keyring"),
		FilePasswordFunc:         keyring.FixedStringPrompt(os.Getenv(PasswordEnv)),
	}
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
		ring, err = keyring.Open(cfg)
		if err != nil {
			return &Keychain{}
		}
	}
	return &Keychain{ring: ring}
}

// Put stores value under name and returns its reference.
func (k *Keychain) Put(name, value string) (string, error) {
	if k.ring == nil {
		return "", ErrUnavailable
	}
	ref := refFor(name)
	if err := k.ring.Set(keyring.Item{Key: ref, Data: []byte(value), Label: "ogview " + name}); err != nil {
		return "", fmt.Errorf("keychain store: %w", err)
	}
	return ref, nil
}

// Get loads the value stored under ref.
func (k *Keychain) Get(ref string) (string, error) {
	if k.ring == nil {
		return "", ErrUnavailable
	}
	item, err := k.ring.Get(ref)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return "", fmt.Errorf("keychain retrieve: %w", err)
	}
	return string(item.Data), nil
}

// Delete removes ref. Missing references are not an error.
func (k *Keychain) Delete(ref string) error {
	if k.ring == nil {
		return ErrUnavailable
	}
	if err := k.ring.Remove(ref); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}

// Memory is an in-process Store, used in tests and when no keychain exists.
type Memory struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Put(name, value string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := refFor(name)
	m.data[ref] = value
	return ref, nil
}

func (m *Memory) Get(ref string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[ref]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return v, nil
}

func (m *Memory) Delete(ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, ref)
	return nil
}
