package local

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

// ErrSecretNotFound is returned when no secret is stored for an account.
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore keeps account passwords out of the database.
type SecretStore interface {
	Set(account uint32, secret string) error
	Get(account uint32) (string, error)
	Delete(account uint32) error
}

// KeyringSecrets stores secrets in the OS keyring under one service name
// per profile.
type KeyringSecrets struct {
	Service string
}

// NewKeyringSecrets returns a keyring store scoped to profile.
func NewKeyringSecrets(profile string) *KeyringSecrets {
	return &KeyringSecrets{Service: "dchat:" + profile}
}

func secretUser(account uint32) string {
	return fmt.Sprintf("account-%d", account)
}

func (k *KeyringSecrets) Set(account uint32, secret string) error {
	if err := keyring.Set(k.Service, secretUser(account), secret); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

func (k *KeyringSecrets) Get(account uint32) (string, error) {
	s, err := keyring.Get(k.Service, secretUser(account))
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrSecretNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keyring get: %w", err)
	}
	return s, nil
}

func (k *KeyringSecrets) Delete(account uint32) error {
	err := keyring.Delete(k.Service, secretUser(account))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return nil
}

// MemorySecrets keeps secrets for the lifetime of the process.
type MemorySecrets struct {
	mu      sync.Mutex
	secrets map[uint32]string
}

func NewMemorySecrets() *MemorySecrets {
	return &MemorySecrets{secrets: make(map[uint32]string)}
}

func (m *MemorySecrets) Set(account uint32, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[account] = secret
	return nil
}

func (m *MemorySecrets) Get(account uint32) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.secrets[account]
	if !ok {
		return "", ErrSecretNotFound
	}
	return s, nil
}

func (m *MemorySecrets) Delete(account uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.secrets, account)
	return nil
}
