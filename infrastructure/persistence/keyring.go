package persistence

import (
	"errors"
	"fmt"

	"github.com/repokeeper/repokeeper/domain/repository"
	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the OS keyring service name passwords are filed under.
const DefaultKeyringService = "repokeeper"

// KeyringStore keeps repository passwords in the OS credential store.
// Implements repository.CredentialStore.
type KeyringStore struct {
	service string
}

var _ repository.CredentialStore = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore. An empty service uses DefaultKeyringService.
func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = DefaultKeyringService
	}
	return &KeyringStore{service: service}
}

// Get returns the password stored for a project.
func (s *KeyringStore) Get(projectName string) (string, error) {
	secret, err := keyring.Get(s.service, projectName)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("get credential %s: %w", projectName, repository.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get credential %s: %w", projectName, err)
	}
	return secret, nil
}

// Set stores the password for a project.
func (s *KeyringStore) Set(projectName, secret string) error {
	if err := keyring.Set(s.service, projectName, secret); err != nil {
		return fmt.Errorf("set credential %s: %w", projectName, err)
	}
	return nil
}

// Delete removes a project's password. A missing entry is not an error.
func (s *KeyringStore) Delete(projectName string) error {
	err := keyring.Delete(s.service, projectName)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete credential %s: %w", projectName, err)
	}
	return nil
}
