// Package credential resolves secret material (bot tokens, webhook
// URLs, API keys) by credential id through the OS-native keychain,
// grounded on the teacher's use of github.com/zalando/go-keyring for
// credential storage elsewhere in the stack. Credentials are never
// cached beyond a single caller (§5): every Get re-reads the keychain.
package credential

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

// service is the go-keyring "service" namespace under which every
// credential id is stored, keeping this module's secrets segregated
// from other keychain users on the same machine.
const service = "goclaw-notify"

// Store resolves credential ids to secret strings via the OS keychain.
type Store struct{}

// NewStore constructs a credential store.
func NewStore() *Store { return &Store{} }

// Get resolves a credential id to its secret value.
func (s *Store) Get(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("credential: empty id")
	}
	secret, err := keyring.Get(service, id)
	if err != nil {
		return "", fmt.Errorf("credential: get %s: %w", id, err)
	}
	return secret, nil
}

// Set stores a secret under a credential id.
func (s *Store) Set(id, secret string) error {
	if id == "" {
		return fmt.Errorf("credential: empty id")
	}
	return keyring.Set(service, id, secret)
}

// Delete removes a credential id from the keychain.
func (s *Store) Delete(id string) error {
	return keyring.Delete(service, id)
}
