package storage

import (
	"encoding/json"
	"fmt"

	"github.com/zalando/go-keyring"

	opserrors "github.com/carsch18/opsflow/pkg/errors"
)

const (
	// ServiceName is the identifier used for all opsflow credentials
	// in the system keyring.
	ServiceName = "opsflow"

	// engineIndexKey is the keyring entry that lists which engine
	// endpoints have a stored token. Keyrings cannot enumerate
	// entries, so the index is maintained alongside them.
	engineIndexKey = "__opsflow_engines__"
)

// TokenStore keeps engine API tokens in the operating system keyring.
// - macOS: Keychain
// - Windows: Credential Manager
// - Linux: Secret Service (GNOME Keyring, KWallet)
type TokenStore struct {
	service string
}

// NewTokenStore creates a keyring-backed token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{service: ServiceName}
}

// SetToken stores the bearer token for an engine endpoint. The
// endpoint URL is the account name in the keyring.
func (s *TokenStore) SetToken(engineURL, token string) error {
	if engineURL == "" {
		return fmt.Errorf("engine URL cannot be empty")
	}

	if err := keyring.Set(s.service, engineURL, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	if err := s.addToIndex(engineURL); err != nil {
		// Token is stored; a stale index only affects listing.
		_ = err
	}

	return nil
}

// Token retrieves the bearer token for an engine endpoint. A missing
// entry maps to ErrNotFound so callers can fall back to anonymous
// access.
func (s *TokenStore) Token(engineURL string) (string, error) {
	if engineURL == "" {
		return "", fmt.Errorf("engine URL cannot be empty")
	}

	token, err := keyring.Get(s.service, engineURL)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", fmt.Errorf("no token stored for %s: %w", engineURL, opserrors.ErrNotFound)
		}
		return "", fmt.Errorf("failed to retrieve token: %w", err)
	}

	return token, nil
}

// DeleteToken removes the stored token for an engine endpoint.
func (s *TokenStore) DeleteToken(engineURL string) error {
	if engineURL == "" {
		return fmt.Errorf("engine URL cannot be empty")
	}

	if err := keyring.Delete(s.service, engineURL); err != nil {
		if err == keyring.ErrNotFound {
			return fmt.Errorf("no token stored for %s: %w", engineURL, opserrors.ErrNotFound)
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}

	if err := s.removeFromIndex(engineURL); err != nil {
		_ = err
	}

	return nil
}

// Engines returns the endpoints that have a stored token. Values are
// never returned, only the endpoint names.
func (s *TokenStore) Engines() ([]string, error) {
	indexJSON, err := keyring.Get(s.service, engineIndexKey)
	if err != nil {
		if err == keyring.ErrNotFound {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to retrieve engine index: %w", err)
	}

	var engines []string
	if err := json.Unmarshal([]byte(indexJSON), &engines); err != nil {
		return nil, fmt.Errorf("failed to parse engine index: %w", err)
	}

	return engines, nil
}

func (s *TokenStore) addToIndex(engineURL string) error {
	engines, err := s.Engines()
	if err != nil {
		return err
	}

	for _, e := range engines {
		if e == engineURL {
			return nil
		}
	}

	return s.saveIndex(append(engines, engineURL))
}

func (s *TokenStore) removeFromIndex(engineURL string) error {
	engines, err := s.Engines()
	if err != nil {
		return err
	}

	kept := make([]string, 0, len(engines))
	for _, e := range engines {
		if e != engineURL {
			kept = append(kept, e)
		}
	}

	return s.saveIndex(kept)
}

func (s *TokenStore) saveIndex(engines []string) error {
	indexJSON, err := json.Marshal(engines)
	if err != nil {
		return fmt.Errorf("failed to marshal engine index: %w", err)
	}

	if err := keyring.Set(s.service, engineIndexKey, string(indexJSON)); err != nil {
		return fmt.Errorf("failed to save engine index: %w", err)
	}

	return nil
}
