package auth

import (
	"fmt"
	"time"

	"github.com/fivetwenty-io/octokit/internal/constants"
)

// ConfigPersister saves installation tokens so later processes can reuse
// them until they expire.
type ConfigPersister interface {
	UpdateInstallationToken(appID, token string, expiresAt time.Time) error
}

// ConfigTokenManager seeds installation setup from a persisted token and
// saves freshly exchanged ones.
type ConfigTokenManager struct {
	persister ConfigPersister
	appID     string
	saved     *Token
}

// NewConfigTokenManager creates a manager for appID. initialToken and
// initialExpiry describe the token previously saved, if any.
func NewConfigTokenManager(persister ConfigPersister, appID, initialToken string, initialExpiry time.Time) *ConfigTokenManager {
	manager := &ConfigTokenManager{
		persister: persister,
		appID:     appID,
	}

	if initialToken != "" {
		manager.saved = &Token{AccessToken: initialToken, TokenType: constants.TokenTypeToken, ExpiresAt: initialExpiry}
	}

	return manager
}

// Cached returns the persisted token when it is still valid.
func (m *ConfigTokenManager) Cached() *Token {
	if m == nil || !m.saved.Valid() {
		return nil
	}

	return m.saved
}

// Save remembers token and hands it to the persister, if one is set. A
// failed write leaves the previously saved token in place.
func (m *ConfigTokenManager) Save(token *Token) error {
	if m == nil || token == nil {
		return nil
	}

	if m.saved != nil && m.saved.AccessToken == token.AccessToken && m.saved.ExpiresAt.Equal(token.ExpiresAt) {
		return nil
	}

	err := m.persistToken(token)
	if err != nil {
		return err
	}

	m.saved = token

	return nil
}

// persistToken saves the token to config.
func (m *ConfigTokenManager) persistToken(token *Token) error {
	if m.persister == nil {
		return nil
	}

	err := m.persister.UpdateInstallationToken(m.appID, token.AccessToken, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to update installation token: %w", err)
	}

	return nil
}
