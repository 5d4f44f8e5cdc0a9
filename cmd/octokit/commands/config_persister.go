package commands

import (
	"sync"
	"time"
)

// ConfigPersister implements the octokit.TokenPersister interface.
type ConfigPersister struct {
	mutex sync.Mutex
}

// NewConfigPersister creates a new config persister.
func NewConfigPersister() *ConfigPersister {
	return &ConfigPersister{}
}

// UpdateInstallationToken stores a newly exchanged installation token so
// later invocations reuse it until it expires. Tokens for a different app
// than the configured one are ignored.
func (p *ConfigPersister) UpdateInstallationToken(appID, token string, expiresAt time.Time) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config := loadConfig()
	if config.AppID != "" && config.AppID != appID {
		return nil
	}

	config.AppID = appID
	config.InstallationToken = token

	if expiresAt.IsZero() {
		config.InstallationTokenExpiresAt = nil
	} else {
		config.InstallationTokenExpiresAt = &expiresAt
	}

	return saveConfigStruct(config)
}
