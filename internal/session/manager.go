package session

import (
	"sync"

	"go.uber.org/zap"
)

// Anonymous is the identity used when no user is signed in.
const Anonymous = ""

// Manager owns the current session epoch and replaces its cache whenever the
// resolved identity changes.
type Manager struct {
	mu       sync.Mutex
	config   Config
	cache    *Cache
	epoch    uint64
	resolved bool
	logger   *zap.SugaredLogger
}

// NewManager creates a manager with no resolved identity.
func NewManager(config Config) *Manager {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	config.Logger = logger
	return &Manager{config: config, logger: logger}
}

// Resolve makes identity the active one. Resolving the identity that is
// already active returns the existing cache; any other identity closes the
// current epoch and starts a new one with an empty cache.
func (m *Manager) Resolve(identity string) *Cache {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.resolved && !m.cache.Closed() && m.cache.Identity() == identity {
		return m.cache
	}

	if m.cache != nil {
		m.logger.Debugw("closing session epoch", "epoch", m.epoch, "identity", m.cache.Identity())
		m.cache.Close()
	}
	m.epoch++
	m.resolved = true
	m.cache = NewCache(identity, m.epoch, m.config)
	m.logger.Debugw("session epoch started", "epoch", m.epoch, "anonymous", identity == Anonymous)
	return m.cache
}

// SignOut switches to the anonymous identity.
func (m *Manager) SignOut() *Cache {
	return m.Resolve(Anonymous)
}

// Current returns the active cache, or ErrUnresolved before the first Resolve.
func (m *Manager) Current() (*Cache, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.resolved {
		return nil, ErrUnresolved
	}
	return m.cache, nil
}

// Epoch returns the number of epochs started so far.
func (m *Manager) Epoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// Close tears down the active epoch.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cache != nil {
		m.cache.Close()
	}
}
