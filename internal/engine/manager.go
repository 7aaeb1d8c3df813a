package engine

import (
	"sync"

	"learnpulse/internal/consent"
	"learnpulse/internal/reporter"

	"go.uber.org/zap"
)

// Manager hands out one engine per user, created lazily on first use.
type Manager struct {
	log      *zap.Logger
	opts     Options
	backend  Backend
	analyzer reporter.Analyzer
	sink     reporter.SampleSink
	archiver Archiver

	consentStore consent.Store
	prompter     consent.Prompter

	mu       sync.Mutex
	engines  map[string]*Engine
	consents map[string]*consent.Manager
}

// NewManager returns an empty manager. The Options UserID field is
// ignored; each engine gets its own.
func NewManager(
	log *zap.Logger,
	opts Options,
	backend Backend,
	analyzer reporter.Analyzer,
	sink reporter.SampleSink,
	archiver Archiver,
	consentStore consent.Store,
	prompter consent.Prompter,
) *Manager {
	return &Manager{
		log:          log,
		opts:         opts,
		backend:      backend,
		analyzer:     analyzer,
		sink:         sink,
		archiver:     archiver,
		consentStore: consentStore,
		prompter:     prompter,
		engines:      make(map[string]*Engine),
		consents:     make(map[string]*consent.Manager),
	}
}

// Engine returns the user's engine, creating it on first use.
func (m *Manager) Engine(userID string) *Engine {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.engines[userID]; ok {
		return e
	}
	opts := m.opts
	opts.UserID = userID
	e := New(m.log, opts, m.backend, m.analyzer, m.sink, m.archiver, m.consentLocked(userID))
	m.engines[userID] = e
	return e
}

// Consent returns the user's consent manager, creating it on first use.
func (m *Manager) Consent(userID string) *consent.Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consentLocked(userID)
}

func (m *Manager) consentLocked(userID string) *consent.Manager {
	if c, ok := m.consents[userID]; ok {
		return c
	}
	c := consent.NewManager(m.log, userID, m.prompter, m.consentStore)
	m.consents[userID] = c
	return c
}
