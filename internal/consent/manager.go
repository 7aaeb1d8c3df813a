// Package consent maps user-granted modality permissions to aggregator
// activation and persists the decisions per installation.
package consent

import (
	"context"
	"sync"

	"learnpulse/internal/models"

	"go.uber.org/zap"
)

// Prompter raises the platform device-permission prompts. Implementations
// live at the edge (the learner's UI answers via the consent endpoint);
// tests inject canned outcomes.
type Prompter interface {
	RequestMicrophone(ctx context.Context) (bool, error)
	RequestCamera(ctx context.Context) (bool, error)
}

// Store persists the permission record across sessions.
type Store interface {
	LoadPermissions(installationID string) (*models.Permissions, error)
	SavePermissions(installationID string, p models.Permissions) error
}

// Manager holds the tri-modality permission record for one installation.
// Mouse tracking needs no capability and is the default-on fallback;
// denial of a modality degrades tracking to the remaining ones.
type Manager struct {
	log            *zap.Logger
	installationID string
	prompter       Prompter
	store          Store

	mu    sync.Mutex
	perms models.Permissions
}

// NewManager loads the persisted record, falling back to defaults when
// none exists or loading fails.
func NewManager(log *zap.Logger, installationID string, prompter Prompter, store Store) *Manager {
	m := &Manager{
		log:            log,
		installationID: installationID,
		prompter:       prompter,
		store:          store,
		perms:          models.DefaultPermissions(),
	}
	if store != nil {
		if saved, err := store.LoadPermissions(installationID); err != nil {
			log.Warn("loading permissions failed; using defaults", zap.Error(err))
		} else if saved != nil {
			m.perms = *saved
		}
	}
	return m
}

// Permissions returns a copy of the current record.
func (m *Manager) Permissions() models.Permissions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.perms
}

// Granted reports whether the named modality may activate its adapters.
func (m *Manager) Granted(modality string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch modality {
	case models.ModalityMicrophone:
		return m.perms.Microphone
	case models.ModalityCamera:
		return m.perms.Camera
	case models.ModalityMouseTracking:
		return m.perms.MouseTracking
	}
	return false
}

// Apply records prompt outcomes reported by the learner's UI, which
// raises the platform prompts itself in browser-hosted deployments.
func (m *Manager) Apply(p models.Permissions) {
	m.update(func(cur *models.Permissions) { *cur = p })
}

// RequestMicrophone raises the microphone prompt and records the outcome.
// Denial is non-fatal: it is logged and voice tracking stays off.
func (m *Manager) RequestMicrophone(ctx context.Context) bool {
	if m.prompter == nil {
		return m.Granted(models.ModalityMicrophone)
	}
	granted, err := m.prompter.RequestMicrophone(ctx)
	if err != nil {
		m.log.Info("microphone permission unavailable", zap.Error(err))
		granted = false
	}
	m.update(func(p *models.Permissions) { p.Microphone = granted })
	if !granted {
		m.log.Info("microphone permission denied; voice tracking disabled")
	}
	return granted
}

// RequestCamera raises the camera prompt and records the outcome. Denial
// is non-fatal: it is logged and gaze tracking stays off.
func (m *Manager) RequestCamera(ctx context.Context) bool {
	if m.prompter == nil {
		return m.Granted(models.ModalityCamera)
	}
	granted, err := m.prompter.RequestCamera(ctx)
	if err != nil {
		m.log.Info("camera permission unavailable", zap.Error(err))
		granted = false
	}
	m.update(func(p *models.Permissions) { p.Camera = granted })
	if !granted {
		m.log.Info("camera permission denied; gaze tracking disabled")
	}
	return granted
}

// SetMouseTracking toggles the no-capability modality directly.
func (m *Manager) SetMouseTracking(enabled bool) {
	m.update(func(p *models.Permissions) { p.MouseTracking = enabled })
}

func (m *Manager) update(mutate func(*models.Permissions)) {
	m.mu.Lock()
	mutate(&m.perms)
	perms := m.perms
	m.mu.Unlock()

	if m.store == nil {
		return
	}
	if err := m.store.SavePermissions(m.installationID, perms); err != nil {
		m.log.Warn("persisting permissions failed", zap.Error(err))
	}
}
