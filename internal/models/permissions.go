package models

import "time"

// Modality names used by the consent manager.
const (
	ModalityMicrophone    = "microphone"
	ModalityCamera        = "camera"
	ModalityMouseTracking = "mouseTracking"
)

// Permissions maps user-granted modality permissions to aggregator
// activation. Mouse tracking needs no sensitive capability and defaults to
// granted; microphone and camera stay denied until explicit consent.
type Permissions struct {
	Microphone    bool `json:"microphone"`
	Camera        bool `json:"camera"`
	MouseTracking bool `json:"mouseTracking"`
}

// DefaultPermissions returns the pre-consent state.
func DefaultPermissions() Permissions {
	return Permissions{MouseTracking: true}
}

// ConsentRecord persists one installation's permission decisions.
type ConsentRecord struct {
	ID             int    `gorm:"primaryKey"`
	InstallationID string `gorm:"uniqueIndex"`
	Microphone     bool
	Camera         bool
	MouseTracking  bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Permissions converts the stored row back to the runtime record.
func (r *ConsentRecord) Permissions() Permissions {
	return Permissions{
		Microphone:    r.Microphone,
		Camera:        r.Camera,
		MouseTracking: r.MouseTracking,
	}
}
