// Package repository wraps the persistence queries behind small types so
// the pipeline packages depend on interfaces, not on gorm.
package repository

import (
	"errors"
	"time"

	"learnpulse/internal/models"

	"gorm.io/gorm"
)

// ConsentRepository stores permission records keyed per installation.
type ConsentRepository struct {
	db *gorm.DB
}

func NewConsentRepository(db *gorm.DB) *ConsentRepository {
	return &ConsentRepository{db: db}
}

// LoadPermissions returns the stored record, or nil when none exists yet.
func (r *ConsentRepository) LoadPermissions(installationID string) (*models.Permissions, error) {
	var rec models.ConsentRecord
	err := r.db.Where("installation_id = ?", installationID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := rec.Permissions()
	return &p, nil
}

// SavePermissions upserts the record for the installation.
func (r *ConsentRepository) SavePermissions(installationID string, p models.Permissions) error {
	var rec models.ConsentRecord
	err := r.db.Where("installation_id = ?", installationID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = models.ConsentRecord{InstallationID: installationID}
	} else if err != nil {
		return err
	}
	rec.Microphone = p.Microphone
	rec.Camera = p.Camera
	rec.MouseTracking = p.MouseTracking
	rec.UpdatedAt = time.Now()
	return r.db.Save(&rec).Error
}
