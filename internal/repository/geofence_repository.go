package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/unimark/attendance-api/internal/models"
)

// GeofenceRepository reads the geofence configuration maintained by admin
// tooling. Everything here is read-only from the check-in path's point of
// view.
type GeofenceRepository struct {
	db *sqlx.DB
}

// NewGeofenceRepository constructs the repository.
func NewGeofenceRepository(db *sqlx.DB) *GeofenceRepository {
	return &GeofenceRepository{db: db}
}

// Settings returns the single global geofence settings row. When the row is
// absent the fallback settings are returned and no error is raised.
func (r *GeofenceRepository) Settings(ctx context.Context, fallback models.GeofenceSettings) (models.GeofenceSettings, error) {
	const query = `SELECT enabled, default_radius FROM geofence_settings LIMIT 1`
	var settings models.GeofenceSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		if err == sql.ErrNoRows {
			return fallback, nil
		}
		return fallback, fmt.Errorf("load geofence settings: %w", err)
	}
	return settings, nil
}

// LocationForClass returns the class anchor override, or nil when the class
// has none configured.
func (r *GeofenceRepository) LocationForClass(ctx context.Context, classID string) (*models.ClassLocation, error) {
	const query = `SELECT class_id, latitude, longitude, radius FROM class_locations WHERE class_id = $1 LIMIT 1`
	var loc models.ClassLocation
	if err := r.db.GetContext(ctx, &loc, query, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load class location: %w", err)
	}
	return &loc, nil
}
