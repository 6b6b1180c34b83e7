// Package store persists geocoded coordinates. The gym provider is the
// system of record for gyms themselves; this store only carries the derived
// coordinate annotations the resolver produces, keyed by organization and
// gym, so the map does not re-geocode on every snapshot.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gymatlas/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS gym_coordinates (
	organization_id   TEXT NOT NULL,
	gym_id            TEXT NOT NULL,
	lat               DOUBLE PRECISION NOT NULL,
	lng               DOUBLE PRECISION NOT NULL,
	formatted_address TEXT NOT NULL DEFAULT '',
	updated_at        TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (organization_id, gym_id)
)`

// Annotation is one stored coordinate record.
type Annotation struct {
	GymID            string
	Coordinates      models.Coordinates
	FormattedAddress string
	UpdatedAt        time.Time
}

// CoordinateStore reads and writes coordinate annotations in Postgres.
type CoordinateStore struct {
	pool *pgxpool.Pool
}

// New connects to Postgres at dsn and ensures the annotations table exists.
func New(ctx context.Context, dsn string) (*CoordinateStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating gym_coordinates table: %w", err)
	}
	return &CoordinateStore{pool: pool}, nil
}

// Upsert stores the coordinates resolved for one gym, replacing any earlier
// annotation.
func (s *CoordinateStore) Upsert(ctx context.Context, orgID, gymID string, coords models.Coordinates, formattedAddress string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO gym_coordinates (organization_id, gym_id, lat, lng, formatted_address, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (organization_id, gym_id)
		DO UPDATE SET lat = EXCLUDED.lat, lng = EXCLUDED.lng,
		              formatted_address = EXCLUDED.formatted_address,
		              updated_at = EXCLUDED.updated_at`,
		orgID, gymID, coords.Lat, coords.Lng, formattedAddress)
	if err != nil {
		return fmt.Errorf("upserting coordinates for gym %s: %w", gymID, err)
	}
	return nil
}

// ForOrganization returns all stored annotations for one organization,
// keyed by gym ID.
func (s *CoordinateStore) ForOrganization(ctx context.Context, orgID string) (map[string]Annotation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT gym_id, lat, lng, formatted_address, updated_at
		FROM gym_coordinates
		WHERE organization_id = $1`, orgID)
	if err != nil {
		return nil, fmt.Errorf("loading coordinates for organization %s: %w", orgID, err)
	}
	defer rows.Close()

	annotations := make(map[string]Annotation)
	for rows.Next() {
		var a Annotation
		if err := rows.Scan(&a.GymID, &a.Coordinates.Lat, &a.Coordinates.Lng, &a.FormattedAddress, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning coordinate row: %w", err)
		}
		annotations[a.GymID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading coordinate rows: %w", err)
	}
	return annotations, nil
}

// Merge attaches stored annotations to gyms that arrived without coordinates.
// Gyms already carrying coordinates are untouched.
func Merge(gyms []models.Gym, annotations map[string]Annotation) []models.Gym {
	out := make([]models.Gym, len(gyms))
	for i, gym := range gyms {
		if !gym.HasCoordinates() {
			if a, ok := annotations[gym.ID]; ok {
				c := a.Coordinates
				gym.Coordinates = &c
				if gym.FormattedAddress == "" {
					gym.FormattedAddress = a.FormattedAddress
				}
			}
		}
		out[i] = gym
	}
	return out
}

// Close releases the connection pool.
func (s *CoordinateStore) Close() {
	s.pool.Close()
}
