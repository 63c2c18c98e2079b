package sectors

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/puertolima/puertolima_core/internal/models"
)

// ErrNoSector is returned when no sector polygon contains the coordinate
var ErrNoSector = errors.New("no sector contains the coordinate")

// Store looks up the geographic sector containing a coordinate
type Store interface {
	LookupSector(ctx context.Context, lat, lon float64) (models.Sector, error)
}

// PostgresStore queries sector polygons stored in PostGIS
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a sector store over an existing connection pool
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// LookupSector returns the sector whose polygon contains the point
func (s *PostgresStore) LookupSector(ctx context.Context, lat, lon float64) (models.Sector, error) {
	const query = `
		SELECT id, name, region
		FROM sectors
		WHERE ST_Contains(geom, ST_SetSRID(ST_MakePoint($1, $2), 4326))
		ORDER BY id
		LIMIT 1`

	var sector models.Sector
	err := s.pool.QueryRow(ctx, query, lon, lat).Scan(&sector.ID, &sector.Name, &sector.Region)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Sector{}, ErrNoSector
	}
	if err != nil {
		return models.Sector{}, fmt.Errorf("sector lookup failed: %w", err)
	}

	return sector, nil
}

// EnsureSchema creates the sector table and spatial index if missing.
// Called by the importer; the API assumes the schema exists.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS sectors (
			id     BIGSERIAL PRIMARY KEY,
			name   TEXT NOT NULL,
			region TEXT NOT NULL DEFAULT '',
			geom   GEOMETRY(MULTIPOLYGON, 4326) NOT NULL
		);
		CREATE INDEX IF NOT EXISTS sectors_geom_idx ON sectors USING GIST (geom)`

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("unable to ensure sector schema: %w", err)
	}
	return nil
}

// ReplaceSectors loads sector features transactionally. With truncate set the
// existing sectors are dropped first, so a failed import never leaves a
// half-replaced table.
func (s *PostgresStore) ReplaceSectors(ctx context.Context, features []SectorFeature, truncate bool) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if truncate {
		if _, err := tx.Exec(ctx, "TRUNCATE sectors RESTART IDENTITY"); err != nil {
			return 0, fmt.Errorf("unable to truncate sectors: %w", err)
		}
	}

	const insert = `
		INSERT INTO sectors (name, region, geom)
		VALUES ($1, $2, ST_Multi(ST_SetSRID(ST_GeomFromGeoJSON($3), 4326)))`

	inserted := 0
	for _, f := range features {
		if _, err := tx.Exec(ctx, insert, f.Name, f.Region, string(f.Geometry)); err != nil {
			return 0, fmt.Errorf("unable to insert sector %q: %w", f.Name, err)
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("unable to commit sector import: %w", err)
	}

	return inserted, nil
}

// RegionFunc adapts a Store to the resolver's region lookup. Lookup misses
// and failures resolve to the empty region; the estimate then uses the port's
// default correction factor instead of failing the comparison.
func RegionFunc(store Store) func(ctx context.Context, c models.Coordinate) string {
	return func(ctx context.Context, c models.Coordinate) string {
		if store == nil {
			return ""
		}
		sector, err := store.LookupSector(ctx, c.Lat, c.Lon)
		if err != nil {
			if !errors.Is(err, ErrNoSector) {
				log.Printf("Sector lookup failed: %v", err)
			}
			return ""
		}
		return sector.Region
	}
}
