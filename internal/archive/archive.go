// Package archive persists observed telemetry to PostgreSQL so track
// histories survive process restarts and can be replayed for review.
// Archiving is optional; the bridge runs without it.
package archive

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/skyfence/scenelink/pkg/config"
	"github.com/skyfence/scenelink/pkg/telemetry"
)

//go:embed schema.sql
var schemaSQL embed.FS

// DB wraps a database connection with archive operations.
type DB struct {
	*sql.DB
	config config.DatabaseConfig
}

// ConnectionString builds the lib/pq connection string for a config.
func ConnectionString(cfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)
}

// Connect establishes a connection to the PostgreSQL archive.
func Connect(cfg config.DatabaseConfig) (*DB, error) {
	sqlDB, err := sql.Open("postgres", ConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: sqlDB, config: cfg}, nil
}

// InitSchema creates or updates the archive schema.
// This should be called once at application startup.
func (db *DB) InitSchema(ctx context.Context) error {
	schemaBytes, err := schemaSQL.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// SaveTrackBatch inserts one batch of track samples in a single
// transaction. An empty batch is a no-op.
func (db *DB) SaveTrackBatch(ctx context.Context, batch []telemetry.Track) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO track_samples
			(track_id, longitude, latitude, altitude_m, tracked_at, track_type, track_size, threat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, sample := range batch {
		_, err := stmt.ExecContext(ctx,
			sample.ID,
			sample.Position.Lng,
			sample.Position.Lat,
			sample.AltitudeM,
			sample.TrackedAt.UTC(),
			sample.Type,
			sample.Size,
			nullString(sample.Threat),
		)
		if err != nil {
			return fmt.Errorf("failed to insert sample for track %s: %w", sample.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// SaveAirplaneSample records a single aircraft observation.
func (db *DB) SaveAirplaneSample(ctx context.Context, sample telemetry.Airplane) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO airplane_samples (airplane_id, longitude, latitude, altitude_m, tracked_at, name)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sample.ID,
		sample.Position.Lng,
		sample.Position.Lat,
		sample.AltitudeM,
		sample.TrackedAt.UTC(),
		sample.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to insert airplane sample: %w", err)
	}
	return nil
}

// TrackHistory returns the archived samples for one track, oldest first.
func (db *DB) TrackHistory(ctx context.Context, trackID string, since time.Time) ([]telemetry.Track, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT track_id, longitude, latitude, altitude_m, tracked_at, track_type, track_size, COALESCE(threat, '')
		FROM track_samples
		WHERE track_id = $1 AND tracked_at >= $2
		ORDER BY tracked_at ASC`,
		trackID, since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query track history: %w", err)
	}
	defer rows.Close()

	var history []telemetry.Track
	for rows.Next() {
		var s telemetry.Track
		if err := rows.Scan(&s.ID, &s.Position.Lng, &s.Position.Lat, &s.AltitudeM, &s.TrackedAt, &s.Type, &s.Size, &s.Threat); err != nil {
			return nil, fmt.Errorf("failed to scan track sample: %w", err)
		}
		history = append(history, s)
	}
	return history, rows.Err()
}

// CleanupOldData removes samples older than maxAge.
// Should be called periodically to prevent unbounded growth.
func (db *DB) CleanupOldData(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().UTC().Add(-maxAge)

	if _, err := db.ExecContext(ctx,
		`DELETE FROM track_samples WHERE tracked_at < $1`, cutoff,
	); err != nil {
		return fmt.Errorf("failed to delete old track samples: %w", err)
	}

	if _, err := db.ExecContext(ctx,
		`DELETE FROM airplane_samples WHERE tracked_at < $1`, cutoff,
	); err != nil {
		return fmt.Errorf("failed to delete old airplane samples: %w", err)
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
