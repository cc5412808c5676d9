// Package localstore implements store's sink interfaces against the local
// filesystem and an embedded SQLite database, so the ingest pipeline runs
// without live GCP credentials or network access.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dl-alexandre/gonow-ingest/internal/model"
	"github.com/dl-alexandre/gonow-ingest/internal/store"
)

// RawArchive writes raw envelopes under a content-addressed directory tree
// rooted at Dir.
type RawArchive struct {
	Dir string
}

func NewRawArchive(dir string) *RawArchive {
	return &RawArchive{Dir: dir}
}

func (a *RawArchive) WriteRaw(ctx context.Context, areaID, endpoint string, at time.Time, env store.RawEnvelope) error {
	path := filepath.Join(a.Dir, "raw", "openmeteo", endpoint,
		fmt.Sprintf("area_id=%s", areaID),
		at.UTC().Format("2006"), at.UTC().Format("01"), at.UTC().Format("02"), at.UTC().Format("15"),
		env.IngestRunID+".json")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("localstore: mkdir raw archive dir: %w", err)
	}

	var body json.RawMessage = env.Response
	payload := struct {
		Meta     store.RawEnvelope `json:"_meta"`
		Response json.RawMessage   `json:"response"`
	}{Meta: env, Response: body}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("localstore: marshal raw envelope: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("localstore: write raw archive file: %w", err)
	}
	return nil
}

// SQLStore backs the analytical table, the idempotency probe, and the run
// record audit log with one SQLite database file.
type SQLStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and ensures
// the schema exists.
func Open(path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("localstore: mkdir db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("localstore: open sqlite: %w", err)
	}
	s := &SQLStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS hourly_forecast_v1 (
	area_id TEXT NOT NULL,
	hour_utc TEXT NOT NULL,
	wave_height_m REAL, wave_period_s REAL, air_temp_c REAL, feelslike_c REAL,
	wind_ms REAL, gust_ms REAL, precip_mm REAL, uv_index REAL,
	pm10 REAL, pm25 REAL, precip_prob_pct INTEGER, eu_aqi INTEGER,
	fetched_at_utc TEXT NOT NULL, provider TEXT NOT NULL,
	ingest_run_id TEXT NOT NULL, schema_version TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS ingest_runs_v1 (
	run_id TEXT PRIMARY KEY,
	area_id TEXT NOT NULL,
	started_at_utc TEXT NOT NULL,
	finished_at_utc TEXT NOT NULL,
	status TEXT NOT NULL,
	provider TEXT NOT NULL,
	hours_ingested INTEGER NOT NULL,
	dq_flags TEXT NOT NULL,
	error_message TEXT,
	schema_version TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_area_started
	ON ingest_runs_v1(area_id, started_at_utc, status);
`)
	if err != nil {
		return fmt.Errorf("localstore: migrate schema: %w", err)
	}
	return nil
}

func (s *SQLStore) InsertHourlyRows(ctx context.Context, rows []model.NormalizedHourlyRow, provider, ingestRunID, schemaVersion string) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("localstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO hourly_forecast_v1 (
	area_id, hour_utc, wave_height_m, wave_period_s, air_temp_c, feelslike_c,
	wind_ms, gust_ms, precip_mm, uv_index, pm10, pm25, precip_prob_pct, eu_aqi,
	fetched_at_utc, provider, ingest_run_id, schema_version
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("localstore: prepare insert: %w", err)
	}
	defer stmt.Close()

	fetchedAt := time.Now().UTC().Format(time.RFC3339)
	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			r.AreaID, r.HourUTC.UTC().Format(time.RFC3339),
			r.WaveHeightM, r.WavePeriodS, r.AirTempC, r.FeelslikeC,
			r.WindMS, r.GustMS, r.PrecipMM, r.UVIndex, r.PM10, r.PM25,
			r.PrecipProbPct, r.EuAQI,
			fetchedAt, provider, ingestRunID, schemaVersion)
		if err != nil {
			return fmt.Errorf("localstore: insert hourly row for %s: %w", r.HourUTC, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("localstore: commit hourly insert: %w", err)
	}
	return nil
}

func (s *SQLStore) InsertRunRecord(ctx context.Context, rec model.IngestRunRecord) error {
	flags, err := json.Marshal(rec.DQFlags)
	if err != nil {
		return fmt.Errorf("localstore: marshal dq_flags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO ingest_runs_v1 (
	run_id, area_id, started_at_utc, finished_at_utc, status, provider,
	hours_ingested, dq_flags, error_message, schema_version
) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		rec.RunID, rec.AreaID,
		rec.StartedAtUTC.UTC().Format(time.RFC3339), rec.FinishedAtUTC.UTC().Format(time.RFC3339),
		rec.Status, rec.Provider, rec.HoursIngested, string(flags), rec.ErrorMessage, rec.SchemaVersion)
	if err != nil {
		return fmt.Errorf("localstore: insert run record %s: %w", rec.RunID, err)
	}
	return nil
}

func (s *SQLStore) HasPriorSuccess(ctx context.Context, areaID string, at time.Time) (bool, error) {
	bucket := store.HourBucket(at)
	row := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM ingest_runs_v1
WHERE area_id = ? AND status = 'success' AND substr(started_at_utc, 1, 13) = ?`,
		areaID, bucket)

	var count int
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("localstore: idempotency probe query: %w", err)
	}
	return count > 0, nil
}

// ServingDoc overwrites the per-area forecast document as a JSON file under
// Dir.
type ServingDoc struct {
	Dir string
}

func NewServingDoc(dir string) *ServingDoc {
	return &ServingDoc{Dir: dir}
}

func (d *ServingDoc) WriteForecastDocument(ctx context.Context, doc model.ForecastDocument) error {
	if len(doc.Hours) == 0 {
		return nil
	}

	dir := filepath.Join(d.Dir, "forecasts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("localstore: mkdir forecasts dir: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("localstore: marshal forecast document: %w", err)
	}

	path := filepath.Join(dir, doc.AreaID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("localstore: write forecast document: %w", err)
	}
	return nil
}
