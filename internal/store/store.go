// Package store defines the three sink interfaces the ingest orchestrator
// writes through: a raw blob archive, an append-only analytical table
// (which doubles as the idempotency probe), and an overwrite-style serving
// document. Each has a GCP-flavored implementation (gcpstore) and a
// local/dev implementation (localstore).
package store

import (
	"context"
	"time"

	"github.com/dl-alexandre/gonow-ingest/internal/model"
)

// RawEnvelope wraps one endpoint's raw JSON body with archive metadata.
type RawEnvelope struct {
	FetchedAtUTC  time.Time `json:"fetched_at_utc"`
	ProviderName  string    `json:"provider_name"`
	Endpoint      string    `json:"endpoint"`
	SchemaVersion string    `json:"schema_version"`
	IngestRunID   string    `json:"ingest_run_id"`
	Response      []byte    `json:"-"`
}

// RawArchiveSink persists one endpoint's raw response body, content-addressed
// by area, timestamp, and run id.
type RawArchiveSink interface {
	WriteRaw(ctx context.Context, areaID, endpoint string, at time.Time, envelope RawEnvelope) error
}

// AnalyticalTableSink appends normalized hourly rows and ingest-run audit
// records, and answers the idempotency probe against the same backing
// store.
type AnalyticalTableSink interface {
	InsertHourlyRows(ctx context.Context, rows []model.NormalizedHourlyRow, provider, ingestRunID, schemaVersion string) error
	InsertRunRecord(ctx context.Context, rec model.IngestRunRecord) error
	// HasPriorSuccess reports whether ingest_runs_v1 already holds a
	// status=success row for areaID within the hour bucket containing at.
	// On any query failure it returns (false, err); callers treat an error
	// the same as "not already ingested" per the idempotency probe's
	// fail-open semantics.
	HasPriorSuccess(ctx context.Context, areaID string, at time.Time) (bool, error)
}

// ServingDocSink overwrites the per-area forecast document read by clients.
type ServingDocSink interface {
	WriteForecastDocument(ctx context.Context, doc model.ForecastDocument) error
}

// HourBucket formats t as the "YYYY-MM-DDTHH" bucket key the idempotency
// probe compares against.
func HourBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02T15")
}
