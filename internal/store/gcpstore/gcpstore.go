// Package gcpstore implements store's sink interfaces against Google Cloud:
// Cloud Storage for the raw archive, BigQuery for the analytical table and
// idempotency probe, and Firestore for the serving document.
package gcpstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/dl-alexandre/gonow-ingest/internal/model"
	"github.com/dl-alexandre/gonow-ingest/internal/store"
)

// RawArchive writes raw envelopes as objects in a GCS bucket.
type RawArchive struct {
	client *storage.Client
	bucket string
}

func NewRawArchive(client *storage.Client, bucket string) *RawArchive {
	return &RawArchive{client: client, bucket: bucket}
}

func (a *RawArchive) WriteRaw(ctx context.Context, areaID, endpoint string, at time.Time, env store.RawEnvelope) error {
	objectName := fmt.Sprintf("raw/openmeteo/%s/area_id=%s/%s/%s/%s/%s/%s.json",
		endpoint, areaID,
		at.UTC().Format("2006"), at.UTC().Format("01"), at.UTC().Format("02"), at.UTC().Format("15"),
		env.IngestRunID)

	payload := struct {
		Meta     store.RawEnvelope `json:"_meta"`
		Response json.RawMessage   `json:"response"`
	}{Meta: env, Response: env.Response}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("gcpstore: marshal raw envelope: %w", err)
	}

	w := a.client.Bucket(a.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("gcpstore: write raw object %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcpstore: close raw object writer %s: %w", objectName, err)
	}
	return nil
}

// hourlyForecastRow is the BigQuery row schema for hourly_forecast_v1.
type hourlyForecastRow struct {
	AreaID        string               `bigquery:"area_id"`
	HourUTC       time.Time            `bigquery:"hour_utc"`
	WaveHeightM   bigquery.NullFloat64 `bigquery:"wave_height_m"`
	WavePeriodS   bigquery.NullFloat64 `bigquery:"wave_period_s"`
	AirTempC      bigquery.NullFloat64 `bigquery:"air_temp_c"`
	FeelslikeC    bigquery.NullFloat64 `bigquery:"feelslike_c"`
	WindMS        bigquery.NullFloat64 `bigquery:"wind_ms"`
	GustMS        bigquery.NullFloat64 `bigquery:"gust_ms"`
	PrecipMM      bigquery.NullFloat64 `bigquery:"precip_mm"`
	UVIndex       bigquery.NullFloat64 `bigquery:"uv_index"`
	PM10          bigquery.NullFloat64 `bigquery:"pm10"`
	PM25          bigquery.NullFloat64 `bigquery:"pm2_5"`
	PrecipProbPct bigquery.NullInt64   `bigquery:"precip_prob_pct"`
	EuAQI         bigquery.NullInt64   `bigquery:"eu_aqi"`
	FetchedAtUTC  time.Time            `bigquery:"fetched_at_utc"`
	Provider      string               `bigquery:"provider"`
	IngestRunID   string               `bigquery:"ingest_run_id"`
	SchemaVersion string               `bigquery:"schema_version"`
}

func nullFloat(v *float64) bigquery.NullFloat64 {
	if v == nil {
		return bigquery.NullFloat64{Valid: false}
	}
	return bigquery.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) bigquery.NullInt64 {
	if v == nil {
		return bigquery.NullInt64{Valid: false}
	}
	return bigquery.NullInt64{Int64: int64(*v), Valid: true}
}

// runRecordRow is the BigQuery row schema for ingest_runs_v1.
type runRecordRow struct {
	RunID         string    `bigquery:"run_id"`
	AreaID        string    `bigquery:"area_id"`
	StartedAtUTC  time.Time `bigquery:"started_at_utc"`
	FinishedAtUTC time.Time `bigquery:"finished_at_utc"`
	Status        string    `bigquery:"status"`
	Provider      string    `bigquery:"provider"`
	HoursIngested int       `bigquery:"hours_ingested"`
	DQFlags       []string  `bigquery:"dq_flags"`
	ErrorMessage  string    `bigquery:"error_message"`
	SchemaVersion string    `bigquery:"schema_version"`
}

// AnalyticalTable backs the hourly forecast table, the run-record audit
// log, and the idempotency probe with one BigQuery dataset.
type AnalyticalTable struct {
	client  *bigquery.Client
	dataset string
}

func NewAnalyticalTable(client *bigquery.Client, dataset string) *AnalyticalTable {
	return &AnalyticalTable{client: client, dataset: dataset}
}

func (t *AnalyticalTable) InsertHourlyRows(ctx context.Context, rows []model.NormalizedHourlyRow, provider, ingestRunID, schemaVersion string) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := t.client.Dataset(t.dataset).Table("hourly_forecast_v1").Inserter()
	fetchedAt := time.Now().UTC()

	bqRows := make([]*hourlyForecastRow, 0, len(rows))
	for _, r := range rows {
		bqRows = append(bqRows, &hourlyForecastRow{
			AreaID:        r.AreaID,
			HourUTC:       r.HourUTC,
			WaveHeightM:   nullFloat(r.WaveHeightM),
			WavePeriodS:   nullFloat(r.WavePeriodS),
			AirTempC:      nullFloat(r.AirTempC),
			FeelslikeC:    nullFloat(r.FeelslikeC),
			WindMS:        nullFloat(r.WindMS),
			GustMS:        nullFloat(r.GustMS),
			PrecipMM:      nullFloat(r.PrecipMM),
			UVIndex:       nullFloat(r.UVIndex),
			PM10:          nullFloat(r.PM10),
			PM25:          nullFloat(r.PM25),
			PrecipProbPct: nullInt(r.PrecipProbPct),
			EuAQI:         nullInt(r.EuAQI),
			FetchedAtUTC:  fetchedAt,
			Provider:      provider,
			IngestRunID:   ingestRunID,
			SchemaVersion: schemaVersion,
		})
	}

	if err := inserter.Put(ctx, bqRows); err != nil {
		return fmt.Errorf("gcpstore: insert %d hourly rows: %w", len(bqRows), err)
	}
	return nil
}

func (t *AnalyticalTable) InsertRunRecord(ctx context.Context, rec model.IngestRunRecord) error {
	inserter := t.client.Dataset(t.dataset).Table("ingest_runs_v1").Inserter()
	row := &runRecordRow{
		RunID: rec.RunID, AreaID: rec.AreaID,
		StartedAtUTC: rec.StartedAtUTC, FinishedAtUTC: rec.FinishedAtUTC,
		Status: rec.Status, Provider: rec.Provider, HoursIngested: rec.HoursIngested,
		DQFlags: rec.DQFlags, ErrorMessage: rec.ErrorMessage, SchemaVersion: rec.SchemaVersion,
	}
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("gcpstore: insert run record %s: %w", rec.RunID, err)
	}
	return nil
}

func (t *AnalyticalTable) HasPriorSuccess(ctx context.Context, areaID string, at time.Time) (bool, error) {
	bucket := store.HourBucket(at)
	q := t.client.Query(fmt.Sprintf(
		"SELECT COUNT(*) as cnt FROM `%s.ingest_runs_v1` WHERE area_id = @area_id AND status = 'success' AND FORMAT_TIMESTAMP('%%Y-%%m-%%dT%%H', started_at_utc) = @bucket",
		t.dataset))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "area_id", Value: areaID},
		{Name: "bucket", Value: bucket},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("gcpstore: idempotency probe query: %w", err)
	}

	var result struct{ Cnt int64 }
	if err := it.Next(&result); err != nil && err != iterator.Done {
		return false, fmt.Errorf("gcpstore: idempotency probe scan: %w", err)
	}
	return result.Cnt > 0, nil
}

// ServingDoc overwrites the per-area forecast document in Firestore.
type ServingDoc struct {
	client *firestore.Client
}

func NewServingDoc(client *firestore.Client) *ServingDoc {
	return &ServingDoc{client: client}
}

func (d *ServingDoc) WriteForecastDocument(ctx context.Context, doc model.ForecastDocument) error {
	if len(doc.Hours) == 0 {
		return nil
	}
	_, err := d.client.Collection("forecasts").Doc(doc.AreaID).Set(ctx, doc)
	if err != nil {
		return fmt.Errorf("gcpstore: write forecast document for %s: %w", doc.AreaID, err)
	}
	return nil
}
