package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dl-alexandre/gonow-ingest/internal/logging"
	"github.com/dl-alexandre/gonow-ingest/internal/model"
	"github.com/dl-alexandre/gonow-ingest/internal/store"
)

var errBoom = errors.New("boom")

type fakeProvider struct {
	raw   map[string]json.RawMessage
	rows  []model.NormalizedHourlyRow
	daily []model.DailySunRow
}

func (p *fakeProvider) FetchRaw(ctx context.Context, areaID string, lat, lon float64, horizonDays int) map[string]json.RawMessage {
	return p.raw
}

func (p *fakeProvider) Normalize(raw map[string]json.RawMessage, areaID string, fetchedAt time.Time) ([]model.NormalizedHourlyRow, []model.DailySunRow) {
	return p.rows, p.daily
}

type fakeRawArchive struct {
	writes int
	err    error
}

func (a *fakeRawArchive) WriteRaw(ctx context.Context, areaID, endpoint string, at time.Time, env store.RawEnvelope) error {
	a.writes++
	return a.err
}

type fakeAnalytical struct {
	priorSuccess bool
	probeErr     error
	insertErr    error
	runRecords   []model.IngestRunRecord
}

func (a *fakeAnalytical) InsertHourlyRows(ctx context.Context, rows []model.NormalizedHourlyRow, provider, ingestRunID, schemaVersion string) error {
	return a.insertErr
}

func (a *fakeAnalytical) InsertRunRecord(ctx context.Context, rec model.IngestRunRecord) error {
	a.runRecords = append(a.runRecords, rec)
	return nil
}

func (a *fakeAnalytical) HasPriorSuccess(ctx context.Context, areaID string, at time.Time) (bool, error) {
	return a.priorSuccess, a.probeErr
}

type fakeServingDoc struct {
	writes int
	err    error
}

func (s *fakeServingDoc) WriteForecastDocument(ctx context.Context, doc model.ForecastDocument) error {
	s.writes++
	return s.err
}

func sampleRows(n int) []model.NormalizedHourlyRow {
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]model.NormalizedHourlyRow, n)
	for i := range rows {
		rows[i] = model.NormalizedHourlyRow{AreaID: "tel_aviv_coast", HourUTC: base.Add(time.Duration(i) * time.Hour)}
	}
	return rows
}

func newTestOrchestrator(provider *fakeProvider, archive *fakeRawArchive, analytical *fakeAnalytical, doc *fakeServingDoc) *Orchestrator {
	return &Orchestrator{
		Provider: provider, RawArchive: archive, Analytical: analytical, ServingDoc: doc,
		Logger: logging.NoOp(),
	}
}

func TestRunSkipsOnPriorSuccess(t *testing.T) {
	o := newTestOrchestrator(&fakeProvider{}, &fakeRawArchive{}, &fakeAnalytical{priorSuccess: true}, &fakeServingDoc{})
	res := o.Run(context.Background(), Request{AreaID: "tel_aviv_coast"})
	if res.Status != "skipped" || res.HoursIngested != 0 {
		t.Errorf("result = %+v, want skipped/0", res)
	}
}

func TestRunFailsWhenAllEndpointsEmpty(t *testing.T) {
	analytical := &fakeAnalytical{}
	o := newTestOrchestrator(&fakeProvider{raw: map[string]json.RawMessage{}}, &fakeRawArchive{}, analytical, &fakeServingDoc{})
	res := o.Run(context.Background(), Request{AreaID: "tel_aviv_coast"})
	if res.Status != "failed" {
		t.Errorf("status = %q, want failed", res.Status)
	}
	if len(analytical.runRecords) != 1 || analytical.runRecords[0].ErrorMessage == "" {
		t.Errorf("expected one failed run record with message, got %+v", analytical.runRecords)
	}
}

func TestRunFailsWhenRawArchiveWriteErrors(t *testing.T) {
	analytical := &fakeAnalytical{}
	provider := &fakeProvider{raw: map[string]json.RawMessage{"weather": json.RawMessage(`{}`)}, rows: sampleRows(5)}
	archive := &fakeRawArchive{err: errBoom}
	doc := &fakeServingDoc{}
	o := newTestOrchestrator(provider, archive, analytical, doc)
	res := o.Run(context.Background(), Request{AreaID: "tel_aviv_coast"})
	if res.Status != "failed" {
		t.Errorf("status = %q, want failed", res.Status)
	}
	if doc.writes != 0 {
		t.Error("serving doc should not be written when raw archive fails")
	}
}

func TestRunDegradedOnLowHourCount(t *testing.T) {
	provider := &fakeProvider{
		raw:  map[string]json.RawMessage{"weather": json.RawMessage(`{}`), "marine": json.RawMessage(`{}`), "air_quality": json.RawMessage(`{}`)},
		rows: sampleRows(50),
	}
	analytical := &fakeAnalytical{}
	doc := &fakeServingDoc{}
	o := newTestOrchestrator(provider, &fakeRawArchive{}, analytical, doc)
	res := o.Run(context.Background(), Request{AreaID: "tel_aviv_coast"})
	if res.Status != "degraded" {
		t.Errorf("status = %q, want degraded", res.Status)
	}
	if doc.writes != 1 {
		t.Errorf("serving doc writes = %d, want 1", doc.writes)
	}
}

func TestRunDegradedOnMissingEndpoint(t *testing.T) {
	provider := &fakeProvider{
		raw:  map[string]json.RawMessage{"weather": json.RawMessage(`{}`)},
		rows: sampleRows(168),
	}
	o := newTestOrchestrator(provider, &fakeRawArchive{}, &fakeAnalytical{}, &fakeServingDoc{})
	res := o.Run(context.Background(), Request{AreaID: "tel_aviv_coast"})
	if res.Status != "degraded" {
		t.Errorf("status = %q, want degraded", res.Status)
	}
}

func TestRunDegradedOnSingleSinkFailure(t *testing.T) {
	provider := &fakeProvider{
		raw:  map[string]json.RawMessage{"weather": json.RawMessage(`{}`), "marine": json.RawMessage(`{}`), "air_quality": json.RawMessage(`{}`)},
		rows: sampleRows(168),
	}
	analytical := &fakeAnalytical{insertErr: errBoom}
	doc := &fakeServingDoc{}
	o := newTestOrchestrator(provider, &fakeRawArchive{}, analytical, doc)
	res := o.Run(context.Background(), Request{AreaID: "tel_aviv_coast"})
	if res.Status != "degraded" {
		t.Errorf("status = %q, want degraded", res.Status)
	}
	if doc.writes != 1 {
		t.Error("serving doc sink should still have been attempted")
	}
}

func TestRunFailsOnBothSinksFailure(t *testing.T) {
	provider := &fakeProvider{
		raw:  map[string]json.RawMessage{"weather": json.RawMessage(`{}`), "marine": json.RawMessage(`{}`), "air_quality": json.RawMessage(`{}`)},
		rows: sampleRows(168),
	}
	analytical := &fakeAnalytical{insertErr: errBoom}
	doc := &fakeServingDoc{err: errBoom}
	o := newTestOrchestrator(provider, &fakeRawArchive{}, analytical, doc)
	res := o.Run(context.Background(), Request{AreaID: "tel_aviv_coast"})
	if res.Status != "failed" {
		t.Errorf("status = %q, want failed", res.Status)
	}
}

func TestNewRunIDFormat(t *testing.T) {
	id := newRunID()
	if len(id) < len("run_20260101_000000_abcdef") {
		t.Errorf("run id %q looks too short", id)
	}
}

func TestDowngradeMonotonic(t *testing.T) {
	if downgrade("success", "degraded") != "degraded" {
		t.Error("success should downgrade to degraded")
	}
	if downgrade("degraded", "success") != "degraded" {
		t.Error("degraded should not upgrade back to success")
	}
	if downgrade("failed", "degraded") != "failed" {
		t.Error("failed is terminal")
	}
}

func TestMissingEndpointsSortedAndComplete(t *testing.T) {
	raw := map[string]json.RawMessage{"weather": json.RawMessage(`{}`)}
	missing := missingEndpoints(raw)
	if len(missing) != 2 || missing[0] != "air_quality" || missing[1] != "marine" {
		t.Errorf("missing = %v, want [air_quality marine]", missing)
	}
}

func TestMissingEndpointsEmptyWhenAllPresent(t *testing.T) {
	raw := map[string]json.RawMessage{
		"weather": json.RawMessage(`{}`), "marine": json.RawMessage(`{}`), "air_quality": json.RawMessage(`{}`),
	}
	if missing := missingEndpoints(raw); len(missing) != 0 {
		t.Errorf("missing = %v, want none", missing)
	}
}

func TestFailRunSetsFailedStatus(t *testing.T) {
	analytical := &fakeAnalytical{}
	o := &Orchestrator{Analytical: analytical, Logger: logging.NoOp()}
	res := o.failRun(context.Background(), o.Logger, "run_x", "area1", time.Now(), "boom")
	if res.Status != "failed" || res.HoursIngested != 0 {
		t.Errorf("result = %+v, want failed/0", res)
	}
	if len(analytical.runRecords) != 1 || analytical.runRecords[0].ErrorMessage != "boom" {
		t.Errorf("expected one failed run record with error message, got %+v", analytical.runRecords)
	}
}
