// Package ingest implements the eight-step ingest orchestrator state
// machine: idempotency probe, fetch, raw archive, normalize, data-quality
// check, parallel sinks, and the final run record.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dl-alexandre/gonow-ingest/internal/dq"
	"github.com/dl-alexandre/gonow-ingest/internal/model"
	"github.com/dl-alexandre/gonow-ingest/internal/profile"
	"github.com/dl-alexandre/gonow-ingest/internal/store"
)

const (
	schemaVersionRaw     = "raw_v1"
	schemaVersionCurated = "curated_v1"
	schemaVersionRun     = "ingest_run_v1"
	providerName         = "openmeteo"
)

// Provider is the capability pair the orchestrator drives: fetch the raw
// upstream responses, then normalize them into rows.
type Provider interface {
	FetchRaw(ctx context.Context, areaID string, lat, lon float64, horizonDays int) map[string]json.RawMessage
	Normalize(raw map[string]json.RawMessage, areaID string, fetchedAt time.Time) ([]model.NormalizedHourlyRow, []model.DailySunRow)
}

// Request parameterizes one orchestrator invocation.
type Request struct {
	AreaID      string
	Lat         float64
	Lon         float64
	HorizonDays int
}

// Result is what the orchestrator returns to its callers (the trigger
// handler or the local-trigger CLI subcommand).
type Result struct {
	RunID         string `json:"run_id"`
	Status        string `json:"status"`
	HoursIngested int    `json:"hours_ingested"`
}

// Orchestrator wires the provider adapter to the three storage sinks and
// runs the eight-step state machine on each invocation.
type Orchestrator struct {
	Provider   Provider
	RawArchive store.RawArchiveSink
	Analytical store.AnalyticalTableSink
	ServingDoc store.ServingDocSink
	Logger     *zap.SugaredLogger
	// Monitor, if set, records per-step and total run durations for the
	// "serve" subcommand's operator-facing report. Nil is safe.
	Monitor *profile.PerformanceMonitor
}

var expectedEndpoints = []string{"weather", "marine", "air_quality"}

// Run executes one full ingest invocation and always returns a Result; it
// never returns an error; every failure mode is reflected in Result.Status.
func (o *Orchestrator) Run(ctx context.Context, req Request) Result {
	runID := newRunID()
	startedAt := time.Now().UTC()
	runStart := time.Now()
	log := o.Logger.With("run_id", runID, "area_id", req.AreaID)

	if o.Monitor != nil {
		defer func() { o.Monitor.RecordRunTime(time.Since(runStart)) }()
	}

	status := "success"
	var flags []string

	logStep := func(step string, stepStart time.Time, err error) {
		d := time.Since(stepStart)
		if o.Monitor != nil {
			o.Monitor.RecordStepTime(step, d)
		}
		entry := log.With("step", step, "duration_ms", d.Milliseconds())
		if err != nil {
			entry.Errorw("ingest step failed", "error", err)
			return
		}
		entry.Infow("ingest step complete")
	}

	// Step 2: idempotency probe.
	probeStart := time.Now()
	prior, probeErr := o.Analytical.HasPriorSuccess(ctx, req.AreaID, startedAt)
	logStep("idempotency_probe", probeStart, probeErr)
	if probeErr == nil && prior {
		log.Infow("skipping ingest: prior success in this hour bucket")
		return Result{RunID: runID, Status: "skipped", HoursIngested: 0}
	}

	// Step 3: fetch.
	fetchStart := time.Now()
	raw := o.Provider.FetchRaw(ctx, req.AreaID, req.Lat, req.Lon, req.HorizonDays)
	logStep("fetch", fetchStart, nil)
	if len(raw) == 0 {
		return o.failRun(ctx, log, runID, req.AreaID, startedAt, "All provider endpoints failed after retries")
	}

	// Step 4: raw archive.
	archiveStart := time.Now()
	if err := o.writeRawArchive(ctx, req.AreaID, runID, startedAt, raw); err != nil {
		logStep("raw_archive", archiveStart, err)
		return o.failRun(ctx, log, runID, req.AreaID, startedAt, err.Error())
	}
	logStep("raw_archive", archiveStart, nil)
	log.Infow("raw archive written", "size", humanize.Bytes(uint64(totalBytes(raw))))

	// Step 5: normalize.
	normStart := time.Now()
	rows, daily := o.Provider.Normalize(raw, req.AreaID, startedAt)
	logStep("normalize", normStart, nil)

	// Step 6: data quality.
	dqStart := time.Now()
	dqResult := dq.Check(rows)
	if dqResult.Degraded {
		status = "degraded"
	}
	flags = append(flags, dqResult.Flags...)
	if missing := missingEndpoints(raw); len(missing) > 0 {
		status = "degraded"
		flags = append(flags, fmt.Sprintf("missing_endpoints:%s", strings.Join(missing, ",")))
	}
	logStep("dq_check", dqStart, nil)

	// Step 7: parallel sinks.
	sinkStart := time.Now()
	bqErr, fsErr := o.writeSinksParallel(ctx, rows, daily, req, runID, status)
	if bqErr != nil {
		flags = append(flags, fmt.Sprintf("bq_write_failed:%s", bqErr.Error()))
		status = downgrade(status, "degraded")
	}
	if fsErr != nil {
		flags = append(flags, fmt.Sprintf("firestore_write_failed:%s", fsErr.Error()))
		status = downgrade(status, "degraded")
	}
	if bqErr != nil && fsErr != nil {
		status = "failed"
	}
	logStep("parallel_sinks", sinkStart, nil)

	finishedAt := time.Now().UTC()
	rec := model.IngestRunRecord{
		RunID: runID, AreaID: req.AreaID,
		StartedAtUTC: startedAt, FinishedAtUTC: finishedAt,
		Status: status, Provider: providerName, HoursIngested: len(rows),
		DQFlags: flags, SchemaVersion: schemaVersionRun,
	}

	runRecordStart := time.Now()
	if err := o.Analytical.InsertRunRecord(ctx, rec); err != nil {
		log.Errorw("failed to write run record", "error", err)
	}
	logStep("run_record", runRecordStart, nil)

	log.Infow("ingest run complete", "status", status, "hours_ingested", humanize.Comma(int64(len(rows))))
	return Result{RunID: runID, Status: status, HoursIngested: len(rows)}
}

func (o *Orchestrator) writeRawArchive(ctx context.Context, areaID, runID string, fetchedAt time.Time, raw map[string]json.RawMessage) error {
	for endpoint, body := range raw {
		env := store.RawEnvelope{
			FetchedAtUTC: fetchedAt, ProviderName: providerName, Endpoint: endpoint,
			SchemaVersion: schemaVersionRaw, IngestRunID: runID, Response: body,
		}
		if err := o.RawArchive.WriteRaw(ctx, areaID, endpoint, fetchedAt, env); err != nil {
			return fmt.Errorf("write raw archive for endpoint %s: %w", endpoint, err)
		}
	}
	return nil
}

func (o *Orchestrator) writeSinksParallel(ctx context.Context, rows []model.NormalizedHourlyRow, daily []model.DailySunRow, req Request, runID, status string) (bqErr, fsErr error) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		bqErr = o.Analytical.InsertHourlyRows(ctx, rows, providerName, runID, schemaVersionCurated)
	}()

	go func() {
		defer wg.Done()
		entries := make([]model.HourlyDocEntry, 0, len(rows))
		for _, r := range rows {
			entries = append(entries, model.HourToDocEntry(r))
		}
		doc := model.ForecastDocument{
			AreaID: req.AreaID, UpdatedAtUTC: time.Now().UTC(), Provider: providerName,
			HorizonDays: req.HorizonDays, IngestStatus: status, Hours: entries, Daily: daily,
		}
		fsErr = o.ServingDoc.WriteForecastDocument(ctx, doc)
	}()

	wg.Wait()
	return bqErr, fsErr
}

func (o *Orchestrator) failRun(ctx context.Context, log *zap.SugaredLogger, runID, areaID string, startedAt time.Time, message string) Result {
	finishedAt := time.Now().UTC()
	rec := model.IngestRunRecord{
		RunID: runID, AreaID: areaID,
		StartedAtUTC: startedAt, FinishedAtUTC: finishedAt,
		Status: "failed", Provider: providerName, HoursIngested: 0,
		ErrorMessage: message, SchemaVersion: schemaVersionRun,
	}
	if err := o.Analytical.InsertRunRecord(ctx, rec); err != nil {
		log.Errorw("failed to write run record for failed run", "error", err)
	}
	log.Errorw("ingest run failed", "message", message)
	return Result{RunID: runID, Status: "failed", HoursIngested: 0}
}

func totalBytes(raw map[string]json.RawMessage) int {
	n := 0
	for _, body := range raw {
		n += len(body)
	}
	return n
}

func missingEndpoints(raw map[string]json.RawMessage) []string {
	var missing []string
	for _, e := range expectedEndpoints {
		if _, ok := raw[e]; !ok {
			missing = append(missing, e)
		}
	}
	sort.Strings(missing)
	return missing
}

// downgrade applies the monotonic status ordering: success < degraded <
// failed; skipped is terminal and never reached here.
func downgrade(current, proposed string) string {
	rank := map[string]int{"success": 0, "degraded": 1, "failed": 2}
	if rank[proposed] > rank[current] {
		return proposed
	}
	return current
}

// newRunID builds "run_{YYYYMMDD}_{HHMMSS}_{6-char-random}". The random
// suffix is the leading 6 hex digits of a v4 UUID rather than a hand-rolled
// rand.Read.
func newRunID() string {
	now := time.Now().UTC()
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("run_%s_%s_%s", now.Format("20060102"), now.Format("150405"), suffix)
}
