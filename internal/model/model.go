// Package model holds the data shapes shared across the ingest pipeline:
// the normalized hourly row, daily sun times, the scoring projection, the
// serving document, and the ingest run audit record.
package model

import "time"

// NormalizedHourlyRow is the canonical intermediate record produced by the
// provider adapter. Every metric field is independently optional: nil means
// the source endpoint was missing or the value was absent, never zero.
type NormalizedHourlyRow struct {
	AreaID  string
	HourUTC time.Time

	WaveHeightM   *float64
	WavePeriodS   *float64
	AirTempC      *float64
	FeelslikeC    *float64
	WindMS        *float64
	GustMS        *float64
	PrecipMM      *float64
	UVIndex       *float64
	PM10          *float64
	PM25          *float64
	PrecipProbPct *int
	EuAQI         *int
}

// DailySunRow carries one calendar day's sunrise/sunset instants, used only
// by the scoring engine's sunset gate.
type DailySunRow struct {
	Date       string // YYYY-MM-DD
	SunriseUTC time.Time
	SunsetUTC  time.Time
}

// HourData is the scoring engine's input: a narrow projection of
// NormalizedHourlyRow plus the sunset instant for the hour's local date.
type HourData struct {
	HourUTC       time.Time
	WaveHeightM   *float64
	FeelslikeC    *float64
	GustMS        *float64
	PrecipProbPct *int
	PrecipMM      *float64
	UVIndex       *float64
	EuAQI         *int
	SunsetUTC     *time.Time
}

// ForecastDocument is the serving artifact: overwritten wholesale on every
// successful ingest run, read-only to every other component.
type ForecastDocument struct {
	AreaID       string           `json:"area_id"`
	UpdatedAtUTC time.Time        `json:"updated_at_utc"`
	Provider     string           `json:"provider"`
	HorizonDays  int              `json:"horizon_days"`
	IngestStatus string           `json:"ingest_status"`
	Hours        []HourlyDocEntry `json:"hours"`
	Daily        []DailySunRow    `json:"daily"`
}

// HourlyDocEntry is one element of ForecastDocument.Hours: the 12 metric
// fields keyed by hour, serialized for the reading API.
type HourlyDocEntry struct {
	HourUTC       time.Time `json:"hour_utc"`
	WaveHeightM   *float64  `json:"wave_height_m,omitempty"`
	WavePeriodS   *float64  `json:"wave_period_s,omitempty"`
	AirTempC      *float64  `json:"air_temp_c,omitempty"`
	FeelslikeC    *float64  `json:"feelslike_c,omitempty"`
	WindMS        *float64  `json:"wind_ms,omitempty"`
	GustMS        *float64  `json:"gust_ms,omitempty"`
	PrecipMM      *float64  `json:"precip_mm,omitempty"`
	UVIndex       *float64  `json:"uv_index,omitempty"`
	PM10          *float64  `json:"pm10,omitempty"`
	PM25          *float64  `json:"pm2_5,omitempty"`
	PrecipProbPct *int      `json:"precip_prob_pct,omitempty"`
	EuAQI         *int      `json:"eu_aqi,omitempty"`
}

// IngestRunRecord is the immutable, append-only audit row written once per
// orchestrator invocation.
type IngestRunRecord struct {
	RunID         string    `json:"run_id"`
	AreaID        string    `json:"area_id"`
	StartedAtUTC  time.Time `json:"started_at_utc"`
	FinishedAtUTC time.Time `json:"finished_at_utc"`
	Status        string    `json:"status"` // success | degraded | failed | skipped
	Provider      string    `json:"provider"`
	HoursIngested int       `json:"hours_ingested"`
	DQFlags       []string  `json:"dq_flags"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	SchemaVersion string    `json:"schema_version"`
}

// HourToDocEntry projects a NormalizedHourlyRow into its serving-document
// representation.
func HourToDocEntry(r NormalizedHourlyRow) HourlyDocEntry {
	return HourlyDocEntry{
		HourUTC:       r.HourUTC,
		WaveHeightM:   r.WaveHeightM,
		WavePeriodS:   r.WavePeriodS,
		AirTempC:      r.AirTempC,
		FeelslikeC:    r.FeelslikeC,
		WindMS:        r.WindMS,
		GustMS:        r.GustMS,
		PrecipMM:      r.PrecipMM,
		UVIndex:       r.UVIndex,
		PM10:          r.PM10,
		PM25:          r.PM25,
		PrecipProbPct: r.PrecipProbPct,
		EuAQI:         r.EuAQI,
	}
}

// ToHourData projects a NormalizedHourlyRow down to the scoring engine's
// input shape, attaching the sunset instant for the row's calendar date
// when one is available in daily.
func ToHourData(r NormalizedHourlyRow, daily []DailySunRow) HourData {
	hd := HourData{
		HourUTC:       r.HourUTC,
		WaveHeightM:   r.WaveHeightM,
		FeelslikeC:    r.FeelslikeC,
		GustMS:        r.GustMS,
		PrecipProbPct: r.PrecipProbPct,
		PrecipMM:      r.PrecipMM,
		UVIndex:       r.UVIndex,
		EuAQI:         r.EuAQI,
	}
	date := r.HourUTC.Format("2006-01-02")
	for _, d := range daily {
		if d.Date == date {
			sunset := d.SunsetUTC
			hd.SunsetUTC = &sunset
			break
		}
	}
	return hd
}
