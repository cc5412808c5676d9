package dq

import (
	"strings"
	"testing"
	"time"

	"github.com/dl-alexandre/gonow-ingest/internal/model"
)

func f(v float64) *float64 { return &v }
func iv(v int) *int        { return &v }

func cleanRow(hour time.Time) model.NormalizedHourlyRow {
	return model.NormalizedHourlyRow{
		HourUTC:     hour,
		WaveHeightM: f(0.5),
		FeelslikeC:  f(22),
		WindMS:      f(3),
		UVIndex:     f(4),
		EuAQI:       iv(30),
	}
}

func rows(n int) []model.NormalizedHourlyRow {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.NormalizedHourlyRow, n)
	for i := 0; i < n; i++ {
		out[i] = cleanRow(base.Add(time.Duration(i) * time.Hour))
	}
	return out
}

func TestCheck168CleanRows(t *testing.T) {
	result := Check(rows(168))
	if result.Degraded {
		t.Error("expected not degraded")
	}
	if len(result.Flags) != 0 {
		t.Errorf("flags = %v, want none", result.Flags)
	}
}

func TestCheck130Rows(t *testing.T) {
	result := Check(rows(130))
	if result.Degraded {
		t.Error("expected not degraded at 130 rows")
	}
	if !containsFlag(result.Flags, "low_hour_count:130") {
		t.Errorf("flags = %v, want low_hour_count:130", result.Flags)
	}
}

func TestCheck80Rows(t *testing.T) {
	result := Check(rows(80))
	if !result.Degraded {
		t.Error("expected degraded at 80 rows")
	}
	if !containsFlag(result.Flags, "very_low_hour_count:80") {
		t.Errorf("flags = %v, want very_low_hour_count:80", result.Flags)
	}
}

func TestCheckHighNullRateDegrades(t *testing.T) {
	data := rows(100)
	for i := 0; i < 20; i++ {
		data[i].WaveHeightM = nil
	}
	result := Check(data)
	if !result.Degraded {
		t.Error("expected degraded for >10% nulls")
	}
	if !anyFlagHasPrefix(result.Flags, "null_rate_high:wave_height_m:") {
		t.Errorf("flags = %v, want a null_rate_high:wave_height_m flag", result.Flags)
	}
}

func TestCheckLowNullRateNotDegraded(t *testing.T) {
	data := rows(100)
	for i := 0; i < 5; i++ {
		data[i].WaveHeightM = nil
	}
	result := Check(data)
	if result.Degraded {
		t.Error("expected not degraded for <=10% nulls")
	}
}

func TestCheckTimestampGap(t *testing.T) {
	data := rows(10)
	data[5].HourUTC = data[4].HourUTC.Add(3 * time.Hour)
	result := Check(data)
	if !anyFlagHasPrefix(result.Flags, "timestamp_gap:") {
		t.Errorf("flags = %v, want a timestamp_gap flag", result.Flags)
	}
}

func TestCheckEmptyRows(t *testing.T) {
	result := Check(nil)
	if !result.Degraded {
		t.Error("expected degraded for empty input")
	}
	if !containsFlag(result.Flags, "very_low_hour_count:0") {
		t.Errorf("flags = %v, want very_low_hour_count:0", result.Flags)
	}
}

func containsFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

func anyFlagHasPrefix(flags []string, prefix string) bool {
	for _, f := range flags {
		if strings.HasPrefix(f, prefix) {
			return true
		}
	}
	return false
}
