// Package dq implements the data-quality checks run over a batch of
// normalized hourly rows before they reach the storage sinks.
package dq

import (
	"fmt"
	"sort"

	"github.com/dl-alexandre/gonow-ingest/internal/model"
)

// veryLowHourCount and lowHourCount are derived from the 168-hour
// (7-day) expected batch size.
const (
	veryLowHourCount    = 100
	lowHourCount        = 140
	nullRateThreshold   = 0.10
	continuityGapSecond = 3600
)

type rangeCheck struct {
	field string
	min   float64
	max   float64
	get   func(model.NormalizedHourlyRow) *float64
}

var rangeChecks = []rangeCheck{
	{"wave_height_m", 0, 10, func(r model.NormalizedHourlyRow) *float64 { return r.WaveHeightM }},
	{"eu_aqi", 0, 500, func(r model.NormalizedHourlyRow) *float64 { return intToFloat(r.EuAQI) }},
	{"uv_index", 0, 15, func(r model.NormalizedHourlyRow) *float64 { return r.UVIndex }},
	{"feelslike_c", -5, 55, func(r model.NormalizedHourlyRow) *float64 { return r.FeelslikeC }},
	{"wind_ms", 0, 50, func(r model.NormalizedHourlyRow) *float64 { return r.WindMS }},
}

type keyMetric struct {
	field string
	get   func(model.NormalizedHourlyRow) *float64
}

var keyMetrics = []keyMetric{
	{"wave_height_m", func(r model.NormalizedHourlyRow) *float64 { return r.WaveHeightM }},
	{"feelslike_c", func(r model.NormalizedHourlyRow) *float64 { return r.FeelslikeC }},
	{"wind_ms", func(r model.NormalizedHourlyRow) *float64 { return r.WindMS }},
	{"uv_index", func(r model.NormalizedHourlyRow) *float64 { return r.UVIndex }},
	{"eu_aqi", func(r model.NormalizedHourlyRow) *float64 { return intToFloat(r.EuAQI) }},
}

func intToFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

// Result is the checker's verdict: an ordered list of human-readable flags
// plus whether the batch should be treated as degraded.
type Result struct {
	Flags    []string
	Degraded bool
}

func (r *Result) addFlag(flag string, degraded bool) {
	r.Flags = append(r.Flags, flag)
	if degraded {
		r.Degraded = true
	}
}

// Check runs every rule over rows and returns the accumulated flags. It
// never raises; a nil or empty rows slice still runs the hour-count check
// (producing a degraded very_low_hour_count:0 flag) before returning.
func Check(rows []model.NormalizedHourlyRow) Result {
	var result Result

	total := len(rows)
	switch {
	case total < veryLowHourCount:
		result.addFlag(fmt.Sprintf("very_low_hour_count:%d", total), true)
	case total < lowHourCount:
		result.addFlag(fmt.Sprintf("low_hour_count:%d", total), false)
	}

	if total == 0 {
		return result
	}

	for _, rc := range rangeChecks {
		outOfRange := 0
		for _, row := range rows {
			v := rc.get(row)
			if v == nil {
				continue
			}
			if *v < rc.min || *v > rc.max {
				outOfRange++
			}
		}
		if outOfRange > 0 {
			result.addFlag(fmt.Sprintf("out_of_range:%s:%d_rows", rc.field, outOfRange), false)
		}
	}

	for _, km := range keyMetrics {
		nullCount := 0
		for _, row := range rows {
			if km.get(row) == nil {
				nullCount++
			}
		}
		rate := float64(nullCount) / float64(total)
		if rate > nullRateThreshold {
			pct := int(rate * 100)
			result.addFlag(fmt.Sprintf("null_rate_high:%s:%d%%", km.field, pct), true)
		}
	}

	sorted := make([]model.NormalizedHourlyRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].HourUTC.Before(sorted[j].HourUTC) })

	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].HourUTC.Sub(sorted[i-1].HourUTC).Seconds()
		if gap > continuityGapSecond {
			gapHours := gap / 3600
			result.addFlag(fmt.Sprintf("timestamp_gap:%s_to_%s:%gh",
				sorted[i-1].HourUTC.Format("2006-01-02T15:04"),
				sorted[i].HourUTC.Format("2006-01-02T15:04"),
				gapHours), false)
		}
	}

	return result
}
