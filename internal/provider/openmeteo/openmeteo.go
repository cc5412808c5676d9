// Package openmeteo implements the one shipped forecast provider: a client
// for Open-Meteo's weather, marine, and air-quality forecast endpoints.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/dl-alexandre/gonow-ingest/internal/model"
	"github.com/dl-alexandre/gonow-ingest/internal/retry"
)

const (
	endpointWeather    = "weather"
	endpointMarine     = "marine"
	endpointAirQuality = "air_quality"

	weatherHourlyParams = "temperature_2m,apparent_temperature,wind_speed_10m,wind_gusts_10m,precipitation_probability,precipitation,uv_index"
	weatherDailyParams  = "sunrise,sunset"
	marineHourlyParams  = "wave_height,wave_period,wave_direction"
	airQualityParams    = "european_aqi,pm10,pm2_5"

	requestTimeout = 30 * time.Second
)

var retryConfig = retry.Config{
	MaxAttempts: 4, // 1 initial + 3 retries
	BaseDelay:   1 * time.Second,
	JitterMax:   500 * time.Millisecond,
}

// Provider fetches and normalizes Open-Meteo forecast data. It satisfies
// the pipeline's {fetch_raw, normalize} capability pair; alternative
// providers can implement the same two methods without touching the
// orchestrator.
type Provider struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New builds a Provider against baseURL, sharing one *http.Client (default
// transport, 30-second timeout) across all three endpoints. The client must not be closed until every
// in-flight FetchRaw call has returned.
func New(baseURL string) *Provider {
	return &Provider{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

type endpointRequest struct {
	name string
	url  string
}

func (p *Provider) buildRequests(lat, lon float64, horizonDays int) []endpointRequest {
	days := strconv.Itoa(horizonDays)
	latS := strconv.FormatFloat(lat, 'f', -1, 64)
	lonS := strconv.FormatFloat(lon, 'f', -1, 64)

	weather := url.Values{
		"latitude":      {latS},
		"longitude":     {lonS},
		"hourly":        {weatherHourlyParams},
		"daily":         {weatherDailyParams},
		"forecast_days": {days},
		"timezone":      {"UTC"},
	}
	marine := url.Values{
		"latitude":      {latS},
		"longitude":     {lonS},
		"hourly":        {marineHourlyParams},
		"forecast_days": {days},
		"timezone":      {"UTC"},
	}
	airQuality := url.Values{
		"latitude":      {latS},
		"longitude":     {lonS},
		"hourly":        {airQualityParams},
		"forecast_days": {days},
		"timezone":      {"UTC"},
	}

	return []endpointRequest{
		{name: endpointWeather, url: p.BaseURL + "/v1/forecast?" + weather.Encode()},
		{name: endpointMarine, url: p.BaseURL + "/v1/marine?" + marine.Encode()},
		{name: endpointAirQuality, url: p.BaseURL + "/v1/air-quality?" + airQuality.Encode()},
	}
}

// FetchRaw issues the three endpoint GETs concurrently, each independently
// wrapped in the retry primitive. It never returns an error: an endpoint
// that fails every attempt is simply absent from the returned map.
func (p *Provider) FetchRaw(ctx context.Context, areaID string, lat, lon float64, horizonDays int) map[string]json.RawMessage {
	requests := p.buildRequests(lat, lon, horizonDays)

	type result struct {
		name string
		body json.RawMessage
		ok   bool
	}
	results := make(chan result, len(requests))

	for _, req := range requests {
		req := req
		go func() {
			body, err := p.fetchEndpointWithRetry(ctx, req.url)
			results <- result{name: req.name, body: body, ok: err == nil}
		}()
	}

	raw := make(map[string]json.RawMessage, len(requests))
	for range requests {
		r := <-results
		if r.ok {
			raw[r.name] = r.body
		}
	}
	return raw
}

func (p *Provider) fetchEndpointWithRetry(ctx context.Context, requestURL string) (json.RawMessage, error) {
	var body json.RawMessage
	err := retry.Do(ctx, retryConfig, func(attempt int) error {
		b, ferr := p.fetchOnce(ctx, requestURL)
		if ferr != nil {
			return ferr
		}
		body = b
		return nil
	})
	return body, err
}

func (p *Provider) fetchOnce(ctx context.Context, requestURL string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("openmeteo: build request: %w", err)
	}

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openmeteo: read body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, classifyStatusError(resp.StatusCode, data)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("openmeteo: invalid JSON response")
	}
	return json.RawMessage(data), nil
}

type weatherHourly struct {
	Time                     []string   `json:"time"`
	Temperature2m            []*float64 `json:"temperature_2m"`
	ApparentTemperature      []*float64 `json:"apparent_temperature"`
	WindSpeed10m             []*float64 `json:"wind_speed_10m"`
	WindGusts10m             []*float64 `json:"wind_gusts_10m"`
	PrecipitationProbability []*float64 `json:"precipitation_probability"`
	Precipitation            []*float64 `json:"precipitation"`
	UVIndex                  []*float64 `json:"uv_index"`
}

type weatherDaily struct {
	Time    []string `json:"time"`
	Sunrise []string `json:"sunrise"`
	Sunset  []string `json:"sunset"`
}

type weatherResponse struct {
	Hourly weatherHourly `json:"hourly"`
	Daily  weatherDaily  `json:"daily"`
}

type marineHourly struct {
	Time       []string   `json:"time"`
	WaveHeight []*float64 `json:"wave_height"`
	WavePeriod []*float64 `json:"wave_period"`
}

type marineResponse struct {
	Hourly marineHourly `json:"hourly"`
}

type airQualityHourly struct {
	Time        []string   `json:"time"`
	EuropeanAQI []*float64 `json:"european_aqi"`
	PM10        []*float64 `json:"pm10"`
	PM25        []*float64 `json:"pm2_5"`
}

type airQualityResponse struct {
	Hourly airQualityHourly `json:"hourly"`
}

// Normalize builds the union of timestamps across whichever endpoints are
// present, sorts them ascending, and composes one NormalizedHourlyRow per
// timestamp by index-lookup into each endpoint's parallel arrays.
func (p *Provider) Normalize(raw map[string]json.RawMessage, areaID string, fetchedAt time.Time) ([]model.NormalizedHourlyRow, []model.DailySunRow) {
	if len(raw) == 0 {
		return nil, nil
	}

	var weather weatherResponse
	var marine marineResponse
	var air airQualityResponse

	haveWeather := decodeIfPresent(raw, endpointWeather, &weather)
	haveMarine := decodeIfPresent(raw, endpointMarine, &marine)
	haveAir := decodeIfPresent(raw, endpointAirQuality, &air)

	weatherIdx := indexOf(weather.Hourly.Time)
	marineIdx := indexOf(marine.Hourly.Time)
	airIdx := indexOf(air.Hourly.Time)

	union := map[string]struct{}{}
	if haveWeather {
		for _, t := range weather.Hourly.Time {
			union[t] = struct{}{}
		}
	}
	if haveMarine {
		for _, t := range marine.Hourly.Time {
			union[t] = struct{}{}
		}
	}
	if haveAir {
		for _, t := range air.Hourly.Time {
			union[t] = struct{}{}
		}
	}

	timestamps := make([]string, 0, len(union))
	for t := range union {
		timestamps = append(timestamps, t)
	}
	sort.Strings(timestamps)

	rows := make([]model.NormalizedHourlyRow, 0, len(timestamps))
	for _, ts := range timestamps {
		hourUTC, err := time.Parse("2006-01-02T15:04", ts)
		if err != nil {
			continue
		}
		hourUTC = hourUTC.UTC()

		row := model.NormalizedHourlyRow{AreaID: areaID, HourUTC: hourUTC}

		if haveWeather {
			if i, ok := weatherIdx[ts]; ok {
				row.AirTempC = at(weather.Hourly.Temperature2m, i)
				row.FeelslikeC = at(weather.Hourly.ApparentTemperature, i)
				row.WindMS = kmhToMS(at(weather.Hourly.WindSpeed10m, i))
				row.GustMS = kmhToMS(at(weather.Hourly.WindGusts10m, i))
				row.PrecipMM = at(weather.Hourly.Precipitation, i)
				row.UVIndex = at(weather.Hourly.UVIndex, i)
				row.PrecipProbPct = toInt(at(weather.Hourly.PrecipitationProbability, i))
			}
		}
		if haveMarine {
			if i, ok := marineIdx[ts]; ok {
				row.WaveHeightM = at(marine.Hourly.WaveHeight, i)
				row.WavePeriodS = at(marine.Hourly.WavePeriod, i)
			}
		}
		if haveAir {
			if i, ok := airIdx[ts]; ok {
				row.EuAQI = toInt(at(air.Hourly.EuropeanAQI, i))
				row.PM10 = at(air.Hourly.PM10, i)
				row.PM25 = at(air.Hourly.PM25, i)
			}
		}

		rows = append(rows, row)
	}

	var daily []model.DailySunRow
	if haveWeather {
		for i, date := range weather.Daily.Time {
			if i >= len(weather.Daily.Sunrise) || i >= len(weather.Daily.Sunset) {
				break
			}
			sunrise, err1 := time.Parse("2006-01-02T15:04", weather.Daily.Sunrise[i])
			sunset, err2 := time.Parse("2006-01-02T15:04", weather.Daily.Sunset[i])
			if err1 != nil || err2 != nil {
				continue
			}
			daily = append(daily, model.DailySunRow{
				Date:       date,
				SunriseUTC: sunrise.UTC(),
				SunsetUTC:  sunset.UTC(),
			})
		}
	}

	return rows, daily
}

func decodeIfPresent(raw map[string]json.RawMessage, endpoint string, dest any) bool {
	body, ok := raw[endpoint]
	if !ok {
		return false
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return false
	}
	return true
}

func indexOf(times []string) map[string]int {
	idx := make(map[string]int, len(times))
	for i, t := range times {
		idx[t] = i
	}
	return idx
}

func at(values []*float64, i int) *float64 {
	if i < 0 || i >= len(values) {
		return nil
	}
	return values[i]
}

// kmhToMS converts a km/h value to m/s, rounded to 2 decimals.
func kmhToMS(kmh *float64) *float64 {
	if kmh == nil {
		return nil
	}
	ms := roundTo(*kmh/3.6, 2)
	return &ms
}

func toInt(v *float64) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

func roundTo(v float64, decimals int) float64 {
	mult := 1.0
	for i := 0; i < decimals; i++ {
		mult *= 10
	}
	return float64(int(v*mult+sign(v)*0.5)) / mult
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
