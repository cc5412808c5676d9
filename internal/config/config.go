// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config is the immutable set of runtime settings threaded through the
// ingest pipeline. It is read once at process start.
type Config struct {
	GCPProjectID   string
	GCSRawBucket   string
	BQDataset      string
	OpenMeteoBase  string
	LogLevel       string
	Env            string
	Port           int
	AreaID         string
	Lat            float64
	Lon            float64
	HorizonDays    int
	StorageBackend string // "gcp" or "local"
	LocalDataDir   string
}

// FromEnv builds a Config from environment variables, applying the same
// defaults the V1 pipeline was hardcoded with.
func FromEnv() (Config, error) {
	cfg := Config{
		GCPProjectID:   getenv("GCP_PROJECT_ID", "gonow-dev"),
		GCSRawBucket:   getenv("GCS_RAW_BUCKET", "gonow-dev-raw"),
		BQDataset:      getenv("BQ_DATASET", "gonow_v1"),
		OpenMeteoBase:  getenv("OPEN_METEO_BASE_URL", "https://api.open-meteo.com"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		Env:            getenv("ENV", "dev"),
		AreaID:         getenv("AREA_ID", "tel_aviv_coast"),
		StorageBackend: getenv("STORAGE_BACKEND", "local"),
		LocalDataDir:   getenv("LOCAL_DATA_DIR", "./data"),
	}

	var err error
	if cfg.Port, err = getenvInt("PORT", 8080); err != nil {
		return Config{}, err
	}
	if cfg.HorizonDays, err = getenvInt("HORIZON_DAYS", 7); err != nil {
		return Config{}, err
	}
	if cfg.Lat, err = getenvFloat("LAT", 32.08); err != nil {
		return Config{}, err
	}
	if cfg.Lon, err = getenvFloat("LON", 34.77); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s=%q: %w", key, v, err)
	}
	return n, nil
}

func getenvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s=%q: %w", key, v, err)
	}
	return f, nil
}
