package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

type Config struct {
	Extractor  ExtractorConfig
	Extraction ExtractionConfig
	Thresholds ThresholdsConfig
	Database   DatabaseConfig
	Web        WebConfig
}

type ExtractorConfig struct {
	URL string // face embedding server, defaults to http://localhost:8000
}

type ExtractionConfig struct {
	MaxWorkers  int           // defaults to the logical CPU count when 0
	IdleTimeout time.Duration // idle worker self-exit timeout (default 10s)
}

// ThresholdsConfig carries the embedding distance thresholds. Defaults come
// from the embedded thresholds.yaml and can be overridden per environment.
type ThresholdsConfig struct {
	ClusterEpsilon   float64 `yaml:"cluster_epsilon"`    // same-person face distance
	MergeMaxDistance float64 `yaml:"merge_max_distance"` // human-reviewed merge proposals
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL for the archive
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type WebConfig struct {
	Addr          string // listen address (default :8080)
	HNSWIndexPath string // path to persist the face index (optional, rebuilt when empty)
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a Go duration ("15s").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var thresholds ThresholdsConfig
	if err := yaml.Unmarshal(thresholdsYAML, &thresholds); err != nil {
		// embedded file, cannot fail in practice
		panic("failed to unmarshal embedded thresholds.yaml: " + err.Error())
	}
	thresholds.ClusterEpsilon = envFloat("CLUSTER_EPSILON", thresholds.ClusterEpsilon)
	thresholds.MergeMaxDistance = envFloat("MERGE_MAX_DISTANCE", thresholds.MergeMaxDistance)

	return &Config{
		Extractor: ExtractorConfig{
			URL: os.Getenv("EXTRACTOR_URL"),
		},
		Extraction: ExtractionConfig{
			MaxWorkers:  envInt("MAX_WORKERS", 0),
			IdleTimeout: envDuration("WORKER_IDLE_TIMEOUT", 10*time.Second),
		},
		Thresholds: thresholds,
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Web: WebConfig{
			Addr:          envString("LISTEN_ADDR", ":8080"),
			HNSWIndexPath: os.Getenv("HNSW_INDEX_PATH"),
		},
	}
}
