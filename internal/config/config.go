package config

import (
	"os"
	"strconv"
	"time"

	"geodiff/internal/errors"
)

// Config represents the complete application configuration.
type Config struct {
	Geo    GeoConfig
	Data   DataConfig
	Engine EngineConfig
	Report ReportConfig
}

// GeoConfig holds GEO download settings.
type GeoConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DataConfig holds dataset and filtering settings.
type DataConfig struct {
	Accession   string
	CacheDir    string
	MinSamples  int
	LabelPrefix string
}

// EngineConfig holds model-fitting settings.
type EngineConfig struct {
	WeightMaxIter int
	WeightTol     float64
	WeightFloor   float64
	WeightCeiling float64
	Workers       int
}

// ReportConfig holds reporting settings.
type ReportConfig struct {
	OutDir    string
	TopN      int
	PCutoff   float64
	LFCCutoff float64
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Geo: GeoConfig{
			BaseURL: getEnvOrDefault("GEO_BASE_URL", "https://ftp.ncbi.nlm.nih.gov/geo/datasets"),
			Timeout: time.Duration(getEnvIntOrDefault("GEO_TIMEOUT_SECONDS", 120)) * time.Second,
		},
		Data: DataConfig{
			Accession:   getEnvOrDefault("GEO_ACCESSION", ""),
			CacheDir:    getEnvOrDefault("CACHE_DIR", ".geodiff-cache"),
			MinSamples:  getEnvIntOrDefault("FILTER_MIN_SAMPLES", 3),
			LabelPrefix: getEnvOrDefault("LABEL_PREFIX", "sample: "),
		},
		Engine: EngineConfig{
			WeightMaxIter: getEnvIntOrDefault("WEIGHT_MAX_ITER", 10),
			WeightTol:     getEnvFloatOrDefault("WEIGHT_TOL", 1e-6),
			WeightFloor:   getEnvFloatOrDefault("WEIGHT_FLOOR", 0.1),
			WeightCeiling: getEnvFloatOrDefault("WEIGHT_CEILING", 10),
			Workers:       getEnvIntOrDefault("ENGINE_WORKERS", 4),
		},
		Report: ReportConfig{
			OutDir:    getEnvOrDefault("REPORT_DIR", "report"),
			TopN:      getEnvIntOrDefault("REPORT_TOP_N", 25),
			PCutoff:   getEnvFloatOrDefault("P_CUTOFF", 0.01),
			LFCCutoff: getEnvFloatOrDefault("LFC_CUTOFF", 1.0),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Data.MinSamples < 1 {
		return errors.ConfigInvalid("FILTER_MIN_SAMPLES must be >= 1")
	}
	if cfg.Report.PCutoff <= 0 || cfg.Report.PCutoff > 1 {
		return errors.ConfigInvalid("P_CUTOFF must be in (0, 1]")
	}
	if cfg.Report.LFCCutoff < 0 {
		return errors.ConfigInvalid("LFC_CUTOFF must be >= 0")
	}
	if cfg.Engine.WeightFloor <= 0 || cfg.Engine.WeightCeiling < cfg.Engine.WeightFloor {
		return errors.ConfigInvalid("weight clamp must satisfy 0 < floor <= ceiling")
	}
	if cfg.Engine.Workers < 1 {
		return errors.ConfigInvalid("ENGINE_WORKERS must be >= 1")
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloatOrDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
