package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/catalog-insights/internal/cleaning"
)

const (
	defaultRawPath   = "data/netflix_titles.csv"
	defaultCachePath = "data/cleaned_netflix_titles.csv"
)

// PipelineConfig locates the raw and cleaned files and tunes the cleaning
// repairs.
type PipelineConfig struct {
	RawPath     string
	CachePath   string
	MissingDate cleaning.MissingDatePolicy
	Sentinel    string
}

type pipelineYAML struct {
	RawPath     string `yaml:"raw_path"`
	CachePath   string `yaml:"cache_path"`
	MissingDate string `yaml:"missing_date"`
	Sentinel    string `yaml:"sentinel"`
}

// LoadPipelineConfig returns the pipeline settings after applying defaults,
// the YAML file named by PIPELINE_CONFIG (when set) and environment
// variable overrides, in that order.
func LoadPipelineConfig() (PipelineConfig, error) {
	cfg := PipelineConfig{
		RawPath:     defaultRawPath,
		CachePath:   defaultCachePath,
		MissingDate: cleaning.KeepMissingDate,
		Sentinel:    cleaning.DefaultSentinel,
	}

	if path := strings.TrimSpace(os.Getenv("PIPELINE_CONFIG")); path != "" {
		data, err := os.ReadFile(expandHome(path))
		if err != nil {
			return PipelineConfig{}, err
		}
		var y pipelineYAML
		if err := yaml.Unmarshal(data, &y); err != nil {
			return PipelineConfig{}, fmt.Errorf("parse %s: %w", path, err)
		}
		if v := strings.TrimSpace(y.RawPath); v != "" {
			cfg.RawPath = v
		}
		if v := strings.TrimSpace(y.CachePath); v != "" {
			cfg.CachePath = v
		}
		if v := strings.TrimSpace(y.MissingDate); v != "" {
			cfg.MissingDate = cleaning.MissingDatePolicy(v)
		}
		if v := strings.TrimSpace(y.Sentinel); v != "" {
			cfg.Sentinel = v
		}
	}

	if v := strings.TrimSpace(os.Getenv("RAW_DATA_PATH")); v != "" {
		cfg.RawPath = v
	}
	if v := strings.TrimSpace(os.Getenv("CLEANED_DATA_PATH")); v != "" {
		cfg.CachePath = v
	}
	if v := strings.TrimSpace(os.Getenv("MISSING_DATE_POLICY")); v != "" {
		cfg.MissingDate = cleaning.MissingDatePolicy(v)
	}
	if v := strings.TrimSpace(os.Getenv("MISSING_SENTINEL")); v != "" {
		cfg.Sentinel = v
	}

	switch cfg.MissingDate {
	case cleaning.KeepMissingDate, cleaning.DropMissingDate:
	default:
		return PipelineConfig{}, fmt.Errorf("invalid missing_date policy %q (want keep or drop)", cfg.MissingDate)
	}
	cfg.RawPath = expandHome(cfg.RawPath)
	cfg.CachePath = expandHome(cfg.CachePath)
	return cfg, nil
}

// Options returns the cleaning options for this configuration.
func (c PipelineConfig) Options() cleaning.Options {
	return cleaning.Options{MissingDate: c.MissingDate, Sentinel: c.Sentinel}
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
