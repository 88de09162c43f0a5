// Package config defines the configuration structures for molsim. No I/O or
// parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// FetchConfig controls the download of the SMILES dataset.
type FetchConfig struct {
	URL       string        `mapstructure:"url"`
	Enabled   bool          `mapstructure:"enabled"` // false reuses dataset.path as-is
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// DatasetConfig locates the local copy of the dataset.
type DatasetConfig struct {
	Path string `mapstructure:"path"`
}

// FingerprintConfig holds Morgan fingerprint parameters.
type FingerprintConfig struct {
	Radius  int `mapstructure:"radius"`
	NumBits int `mapstructure:"num_bits"`
}

// RankingConfig controls how many neighbours are kept and how they are scored.
type RankingConfig struct {
	TopN   int    `mapstructure:"top_n"`
	Metric string `mapstructure:"metric"` // "tanimoto" | "dice"
}

// RenderConfig holds grid image geometry.
type RenderConfig struct {
	MolsPerRow int     `mapstructure:"mols_per_row"`
	CellWidth  int     `mapstructure:"cell_width"`
	CellHeight int     `mapstructure:"cell_height"`
	FontSize   float64 `mapstructure:"font_size"`
}

// OutputConfig lists the artefacts produced by a run.
type OutputConfig struct {
	TopPath    string `mapstructure:"top_path"`
	BottomPath string `mapstructure:"bottom_path"`
	ReportPath string `mapstructure:"report_path"` // empty disables the JSON report
}

// MinIOConfig holds S3-compatible object storage parameters for publishing
// run artefacts.
type MinIOConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
}

// StorageConfig groups object storage backends.
type StorageConfig struct {
	MinIO MinIOConfig `mapstructure:"minio"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"` // empty disables the export
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration of a molsim run.
type Config struct {
	Fetch       FetchConfig       `mapstructure:"fetch"`
	Dataset     DatasetConfig     `mapstructure:"dataset"`
	Fingerprint FingerprintConfig `mapstructure:"fingerprint"`
	Ranking     RankingConfig     `mapstructure:"ranking"`
	Render      RenderConfig      `mapstructure:"render"`
	Output      OutputConfig      `mapstructure:"output"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Log         LogConfig         `mapstructure:"log"`
}

// Validate performs semantic validation of a fully-populated Config and
// returns the first problem found.
func (c *Config) Validate() error {
	if c.Fetch.Enabled {
		u, err := url.Parse(c.Fetch.URL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("config: fetch.url %q is not an absolute URL", c.Fetch.URL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("config: fetch.url scheme %q is unsupported; expected http|https", u.Scheme)
		}
		if c.Fetch.Timeout < 0 {
			return fmt.Errorf("config: fetch.timeout must not be negative, got %s", c.Fetch.Timeout)
		}
	}
	if strings.TrimSpace(c.Dataset.Path) == "" {
		return fmt.Errorf("config: dataset.path is required")
	}

	if c.Fingerprint.Radius < 0 {
		return fmt.Errorf("config: fingerprint.radius must be ≥ 0, got %d", c.Fingerprint.Radius)
	}
	if c.Fingerprint.NumBits < 1 {
		return fmt.Errorf("config: fingerprint.num_bits must be ≥ 1, got %d", c.Fingerprint.NumBits)
	}

	if c.Ranking.TopN < 1 {
		return fmt.Errorf("config: ranking.top_n must be ≥ 1, got %d", c.Ranking.TopN)
	}
	switch strings.ToLower(c.Ranking.Metric) {
	case "tanimoto", "dice":
	default:
		return fmt.Errorf("config: ranking.metric %q is invalid; expected tanimoto|dice", c.Ranking.Metric)
	}

	if c.Render.MolsPerRow < 1 {
		return fmt.Errorf("config: render.mols_per_row must be ≥ 1, got %d", c.Render.MolsPerRow)
	}
	if c.Render.CellWidth < 1 || c.Render.CellHeight < 1 {
		return fmt.Errorf("config: render cell size %dx%d is invalid", c.Render.CellWidth, c.Render.CellHeight)
	}
	if c.Render.FontSize <= 0 {
		return fmt.Errorf("config: render.font_size must be positive, got %g", c.Render.FontSize)
	}

	if c.Output.TopPath == "" || c.Output.BottomPath == "" {
		return fmt.Errorf("config: output.top_path and output.bottom_path are required")
	}
	if c.Output.TopPath == c.Output.BottomPath {
		return fmt.Errorf("config: output.top_path and output.bottom_path must differ")
	}

	if m := c.Storage.MinIO; m.Enabled {
		if m.Endpoint == "" {
			return fmt.Errorf("config: storage.minio.endpoint is required when storage.minio.enabled is set")
		}
		if m.Bucket == "" {
			return fmt.Errorf("config: storage.minio.bucket is required when storage.minio.enabled is set")
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
