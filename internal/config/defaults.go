package config

import (
	"time"

	"github.com/spf13/viper"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultFetchURL       = "http://files.docking.org/2D/AA/AAAA.smi"
	DefaultFetchEnabled   = true
	DefaultFetchTimeout   = 60 * time.Second
	DefaultFetchUserAgent = "molsim/1.0"

	DefaultDatasetPath = "data/AAAA.smi"

	DefaultFingerprintRadius  = 2
	DefaultFingerprintNumBits = 2048

	DefaultRankingTopN   = 20
	DefaultRankingMetric = "tanimoto"

	DefaultRenderMolsPerRow = 2
	DefaultRenderCellWidth  = 400
	DefaultRenderCellHeight = 400
	DefaultRenderFontSize   = 14.0

	DefaultOutputTopPath    = "out/similarities_top20.png"
	DefaultOutputBottomPath = "out/similarities_bottom20.png"

	DefaultMinIORegion = "us-east-1"
	DefaultMinIOBucket = "molsim-artifacts"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// setDefaults registers every default with v. Registering keys is also what
// lets AutomaticEnv resolve MOLSIM_* variables during Unmarshal when no file
// mentions the key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("fetch.url", DefaultFetchURL)
	v.SetDefault("fetch.enabled", DefaultFetchEnabled)
	v.SetDefault("fetch.timeout", DefaultFetchTimeout)
	v.SetDefault("fetch.user_agent", DefaultFetchUserAgent)

	v.SetDefault("dataset.path", DefaultDatasetPath)

	v.SetDefault("fingerprint.radius", DefaultFingerprintRadius)
	v.SetDefault("fingerprint.num_bits", DefaultFingerprintNumBits)

	v.SetDefault("ranking.top_n", DefaultRankingTopN)
	v.SetDefault("ranking.metric", DefaultRankingMetric)

	v.SetDefault("render.mols_per_row", DefaultRenderMolsPerRow)
	v.SetDefault("render.cell_width", DefaultRenderCellWidth)
	v.SetDefault("render.cell_height", DefaultRenderCellHeight)
	v.SetDefault("render.font_size", DefaultRenderFontSize)

	v.SetDefault("output.top_path", DefaultOutputTopPath)
	v.SetDefault("output.bottom_path", DefaultOutputBottomPath)
	v.SetDefault("output.report_path", "")

	v.SetDefault("storage.minio.enabled", false)
	v.SetDefault("storage.minio.endpoint", "")
	v.SetDefault("storage.minio.access_key_id", "")
	v.SetDefault("storage.minio.secret_access_key", "")
	v.SetDefault("storage.minio.use_ssl", false)
	v.SetDefault("storage.minio.region", DefaultMinIORegion)
	v.SetDefault("storage.minio.bucket", DefaultMinIOBucket)
	v.SetDefault("storage.minio.prefix", "")

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
}

// ApplyDefaults fills zero-value fields in cfg. Booleans are left alone since
// their zero value is meaningful; viper defaults cover them during Load.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Fetch.URL == "" {
		cfg.Fetch.URL = DefaultFetchURL
	}
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = DefaultFetchTimeout
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = DefaultFetchUserAgent
	}

	if cfg.Dataset.Path == "" {
		cfg.Dataset.Path = DefaultDatasetPath
	}

	// Radius 0 is a valid (atom-only) fingerprint, so only NumBits is filled.
	if cfg.Fingerprint.NumBits == 0 {
		cfg.Fingerprint.NumBits = DefaultFingerprintNumBits
	}

	if cfg.Ranking.TopN == 0 {
		cfg.Ranking.TopN = DefaultRankingTopN
	}
	if cfg.Ranking.Metric == "" {
		cfg.Ranking.Metric = DefaultRankingMetric
	}

	if cfg.Render.MolsPerRow == 0 {
		cfg.Render.MolsPerRow = DefaultRenderMolsPerRow
	}
	if cfg.Render.CellWidth == 0 {
		cfg.Render.CellWidth = DefaultRenderCellWidth
	}
	if cfg.Render.CellHeight == 0 {
		cfg.Render.CellHeight = DefaultRenderCellHeight
	}
	if cfg.Render.FontSize == 0 {
		cfg.Render.FontSize = DefaultRenderFontSize
	}

	if cfg.Output.TopPath == "" {
		cfg.Output.TopPath = DefaultOutputTopPath
	}
	if cfg.Output.BottomPath == "" {
		cfg.Output.BottomPath = DefaultOutputBottomPath
	}

	if cfg.Storage.MinIO.Region == "" {
		cfg.Storage.MinIO.Region = DefaultMinIORegion
	}
	if cfg.Storage.MinIO.Bucket == "" {
		cfg.Storage.MinIO.Bucket = DefaultMinIOBucket
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// Default returns a Config populated entirely with defaults.
func Default() *Config {
	cfg := &Config{Fetch: FetchConfig{Enabled: DefaultFetchEnabled}}
	cfg.Fingerprint.Radius = DefaultFingerprintRadius
	ApplyDefaults(cfg)
	return cfg
}
