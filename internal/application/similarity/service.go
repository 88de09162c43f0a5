package similarity

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/turtacn/molsim/internal/config"
	"github.com/turtacn/molsim/internal/domain/molecule"
	"github.com/turtacn/molsim/internal/infrastructure/dataset"
	"github.com/turtacn/molsim/internal/infrastructure/monitoring/logging"
	metrics "github.com/turtacn/molsim/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molsim/internal/infrastructure/render"
	storage "github.com/turtacn/molsim/internal/infrastructure/storage/minio"
	"github.com/turtacn/molsim/pkg/errors"
	"github.com/turtacn/molsim/pkg/types/common"
	mtypes "github.com/turtacn/molsim/pkg/types/molecule"
)

// ─────────────────────────────────────────────────────────────────────────────
// Collaborators
// ─────────────────────────────────────────────────────────────────────────────

// DatasetFetcher downloads the dataset to a local path.
type DatasetFetcher interface {
	Fetch(ctx context.Context, url, dest string) (*dataset.FetchResult, error)
}

// LibraryReader parses a local dataset file.
type LibraryReader interface {
	ReadFile(path string) (*molecule.Library, error)
}

// GridRenderer writes a grid image of cells to path.
type GridRenderer interface {
	RenderToFile(cells []render.Cell, path string) (int, error)
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFetcher replaces the HTTP fetcher.
func WithFetcher(f DatasetFetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// WithReader replaces the dataset reader.
func WithReader(r LibraryReader) Option {
	return func(s *Service) { s.reader = r }
}

// WithRenderer replaces the grid renderer.
func WithRenderer(r GridRenderer) Option {
	return func(s *Service) { s.renderer = r }
}

// WithArtifactRepository publishes artifacts to repo instead of connecting to
// the configured MinIO endpoint.
func WithArtifactRepository(repo storage.ArtifactRepository) Option {
	return func(s *Service) { s.artifacts = repo }
}

// WithMetricsCollector records pipeline metrics on c.
func WithMetricsCollector(c metrics.MetricsCollector) Option {
	return func(s *Service) { s.collector = c }
}

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

// Result summarises a completed run.
type Result struct {
	RunID       common.ID
	Fetch       *dataset.FetchResult // nil when fetching is disabled
	Library     *molecule.Library
	Ranking     *Ranking
	TopImage    string
	BottomImage string
	ReportPath  string
	Uploaded    []string // object keys
	Duration    time.Duration
}

// Service runs the similarity pipeline described by a Config.
type Service struct {
	cfg           *config.Config
	fetcher       DatasetFetcher
	reader        LibraryReader
	fingerprinter molecule.Fingerprinter
	ranker        *Ranker
	renderer      GridRenderer
	artifacts     storage.ArtifactRepository
	collector     metrics.MetricsCollector
	metrics       *metrics.PipelineMetrics
	logger        logging.Logger
}

// NewService builds a Service from cfg. cfg must already be validated.
func NewService(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrCodeConfig, "config is required")
	}

	s := &Service{cfg: cfg, logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(s)
	}

	metric, err := molecule.ParseSimilarityMetric(cfg.Ranking.Metric)
	if err != nil {
		return nil, err
	}
	calc, err := molecule.NewSimilarityCalculator(metric)
	if err != nil {
		return nil, err
	}
	if s.ranker, err = NewRanker(calc, cfg.Ranking.TopN); err != nil {
		return nil, err
	}
	s.fingerprinter = molecule.NewMorganGenerator(cfg.Fingerprint.Radius, cfg.Fingerprint.NumBits)

	if s.fetcher == nil {
		s.fetcher = dataset.NewFetcher(
			dataset.WithTimeout(cfg.Fetch.Timeout),
			dataset.WithUserAgent(cfg.Fetch.UserAgent),
			dataset.WithLogger(s.logger),
		)
	}
	if s.reader == nil {
		s.reader = dataset.NewReader(s.logger)
	}
	if s.renderer == nil {
		r, err := render.NewGridRenderer(render.Options{
			MolsPerRow: cfg.Render.MolsPerRow,
			CellWidth:  cfg.Render.CellWidth,
			CellHeight: cfg.Render.CellHeight,
			FontSize:   cfg.Render.FontSize,
		}, s.logger)
		if err != nil {
			return nil, err
		}
		s.renderer = r
	}
	if s.collector == nil && cfg.Metrics.Textfile != "" {
		c, err := metrics.NewMetricsCollector(metrics.CollectorConfig{Namespace: "molsim"}, s.logger)
		if err != nil {
			return nil, err
		}
		s.collector = c
	}
	if s.collector != nil {
		s.metrics = metrics.NewPipelineMetrics(s.collector)
	}
	return s, nil
}

// Run executes fetch, read, fingerprint, rank and render, then the optional
// report, publish and metrics stages. Any stage error aborts the run.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: common.NewID()}
	log := s.logger.With(logging.String("run_id", res.RunID.Short()))

	var err error
	if res.Fetch, err = s.fetch(ctx, log); err != nil {
		return nil, err
	}
	if res.Library, err = s.read(log); err != nil {
		return nil, err
	}
	pool, err := s.fingerprint(res.Library, log)
	if err != nil {
		return nil, err
	}
	if res.Ranking, err = s.rank(res.Library.QueryID, pool, log); err != nil {
		return nil, err
	}
	if res.TopImage, res.BottomImage, err = s.render(res.Ranking, log); err != nil {
		return nil, err
	}
	if s.cfg.Output.ReportPath != "" {
		if err := s.writeReport(res, log); err != nil {
			return nil, err
		}
		res.ReportPath = s.cfg.Output.ReportPath
	}
	if s.artifacts != nil || s.cfg.Storage.MinIO.Enabled {
		if res.Uploaded, err = s.publish(ctx, res, log); err != nil {
			return nil, err
		}
	}
	if s.cfg.Metrics.Textfile != "" && s.collector != nil {
		if err := s.collector.WriteToTextfile(s.cfg.Metrics.Textfile); err != nil {
			return nil, err
		}
	}

	res.Duration = time.Since(start)
	log.Info("similarity run complete",
		logging.String("query", res.Library.QueryID),
		logging.Int("molecules", res.Library.Len()),
		logging.String("top", res.TopImage),
		logging.String("bottom", res.BottomImage),
		logging.Duration("took", res.Duration))
	return res, nil
}

func (s *Service) observe(log logging.Logger, stage string, start time.Time) {
	d := time.Since(start)
	metrics.RecordStage(s.metrics, stage, d)
	log.Debug("stage finished", logging.String("stage", stage), logging.Duration("took", d))
}

// ─────────────────────────────────────────────────────────────────────────────
// Stages
// ─────────────────────────────────────────────────────────────────────────────

func (s *Service) fetch(ctx context.Context, log logging.Logger) (*dataset.FetchResult, error) {
	defer s.observe(log, metrics.StageFetch, time.Now())

	path := s.cfg.Dataset.Path
	if !s.cfg.Fetch.Enabled {
		info, err := os.Stat(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "dataset not found and fetching is disabled").WithDetail(path)
		}
		log.Info("using local dataset", logging.String("path", path), logging.Int64("bytes", info.Size()))
		return nil, nil
	}

	fr, err := s.fetcher.Fetch(ctx, s.cfg.Fetch.URL, path)
	if err != nil {
		return nil, err
	}
	metrics.RecordFetch(s.metrics, fr.Bytes)
	return fr, nil
}

func (s *Service) read(log logging.Logger) (*molecule.Library, error) {
	defer s.observe(log, metrics.StageRead, time.Now())

	lib, err := s.reader.ReadFile(s.cfg.Dataset.Path)
	if err != nil {
		return nil, err
	}
	metrics.RecordLibrary(s.metrics, lib.Len(), len(lib.Skipped), lib.Duplicates)
	if lib.Len() == 0 {
		return nil, errors.New(errors.ErrCodeEmptyLibrary, "no molecules parsed").WithDetail(s.cfg.Dataset.Path)
	}
	log.Info("library loaded",
		logging.Int("molecules", lib.Len()),
		logging.Int("skipped", len(lib.Skipped)),
		logging.Int("duplicates", lib.Duplicates),
		logging.String("query", lib.QueryID))
	return lib, nil
}

func (s *Service) fingerprint(lib *molecule.Library, log logging.Logger) ([]Candidate, error) {
	defer s.observe(log, metrics.StageFingerprint, time.Now())

	pool := make([]Candidate, 0, lib.Len())
	for _, rec := range lib.Records {
		fp, err := s.fingerprinter.Generate(rec.Molecule)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeFingerprintGenerationFailed, "fingerprint failed").WithDetail(rec.ID)
		}
		pool = append(pool, Candidate{Record: rec, Fingerprint: fp})
	}
	return pool, nil
}

func (s *Service) rank(queryID string, pool []Candidate, log logging.Logger) (*Ranking, error) {
	defer s.observe(log, metrics.StageRank, time.Now())

	ranking, err := s.ranker.Rank(queryID, pool)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, len(ranking.Scores))
	for i, e := range ranking.Scores {
		scores[i] = e.Score
	}
	metrics.RecordScores(s.metrics, ranking.Metric.String(), scores)
	return ranking, nil
}

func (s *Service) render(r *Ranking, log logging.Logger) (string, string, error) {
	defer s.observe(log, metrics.StageRender, time.Now())

	outputs := []struct {
		kind    string
		path    string
		entries []Entry
	}{
		{"top", s.cfg.Output.TopPath, r.Top},
		{"bottom", s.cfg.Output.BottomPath, r.Bottom},
	}
	for _, o := range outputs {
		n, err := s.renderer.RenderToFile(Cells(o.entries), o.path)
		if err != nil {
			return "", "", err
		}
		metrics.RecordImage(s.metrics, o.kind)
		log.Info("grid image written",
			logging.String("kind", o.kind),
			logging.String("path", o.path),
			logging.Int("cells", len(o.entries)),
			logging.Int("bytes", n))
	}
	return s.cfg.Output.TopPath, s.cfg.Output.BottomPath, nil
}

// Cells converts ranked entries into render cells with their legends.
func Cells(entries []Entry) []render.Cell {
	cells := make([]render.Cell, len(entries))
	for i, e := range entries {
		cells[i] = render.Cell{Molecule: e.Record.Molecule, Legend: e.Legend()}
	}
	return cells
}

func (s *Service) writeReport(res *Result, log logging.Logger) error {
	defer s.observe(log, metrics.StageReport, time.Now())

	report := BuildReport(res.RunID, res.Library, res.Ranking, s.cfg.Fingerprint)
	report.Artifacts = map[string]string{"top": res.TopImage, "bottom": res.BottomImage}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode report")
	}
	path := s.cfg.Output.ReportPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create report directory").WithDetail(path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to write report").WithDetail(path)
	}
	log.Info("report written", logging.String("path", path))
	return nil
}

// BuildReport converts a ranking into its JSON document form.
func BuildReport(runID common.ID, lib *molecule.Library, r *Ranking, fp config.FingerprintConfig) *mtypes.RankingReport {
	report := &mtypes.RankingReport{
		RunID:       runID,
		GeneratedAt: common.NewTimestamp(),
		QueryID:     r.Query.ID(),
		QuerySMILES: r.Query.Record.SMILES,
		Metric:      r.Metric.String(),
		Fingerprint: mtypes.FingerprintParamsDTO{Type: mtypes.FPMorgan, Radius: fp.Radius, NumBits: fp.NumBits},
		Library: mtypes.LibraryStatsDTO{
			Source:     lib.Source,
			Parsed:     lib.Len(),
			Skipped:    len(lib.Skipped),
			Duplicates: lib.Duplicates,
		},
		Top:    scoreDTOs(r.Top),
		Bottom: scoreDTOs(r.Bottom),
	}
	for _, sk := range lib.Skipped {
		report.Library.SkippedAt = append(report.Library.SkippedAt, mtypes.SkippedLineDTO{Line: sk.Line, ID: sk.ID, Reason: sk.Reason})
	}
	return report
}

func scoreDTOs(entries []Entry) []mtypes.ScoreDTO {
	out := make([]mtypes.ScoreDTO, len(entries))
	for i, e := range entries {
		out[i] = mtypes.ScoreDTO{
			Rank:   i,
			ID:     e.ID(),
			SMILES: e.Record.SMILES,
			Score:  e.Score,
			Class:  molecule.ClassifySimilarity(e.Score),
			Legend: e.Legend(),
		}
	}
	return out
}

func (s *Service) publish(ctx context.Context, res *Result, log logging.Logger) ([]string, error) {
	defer s.observe(log, metrics.StagePublish, time.Now())

	if s.artifacts == nil {
		m := s.cfg.Storage.MinIO
		client, err := storage.NewMinIOClient(ctx, &storage.MinIOConfig{
			Endpoint:        m.Endpoint,
			AccessKeyID:     m.AccessKeyID,
			SecretAccessKey: m.SecretAccessKey,
			UseSSL:          m.UseSSL,
			Region:          m.Region,
			Bucket:          m.Bucket,
			Prefix:          m.Prefix,
		}, log)
		if err != nil {
			return nil, err
		}
		s.artifacts = storage.NewArtifactRepository(client, log)
	}

	files := []string{res.TopImage, res.BottomImage}
	if res.ReportPath != "" {
		files = append(files, res.ReportPath)
	}
	keys := make([]string, 0, len(files))
	for _, f := range files {
		key := string(res.RunID) + "/" + filepath.Base(f)
		up, err := s.artifacts.UploadFile(ctx, key, f)
		if err != nil {
			return nil, err
		}
		keys = append(keys, up.ObjectKey)
	}
	log.Info("artifacts published", logging.Strings("keys", keys))
	return keys, nil
}
