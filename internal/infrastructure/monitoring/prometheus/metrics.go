package prometheus

import (
	"time"
)

// Pipeline stage names used as the "stage" label.
const (
	StageFetch       = "fetch"
	StageRead        = "read"
	StageFingerprint = "fingerprint"
	StageRank        = "rank"
	StageRender      = "render"
	StageReport      = "report"
	StagePublish     = "publish"
)

// PipelineMetrics holds the metrics of one similarity run.
type PipelineMetrics struct {
	StageDuration   HistogramVec
	MoleculesTotal  CounterVec
	FetchBytes      GaugeVec
	ImagesRendered  CounterVec
	SimilarityScore HistogramVec
}

var (
	DefaultStageDurationBuckets = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300}
	DefaultSimilarityBuckets    = []float64{.1, .2, .3, .4, .5, .6, .7, .8, .9, 1}
)

// NewPipelineMetrics registers the pipeline metrics on collector.
func NewPipelineMetrics(collector MetricsCollector) *PipelineMetrics {
	return &PipelineMetrics{
		StageDuration:   collector.RegisterHistogram("stage_duration_seconds", "Duration of each pipeline stage", DefaultStageDurationBuckets, "stage"),
		MoleculesTotal:  collector.RegisterCounter("molecules_total", "Dataset entries by outcome", "status"),
		FetchBytes:      collector.RegisterGauge("fetch_bytes", "Size of the downloaded dataset"),
		ImagesRendered:  collector.RegisterCounter("images_rendered_total", "Grid images written", "kind"),
		SimilarityScore: collector.RegisterHistogram("similarity_score", "Similarity of each library molecule to the query", DefaultSimilarityBuckets, "metric"),
	}
}

// Helpers. All of them accept a nil *PipelineMetrics.

func RecordStage(metrics *PipelineMetrics, stage string, d time.Duration) {
	if metrics == nil {
		return
	}
	metrics.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func RecordLibrary(metrics *PipelineMetrics, parsed, skipped, duplicates int) {
	if metrics == nil {
		return
	}
	metrics.MoleculesTotal.WithLabelValues("parsed").Add(float64(parsed))
	metrics.MoleculesTotal.WithLabelValues("skipped").Add(float64(skipped))
	metrics.MoleculesTotal.WithLabelValues("duplicate").Add(float64(duplicates))
}

func RecordFetch(metrics *PipelineMetrics, bytes int64) {
	if metrics == nil {
		return
	}
	metrics.FetchBytes.WithLabelValues().Set(float64(bytes))
}

func RecordImage(metrics *PipelineMetrics, kind string) {
	if metrics == nil {
		return
	}
	metrics.ImagesRendered.WithLabelValues(kind).Inc()
}

func RecordScores(metrics *PipelineMetrics, metric string, scores []float64) {
	if metrics == nil {
		return
	}
	h := metrics.SimilarityScore.WithLabelValues(metric)
	for _, s := range scores {
		h.Observe(s)
	}
}
