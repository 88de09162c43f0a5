package prometheus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipelineCollector(t *testing.T) (*PipelineMetrics, MetricsCollector) {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "molsim"}, nil)
	require.NoError(t, err)
	return NewPipelineMetrics(c), c
}

func TestPipelineMetrics_Names(t *testing.T) {
	m, c := newPipelineCollector(t)

	RecordStage(m, StageFetch, 1500*time.Millisecond)
	RecordLibrary(m, 10, 2, 1)
	RecordFetch(m, 1024)
	RecordImage(m, "top")
	RecordImage(m, "bottom")
	RecordScores(m, "tanimoto", []float64{1, 0.35, 0.05})

	out := textfile(t, c)
	assert.Contains(t, out, `molsim_stage_duration_seconds_sum{stage="fetch"} 1.5`)
	assert.Contains(t, out, `molsim_stage_duration_seconds_count{stage="fetch"} 1`)
	assert.Contains(t, out, `molsim_molecules_total{status="parsed"} 10`)
	assert.Contains(t, out, `molsim_molecules_total{status="skipped"} 2`)
	assert.Contains(t, out, `molsim_molecules_total{status="duplicate"} 1`)
	assert.Contains(t, out, "molsim_fetch_bytes 1024")
	assert.Contains(t, out, `molsim_images_rendered_total{kind="top"} 1`)
	assert.Contains(t, out, `molsim_images_rendered_total{kind="bottom"} 1`)
	assert.Contains(t, out, `molsim_similarity_score_count{metric="tanimoto"} 3`)
	assert.Contains(t, out, `molsim_similarity_score_bucket{metric="tanimoto",le="0.1"} 1`)
}

func TestPipelineMetrics_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordStage(nil, StageRank, time.Second)
		RecordLibrary(nil, 1, 1, 1)
		RecordFetch(nil, 1)
		RecordImage(nil, "top")
		RecordScores(nil, "tanimoto", []float64{1})
	})
}
