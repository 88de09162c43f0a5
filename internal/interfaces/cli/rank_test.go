package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDataset(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("smiles zinc_id\n")
	b.WriteString("CCO query\n")
	for i := 2; i <= 25; i++ {
		fmt.Fprintf(&b, "%sO mol%02d\n", strings.Repeat("C", i), i)
	}
	path := filepath.Join(dir, "AAAA.smi")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func offlineArgs(dir string, extra ...string) []string {
	args := []string{
		"--log-level", "error",
		"--offline",
		"--dataset", filepath.Join(dir, "AAAA.smi"),
		"--top-out", filepath.Join(dir, "top.png"),
		"--bottom-out", filepath.Join(dir, "bottom.png"),
	}
	return append(args, extra...)
}

func TestRankCmd_OfflineJSON(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)
	report := filepath.Join(dir, "report.json")
	metricsFile := filepath.Join(dir, "metrics", "molsim.prom")

	args := append([]string{"rank"}, offlineArgs(dir, "-o", "json", "--report", report, "--metrics-out", metricsFile)...)
	out, err := executeRoot(t, args...)
	require.NoError(t, err, out)

	var summary rankSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))

	assert.Equal(t, "query", summary.Query)
	assert.Equal(t, "tanimoto", summary.Metric)
	assert.Equal(t, 25, summary.Molecules)
	require.Len(t, summary.Top, 21)
	require.Len(t, summary.Bottom, 21)
	assert.Equal(t, "query", summary.Top[0].ID)
	assert.Equal(t, "query", summary.Bottom[0].ID)
	assert.Equal(t, "query", summary.Top[1].ID, "the query stays in the pool and ranks first")
	assert.InDelta(t, 1.0, summary.Top[0].Score, 1e-9)
	assert.Equal(t, report, summary.Report)

	f, err := os.Open(filepath.Join(dir, "top.png"))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 4400, cfg.Height)

	assert.FileExists(t, filepath.Join(dir, "bottom.png"))
	assert.FileExists(t, report)
	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `molsim_molecules_total{status="parsed"} 25`)
}

func TestRootCmd_DefaultsToRank(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)

	out, err := executeRoot(t, offlineArgs(dir, "--top-n", "3")...)
	require.NoError(t, err, out)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2+4+4, out)
	assert.True(t, strings.HasPrefix(lines[0], "GRID"))
	assert.Contains(t, lines[2], "query")
	assert.Contains(t, lines[2], "1.000000")
	assert.True(t, strings.HasPrefix(lines[6], "bottom"))
}

func TestRankCmd_MissingDataset(t *testing.T) {
	dir := t.TempDir()

	_, err := executeRoot(t, append([]string{"rank"}, offlineArgs(dir)...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset")
}

func TestRankCmd_InvalidMetric(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)

	_, err := executeRoot(t, append([]string{"rank"}, offlineArgs(dir, "--metric", "cosine")...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ranking.metric")
}

func TestRankSummary_TableRows(t *testing.T) {
	s := &rankSummary{
		Top:    []rankedMolecule{{Rank: 0, ID: "q", Score: 1}, {Rank: 1, ID: "a", Score: 0.5}},
		Bottom: []rankedMolecule{{Rank: 0, ID: "q", Score: 1}},
	}

	rows := s.TableRows()
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"top", "query", "q", "1.000000"}, rows[0])
	assert.Equal(t, []string{"top", "1", "a", "0.500000"}, rows[1])
	assert.Equal(t, []string{"bottom", "query", "q", "1.000000"}, rows[2])
}
