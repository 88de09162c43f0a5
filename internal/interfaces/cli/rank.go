package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/turtacn/molsim/internal/application/similarity"
	"github.com/turtacn/molsim/internal/config"
)

// RankOptions holds the rank command flags. Values only reach the
// configuration when the flag is set on the command line.
type RankOptions struct {
	URL        string
	Timeout    time.Duration
	Dataset    string
	Offline    bool
	Radius     int
	NumBits    int
	TopN       int
	Metric     string
	TopOut     string
	BottomOut  string
	Report     string
	MetricsOut string
	Publish    bool
}

// NewRankCmd creates the rank command.
func NewRankCmd() *cobra.Command {
	opts := &RankOptions{}

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Fetch a SMILES library, rank it against its first molecule and render grids",
		Example: `  # Download the default dataset and render both grids
  molsim rank

  # Reuse a local file and write a JSON report
  molsim rank --offline --dataset data/AAAA.smi --report out/report.json

  # Rank with Dice similarity and keep the 10 nearest molecules
  molsim rank --metric dice --top-n 10 -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(cmd, opts)
		},
	}

	addRankFlags(cmd.Flags(), opts)
	return cmd
}

func addRankFlags(f *pflag.FlagSet, opts *RankOptions) {
	f.StringVar(&opts.URL, "url", config.DefaultFetchURL, "dataset URL")
	f.DurationVar(&opts.Timeout, "timeout", config.DefaultFetchTimeout, "download timeout")
	f.StringVar(&opts.Dataset, "dataset", config.DefaultDatasetPath, "local dataset path")
	f.BoolVar(&opts.Offline, "offline", false, "skip the download and read --dataset as-is")
	f.IntVar(&opts.Radius, "radius", config.DefaultFingerprintRadius, "Morgan fingerprint radius")
	f.IntVar(&opts.NumBits, "num-bits", config.DefaultFingerprintNumBits, "fingerprint length in bits")
	f.IntVar(&opts.TopN, "top-n", config.DefaultRankingTopN, "ranked entries per grid; the query is drawn first on top of these")
	f.StringVar(&opts.Metric, "metric", config.DefaultRankingMetric, "similarity metric (tanimoto, dice)")
	f.StringVar(&opts.TopOut, "top-out", config.DefaultOutputTopPath, "most similar grid PNG path")
	f.StringVar(&opts.BottomOut, "bottom-out", config.DefaultOutputBottomPath, "least similar grid PNG path")
	f.StringVar(&opts.Report, "report", "", "JSON report path (disabled when empty)")
	f.StringVar(&opts.MetricsOut, "metrics-out", "", "Prometheus textfile path (disabled when empty)")
	f.BoolVar(&opts.Publish, "publish", false, "upload artifacts to the configured MinIO bucket")
}

func runRank(cmd *cobra.Command, _ *RankOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	svc, err := similarity.NewService(cliCtx.Config, similarity.WithLogger(cliCtx.Logger))
	if err != nil {
		return err
	}
	res, err := svc.Run(cmd.Context())
	if err != nil {
		return err
	}
	return PrintResult(cmd, newRankSummary(res))
}

// ─────────────────────────────────────────────────────────────────────────────
// Output
// ─────────────────────────────────────────────────────────────────────────────

type rankedMolecule struct {
	Rank   int     `json:"rank"`
	ID     string  `json:"id"`
	SMILES string  `json:"smiles"`
	Score  float64 `json:"score"`
}

type rankSummary struct {
	RunID       string           `json:"run_id"`
	Query       string           `json:"query"`
	Metric      string           `json:"metric"`
	Molecules   int              `json:"molecules"`
	Skipped     int              `json:"skipped"`
	Duplicates  int              `json:"duplicates"`
	TopImage    string           `json:"top_image"`
	BottomImage string           `json:"bottom_image"`
	Report      string           `json:"report,omitempty"`
	Uploaded    []string         `json:"uploaded,omitempty"`
	Took        string           `json:"took"`
	Top         []rankedMolecule `json:"top"`
	Bottom      []rankedMolecule `json:"bottom"`
}

func newRankSummary(res *similarity.Result) *rankSummary {
	return &rankSummary{
		RunID:       string(res.RunID),
		Query:       res.Library.QueryID,
		Metric:      string(res.Ranking.Metric),
		Molecules:   res.Library.Len(),
		Skipped:     len(res.Library.Skipped),
		Duplicates:  res.Library.Duplicates,
		TopImage:    res.TopImage,
		BottomImage: res.BottomImage,
		Report:      res.ReportPath,
		Uploaded:    res.Uploaded,
		Took:        res.Duration.Round(time.Millisecond).String(),
		Top:         toRanked(res.Ranking.Top),
		Bottom:      toRanked(res.Ranking.Bottom),
	}
}

func toRanked(entries []similarity.Entry) []rankedMolecule {
	out := make([]rankedMolecule, len(entries))
	for i, e := range entries {
		out[i] = rankedMolecule{Rank: i, ID: e.ID(), SMILES: e.Record.SMILES, Score: e.Score}
	}
	return out
}

func (s *rankSummary) TableHeaders() []string {
	return []string{"GRID", "RANK", "ID", "SCORE"}
}

func (s *rankSummary) TableRows() [][]string {
	rows := make([][]string, 0, len(s.Top)+len(s.Bottom))
	for _, grid := range []struct {
		name    string
		entries []rankedMolecule
	}{{"top", s.Top}, {"bottom", s.Bottom}} {
		for _, m := range grid.entries {
			rank := fmt.Sprintf("%d", m.Rank)
			if m.Rank == 0 {
				rank = "query"
			}
			rows = append(rows, []string{grid.name, rank, m.ID, fmt.Sprintf("%f", m.Score)})
		}
	}
	return rows
}
