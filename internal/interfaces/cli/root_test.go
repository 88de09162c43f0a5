package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "github.com/turtacn/molsim/pkg/errors"
)

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	if cmd == nil {
		t.Fatal("NewRootCommand should return a command")
	}

	if cmd.Use != "molsim" {
		t.Errorf("expected Use='molsim', got %q", cmd.Use)
	}
	if cmd.Short == "" {
		t.Error("Short should not be empty")
	}
	if cmd.Long == "" {
		t.Error("Long should not be empty")
	}
	if cmd.RunE == nil {
		t.Error("root command should run rank when no subcommand is given")
	}
}

func TestNewRootCommand_SubcommandRegistration(t *testing.T) {
	cmd := NewRootCommand()

	subNames := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subNames[sub.Name()] = true
	}
	for _, name := range []string{"rank", "version"} {
		if !subNames[name] {
			t.Errorf("expected subcommand %q not found", name)
		}
	}
}

func TestNewRootCommand_GlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"config", "log-level", "log-format", "output", "verbose"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("persistent flag %q should exist", name)
		}
	}

	outputFlag := cmd.PersistentFlags().Lookup("output")
	if outputFlag.Shorthand != "o" {
		t.Errorf("output shorthand should be 'o', got %q", outputFlag.Shorthand)
	}
	if outputFlag.DefValue != "table" {
		t.Errorf("output default should be 'table', got %q", outputFlag.DefValue)
	}
}

func TestNewRootCommand_RankFlagsOnRoot(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"url", "dataset", "offline", "top-n", "metric", "radius", "num-bits", "top-out", "bottom-out", "report", "metrics-out", "publish"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("root command should accept rank flag %q", name)
		}
	}
}

func TestFlagOverrides_OnlyChangedFlags(t *testing.T) {
	cmd := NewRankCmd()
	if err := cmd.ParseFlags([]string{"--top-n", "5", "--metric", "dice", "--offline"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	got := flagOverrides(cmd.Flags())
	want := map[string]interface{}{
		"ranking.top_n":  "5",
		"ranking.metric": "dice",
		"fetch.enabled":  false,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d overrides, got %d: %v", len(want), len(got), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("override %q: expected %v, got %v", k, v, got[k])
		}
	}
}

func TestFlagOverrides_OfflineFalse(t *testing.T) {
	cmd := NewRankCmd()
	if err := cmd.ParseFlags([]string{"--offline=false"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if _, ok := flagOverrides(cmd.Flags())["fetch.enabled"]; ok {
		t.Error("--offline=false should not disable fetching")
	}
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := NewRankCmd()
	cmd.SetContext(context.Background())
	_, err := GetCLIContext(cmd)
	if err == nil {
		t.Fatal("expected error when CLIContext is absent")
	}
	if !apperrors.IsCode(err, apperrors.CodeInternal) {
		t.Errorf("expected internal error code, got %v", apperrors.GetCode(err))
	}
}

func TestRankFlags_TopNUsage(t *testing.T) {
	f := NewRankCmd().Flags().Lookup("top-n")
	if f == nil {
		t.Fatal("top-n flag should exist")
	}
	if strings.Contains(f.Usage, "query included") {
		t.Errorf("top-n usage should not count the query: %q", f.Usage)
	}
	if !strings.Contains(f.Usage, "query") {
		t.Errorf("top-n usage should say where the query goes: %q", f.Usage)
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "molsim "+Version) {
		t.Errorf("unexpected version output %q", out.String())
	}
}

func TestPrintError(t *testing.T) {
	cmd := NewRootCommand()
	var errBuf bytes.Buffer
	cmd.SetErr(&errBuf)

	PrintError(cmd, errors.New("boom"))
	if errBuf.String() != "Error: boom\n" {
		t.Errorf("unexpected error output %q", errBuf.String())
	}

	errBuf.Reset()
	PrintError(cmd, nil)
	if errBuf.Len() != 0 {
		t.Error("nil error should print nothing")
	}
}

func TestFormatTable(t *testing.T) {
	headers := []string{"ID", "SCORE"}
	rows := [][]string{
		{"ZINC000000000001", "1.000000"},
		{"a", "0.5"},
	}

	got := FormatTable(headers, rows)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), got)
	}
	if lines[0] != "ID"+strings.Repeat(" ", 16)+"SCORE" {
		t.Errorf("unexpected header line %q", lines[0])
	}
	if lines[1] != strings.Repeat("-", 16)+"  "+strings.Repeat("-", 8) {
		t.Errorf("unexpected separator line %q", lines[1])
	}
	if lines[3] != "a"+strings.Repeat(" ", 17)+"0.5" {
		t.Errorf("unexpected row %q", lines[3])
	}
}

func TestFormatTable_Empty(t *testing.T) {
	if got := FormatTable(nil, nil); got != "" {
		t.Errorf("expected empty table, got %q", got)
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"ab", 4, "ab  "},
		{"abcd", 2, "abcd"},
		{"", 3, "   "},
	}
	for _, tt := range tests {
		if got := padRight(tt.in, tt.width); got != tt.want {
			t.Errorf("padRight(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
