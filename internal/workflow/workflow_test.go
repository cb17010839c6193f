package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/leengari/tabflow/internal/fileio"
	"github.com/leengari/tabflow/internal/table"
)

const pipelineDoc = `
workflow:
  - type: read_csv
    file: measurements.csv
    name: measurements
  - type: read_csv
    file: groups.csv
    name: groups
  - type: filter
    inputTable: measurements
    outputTable: kept
    condition:
      type: gt
      lhs: {type: col, name: value}
      rhs: {type: const, value: 5}
  - type: aggregate
    inputTable: kept
    outputTable: totals
    groupBy: [group_key]
    aggregations:
      - name: total
        aggregation: sum
        expression: {type: col, name: value}
  - type: join
    leftTable: totals
    rightTable: groups
    outputTable: report
    how: left
    leftOn: [group_key]
    rightOn: [group_key]
  - type: sort
    inputTable: report
    outputTable: report
    by: [group_key]
  - type: write_csv
    table: report
    file: report.csv
`

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "measurements.csv",
		"group_key,value\na,10\na,3\nb,7\nb,20\nc,1\n")
	writeFixture(t, dir, "groups.csv",
		"group_key,label\na,alpha\nb,beta\n")

	w, err := Parse([]byte(pipelineDoc))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	ts, err := w.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	report, err := ts.Get("report")
	if err != nil {
		t.Fatalf("report table missing: %v", err)
	}
	if report.NumRows() != 2 {
		t.Fatalf("expected 2 report rows, got %d", report.NumRows())
	}
	total, _ := report.Column("total")
	if diff := cmp.Diff([]any{int64(10), int64(27)}, total.Values); diff != "" {
		t.Errorf("totals mismatch (-want +got):\n%s", diff)
	}
	label, _ := report.Column("label")
	if diff := cmp.Diff([]any{"alpha", "beta"}, label.Values); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}

	out, err := fileio.ReadCSV(filepath.Join(dir, "report.csv"), "out", fileio.CSVReadOptions{})
	if err != nil {
		t.Fatalf("reading written report: %v", err)
	}
	if out.NumRows() != 2 {
		t.Fatalf("written report has %d rows, want 2", out.NumRows())
	}
}

func TestRunAttributesFailureToStep(t *testing.T) {
	doc := `
workflow:
  - type: read_csv
    file: missing.csv
    name: t
`
	w, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	_, err = w.Run(context.Background(), t.TempDir())
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected StepError, got %v", err)
	}
	if stepErr.Index != 0 || stepErr.Type != "read_csv" {
		t.Fatalf("wrong attribution: index %d type %s", stepErr.Index, stepErr.Type)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	w, err := Parse([]byte(pipelineDoc))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.Run(ctx, t.TempDir()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestParseRejectsMalformedDocuments(t *testing.T) {
	if _, err := Parse([]byte(`steps: []`)); err == nil {
		t.Fatal("document without a workflow field must fail")
	}
	if _, err := Parse([]byte("workflow:\n  - type: bogus\n")); err == nil {
		t.Fatal("unknown step type must fail")
	}
}

func TestParseAcceptsJSON(t *testing.T) {
	doc := `{"workflow": [{"type": "concatenate", "inputTables": ["a"], "outputTable": "b"}]}`
	w, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(w.Steps) != 1 || w.Steps[0].Kind() != "concatenate" {
		t.Fatalf("unexpected steps: %+v", w.Steps)
	}
}

func TestRunReturnsFinalTablespace(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "in.csv", "v\n1\n")
	doc := `
workflow:
  - type: read_csv
    file: in.csv
    name: t
`
	w, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	ts, err := w.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, err := ts.Get("t"); err != nil {
		t.Fatalf("table t missing from final tablespace: %v", err)
	}
	var notFound *table.TableNotFoundError
	if _, err := ts.Get("other"); !errors.As(err, &notFound) {
		t.Fatalf("expected TableNotFoundError, got %v", err)
	}
}
