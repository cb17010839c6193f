package steps

import (
	"context"
	"log/slog"

	"github.com/leengari/tabflow/internal/fileio"
)

// ReadCSVStep loads a CSV file into the tablespace.
type ReadCSVStep struct {
	File    string
	Name    string
	Options fileio.CSVReadOptions
}

func (*ReadCSVStep) Kind() string { return "read_csv" }

func (s *ReadCSVStep) Execute(ctx context.Context, env *Env) error {
	t, err := fileio.ReadCSV(env.ResolvePath(s.File), s.Name, s.Options)
	if err != nil {
		return err
	}
	slog.Debug("CSV loaded",
		slog.String("file", s.File),
		slog.String("table", s.Name),
		slog.Int("rows", t.NumRows()),
		slog.Int("columns", t.NumColumns()),
	)
	env.TS.Put(s.Name, t)
	return nil
}

// ReadNDJSONStep loads a newline-delimited JSON file into the tablespace.
type ReadNDJSONStep struct {
	File    string
	Name    string
	Options fileio.NDJSONReadOptions
}

func (*ReadNDJSONStep) Kind() string { return "read_ndjson" }

func (s *ReadNDJSONStep) Execute(ctx context.Context, env *Env) error {
	t, err := fileio.ReadNDJSON(env.ResolvePath(s.File), s.Name, s.Options)
	if err != nil {
		return err
	}
	slog.Debug("NDJSON loaded",
		slog.String("file", s.File),
		slog.String("table", s.Name),
		slog.Int("rows", t.NumRows()),
		slog.Int("columns", t.NumColumns()),
	)
	env.TS.Put(s.Name, t)
	return nil
}

// WriteCSVStep persists a table as CSV. The tablespace is not modified.
type WriteCSVStep struct {
	Table   string
	File    string
	Options fileio.CSVWriteOptions
}

func (*WriteCSVStep) Kind() string { return "write_csv" }

func (s *WriteCSVStep) Execute(ctx context.Context, env *Env) error {
	t, err := env.TS.Get(s.Table)
	if err != nil {
		return err
	}
	if err := fileio.WriteCSV(env.ResolvePath(s.File), t, s.Options); err != nil {
		return err
	}
	slog.Debug("CSV written",
		slog.String("table", s.Table),
		slog.String("file", s.File),
		slog.Int("rows", t.NumRows()),
	)
	return nil
}

// WriteNDJSONStep persists a table as newline-delimited JSON. The write_json
// step is an alias for the same sink, kept for document compatibility.
type WriteNDJSONStep struct {
	Table   string
	File    string
	Options fileio.NDJSONWriteOptions

	// Tag distinguishes write_json from write_ndjson in error reporting.
	Tag string
}

func (s *WriteNDJSONStep) Kind() string {
	if s.Tag != "" {
		return s.Tag
	}
	return "write_ndjson"
}

func (s *WriteNDJSONStep) Execute(ctx context.Context, env *Env) error {
	t, err := env.TS.Get(s.Table)
	if err != nil {
		return err
	}
	if err := fileio.WriteNDJSON(env.ResolvePath(s.File), t, s.Options); err != nil {
		return err
	}
	slog.Debug("NDJSON written",
		slog.String("table", s.Table),
		slog.String("file", s.File),
		slog.Int("rows", t.NumRows()),
	)
	return nil
}
