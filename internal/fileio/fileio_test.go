package fileio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leengari/tabflow/internal/table"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCSVInfersTypes(t *testing.T) {
	path := writeFile(t, t.TempDir(), "in.csv",
		"id,score,active,label\n1,1.5,true,x\n2,2,false,y\n")

	tbl, err := ReadCSV(path, "in", CSVReadOptions{})
	require.NoError(t, err)

	id, _ := tbl.Column("id")
	assert.Equal(t, table.TypeInt64, id.Type)
	assert.Equal(t, []any{int64(1), int64(2)}, id.Values)

	score, _ := tbl.Column("score")
	assert.Equal(t, table.TypeFloat64, score.Type)

	active, _ := tbl.Column("active")
	assert.Equal(t, table.TypeBoolean, active.Type)

	label, _ := tbl.Column("label")
	assert.Equal(t, table.TypeString, label.Type)
}

func TestReadCSVEmptyFieldIsNull(t *testing.T) {
	path := writeFile(t, t.TempDir(), "in.csv", "v\n1\n\"\"\n3\n")

	tbl, err := ReadCSV(path, "in", CSVReadOptions{})
	require.NoError(t, err)
	v, _ := tbl.Column("v")
	assert.Equal(t, table.TypeInt64, v.Type)
	assert.True(t, v.IsNull(1))
	assert.Equal(t, int64(3), v.Values[2])
}

func TestCSVSingleColumnNullRoundTrip(t *testing.T) {
	c := table.NewColumn("v", table.TypeInt64, 3)
	c.AppendMaybe(int64(1))
	c.AppendMaybe(nil)
	c.AppendMaybe(int64(3))
	src, err := table.FromColumns("src", []*table.Column{c})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "round.csv")
	require.NoError(t, WriteCSV(path, src, CSVWriteOptions{}))

	back, err := ReadCSV(path, "back", CSVReadOptions{})
	require.NoError(t, err)
	require.Equal(t, 3, back.NumRows(), "the null row must survive the round trip")
	v, _ := back.Column("v")
	assert.True(t, v.IsNull(1))
	assert.Equal(t, c.Values, v.Values)
}

func TestReadCSVNullValueOverride(t *testing.T) {
	na := "NA"
	path := writeFile(t, t.TempDir(), "in.csv", "v\n1\nNA\n2\n")

	tbl, err := ReadCSV(path, "in", CSVReadOptions{
		Schema: []ColumnSchema{{Column: "v", Type: table.TypeInt64, NullValue: &na}},
	})
	require.NoError(t, err)
	v, _ := tbl.Column("v")
	assert.True(t, v.IsNull(1), "the declared null token reads as null")
	assert.Equal(t, int64(2), v.Values[2])

	// Without the override, "NA" is a value and fails the declared type.
	_, err = ReadCSV(path, "in", CSVReadOptions{
		Schema: []ColumnSchema{{Column: "v", Type: table.TypeInt64}},
	})
	require.Error(t, err)
}

func TestReadCSVDeclaredTypeFailureIsHardError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "in.csv", "v\nnot-a-number\n")

	_, err := ReadCSV(path, "in", CSVReadOptions{
		Schema: []ColumnSchema{{Column: "v", Type: table.TypeInt64}},
	})
	var castErr *table.CastError
	require.ErrorAs(t, err, &castErr)
}

func TestReadCSVHeaderless(t *testing.T) {
	path := writeFile(t, t.TempDir(), "in.csv", "1,a\n2,b\n")

	tbl, err := ReadCSV(path, "in", CSVReadOptions{
		NoHeader: true,
		Schema: []ColumnSchema{
			{Column: "id", Type: table.TypeInt64},
			{Column: "name", Type: table.TypeString},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, tbl.ColumnNames())
	assert.Equal(t, 2, tbl.NumRows())

	_, err = ReadCSV(path, "in", CSVReadOptions{NoHeader: true})
	require.Error(t, err, "headerless files need a schema for column names")
}

func TestReadCSVOptions(t *testing.T) {
	path := writeFile(t, t.TempDir(), "in.csv", "a;b;c\n1;2;3\n4;5;6\n7;8;9\n")

	tbl, err := ReadCSV(path, "in", CSVReadOptions{
		Delimiter: ";",
		Columns:   []string{"c", "a"},
		NRows:     2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, tbl.ColumnNames())
	assert.Equal(t, 2, tbl.NumRows())

	_, err = ReadCSV(path, "in", CSVReadOptions{Delimiter: ";;"})
	require.Error(t, err, "multi-rune delimiters are rejected")
}

func TestReadCSVNoInference(t *testing.T) {
	path := writeFile(t, t.TempDir(), "in.csv", "v\n1\n2\n")

	tbl, err := ReadCSV(path, "in", CSVReadOptions{NoInference: true})
	require.NoError(t, err)
	v, _ := tbl.Column("v")
	assert.Equal(t, table.TypeString, v.Type)
	assert.Equal(t, "1", v.Values[0])
}

func TestCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cols := []*table.Column{
		table.NewColumn("id", table.TypeInt64, 3),
		table.NewColumn("name", table.TypeString, 3),
		table.NewColumn("ratio", table.TypeFloat64, 3),
	}
	for _, row := range []struct {
		id    any
		name  any
		ratio any
	}{
		{int64(1), "alpha", 0.5},
		{int64(2), nil, 1.25},
		{nil, "gamma", nil},
	} {
		cols[0].AppendMaybe(row.id)
		cols[1].AppendMaybe(row.name)
		cols[2].AppendMaybe(row.ratio)
	}
	src, err := table.FromColumns("src", cols)
	require.NoError(t, err)

	path := filepath.Join(dir, "out", "round.csv")
	require.NoError(t, WriteCSV(path, src, CSVWriteOptions{}))

	back, err := ReadCSV(path, "back", CSVReadOptions{})
	require.NoError(t, err)
	require.Equal(t, src.NumRows(), back.NumRows())
	for _, c := range src.Columns {
		got, err := back.Column(c.Name)
		require.NoError(t, err)
		assert.Equal(t, c.Type, got.Type, "column %s", c.Name)
		assert.Equal(t, c.Values, got.Values, "column %s", c.Name)
		assert.Equal(t, c.Nulls, got.Nulls, "column %s", c.Name)
	}
}

func TestReadNDJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "in.ndjson",
		`{"id": 1, "meta": {"tag": "x"}}`+"\n"+
			`{"id": 2, "extra": true}`+"\n"+
			`{"id": 3, "meta": null}`+"\n")

	tbl, err := ReadNDJSON(path, "in", NDJSONReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "meta", "extra"}, tbl.ColumnNames())
	require.Equal(t, 3, tbl.NumRows())

	id, _ := tbl.Column("id")
	assert.Equal(t, table.TypeInt64, id.Type)

	meta, _ := tbl.Column("meta")
	assert.Equal(t, table.TypeStruct, meta.Type)
	assert.Equal(t, map[string]any{"tag": "x"}, meta.Values[0])
	assert.True(t, meta.IsNull(2))

	extra, _ := tbl.Column("extra")
	assert.True(t, extra.IsNull(0), "rows missing a key get null")
	assert.Equal(t, true, extra.Values[1])
}

func TestReadNDJSONMixedNumbersPromote(t *testing.T) {
	path := writeFile(t, t.TempDir(), "in.ndjson",
		`{"v": 1}`+"\n"+`{"v": 2.5}`+"\n")

	tbl, err := ReadNDJSON(path, "in", NDJSONReadOptions{})
	require.NoError(t, err)
	v, _ := tbl.Column("v")
	assert.Equal(t, table.TypeFloat64, v.Type)
	assert.Equal(t, []any{float64(1), 2.5}, v.Values)
}

func TestReadNDJSONNRows(t *testing.T) {
	path := writeFile(t, t.TempDir(), "in.ndjson",
		`{"v": 1}`+"\n"+`{"v": 2}`+"\n"+`{"v": 3}`+"\n")

	tbl, err := ReadNDJSON(path, "in", NDJSONReadOptions{NRows: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())
}

func TestNDJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := table.NewColumn("v", table.TypeInt64, 3)
	c.AppendMaybe(int64(1))
	c.AppendMaybe(nil)
	c.AppendMaybe(int64(3))
	src, err := table.FromColumns("src", []*table.Column{c})
	require.NoError(t, err)

	path := filepath.Join(dir, "round.ndjson")
	require.NoError(t, WriteNDJSON(path, src, NDJSONWriteOptions{}))

	back, err := ReadNDJSON(path, "back", NDJSONReadOptions{})
	require.NoError(t, err)
	v, _ := back.Column("v")
	assert.Equal(t, table.TypeInt64, v.Type)
	assert.Equal(t, c.Values, v.Values)
	assert.Equal(t, c.Nulls, v.Nulls)
}
