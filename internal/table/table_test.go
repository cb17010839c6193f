package table

import (
	"errors"
	"testing"
)

func intColumn(name string, values ...any) *Column {
	c := NewColumn(name, TypeInt64, len(values))
	for _, v := range values {
		c.AppendMaybe(v)
	}
	return c
}

func TestAddColumnRejectsDuplicates(t *testing.T) {
	tbl := New("t")
	if err := tbl.AddColumn(intColumn("a", int64(1))); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if err := tbl.AddColumn(intColumn("a", int64(2))); err == nil {
		t.Fatal("expected duplicate column error")
	}
}

func TestAddColumnRejectsRowCountMismatch(t *testing.T) {
	tbl := New("t")
	if err := tbl.AddColumn(intColumn("a", int64(1), int64(2))); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if err := tbl.AddColumn(intColumn("b", int64(1))); err == nil {
		t.Fatal("expected row count mismatch error")
	}
}

func TestProjectAndDrop(t *testing.T) {
	tbl := New("t")
	_ = tbl.AddColumn(intColumn("a", int64(1)))
	_ = tbl.AddColumn(intColumn("b", int64(2)))
	_ = tbl.AddColumn(intColumn("c", int64(3)))

	p, err := tbl.Project("p", []string{"c", "a"})
	if err != nil {
		t.Fatalf("project failed: %v", err)
	}
	if got := p.ColumnNames(); len(got) != 2 || got[0] != "c" || got[1] != "a" {
		t.Fatalf("unexpected projection order: %v", got)
	}

	d, err := tbl.Drop("d", []string{"b"})
	if err != nil {
		t.Fatalf("drop failed: %v", err)
	}
	if d.HasColumn("b") || !d.HasColumn("a") {
		t.Fatalf("unexpected columns after drop: %v", d.ColumnNames())
	}
	if _, err := tbl.Drop("d", []string{"missing"}); err == nil {
		t.Fatal("expected error dropping a missing column")
	}
}

func TestGatherEmitsNullForNegativePositions(t *testing.T) {
	c := intColumn("a", int64(10), int64(20))
	g := c.Gather([]int{1, -1, 0})
	if g.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", g.Len())
	}
	if g.Values[0].(int64) != 20 || !g.IsNull(1) || g.Values[2].(int64) != 10 {
		t.Fatalf("unexpected gather result: %v nulls %v", g.Values, g.Nulls)
	}
}

func TestTableSpaceGetReportsAvailableNames(t *testing.T) {
	ts := NewTableSpace()
	ts.Put("one", New("one"))
	_, err := ts.Get("two")
	var notFound *TableNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected TableNotFoundError, got %v", err)
	}
	if len(notFound.Available) != 1 || notFound.Available[0] != "one" {
		t.Fatalf("unexpected available list: %v", notFound.Available)
	}
}

func TestTableSpaceMutateRollsBackOnError(t *testing.T) {
	ts := NewTableSpace()
	tbl := New("t")
	_ = tbl.AddColumn(intColumn("a", int64(1)))
	ts.Put("t", tbl)

	err := ts.Mutate("t", func(mt *Table) error {
		_ = mt.AddColumn(intColumn("extra", int64(9)))
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected mutation error")
	}
	got, _ := ts.Get("t")
	if got.HasColumn("extra") {
		t.Fatal("failed mutation must not leave partial changes")
	}
}

func TestCompareAcrossNumericKinds(t *testing.T) {
	cases := []struct {
		a, b any
		want int
	}{
		{int64(1), int64(2), -1},
		{int64(2), float64(2), 0},
		{float64(2.5), int64(2), 1},
		{"a", "b", -1},
		{false, true, -1},
	}
	for _, tc := range cases {
		got, err := Compare(tc.a, tc.b)
		if err != nil {
			t.Fatalf("Compare(%v, %v) failed: %v", tc.a, tc.b, err)
		}
		if got != tc.want {
			t.Errorf("Compare(%v, %v) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
	if _, err := Compare(int64(1), "x"); err == nil {
		t.Fatal("expected error comparing int with string")
	}
}

func TestEncodeKeyDistinguishesTypesAndBoundaries(t *testing.T) {
	a := EncodeKey([]any{"a", "b"}, []bool{false, false})
	b := EncodeKey([]any{"ab", ""}, []bool{false, false})
	if a == b {
		t.Fatal("concatenation boundary must not collide")
	}
	s := EncodeKey([]any{"1"}, []bool{false})
	i := EncodeKey([]any{int64(1)}, []bool{false})
	if s == i {
		t.Fatal("string and int keys must differ")
	}
	// Integral floats share keys with ints for cross-type equi-joins.
	f := EncodeKey([]any{float64(1)}, []bool{false})
	if f != i {
		t.Fatal("integral float should key like the equal int")
	}
}

func TestPromote(t *testing.T) {
	if p, ok := Promote(TypeInt64, TypeFloat64); !ok || p != TypeFloat64 {
		t.Fatalf("int+float should promote to float, got %v %v", p, ok)
	}
	if _, ok := Promote(TypeInt64, TypeString); ok {
		t.Fatal("int+string must not promote")
	}
}
