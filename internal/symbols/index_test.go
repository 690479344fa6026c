package symbols

import (
	"reflect"
	"testing"
)

func sym(name, kind, path string, line int) Symbol {
	return Symbol{Name: name, Kind: kind, Path: path, Line: line}
}

func TestSymbolDerivedForms(t *testing.T) {
	s := sym("foo", "function", "a.py", 3)
	if got := s.Location(); got != "a.py:3" {
		t.Errorf("Location() = %q, want %q", got, "a.py:3")
	}
	if got := s.FullKey(); got != "foo:a.py:3" {
		t.Errorf("FullKey() = %q, want %q", got, "foo:a.py:3")
	}
}

func TestSetAllDeduplicates(t *testing.T) {
	idx := NewIndex()
	a := sym("foo", "function", "a.py", 3)
	idx.SetAll([]Symbol{a, a, a, sym("bar", "class", "b.py", 1)})

	if got := idx.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestSetFileSymbolsReplacesOnlyThatFile(t *testing.T) {
	idx := NewIndex()
	other := sym("keep", "function", "other.py", 10)
	idx.SetAll([]Symbol{
		sym("old1", "function", "a.py", 1),
		sym("old2", "function", "a.py", 2),
		other,
	})

	s1 := []Symbol{sym("new1", "function", "a.py", 5)}
	idx.SetFileSymbols("a.py", s1)
	s2 := []Symbol{sym("new2", "function", "a.py", 7), sym("new3", "class", "a.py", 9)}
	idx.SetFileSymbols("a.py", s2)

	got := idx.Snapshot(nil)
	want := []Symbol{s2[0], s2[1], other}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Snapshot() = %v, want %v", got, want)
	}
}

func TestRemoveFileSymbols(t *testing.T) {
	idx := NewIndex()
	keep := sym("keep", "function", "b.py", 1)
	idx.SetAll([]Symbol{sym("gone", "function", "a.py", 1), keep})

	idx.RemoveFileSymbols("a.py")

	got := idx.Snapshot(nil)
	if !reflect.DeepEqual(got, []Symbol{keep}) {
		t.Errorf("Snapshot() = %v, want only %v", got, keep)
	}
}

func TestSnapshotRanksRecentFirst(t *testing.T) {
	a := sym("aaa", "function", "a.py", 1)
	b := sym("bbb", "function", "b.py", 2)
	c := sym("ccc", "function", "c.py", 3)

	// Ranking must not depend on insertion order.
	orders := [][]Symbol{
		{a, b, c},
		{c, b, a},
		{b, c, a},
	}
	for _, order := range orders {
		idx := NewIndex()
		idx.SetAll(order)

		got := idx.Snapshot([]string{b.FullKey(), a.FullKey()})
		want := []Symbol{b, a, c}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Snapshot(recent=[b,a]) after insert %v = %v, want %v", order, got, want)
		}
	}
}

func TestSnapshotNonRecentOrder(t *testing.T) {
	idx := NewIndex()
	syms := []Symbol{
		sym("zeta", "function", "a.py", 1),
		sym("alpha", "function", "z.py", 9),
		sym("alpha", "function", "a.py", 5),
		sym("alpha", "function", "a.py", 2),
	}
	idx.SetAll(syms)

	got := idx.Snapshot(nil)
	want := []Symbol{syms[3], syms[2], syms[1], syms[0]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Snapshot() = %v, want %v", got, want)
	}
}

func TestSnapshotComparatorIsTotal(t *testing.T) {
	// Two kinds at one location share a full key; their order must
	// still be deterministic.
	fn := sym("dual", "function", "a.py", 4)
	cls := sym("dual", "class", "a.py", 4)

	idx := NewIndex()
	idx.SetAll([]Symbol{fn, cls})

	want := []Symbol{cls, fn} // kind tie-break, "class" < "function"
	for _, recent := range [][]string{nil, {fn.FullKey()}} {
		got := idx.Snapshot(recent)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Snapshot(recent=%v) = %v, want %v", recent, got, want)
		}
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	idx := NewIndex()
	idx.SetAll([]Symbol{sym("foo", "function", "a.py", 1)})

	snap := idx.Snapshot(nil)
	idx.RemoveFileSymbols("a.py")

	if len(snap) != 1 {
		t.Errorf("snapshot mutated by later index change: %v", snap)
	}
}

func TestConcurrentSnapshotAndMutation(t *testing.T) {
	idx := NewIndex()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			idx.SetFileSymbols("a.py", []Symbol{sym("foo", "function", "a.py", i)})
		}
	}()
	for i := 0; i < 200; i++ {
		idx.Snapshot([]string{"foo:a.py:1"})
	}
	<-done
}
