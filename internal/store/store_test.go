package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/haricheung/catperiod/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "periods"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGet_MissReturnsFalse(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.Get(17)
	if err != nil || ok {
		t.Errorf("Get(17) on empty store = ok=%v err=%v, want miss", ok, err)
	}
}

func TestPutGet_RoundTripMarksCached(t *testing.T) {
	s := newTestStore(t)
	want := types.Period{N: 8, Classical: 4, Quantum: 8}
	if err := s.Put(want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Get(8)
	if err != nil || !ok {
		t.Fatalf("Get(8) ok=%v err=%v", ok, err)
	}
	if got.N != 8 || got.Classical != 4 || got.Quantum != 8 || !got.Cached {
		t.Errorf("Get(8) = %+v", got)
	}
}

func TestRange_AscendingWithGaps(t *testing.T) {
	s := newTestStore(t)
	// Insert out of order, including N values whose decimal strings do not sort numerically.
	in := []types.Period{
		{N: 100, Classical: 1, Quantum: 1},
		{N: 9, Classical: 18, Quantum: 18},
		{N: 10, Classical: 6, Quantum: 6},
		{N: 2, Classical: 2, Quantum: 2},
	}
	if err := s.PutAll(in); err != nil {
		t.Fatal(err)
	}
	got, err := s.Range(2, 99)
	if err != nil {
		t.Fatal(err)
	}
	wantNs := []int{2, 9, 10}
	if len(got) != len(wantNs) {
		t.Fatalf("Range(2, 99) returned %d entries, want %d: %+v", len(got), len(wantNs), got)
	}
	for i, n := range wantNs {
		if got[i].N != n {
			t.Errorf("Range[%d].N = %d, want %d", i, got[i].N, n)
		}
	}
	if got, _ := s.Range(100, 100); len(got) != 1 || got[0].N != 100 {
		t.Errorf("Range(100, 100) = %+v", got)
	}
}

func TestOpen_RejectsForeignSchema(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "periods")
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Put([]byte(keySchema), []byte("some-other-map"), nil); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if _, err := Open(dir); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("Open err = %v, want ErrSchemaMismatch", err)
	}
}

func TestOpen_ReopenKeepsEntries(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "periods")
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(types.Period{N: 5, Classical: 3, Quantum: 3}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if p, ok, _ := s.Get(5); !ok || p.Classical != 3 {
		t.Errorf("after reopen Get(5) = %+v ok=%v", p, ok)
	}
}

func TestNilStore_IsNoopCache(t *testing.T) {
	var s *Store
	if err := s.Put(types.Period{N: 3}); err != nil {
		t.Errorf("Put on nil: %v", err)
	}
	if _, ok, err := s.Get(3); ok || err != nil {
		t.Errorf("Get on nil: ok=%v err=%v", ok, err)
	}
	if got, err := s.Range(2, 10); got != nil || err != nil {
		t.Errorf("Range on nil: %v %v", got, err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close on nil: %v", err)
	}
}
