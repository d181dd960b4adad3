// Package store persists computed periods in LevelDB so that repeated sweeps over
// overlapping ranges only search the Ns they have not seen before.
//
// Key scheme ("|" separated so keys sort by N):
//
//	p|<N, 10-digit zero padded> → Period JSON
//	meta|schema                 → schema tag; a mismatch refuses to open
//
// A nil *Store is a valid, always-missing cache.
package store

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sugawarayuuta/sonnet"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/haricheung/catperiod/internal/types"
)

const (
	prefixPeriod = "p|"
	keySchema    = "meta|schema"

	// Schema identifies the generator matrix and the quantum rule. Entries written
	// under a different schema describe a different map and must not be reused.
	Schema = "cat[[2,1],[3,2]]/quantum-parity/v1"
)

// ErrSchemaMismatch is returned by Open when the database was written for another map.
var ErrSchemaMismatch = errors.New("period cache schema mismatch")

// Store is the LevelDB-backed period cache. Safe for concurrent use.
type Store struct {
	db *leveldb.DB
}

// Open opens (or creates) the cache at dir.
//
// Expectations:
//   - Creates the database directory when absent and stamps it with Schema
//   - Returns ErrSchemaMismatch when an existing database carries another schema
//   - LevelDB is single-writer: a second Open on the same dir fails with the lock error
func Open(dir string) (*Store, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("open period cache %s: %w", dir, err)
	}
	got, err := db.Get([]byte(keySchema), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		if err := db.Put([]byte(keySchema), []byte(Schema), nil); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("stamp schema: %w", err)
		}
	case err != nil:
		_ = db.Close()
		return nil, fmt.Errorf("read schema: %w", err)
	case string(got) != Schema:
		_ = db.Close()
		return nil, fmt.Errorf("%w: have %q, want %q", ErrSchemaMismatch, got, Schema)
	}
	slog.Info("[STORE] opened period cache", "dir", dir)
	return &Store{db: db}, nil
}

// Close releases the database. Safe on a nil *Store.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the cached Period for n.
//
// Expectations:
//   - Returns ok=false, err=nil when n has never been stored
//   - Returned Period has Cached set
//   - Nil receiver always misses
func (s *Store) Get(n int) (types.Period, bool, error) {
	if s == nil {
		return types.Period{}, false, nil
	}
	data, err := s.db.Get(periodKey(n), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return types.Period{}, false, nil
	}
	if err != nil {
		return types.Period{}, false, fmt.Errorf("get N=%d: %w", n, err)
	}
	var p types.Period
	if err := sonnet.Unmarshal(data, &p); err != nil {
		return types.Period{}, false, fmt.Errorf("decode N=%d: %w", n, err)
	}
	p.Cached = true
	return p, true, nil
}

// Put stores p, overwriting any previous entry for p.N. No-op on a nil receiver.
func (s *Store) Put(p types.Period) error {
	return s.PutAll([]types.Period{p})
}

// PutAll writes all periods in a single LevelDB batch.
func (s *Store) PutAll(periods []types.Period) error {
	if s == nil || len(periods) == 0 {
		return nil
	}
	batch := new(leveldb.Batch)
	for _, p := range periods {
		p.Cached = false
		data, err := sonnet.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode N=%d: %w", p.N, err)
		}
		batch.Put(periodKey(p.N), data)
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("write %d periods: %w", len(periods), err)
	}
	return nil
}

// Range returns every cached Period with low <= N <= high in ascending N.
// Gaps are simply absent from the result.
func (s *Store) Range(low, high int) ([]types.Period, error) {
	if s == nil || high < low {
		return nil, nil
	}
	iter := s.db.NewIterator(&util.Range{Start: periodKey(low), Limit: periodKey(high + 1)}, nil)
	defer iter.Release()

	var out []types.Period
	for iter.Next() {
		var p types.Period
		if err := sonnet.Unmarshal(iter.Value(), &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Key(), err)
		}
		p.Cached = true
		out = append(out, p)
	}
	return out, iter.Error()
}

func periodKey(n int) []byte {
	return []byte(fmt.Sprintf("%s%010d", prefixPeriod, n))
}
