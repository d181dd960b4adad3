// Package dataset serialises the three period datasets for the plotting side:
// all periods, short periods and the bare degenerate Ns, each as a whitespace
// separated text table with a two-line header, plus a manifest with digests.
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"

	"github.com/haricheung/catperiod/internal/types"
)

// File names written by Emit.
const (
	AllPeriodsFile   = "all_periods.txt"
	ShortPeriodsFile = "small_periods.txt"
	DegenerateNsFile = "degNs.txt"
	ManifestFile     = "manifest.json"
)

// HeaderLines is the number of header lines preceding the rows of every dataset file.
const HeaderLines = 2

// Emit removes stale dataset files in dir and writes the three datasets and the manifest.
// maxN labels the headers; the original sweep always starts at 2 so only the upper
// bound appears there.
//
// Expectations:
//   - Creates dir when absent
//   - all_periods.txt and small_periods.txt rows are "<N> <P(N)> " in dataset order
//   - degNs.txt rows are "<N>"
//   - The manifest lists each file with its row count and BLAKE2b-256 digest
func Emit(dir string, ds types.Datasets, maxN int) (Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("create output dir: %w", err)
	}
	for _, name := range []string{AllPeriodsFile, ShortPeriodsFile, DegenerateNsFile, ManifestFile} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Manifest{}, fmt.Errorf("remove stale %s: %w", name, err)
		}
	}

	m := Manifest{Low: ds.Low, High: ds.High, MaxN: maxN}

	entry, err := writeTable(dir, AllPeriodsFile, []string{
		fmt.Sprintf("Dataset: Quantum periods until N=%d", maxN),
		"N P(N)",
	}, periodRows(ds.All))
	if err != nil {
		return Manifest{}, err
	}
	m.Files = append(m.Files, entry)

	entry, err = writeTable(dir, ShortPeriodsFile, []string{
		fmt.Sprintf("Dataset: Short quantum periods until N=%d", maxN),
		"N P(N)",
	}, periodRows(ds.Short))
	if err != nil {
		return Manifest{}, err
	}
	m.Files = append(m.Files, entry)

	entry, err = writeTable(dir, DegenerateNsFile, []string{
		fmt.Sprintf("List of Ns having small quantum period until N=%d", maxN),
		"N",
	}, nRows(ds.DegenerateNs))
	if err != nil {
		return Manifest{}, err
	}
	m.Files = append(m.Files, entry)

	if err := writeManifest(filepath.Join(dir, ManifestFile), m); err != nil {
		return Manifest{}, err
	}
	slog.Info("[EMIT] wrote datasets", "dir", dir, "all", len(ds.All), "short", len(ds.Short))
	return m, nil
}

// rowFunc writes every row to w and reports how many it wrote.
type rowFunc func(w io.Writer) (int, error)

func periodRows(ps []types.Period) rowFunc {
	return func(w io.Writer) (int, error) {
		for _, p := range ps {
			if _, err := fmt.Fprintf(w, "%d %d \n", p.N, p.Quantum); err != nil {
				return 0, err
			}
		}
		return len(ps), nil
	}
}

func nRows(ns []int) rowFunc {
	return func(w io.Writer) (int, error) {
		for _, n := range ns {
			if _, err := fmt.Fprintf(w, "%d\n", n); err != nil {
				return 0, err
			}
		}
		return len(ns), nil
	}
}

func writeTable(dir, name string, header []string, rows rowFunc) (FileEntry, error) {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return FileEntry{}, fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()

	h := newDigest()
	bw := bufio.NewWriter(io.MultiWriter(f, h))
	for _, line := range header {
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return FileEntry{}, fmt.Errorf("write %s: %w", name, err)
		}
	}
	n, err := rows(bw)
	if err != nil {
		return FileEntry{}, fmt.Errorf("write %s: %w", name, err)
	}
	if err := bw.Flush(); err != nil {
		return FileEntry{}, fmt.Errorf("flush %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return FileEntry{}, fmt.Errorf("close %s: %w", name, err)
	}
	return FileEntry{Name: name, Rows: n, BLAKE2b: fmt.Sprintf("%x", h.Sum(nil))}, nil
}

func newDigest() hash.Hash {
	// New256 only fails for keys longer than 64 bytes.
	h, _ := blake2b.New256(nil)
	return h
}
