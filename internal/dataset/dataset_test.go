package dataset

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/haricheung/catperiod/internal/types"
)

func sampleDatasets() types.Datasets {
	all := []types.Period{
		{N: 2, Classical: 2, Quantum: 2},
		{N: 3, Classical: 6, Quantum: 6},
		{N: 4, Classical: 4, Quantum: 4},
		{N: 5, Classical: 3, Quantum: 3},
		{N: 8, Classical: 4, Quantum: 8},
	}
	return types.Datasets{
		Low:          2,
		High:         8,
		All:          all,
		Short:        []types.Period{all[0], all[2], all[3]},
		DegenerateNs: []int{2, 4, 5},
	}
}

func TestEmit_WritesOriginalLayout(t *testing.T) {
	dir := t.TempDir()
	if _, err := Emit(dir, sampleDatasets(), 8); err != nil {
		t.Fatal(err)
	}
	cases := map[string]string{
		AllPeriodsFile:   "Dataset: Quantum periods until N=8\nN P(N)\n2 2 \n3 6 \n4 4 \n5 3 \n8 8 \n",
		ShortPeriodsFile: "Dataset: Short quantum periods until N=8\nN P(N)\n2 2 \n4 4 \n5 3 \n",
		DegenerateNsFile: "List of Ns having small quantum period until N=8\nN\n2\n4\n5\n",
	}
	for name, want := range cases {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Errorf("%s:\n got %q\nwant %q", name, got, want)
		}
	}
}

func TestEmit_ReplacesStaleFiles(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, DegenerateNsFile)
	if err := os.WriteFile(stale, []byte("garbage that is much longer than the real file\n\n\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Emit(dir, sampleDatasets(), 8); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(stale)
	if strings.Contains(string(got), "garbage") {
		t.Errorf("stale content survived: %q", got)
	}
}

func TestEmit_RoundTripsThroughReaders(t *testing.T) {
	dir := t.TempDir()
	ds := sampleDatasets()
	if _, err := Emit(dir, ds, 8); err != nil {
		t.Fatal(err)
	}
	all, err := ReadPeriods(filepath.Join(dir, AllPeriodsFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(ds.All) {
		t.Fatalf("read %d periods, want %d", len(all), len(ds.All))
	}
	for i := range all {
		if all[i].N != ds.All[i].N || all[i].Quantum != ds.All[i].Quantum {
			t.Errorf("row %d = %+v, want %+v", i, all[i], ds.All[i])
		}
	}
	ns, err := ReadNs(filepath.Join(dir, DegenerateNsFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(ns) != 3 || ns[0] != 2 || ns[1] != 4 || ns[2] != 5 {
		t.Errorf("ReadNs = %v", ns)
	}
}

func TestReadPeriods_AcceptsFloatPeriods(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.txt")
	if err := os.WriteFile(path, []byte("Dataset: x\nN | P(N)\n2 2.0 \n3 6.0 \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ps, err := ReadPeriods(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 2 || ps[1].N != 3 || ps[1].Quantum != 6 {
		t.Errorf("ReadPeriods = %+v", ps)
	}
}

func TestReadPeriods_RejectsShortRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.txt")
	if err := os.WriteFile(path, []byte("h\nh\n2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPeriods(path); err == nil {
		t.Error("expected error for a row without P(N)")
	}
}

func TestManifest_VerifyDetectsTampering(t *testing.T) {
	dir := t.TempDir()
	m, err := Emit(dir, sampleDatasets(), 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Files) != 3 || m.Files[0].Rows != 5 || m.Files[1].Rows != 3 || m.Files[2].Rows != 3 {
		t.Fatalf("manifest = %+v", m)
	}
	if len(m.Files[0].BLAKE2b) != 64 {
		t.Errorf("digest %q is not 256-bit hex", m.Files[0].BLAKE2b)
	}
	if err := Verify(dir); err != nil {
		t.Fatalf("Verify on fresh output: %v", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, ShortPeriodsFile), os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("99 1 \n")
	f.Close()
	if err := Verify(dir); err == nil || !strings.Contains(err.Error(), ShortPeriodsFile) {
		t.Errorf("Verify after tamper = %v, want error naming %s", err, ShortPeriodsFile)
	}
}

func TestExportSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "periods.db")
	ds := sampleDatasets()
	if err := ExportSQLite(context.Background(), path, ds); err != nil {
		t.Fatal(err)
	}
	// Re-export is an upsert, not a duplicate.
	if err := ExportSQLite(context.Background(), path, ds); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var total, short int
	if err := db.QueryRow("SELECT COUNT(*), SUM(short) FROM periods").Scan(&total, &short); err != nil {
		t.Fatal(err)
	}
	if total != 5 || short != 3 {
		t.Errorf("rows=%d short=%d, want 5 and 3", total, short)
	}
	var classical, quantum int
	if err := db.QueryRow("SELECT classical, quantum FROM periods WHERE n = 8").Scan(&classical, &quantum); err != nil {
		t.Fatal(err)
	}
	if classical != 4 || quantum != 8 {
		t.Errorf("N=8 classical=%d quantum=%d", classical, quantum)
	}
}
