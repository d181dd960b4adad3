package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/haricheung/catperiod/internal/types"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS periods (
	n         INTEGER PRIMARY KEY,
	classical INTEGER NOT NULL,
	quantum   INTEGER NOT NULL,
	short     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_periods_short ON periods(short);
`

// ExportSQLite upserts every record of ds into the periods table at path.
// Rows from earlier exports outside ds's range are left in place, so successive
// sweeps accumulate into one database.
func ExportSQLite(ctx context.Context, path string, ds types.Datasets) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	short := make(map[int]bool, len(ds.DegenerateNs))
	for _, n := range ds.DegenerateNs {
		short[n] = true
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO periods (n, classical, quantum, short) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range ds.All {
		flag := 0
		if short[p.N] {
			flag = 1
		}
		if _, err := stmt.ExecContext(ctx, p.N, p.Classical, p.Quantum, flag); err != nil {
			return fmt.Errorf("insert N=%d: %w", p.N, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.Info("[EMIT] exported to sqlite", "path", path, "rows", len(ds.All))
	return nil
}
