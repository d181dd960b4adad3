package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/haricheung/catperiod/internal/batch"
	"github.com/haricheung/catperiod/internal/bus"
	"github.com/haricheung/catperiod/internal/catmap"
	"github.com/haricheung/catperiod/internal/classify"
	"github.com/haricheung/catperiod/internal/config"
	"github.com/haricheung/catperiod/internal/dataset"
	"github.com/haricheung/catperiod/internal/runlog"
	"github.com/haricheung/catperiod/internal/store"
	"github.com/haricheung/catperiod/internal/types"
	"github.com/haricheung/catperiod/internal/ui"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("[MAIN] WARNING: .env: %v", err)
	}
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "catperiod: %v\n", err)
		os.Exit(2)
	}

	// Context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\ncatperiod: interrupted, aborting batch")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "catperiod: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	var cache *store.Store
	if cfg.CacheDir != "" {
		s, err := store.Open(cfg.CacheDir)
		if err != nil {
			// The cache is an accelerator only; a locked or foreign DB must not block the sweep.
			log.Printf("[MAIN] WARNING: period cache disabled: %v", err)
		} else {
			cache = s
			defer cache.Close()
		}
	}

	b := bus.New()
	var display *ui.Display
	if !cfg.Quiet {
		display = ui.New(b.Tap(), os.Stdout)
		dctx, stop := context.WithCancel(ctx)
		defer stop()
		go display.Run(dctx)
	}

	runID := uuid.New().String()
	var logs *runlog.Registry
	if cfg.LogDir != "" {
		logs = runlog.NewRegistry(cfg.LogDir)
	}
	rl := logs.Open(runID, runlog.Params{
		Low:      cfg.Low,
		High:     cfg.MaxN,
		Workers:  cfg.Workers,
		Policy:   cfg.Policy.String(),
		Strategy: cfg.Strategy.String(),
	})

	orch := &batch.Orchestrator{
		Workers: cfg.Workers,
		Policy:  cfg.Policy,
		Finder:  &catmap.Finder{Strategy: cfg.Strategy, MaxIterations: cfg.MaxIter},
		Bus:     b,
		RunID:   runID,
	}
	if cache != nil {
		orch.Cache = cache
	}

	res, err := orch.ComputeRange(ctx, cfg.Low, cfg.MaxN)
	waitDisplay(display)
	if err != nil {
		logs.Close(runID, runlog.Summary{Status: "aborted", Err: err})
		return fmt.Errorf("batch %d..%d: %w", cfg.Low, cfg.MaxN, err)
	}

	ds := classify.Partition(res.Periods)
	ds.Low, ds.High = cfg.Low, cfg.MaxN
	short := make(map[int]bool, len(ds.DegenerateNs))
	for _, n := range ds.DegenerateNs {
		short[n] = true
	}
	for _, p := range ds.All {
		rl.Period(p, short[p.N])
	}
	for _, f := range res.Failures {
		rl.Failure(f)
	}

	status := "complete"
	if len(res.Failures) > 0 {
		status = "partial"
	}
	summary := runlog.Summary{
		Status:   status,
		Periods:  len(ds.All),
		Failures: len(res.Failures),
		Short:    len(ds.Short),
		Cached:   res.Cached,
	}

	if _, err := dataset.Emit(cfg.OutDir, ds, cfg.MaxN); err != nil {
		summary.Status, summary.Err = "aborted", err
		logs.Close(runID, summary)
		return fmt.Errorf("emit datasets: %w", err)
	}
	if cfg.SQLite != "" {
		if err := dataset.ExportSQLite(ctx, cfg.SQLite, ds); err != nil {
			summary.Status, summary.Err = "aborted", err
			logs.Close(runID, summary)
			return fmt.Errorf("sqlite export: %w", err)
		}
	}
	logs.Close(runID, summary)

	if !cfg.Quiet {
		ui.Summary(os.Stdout, ds)
		printFailures(res.Failures)
	}
	fmt.Printf("Done finding all quantum periods until N=%d\n", cfg.MaxN)
	return nil
}

// waitDisplay gives the display goroutine a moment to draw the batch footer
// so it does not interleave with the summary.
func waitDisplay(d *ui.Display) {
	if d == nil {
		return
	}
	select {
	case <-d.Finished():
	case <-time.After(500 * time.Millisecond):
	}
}

func printFailures(fs []types.Failure) {
	if len(fs) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "%d N values failed and were skipped:\n", len(fs))
	for _, f := range fs {
		fmt.Fprintf(os.Stderr, "  N=%d: %s\n", f.N, f.Reason)
	}
}
