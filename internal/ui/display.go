package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/haricheung/catperiod/internal/classify"
	"github.com/haricheung/catperiod/internal/types"
)

// ANSI codes
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiCyan   = "\033[36m"
	ansiYellow = "\033[33m"
	ansiGreen  = "\033[32m"
	ansiRed    = "\033[31m"
)

var spinRunes = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

// Display renders a live progress line for a running batch.
// It reads from a bus tap channel; all terminal writes happen in Run's goroutine.
type Display struct {
	tap     <-chan types.Message
	out     io.Writer
	mu      sync.Mutex
	total   int
	done    int
	failed  int
	lastN   int
	started time.Time
	running bool
	spinIdx int
	endCh   chan struct{}
}

// New creates a Display reading from tap and writing to out.
func New(tap <-chan types.Message, out io.Writer) *Display {
	return &Display{tap: tap, out: out, endCh: make(chan struct{}, 1)}
}

// Finished delivers one value each time a BatchEnd footer has been written.
func (d *Display) Finished() <-chan struct{} {
	return d.endCh
}

// Run is the main goroutine. It consumes progress messages and animates the spinner
// until ctx is cancelled or the tap is closed.
func (d *Display) Run(ctx context.Context) {
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if d.running {
				fmt.Fprint(d.out, "\r\033[K")
			}
			return

		case msg, ok := <-d.tap:
			if !ok {
				return
			}
			d.handle(msg)

		case <-ticker.C:
			if !d.running {
				continue
			}
			frame := spinRunes[d.spinIdx%len(spinRunes)]
			d.spinIdx++
			fmt.Fprintf(d.out, "\r%s%s%s %s", ansiCyan, string(frame), ansiReset, d.Status())
		}
	}
}

func (d *Display) handle(msg types.Message) {
	switch msg.Type {
	case types.MsgBatchBegin:
		b, _ := msg.Payload.(types.BatchBegin)
		d.mu.Lock()
		d.total = b.High - b.Low + 1
		d.done, d.failed, d.lastN = 0, 0, 0
		d.mu.Unlock()
		d.started = time.Now()
		d.running = true
		fmt.Fprintf(d.out, "\n%s┌─── ⚡ cat map periods N=%d..%d on %d workers %s%s\n",
			ansiDim, b.Low, b.High, b.Workers, strings.Repeat("─", 20), ansiReset)

	case types.MsgPeriodFound:
		p, _ := msg.Payload.(types.Period)
		d.mu.Lock()
		d.done++
		d.lastN = p.N
		d.mu.Unlock()

	case types.MsgPeriodFailed:
		f, _ := msg.Payload.(types.Failure)
		d.mu.Lock()
		d.done++
		d.failed++
		d.mu.Unlock()
		fmt.Fprintf(d.out, "\r\033[K  %s✗ N=%d%s %s\n", ansiRed, f.N, ansiReset, clip(f.Reason, 60))

	case types.MsgBatchEnd:
		e, _ := msg.Payload.(types.BatchEnd)
		d.running = false
		icon := "✅"
		if e.Err != "" {
			icon = "❌"
		}
		elapsed := time.Since(d.started).Round(time.Millisecond)
		fmt.Fprintf(d.out, "\r\033[K%s└─── %s  %d done, %d failed, %v %s%s\n",
			ansiDim, icon, e.Completed, e.Failed, elapsed, strings.Repeat("─", 20), ansiReset)
		select {
		case d.endCh <- struct{}{}:
		default:
		}
	}
}

// Status returns the progress text shown next to the spinner.
func (d *Display) Status() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	pct := 0
	if d.total > 0 {
		pct = d.done * 100 / d.total
	}
	s := fmt.Sprintf("%d/%d (%d%%) last N=%d", d.done, d.total, pct, d.lastN)
	if d.failed > 0 {
		s += fmt.Sprintf(" %s%d failed%s", ansiYellow, d.failed, ansiReset)
	}
	return s
}

// Summary writes an aligned table of the short periods with the threshold they
// fell under, followed by totals.
func Summary(w io.Writer, ds types.Datasets) {
	fmt.Fprintf(w, "%sShort quantum periods for N=%d..%d%s\n", ansiBold, ds.Low, ds.High, ansiReset)
	if len(ds.Short) == 0 {
		fmt.Fprintf(w, "  %snone%s\n", ansiDim, ansiReset)
	} else {
		headers := []string{"N", "P(N)", "2·log λ N", "4·log λ N"}
		rows := make([][]string, 0, len(ds.Short))
		for _, p := range ds.Short {
			rows = append(rows, []string{
				fmt.Sprint(p.N),
				fmt.Sprint(p.Quantum),
				fmt.Sprintf("%.3f", classify.LowerBound(p.N)),
				fmt.Sprintf("%.3f", classify.Threshold(p.N)),
			})
		}
		writeTable(w, headers, rows)
	}
	fmt.Fprintf(w, "%s%d periods, %d short%s\n", ansiGreen, len(ds.All), len(ds.Short), ansiReset)
}

// writeTable pads by display width so non-ASCII headers (λ, ·) line up.
func writeTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, r := range rows {
		for i, c := range r {
			if cw := runewidth.StringWidth(c); cw > widths[i] {
				widths[i] = cw
			}
		}
	}
	line := func(cells []string) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = runewidth.FillLeft(c, widths[i])
		}
		fmt.Fprintf(w, "  %s\n", strings.Join(parts, "  "))
	}
	line(headers)
	sep := make([]string, len(widths))
	for i, n := range widths {
		sep[i] = strings.Repeat("─", n)
	}
	fmt.Fprintf(w, "  %s%s%s\n", ansiDim, strings.Join(sep, "  "), ansiReset)
	for _, r := range rows {
		line(r)
	}
}

// clip truncates s to at most n display columns, appending "…" if trimmed.
func clip(s string, n int) string {
	return runewidth.Truncate(s, n, "…")
}
