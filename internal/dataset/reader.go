package dataset

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/haricheung/catperiod/internal/types"
)

// ReadPeriods parses an all_periods.txt or small_periods.txt file, skipping the
// header. Only N and the quantum period are on disk, so Classical is left zero.
func ReadPeriods(path string) ([]types.Period, error) {
	var out []types.Period
	err := scanRows(path, 2, func(line int, fields []string) error {
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("line %d: N: %w", line, err)
		}
		// numpy-era files carry the period as a float ("6.0").
		q, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("line %d: P(N): %w", line, err)
		}
		out = append(out, types.Period{N: n, Quantum: int(q)})
		return nil
	})
	return out, err
}

// ReadNs parses a degNs.txt file, skipping the header.
func ReadNs(path string) ([]int, error) {
	var out []int
	err := scanRows(path, 1, func(line int, fields []string) error {
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("line %d: N: %w", line, err)
		}
		out = append(out, n)
		return nil
	})
	return out, err
}

func scanRows(path string, minFields int, fn func(line int, fields []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		if line <= HeaderLines {
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < minFields {
			return fmt.Errorf("%s line %d: want %d fields, got %d", path, line, minFields, len(fields))
		}
		if err := fn(line, fields); err != nil {
			return fmt.Errorf("%s %w", path, err)
		}
	}
	return sc.Err()
}
