// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
)

// ProgressbarStyle to use. Defaults to the ASCII version.
var ProgressbarStyle = progressbar.ThemeASCII

// benchmarkStats collects the durations of each repetition of a benchmark.
type benchmarkStats struct {
	durations  []time.Duration
	bytesPerOp uint64
}

// median duration of one repetition.
func (s *benchmarkStats) median() time.Duration {
	if len(s.durations) == 0 {
		return 0
	}
	sorted := slices.Clone(s.durations)
	slices.Sort(sorted)
	return sorted[len(sorted)/2]
}

func (s *benchmarkStats) total() (total time.Duration) {
	for _, d := range s.durations {
		total += d
	}
	return
}

// runBenchmark runs fn numRepetitions times, displaying a progress bar in the terminal.
// It stops at the first error.
func runBenchmark(name string, numRepetitions int, bytesPerOp uint64, useColors bool, fn func() error) (*benchmarkStats, error) {
	output := termenv.NewOutput(os.Stdout)
	output.HideCursor()
	defer output.ShowCursor()

	bar := progressbar.NewOptions(numRepetitions,
		progressbar.OptionSetDescription(fmt.Sprintf("      [bold]%s[reset]", name)),
		progressbar.OptionUseANSICodes(useColors),
		progressbar.OptionEnableColorCodes(useColors),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("slices"),
		progressbar.OptionSetTheme(ProgressbarStyle),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetWriter(os.Stdout),
		progressbar.OptionOnCompletion(func() { fmt.Println() }),
	)
	stats := &benchmarkStats{
		durations:  make([]time.Duration, 0, numRepetitions),
		bytesPerOp: bytesPerOp,
	}
	for range numRepetitions {
		start := time.Now()
		if err := fn(); err != nil {
			_ = bar.Exit()
			return nil, err
		}
		stats.durations = append(stats.durations, time.Since(start))
		_ = bar.Add(1)
	}
	return stats, nil
}

// statsTable pretty-prints the benchmark results.
func statsTable(stats *benchmarkStats) string {
	t := newTable(lipgloss.Right, lipgloss.Right)
	median := stats.median()
	t.Row(false, "Repetitions", humanize.Comma(int64(len(stats.durations))))
	t.Row(false, "Total time", stats.total().String())
	t.Row(true, "Median time per slice", median.String())
	if median > 0 {
		throughput := float64(stats.bytesPerOp) / median.Seconds()
		t.Row(false, "Throughput", humanize.Bytes(uint64(throughput))+"/s")
	}
	return t.Table.String()
}
