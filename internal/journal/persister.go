// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package journal

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Persister is the interface for any frame storage backend.
type Persister interface {
	// AppendBatch stores frames in order. It must be safe to retry with the
	// same frames after a failure.
	AppendBatch(ctx context.Context, frames []Frame) error
	// PrintFinalMetrics prints an end-of-process summary. It is called after
	// the final flush.
	PrintFinalMetrics()
	Close() error
}

// NewLogPersister returns a persister that prints frames to stdout.
func NewLogPersister() Persister {
	return NewLogPersisterTo(os.Stdout)
}

// NewLogPersisterTo prints frames to w.
func NewLogPersisterTo(w io.Writer) Persister {
	return &logPersister{w: w}
}

type logPersister struct {
	w            io.Writer
	mu           sync.Mutex
	totalFrames  int64
	totalBatches int64
	totalSamples int64
}

func (p *logPersister) AppendBatch(ctx context.Context, frames []Frame) error {
	if len(frames) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "[%s] Persisting batch of %d frames...\n", time.Now().Format(time.RFC3339), len(frames))
	var n int64
	for _, f := range frames {
		fmt.Fprintf(p.w, "  - SEQ: %-8d COUNT: %d INDEX: %d SAMPLES: %d HISTORY: %d\n",
			f.Seq, f.Count, f.Index, len(f.Samples), len(f.History))
		n += int64(f.SampleCount())
	}
	p.totalFrames += int64(len(frames))
	p.totalBatches++
	p.totalSamples += n
	return nil
}

// PrintFinalMetrics prints a single yellow summary once at the end of the process.
func (p *logPersister) PrintFinalMetrics() {
	p.mu.Lock()
	totalFrames, totalBatches, totalSamples := p.totalFrames, p.totalBatches, p.totalSamples
	p.mu.Unlock()
	PrintSummary(p.w, totalFrames, totalBatches, totalSamples)
}

func (p *logPersister) Close() error { return nil }

// PrintSummary writes the end-of-process table shared by the persisters.
func PrintSummary(w io.Writer, frames, batches, samplesN int64) {
	capturedN, capturedSamples := getCaptureTotals()
	th := getThresholdSnapshot()
	keys := make([]string, 0, len(th))
	for k := range th {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	yellow := "\x1b[33m"
	reset := "\x1b[0m"
	now := time.Now().Format(time.RFC3339)

	ratio := "n/a"
	if batches > 0 {
		ratio = fmt.Sprintf("%.1f", float64(frames)/float64(batches))
	}

	sep := strings.Repeat("-", 60)
	fmt.Fprintf(w, "%s[%s] Final journal metrics\n", yellow, now)
	fmt.Fprintln(w, sep)
	fmt.Fprintf(w, "%-18s %12s\n", "Metric", "Value")
	fmt.Fprintln(w, sep)
	fmt.Fprintf(w, "%-18s %12d\n", "Captured frames", capturedN)
	fmt.Fprintf(w, "%-18s %12d\n", "Captured samples", capturedSamples)
	fmt.Fprintf(w, "%-18s %12d\n", "Persisted frames", frames)
	fmt.Fprintf(w, "%-18s %12d\n", "Persisted samples", samplesN)
	fmt.Fprintf(w, "%-18s %12d\n", "Batches", batches)
	fmt.Fprintf(w, "%-18s %12s\n", "Frames/batch", ratio)
	fmt.Fprintln(w, sep)

	if len(keys) > 0 {
		fmt.Fprintf(w, "Configuration\n")
		fmt.Fprintln(w, sep)
		fmt.Fprintf(w, "%-30s %24s\n", "Name", "Value")
		fmt.Fprintln(w, sep)
		for _, k := range keys {
			fmt.Fprintf(w, "%-30s %24s\n", k, th[k])
		}
		fmt.Fprintln(w, sep)
	}
	fmt.Fprint(w, reset)
}
