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

package persistence

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"ptrack/internal/journal"
)

// fileLine is one JSONL record.
type fileLine struct {
	Batch string        `json:"batch"`
	Frame journal.Frame `json:"frame"`
}

// FilePersister appends frames as JSON lines. It is safe for concurrent use.
// Within one run, sequence numbers at or below the last one written are
// skipped, so retried batches do not duplicate lines.
type FilePersister struct {
	mu      sync.Mutex
	f       *os.File
	w       *bufio.Writer
	path    string
	lastSeq map[string]uint64 // by Frame.Run
}

// NewFilePersister opens (or creates) path in append mode. Existing lines are
// scanned so a run appending to the file again resumes after its last
// sequence number on disk.
func NewFilePersister(path string) (*FilePersister, error) {
	existing, err := ReadAll(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	p := &FilePersister{f: f, w: bufio.NewWriterSize(f, 1<<20), path: path, lastSeq: map[string]uint64{}}
	for _, fr := range existing {
		if fr.Seq > p.lastSeq[fr.Run] {
			p.lastSeq[fr.Run] = fr.Seq
		}
	}
	return p, nil
}

func (p *FilePersister) AppendEntries(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	enc := json.NewEncoder(p.w)
	for _, e := range entries {
		run := e.Frame.Run
		if e.Frame.Seq != 0 && e.Frame.Seq <= p.lastSeq[run] {
			continue
		}
		if err := enc.Encode(fileLine{Batch: e.BatchID, Frame: e.Frame}); err != nil {
			return fmt.Errorf("encode frame seq=%d: %w", e.Frame.Seq, err)
		}
		p.lastSeq[run] = e.Frame.Seq
	}
	return p.w.Flush()
}

// Path returns the file being written.
func (p *FilePersister) Path() string { return p.path }

// Close flushes and closes the underlying file.
func (p *FilePersister) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.w.Flush()
	return p.f.Close()
}

// ReadAll reads every frame of a journal file, for replay. Malformed lines are skipped.
func ReadAll(path string) ([]journal.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []journal.Frame
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 1<<20)
	scanner.Buffer(buf, 1<<26)
	for scanner.Scan() {
		var line fileLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err == nil {
			out = append(out, line.Frame)
		}
	}
	return out, scanner.Err()
}
