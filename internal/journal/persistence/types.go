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

// Package persistence provides journal persister adapters for a JSONL file
// and a Redis stream, plus a factory selecting one by name.
//
// Adapters implement an idempotent Entry shape: every frame is written
// together with the id of the batch that carried it, and a frame whose run
// and sequence number were already applied is skipped. A worker that retries
// a failed batch therefore never duplicates frames, and a restarted process
// (new run) is never mistaken for a retry.
package persistence

import (
	"context"

	"ptrack/internal/journal"
)

// Entry is the adapter-facing shape of one frame.
//
//   - Frame: the captured frame; (Frame.Run, Frame.Seq) is the idempotency key.
//   - BatchID: id shared by every entry of one AppendBatch call, for tracing.
type Entry struct {
	Frame   journal.Frame
	BatchID string
}

// IdempotentPersister is the minimal API supported by all adapters.
// Applying an entry whose Frame.Run and Frame.Seq were already applied must be a no-op.
type IdempotentPersister interface {
	AppendEntries(ctx context.Context, entries []Entry) error
	Close() error
}
