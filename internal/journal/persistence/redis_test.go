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
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"ptrack/internal/journal"
)

type evalCall struct {
	script string
	keys   []string
	args   []interface{}
}

// fakeRedisEvaler records calls and can be forced to fail.
type fakeRedisEvaler struct {
	calls     []evalCall
	returnErr error
	closed    bool
}

func (f *fakeRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	if f.returnErr != nil {
		return nil, f.returnErr
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f.calls = append(f.calls, evalCall{script: script, keys: append([]string{}, keys...), args: append([]interface{}{}, args...)})
	return int64(1), nil
}

func (f *fakeRedisEvaler) Close() error {
	f.closed = true
	return nil
}

func TestRedisMarkerKey(t *testing.T) {
	if got, want := RedisMarkerKey("ptrack:frames", "", 42), "ptrack:frames:applied:42"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if got, want := RedisMarkerKey("ptrack:frames", "r1", 42), "ptrack:frames:applied:r1:42"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestNewRedisPersister_Defaults(t *testing.T) {
	r := NewRedisPersister(&fakeRedisEvaler{}, "", 0, 0)
	if r.stream != "ptrack:frames" || r.markerTTL != time.Hour {
		t.Fatalf("defaults = %q %v", r.stream, r.markerTTL)
	}
}

func TestRedisPersister_AppendEntries(t *testing.T) {
	fake := &fakeRedisEvaler{}
	r := NewRedisPersister(fake, "s", 1000, time.Minute)
	frame := journal.Frame{Seq: 3, Count: 1, Samples: []journal.Record{{ID: "0", Phase: "DOWN"}}}
	if err := r.AppendEntries(context.Background(), []Entry{{Frame: frame, BatchID: "b-1"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(fake.calls))
	}
	c := fake.calls[0]
	if c.script == "" {
		t.Fatalf("expected lua script to be non-empty")
	}
	if want := []string{"s", RedisMarkerKey("s", "", 3)}; !reflect.DeepEqual(c.keys, want) {
		t.Fatalf("keys mismatch: got %v want %v", c.keys, want)
	}
	if len(c.args) != 5 || c.args[0] != int64(1000) || c.args[1] != 60 || c.args[2] != uint64(3) || c.args[3] != "b-1" {
		t.Fatalf("args mismatch: %v", c.args)
	}
	var got journal.Frame
	if err := json.Unmarshal([]byte(c.args[4].(string)), &got); err != nil {
		t.Fatalf("payload is not a frame: %v", err)
	}
	if !reflect.DeepEqual(got, frame) {
		t.Fatalf("payload = %+v, want %+v", got, frame)
	}
}

func TestRedisPersister_MarkerPerRun(t *testing.T) {
	fake := &fakeRedisEvaler{}
	r := NewRedisPersister(fake, "s", 0, time.Minute)
	entries := []Entry{
		{Frame: journal.Frame{Run: "a", Seq: 1}},
		{Frame: journal.Frame{Run: "b", Seq: 1}},
	}
	if err := r.AppendEntries(context.Background(), entries); err != nil {
		t.Fatal(err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(fake.calls))
	}
	if k0, k1 := fake.calls[0].keys[1], fake.calls[1].keys[1]; k0 == k1 {
		t.Fatalf("runs share marker %q", k0)
	}
}

func TestRedisPersister_Errors(t *testing.T) {
	t.Run("ContextCanceled", func(t *testing.T) {
		r := NewRedisPersister(&fakeRedisEvaler{}, "s", 0, time.Second)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := r.AppendEntries(ctx, []Entry{{Frame: journal.Frame{Seq: 1}}})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
	t.Run("ClientError", func(t *testing.T) {
		r := NewRedisPersister(&fakeRedisEvaler{returnErr: errors.New("boom")}, "s", 0, time.Second)
		err := r.AppendEntries(context.Background(), []Entry{{Frame: journal.Frame{Seq: 9}}})
		if err == nil || err.Error() != "redis eval stream=s seq=9: boom" {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestIdemShim_BatchIDAndClose(t *testing.T) {
	fake := &fakeRedisEvaler{}
	shim := NewIdemShim(NewRedisPersister(fake, "s", 0, 0))
	if err := shim.AppendBatch(context.Background(), nil); err != nil || len(fake.calls) != 0 {
		t.Fatalf("empty batch: err=%v calls=%d", err, len(fake.calls))
	}
	frames := []journal.Frame{{Seq: 1}, {Seq: 2}}
	if err := shim.AppendBatch(context.Background(), frames); err != nil {
		t.Fatal(err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(fake.calls))
	}
	b0, b1 := fake.calls[0].args[3].(string), fake.calls[1].args[3].(string)
	if b0 == "" || b0 != b1 {
		t.Fatalf("entries of one batch should share a batch id: %q %q", b0, b1)
	}
	if err := shim.Close(); err != nil || !fake.closed {
		t.Fatalf("Close() = %v closed=%t", err, fake.closed)
	}
}
