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
	"fmt"
	"time"
)

// RedisEvaler abstracts the minimal surface we need from a Redis client.
// GoRedisEvaler wraps github.com/redis/go-redis/v9.
type RedisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
	Close() error
}

// RedisPersister appends frames to a Redis stream with a Lua script:
// 1) SETNX a marker for the frame's run and sequence number
// 2) if set, XADD the frame to the stream, trimming it to about MaxLen entries
// 3) EXPIRE the marker (TTL) to bound marker growth
// A frame whose marker already exists is skipped.
type RedisPersister struct {
	client    RedisEvaler
	stream    string
	maxLen    int64
	markerTTL time.Duration
}

// NewRedisPersister returns a persister writing to stream. maxLen <= 0
// disables trimming; markerTTL should comfortably exceed the retry window.
func NewRedisPersister(client RedisEvaler, stream string, maxLen int64, markerTTL time.Duration) *RedisPersister {
	if stream == "" {
		stream = "ptrack:frames"
	}
	if markerTTL <= 0 {
		markerTTL = time.Hour
	}
	return &RedisPersister{client: client, stream: stream, maxLen: maxLen, markerTTL: markerTTL}
}

// redisLuaScript returns 1 if the frame was appended, 0 if it already was.
const redisLuaScript = `
local stream = KEYS[1]
local marker = KEYS[2]
local maxlen = tonumber(ARGV[1])
local ttlSeconds = tonumber(ARGV[2])
if redis.call('SETNX', marker, 1) == 0 then
  return 0
end
if ttlSeconds and ttlSeconds > 0 then
  redis.call('EXPIRE', marker, ttlSeconds)
end
if maxlen and maxlen > 0 then
  redis.call('XADD', stream, 'MAXLEN', '~', maxlen, '*', 'seq', ARGV[3], 'batch', ARGV[4], 'frame', ARGV[5])
else
  redis.call('XADD', stream, '*', 'seq', ARGV[3], 'batch', ARGV[4], 'frame', ARGV[5])
end
return 1
`

// RedisMarkerKey names the idempotency marker of a frame.
func RedisMarkerKey(stream, run string, seq uint64) string {
	if run == "" {
		return fmt.Sprintf("%s:applied:%d", stream, seq)
	}
	return fmt.Sprintf("%s:applied:%s:%d", stream, run, seq)
}

func (r *RedisPersister) AppendEntries(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		payload, err := json.Marshal(e.Frame)
		if err != nil {
			return fmt.Errorf("marshal frame seq=%d: %w", e.Frame.Seq, err)
		}
		keys := []string{r.stream, RedisMarkerKey(r.stream, e.Frame.Run, e.Frame.Seq)}
		args := []interface{}{r.maxLen, int(r.markerTTL.Seconds()), e.Frame.Seq, e.BatchID, string(payload)}
		if _, err := r.client.Eval(ctx, redisLuaScript, keys, args...); err != nil {
			return fmt.Errorf("redis eval stream=%s seq=%d: %w", r.stream, e.Frame.Seq, err)
		}
	}
	return nil
}

func (r *RedisPersister) Close() error { return r.client.Close() }
