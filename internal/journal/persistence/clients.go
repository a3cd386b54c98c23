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
	"fmt"
	"io"
	"os"
	"time"

	redis "github.com/redis/go-redis/v9"
)

var stdout io.Writer = os.Stdout

// LoggingRedisEvaler prints each evaluation instead of talking to Redis.
// It lets the demo select the Redis adapter without a server.
type LoggingRedisEvaler struct{}

func (LoggingRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	// the frame payload is the last arg and can be large
	shown := args
	if len(shown) > 4 {
		shown = shown[:4]
	}
	fmt.Fprintf(stdout, "[redis-demo] EVAL script(len=%d) KEYS=%v ARGS=%v\n", len(script), keys, shown)
	return int64(1), nil
}

func (LoggingRedisEvaler) Close() error { return nil }

// GoRedisEvaler implements RedisEvaler with github.com/redis/go-redis/v9.
type GoRedisEvaler struct{ c *redis.Client }

// NewGoRedisEvaler connects to addr, e.g. "127.0.0.1:6379".
func NewGoRedisEvaler(addr string) *GoRedisEvaler {
	return &GoRedisEvaler{c: redis.NewClient(&redis.Options{Addr: addr})}
}

func (g *GoRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	return g.c.Eval(ctx, script, keys, args...).Result()
}

func (g *GoRedisEvaler) Close() error { return g.c.Close() }

// Options holds the knobs for building persisters.
type Options struct {
	FilePath       string
	RedisAddr      string
	RedisStream    string
	RedisMaxLen    int64
	RedisMarkerTTL time.Duration
}
