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

package e2e

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// TestRedisStreamE2E verifies the real Redis adapter path appends every
// journal frame to the stream. Requires a Redis at 127.0.0.1:6379.
func TestRedisStreamE2E(t *testing.T) {
	rc := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	defer rc.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		t.Skipf("Skipping: Redis not reachable on 127.0.0.1:6379: %v", err)
	}

	stream := "ptrack:e2e:" + time.Now().Format("150405.000000")
	t.Cleanup(func() { rc.Del(context.Background(), stream) })

	rs := buildAndStartServer(t,
		"-adapter=redis",
		"-redis_addr=127.0.0.1:6379",
		"-redis_stream="+stream,
	)
	client := &http.Client{Timeout: 2 * time.Second}
	for _, q := range []string{
		"phase=down&id=1&x=0&y=0",
		"phase=move&id=1&x=1&y=1",
		"phase=up&id=1&x=1&y=1",
	} {
		if code := rs.input(t, client, q); code != http.StatusOK {
			t.Fatalf("%s: status %d", q, code)
		}
	}
	rs.stop(t)

	n, err := rc.XLen(context.Background(), stream).Result()
	if err != nil {
		t.Fatalf("XLEN: %v", err)
	}
	if n != 3 {
		t.Fatalf("stream length = %d, want 3", n)
	}
}
