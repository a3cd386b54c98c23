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

// Command http-loadgen drives a running ptrack-sim API with concurrent
// synthetic pointers.
//
//   - Each worker owns one pointer id: it sends a down, -moves moves along a
//     diagonal and an up, then starts again with a fresh id until its share of
//     -n gestures is done.
//   - -mode=batched sends the moves with batched=1 so the server coalesces them.
//   - Prints a one-line summary with status counts and approximate throughput.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type modeType string

const (
	modeDirect  modeType = "direct"
	modeBatched modeType = "batched"
)

type statusCounts struct {
	ok, conflict, full, other, failed atomic.Int64
}

func (s *statusCounts) add(code int) {
	switch code {
	case http.StatusOK:
		s.ok.Add(1)
	case http.StatusConflict:
		s.conflict.Add(1)
	case http.StatusTooManyRequests:
		s.full.Add(1)
	default:
		s.other.Add(1)
	}
}

func main() {
	var (
		base  = flag.String("base", "http://127.0.0.1:8080", "Base URL including scheme and host, e.g. http://127.0.0.1:8080")
		modeS = flag.String("mode", string(modeDirect), "Mode: direct|batched")
		N     = flag.Int("n", 200, "Total gestures (down, moves, up) to send")
		moves = flag.Int("moves", 20, "Moves per gesture")
		conc  = flag.Int("c", 4, "Number of concurrent pointers")
		// Timeouts & transport tuning
		timeout    = flag.Duration("timeout", 20*time.Second, "Overall timeout for the loadgen run")
		connIdle   = flag.Duration("idle_timeout", 30*time.Second, "HTTP idle connection timeout")
		maxIdle    = flag.Int("max_idle", 256, "Max idle connections total")
		maxIdlePer = flag.Int("max_idle_per_host", 256, "Max idle connections per host")
	)
	flag.Parse()

	m := modeType(strings.ToLower(*modeS))
	if m != modeDirect && m != modeBatched {
		fmt.Fprintf(os.Stderr, "unknown -mode=%s (want direct|batched)\n", *modeS)
		os.Exit(2)
	}
	if *N <= 0 || *conc <= 0 || *moves < 0 {
		fmt.Fprintln(os.Stderr, "-n and -c must be > 0, -moves must be >= 0")
		os.Exit(2)
	}

	input := strings.TrimRight(*base, "/") + "/input"

	// Configure HTTP client with connection reuse
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        *maxIdle,
		MaxIdleConnsPerHost: *maxIdlePer,
		IdleConnTimeout:     *connIdle,
	}
	client := &http.Client{Transport: tr, Timeout: 5 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var counts statusCounts
	var requests atomic.Int64
	send := func(q url.Values) {
		requests.Add(1)
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, input+"?"+q.Encode(), nil)
		resp, err := client.Do(req)
		if err != nil {
			counts.failed.Add(1)
			// Brief backoff on errors to avoid hot spinning
			time.Sleep(200 * time.Microsecond)
			return
		}
		// Drain and close body to enable connection reuse
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		counts.add(resp.StatusCode)
	}
	sample := func(phase string, id, x int) url.Values {
		v := strconv.Itoa(x)
		return url.Values{"phase": {phase}, "id": {strconv.Itoa(id)}, "x": {v}, "y": {v}}
	}

	start := time.Now()
	worker := func(w, gestures int) {
		for g := 0; g < gestures; g++ {
			if ctx.Err() != nil {
				return
			}
			id := w + g**conc
			send(sample("down", id, 0))
			for i := 1; i <= *moves; i++ {
				q := sample("move", id, i)
				if m == modeBatched {
					q.Set("batched", "1")
				}
				send(q)
			}
			send(sample("up", id, *moves))
		}
	}

	// Split N across conc workers
	per := *N / *conc
	rem := *N - per**conc
	var wg sync.WaitGroup
	wg.Add(*conc)
	for w := 0; w < *conc; w++ {
		count := per
		if w == *conc-1 {
			count += rem
		}
		go func(id, n int) {
			defer wg.Done()
			worker(id, n)
		}(w, count)
	}
	wg.Wait()
	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	total := requests.Load()
	ops := float64(total) / elapsed.Seconds()
	fmt.Printf("LoadGen: mode=%s gestures=%d requests=%d c=%d go=%d ok=%d conflict=%d full=%d other=%d failed=%d Duration=%s Throughput=%.0f req/s\n",
		m, *N, total, *conc, runtime.GOMAXPROCS(0),
		counts.ok.Load(), counts.conflict.Load(), counts.full.Load(), counts.other.Load(), counts.failed.Load(),
		elapsed.Truncate(time.Millisecond), ops)
}
