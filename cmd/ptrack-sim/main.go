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

// Command ptrack-sim drives a tracker with synthetic fingers and journals
// every change. While it runs, the HTTP API accepts extra input and serves the
// latest frame; on shutdown the worker flushes what is left and the
// persistence summary is printed.
//
// With -replay it instead reads a journal file written by the file adapter
// and prints what it holds.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ptrack"
	"ptrack/internal/api"
	"ptrack/internal/config"
	"ptrack/internal/diag"
	"ptrack/internal/journal"
	"ptrack/internal/journal/persistence"
	"ptrack/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	replay := flag.String("replay", "", "Print the frames in this journal file and exit")
	fingers := flag.Int("fingers", 3, "Number of synthetic fingers")
	tick := flag.Duration("tick", 5*time.Millisecond, "Interval between synthetic samples")
	duration := flag.Duration("duration", 0, "Stop after this long (0 = wait for a signal)")
	capacity := flag.Int("capacity", 0, "Override tracker.capacity")
	adapter := flag.String("adapter", "", "Override journal.adapter (log, file, redis)")
	path := flag.String("path", "", "Override journal.path")
	redisAddr := flag.String("redis_addr", "", "Override journal.redis_addr")
	redisStream := flag.String("redis_stream", "", "Override journal.redis_stream")
	httpAddr := flag.String("http_addr", "", "Override api.addr")
	metricsAddr := flag.String("metrics_addr", "", "Override telemetry.metrics_addr and enable telemetry")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for the synthetic fingers")
	flag.Parse()

	if *replay != "" {
		if err := replayFile(*replay); err != nil {
			log.Fatalf("replay: %v", err)
		}
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("config: %v", err)
		}
	}
	if *capacity > 0 {
		cfg.Tracker.Capacity = *capacity
	}
	if *adapter != "" {
		cfg.Journal.Adapter = *adapter
	}
	if *path != "" {
		cfg.Journal.Path = *path
	}
	if *redisAddr != "" {
		cfg.Journal.RedisAddr = *redisAddr
	}
	if *redisStream != "" {
		cfg.Journal.RedisStream = *redisStream
	}
	if *httpAddr != "" {
		cfg.API.Addr = *httpAddr
	}
	if *metricsAddr != "" {
		cfg.Telemetry.Enabled = true
		cfg.Telemetry.MetricsAddr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	// Captured for the final summary.
	journal.SetThresholdInt("capacity", cfg.Tracker.Capacity)
	journal.SetThresholdBool("strict", cfg.Tracker.Strict)
	journal.SetThresholdDuration("batch_window", cfg.Tracker.BatchWindow.Std())
	journal.SetThreshold("adapter", cfg.Journal.Adapter)
	journal.SetThresholdInt("batch_size", cfg.Journal.BatchSize)
	journal.SetThresholdDuration("flush_interval", cfg.Journal.FlushInterval.Std())
	journal.SetThresholdInt("fingers", *fingers)
	journal.SetThresholdDuration("tick", *tick)

	telemetry.Enable(telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		MetricsAddr: cfg.Telemetry.MetricsAddr,
		LogInterval: cfg.Telemetry.LogInterval.Std(),
	})
	defer telemetry.Stop()

	opts := cfg.TrackerOptions()
	opts.Recorder = telemetry.Recorder{}
	opts.Logf = diag.Prefixed("[sim] ")
	tr := ptrack.NewWithOptions(opts)

	store := journal.NewStoreWithOptions(journal.StoreOptions{
		MaxPending:     cfg.Journal.MaxPending,
		FlushThreshold: cfg.Journal.BatchSize,
	})
	tr.Subscribe(store.Capture)

	persister, err := persistence.BuildPersister(cfg.Journal.Adapter, persistence.Options{
		FilePath:       cfg.Journal.Path,
		RedisAddr:      cfg.Journal.RedisAddr,
		RedisStream:    cfg.Journal.RedisStream,
		RedisMaxLen:    cfg.Journal.RedisMaxLen,
		RedisMarkerTTL: cfg.Journal.RedisMarkerTTL.Std(),
	})
	if err != nil {
		log.Fatalf("persistence: %v", err)
	}

	worker := journal.NewWorker(store, persister,
		cfg.Journal.BatchSize,
		cfg.Journal.FlushInterval.Std(),
		cfg.Journal.EvictionAge.Std(),
		cfg.Journal.EvictionEvery.Std(),
	)
	worker.Start()

	srv := api.NewServer(tr, store, worker)
	httpServer := srv.NewHTTPServer(cfg.API.Addr)
	go func() {
		fmt.Printf("ptrack API server listening on %s\n", cfg.API.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", cfg.API.Addr, err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if *duration > 0 {
		var c context.CancelFunc
		ctx, c = context.WithTimeout(ctx, *duration)
		defer c()
	}

	sim := newSimulator(*fingers, rand.New(rand.NewSource(*seed)))
	sim.run(ctx, srv, *tick)

	fmt.Println("\nShutting down...")
	if err := srv.Do(sim.liftAll); err != nil {
		log.Printf("lift: %v", err)
	}

	worker.Stop()
	persister.PrintFinalMetrics()
	if err := persister.Close(); err != nil {
		log.Printf("persister close: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
	fmt.Println("Simulator stopped.")
}

func replayFile(path string) error {
	frames, err := persistence.ReadAll(path)
	if err != nil {
		return err
	}
	perPointer := map[string]int{}
	var order []string
	for _, f := range frames {
		fmt.Printf("#%d t=%d count=%d index=%d", f.Seq, f.Time, f.Count, f.Index)
		for _, r := range f.Samples {
			fmt.Printf(" [%s %s (%.1f, %.1f)]", r.ID, r.Phase, r.X, r.Y)
			if _, ok := perPointer[r.ID]; !ok {
				order = append(order, r.ID)
			}
			perPointer[r.ID]++
		}
		if len(f.History) > 0 {
			fmt.Printf(" history=%d", len(f.History))
		}
		fmt.Println()
	}
	fmt.Printf("%d frames\n", len(frames))
	for _, id := range order {
		fmt.Printf("  pointer %s: %d frames\n", id, perPointer[id])
	}
	return nil
}
