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

// Package config loads the YAML configuration shared by the ptrack commands.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ptrack"
)

// Duration is a wrapper for time.Duration that supports YAML unmarshaling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	duration, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level file structure.
type Config struct {
	Tracker   TrackerConfig   `yaml:"tracker"`
	Journal   JournalConfig   `yaml:"journal"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	API       APIConfig       `yaml:"api"`
}

// TrackerConfig mirrors ptrack.Options.
type TrackerConfig struct {
	Capacity    int      `yaml:"capacity"`
	Strict      bool     `yaml:"strict"`
	BatchWindow Duration `yaml:"batch_window"`
	Debug       bool     `yaml:"debug"`
	TraceMoves  bool     `yaml:"trace_moves"`
}

// JournalConfig selects the frame persistence adapter and how the worker
// drains the store into it.
type JournalConfig struct {
	Adapter        string   `yaml:"adapter"` // log, file or redis
	Path           string   `yaml:"path"`
	RedisAddr      string   `yaml:"redis_addr"`
	RedisStream    string   `yaml:"redis_stream"`
	RedisMaxLen    int64    `yaml:"redis_max_len"`
	RedisMarkerTTL Duration `yaml:"redis_marker_ttl"`
	BatchSize      int      `yaml:"batch_size"`
	FlushInterval  Duration `yaml:"flush_interval"`
	MaxPending     int      `yaml:"max_pending"`
	EvictionAge    Duration `yaml:"eviction_age"`
	EvictionEvery  Duration `yaml:"eviction_interval"`
}

type TelemetryConfig struct {
	Enabled     bool     `yaml:"enabled"`
	MetricsAddr string   `yaml:"metrics_addr"`
	LogInterval Duration `yaml:"log_interval"`
}

type APIConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// Load reads, defaults and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse is Load for bytes already in memory.
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyDefaults sets default values for unspecified fields.
func (c *Config) ApplyDefaults() {
	if c.Tracker.Capacity == 0 {
		c.Tracker.Capacity = 10
	}
	if c.Tracker.BatchWindow == 0 {
		c.Tracker.BatchWindow = Duration(ptrack.DefaultBatchWindow)
	}

	if c.Journal.Adapter == "" {
		c.Journal.Adapter = "log"
	}
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = 64
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = Duration(time.Second)
	}
	if c.Journal.MaxPending == 0 {
		c.Journal.MaxPending = 4096
	}
	if c.Journal.EvictionAge == 0 {
		c.Journal.EvictionAge = Duration(time.Minute)
	}
	if c.Journal.EvictionEvery == 0 {
		c.Journal.EvictionEvery = Duration(10 * time.Second)
	}

	if c.Telemetry.MetricsAddr == "" {
		c.Telemetry.MetricsAddr = ":9091"
	}
	if c.Telemetry.LogInterval == 0 {
		c.Telemetry.LogInterval = Duration(5 * time.Second)
	}

	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch {
	case c.Tracker.Capacity < 0:
		return fmt.Errorf("tracker.capacity must be >= 0, got %d", c.Tracker.Capacity)
	case c.Tracker.BatchWindow < 0:
		return fmt.Errorf("tracker.batch_window must be >= 0, got %s", c.Tracker.BatchWindow.Std())
	case c.Journal.BatchSize < 0:
		return fmt.Errorf("journal.batch_size must be >= 0, got %d", c.Journal.BatchSize)
	case c.Journal.MaxPending < 0:
		return fmt.Errorf("journal.max_pending must be >= 0, got %d", c.Journal.MaxPending)
	}
	switch c.Journal.Adapter {
	case "log":
	case "file":
		if c.Journal.Path == "" {
			return fmt.Errorf("journal.path is required for the file adapter")
		}
	case "redis":
	default:
		return fmt.Errorf("unknown journal adapter %q", c.Journal.Adapter)
	}
	return nil
}

// TrackerOptions converts the tracker section.
func (c *Config) TrackerOptions() ptrack.Options {
	return ptrack.Options{
		Capacity:    c.Tracker.Capacity,
		Strict:      c.Tracker.Strict,
		BatchWindow: c.Tracker.BatchWindow.Std(),
		Debug:       c.Tracker.Debug,
		TraceMoves:  c.Tracker.TraceMoves,
	}
}
