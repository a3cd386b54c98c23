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
	"errors"
	"fmt"

	"ptrack/internal/journal"
)

// BuildPersister constructs a journal.Persister from a string selector.
// Supported adapters:
//   - "log": prints frames to stdout (default)
//   - "file": JSONL file at Options.FilePath
//   - "redis": Redis stream; a logging client stands in when RedisAddr is empty
func BuildPersister(adapter string, opts Options) (journal.Persister, error) {
	switch adapter {
	case "", "log":
		return journal.NewLogPersister(), nil
	case "file":
		if opts.FilePath == "" {
			return nil, errors.New("file adapter requires a path")
		}
		fp, err := NewFilePersister(opts.FilePath)
		if err != nil {
			return nil, fmt.Errorf("open journal file: %w", err)
		}
		return NewIdemShim(fp), nil
	case "redis":
		var evaler RedisEvaler
		if opts.RedisAddr != "" {
			evaler = NewGoRedisEvaler(opts.RedisAddr)
		} else {
			evaler = LoggingRedisEvaler{}
		}
		return NewIdemShim(NewRedisPersister(evaler, opts.RedisStream, opts.RedisMaxLen, opts.RedisMarkerTTL)), nil
	default:
		return nil, fmt.Errorf("unknown persistence adapter: %s", adapter)
	}
}
