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

package journal

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Process-level counters feeding the end-of-process summary. They are atomic
// so the observer path never takes a lock for them.
var (
	captured atomic.Int64
	samples  atomic.Int64

	thresholdsMu sync.RWMutex
	thresholds   = make(map[string]string)
)

func recordCapture(f Frame) {
	captured.Add(1)
	samples.Add(int64(f.SampleCount()))
}

// SetThreshold records a configuration knob for the final summary.
func SetThreshold(name string, value string) {
	thresholdsMu.Lock()
	thresholds[name] = value
	thresholdsMu.Unlock()
}

func SetThresholdInt(name string, v int)                { SetThreshold(name, fmt.Sprintf("%d", v)) }
func SetThresholdDuration(name string, d time.Duration) { SetThreshold(name, d.String()) }
func SetThresholdBool(name string, b bool)              { SetThreshold(name, fmt.Sprintf("%t", b)) }

func getCaptureTotals() (framesN, samplesN int64) {
	return captured.Load(), samples.Load()
}

func getThresholdSnapshot() map[string]string {
	thresholdsMu.RLock()
	defer thresholdsMu.RUnlock()
	out := make(map[string]string, len(thresholds))
	for k, v := range thresholds {
		out[k] = v
	}
	return out
}

// resetCaptureTotals is for tests.
func resetCaptureTotals() {
	captured.Store(0)
	samples.Store(0)
}
