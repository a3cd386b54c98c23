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

// Package api exposes a tracker over HTTP: samples can be posted to it and
// the journal's latest frame, pointer traces and counters can be read back.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"ptrack"
	"ptrack/internal/journal"
)

// Server serializes every tracker call behind one mutex, making it the single
// writer a Tracker requires when input arrives on several goroutines.
type Server struct {
	mu      sync.Mutex
	tracker *ptrack.Tracker
	store   *journal.Store
	worker  *journal.Worker
}

// NewServer creates a server around tr. store and worker may be nil.
func NewServer(tr *ptrack.Tracker, store *journal.Store, worker *journal.Worker) *Server {
	return &Server{tracker: tr, store: store, worker: worker}
}

// Do runs fn with exclusive access to the tracker.
func (s *Server) Do(fn func(t *ptrack.Tracker) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.tracker)
}

// RegisterRoutes sets up the HTTP routes for the server on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/input", s.handleInput)
	mux.HandleFunc("/frame", s.handleFrame)
	mux.HandleFunc("/pointers", s.handlePointers)
	mux.HandleFunc("/stats", s.handleStats)
}

// handleInput applies one sample. Query parameters:
//
//	phase  down|move|up|cancel|cancel_all (required)
//	id     pointer id (required except for cancel_all)
//	kind   int (default), float or string
//	x, y, nx, ny, size, pressure, ts   numbers; missing coordinates mean "no location"
//	batched=1  queue a move instead of applying it
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	phase := q.Get("phase")
	if phase == "" {
		http.Error(w, "phase is required", http.StatusBadRequest)
		return
	}
	var id ptrack.Identity
	if phase != "cancel_all" {
		var err error
		if id, err = ParseIdentity(q.Get("kind"), q.Get("id")); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	x, y := floatParam(q.Get("x")), floatParam(q.Get("y"))
	nx, ny := zeroIfNaN(floatParam(q.Get("nx"))), zeroIfNaN(floatParam(q.Get("ny")))
	var opts []ptrack.SampleOption
	if v := q.Get("ts"); v != "" {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "ts must be an integer", http.StatusBadRequest)
			return
		}
		opts = append(opts, ptrack.At(ts))
	}
	if v := q.Get("size"); v != "" {
		opts = append(opts, ptrack.WithSize(zeroIfNaN(floatParam(v))))
	}
	if v := q.Get("pressure"); v != "" {
		opts = append(opts, ptrack.WithPressure(zeroIfNaN(floatParam(v))))
	}

	var flushed bool
	err := s.Do(func(t *ptrack.Tracker) error {
		switch phase {
		case "down":
			return t.Add(id, x, y, nx, ny, opts...)
		case "move":
			if q.Get("batched") == "1" {
				var err error
				flushed, err = t.MoveBatched(id, x, y, nx, ny, opts...)
				return err
			}
			return t.Move(id, x, y, nx, ny, opts...)
		case "up":
			return t.Remove(id, x, y, nx, ny, opts...)
		case "cancel":
			return t.Cancel(id, x, y, nx, ny, opts...)
		case "cancel_all":
			return t.CancelAll()
		default:
			return errUnknownPhase
		}
	})
	if err != nil {
		w.Header().Set("X-Ptrack-Status", "Rejected")
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	var count, index int
	_ = s.Do(func(t *ptrack.Tracker) error {
		count, index = t.Count(), t.Index()
		return nil
	})
	w.Header().Set("X-Ptrack-Count", strconv.Itoa(count))
	w.Header().Set("X-Ptrack-Index", strconv.Itoa(index))
	w.Header().Set("X-Ptrack-Flushed", strconv.FormatBool(flushed))
	w.Header().Set("X-Ptrack-Status", "OK")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

var errUnknownPhase = errors.New("unknown phase")

func statusFor(err error) int {
	switch {
	case errors.Is(err, errUnknownPhase), errors.Is(err, ptrack.ErrInvalidIdentity):
		return http.StatusBadRequest
	case errors.Is(err, ptrack.ErrCapacityExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, ptrack.ErrUnregisteredPointer), errors.Is(err, ptrack.ErrDuplicatePointer):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ParseIdentity builds an identity from a kind name and its text form.
func ParseIdentity(kind, raw string) (ptrack.Identity, error) {
	if raw == "" {
		return ptrack.Identity{}, errors.New("id is required")
	}
	switch kind {
	case "", "int":
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ptrack.Identity{}, fmt.Errorf("int id: %w", err)
		}
		return ptrack.IntID(v), nil
	case "float":
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return ptrack.Identity{}, fmt.Errorf("float id: %w", err)
		}
		return ptrack.FloatID(v), nil
	case "string":
		return ptrack.StringID(raw), nil
	default:
		return ptrack.Identity{}, fmt.Errorf("unknown id kind %q", kind)
	}
}

// floatParam returns NaN for missing or malformed values.
func floatParam(v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func zeroIfNaN(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return f
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}
	f, ok := s.store.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, f)
}

func (s *Server) handlePointers(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}
	writeJSON(w, s.store.Pointers())
}

// Stats is the /stats payload.
type Stats struct {
	Capacity int                  `json:"capacity"`
	Count    int                  `json:"count"`
	Pending  int                  `json:"pending"`
	Journal  *journal.Stats       `json:"journal,omitempty"`
	Worker   *journal.WorkerStats `json:"worker,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var st Stats
	_ = s.Do(func(t *ptrack.Tracker) error {
		st.Capacity, st.Count, st.Pending = t.Capacity(), t.Count(), len(t.Pending())
		return nil
	})
	if s.store != nil {
		js := s.store.Stats()
		st.Journal = &js
	}
	if s.worker != nil {
		ws := s.worker.Stats()
		st.Worker = &ws
	}
	writeJSON(w, st)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// NewHTTPServer returns an http.Server serving the routes on addr.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// ListenAndServe starts the HTTP server on the specified address.
func (s *Server) ListenAndServe(addr string) error {
	fmt.Printf("ptrack API server listening on %s\n", addr)
	return s.NewHTTPServer(addr).ListenAndServe()
}
