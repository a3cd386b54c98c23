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

package ptrack

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded is reported when a pointer goes down and every slot is occupied.
	ErrCapacityExceeded = errors.New("maximum number of supported pointers reached")
	// ErrUnregisteredPointer is reported when a move, remove or cancel names an identity with no slot.
	ErrUnregisteredPointer = errors.New("cannot update an unregistered pointer")
	// ErrDuplicatePointer is reported when a pointer goes down twice without lifting.
	ErrDuplicatePointer = errors.New("pointer is already down")
	// ErrReentrantPump is returned when the tracker is entered while a batch pump or purge sweep is running.
	ErrReentrantPump = errors.New("attempting to pump while already pumping a batch")
	// ErrEmptySplit is returned by Split when no visible pointer matches the id bits.
	ErrEmptySplit = errors.New("id bits did not match any pointer")
	// ErrPurgeUnderflow means a lifted pointer was purged while the active count was already zero.
	ErrPurgeUnderflow = errors.New("cannot purge a pointer with an active count of zero")
	// ErrInvalidIdentity is returned for samples carrying the zero Identity.
	ErrInvalidIdentity = errors.New("invalid pointer identity")
)

// OpError records a failed tracker operation and the identity it concerned.
type OpError struct {
	Op       string
	Identity Identity
	Err      error
}

func (e *OpError) Error() string {
	if e.Identity.IsValid() {
		return fmt.Sprintf("ptrack: %s %s: %v", e.Op, e.Identity, e.Err)
	}
	return fmt.Sprintf("ptrack: %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// opError wraps err unless it already carries operation context.
func opError(op string, id Identity, err error) error {
	if err == nil {
		return nil
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return err
	}
	return &OpError{Op: op, Identity: id, Err: err}
}
