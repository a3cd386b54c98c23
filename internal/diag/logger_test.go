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

package diag

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	Logf("pointer %d", 3)
	Prefixed("[journal] ")("flushed %d frames", 2)
	require.Equal(t, []string{"pointer 3", "[journal] flushed 2 frames"}, lines)

	SetLogger(nil)
	require.NotPanics(t, func() { Logf("muted") })
	require.Len(t, lines, 2)
}

func TestLogf_Default(t *testing.T) {
	require.NotNil(t, Logf)
}
