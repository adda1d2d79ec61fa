// Copyright 2015 Google Inc. All rights reserved
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cnext

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLoadEndToEndSingleFile exercises scenario A from spec.md: a single
// CNX file with no headers, no cross-file const inference, translates
// cleanly to C. No Config override is passed, so the default
// WriteToDisk=true writes the outputs beside the source in the temp dir.
func TestLoadEndToEndSingleFile(t *testing.T) {
	dir := t.TempDir()
	src := "scope Motor {\n" +
		"  void setSpeed(i32 speed) {\n" +
		"    speed <- speed + 1;\n" +
		"  }\n" +
		"}\n"
	path := filepath.Join(dir, "motor.cnx")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	result, err := Load(PipelineRequest{Path: path})
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	require.Len(t, result.Files, 1)

	fr := result.Files[0]
	require.True(t, fr.Succeeded)
	require.Contains(t, fr.Source, "Motor_setSpeed")
	require.Contains(t, fr.Header, "Motor_setSpeed")
}

// TestLoadEndToEndWritesOutputsToDisk covers the all-or-nothing disk-write
// invariant from spec.md §7: a clean run with WriteToDisk set produces
// both the .c and .h files on disk.
func TestLoadEndToEndWritesOutputsToDisk(t *testing.T) {
	dir := t.TempDir()
	src := "i32 identity(i32 value) {\n  return value;\n}\n"
	path := filepath.Join(dir, "util.cnx")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	outDir := t.TempDir()
	result, err := Load(PipelineRequest{
		Path: path,
		Config: &Config{
			WriteToDisk: true,
			OutputDir:   outDir,
		},
	})
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	require.Len(t, result.WrittenPaths, 2)
	for _, p := range result.WrittenPaths {
		_, statErr := os.Stat(p)
		require.NoError(t, statErr)
	}
}

// TestLoadEndToEndDuplicateNameIsError covers spec.md §4's conflict
// detection stage: two CNX declarations mangling to the same name report
// a duplicate-name error and the job does not proceed to codegen.
func TestLoadEndToEndDuplicateNameIsError(t *testing.T) {
	dir := t.TempDir()
	src := "void blink() {\n}\n" +
		"void blink() {\n}\n"
	path := filepath.Join(dir, "dup.cnx")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	result, err := Load(PipelineRequest{Path: path})
	require.NoError(t, err)
	require.False(t, result.Succeeded())
	require.True(t, HasErrors(result.Errors))

	found := false
	for _, d := range result.Errors {
		if d.Code == ECodeDuplicateName {
			found = true
		}
	}
	require.True(t, found)
}
