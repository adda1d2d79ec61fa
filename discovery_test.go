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

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDiscoverTopologicalOrder(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "base.cnx", "fn identity() -> i32 { return 0; }\n")
	writeTestFile(t, dir, "main.cnx", "#include \"base.cnx\"\nfn main() -> i32 { return 0; }\n")

	input, err := Discover(PipelineRequest{Path: filepath.Join(dir, "main.cnx")})
	require.NoError(t, err)
	require.Len(t, input.CNXFiles, 2)
	// base.cnx is a dependency of main.cnx, so it must come first.
	require.Equal(t, "base.cnx", filepath.Base(input.CNXFiles[0].Path))
	require.Equal(t, "main.cnx", filepath.Base(input.CNXFiles[1].Path))
	require.True(t, input.CNXFiles[0].SymbolsOnly)
	require.False(t, input.CNXFiles[1].SymbolsOnly)
}

func TestDiscoverReportsCycleAsWarning(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.cnx", "#include \"b.cnx\"\n")
	writeTestFile(t, dir, "b.cnx", "#include \"a.cnx\"\n")

	input, err := Discover(PipelineRequest{Path: filepath.Join(dir, "a.cnx")})
	require.NoError(t, err)
	require.False(t, HasErrors(input.Warnings), "a cycle must be a warning, never an error")

	found := false
	for _, w := range input.Warnings {
		if w.Code == ECodeDependencyCycle {
			found = true
		}
	}
	require.True(t, found, "expected a dependency cycle warning")
}

func TestDiscoverHeaderClassification(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "driver.h", "extern int blink(int n);\n")
	writeTestFile(t, dir, "main.cnx", "#include \"driver.h\"\nfn main() -> i32 { return 0; }\n")

	input, err := Discover(PipelineRequest{Path: filepath.Join(dir, "main.cnx")})
	require.NoError(t, err)
	require.Len(t, input.Headers, 1)
	require.False(t, input.Headers[0].IsCXX)
}

func TestDiscoverUnresolvedIncludeWarns(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "main.cnx", "#include \"missing.cnx\"\nfn main() -> i32 { return 0; }\n")

	input, err := Discover(PipelineRequest{Path: filepath.Join(dir, "main.cnx")})
	require.NoError(t, err)
	found := false
	for _, w := range input.Warnings {
		if w.Code == ECodeIncludeNotFound {
			found = true
		}
	}
	require.True(t, found)
}
