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

import "sync"

// ModMap is the cross-file modification map from spec.md §3: a mapping
// from fully-mangled function name to the set of its parameter names that
// the function body mutates. It is populated by the analysis-only
// mutation scan over every CNX file during stage 3 (cnxcollect.go) and is
// only read, not added to, during stage 5 codegen — a mutation-tracked map
// in the manner of kati's accessCache (eval.go), which records whether a
// makefile read earlier in the job is still consistent with a later
// rehash. Guarded by a mutex for the same reason kati's accessCache
// is: the core's own contract is single-job-exclusive (spec.md §5), but a
// caller embedding this library might still run two jobs against shared
// state by mistake, and a stray race here would corrupt silently instead
// of loudly.
type ModMap struct {
	mu sync.Mutex
	m  map[string]map[string]bool
}

// NewModMap creates an empty ModMap.
func NewModMap() *ModMap {
	return &ModMap{m: make(map[string]map[string]bool)}
}

// MarkMutated records that the function named mangledFunc writes to one of
// its parameters, param.
func (mm *ModMap) MarkMutated(mangledFunc, param string) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	set, ok := mm.m[mangledFunc]
	if !ok {
		set = make(map[string]bool)
		mm.m[mangledFunc] = set
	}
	set[param] = true
}

// IsMutated reports whether param is recorded as mutated anywhere in the
// function named mangledFunc, across every file processed so far in
// topological order. A parameter absent from this set after every file in
// the job has been analyzed is the auto-const inference target (spec.md
// §3, "most subtle cross-file inference").
func (mm *ModMap) IsMutated(mangledFunc, param string) bool {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	set, ok := mm.m[mangledFunc]
	if !ok {
		return false
	}
	return set[param]
}

// MutatedParams returns the set of parameter names recorded as mutated for
// mangledFunc, for diagnostics and testing.
func (mm *ModMap) MutatedParams(mangledFunc string) []string {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	set := mm.m[mangledFunc]
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}

// Merge folds other's entries into mm, taking the union of each function's
// mutated-parameter set.
func (mm *ModMap) Merge(other *ModMap) {
	other.mu.Lock()
	defer other.mu.Unlock()
	mm.mu.Lock()
	defer mm.mu.Unlock()
	for fn, params := range other.m {
		set, ok := mm.m[fn]
		if !ok {
			set = make(map[string]bool)
			mm.m[fn] = set
		}
		for p := range params {
			set[p] = true
		}
	}
}
