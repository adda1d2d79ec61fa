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
	"runtime"
	"sync"

	"github.com/golang/glog"
)

// CollectHeaderSymbolsParallel runs stage 2 (spec.md §4.2) across headers
// concurrently, one worker goroutine per CPU, the same worker-pool shape
// kati's own job scheduler uses (worker.go) generalized from "build jobs
// with dependency edges between them" down to "independent, embarrassingly
// parallel header scans with no edges at all" — spec.md §5 explicitly
// calls header collection out as the one stage safe to parallelize,
// because distinct headers never share mutable state except the shared
// SymbolTable and ModMap, both of which are already safe for concurrent
// writers (symtab.go's Insert, modmap.go's mutex).
//
// Load (pipeline.go) does not call this by default — it processes headers
// sequentially for deterministic diagnostic ordering (spec.md §8 invariant
// 5) — but an embedder with many large headers and no need for ordering
// guarantees can call it directly instead of the sequential loop in Load.
func CollectHeaderSymbolsParallel(tu *TranslationUnit, headers []*HeaderFile) ([]Diagnostic, error) {
	workers := runtime.NumCPU()
	if workers > len(headers) {
		workers = len(headers)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan *HeaderFile)
	type outcome struct {
		diags []Diagnostic
		err   error
	}
	results := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for h := range jobs {
				diags, err := CollectHeaderSymbols(tu, h)
				results <- outcome{diags, err}
			}
			glog.V(2).Infof("parallel: header worker %d exiting", id)
		}(i)
	}

	go func() {
		for _, h := range headers {
			jobs <- h
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var allDiags []Diagnostic
	var firstErr error
	for r := range results {
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
		allDiags = append(allDiags, r.diags...)
	}
	return allDiags, firstErr
}
