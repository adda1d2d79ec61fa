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

// internTable deduplicates mangled names and symbolic array-dimension
// names across a
// translation job. Unlike the symbol table, it carries no job-specific
// state, so it stays a single process-wide singleton the same way kati's
// symtab.go keeps one.
type internTable struct {
	mu sync.Mutex
	m  map[string]string
}

var symtabIntern = &internTable{
	m: make(map[string]string),
}

// intern returns the canonical copy of s, so that repeated mangled names
// (e.g. "Motor_setSpeed" recomputed for every call site) share one
// allocation.
func intern(s string) string {
	symtabIntern.mu.Lock()
	v, ok := symtabIntern.m[s]
	if ok {
		symtabIntern.mu.Unlock()
		return v
	}
	symtabIntern.m[s] = s
	symtabIntern.mu.Unlock()
	return s
}
