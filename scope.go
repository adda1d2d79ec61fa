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

import "strings"

// Scope is the ownership chain from spec.md §3: "global ← scope ← scope …".
// Every non-global symbol has exactly one owning Scope (invariant).
type Scope struct {
	Name    string // empty for the global scope
	Parent  *Scope
	Members []string // names declared directly in this scope, in declaration order
}

// GlobalScope is the chain terminator; it mangles to the empty string.
var GlobalScope = &Scope{Name: ""}

// NewScope creates a scope named name nested directly under parent. Passing
// nil for parent anchors it under the global scope.
func NewScope(name string, parent *Scope) *Scope {
	if parent == nil {
		parent = GlobalScope
	}
	return &Scope{Name: name, Parent: parent}
}

// IsGlobal reports whether s is the global scope.
func (s *Scope) IsGlobal() bool { return s == nil || s == GlobalScope }

// Declare records name as a member of s, in declaration order; CNX symbol
// collection (cnxcollect.go) calls it for every declaration it registers.
func (s *Scope) Declare(name string) {
	s.Members = append(s.Members, name)
}

// chain returns the scopes from global to s, excluding the global scope
// itself (which mangles to nothing).
func (s *Scope) chain() []*Scope {
	if s.IsGlobal() {
		return nil
	}
	return append(s.Parent.chain(), s)
}

// Mangle joins the scope chain with name using underscores, per spec.md §3:
// a function setSpeed inside scope Motor becomes Motor_setSpeed. The global
// scope mangles to empty, so a top-level name is emitted unchanged.
func (s *Scope) Mangle(name string) string {
	chain := s.chain()
	if len(chain) == 0 {
		return intern(name)
	}
	parts := make([]string, 0, len(chain)+1)
	for _, sc := range chain {
		parts = append(parts, sc.Name)
	}
	parts = append(parts, name)
	return intern(strings.Join(parts, "_"))
}

// Depth returns the scope nesting depth, 0 for the global scope.
func (s *Scope) Depth() int {
	if s.IsGlobal() {
		return 0
	}
	return 1 + s.Parent.Depth()
}

// Contains reports whether s is ancestor-or-self of other.
func (s *Scope) Contains(other *Scope) bool {
	for o := other; o != nil; o = o.Parent {
		if o == s {
			return true
		}
		if o.IsGlobal() {
			break
		}
	}
	return s.IsGlobal()
}
