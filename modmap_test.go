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

import "testing"

func TestModMapMarkAndIsMutated(t *testing.T) {
	mm := NewModMap()
	if mm.IsMutated("Motor_setSpeed", "speed") {
		t.Fatal("should not be mutated before MarkMutated")
	}
	mm.MarkMutated("Motor_setSpeed", "speed")
	if !mm.IsMutated("Motor_setSpeed", "speed") {
		t.Fatal("should be mutated after MarkMutated")
	}
	if mm.IsMutated("Motor_setSpeed", "other") {
		t.Fatal("unrelated param should not be marked mutated")
	}
}

func TestModMapMerge(t *testing.T) {
	a := NewModMap()
	a.MarkMutated("f", "x")
	b := NewModMap()
	b.MarkMutated("f", "y")
	b.MarkMutated("g", "z")

	a.Merge(b)
	if !a.IsMutated("f", "x") || !a.IsMutated("f", "y") || !a.IsMutated("g", "z") {
		t.Fatal("merge should union all mutated params across both maps")
	}
}

func TestModMapMutatedParams(t *testing.T) {
	mm := NewModMap()
	mm.MarkMutated("f", "a")
	mm.MarkMutated("f", "b")
	params := mm.MutatedParams("f")
	if len(params) != 2 {
		t.Fatalf("MutatedParams = %v, want 2 entries", params)
	}
}
