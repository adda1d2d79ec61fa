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

func TestMangleTopLevel(t *testing.T) {
	if got := GlobalScope.Mangle("setSpeed"); got != "setSpeed" {
		t.Errorf("Mangle = %q, want %q", got, "setSpeed")
	}
}

func TestMangleNestedScope(t *testing.T) {
	motor := NewScope("Motor", nil)
	if got := motor.Mangle("setSpeed"); got != "Motor_setSpeed" {
		t.Errorf("Mangle = %q, want %q", got, "Motor_setSpeed")
	}
}

func TestMangleDeeplyNestedScope(t *testing.T) {
	outer := NewScope("Drivetrain", nil)
	inner := NewScope("Motor", outer)
	if got := inner.Mangle("setSpeed"); got != "Drivetrain_Motor_setSpeed" {
		t.Errorf("Mangle = %q, want %q", got, "Drivetrain_Motor_setSpeed")
	}
}

func TestScopeContains(t *testing.T) {
	outer := NewScope("Drivetrain", nil)
	inner := NewScope("Motor", outer)
	if !outer.Contains(inner) {
		t.Error("outer should contain inner")
	}
	if inner.Contains(outer) {
		t.Error("inner should not contain outer")
	}
	if !GlobalScope.Contains(inner) {
		t.Error("global scope should contain every scope")
	}
}

func TestScopeDepth(t *testing.T) {
	if GlobalScope.Depth() != 0 {
		t.Errorf("GlobalScope.Depth() = %d, want 0", GlobalScope.Depth())
	}
	outer := NewScope("Drivetrain", nil)
	inner := NewScope("Motor", outer)
	if inner.Depth() != 2 {
		t.Errorf("inner.Depth() = %d, want 2", inner.Depth())
	}
}
