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

func TestDiagnosticStringFormat(t *testing.T) {
	d := Errorf("motor.cnx", 12, 5, ECodeGotoUsed, "goto is not permitted")
	want := "motor.cnx:12:5: error: goto is not permitted [E0705]"
	if got := d.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestHasErrorsIgnoresWarnings(t *testing.T) {
	ds := []Diagnostic{
		Warnf("a.cnx", 1, 0, ECodeIncludeNotFound, "missing"),
	}
	if HasErrors(ds) {
		t.Error("a warning-only slice should report HasErrors = false")
	}
	ds = append(ds, Errorf("a.cnx", 2, 0, ECodeDuplicateName, "dup"))
	if !HasErrors(ds) {
		t.Error("a slice with an error should report HasErrors = true")
	}
}
