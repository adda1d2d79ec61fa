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

func TestCTypeNamePrimitives(t *testing.T) {
	cases := []struct {
		t    TType
		want string
	}{
		{PrimitiveType{Kind: KindU8}, "uint8_t"},
		{PrimitiveType{Kind: KindI32}, "int32_t"},
		{PrimitiveType{Kind: KindF64}, "double"},
		{PrimitiveType{Kind: KindBool}, "bool"},
	}
	for _, c := range cases {
		if got := CTypeName(c.t, nil); got != c.want {
			t.Errorf("CTypeName(%v) = %q, want %q", c.t, got, c.want)
		}
	}
}

func TestBitmapBackingKindWidths(t *testing.T) {
	cases := []struct {
		w    BitWidth
		want PrimitiveKind
	}{
		{BitWidth8, KindU8},
		{BitWidth16, KindU16},
		{BitWidth24, KindU32}, // no native 24-bit C integer; packs into uint32_t
		{BitWidth32, KindU32},
	}
	for _, c := range cases {
		if got := bitmapBackingKind(c.w); got != c.want {
			t.Errorf("bitmapBackingKind(%d) = %v, want %v", c.w, got, c.want)
		}
	}
}

func TestStructNeedsKeyword(t *testing.T) {
	st := NewSymbolTable()
	st.MarkNeedsStructKeyword("Motor")
	got := CTypeName(StructType{Name: "Motor"}, st)
	if got != "struct Motor" {
		t.Errorf("CTypeName = %q, want %q", got, "struct Motor")
	}
	got = CTypeName(StructType{Name: "Plain"}, st)
	if got != "Plain" {
		t.Errorf("CTypeName = %q, want %q", got, "Plain")
	}
}

func TestArrayTypeString(t *testing.T) {
	at := ArrayType{
		Element:    PrimitiveType{Kind: KindU16},
		Dimensions: []ArrayDimension{ResolvedDim(4), SymbolicDim("MAX_WIDTH")},
	}
	want := "u16[4][MAX_WIDTH]"
	if got := at.String(); got != want {
		t.Errorf("ArrayType.String() = %q, want %q", got, want)
	}
}

func TestStringTypeCapacity(t *testing.T) {
	s := StringType{Capacity: 15}
	if got := s.CByteCapacity(); got != 16 {
		t.Errorf("CByteCapacity() = %d, want 16", got)
	}
}

func TestIsIntegerExcludesFloatBoolVoid(t *testing.T) {
	if IsInteger(PrimitiveType{Kind: KindF32}) {
		t.Error("f32 should not be an integer type")
	}
	if IsInteger(PrimitiveType{Kind: KindBool}) {
		t.Error("bool should not be an integer type")
	}
	if !IsInteger(PrimitiveType{Kind: KindU32}) {
		t.Error("u32 should be an integer type")
	}
}
