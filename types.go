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

import "fmt"

// PrimitiveKind enumerates the fixed-width primitive kinds CNX supports.
type PrimitiveKind int

const (
	KindU8 PrimitiveKind = iota
	KindU16
	KindU32
	KindU64
	KindI8
	KindI16
	KindI32
	KindI64
	KindF32
	KindF64
	KindBool
	KindVoid
	KindUsize
	KindIsize
	KindCString
)

var primitiveNames = map[PrimitiveKind]string{
	KindU8: "u8", KindU16: "u16", KindU32: "u32", KindU64: "u64",
	KindI8: "i8", KindI16: "i16", KindI32: "i32", KindI64: "i64",
	KindF32: "f32", KindF64: "f64", KindBool: "bool", KindVoid: "void",
	KindUsize: "usize", KindIsize: "isize", KindCString: "cstring",
}

func (k PrimitiveKind) String() string { return primitiveNames[k] }

// cCastName maps a primitive kind to its emitted C99 type name.
var cCastName = map[PrimitiveKind]string{
	KindU8: "uint8_t", KindU16: "uint16_t", KindU32: "uint32_t", KindU64: "uint64_t",
	KindI8: "int8_t", KindI16: "int16_t", KindI32: "int32_t", KindI64: "int64_t",
	KindF32: "float", KindF64: "double", KindBool: "bool", KindVoid: "void",
	KindUsize: "size_t", KindIsize: "ptrdiff_t", KindCString: "const char*",
}

// primitiveBits gives the bit width of every integer/float kind; used by
// Bits and by narrowing detection (analyzers_impl.go).
var primitiveBits = map[PrimitiveKind]int{
	KindU8: 8, KindI8: 8, KindU16: 16, KindI16: 16,
	KindU32: 32, KindI32: 32, KindF32: 32,
	KindU64: 64, KindI64: 64, KindF64: 64,
	KindUsize: 64, KindIsize: 64,
}

func primitiveSigned(k PrimitiveKind) bool {
	switch k {
	case KindI8, KindI16, KindI32, KindI64, KindIsize:
		return true
	default:
		return false
	}
}

// TType is the tagged-variant type value from spec.md §3. It is modeled as
// a Go interface with an unexported marker method, the same way kati's
// Value/Var interfaces in expr.go/var.go are the single entry point for a
// family of otherwise-unrelated payload structs; spec.md §9 asks explicitly
// for "Go interface + type switch" here, so no common base struct is
// introduced beyond the marker.
type TType interface {
	// ttype is unexported so only this package can add variants, the same
	// closed-set discipline kati gets implicitly by keeping Value's
	// implementations unexported in expr.go.
	ttype()
	// String renders the CNX-source spelling of the type, used in
	// diagnostics.
	String() string
}

// PrimitiveType is TType's primitive(kind) variant.
type PrimitiveType struct{ Kind PrimitiveKind }

func (PrimitiveType) ttype()          {}
func (t PrimitiveType) String() string { return t.Kind.String() }

// StructType is TType's struct(name) variant: a name reference into the
// symbol table, never a direct pointer to the symbol, per spec.md §9's
// "arena vs reference-counted ownership" note (avoids recreating the
// cyclic-graph problem self-referential structs would otherwise cause).
type StructType struct{ Name string }

func (StructType) ttype()          {}
func (t StructType) String() string { return t.Name }

// EnumType is TType's enum(name) variant.
type EnumType struct{ Name string }

func (EnumType) ttype()          {}
func (t EnumType) String() string { return t.Name }

// BitWidth is the backing integer width of a bitmap type.
type BitWidth int

const (
	BitWidth8 BitWidth = 8
	BitWidth16 BitWidth = 16
	BitWidth24 BitWidth = 24
	BitWidth32 BitWidth = 32
)

// BitmapType is TType's bitmap(name, bitWidth) variant.
type BitmapType struct {
	Name     string
	BitWidth BitWidth
}

func (BitmapType) ttype() {}
func (t BitmapType) String() string {
	return fmt.Sprintf("%s(bitmap%d)", t.Name, t.BitWidth)
}

// ArrayDimension is a small tagged variant of its own: either a resolved
// integer extent, or an unresolved macro/const name carried through for
// C passthrough (spec.md §3's "string dims carry unresolved constant
// names"). Grounded on kati's pattern type (dep.go), which is likewise
// either a literal suffix or a %-wildcard placeholder.
type ArrayDimension struct {
	Resolved bool
	Int      int
	Name     string
}

func ResolvedDim(n int) ArrayDimension   { return ArrayDimension{Resolved: true, Int: n} }
func SymbolicDim(name string) ArrayDimension { return ArrayDimension{Name: intern(name)} }

func (d ArrayDimension) String() string {
	if d.Resolved {
		return fmt.Sprintf("%d", d.Int)
	}
	return d.Name
}

// ArrayType is TType's array(element, dimensions) variant.
type ArrayType struct {
	Element    TType
	Dimensions []ArrayDimension
}

func (ArrayType) ttype() {}
func (t ArrayType) String() string {
	s := t.Element.String()
	for _, d := range t.Dimensions {
		s += "[" + d.String() + "]"
	}
	return s
}

// StringType is TType's string(capacity) variant; compiles to char[N+1].
type StringType struct{ Capacity int }

func (StringType) ttype()          {}
func (t StringType) String() string { return fmt.Sprintf("string<%d>", t.Capacity) }

// CByteCapacity is the emitted C array size (capacity + NUL terminator).
func (t StringType) CByteCapacity() int { return t.Capacity + 1 }

// CallbackType is TType's callback(name) variant: a nominal function-
// pointer alias. Equality is nominal (by Name), never structural, per
// spec.md §4.6(11).
type CallbackType struct{ Name string }

func (CallbackType) ttype()          {}
func (t CallbackType) String() string { return t.Name }

// RegisterType is TType's register(name) variant.
type RegisterType struct{ Name string }

func (RegisterType) ttype()          {}
func (t RegisterType) String() string { return t.Name }

// ExternalType is TType's external(name) variant: an opaque passthrough
// for C++ templates and externally-declared classes.
type ExternalType struct{ Name string }

func (ExternalType) ttype()          {}
func (t ExternalType) String() string { return t.Name }

// IsInteger reports whether t is an integer primitive (used by narrowing
// and overflow-helper analysis).
func IsInteger(t TType) bool {
	p, ok := t.(PrimitiveType)
	if !ok {
		return false
	}
	switch p.Kind {
	case KindBool, KindVoid, KindF32, KindF64, KindCString:
		return false
	default:
		return true
	}
}

// Bits returns the bit width of an integer/float primitive type, or 0 if
// t is not sized (e.g. a struct or callback type).
func Bits(t TType) int {
	p, ok := t.(PrimitiveType)
	if !ok {
		return 0
	}
	return primitiveBits[p.Kind]
}

// Signed reports whether an integer primitive type is signed.
func Signed(t TType) bool {
	p, ok := t.(PrimitiveType)
	if !ok {
		return false
	}
	return primitiveSigned(p.Kind)
}

// CTypeName renders the C99 spelling the generator emits for t, excluding
// array/string special-casing handled by the caller (lowering.go,
// codegen.go).
func CTypeName(t TType, symtab *SymbolTable) string {
	switch v := t.(type) {
	case PrimitiveType:
		return cCastName[v.Kind]
	case StructType:
		if symtab != nil && symtab.StructNeedsKeyword(v.Name) {
			return "struct " + v.Name
		}
		return v.Name
	case EnumType:
		return v.Name
	case BitmapType:
		return cCastName[bitmapBackingKind(v.BitWidth)]
	case StringType:
		return "char"
	case CallbackType:
		return v.Name + "_fp"
	case RegisterType:
		return v.Name
	case ExternalType:
		return v.Name
	case ArrayType:
		return CTypeName(v.Element, symtab)
	default:
		return "void"
	}
}

func bitmapBackingKind(w BitWidth) PrimitiveKind {
	switch w {
	case BitWidth8:
		return KindU8
	case BitWidth16:
		return KindU16
	case BitWidth24:
		return KindU32
	default:
		return KindU32
	}
}
