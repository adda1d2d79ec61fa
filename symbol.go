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

// SourceLanguage tags which grammar produced a symbol; used by conflict
// detection (stage 4) and by codegen's linkage rules.
type SourceLanguage int

const (
	LangCNX SourceLanguage = iota
	LangC
	LangCXX
)

func (l SourceLanguage) String() string {
	switch l {
	case LangCNX:
		return "CNX"
	case LangC:
		return "C"
	case LangCXX:
		return "C++"
	default:
		return "?"
	}
}

// symbolBase holds the fields every TSymbol kind carries, per spec.md §3.
// It is embedded, not exposed as a common interface type, matching the
// "resist the urge to add a common base class" guidance in spec.md §9 —
// the payloads below are accessed through the TSymbol type switch, never
// through symbolBase alone.
type symbolBase struct {
	Name           string
	Scope          *Scope
	SourceFile     string
	SourceLine     int
	SourceLanguage SourceLanguage
	IsExported     bool
	// DocComment holds the contiguous run of `//`-style comment lines
	// immediately preceding the declaration, captured verbatim by
	// cnxcollect.go's precedingComment so codegen.go can re-emit it next to
	// the generated declaration (spec.md §4.6 responsibility 1). Empty when
	// the declaration has no leading comment.
	DocComment string
}

// TSymbol is the tagged-variant symbol value from spec.md §3, modeled as a
// sealed interface the same way TType is (types.go): one struct per kind,
// no inheritance, per spec.md §9.
type TSymbol interface {
	tsymbol()
	Base() *symbolBase
}

// Param is one function parameter, carrying the extra flags spec.md §3
// requires: const-ness, array-ness, and an auto-const flag. Nothing in this
// package sets IsAutoConst; paramList (codegen.go) decides auto-const at
// emission time from the ModMap.
type Param struct {
	Name       string
	Type       TType
	IsConst    bool
	IsArray    bool
	IsAutoConst bool
}

// FunctionSymbol is TSymbol's function variant.
type FunctionSymbol struct {
	symbolBase
	Params     []Param
	ReturnType TType
	IsISR      bool // declared with the ISR qualifier (spec.md §6 grammar)
	Body       interface{} // raw CNX body text (a string), read back by bodyOf
}

func (*FunctionSymbol) tsymbol()          {}
func (s *FunctionSymbol) Base() *symbolBase { return &s.symbolBase }

// OverflowMode is the arithmetic-overflow policy a variable declares,
// spec.md §4.6(4): absent (plain C arithmetic, no helper), clamp (saturate
// at the type's range), or wrap (defined modular wraparound).
type OverflowMode int

const (
	OverflowNone OverflowMode = iota
	OverflowClamp
	OverflowWrap
)

func (m OverflowMode) String() string {
	switch m {
	case OverflowClamp:
		return "clamp"
	case OverflowWrap:
		return "wrap"
	default:
		return "none"
	}
}

// VariableSymbol is TSymbol's variable variant.
type VariableSymbol struct {
	symbolBase
	Type       TType
	IsConst    bool
	IsAtomic   bool
	IsVolatile bool
	IsExtern   bool
	Overflow   OverflowMode
	// InitExpr is the raw CNX initializer text following `<-`, kept
	// unparsed so resolve.go's dimension resolution and lowering.go's
	// declaration emission can each use it their own way; empty for an
	// `extern` declaration with no initializer.
	InitExpr   string
	Dimensions []ArrayDimension
}

func (*VariableSymbol) tsymbol()          {}
func (s *VariableSymbol) Base() *symbolBase { return &s.symbolBase }

// StructField describes one field of a struct symbol.
type StructField struct {
	Name     string
	Type     TType
	IsConst  bool
	IsAtomic bool
	IsArray  bool
}

// StructSymbol is TSymbol's struct variant. FieldOrder preserves
// declaration order; FieldsByName gives O(1) lookup, the same
// order-preserving-map-plus-index idiom kati uses for Vars/rule lookups.
type StructSymbol struct {
	symbolBase
	FieldOrder   []string
	FieldsByName map[string]StructField
}

func (*StructSymbol) tsymbol()          {}
func (s *StructSymbol) Base() *symbolBase { return &s.symbolBase }

// EnumSymbol is TSymbol's enum variant.
type EnumSymbol struct {
	symbolBase
	MemberOrder []string
	Values      map[string]int64
	BitWidth    int // implicit width needed to hold the largest value
}

func (*EnumSymbol) tsymbol()          {}
func (s *EnumSymbol) Base() *symbolBase { return &s.symbolBase }

// BitmapField describes one named field packed into a bitmap.
type BitmapField struct {
	Name   string
	Offset int
	Width  int
}

// BitmapSymbol is TSymbol's bitmap variant. Sum(Fields[*].Width) must equal
// BitWidth (invariant checked during collection, cnxcollect.go).
type BitmapSymbol struct {
	symbolBase
	Backing     PrimitiveKind
	BitWidth    BitWidth
	FieldOrder  []string
	FieldsByName map[string]BitmapField
}

func (*BitmapSymbol) tsymbol()          {}
func (s *BitmapSymbol) Base() *symbolBase { return &s.symbolBase }

// RegisterAccess is the access mode of one memory-mapped register member.
type RegisterAccess int

const (
	AccessRW RegisterAccess = iota
	AccessRO
	AccessWO
)

// RegisterMember describes one named member of a register block.
type RegisterMember struct {
	Name   string
	Type   TType
	Offset int
	Access RegisterAccess
}

// RegisterSymbol is TSymbol's register variant.
type RegisterSymbol struct {
	symbolBase
	BaseAddress  uint64
	MemberOrder  []string
	MembersByName map[string]RegisterMember
}

func (*RegisterSymbol) tsymbol()          {}
func (s *RegisterSymbol) Base() *symbolBase { return &s.symbolBase }

// ScopeSymbol is TSymbol's scope variant: the TSymbol-level reflection of
// the Scope a `scope X { ... }` block introduces.
type ScopeSymbol struct {
	symbolBase
	Owned      *Scope
	MemberVisibility map[string]bool // name -> isExported, per spec.md §3
}

func (*ScopeSymbol) tsymbol()          {}
func (s *ScopeSymbol) Base() *symbolBase { return &s.symbolBase }

// MangledName is a convenience accessor used throughout codegen: the
// symbol's name mangled through its owning scope chain (scope.go).
func MangledName(sym TSymbol) string {
	b := sym.Base()
	return b.Scope.Mangle(b.Name)
}
