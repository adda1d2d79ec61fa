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
	"sync"

	"github.com/golang/glog"
)

// SymbolTable is the process-local, per-translation-unit registry from
// spec.md §3: three partitions (CNX, C, C++ symbols) plus the derived
// caches codegen consults on every lookup. Grounded on kati's depBuilder
// (dep.go), which likewise keeps one main map (rules) next to several
// purpose-built side indexes (suffixRules, phony, implicitRules) rather
// than recomputing them from rules on every query.
type SymbolTable struct {
	// mu serializes Insert, so concurrent header workers (parallel.go) can
	// register symbols into the same table.
	mu sync.Mutex

	cnx map[string]TSymbol
	c   map[string]TSymbol
	cxx map[string]TSymbol

	// structFields caches field maps indexed by struct name, across all
	// partitions, for O(1) lookup during codegen field access.
	structFields map[string]*StructSymbol

	// needsStructKeyword records C struct names that must be spelled
	// "struct Foo" at use sites (i.e. never typedef'd away).
	needsStructKeyword map[string]bool

	// enumBitWidths caches enum sizing for narrowing/cast analysis.
	enumBitWidths map[string]int

	// opaqueStructs is the set of forward-declared (incomplete) struct
	// names recorded through MarkOpaque and consulted during external
	// reference resolution (resolve.go). Header collection
	// (headercollect.go) does not call MarkOpaque: a forward-declared
	// header struct is registered as an ordinary StructSymbol.
	opaqueStructs map[string]bool

	// typedefToTag maps a C typedef name to the underlying tag name it
	// aliases (e.g. "my_struct_t" -> "my_struct"), so codegen can decide
	// whether the "struct" keyword is needed.
	typedefToTag map[string]string

	// includeDirectives maps an external type name to an #include
	// directive string recorded through SetIncludeDirective and read back
	// with IncludeDirectiveFor. Header collection does not call
	// SetIncludeDirective, and GenerateHeader (codegen.go) does not read
	// this map: it re-emits each CNX file's own recorded #include lines.
	includeDirectives map[string]string

	// cnxDeclarations appends every CNX symbol ever inserted under a given
	// mangled name, instead of letting a later declaration silently
	// overwrite an earlier one in cnx (as a plain map would). Two CNX
	// scopes mangling to the same name is exactly the E0201 case stage 4
	// must catch, so the table can't lose the first site the way kati's
	// single rules map is allowed to for overlapping build rules.
	cnxDeclarations map[string][]TSymbol
}

// NewSymbolTable creates an empty SymbolTable.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		cnx:                make(map[string]TSymbol),
		c:                  make(map[string]TSymbol),
		cxx:                make(map[string]TSymbol),
		structFields:       make(map[string]*StructSymbol),
		needsStructKeyword: make(map[string]bool),
		enumBitWidths:      make(map[string]int),
		opaqueStructs:      make(map[string]bool),
		typedefToTag:       make(map[string]string),
		includeDirectives:  make(map[string]string),
		cnxDeclarations:    make(map[string][]TSymbol),
	}
}

func (t *SymbolTable) partition(lang SourceLanguage) map[string]TSymbol {
	switch lang {
	case LangCNX:
		return t.cnx
	case LangC:
		return t.c
	case LangCXX:
		return t.cxx
	default:
		return t.cnx
	}
}

// Insert registers sym under its mangled name in the partition matching its
// source language, updating the derived caches. It does not itself detect
// conflicts across partitions — that is conflict.go's job (stage 4); this
// mirrors kati's depBuilder.rules map, which likewise accepts overlapping
// inserts and lets a later pass (picking explicit vs. implicit rules)
// adjudicate.
func (t *SymbolTable) Insert(sym TSymbol) {
	t.mu.Lock()
	defer t.mu.Unlock()
	base := sym.Base()
	mangled := MangledName(sym)
	glog.V(2).Infof("symtab: insert %s (%s, %s)", mangled, base.SourceLanguage, base.SourceFile)
	t.partition(base.SourceLanguage)[mangled] = sym
	if base.SourceLanguage == LangCNX {
		t.cnxDeclarations[mangled] = append(t.cnxDeclarations[mangled], sym)
	}

	switch s := sym.(type) {
	case *StructSymbol:
		t.structFields[mangled] = s
	case *EnumSymbol:
		t.enumBitWidths[mangled] = s.BitWidth
	}
}

// MarkNeedsStructKeyword records that mangled struct name must be spelled
// "struct NAME" at use sites in generated C.
func (t *SymbolTable) MarkNeedsStructKeyword(name string) {
	t.needsStructKeyword[name] = true
}

// StructNeedsKeyword reports whether name must be spelled "struct NAME".
func (t *SymbolTable) StructNeedsKeyword(name string) bool {
	return t.needsStructKeyword[name]
}

// MarkOpaque records name as a forward-declared-only struct.
func (t *SymbolTable) MarkOpaque(name string) { t.opaqueStructs[name] = true }

// IsOpaque reports whether name is opaque (no full definition available).
func (t *SymbolTable) IsOpaque(name string) bool { return t.opaqueStructs[name] }

// SetTypedefTag records that typedef aliases tag.
func (t *SymbolTable) SetTypedefTag(typedef, tag string) { t.typedefToTag[typedef] = tag }

// TagFor resolves a typedef name to its underlying tag, if any.
func (t *SymbolTable) TagFor(typedef string) (string, bool) {
	tag, ok := t.typedefToTag[typedef]
	return tag, ok
}

// SetIncludeDirective remembers the literal #include line that brought
// externalType into scope.
func (t *SymbolTable) SetIncludeDirective(externalType, directive string) {
	t.includeDirectives[externalType] = directive
}

// IncludeDirectiveFor returns the literal #include line for externalType,
// if one was recorded during header collection.
func (t *SymbolTable) IncludeDirectiveFor(externalType string) (string, bool) {
	d, ok := t.includeDirectives[externalType]
	return d, ok
}

// Lookup resolves a mangled name, searching CNX first, then C, then C++,
// mirroring the priority a conflict would need to break (conflict.go
// decides whether the result is ambiguous; Lookup just returns the first
// hit so ordinary codegen lookups stay cheap).
func (t *SymbolTable) Lookup(mangled string) (TSymbol, bool) {
	if s, ok := t.cnx[mangled]; ok {
		return s, true
	}
	if s, ok := t.c[mangled]; ok {
		return s, true
	}
	if s, ok := t.cxx[mangled]; ok {
		return s, true
	}
	return nil, false
}

// LookupInLanguage resolves a mangled name within a single partition.
func (t *SymbolTable) LookupInLanguage(mangled string, lang SourceLanguage) (TSymbol, bool) {
	s, ok := t.partition(lang)[mangled]
	return s, ok
}

// StructByName returns the struct symbol cached for mangled, if any.
func (t *SymbolTable) StructByName(mangled string) (*StructSymbol, bool) {
	s, ok := t.structFields[mangled]
	return s, ok
}

// EnumBitWidth returns the cached bit width for mangled enum name.
func (t *SymbolTable) EnumBitWidth(mangled string) (int, bool) {
	w, ok := t.enumBitWidths[mangled]
	return w, ok
}

// AllByName groups every symbol across all three partitions sharing
// mangled name; used by conflict detection (stage 4) to classify
// collisions. The CNX contribution comes from cnxDeclarations rather than
// the cnx map, so two same-mangled CNX declarations both surface here even
// though the second one overwrote the first as cnx's current lookup entry.
func (t *SymbolTable) AllByName(mangled string) []TSymbol {
	var out []TSymbol
	out = append(out, t.cnxDeclarations[mangled]...)
	if s, ok := t.c[mangled]; ok {
		out = append(out, s)
	}
	if s, ok := t.cxx[mangled]; ok {
		out = append(out, s)
	}
	return out
}

// MangledNames returns every distinct mangled name across all partitions,
// used to drive the stage-4 conflict-detection walk.
func (t *SymbolTable) MangledNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range []map[string]TSymbol{t.cnx, t.c, t.cxx} {
		for name := range m {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}
