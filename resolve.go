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
	"strconv"

	"github.com/golang/glog"
)

// ResolveExternalReferences implements stage 3b from spec.md §4.4: every
// name-only type reference left behind by collection (cnxcollect.go parses
// a type name before it knows whether that name is a struct, enum, bitmap,
// callback, or external C++ type) gets fixed up into its real TType variant
// now that the whole symbol table — CNX and header-derived alike — is
// populated. Grounded on kati's own two-phase resolveVPATH (depgraph.go):
// collect every reference first, then walk the table once to fix them all
// up, rather than resolving eagerly and risking forward-reference failures.
func ResolveExternalReferences(tu *TranslationUnit) {
	for _, name := range tu.Symtab.MangledNames() {
		for _, sym := range tu.Symtab.AllByName(name) {
			resolveSymbolTypes(tu, sym)
		}
	}
}

func resolveSymbolTypes(tu *TranslationUnit, sym TSymbol) {
	switch s := sym.(type) {
	case *VariableSymbol:
		s.Type = resolveType(tu, s.Type)
	case *FunctionSymbol:
		s.ReturnType = resolveType(tu, s.ReturnType)
		for i := range s.Params {
			s.Params[i].Type = resolveType(tu, s.Params[i].Type)
		}
	case *StructSymbol:
		for name, f := range s.FieldsByName {
			f.Type = resolveType(tu, f.Type)
			s.FieldsByName[name] = f
		}
	}
}

// resolveType replaces a provisional StructType{Name} placeholder (spec.md
// §4.4's "array-dimension and qualified-enum-member resolution" step) with
// the real variant once the name is known to refer to an enum, bitmap,
// callback, or register instead of a struct — or leaves it as an
// ExternalType if it resolves to nothing in this translation unit (a C++
// template parameter or forward-declared class, spec.md §4.4 edge case).
func resolveType(tu *TranslationUnit, t TType) TType {
	switch v := t.(type) {
	case StructType:
		if _, ok := tu.Symtab.StructByName(v.Name); ok {
			return v
		}
		if sym, ok := tu.Symtab.Lookup(v.Name); ok {
			switch s := sym.(type) {
			case *EnumSymbol:
				return EnumType{Name: v.Name}
			case *BitmapSymbol:
				return BitmapType{Name: v.Name, BitWidth: s.BitWidth}
			case *RegisterSymbol:
				return RegisterType{Name: v.Name}
			case *FunctionSymbol:
				if isCallbackFunc(s) {
					return CallbackType{Name: v.Name}
				}
			}
		}
		if tu.Symtab.IsOpaque(v.Name) {
			return ExternalType{Name: v.Name}
		}
		if _, ok := tu.Symtab.LookupInLanguage(v.Name, LangC); ok {
			return v
		}
		if _, ok := tu.Symtab.LookupInLanguage(v.Name, LangCXX); ok {
			tu.RequireCXX()
			return ExternalType{Name: v.Name}
		}
		glog.V(1).Infof("resolve: %s has no definition in this translation unit, treating as external", v.Name)
		return ExternalType{Name: v.Name}
	case ArrayType:
		return ArrayType{Element: resolveType(tu, v.Element), Dimensions: resolveDimensions(tu, v.Dimensions)}
	default:
		return t
	}
}

// resolveDimensions resolves a symbolic array dimension (an unresolved
// const/macro name, spec.md §3) against the `const` variables in the symbol
// table, substituting the const's integer value once found. A qualified
// enum member used as a dimension (EColor.COUNT) is not resolved. A `const`
// variable whose initializer isn't an integer literal (e.g. another
// symbolic expression left for the C preprocessor) and a name with no
// matching symbol both pass through unresolved — spec.md §4.4's
// "unresolved dimension is a warning, not a hard failure, since the name
// may be a C macro this translation unit never sees."
func resolveDimensions(tu *TranslationUnit, dims []ArrayDimension) []ArrayDimension {
	out := make([]ArrayDimension, len(dims))
	for i, d := range dims {
		if d.Resolved || d.Name == "" {
			out[i] = d
			continue
		}
		out[i] = d
		sym, ok := tu.Symtab.Lookup(d.Name)
		if !ok {
			glog.V(1).Infof("resolve: array dimension %q has no definition in this translation unit, passing through", d.Name)
			continue
		}
		v, ok := sym.(*VariableSymbol)
		if !ok || !v.IsConst {
			continue
		}
		n, err := strconv.Atoi(v.InitExpr)
		if err != nil {
			continue
		}
		out[i] = ResolvedDim(n)
	}
	return out
}
