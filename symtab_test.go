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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSymbolTableInsertAndLookup(t *testing.T) {
	st := NewSymbolTable()
	fn := &FunctionSymbol{
		symbolBase: symbolBase{Name: "setSpeed", Scope: NewScope("Motor", nil), SourceLanguage: LangCNX},
		ReturnType: PrimitiveType{Kind: KindVoid},
	}
	st.Insert(fn)

	got, ok := st.Lookup("Motor_setSpeed")
	require.True(t, ok)
	require.Equal(t, fn, got)
}

func TestSymbolTableLookupPrefersCNXOverC(t *testing.T) {
	st := NewSymbolTable()
	cSym := &FunctionSymbol{symbolBase: symbolBase{Name: "blink", Scope: GlobalScope, SourceLanguage: LangC}}
	cnxSym := &FunctionSymbol{symbolBase: symbolBase{Name: "blink", Scope: GlobalScope, SourceLanguage: LangCNX}}
	st.Insert(cSym)
	st.Insert(cnxSym)

	got, ok := st.Lookup("blink")
	require.True(t, ok)
	require.Same(t, cnxSym, got)
}

func TestSymbolTableAllByNameCollectsAllPartitions(t *testing.T) {
	st := NewSymbolTable()
	st.Insert(&FunctionSymbol{symbolBase: symbolBase{Name: "blink", Scope: GlobalScope, SourceLanguage: LangC}})
	st.Insert(&FunctionSymbol{symbolBase: symbolBase{Name: "blink", Scope: GlobalScope, SourceLanguage: LangCNX}})

	all := st.AllByName("blink")
	require.Len(t, all, 2)
}

func TestSymbolTableStructKeywordRoundTrip(t *testing.T) {
	st := NewSymbolTable()
	require.False(t, st.StructNeedsKeyword("Foo"))
	st.MarkNeedsStructKeyword("Foo")
	require.True(t, st.StructNeedsKeyword("Foo"))
}

func TestSymbolTableOpaqueTracking(t *testing.T) {
	st := NewSymbolTable()
	require.False(t, st.IsOpaque("Handle"))
	st.MarkOpaque("Handle")
	require.True(t, st.IsOpaque("Handle"))
}
