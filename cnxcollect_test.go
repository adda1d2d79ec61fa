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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestUnit() *TranslationUnit {
	return NewTranslationUnit(defaultConfig())
}

func TestCollectCNXSymbolsFunctionAndMutation(t *testing.T) {
	dir := t.TempDir()
	src := "scope Motor {\n" +
		"  void setSpeed(i32 speed) {\n" +
		"    speed <- speed + 1;\n" +
		"  }\n" +
		"  i32 getSpeed(i32 speed) {\n" +
		"    return speed;\n" +
		"  }\n" +
		"}\n"
	path := filepath.Join(dir, "motor.cnx")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	tu := newTestUnit()
	f := &SourceFile{Path: path, AbsPath: path}
	diags, err := CollectCNXSymbols(tu, f)
	require.NoError(t, err)
	require.False(t, HasErrors(diags))

	_, ok := tu.Symtab.LookupInLanguage("Motor_setSpeed", LangCNX)
	require.True(t, ok, "Motor_setSpeed should be registered under its mangled name")

	require.True(t, tu.ModMap.IsMutated("Motor_setSpeed", "speed"), "setSpeed assigns to speed")
	require.False(t, tu.ModMap.IsMutated("Motor_getSpeed", "speed"), "getSpeed never assigns to speed")
}

func TestCollectCNXSymbolsStructFields(t *testing.T) {
	dir := t.TempDir()
	src := "struct Point {\n  i32 x;\n  i32 y;\n}\n"
	path := filepath.Join(dir, "point.cnx")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	tu := newTestUnit()
	f := &SourceFile{Path: path, AbsPath: path}
	_, err := CollectCNXSymbols(tu, f)
	require.NoError(t, err)

	s, ok := tu.Symtab.StructByName("Point")
	require.True(t, ok)
	require.Equal(t, []string{"x", "y"}, s.FieldOrder)
}

func TestCollectCNXSymbolsEnumValues(t *testing.T) {
	dir := t.TempDir()
	src := "enum Direction {\n  North,\n  East,\n  South,\n  West,\n}\n"
	path := filepath.Join(dir, "dir.cnx")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	tu := newTestUnit()
	f := &SourceFile{Path: path, AbsPath: path}
	_, err := CollectCNXSymbols(tu, f)
	require.NoError(t, err)

	sym, ok := tu.Symtab.Lookup("Direction")
	require.True(t, ok)
	es, ok := sym.(*EnumSymbol)
	require.True(t, ok)
	require.Equal(t, int64(0), es.Values["North"])
	require.Equal(t, int64(3), es.Values["West"])
}

func TestCollectCNXSymbolsBitmapWidthMismatchReported(t *testing.T) {
	dir := t.TempDir()
	src := "bitmap8 Flags {\n  ready: 1,\n  error: 1,\n}\n"
	path := filepath.Join(dir, "flags.cnx")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	tu := newTestUnit()
	f := &SourceFile{Path: path, AbsPath: path}
	diags, err := CollectCNXSymbols(tu, f)
	require.NoError(t, err)
	require.True(t, HasErrors(diags))
	require.Equal(t, ECodeBitmapWidthMismatch, diags[0].Code)
}
