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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmitStructDefProducesTypedefAndFields(t *testing.T) {
	g := &codeGenerator{tu: newTestUnit()}
	s := &StructSymbol{
		symbolBase:   symbolBase{Name: "Point", Scope: GlobalScope, SourceLanguage: LangCNX},
		FieldOrder:   []string{"x", "y"},
		FieldsByName: map[string]StructField{
			"x": {Name: "x", Type: PrimitiveType{Kind: KindI32}},
			"y": {Name: "y", Type: PrimitiveType{Kind: KindI32}},
		},
	}
	emitStructDef(g, s)
	out := g.buf.String()
	require.Contains(t, out, "typedef struct Point {")
	require.Contains(t, out, "int32_t x;")
	require.Contains(t, out, "int32_t y;")
	require.Contains(t, out, "} Point;")
}

func TestEmitEnumDefUsesSmallestBackingType(t *testing.T) {
	g := &codeGenerator{tu: newTestUnit()}
	s := &EnumSymbol{
		symbolBase:  symbolBase{Name: "Direction", Scope: GlobalScope, SourceLanguage: LangCNX},
		MemberOrder: []string{"North", "South"},
		Values:      map[string]int64{"North": 0, "South": 1},
		BitWidth:    8,
	}
	emitEnumDef(g, s)
	out := g.buf.String()
	require.Contains(t, out, "typedef int8_t Direction;")
	require.Contains(t, out, "#define Direction_North ((Direction)0)")
	require.Contains(t, out, "#define Direction_South ((Direction)1)")
}

func TestParamListEmitsAutoConstOnlyWhenCXXRequired(t *testing.T) {
	tu := newTestUnit()
	fn := &FunctionSymbol{
		symbolBase: symbolBase{Name: "setSpeed", Scope: NewScope("Motor", nil), SourceLanguage: LangCNX},
		ReturnType: PrimitiveType{Kind: KindVoid},
		Params:     []Param{{Name: "speed", Type: PrimitiveType{Kind: KindI32}}},
	}

	// Not yet required: emitted without const.
	out := paramList(tu, fn)
	require.Equal(t, "int32_t speed", out)

	tu.RequireCXX()
	out = paramList(tu, fn)
	require.Equal(t, "const int32_t speed", out, "an unmutated param becomes const once C++ is required")

	tu.ModMap.MarkMutated("Motor_setSpeed", "speed")
	out = paramList(tu, fn)
	require.Equal(t, "int32_t speed", out, "a mutated param is never emitted const")
}

func TestGenerateHeaderWrapsExternCWhenCXXRequired(t *testing.T) {
	tu := newTestUnit()
	tu.RequireCXX()
	f := &SourceFile{Path: "motor.cnx"}
	hdr, err := GenerateHeader(tu, f)
	require.NoError(t, err)
	require.True(t, strings.Contains(hdr, "extern \"C\""))
	require.True(t, strings.Contains(hdr, "#ifndef CNEXT_MOTOR_H_"))
}
