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

func bitmapFixture(tu *TranslationUnit) {
	bsym := &BitmapSymbol{
		symbolBase: symbolBase{Name: "Flags", Scope: GlobalScope, SourceLanguage: LangCNX},
		Backing:    KindU8,
		BitWidth:   BitWidth8,
		FieldOrder: []string{"ready", "error"},
		FieldsByName: map[string]BitmapField{
			"ready": {Name: "ready", Offset: 0, Width: 1},
			"error": {Name: "error", Offset: 1, Width: 1},
		},
	}
	tu.Symtab.Insert(bsym)

	vsym := &VariableSymbol{
		symbolBase: symbolBase{Name: "flags", Scope: GlobalScope, SourceLanguage: LangCNX},
		Type:       BitmapType{Name: "Flags", BitWidth: BitWidth8},
	}
	tu.Symtab.Insert(vsym)
}

func TestLowerBitmapReadRewritesToMaskShift(t *testing.T) {
	tu := newTestUnit()
	bitmapFixture(tu)

	out := lowerBitmapRead(tu, "x <- flags.error;")
	require.Equal(t, "x <- (((flags) >> 1) & 0x1U);", out)
}

func TestLowerBitmapAssignProducesReadModifyWrite(t *testing.T) {
	tu := newTestUnit()
	bitmapFixture(tu)

	out, ok := lowerBitmapAssign(tu, "flags.ready <- 1;")
	require.True(t, ok)
	require.Equal(t, "flags = (flags & ~0x1U) | (((1) & 0x1U) << 0);", out)
}

func TestLowerLocalDeclRewritesTypedLocal(t *testing.T) {
	out, ok := lowerLocalDecl("i32 count <- 0;")
	require.True(t, ok)
	require.Equal(t, "int32_t count = 0;", out)
}

func TestLowerLocalDeclAppliesConstAndAtomicQualifiers(t *testing.T) {
	out, ok := lowerLocalDecl("const atomic u32 count <- 0;")
	require.True(t, ok)
	require.Equal(t, "const _Atomic(uint32_t) count = 0;", out)
}

func TestLowerLocalDeclWithoutInitializer(t *testing.T) {
	out, ok := lowerLocalDecl("extern u8 shared_counter;")
	require.True(t, ok)
	require.Equal(t, "extern uint8_t shared_counter;", out)
}

func TestLowerOverflowCompoundAssignEmitsClampHelperCall(t *testing.T) {
	tu := newTestUnit()
	fn := &FunctionSymbol{symbolBase: symbolBase{Name: "bump"}}
	body := "clamp u8 x <- 200;\nx +<- 100;\n"
	out := lowerBody(tu, fn, body)
	require.Contains(t, out, "uint8_t x = 200;")
	require.Contains(t, out, "x = cnx_clamp_add_u8(x, 100);")
	helpers := tu.OverflowHelpers()
	require.Len(t, helpers, 1)
	require.Equal(t, "cnx_clamp_add_u8", helpers[0].Name)
}

func TestLowerWrapCompoundAssignEmitsWrapHelperCall(t *testing.T) {
	tu := newTestUnit()
	fn := &FunctionSymbol{symbolBase: symbolBase{Name: "bump"}}
	body := "wrap u16 y <- 0;\ny -<- 1;\n"
	out := lowerBody(tu, fn, body)
	require.Contains(t, out, "y = cnx_wrap_sub_u16(y, 1);")
}

func TestLowerAssignmentTranslatesArrowToEquals(t *testing.T) {
	tu := newTestUnit()
	fn := &FunctionSymbol{symbolBase: symbolBase{Name: "set"}}
	out := lowerBody(tu, fn, "total <- total + 1;\n")
	require.Contains(t, out, "total = total + 1;")
}

func TestLowerAssignmentTranslatesCompoundShift(t *testing.T) {
	tu := newTestUnit()
	fn := &FunctionSymbol{symbolBase: symbolBase{Name: "shift"}}
	out := lowerBody(tu, fn, "mask <<<- 1;\n")
	require.Contains(t, out, "mask <<= 1;")
}

func TestLowerEqualityTranslatesBareEqualsInCondition(t *testing.T) {
	tu := newTestUnit()
	fn := &FunctionSymbol{symbolBase: symbolBase{Name: "check"}}
	out := lowerBody(tu, fn, "if (a = b) {\n")
	require.Contains(t, out, "if (a == b) {")
}

func TestLowerCriticalBlockEmitsEnterExitMacros(t *testing.T) {
	tu := newTestUnit()
	fn := &FunctionSymbol{symbolBase: symbolBase{Name: "isr"}}
	body := "critical {\ncounter +<- 1;\n}\n"
	out := lowerBody(tu, fn, body)
	require.Contains(t, out, "CNX_CRITICAL_ENTER();")
	require.Contains(t, out, "CNX_CRITICAL_EXIT();")
	require.True(t, tu.NeedsCriticalHelpers())
}

func TestLowerAtomicCompoundAssignEmitsAtomicMacro(t *testing.T) {
	tu := newTestUnit()
	fn := &FunctionSymbol{symbolBase: symbolBase{Name: "tick"}}
	body := "atomic u32 ticks <- 0;\nticks +<- 1;\n"
	out := lowerBody(tu, fn, body)
	require.Contains(t, out, "CNX_ATOMIC_ADD(ticks, (1));")
	require.Contains(t, tu.AtomicOps(), "add")
}

func TestLowerSliceAssignOnScalarProducesBitfieldWrite(t *testing.T) {
	tu := newTestUnit()
	fn := &FunctionSymbol{symbolBase: symbolBase{Name: "pack"}, Params: []Param{{Name: "reg", Type: PrimitiveType{Kind: KindU32}}}}
	out := lowerBody(tu, fn, "reg[4, 3] <- 5;\n")
	require.Contains(t, out, "reg = (reg & ~(((1u << (3)) - 1) << (4))) | (((5) & ((1u << (3)) - 1)) << (4));")
}

func TestLowerSliceAssignOnArrayProducesMemcpy(t *testing.T) {
	tu := newTestUnit()
	fn := &FunctionSymbol{
		symbolBase: symbolBase{Name: "copy"},
		Params: []Param{{Name: "buf", Type: ArrayType{Element: PrimitiveType{Kind: KindU8}, Dimensions: []ArrayDimension{ResolvedDim(16)}}}},
	}
	out := lowerBody(tu, fn, "buf[0, 4] <- src;\n")
	require.Contains(t, out, "memcpy(&buf[0], (src), (4));")
}

func TestLowerStringAssignUsesStrncpy(t *testing.T) {
	tu := newTestUnit()
	fn := &FunctionSymbol{
		symbolBase: symbolBase{Name: "setName"},
		Params:     []Param{{Name: "name", Type: StringType{Capacity: 15}}},
	}
	out := lowerBody(tu, fn, "name <- src;\n")
	require.Contains(t, out, "strncpy(name, src, sizeof(name) - 1); name[sizeof(name) - 1] = '\\0';")
}

func TestLowerStringAssignConcatenationUsesStrncat(t *testing.T) {
	tu := newTestUnit()
	fn := &FunctionSymbol{
		symbolBase: symbolBase{Name: "joinName"},
		Params:     []Param{{Name: "full", Type: StringType{Capacity: 31}}},
	}
	out := lowerBody(tu, fn, "full <- first + last;\n")
	require.Contains(t, out, "strncpy(full, first, sizeof(full) - 1);")
	require.Contains(t, out, "strncat(full, last, sizeof(full) - 1 - strlen(full));")
}

func TestLowerStringEqualityUsesStrcmp(t *testing.T) {
	tu := newTestUnit()
	fn := &FunctionSymbol{
		symbolBase: symbolBase{Name: "matches"},
		Params:     []Param{{Name: "name", Type: StringType{Capacity: 15}}, {Name: "other", Type: StringType{Capacity: 15}}},
	}
	out := lowerBody(tu, fn, "if (name = other) {\n")
	require.Contains(t, out, "if (strcmp(name, other) == 0) {")
}

func TestEmitBitmapHelpersEmitsGetSetPair(t *testing.T) {
	tu := newTestUnit()
	g := &codeGenerator{tu: tu}
	s := &BitmapSymbol{
		symbolBase: symbolBase{Name: "Flags", Scope: GlobalScope, SourceLanguage: LangCNX},
		Backing:    KindU8,
		BitWidth:   BitWidth8,
		FieldOrder: []string{"ready"},
		FieldsByName: map[string]BitmapField{
			"ready": {Name: "ready", Offset: 0, Width: 1},
		},
	}
	emitBitmapHelpers(g, s)
	out := g.buf.String()
	require.Contains(t, out, "Flags_get_ready")
	require.Contains(t, out, "Flags_set_ready")
}
