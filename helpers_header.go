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
	"fmt"
	"strings"
)

// GenerateOverflowHelpersHeader emits the single shared cnx_helpers.h that
// every generated output #includes unconditionally (spec.md §4.6(4)-(5)):
// one static-inline clamp/wrap function per overflow-checked compound
// assignment the lowering pass observed, one CNX_ATOMIC_* macro per atomic
// compound op, and the CNX_CRITICAL_ENTER/EXIT pair if any critical block
// was lowered. Grounded on kati's stmt.go pattern of generating one small,
// self-contained helper per distinct need rather than a single do-it-all
// routine.
func GenerateOverflowHelpersHeader(tu *TranslationUnit) string {
	var b strings.Builder
	b.WriteString("// Generated by C-Next Transpiler.\n")
	b.WriteString("// Do not edit by hand.\n\n")
	b.WriteString("#ifndef CNX_HELPERS_H_\n#define CNX_HELPERS_H_\n\n")
	b.WriteString("#include <stdint.h>\n#include <string.h>\n\n")

	for _, spec := range tu.OverflowHelpers() {
		emitOverflowHelper(&b, spec)
	}

	if ops := tu.AtomicOps(); len(ops) > 0 {
		emitAtomicMacros(&b, ops)
	}

	if tu.NeedsCriticalHelpers() {
		emitCriticalMacros(&b)
	}

	b.WriteString("#endif // CNX_HELPERS_H_\n")
	return b.String()
}

// emitOverflowHelper follows Scenario C from spec.md §8 literally for the
// unsigned-add case (`cnx_clamp_add_u8`'s body is the example's exact text);
// the other op/signedness combinations follow the same
// check-then-ternary shape.
func emitOverflowHelper(b *strings.Builder, spec OverflowHelperSpec) {
	ctype := cCastName[spec.Kind]
	signed := primitiveSigned(spec.Kind)

	fmt.Fprintf(b, "static inline %s %s(%s a, %s b) {\n", ctype, spec.Name, ctype, ctype)
	switch spec.Verb {
	case "wrap":
		u := unsignedCastName(spec.Kind)
		fmt.Fprintf(b, "\treturn (%s)((%s)a %s (%s)b);\n", ctype, u, wrapOperator(spec.Op), u)
	case "clamp":
		emitClampBody(b, spec, signed)
	}
	b.WriteString("}\n\n")
}

func wrapOperator(op string) string {
	switch op {
	case "add":
		return "+"
	case "sub":
		return "-"
	case "mul":
		return "*"
	default:
		return "+"
	}
}

func unsignedCastName(k PrimitiveKind) string {
	switch k {
	case KindI8:
		return "uint8_t"
	case KindI16:
		return "uint16_t"
	case KindI32:
		return "uint32_t"
	case KindI64, KindIsize:
		return "uint64_t"
	default:
		return cCastName[k]
	}
}

// emitClampBody emits the check-then-ternary clamp body for one op. The
// unsigned-add case matches Scenario C's literal text:
// "return (a > UINT8_MAX - b) ? UINT8_MAX : a + b;"
func emitClampBody(b *strings.Builder, spec OverflowHelperSpec, signed bool) {
	maxm := maxMacro(spec.Kind)
	minm := minMacro(spec.Kind)
	switch spec.Op {
	case "add":
		if signed {
			fmt.Fprintf(b, "\tif (b > 0 && a > %s - b) return %s;\n", maxm, maxm)
			fmt.Fprintf(b, "\tif (b < 0 && a < %s - b) return %s;\n", minm, minm)
			b.WriteString("\treturn a + b;\n")
		} else {
			fmt.Fprintf(b, "\treturn (a > %s - b) ? %s : a + b;\n", maxm, maxm)
		}
	case "sub":
		if signed {
			fmt.Fprintf(b, "\tif (b < 0 && a > %s + b) return %s;\n", maxm, maxm)
			fmt.Fprintf(b, "\tif (b > 0 && a < %s + b) return %s;\n", minm, minm)
			b.WriteString("\treturn a - b;\n")
		} else {
			b.WriteString("\treturn (a < b) ? 0 : a - b;\n")
		}
	case "mul":
		if signed {
			fmt.Fprintf(b, "\tif (a != 0 && b != 0 && (((a > 0) == (b > 0)) ? a > %s / b : a < %s / b)) return ((a > 0) == (b > 0)) ? %s : %s;\n", maxm, minm, maxm, minm)
			b.WriteString("\treturn a * b;\n")
		} else {
			fmt.Fprintf(b, "\treturn (b != 0 && a > %s / b) ? %s : a * b;\n", maxm, maxm)
		}
	}
}

func maxMacro(k PrimitiveKind) string {
	switch k {
	case KindU8:
		return "UINT8_MAX"
	case KindU16:
		return "UINT16_MAX"
	case KindU32:
		return "UINT32_MAX"
	case KindU64, KindUsize:
		return "UINT64_MAX"
	case KindI8:
		return "INT8_MAX"
	case KindI16:
		return "INT16_MAX"
	case KindI32:
		return "INT32_MAX"
	case KindI64, KindIsize:
		return "INT64_MAX"
	default:
		return "0"
	}
}

func minMacro(k PrimitiveKind) string {
	switch k {
	case KindI8:
		return "INT8_MIN"
	case KindI16:
		return "INT16_MIN"
	case KindI32:
		return "INT32_MIN"
	case KindI64, KindIsize:
		return "INT64_MIN"
	default:
		return "0"
	}
}

// emitAtomicMacros emits one CNX_ATOMIC_<OP> macro per op, target-dispatched
// at preprocessor time (spec.md §4.6(5)): ARM Cortex-M gets a LDREX/STREX
// retry loop, every other configured target falls back to a plain compound
// op wrapped in the same critical-section macros critical{} lowers to.
func emitAtomicMacros(b *strings.Builder, ops []string) {
	b.WriteString("#if defined(CNX_TARGET_ARM_CORTEX_M)\n\n")
	for _, op := range ops {
		name := strings.ToUpper(op)
		sym := atomicSymbolFor(op)
		fmt.Fprintf(b, "#define CNX_ATOMIC_%s(var, rhs) do { \\\n", name)
		b.WriteString("\tuint32_t __cnx_tmp, __cnx_status; \\\n")
		b.WriteString("\tdo { \\\n")
		fmt.Fprintf(b, "\t\t__cnx_tmp = __LDREXW((uint32_t *)&(var)); \\\n")
		fmt.Fprintf(b, "\t\t__cnx_tmp = __cnx_tmp %s (rhs); \\\n", sym)
		b.WriteString("\t\t__cnx_status = __STREXW(__cnx_tmp, (uint32_t *)&(var)); \\\n")
		b.WriteString("\t} while (__cnx_status != 0); \\\n")
		b.WriteString("\t(var) = __cnx_tmp; \\\n")
		b.WriteString("} while (0)\n\n")
	}
	b.WriteString("#else\n\n")
	for _, op := range ops {
		name := strings.ToUpper(op)
		sym := atomicSymbolFor(op)
		fmt.Fprintf(b, "#define CNX_ATOMIC_%s(var, rhs) do { \\\n", name)
		b.WriteString("\tCNX_CRITICAL_ENTER(); \\\n")
		fmt.Fprintf(b, "\t(var) = (var) %s (rhs); \\\n", sym)
		b.WriteString("\tCNX_CRITICAL_EXIT(); \\\n")
		b.WriteString("} while (0)\n\n")
	}
	b.WriteString("#endif\n\n")
}

func atomicSymbolFor(op string) string {
	switch op {
	case "add":
		return "+"
	case "sub":
		return "-"
	case "and":
		return "&"
	case "or":
		return "|"
	case "xor":
		return "^"
	default:
		return "+"
	}
}

// emitCriticalMacros emits the CNX_CRITICAL_ENTER/EXIT pair critical{}
// blocks lower to (spec.md §4.6(5)): PRIMASK save/restore on ARM Cortex-M,
// a global interrupt disable/enable on AVR, and a no-op stub on the
// generic/hosted target where there is no interrupt controller to mask.
func emitCriticalMacros(b *strings.Builder) {
	b.WriteString("#if defined(CNX_TARGET_ARM_CORTEX_M)\n\n")
	b.WriteString("#define CNX_CRITICAL_ENTER() uint32_t __cnx_primask = __get_PRIMASK(); __disable_irq()\n")
	b.WriteString("#define CNX_CRITICAL_EXIT() __set_PRIMASK(__cnx_primask)\n\n")
	b.WriteString("#elif defined(CNX_TARGET_AVR)\n\n")
	b.WriteString("#define CNX_CRITICAL_ENTER() uint8_t __cnx_sreg = SREG; cli()\n")
	b.WriteString("#define CNX_CRITICAL_EXIT() SREG = __cnx_sreg\n\n")
	b.WriteString("#else\n\n")
	b.WriteString("#define CNX_CRITICAL_ENTER() do {} while (0)\n")
	b.WriteString("#define CNX_CRITICAL_EXIT() do {} while (0)\n\n")
	b.WriteString("#endif\n\n")
}
