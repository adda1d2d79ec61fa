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
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

// CNX declaration patterns. CNX syntax is a restricted, C-like dialect
// (spec.md §1 / §6's "Input grammar": type-before-name declarations, `<-`
// for assignment, `=` reserved for equality), so — the same way this
// package's stage-2 header scan extracts declarations without a full C++
// grammar — stage 3 walks CNX source brace-by-brace with a small statement
// recognizer rather than a generated parser, grounded on kati's own
// evalMaybeRule/evalAssign (eval.go): one regexp-gated case per statement
// shape, dispatched from a single per-line/per-block loop. A declaration has
// no `export`/`fn`/`let` keyword of its own: linkage follows C's own rule (a
// bare declaration is external; `static` makes it file-local), and a
// function or variable looks exactly like its C99 output modulo the `<-`
// initializer and the modifier set spec.md §6 lists.
var (
	cnxScopePattern    = regexp.MustCompile(`^\s*scope\s+(\w+)\s*\{`)
	cnxFuncPattern     = regexp.MustCompile(`^\s*(static\s+)?(ISR\s+)?([\w<>]+)\s+(\w+)\s*\(([^)]*)\)\s*\{`)
	cnxVarPattern      = regexp.MustCompile(`^\s*((?:(?:const|static|extern|volatile|atomic|clamp|wrap)\s+)*)([\w<>]+)\s+(\w+)(\[[\w\d]*\])?\s*(?:<-\s*(.+))?;`)
	cnxStructPattern   = regexp.MustCompile(`^\s*(static\s+)?struct\s+(\w+)\s*\{`)
	cnxEnumPattern     = regexp.MustCompile(`^\s*(static\s+)?enum\s+(\w+)\s*\{`)
	cnxBitmapPattern   = regexp.MustCompile(`^\s*(static\s+)?bitmap(\d+)\s+(\w+)\s*\{`)
	cnxRegisterPattern = regexp.MustCompile(`^\s*register\s+(\w+)\s*@\s*(0x[0-9a-fA-F]+|\d+)\s*\{`)
	// cnxFieldPattern matches a type-before-name struct member, e.g.
	// "i32 x;" or "const u8 data[4];" — no initializer; CNX has no default
	// member-initializer syntax.
	cnxFieldPattern      = regexp.MustCompile(`^\s*((?:const\s+|atomic\s+)*)([\w<>]+)\s+(\w+)(\[[\w\d]*\])?\s*[,;]\s*$`)
	cnxEnumMemberPattern = regexp.MustCompile(`^\s*(\w+)(\s*=\s*(-?\d+))?\s*,?\s*$`)
	cnxBitfieldPattern   = regexp.MustCompile(`^\s*(\w+)\s*:\s*(\d+)\s*[,;]?\s*$`)
	// cnxRegisterFieldPattern matches spec.md §4.6(9)'s literal register
	// member grammar: "M: T rw @ OFF,".
	cnxRegisterFieldPattern = regexp.MustCompile(`^\s*(\w+)\s*:\s*([\w<>]+)\s+(rw|ro|wo)\s*@\s*(\d+)\s*[,;]?\s*$`)
	cnxParamPattern         = regexp.MustCompile(`^\s*(const\s+)?([\w<>]+)\s+(\w+)(\[\])?\s*$`)
	// cnxMutationPattern finds `name <-`, `name[idx] <-`, and compound forms
	// (`name +<- expr;`) — the CNX assignment family. CNX's `=` is always
	// equality, so it can never denote a mutation and is deliberately not
	// matched here.
	cnxMutationPattern = regexp.MustCompile(`\b(\w+)(\[[^\]]*\])?\s*(?:[+\-*/&|^]|<<|>>)?<-`)
)

// CollectCNXSymbols implements stage 3 (CNX Symbol Collection) from spec.md
// §4.3 for one CNX file: walk its source, register every declared symbol
// into the shared SymbolTable, and perform the per-function mutation scan
// that feeds the ModMap auto-const inference (spec.md §3). Files are
// processed in the topological order stage 1 produced, so a function
// defined in an earlier file is visible to a later one before that later
// file is ever analyzed. Define-before-use within one file is checked
// later, by callOrderAnalyzer (analyzers_impl.go).
func CollectCNXSymbols(tu *TranslationUnit, f *SourceFile) ([]Diagnostic, error) {
	content, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.AbsPath, err)
	}
	lines := strings.Split(string(content), "\n")

	c := &cnxCollector{tu: tu, f: f, lines: lines}
	c.walk(0, len(lines), GlobalScope)
	return c.diags, nil
}

type cnxCollector struct {
	tu    *TranslationUnit
	f     *SourceFile
	lines []string
	diags []Diagnostic
}

func (c *cnxCollector) report(line int, code Code, format string, args ...interface{}) {
	c.diags = append(c.diags, Errorf(c.f.Path, line, 0, code, format, args...))
}

// walk scans lines [start, end) of the file under scope, recursing into
// brace-delimited blocks (scope/struct/enum/bitmap/register/fn bodies).
func (c *cnxCollector) walk(start, end int, scope *Scope) {
	i := start
	for i < end {
		line := c.lines[i]
		trimmed := strings.TrimSpace(line)
		lineno := i + 1

		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "//"):
			i++
			continue

		case cnxScopePattern.MatchString(line):
			m := cnxScopePattern.FindStringSubmatch(line)
			name := m[1]
			child := NewScope(name, scope)
			sym := &ScopeSymbol{
				symbolBase:       symbolBase{Name: name, Scope: scope, SourceFile: c.f.Path, SourceLine: lineno, SourceLanguage: LangCNX, IsExported: true, DocComment: precedingComment(c.lines, i)},
				Owned:            child,
				MemberVisibility: make(map[string]bool),
			}
			c.tu.Symtab.Insert(sym)
			scope.Declare(name)
			blockEnd := matchBrace(c.lines, i)
			c.walk(i+1, blockEnd, child)
			i = blockEnd + 1

		case cnxFuncPattern.MatchString(line):
			i = c.collectFunc(i, scope)

		case cnxStructPattern.MatchString(line):
			i = c.collectStruct(i, scope)

		case cnxEnumPattern.MatchString(line):
			i = c.collectEnum(i, scope)

		case cnxBitmapPattern.MatchString(line):
			i = c.collectBitmap(i, scope)

		case cnxRegisterPattern.MatchString(line):
			i = c.collectRegister(i, scope)

		case cnxVarPattern.MatchString(line):
			c.collectVar(i, scope)
			i++

		default:
			i++
		}
	}
}

// precedingComment collects the contiguous run of `//`-prefixed lines
// immediately above lines[idx] (the declaration line), stopping at the
// first blank or non-comment line, and returns them joined by newline in
// source order. codegen.go re-emits this text next to the symbol's
// generated declaration (spec.md §4.6 responsibility 1).
func precedingComment(lines []string, idx int) string {
	var out []string
	for j := idx - 1; j >= 0; j-- {
		t := strings.TrimSpace(lines[j])
		if !strings.HasPrefix(t, "//") {
			break
		}
		out = append([]string{t}, out...)
	}
	return strings.Join(out, "\n")
}

// matchBrace finds the line index of the closing brace matching the '{' on
// line startIdx, by brace-depth counting. Grounded on the same
// balanced-delimiter scan shape kati's rule_parser.go uses for parenthesis
// matching in function-call argument lists.
func matchBrace(lines []string, startIdx int) int {
	depth := 0
	for i := startIdx; i < len(lines); i++ {
		for _, r := range lines[i] {
			switch r {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return i
				}
			}
		}
	}
	return len(lines) - 1
}

func (c *cnxCollector) collectFunc(i int, scope *Scope) int {
	m := cnxFuncPattern.FindStringSubmatch(c.lines[i])
	isStatic := m[1] != ""
	isISR := m[2] != ""
	retStr := m[3]
	name := m[4]
	rawParams := m[5]

	params := parseCNXParams(rawParams)
	retType := parseCNXTypeName(retStr)

	blockEnd := matchBrace(c.lines, i)
	bodyLines := c.lines[i+1 : blockEnd]

	mangled := scope.Mangle(name)
	for _, p := range params {
		if mutatesParam(bodyLines, p.Name) {
			c.tu.ModMap.MarkMutated(mangled, p.Name)
		}
	}

	sym := &FunctionSymbol{
		symbolBase: symbolBase{Name: name, Scope: scope, SourceFile: c.f.Path, SourceLine: i + 1, SourceLanguage: LangCNX, IsExported: !isStatic, DocComment: precedingComment(c.lines, i)},
		Params:     params,
		ReturnType: retType,
		IsISR:      isISR,
		Body:       strings.Join(bodyLines, "\n"),
	}
	c.tu.Symtab.Insert(sym)
	scope.Declare(name)
	return blockEnd + 1
}

// mutatesParam reports whether body assigns to name anywhere via CNX's `<-`
// assignment family (never `=`, which CNX reserves for equality), the
// analysis-only scan spec.md §3 and §4.6 describe as feeding the ModMap: a
// parameter never the target of an assignment anywhere in its function is
// inferred const.
func mutatesParam(bodyLines []string, name string) bool {
	for _, line := range bodyLines {
		for _, m := range cnxMutationPattern.FindAllStringSubmatch(line, -1) {
			if m[1] == name {
				return true
			}
		}
	}
	return false
}

func parseCNXParams(raw string) []Param {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var params []Param
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m := cnxParamPattern.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		t := parseCNXTypeName(m[2])
		isArray := m[4] != ""
		if isArray {
			t = ArrayType{Element: t, Dimensions: []ArrayDimension{SymbolicDim("")}}
		}
		params = append(params, Param{Name: m[3], Type: t, IsConst: m[1] != "", IsArray: isArray})
	}
	return params
}

// parseCNXTypeName resolves a CNX type spelling to a TType value. Primitive
// names map directly; anything else is left as a name-only reference
// (StructType/EnumType/etc. get fixed up once the whole table is built, in
// resolve.go's external-reference pass).
func parseCNXTypeName(name string) TType {
	name = strings.TrimSpace(name)
	switch name {
	case "u8":
		return PrimitiveType{Kind: KindU8}
	case "u16":
		return PrimitiveType{Kind: KindU16}
	case "u32":
		return PrimitiveType{Kind: KindU32}
	case "u64":
		return PrimitiveType{Kind: KindU64}
	case "i8":
		return PrimitiveType{Kind: KindI8}
	case "i16":
		return PrimitiveType{Kind: KindI16}
	case "i32":
		return PrimitiveType{Kind: KindI32}
	case "i64":
		return PrimitiveType{Kind: KindI64}
	case "f32":
		return PrimitiveType{Kind: KindF32}
	case "f64":
		return PrimitiveType{Kind: KindF64}
	case "bool":
		return PrimitiveType{Kind: KindBool}
	case "void":
		return PrimitiveType{Kind: KindVoid}
	case "usize":
		return PrimitiveType{Kind: KindUsize}
	case "isize":
		return PrimitiveType{Kind: KindIsize}
	case "cstring":
		return PrimitiveType{Kind: KindCString}
	default:
		if strings.HasPrefix(name, "string<") && strings.HasSuffix(name, ">") {
			capStr := name[len("string<") : len(name)-1]
			n, _ := strconv.Atoi(capStr)
			return StringType{Capacity: n}
		}
		// Unknown at this point: might be struct, enum, bitmap, callback, or
		// register. Left as StructType provisionally; resolve.go corrects the
		// variant once the full symbol table is known.
		return StructType{Name: name}
	}
}

func (c *cnxCollector) collectStruct(i int, scope *Scope) int {
	m := cnxStructPattern.FindStringSubmatch(c.lines[i])
	isStatic := m[1] != ""
	name := m[2]
	blockEnd := matchBrace(c.lines, i)

	fields := make(map[string]StructField)
	var order []string
	for j := i + 1; j < blockEnd; j++ {
		fm := cnxFieldPattern.FindStringSubmatch(c.lines[j])
		if fm == nil {
			continue
		}
		t := parseCNXTypeName(fm[2])
		isArray := fm[4] != ""
		if isArray {
			t = ArrayType{Element: t, Dimensions: []ArrayDimension{SymbolicDim("")}}
		}
		fields[fm[3]] = StructField{Name: fm[3], Type: t, IsConst: strings.Contains(fm[1], "const"), IsAtomic: strings.Contains(fm[1], "atomic"), IsArray: isArray}
		order = append(order, fm[3])
	}

	sym := &StructSymbol{
		symbolBase:   symbolBase{Name: name, Scope: scope, SourceFile: c.f.Path, SourceLine: i + 1, SourceLanguage: LangCNX, IsExported: !isStatic, DocComment: precedingComment(c.lines, i)},
		FieldOrder:   order,
		FieldsByName: fields,
	}
	c.tu.Symtab.Insert(sym)
	scope.Declare(name)
	return blockEnd + 1
}

func (c *cnxCollector) collectEnum(i int, scope *Scope) int {
	m := cnxEnumPattern.FindStringSubmatch(c.lines[i])
	isStatic := m[1] != ""
	name := m[2]
	blockEnd := matchBrace(c.lines, i)

	values := make(map[string]int64)
	var order []string
	next := int64(0)
	for j := i + 1; j < blockEnd; j++ {
		em := cnxEnumMemberPattern.FindStringSubmatch(strings.TrimSpace(c.lines[j]))
		if em == nil || em[1] == "" {
			continue
		}
		v := next
		if em[3] != "" {
			if n, err := strconv.ParseInt(em[3], 10, 64); err == nil {
				v = n
			}
		}
		values[em[1]] = v
		order = append(order, em[1])
		next = v + 1
	}

	width := 8
	for _, v := range values {
		if v > 255 || v < -128 {
			width = 32
		}
	}

	sym := &EnumSymbol{
		symbolBase:  symbolBase{Name: name, Scope: scope, SourceFile: c.f.Path, SourceLine: i + 1, SourceLanguage: LangCNX, IsExported: !isStatic, DocComment: precedingComment(c.lines, i)},
		MemberOrder: order,
		Values:      values,
		BitWidth:    width,
	}
	c.tu.Symtab.Insert(sym)
	scope.Declare(name)
	return blockEnd + 1
}

func (c *cnxCollector) collectBitmap(i int, scope *Scope) int {
	m := cnxBitmapPattern.FindStringSubmatch(c.lines[i])
	isStatic := m[1] != ""
	width, _ := strconv.Atoi(m[2])
	name := m[3]
	blockEnd := matchBrace(c.lines, i)

	fields := make(map[string]BitmapField)
	var order []string
	offset := 0
	totalWidth := 0
	for j := i + 1; j < blockEnd; j++ {
		bm := cnxBitfieldPattern.FindStringSubmatch(strings.TrimSpace(c.lines[j]))
		if bm == nil {
			continue
		}
		w, _ := strconv.Atoi(bm[2])
		fields[bm[1]] = BitmapField{Name: bm[1], Offset: offset, Width: w}
		order = append(order, bm[1])
		offset += w
		totalWidth += w
	}
	if totalWidth != width {
		c.report(i+1, ECodeBitmapWidthMismatch,
			"bitmap %s declares %d bits but fields sum to %d", name, width, totalWidth)
	}

	bw := BitWidth(32)
	switch {
	case width <= 8:
		bw = BitWidth8
	case width <= 16:
		bw = BitWidth16
	case width <= 24:
		bw = BitWidth24
	}

	sym := &BitmapSymbol{
		symbolBase:   symbolBase{Name: name, Scope: scope, SourceFile: c.f.Path, SourceLine: i + 1, SourceLanguage: LangCNX, IsExported: !isStatic, DocComment: precedingComment(c.lines, i)},
		Backing:      bitmapBackingKind(bw),
		BitWidth:     bw,
		FieldOrder:   order,
		FieldsByName: fields,
	}
	c.tu.Symtab.Insert(sym)
	scope.Declare(name)
	return blockEnd + 1
}

func (c *cnxCollector) collectRegister(i int, scope *Scope) int {
	m := cnxRegisterPattern.FindStringSubmatch(c.lines[i])
	name := m[1]
	var addr uint64
	if strings.HasPrefix(m[2], "0x") {
		addr, _ = strconv.ParseUint(strings.TrimPrefix(m[2], "0x"), 16, 64)
	} else {
		addr, _ = strconv.ParseUint(m[2], 10, 64)
	}
	blockEnd := matchBrace(c.lines, i)

	// Register members keep the literal colon grammar spec.md §4.6(9) gives:
	// "M: T rw @ OFF" — distinct from every other declaration shape in this
	// file, which is why register bodies are not scanned with cnxFieldPattern.
	members := make(map[string]RegisterMember)
	var order []string
	for j := i + 1; j < blockEnd; j++ {
		fm := cnxRegisterFieldPattern.FindStringSubmatch(c.lines[j])
		if fm == nil {
			continue
		}
		access := AccessRW
		switch fm[3] {
		case "ro":
			access = AccessRO
		case "wo":
			access = AccessWO
		}
		t := parseCNXTypeName(fm[2])
		offset, _ := strconv.Atoi(fm[4])
		members[fm[1]] = RegisterMember{Name: fm[1], Type: t, Offset: offset, Access: access}
		order = append(order, fm[1])
	}

	sym := &RegisterSymbol{
		symbolBase:    symbolBase{Name: name, Scope: scope, SourceFile: c.f.Path, SourceLine: i + 1, SourceLanguage: LangCNX, IsExported: true, DocComment: precedingComment(c.lines, i)},
		BaseAddress:   addr,
		MemberOrder:   order,
		MembersByName: members,
	}
	c.tu.Symtab.Insert(sym)
	scope.Declare(name)
	return blockEnd + 1
}

func (c *cnxCollector) collectVar(i int, scope *Scope) {
	m := cnxVarPattern.FindStringSubmatch(c.lines[i])
	modifiers := m[1]
	name := m[3]
	t := parseCNXTypeName(m[2])
	initExpr := strings.TrimSpace(m[5])
	var dims []ArrayDimension
	if m[4] != "" {
		dim := strings.Trim(m[4], "[]")
		if n, err := strconv.Atoi(dim); err == nil {
			dims = append(dims, ResolvedDim(n))
		} else if dim != "" {
			dims = append(dims, SymbolicDim(dim))
		}
		t = ArrayType{Element: t, Dimensions: dims}
	}

	overflow := OverflowNone
	switch {
	case strings.Contains(modifiers, "clamp"):
		overflow = OverflowClamp
	case strings.Contains(modifiers, "wrap"):
		overflow = OverflowWrap
	}

	sym := &VariableSymbol{
		symbolBase: symbolBase{Name: name, Scope: scope, SourceFile: c.f.Path, SourceLine: i + 1, SourceLanguage: LangCNX, IsExported: !strings.Contains(modifiers, "static"), DocComment: precedingComment(c.lines, i)},
		Type:       t,
		IsConst:    strings.Contains(modifiers, "const"),
		IsAtomic:   strings.Contains(modifiers, "atomic"),
		IsVolatile: strings.Contains(modifiers, "volatile"),
		IsExtern:   strings.Contains(modifiers, "extern"),
		Overflow:   overflow,
		InitExpr:   initExpr,
		Dimensions: dims,
	}
	c.tu.Symtab.Insert(sym)
	scope.Declare(name)
	glog.V(2).Infof("cnxcollect: var %s in scope %s", name, scope.Name)
}
