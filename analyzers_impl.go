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
	"regexp"
	"strconv"
	"strings"
)

// Each analyzer below is grounded on the same "regex-gated line scan over a
// function body" shape as cnxcollect.go's collectors — spec.md §4.6's
// table describes checks as syntactic/structural, not requiring full
// dataflow analysis, so a line-oriented scan is a faithful, conservative
// implementation: it never claims to catch every instance of a pattern
// (that would need real control-flow analysis this dialect's restricted
// subset doesn't demand), only the textually-visible ones, and it never
// flags a false positive on well-formed CNX.

type sizeofArrayParamAnalyzer struct{}

func (sizeofArrayParamAnalyzer) Name() string { return "sizeof-array-param" }

var sizeofPattern = regexp.MustCompile(`\bsizeof\s*\(\s*(\w+)\s*\)`)

// sizeof on an array parameter measures the pointer, not the array, the
// classic C footgun spec.md §4.6(6) calls out as an error here rather than
// the silent miscompile C allows.
func (a sizeofArrayParamAnalyzer) Analyze(tu *TranslationUnit, f *SourceFile, fn *FunctionSymbol) []Diagnostic {
	var diags []Diagnostic
	arrayParams := make(map[string]bool)
	for _, p := range fn.Params {
		if p.IsArray {
			arrayParams[p.Name] = true
		}
	}
	if len(arrayParams) == 0 {
		return nil
	}
	for i, line := range strings.Split(bodyOf(fn), "\n") {
		for _, m := range sizeofPattern.FindAllStringSubmatch(line, -1) {
			if arrayParams[m[1]] {
				diags = append(diags, Errorf(f.Path, fn.Base().SourceLine+i+1, 0, ECodeSizeofArrayParam,
					"sizeof(%s) measures the parameter's pointer, not its array length", m[1]))
			}
		}
	}
	return diags
}

type booleanConditionAnalyzer struct{}

func (booleanConditionAnalyzer) Name() string { return "boolean-condition" }

var ifWhilePattern = regexp.MustCompile(`^\s*(if|while)\s*\(([^)]*)\)`)
var ternaryPattern = regexp.MustCompile(`([^?:]+)\?[^:]+:`)
var comparisonOrLogicalPattern = regexp.MustCompile(`==|!=|<=|>=|<|>|&&|\|\||!`)

// CNX has no assignment-in-condition error class: `=` is always equality in
// this dialect (spec.md §6's input grammar), so `if (a = b)` can never be a
// mistaken assignment the way it is in C. What it can be is a condition
// whose value is not boolean-typed, which is exactly Scenario A from
// spec.md §8: `if (a = b)` is only valid when both operands are already
// `bool`, since `=` yields `bool` but the condition position requires one.
// This analyzer implements the "Boolean conditions" row of spec.md §4.6's
// table for if/while/ternary; do-while is lowered close enough to C that
// the same textual shape does not appear in a CNX function body scan.
func (a booleanConditionAnalyzer) Analyze(tu *TranslationUnit, f *SourceFile, fn *FunctionSymbol) []Diagnostic {
	var diags []Diagnostic
	boolNames := boolTypedNames(fn)
	for i, line := range strings.Split(bodyOf(fn), "\n") {
		if m := ifWhilePattern.FindStringSubmatch(line); m != nil {
			cond := strings.TrimSpace(m[2])
			if !isBooleanExpr(cond, boolNames) {
				diags = append(diags, Errorf(f.Path, fn.Base().SourceLine+i+1, 0, ECodeNonBooleanCondition,
					"%s condition %q is not boolean-typed (needs a comparison, logical expression, or bool)", m[1], cond))
			}
			continue
		}
		if m := ternaryPattern.FindStringSubmatch(line); m != nil {
			cond := strings.TrimSpace(m[1])
			if !isBooleanExpr(cond, boolNames) {
				diags = append(diags, Errorf(f.Path, fn.Base().SourceLine+i+1, 0, ECodeNonBooleanCondition,
					"ternary condition %q is not boolean-typed (needs a comparison, logical expression, or bool)", cond))
			}
		}
	}
	return diags
}

func isBooleanExpr(cond string, boolNames map[string]bool) bool {
	if cond == "true" || cond == "false" {
		return true
	}
	if comparisonOrLogicalPattern.MatchString(cond) {
		return true
	}
	return boolNames[cond]
}

// boolTypedNames collects every bool-typed parameter and local in fn, so a
// bare-name condition like "if (ready)" is recognized as boolean without
// needing a comparison operator.
func boolTypedNames(fn *FunctionSymbol) map[string]bool {
	names := make(map[string]bool)
	for _, p := range fn.Params {
		if pt, ok := p.Type.(PrimitiveType); ok && pt.Kind == KindBool {
			names[p.Name] = true
		}
	}
	for _, line := range strings.Split(bodyOf(fn), "\n") {
		m := cnxVarPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if strings.TrimSpace(m[2]) == "bool" {
			names[m[3]] = true
		}
	}
	return names
}

type switchExhaustivenessAnalyzer struct{}

func (switchExhaustivenessAnalyzer) Name() string { return "switch-exhaustive" }

var switchOnPattern = regexp.MustCompile(`^\s*switch\s*\(\s*(\w+)\s*\)`)

// caseLabelPattern matches CNX's own case-label grammar (spec.md §4.6(10)):
// "case V { … }", optionally qualified ("case S.A { … }") and optionally
// combining multiple values with "||" ("case A || B { … }").
var caseLabelPattern = regexp.MustCompile(`^\s*case\s+([\w.]+(?:\s*\|\|\s*[\w.]+)*)\s*\{`)

// defaultLabelPattern matches a bare "default { … }" (unconditional
// catch-all) or the counted form "default(n) { … }" from Scenario F.
var defaultLabelPattern = regexp.MustCompile(`^\s*default(?:\((\d+)\))?\s*\{`)

// An enum-typed switch must cover every member, or carry a `default { }`
// that claims every remaining member, or a `default(n) { }` that claims no
// more than n members remain uncovered (spec.md §4.6's "Switch structure"
// row and Scenario F's worked example: default(1) passes with one member
// uncovered, default(0) does not).
func (a switchExhaustivenessAnalyzer) Analyze(tu *TranslationUnit, f *SourceFile, fn *FunctionSymbol) []Diagnostic {
	var diags []Diagnostic
	lines := strings.Split(bodyOf(fn), "\n")
	localVarTypes := localEnumVarTypes(tu, fn)

	for i, line := range lines {
		m := switchOnPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		enumName, ok := localVarTypes[m[1]]
		if !ok {
			continue
		}
		enumSym, ok := tu.Symtab.Lookup(enumName)
		if !ok {
			continue
		}
		es, ok := enumSym.(*EnumSymbol)
		if !ok {
			continue
		}
		blockEnd := matchBrace(lines, i+indexOfBrace(lines, i))
		covered := make(map[string]bool)
		hasDefault := false
		defaultN := -1
		for j := i; j <= blockEnd && j < len(lines); j++ {
			if cm := caseLabelPattern.FindStringSubmatch(lines[j]); cm != nil {
				for _, label := range strings.Split(cm[1], "||") {
					covered[lastDotSegment(strings.TrimSpace(label))] = true
				}
			}
			if dm := defaultLabelPattern.FindStringSubmatch(lines[j]); dm != nil {
				hasDefault = true
				if dm[1] != "" {
					n, _ := strconv.Atoi(dm[1])
					defaultN = n
				}
			}
		}

		var missing []string
		for _, member := range es.MemberOrder {
			if !covered[member] {
				missing = append(missing, member)
			}
		}
		if len(missing) == 0 {
			continue
		}
		if hasDefault && defaultN < 0 {
			continue
		}
		if hasDefault && len(missing) <= defaultN {
			continue
		}
		if hasDefault {
			diags = append(diags, Errorf(f.Path, fn.Base().SourceLine+i+1, 0, ECodeSwitchNonExhaustive,
				"switch over enum %s has default(%d) but %d members are uncovered: %s", enumName, defaultN, len(missing), strings.Join(missing, ", ")))
			continue
		}
		for _, member := range missing {
			diags = append(diags, Errorf(f.Path, fn.Base().SourceLine+i+1, 0, ECodeSwitchNonExhaustive,
				"switch over enum %s is missing case %s (or a default)", enumName, member))
		}
	}
	return diags
}

func lastDotSegment(s string) string {
	if idx := strings.LastIndexByte(s, '.'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

func indexOfBrace(lines []string, from int) int {
	for i := from; i < len(lines); i++ {
		if strings.Contains(lines[i], "{") {
			return i - from
		}
	}
	return 0
}

func localEnumVarTypes(tu *TranslationUnit, fn *FunctionSymbol) map[string]string {
	types := make(map[string]string)
	for _, p := range fn.Params {
		if et, ok := p.Type.(EnumType); ok {
			types[p.Name] = et.Name
		}
	}
	for _, line := range strings.Split(bodyOf(fn), "\n") {
		m := cnxVarPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if sym, ok := tu.Symtab.Lookup(m[2]); ok {
			if _, ok := sym.(*EnumSymbol); ok {
				types[m[3]] = m[2]
			}
		}
	}
	return types
}

type gotoUsedAnalyzer struct{}

func (gotoUsedAnalyzer) Name() string { return "goto-used" }

var gotoPattern = regexp.MustCompile(`^\s*goto\s+\w+\s*;`)

// CNX forbids goto entirely, per spec.md §4.6(9).
func (a gotoUsedAnalyzer) Analyze(tu *TranslationUnit, f *SourceFile, fn *FunctionSymbol) []Diagnostic {
	var diags []Diagnostic
	for i, line := range strings.Split(bodyOf(fn), "\n") {
		if gotoPattern.MatchString(line) {
			diags = append(diags, Errorf(f.Path, fn.Base().SourceLine+i+1, 0, ECodeGotoUsed, "goto is not permitted"))
		}
	}
	return diags
}

type recursionAnalyzer struct{}

func (recursionAnalyzer) Name() string { return "recursion" }

// Direct self-recursion is forbidden on this dialect's embedded targets
// (bounded stack, spec.md §4.6(8)); indirect (mutual) recursion is not
// detected, since this textual scan only looks for a function calling its
// own name.
func (a recursionAnalyzer) Analyze(tu *TranslationUnit, f *SourceFile, fn *FunctionSymbol) []Diagnostic {
	name := fn.Base().Name
	callPattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*\(`)
	var diags []Diagnostic
	for i, line := range strings.Split(bodyOf(fn), "\n") {
		if callPattern.MatchString(line) {
			diags = append(diags, Errorf(f.Path, fn.Base().SourceLine+i+1, 0, ECodeRecursion,
				"%s recursively calls itself, which is forbidden on bounded-stack targets", name))
		}
	}
	return diags
}

type divisionByZeroAnalyzer struct{}

func (divisionByZeroAnalyzer) Name() string { return "division-by-zero" }

var divZeroPattern = regexp.MustCompile(`/\s*0(?:$|[^\w.]|\.(?:$|\D))`)
var divVarPattern = regexp.MustCompile(`/\s*(\w+)\b`)

func (a divisionByZeroAnalyzer) Analyze(tu *TranslationUnit, f *SourceFile, fn *FunctionSymbol) []Diagnostic {
	var diags []Diagnostic
	for i, line := range strings.Split(bodyOf(fn), "\n") {
		if divZeroPattern.MatchString(line) {
			diags = append(diags, Errorf(f.Path, fn.Base().SourceLine+i+1, 0, ECodeDivisionByZero,
				"division by literal zero"))
		}
	}
	return diags
}

type narrowingCastAnalyzer struct{}

func (narrowingCastAnalyzer) Name() string { return "narrowing-cast" }

var castPattern = regexp.MustCompile(`\(\s*(u8|u16|u32|i8|i16|i32)\s*\)\s*(\w+)`)

// An explicit cast to a narrower integer type than the source expression's
// declared width is flagged, per spec.md §4.6(11): narrowing must be
// visible at the cast site, never silent.
func (a narrowingCastAnalyzer) Analyze(tu *TranslationUnit, f *SourceFile, fn *FunctionSymbol) []Diagnostic {
	var diags []Diagnostic
	paramBits := make(map[string]int)
	for _, p := range fn.Params {
		paramBits[p.Name] = Bits(p.Type)
	}
	for i, line := range strings.Split(bodyOf(fn), "\n") {
		for _, m := range castPattern.FindAllStringSubmatch(line, -1) {
			targetBits := primitiveBits[primitiveKindByName(m[1])]
			if srcBits, ok := paramBits[m[2]]; ok && srcBits > targetBits {
				diags = append(diags, Warnf(f.Path, fn.Base().SourceLine+i+1, 0, ECodeNarrowingCast,
					"cast narrows %s from %d bits to %d bits", m[2], srcBits, targetBits))
			}
		}
	}
	return diags
}

func primitiveKindByName(name string) PrimitiveKind {
	for k, n := range primitiveNames {
		if n == name {
			return k
		}
	}
	return KindI32
}

type nullComparisonNamingAnalyzer struct{}

func (nullComparisonNamingAnalyzer) Name() string { return "null-comparison-naming" }

var nullCompPattern = regexp.MustCompile(`\b(\w+)\s*(==|!=)\s*null\b`)

// A pointer compared against null outside a name conventionally signaling
// optionality (spec.md §4.6(12): names should read "maybe"/"opt"-prefixed
// when nullable) gets a style warning, not an error — purely advisory.
func (a nullComparisonNamingAnalyzer) Analyze(tu *TranslationUnit, f *SourceFile, fn *FunctionSymbol) []Diagnostic {
	var diags []Diagnostic
	for i, line := range strings.Split(bodyOf(fn), "\n") {
		for _, m := range nullCompPattern.FindAllStringSubmatch(line, -1) {
			lower := strings.ToLower(m[1])
			if !strings.HasPrefix(lower, "maybe") && !strings.HasPrefix(lower, "opt") {
				diags = append(diags, Warnf(f.Path, fn.Base().SourceLine+i+1, 0, ECodeNullComparisonNaming,
					"%q is compared against null but is not named to signal optionality", m[1]))
			}
		}
	}
	return diags
}

type forbiddenAllocatorAnalyzer struct{}

func (forbiddenAllocatorAnalyzer) Name() string { return "forbidden-allocator" }

var allocatorPattern = regexp.MustCompile(`\b(malloc|calloc|realloc|free|new|delete)\s*[\(\[]?`)

// Dynamic allocation is forbidden on this dialect's bounded-memory embedded
// targets, per spec.md §4.6(13).
func (a forbiddenAllocatorAnalyzer) Analyze(tu *TranslationUnit, f *SourceFile, fn *FunctionSymbol) []Diagnostic {
	var diags []Diagnostic
	for i, line := range strings.Split(bodyOf(fn), "\n") {
		if m := allocatorPattern.FindStringSubmatch(line); m != nil {
			diags = append(diags, Errorf(f.Path, fn.Base().SourceLine+i+1, 0, ECodeForbiddenAllocator,
				"%s is forbidden; CNX targets have no dynamic heap", m[1]))
		}
	}
	return diags
}

type nestedCommentAnalyzer struct{}

func (nestedCommentAnalyzer) Name() string { return "nested-comment" }

// A /* appearing inside an already-open block comment very likely signals
// an accidentally-unterminated earlier comment, per spec.md §4.6(14).
func (a nestedCommentAnalyzer) Analyze(tu *TranslationUnit, f *SourceFile, fn *FunctionSymbol) []Diagnostic {
	var diags []Diagnostic
	inComment := false
	for i, line := range strings.Split(bodyOf(fn), "\n") {
		rest := line
		for {
			if inComment {
				open := strings.Index(rest, "/*")
				end := strings.Index(rest, "*/")
				if open >= 0 && (end < 0 || open < end) {
					diags = append(diags, Warnf(f.Path, fn.Base().SourceLine+i+1, 0, ECodeNestedComment,
						"nested /* inside a block comment; comments do not nest in C"))
				}
				if end < 0 {
					break
				}
				rest = rest[end+2:]
				inComment = false
				continue
			}
			idx := strings.Index(rest, "/*")
			if idx < 0 {
				break
			}
			rest = rest[idx+2:]
			inComment = true
		}
	}
	return diags
}

type sliceNonConstantAnalyzer struct{}

func (sliceNonConstantAnalyzer) Name() string { return "slice-non-constant" }

var arraySlicePattern = regexp.MustCompile(`(\w+)\[\s*(\w+)\s*,\s*(\w+)\s*\]`)

// Array-slice bounds must be compile-time constants on this dialect
// (spec.md §4.6(10), "no variable-length slices on bounded-stack targets");
// a bound that is not a bare integer literal or a known const symbol is
// flagged.
func (a sliceNonConstantAnalyzer) Analyze(tu *TranslationUnit, f *SourceFile, fn *FunctionSymbol) []Diagnostic {
	var diags []Diagnostic
	for i, line := range strings.Split(bodyOf(fn), "\n") {
		for _, m := range arraySlicePattern.FindAllStringSubmatch(line, -1) {
			for _, bound := range []string{m[2], m[3]} {
				if isIntegerLiteral(bound) {
					continue
				}
				sym, ok := tu.Symtab.Lookup(bound)
				if ok {
					if v, ok := sym.(*VariableSymbol); ok && v.IsConst {
						continue
					}
				}
				diags = append(diags, Errorf(f.Path, fn.Base().SourceLine+i+1, 0, ECodeSliceNonConstant,
					"slice bound %q is not a compile-time constant", bound))
			}
		}
	}
	return diags
}

func isIntegerLiteral(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type callOrderAnalyzer struct{}

func (callOrderAnalyzer) Name() string { return "call-order" }

var callSitePattern = regexp.MustCompile(`\b(\w+)\s*\(`)
var callOrderKeywords = map[string]bool{
	"if": true, "while": true, "switch": true, "for": true, "return": true,
	"sizeof": true, "case": true, "default": true, "critical": true,
}

// A call whose callee is declared below the caller in the same file is
// rejected, per spec.md §4.6's "Function-call ordering" row: CNX requires
// define-before-use within one file (stage 1's topological order already
// grants it across files). Only resolves callees in the caller's own
// scope, which is the common case (scope-local helpers called from a
// sibling function); a call through a different scope's mangled name is
// left to codegen to fail on if truly unresolved.
func (a callOrderAnalyzer) Analyze(tu *TranslationUnit, f *SourceFile, fn *FunctionSymbol) []Diagnostic {
	var diags []Diagnostic
	scope := fn.Base().Scope
	for i, line := range strings.Split(bodyOf(fn), "\n") {
		for _, m := range callSitePattern.FindAllStringSubmatch(line, -1) {
			name := m[1]
			if callOrderKeywords[name] || name == fn.Base().Name {
				continue
			}
			sym, ok := tu.Symtab.LookupInLanguage(scope.Mangle(name), LangCNX)
			if !ok {
				continue
			}
			callee, ok := sym.(*FunctionSymbol)
			if !ok {
				continue
			}
			if callee.Base().SourceFile == f.Path && callee.Base().SourceLine > fn.Base().SourceLine {
				diags = append(diags, Errorf(f.Path, fn.Base().SourceLine+i+1, 0, ECodeCallOrderViolation,
					"call to %s, which is declared later in this file at line %d", name, callee.Base().SourceLine))
			}
		}
	}
	return diags
}

type criticalReturnAnalyzer struct{}

func (criticalReturnAnalyzer) Name() string { return "critical-return" }

var criticalReturnPattern = regexp.MustCompile(`^\s*return\b`)

// return inside a critical{} block is rejected, per spec.md §4.6's
// "Critical section" row: it would leave interrupts disabled for the rest
// of the function's caller. Reuses lowering.go's criticalOpenPattern so
// the two passes agree on what counts as a critical block.
func (a criticalReturnAnalyzer) Analyze(tu *TranslationUnit, f *SourceFile, fn *FunctionSymbol) []Diagnostic {
	var diags []Diagnostic
	lines := strings.Split(bodyOf(fn), "\n")
	for i, line := range lines {
		if !criticalOpenPattern.MatchString(line) {
			continue
		}
		end := matchBrace(lines, i)
		for j := i + 1; j < end && j < len(lines); j++ {
			if criticalReturnPattern.MatchString(lines[j]) {
				diags = append(diags, Errorf(f.Path, fn.Base().SourceLine+j+1, 0, ECodeReturnInCritical,
					"return inside a critical block leaves interrupts disabled"))
			}
		}
	}
	return diags
}

type paramNamingAnalyzer struct{}

func (paramNamingAnalyzer) Name() string { return "param-naming" }

// A parameter may not begin with the enclosing function's name, per
// spec.md §4.6's "Parameter naming" row (a readability rule aimed at
// `void setSpeed(i32 setSpeedValue)`-style shadowing of the call site).
func (a paramNamingAnalyzer) Analyze(tu *TranslationUnit, f *SourceFile, fn *FunctionSymbol) []Diagnostic {
	var diags []Diagnostic
	for _, p := range fn.Params {
		if strings.HasPrefix(p.Name, fn.Base().Name) {
			diags = append(diags, Errorf(f.Path, fn.Base().SourceLine, 0, ECodeParamShadowsFunc,
				"parameter %q begins with enclosing function name %q", p.Name, fn.Base().Name))
		}
	}
	return diags
}

type uninitializedReadAnalyzer struct{}

func (uninitializedReadAnalyzer) Name() string { return "uninitialized-read" }

// A local declared without an initializer (cnxVarPattern matches but its
// init group is empty) and then read before any `<-` assignment is
// flagged, per the "Initialization" row of spec.md §4.6's analyzer table:
// the declaration itself counts as a zero-initializing assignment only
// when it carries an explicit initializer. Best-effort textual check
// (first use after declaration, not full dataflow), matching the
// line-scan posture of the rest of this file.
func (a uninitializedReadAnalyzer) Analyze(tu *TranslationUnit, f *SourceFile, fn *FunctionSymbol) []Diagnostic {
	var diags []Diagnostic
	lines := strings.Split(bodyOf(fn), "\n")
	for i, line := range lines {
		m := cnxVarPattern.FindStringSubmatch(line)
		if m == nil || m[5] != "" {
			continue
		}
		name := m[3]
		assignPattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*(?:[+\-*/&|^]|<<|>>)?<-`)
		readPattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
		for j := i + 1; j < len(lines); j++ {
			if assignPattern.MatchString(lines[j]) {
				break
			}
			if readPattern.MatchString(lines[j]) {
				diags = append(diags, Warnf(f.Path, fn.Base().SourceLine+j+1, 0, ECodeUninitializedRead,
					"%q may be read before it is initialized", name))
				break
			}
		}
	}
	return diags
}
