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

import "sort"

// Analyzer is one stage-5a check from spec.md §4.6's table: a pure function
// from (translation unit, file) to diagnostics, run before codegen so a
// failing analyzer never lets malformed CNX reach the emitter. Grounded on
// kati's Func registry (func.go): a name, a constructor, dispatched from a
// single map rather than a chain of if/else — generalized here from "one
// function call, one builtin" to "one file, every registered analyzer."
type Analyzer interface {
	Name() string
	Analyze(tu *TranslationUnit, f *SourceFile, funcSym *FunctionSymbol) []Diagnostic
}

var analyzerRegistry []Analyzer

func registerAnalyzer(a Analyzer) {
	analyzerRegistry = append(analyzerRegistry, a)
}

func init() {
	registerAnalyzer(sizeofArrayParamAnalyzer{})
	registerAnalyzer(booleanConditionAnalyzer{})
	registerAnalyzer(switchExhaustivenessAnalyzer{})
	registerAnalyzer(gotoUsedAnalyzer{})
	registerAnalyzer(recursionAnalyzer{})
	registerAnalyzer(divisionByZeroAnalyzer{})
	registerAnalyzer(narrowingCastAnalyzer{})
	registerAnalyzer(nullComparisonNamingAnalyzer{})
	registerAnalyzer(forbiddenAllocatorAnalyzer{})
	registerAnalyzer(nestedCommentAnalyzer{})
	registerAnalyzer(sliceNonConstantAnalyzer{})
	registerAnalyzer(uninitializedReadAnalyzer{})
	registerAnalyzer(callOrderAnalyzer{})
	registerAnalyzer(criticalReturnAnalyzer{})
	registerAnalyzer(paramNamingAnalyzer{})
}

// RunAnalyzers implements stage 5a from spec.md §4.6: run every registered
// analyzer against every function declared in f, aggregating diagnostics.
// Order is stable (registration order) so diagnostic output is
// deterministic across runs, matching spec.md §8 invariant 5
// ("deterministic diagnostic ordering").
func RunAnalyzers(tu *TranslationUnit, f *SourceFile) []Diagnostic {
	var diags []Diagnostic
	var funcs []*FunctionSymbol
	for _, name := range tu.Symtab.MangledNames() {
		sym, ok := tu.Symtab.LookupInLanguage(name, LangCNX)
		if !ok {
			continue
		}
		fn, ok := sym.(*FunctionSymbol)
		if !ok || fn.Base().SourceFile != f.Path {
			continue
		}
		funcs = append(funcs, fn)
	}
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].Base().SourceLine < funcs[j].Base().SourceLine })

	for _, fn := range funcs {
		for _, a := range analyzerRegistry {
			diags = append(diags, a.Analyze(tu, f, fn)...)
		}
	}
	return diags
}

func bodyOf(fn *FunctionSymbol) string {
	s, _ := fn.Body.(string)
	return s
}
