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
	"os/exec"
	"regexp"
	"strings"

	"github.com/golang/glog"
)

// needsPreprocessorPattern flags headers whose conditional compilation is
// non-trivial enough that textual scanning can't be trusted: any #if whose
// expression isn't a bare defined(X), 0, or 1 (spec.md §4.2, "regex-gated
// preprocessor invocation"). Headers that don't match run through the cheap
// textual extractor below instead of spawning a subprocess.
var needsPreprocessorPattern = regexp.MustCompile(`(?m)^\s*#\s*if\s+(.*)$`)
var simpleIfExprPattern = regexp.MustCompile(`^\s*(defined\s*\(\s*\w+\s*\)|!\s*defined\s*\(\s*\w+\s*\)|0|1)\s*$`)

var (
	funcDeclPattern    = regexp.MustCompile(`^\s*(?:extern\s+)?([\w:\*\s]+?[\s\*])(\w+)\s*\(([^;{]*)\)\s*;`)
	externVarPattern   = regexp.MustCompile(`^\s*extern\s+([\w\*\s]+?)\s+(\w+)\s*;`)
	typedefPattern     = regexp.MustCompile(`^\s*typedef\s+(?:struct|enum|union)?\s*\w*\s*\{?\s*(\w+)\s*;`)
	structDeclPattern  = regexp.MustCompile(`^\s*(struct|class)\s+(\w+)\s*(;|\{)`)
	enumDeclPattern    = regexp.MustCompile(`^\s*enum\s+(?:class\s+)?(\w+)\s*\{`)
	namespacePattern   = regexp.MustCompile(`^\s*namespace\s+(\w+)\s*\{`)
)

// preprocessorCommand names the external C preprocessor invoked for headers
// that need real macro evaluation. Overridable by Config for cross-compiling
// toolchains (spec.md §6 config file).
var preprocessorCommand = "cc"

// CollectHeaderSymbols implements stage 2 (Header Symbol Collection) from
// spec.md §4.2: extract the declarations a C/C++ header exposes, caching the
// result by content hash so unchanged headers are never re-scanned, grounded
// on kati's funcShell subprocess invocation (func.go, "shell" builtin) for
// the preprocessor call and serialize.go's content-addressed LoadSaver for
// the cache shape.
func CollectHeaderSymbols(tu *TranslationUnit, h *HeaderFile) ([]Diagnostic, error) {
	content, err := os.ReadFile(h.AbsPath)
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", h.AbsPath, err)
	}
	hash := contentHash(content)
	lang := LangC
	if h.IsCXX {
		lang = LangCXX
	}

	if tu.Cache != nil {
		if cached, ok := tu.Cache.HeaderSymbols(h.AbsPath, hash); ok {
			glog.V(2).Infof("headercollect: cache hit for %s", h.AbsPath)
			for _, sym := range cached {
				base := sym.Base()
				base.SourceLanguage = lang
				base.SourceFile = h.Path
				tu.Symtab.Insert(sym)
			}
			return nil, nil
		}
	}

	text := string(content)
	var diags []Diagnostic
	if needsPreprocessor(text) {
		expanded, err := runPreprocessor(h.AbsPath, tu.Config)
		if err != nil {
			diags = append(diags, Warnf(h.Path, 1, 0, ECodePreprocessorFailed,
				"preprocessor invocation failed, falling back to textual scan: %v", err))
		} else {
			text = expanded
		}
	}

	syms, scanDiags := extractHeaderSymbols(h, text)
	diags = append(diags, scanDiags...)
	for _, sym := range syms {
		base := sym.Base()
		base.SourceLanguage = lang
		base.SourceFile = h.Path
		tu.Symtab.Insert(sym)
	}

	if tu.Cache != nil {
		tu.Cache.PutHeaderSymbols(h.AbsPath, hash, syms)
	}
	return diags, nil
}

// needsPreprocessor reports whether text contains any #if directive whose
// expression is not one of the trivially-evaluable forms spec.md §4.2 names.
func needsPreprocessor(text string) bool {
	for _, m := range needsPreprocessorPattern.FindAllStringSubmatch(text, -1) {
		if !simpleIfExprPattern.MatchString(m[1]) {
			return true
		}
	}
	return false
}

// runPreprocessor shells out to the configured C preprocessor with macro
// expansion only (-E -P), the subprocess-invocation idiom grounded on kati's
// own funcShell.Eval (func.go): build an argv, run it, read stdout, log
// failures without panicking.
func runPreprocessor(path string, cfg *Config) (string, error) {
	cmdName := preprocessorCommand
	if cfg != nil && cfg.PreprocessorCommand != "" {
		cmdName = cfg.PreprocessorCommand
	}
	args := []string{"-E", "-P"}
	for _, d := range definesFor(cfg) {
		args = append(args, "-D"+d)
	}
	for _, dir := range includeDirsFor(cfg) {
		args = append(args, "-I"+dir)
	}
	args = append(args, path)

	glog.V(1).Infof("headercollect: preprocessing %s: %s %v", path, cmdName, args)
	cmd := exec.Command(cmdName, args...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s %v: %w", cmdName, args, err)
	}
	return string(out), nil
}

func definesFor(cfg *Config) []string {
	if cfg == nil {
		return nil
	}
	return cfg.Defines
}

func includeDirsFor(cfg *Config) []string {
	if cfg == nil {
		return nil
	}
	return cfg.IncludeDirs
}

// extractHeaderSymbols scans preprocessed (or raw, if scanning was skipped)
// header text line by line for the declaration forms spec.md §4.2 lists:
// function prototypes, extern variables, typedefs, struct/class
// definitions, enums, and namespaces. This is a textual extractor, not a
// real parser — it is deliberately conservative, matching only declarations
// at statement-start, which is sufficient for the header-surface spec.md
// asks to be collected (full C++ parsing is explicitly out of scope, per
// spec.md's Non-goals).
func extractHeaderSymbols(h *HeaderFile, text string) ([]TSymbol, []Diagnostic) {
	var syms []TSymbol
	var diags []Diagnostic
	lines := strings.Split(text, "\n")

	var nsStack []string
	for i, line := range lines {
		lineno := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}

		if m := namespacePattern.FindStringSubmatch(line); m != nil {
			nsStack = append(nsStack, m[1])
			continue
		}
		if strings.HasPrefix(trimmed, "}") && len(nsStack) > 0 {
			nsStack = nsStack[:len(nsStack)-1]
			continue
		}

		scopeName := strings.Join(nsStack, "::")

		if m := structDeclPattern.FindStringSubmatch(line); m != nil {
			name := qualify(scopeName, m[2])
			syms = append(syms, &StructSymbol{
				symbolBase:   symbolBase{Name: name, Scope: GlobalScope, SourceLine: lineno},
				FieldsByName: make(map[string]StructField),
			})
			continue
		}

		if m := enumDeclPattern.FindStringSubmatch(line); m != nil {
			name := qualify(scopeName, m[1])
			syms = append(syms, &EnumSymbol{
				symbolBase: symbolBase{Name: name, Scope: GlobalScope, SourceLine: lineno},
				Values:     make(map[string]int64),
			})
			continue
		}

		if m := typedefPattern.FindStringSubmatch(line); m != nil {
			name := qualify(scopeName, m[1])
			syms = append(syms, &StructSymbol{
				symbolBase:   symbolBase{Name: name, Scope: GlobalScope, SourceLine: lineno},
				FieldsByName: make(map[string]StructField),
			})
			continue
		}

		if m := externVarPattern.FindStringSubmatch(line); m != nil {
			name := qualify(scopeName, m[2])
			syms = append(syms, &VariableSymbol{
				symbolBase: symbolBase{Name: name, Scope: GlobalScope, SourceLine: lineno},
				Type:       ExternalType{Name: strings.TrimSpace(m[1])},
			})
			continue
		}

		if m := funcDeclPattern.FindStringSubmatch(line); m != nil {
			name := qualify(scopeName, m[2])
			params := splitParams(m[3])
			syms = append(syms, &FunctionSymbol{
				symbolBase: symbolBase{Name: name, Scope: GlobalScope, SourceLine: lineno},
				Params:     params,
				ReturnType: ExternalType{Name: strings.TrimSpace(m[1])},
			})
			continue
		}
	}

	_ = h
	return syms, diags
}

func qualify(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "::" + name
}

// splitParams parses a raw C parameter list into Param values, used only to
// record arity and external types on the header's FunctionSymbol; it does
// not attempt full type algebra.
func splitParams(raw string) []Param {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "void" {
		return nil
	}
	parts := strings.Split(raw, ",")
	params := make([]Param, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		fields := strings.Fields(p)
		name := fmt.Sprintf("arg%d", i)
		typeName := p
		if len(fields) > 1 {
			name = strings.TrimLeft(fields[len(fields)-1], "*")
			typeName = strings.Join(fields[:len(fields)-1], " ")
		}
		params = append(params, Param{Name: name, Type: ExternalType{Name: typeName}})
	}
	return params
}
