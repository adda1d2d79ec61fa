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
	"crypto/sha1"
	"fmt"
	"sort"
	"time"

	"github.com/golang/glog"
)

// TranslationUnit is the single context components compose through,
// per spec.md §2. Where kati keeps several process-wide singletons
// (symtab, stats, a C++-flag-equivalent), spec.md §9 explicitly asks a
// reimplementation to thread a per-job context through the pipeline
// instead — every stage after discovery takes *TranslationUnit, and Load
// returns (*TranslationResult, error), the same shape kati's own
// Load(LoadReq) (*DepGraph, error) uses (depgraph.go).
type TranslationUnit struct {
	Config *Config

	Symtab *SymbolTable
	ModMap *ModMap

	// Files is the ordered (topologically sorted) set of CNX files and
	// headers discovered in stage 1.
	Files *PipelineInput

	// cxxRequired is the monotone "C++ required" flag from spec.md §2/§5:
	// once true, it is never reset. Unexported so every write goes
	// through RequireCXX, keeping the monotonicity invariant in one place.
	cxxRequired bool

	// IncludeDirectives, keyed by absolute header path, holds a directive
	// string that GenerateHeader emits in place of an include's recorded
	// literal. Nothing in this package fills it, so GenerateHeader
	// re-emits the literal #include string discovery recorded on each
	// IncludeRef (spec.md §2(d)).
	IncludeDirectives map[string]string

	Diagnostics []Diagnostic
	Warnings    []Diagnostic

	Cache *Cache

	// overflowHelpers and atomicOps are the sets of cnx_helpers.h entries
	// this job's lowering passes actually exercised (spec.md §4.6(4)/(5)):
	// populated lazily from lowering.go, consumed once by
	// GenerateOverflowHelpersHeader so the emitted header only ever defines
	// what the translated sources use.
	overflowHelpers map[string]OverflowHelperSpec
	atomicOps       map[string]bool
	criticalNeeded  bool
}

// NewTranslationUnit creates an empty job context for cfg.
func NewTranslationUnit(cfg *Config) *TranslationUnit {
	return &TranslationUnit{
		Config:            cfg,
		Symtab:            NewSymbolTable(),
		ModMap:            NewModMap(),
		IncludeDirectives: make(map[string]string),
		overflowHelpers:   make(map[string]OverflowHelperSpec),
		atomicOps:         make(map[string]bool),
	}
}

// OverflowHelperSpec names one cnx_clamp_*/cnx_wrap_* helper function a
// translated file called, per spec.md §4.6(4)'s worked example
// (cnx_clamp_add_u8). Verb is "clamp" or "wrap"; Op is "add", "sub", or
// "mul".
type OverflowHelperSpec struct {
	Name string
	Verb string
	Op   string
	Kind PrimitiveKind
}

// RequireOverflowHelper records that a cnx_<verb>_<op>_<kind> helper must be
// emitted into the shared helpers header. Idempotent, matching RequireCXX's
// monotone-set shape above.
func (tu *TranslationUnit) RequireOverflowHelper(name, verb, op string, kind PrimitiveKind) {
	if _, ok := tu.overflowHelpers[name]; !ok {
		tu.overflowHelpers[name] = OverflowHelperSpec{Name: name, Verb: verb, Op: op, Kind: kind}
	}
}

// OverflowHelpers returns every required overflow helper, sorted by name so
// header output is deterministic across runs.
func (tu *TranslationUnit) OverflowHelpers() []OverflowHelperSpec {
	out := make([]OverflowHelperSpec, 0, len(tu.overflowHelpers))
	for _, spec := range tu.overflowHelpers {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RequireAtomicHelper records that a CNX_ATOMIC_<OP> macro must be emitted.
func (tu *TranslationUnit) RequireAtomicHelper(op string) {
	tu.atomicOps[op] = true
}

// AtomicOps returns every required atomic-RMW op name, sorted.
func (tu *TranslationUnit) AtomicOps() []string {
	out := make([]string, 0, len(tu.atomicOps))
	for op := range tu.atomicOps {
		out = append(out, op)
	}
	sort.Strings(out)
	return out
}

// RequireCriticalHelpers records that at least one critical{} block was
// lowered, so CNX_CRITICAL_ENTER/EXIT must be defined.
func (tu *TranslationUnit) RequireCriticalHelpers() { tu.criticalNeeded = true }

// NeedsCriticalHelpers reports whether any file used a critical{} block.
func (tu *TranslationUnit) NeedsCriticalHelpers() bool { return tu.criticalNeeded }

// NeedsOverflowHeader reports whether the shared cnx_helpers.h has anything
// to emit at all.
func (tu *TranslationUnit) NeedsOverflowHeader() bool {
	return len(tu.overflowHelpers) > 0 || len(tu.atomicOps) > 0 || tu.criticalNeeded
}

// RequireCXX raises the C++-required flag. It is idempotent and
// monotone — once true, calling it again is a no-op — matching spec.md
// §5's "writes are idempotent set-to-true operations, safe to perform
// without coordination."
func (tu *TranslationUnit) RequireCXX() {
	if !tu.cxxRequired {
		glog.V(1).Info("pipeline: C++ required flag raised")
	}
	tu.cxxRequired = true
}

// CXXRequired reports the current state of the monotone C++ flag.
func (tu *TranslationUnit) CXXRequired() bool { return tu.cxxRequired }

// Report appends a Diagnostic to the job result, splitting warnings from
// errors the way kati's log.go splits Warn from Error (but as values, not
// printed immediately — spec.md §7's "errors are values, not exceptions").
func (tu *TranslationUnit) Report(d Diagnostic) {
	if d.Severity == SeverityWarning {
		tu.Warnings = append(tu.Warnings, d)
		return
	}
	tu.Diagnostics = append(tu.Diagnostics, d)
}

// FileResult is the per-file outcome from stage 5/6, per spec.md §7's
// "structured result listing per-file success/failure."
type FileResult struct {
	SourceFile   string
	OutputPath   string // generated .c/.cpp path
	HeaderPath   string // generated .h/.hpp path
	Source       string // emitted translation-unit text
	Header       string // emitted header text
	Diagnostics  []Diagnostic
	Succeeded    bool
}

// TranslationResult is the job-level outcome returned by Load, grounded on
// kati's DepGraph{nodes, vars, accessedMks, exports} aggregate (depgraph.go):
// one place the caller reads both the "what got built" data and the
// per-file diagnostics out of.
type TranslationResult struct {
	Unit        *TranslationUnit
	Files       []*FileResult
	Warnings    []Diagnostic
	Errors      []Diagnostic
	WrittenPaths []string
	OutputExt   string // ".c"/".h" or ".cpp"/".hpp", decided by CXXRequired()

	// HelpersHeaderPath/HelpersHeaderSource carry the single shared
	// cnx_helpers.h (spec.md §4.6(4)/(5)) this job needs, if any file
	// required an overflow, atomic, or critical-section helper. Empty when
	// NeedsOverflowHeader() was false.
	HelpersHeaderPath   string
	HelpersHeaderSource string
}

// Succeeded reports whether the job completed with no error-severity
// diagnostic anywhere (a file-level analyzer error still fails the job
// even though sibling files kept translating, per spec.md §7).
func (r *TranslationResult) Succeeded() bool {
	if len(r.Errors) > 0 {
		return false
	}
	for _, f := range r.Files {
		if !f.Succeeded {
			return false
		}
	}
	return true
}

// Query resolves a mangled symbol name against the job's symbol table,
// the supplemented query-mode feature from SPEC_FULL.md, grounded on
// kati's query.go HandleQuery.
func (r *TranslationResult) Query(mangledName string) (TSymbol, bool) {
	return r.Unit.Symtab.Lookup(mangledName)
}

// Load runs the full six-stage pipeline for req and returns the aggregate
// result. Its shape — bootstrap config, read/parse, collect, resolve,
// analyze+codegen, generate headers, optionally cache — is grounded
// directly on kati's own Load(LoadReq) (*DepGraph, error) in depgraph.go.
func Load(req PipelineRequest) (*TranslationResult, error) {
	startTime := time.Now()

	cfg, err := ResolveConfig(req)
	if err != nil {
		return nil, fmt.Errorf("resolve config: %w", err)
	}

	tu := NewTranslationUnit(cfg)

	if cfg.UseCache {
		tu.Cache = OpenCache(cfg.CacheDir)
	}

	// Stage 1: File Discovery.
	input, err := Discover(req)
	if err != nil {
		return nil, fmt.Errorf("file discovery: %w", err)
	}
	tu.Files = input
	for _, w := range input.Warnings {
		tu.Report(w)
	}
	glog.V(1).Infof("pipeline: discovered %d CNX files, %d headers", len(input.CNXFiles), len(input.Headers))

	// Stage 2: Header Symbol Collection.
	for _, h := range input.Headers {
		diags, err := CollectHeaderSymbols(tu, h)
		if err != nil {
			return nil, fmt.Errorf("header collection %s: %w", h.Path, err)
		}
		for _, d := range diags {
			tu.Report(d)
		}
	}

	// Stage 3: CNX Symbol Collection, in topological order.
	for _, f := range input.CNXFiles {
		diags, err := CollectCNXSymbols(tu, f)
		if err != nil {
			return nil, fmt.Errorf("code generation failed: %s: %w", f.Path, err)
		}
		for _, d := range diags {
			tu.Report(d)
		}
	}
	if HasErrors(tu.Diagnostics) {
		return buildResult(tu, nil, startTime), nil
	}

	// Stage 3b: External Reference Resolution.
	ResolveExternalReferences(tu)

	// Stage 4: Conflict Detection.
	conflicts := DetectConflicts(tu)
	for _, d := range conflicts {
		tu.Report(d)
	}
	if HasErrors(tu.Diagnostics) {
		return buildResult(tu, nil, startTime), nil
	}

	// Stage 5 + 6: per-file analysis, codegen, header generation.
	var results []*FileResult
	for _, f := range input.CNXFiles {
		if f.SymbolsOnly {
			// Transitively-included CNX files are parsed for symbols only
			// (stage 3) and are never regenerated, per spec.md §4.1 step 4.
			continue
		}
		fr := translateFile(tu, f)
		results = append(results, fr)
	}

	result := buildResult(tu, results, startTime)

	if tu.NeedsOverflowHeader() {
		var anchor *SourceFile
		for _, f := range input.CNXFiles {
			if !f.SymbolsOnly {
				anchor = f
				break
			}
		}
		if anchor != nil {
			result.HelpersHeaderPath = HelpersHeaderPath(cfg, anchor)
			result.HelpersHeaderSource = GenerateOverflowHelpersHeader(tu)
		}
	}

	// All-or-nothing output, per spec.md §7: write only if every file in
	// this pass succeeded.
	if cfg.WriteToDisk && result.Succeeded() {
		paths, err := WriteOutputs(cfg, results, result.HelpersHeaderPath, result.HelpersHeaderSource)
		if err != nil {
			return nil, fmt.Errorf("write outputs: %w", err)
		}
		result.WrittenPaths = paths
	}

	if cfg.UseCache && tu.Cache != nil {
		if err := tu.Cache.Save(); err != nil {
			glog.Warningf("pipeline: cache save failed: %v", err)
		}
	}

	glog.V(1).Infof("pipeline: total time %s", time.Since(startTime))
	return result, nil
}

func buildResult(tu *TranslationUnit, files []*FileResult, startTime time.Time) *TranslationResult {
	ext := ".c"
	if tu.CXXRequired() {
		ext = ".cpp"
	}
	r := &TranslationResult{
		Unit:      tu,
		Files:     files,
		Warnings:  tu.Warnings,
		Errors:    tu.Diagnostics,
		OutputExt: ext,
	}
	glog.V(1).Infof("pipeline: %d files, %d errors, %d warnings, elapsed %s",
		len(files), len(r.Errors), len(r.Warnings), time.Since(startTime))
	return r
}

// translateFile runs the stage-5 per-file state machine from spec.md §4.6
// for one non-symbols-only CNX file: analyze, generate body, generate
// header. A panic anywhere in codegen is caught at this boundary and
// converted to a single "Code generation failed" diagnostic, per spec.md
// §4.6/§7 — the reimplementation's equivalent of kati's own top-level
// panic/recover around a single makefile's evaluation (main.go historically
// wrapped getDepGraph in a bare panic; this core recovers per-file instead
// so one bad file never aborts its siblings).
func translateFile(tu *TranslationUnit, f *SourceFile) (fr *FileResult) {
	fr = &FileResult{SourceFile: f.Path}
	defer func() {
		if rec := recover(); rec != nil {
			fr.Diagnostics = append(fr.Diagnostics, Errorf(f.Path, 1, 0, ECodeCodeGenFailed,
				"Code generation failed: %v", rec))
			fr.Succeeded = false
		}
	}()

	diags := RunAnalyzers(tu, f)
	fr.Diagnostics = append(fr.Diagnostics, diags...)
	if HasErrors(diags) {
		fr.Succeeded = false
		return fr
	}

	source, err := GenerateSource(tu, f)
	if err != nil {
		fr.Diagnostics = append(fr.Diagnostics, Errorf(f.Path, 1, 0, ECodeCodeGenFailed, "%v", err))
		fr.Succeeded = false
		return fr
	}
	fr.Source = source

	header, err := GenerateHeader(tu, f)
	if err != nil {
		fr.Diagnostics = append(fr.Diagnostics, Errorf(f.Path, 1, 0, ECodeCodeGenFailed, "%v", err))
		fr.Succeeded = false
		return fr
	}
	fr.Header = header

	fr.OutputPath, fr.HeaderPath = OutputPaths(tu.Config, f, tu.CXXRequired())
	fr.Succeeded = true
	return fr
}

// contentHash is the content-hash primitive the cache (cache.go) and
// stage-2 header cache (headercollect.go) both key on, grounded on kati's
// own sha1.Sum(content) use in depgraph.go's accessedMakefile bookkeeping.
func contentHash(content []byte) [sha1.Size]byte {
	return sha1.Sum(content)
}
