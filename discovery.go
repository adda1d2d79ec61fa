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
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/golang/glog"
)

// SourceFile is one CNX file discovered by stage 1.
type SourceFile struct {
	Path        string
	AbsPath     string
	Includes    []IncludeRef
	SymbolsOnly bool // transitively included; parsed for symbols, never regenerated
}

// HeaderFile is one C/C++ header discovered by stage 1, destined for
// stage 2.
type HeaderFile struct {
	Path    string
	AbsPath string
	IsCXX   bool
}

// IncludeRef records one #include directive: its literal source spelling
// (so stage 6 can emit an identical directive, spec.md §4.1 step 2) next
// to the resolved absolute path.
type IncludeRef struct {
	Literal  string // e.g. `#include "motor.h"` or `#include <stdint.h>`
	Path     string // as written between quotes/angle-brackets
	Quoted   bool
	Resolved string // absolute path, "" if unresolved
	Line     int
}

// PipelineInput is stage 1's output contract from spec.md §4.1: an ordered
// (topologically sorted) list of CNX files, a list of headers, and a
// write-to-disk flag.
type PipelineInput struct {
	CNXFiles    []*SourceFile
	Headers     []*HeaderFile
	WriteToDisk bool
	Warnings    []Diagnostic
}

// PipelineRequest is the contract of spec.md §4.1's two input shapes:
// either a filesystem path plus include directories, or an in-memory CNX
// source string plus a working directory.
type PipelineRequest struct {
	Path          string   // file or directory; empty if SourceText is used
	SourceText    string   // in-memory CNX source, used when Path == ""
	WorkingDir    string   // required when SourceText is set
	IncludeDirs   []string
	Config        *Config // nil to fall back to defaults + config-file discovery
}

var includePattern = regexp.MustCompile(`^\s*#\s*include\s*([<"])([^>"]+)([>"])`)

var cxxMarkers = regexp.MustCompile(`\b(class|namespace|template)\b|::`)

// genMagicMarker is the comment header stamped onto every generated C++
// header by stage 6 (spec.md §4.7), scanned for by entry-point detection
// to break generated-header include cycles during migration (spec.md §9,
// "Generated-header cycles").
const genMagicMarker = "// Generated by C-Next Transpiler"

// Discover implements stage 1 (File Discovery) from spec.md §4.1.
func Discover(req PipelineRequest) (*PipelineInput, error) {
	if req.SourceText != "" {
		return discoverFromSource(req)
	}
	return discoverFromPath(req)
}

func discoverFromSource(req PipelineRequest) (*PipelineInput, error) {
	if req.WorkingDir == "" {
		return nil, fmt.Errorf("discovery: SourceText requires WorkingDir")
	}
	virtual := filepath.Join(req.WorkingDir, "<memory>.cnx")
	walker := newIncludeWalker(req.IncludeDirs)
	root := walker.fileFor(virtual, false)
	if err := walker.walkSource(root, []byte(req.SourceText)); err != nil {
		return nil, err
	}
	return walker.finish(nil, false)
}

func discoverFromPath(req PipelineRequest) (*PipelineInput, error) {
	info, err := os.Stat(req.Path)
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}

	var roots []string
	if info.IsDir() {
		err := filepath.Walk(req.Path, func(p string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fi.IsDir() && strings.HasSuffix(p, ".cnx") {
				roots = append(roots, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("discovery: walk %s: %w", req.Path, err)
		}
	} else {
		roots = append(roots, req.Path)
	}

	walker := newIncludeWalker(req.IncludeDirs)
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("discovery: %w", err)
		}
		content, err := os.ReadFile(abs)
		if err != nil {
			return nil, fmt.Errorf("discovery: read %s: %w", abs, err)
		}
		if !strings.HasSuffix(abs, ".cnx") {
			// Entry-point detection: a C/C++ source including generated
			// headers pulls their CNX sources into the work list
			// (spec.md §4.1 "Entry-point detection").
			entry := &SourceFile{Path: abs, AbsPath: abs}
			if err := walker.pullGeneratedSources(entry, content); err != nil {
				return nil, err
			}
			continue
		}
		sf := walker.fileFor(abs, false)
		if err := walker.walkSource(sf, content); err != nil {
			return nil, err
		}
	}
	return walker.finish(nil, true)
}

func isEntryPoint(content []byte) bool {
	return strings.Contains(string(content), genMagicMarker)
}

// includeWalker performs the recursive #include walk and builds the
// dependency graph, grounded on kati's own recursive include handling
// (evalcmd.go's evalInclude) generalized from "one Makefile textually
// including another" to "many CNX files and headers forming a DAG."
type includeWalker struct {
	includeDirs []string
	files       map[string]*SourceFile  // by abs path
	headers     map[string]*HeaderFile  // by abs path
	order       []string                // insertion order of CNX files, for stable iteration
	edges       map[string][]string     // includer -> includee (abs paths)
	warnings    []Diagnostic
}

func newIncludeWalker(includeDirs []string) *includeWalker {
	return &includeWalker{
		includeDirs: includeDirs,
		files:       make(map[string]*SourceFile),
		headers:     make(map[string]*HeaderFile),
		edges:       make(map[string][]string),
	}
}

func (w *includeWalker) fileFor(abs string, symbolsOnly bool) *SourceFile {
	if sf, ok := w.files[abs]; ok {
		return sf
	}
	sf := &SourceFile{Path: abs, AbsPath: abs, SymbolsOnly: symbolsOnly}
	w.files[abs] = sf
	w.order = append(w.order, abs)
	return sf
}

func (w *includeWalker) walkSource(sf *SourceFile, content []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		m := includePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		quoted := m[1] == `"`
		lit := strings.TrimSpace(line)
		ref := IncludeRef{Literal: lit, Path: m[2], Quoted: quoted, Line: lineno}

		resolved, found := w.resolveInclude(filepath.Dir(sf.AbsPath), m[2], quoted)
		if !found {
			w.warnings = append(w.warnings, Warnf(sf.Path, lineno, 0, ECodeIncludeNotFound,
				"unresolved include %q", m[2]))
			sf.Includes = append(sf.Includes, ref)
			continue
		}
		ref.Resolved = resolved
		sf.Includes = append(sf.Includes, ref)
		w.edges[sf.AbsPath] = append(w.edges[sf.AbsPath], resolved)

		if strings.HasSuffix(resolved, ".cnx") {
			child := w.fileFor(resolved, true)
			childContent, err := os.ReadFile(resolved)
			if err != nil {
				return fmt.Errorf("discovery: read %s: %w", resolved, err)
			}
			if len(child.Includes) == 0 {
				if err := w.walkSource(child, childContent); err != nil {
					return err
				}
			}
			continue
		}
		if _, ok := w.headers[resolved]; !ok {
			isCXX := strings.HasSuffix(resolved, ".hpp") || strings.HasSuffix(resolved, ".hh") || strings.HasSuffix(resolved, ".hxx")
			h := &HeaderFile{Path: resolved, AbsPath: resolved, IsCXX: isCXX}
			if !isCXX {
				if content, err := os.ReadFile(resolved); err == nil && cxxMarkers.Match(content) {
					h.IsCXX = true
				}
			}
			w.headers[resolved] = h
		}
	}
	return scanner.Err()
}

// pullGeneratedSources scans the #include lines of a non-CNX entry point
// itself (headers those headers include are not followed) for headers
// carrying the magic marker, and resolves each generated header back to its CNX
// source by filename convention (NAME.h/.hpp -> NAME.cnx), per spec.md
// §4.1's entry-point detection. Headers carrying the marker are skipped
// from ordinary stage-2 collection, which breaks the migration cycle
// spec.md §9 describes.
func (w *includeWalker) pullGeneratedSources(sf *SourceFile, content []byte) error {
	for _, line := range strings.Split(string(content), "\n") {
		m := includePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		resolved, found := w.resolveInclude(filepath.Dir(sf.AbsPath), m[2], m[1] == `"`)
		if !found {
			continue
		}
		hcontent, err := os.ReadFile(resolved)
		if err != nil {
			continue
		}
		if !strings.Contains(string(hcontent), genMagicMarker) {
			continue
		}
		candidate := strings.TrimSuffix(strings.TrimSuffix(resolved, ".hpp"), ".h") + ".cnx"
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		cnxContent, err := os.ReadFile(candidate)
		if err != nil {
			return err
		}
		child := w.fileFor(candidate, false)
		if len(child.Includes) == 0 {
			if err := w.walkSource(child, cnxContent); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveInclude implements spec.md §4.1's search-order rule: quoted
// includes search the current directory first then the include path;
// angle-bracket includes search only the include path.
func (w *includeWalker) resolveInclude(currentDir, path string, quoted bool) (string, bool) {
	if filepath.IsAbs(path) {
		if fileExistsLocal(path) {
			return path, true
		}
		return "", false
	}
	if quoted {
		candidate := filepath.Join(currentDir, path)
		if fileExistsLocal(candidate) {
			abs, _ := filepath.Abs(candidate)
			return abs, true
		}
	}
	for _, dir := range w.includeDirs {
		candidate := filepath.Join(dir, path)
		if fileExistsLocal(candidate) {
			abs, _ := filepath.Abs(candidate)
			return abs, true
		}
	}
	return "", false
}

func fileExistsLocal(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// finish topologically sorts the discovered CNX files (dependencies before
// dependents, per spec.md §4.1's ordering rule, "essential for cross-file
// const inference") and builds the final PipelineInput. Cycles are
// reported as warnings and broken in arbitrary-but-stable order, matching
// spec.md's stated cycle policy.
func (w *includeWalker) finish(explicitRoot *SourceFile, multiRoot bool) (*PipelineInput, error) {
	sorted, cycleWarnings := topoSortFiles(w.order, w.edges)
	w.warnings = append(w.warnings, cycleWarnings...)

	input := &PipelineInput{WriteToDisk: multiRoot, Warnings: w.warnings}
	for _, abs := range sorted {
		// The sort also visits header nodes reached through edges; only
		// CNX files belong in CNXFiles.
		if sf, ok := w.files[abs]; ok {
			input.CNXFiles = append(input.CNXFiles, sf)
		}
	}
	for _, h := range w.headers {
		input.Headers = append(input.Headers, h)
	}
	glog.V(1).Infof("discovery: %d cnx files (topo order), %d headers, %d warnings",
		len(input.CNXFiles), len(input.Headers), len(w.warnings))
	return input, nil
}

// topoSortFiles performs a depth-first topological sort of the file
// dependency graph so that every file's dependencies precede it, grounded
// on kati's own dependency-ordered traversal pattern in depgraph.go's
// resolveVPATH (collect, then walk with a "seen" set to avoid
// re-visiting). Cycles are detected via a recursion-stack set and reported
// once per back-edge, per spec.md §4.1's "Cycles are detected and reported
// as warnings."
func topoSortFiles(order []string, edges map[string][]string) ([]string, []Diagnostic) {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var sorted []string
	var warnings []Diagnostic

	var visit func(string)
	visit = func(node string) {
		if visited[node] {
			return
		}
		if onStack[node] {
			warnings = append(warnings, Warnf(node, 1, 0, ECodeDependencyCycle,
				"dependency cycle detected at %s", node))
			return
		}
		onStack[node] = true
		for _, dep := range edges[node] {
			visit(dep)
		}
		onStack[node] = false
		visited[node] = true
		sorted = append(sorted, node)
	}
	for _, n := range order {
		visit(n)
	}
	return sorted, warnings
}
