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
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// TargetProfile names a lowering strategy bundle for a specific embedded
// target family, selected per spec.md §6 ("target detection"): it decides
// integer-overflow-helper style, atomic-access lowering, and whether
// register access compiles to direct pointer stores or a HAL callout.
type TargetProfile string

const (
	TargetGeneric TargetProfile = "generic"
	TargetAVR     TargetProfile = "avr"
	TargetARMCortexM TargetProfile = "arm-cortex-m"
)

// Config is the fully-resolved configuration for one translation job, the
// merge of defaults, a config file, and command-line overrides — grounded
// on kati's own origin-precedence chain for variables (var.go's
// originPrecedence: command line beats file beats environment beats
// default) and on cmdline.go's flag-parsing shape, generalized from "make
// variables" to "translator settings."
type Config struct {
	// Target selects the lowering profile (spec.md §6's "-target" flag).
	Target TargetProfile

	// Defines are -D NAME[=VALUE] entries from the CLI/config, threaded
	// into both the CNX preprocessor-equivalent for #if-guarded CNX code
	// and into real preprocessor invocations for header scanning.
	Defines []string

	// IncludeDirs are -I search directories, consulted in order after the
	// including file's own directory (spec.md §4.1's search-order rule).
	IncludeDirs []string

	// PreprocessorCommand overrides the C preprocessor binary invoked by
	// stage 2 for headers with non-trivial conditional compilation.
	PreprocessorCommand string

	// ParseOnly runs stages 1-4 and stops before codegen, the
	// "--parse-only" supplemented feature from SPEC_FULL.md: useful for a
	// fast syntax/symbol check in an editor integration.
	ParseOnly bool

	// UseCache toggles the content-addressed header-symbol cache.
	UseCache bool
	CacheDir string

	// WriteToDisk toggles whether Load() writes generated files itself
	// (true for the CLI) or merely returns them in memory (false for
	// embedders, e.g. an editor plugin calling Load per keystroke).
	WriteToDisk bool

	// OutputDir overrides the directory generated .c/.h files are written
	// to; empty means "next to the source file."
	OutputDir string

	// CXXRequiredOverride forces C++ output regardless of the monotone
	// flag's own inference, for callers who already know their toolchain
	// is C++-only.
	CXXRequiredOverride bool
}

// configFile is the on-disk JSON shape for a project config file (spec.md
// §6's "configuration file" interface), merged under CLI flags per the
// same origin-precedence discipline kati's variables use.
type configFile struct {
	Target               string   `json:"target"`
	Defines              []string `json:"defines"`
	IncludeDirs          []string `json:"include_dirs"`
	PreprocessorCommand  string   `json:"preprocessor_command"`
	UseCache             bool     `json:"use_cache"`
	CacheDir             string   `json:"cache_dir"`
	OutputDir            string   `json:"output_dir"`
}

const configFileName = "cnext.config.json"

// defaultConfig returns the bootstrap configuration every job starts from,
// generalizing kati's bootstrapMakefile (bootstrap.go): a small set of
// built-in defaults (here, "generic target, no cache, write to disk") that
// exist only so every field has a deterministic zero state before a config
// file or CLI flags are layered on.
func defaultConfig() *Config {
	return &Config{
		Target:      TargetGeneric,
		UseCache:    false,
		CacheDir:    ".cnext-cache",
		WriteToDisk: true,
	}
}

// ResolveConfig builds the effective Config for req: defaults, then an
// optional req.Config override block, then a discovered cnext.config.json file
// layered underneath it (a caller-supplied Config always wins, matching
// command-line-beats-file precedence).
func ResolveConfig(req PipelineRequest) (*Config, error) {
	cfg := defaultConfig()

	if dir := configSearchDir(req); dir != "" {
		if found, err := findConfigFile(dir); err == nil && found != "" {
			if err := mergeConfigFile(cfg, found); err != nil {
				return nil, err
			}
		}
	}

	if req.Config != nil {
		mergeConfigOverride(cfg, req.Config)
	}
	if len(req.IncludeDirs) > 0 {
		cfg.IncludeDirs = append(cfg.IncludeDirs, req.IncludeDirs...)
	}
	return cfg, nil
}

func configSearchDir(req PipelineRequest) string {
	if req.WorkingDir != "" {
		return req.WorkingDir
	}
	if req.Path == "" {
		return ""
	}
	if info, err := os.Stat(req.Path); err == nil && info.IsDir() {
		return req.Path
	}
	return filepath.Dir(req.Path)
}

// findConfigFile walks upward from dir looking for cnext.config.json, the same
// "search current directory, then parent, then its parent" convention
// common to the pack's config-discovery idioms.
func findConfigFile(dir string) (string, error) {
	cur := dir
	for {
		candidate := filepath.Join(cur, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", os.ErrNotExist
		}
		cur = parent
	}
}

func mergeConfigFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var cf configFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return err
	}
	if cf.Target != "" {
		cfg.Target = TargetProfile(cf.Target)
	}
	cfg.Defines = append(cfg.Defines, cf.Defines...)
	cfg.IncludeDirs = append(cfg.IncludeDirs, cf.IncludeDirs...)
	if cf.PreprocessorCommand != "" {
		cfg.PreprocessorCommand = cf.PreprocessorCommand
	}
	if cf.UseCache {
		cfg.UseCache = true
	}
	if cf.CacheDir != "" {
		cfg.CacheDir = cf.CacheDir
	}
	if cf.OutputDir != "" {
		cfg.OutputDir = cf.OutputDir
	}
	return nil
}

func mergeConfigOverride(cfg *Config, override *Config) {
	if override.Target != "" {
		cfg.Target = override.Target
	}
	if len(override.Defines) > 0 {
		cfg.Defines = append(cfg.Defines, override.Defines...)
	}
	if len(override.IncludeDirs) > 0 {
		cfg.IncludeDirs = append(cfg.IncludeDirs, override.IncludeDirs...)
	}
	if override.PreprocessorCommand != "" {
		cfg.PreprocessorCommand = override.PreprocessorCommand
	}
	cfg.ParseOnly = cfg.ParseOnly || override.ParseOnly
	cfg.UseCache = cfg.UseCache || override.UseCache
	if override.CacheDir != "" {
		cfg.CacheDir = override.CacheDir
	}
	cfg.WriteToDisk = override.WriteToDisk
	if override.OutputDir != "" {
		cfg.OutputDir = override.OutputDir
	}
	cfg.CXXRequiredOverride = cfg.CXXRequiredOverride || override.CXXRequiredOverride
}

// ParseDefine splits a "-D NAME[=VALUE]" argument the way spec.md §6
// describes, defaulting VALUE to "1" when omitted (the conventional C
// preprocessor default).
func ParseDefine(arg string) (name, value string) {
	if i := strings.IndexByte(arg, '='); i >= 0 {
		return arg[:i], arg[i+1:]
	}
	return arg, "1"
}

// OutputPaths decides the generated-file paths for f under cfg, switching
// extension on whether C++ was required anywhere in the job (spec.md §4.7:
// the whole job commits to a single output language once any file forces
// the flag).
func OutputPaths(cfg *Config, f *SourceFile, cxxRequired bool) (sourcePath, headerPath string) {
	srcExt, hdrExt := ".c", ".h"
	if cxxRequired {
		srcExt, hdrExt = ".cpp", ".hpp"
	}
	base := strings.TrimSuffix(f.Path, filepath.Ext(f.Path))
	dir := filepath.Dir(base)
	name := filepath.Base(base)
	if cfg != nil && cfg.OutputDir != "" {
		dir = cfg.OutputDir
	}
	return filepath.Join(dir, name+srcExt), filepath.Join(dir, name+hdrExt)
}

// HelpersHeaderPath decides where the single shared cnx_helpers.h (spec.md
// §4.6(4)'s overflow/atomic/critical-section support header) is written:
// the same directory OutputPaths would use for anchor's own header, so a
// multi-file project still gets exactly one copy regardless of which file
// first needed a helper.
func HelpersHeaderPath(cfg *Config, anchor *SourceFile) string {
	dir := filepath.Dir(anchor.Path)
	if cfg != nil && cfg.OutputDir != "" {
		dir = cfg.OutputDir
	}
	return filepath.Join(dir, "cnx_helpers.h")
}
