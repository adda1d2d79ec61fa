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

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jlaustill/cnext"
)

var (
	includeFlag   string
	defineFlag    string
	targetFlag    string
	parseOnlyFlag bool
	useCacheFlag  bool
	cacheDirFlag  string
	outputDirFlag string
	queryFlag     string
)

func init() {
	flag.StringVar(&includeFlag, "I", "", "comma-separated include search directories")
	flag.StringVar(&defineFlag, "D", "", "comma-separated NAME[=VALUE] preprocessor defines")
	flag.StringVar(&targetFlag, "target", "generic", "target profile (generic, avr, arm-cortex-m)")
	flag.BoolVar(&parseOnlyFlag, "parse-only", false, "run discovery and symbol collection only, skip codegen")
	flag.BoolVar(&useCacheFlag, "use_cache", false, "use the header-symbol cache")
	flag.StringVar(&cacheDirFlag, "cache_dir", ".cnext-cache", "cache directory")
	flag.StringVar(&outputDirFlag, "o", "", "output directory for generated files (default: next to source)")
	flag.StringVar(&queryFlag, "query", "", "look up a mangled symbol name and print its declaration site, then exit")
}

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: cnext [flags] <file-or-directory>")
		os.Exit(2)
	}

	var includeDirs []string
	if includeFlag != "" {
		includeDirs = strings.Split(includeFlag, ",")
	}
	var defines []string
	if defineFlag != "" {
		defines = strings.Split(defineFlag, ",")
	}

	req := cnext.PipelineRequest{
		Path:        args[0],
		IncludeDirs: includeDirs,
		Config: &cnext.Config{
			Target:      cnext.TargetProfile(targetFlag),
			Defines:     defines,
			ParseOnly:   parseOnlyFlag,
			UseCache:    useCacheFlag,
			CacheDir:    cacheDirFlag,
			OutputDir:   outputDirFlag,
			WriteToDisk: true,
		},
	}

	result, err := cnext.Load(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cnext: %v\n", err)
		os.Exit(2)
	}

	if queryFlag != "" {
		sym, ok := result.Query(queryFlag)
		if !ok {
			fmt.Fprintf(os.Stderr, "cnext: no symbol named %q\n", queryFlag)
			os.Exit(1)
		}
		base := sym.Base()
		fmt.Printf("%s: declared at %s:%d (%s)\n", queryFlag, base.SourceFile, base.SourceLine, base.SourceLanguage)
		return
	}

	for _, w := range result.Warnings {
		fmt.Fprintln(os.Stderr, w.String())
	}
	for _, e := range result.Errors {
		fmt.Fprintln(os.Stderr, e.String())
	}
	for _, fr := range result.Files {
		for _, d := range fr.Diagnostics {
			fmt.Fprintln(os.Stderr, d.String())
		}
	}

	if !result.Succeeded() {
		os.Exit(1)
	}
	for _, p := range result.WrittenPaths {
		fmt.Println(p)
	}
}
