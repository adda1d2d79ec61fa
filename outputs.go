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
	"path/filepath"

	"github.com/golang/glog"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// WriteOutputs writes every successfully-generated file to disk, all or
// nothing: spec.md §7 requires a job that produced any error-severity
// diagnostic to leave the filesystem untouched, so Load only calls this
// once the whole result has already been confirmed successful. Grounded on
// kati's NinjaGenerator.generateNinja (ninja.go), which likewise opens one
// output file per generated artifact and writes it in one pass.
func WriteOutputs(cfg *Config, results []*FileResult, helpersPath, helpersSource string) ([]string, error) {
	var written []string
	for _, fr := range results {
		if !fr.Succeeded {
			continue
		}
		if err := writeRegeneratedFile(fr.OutputPath, fr.Source); err != nil {
			return written, err
		}
		written = append(written, fr.OutputPath)

		if err := writeRegeneratedFile(fr.HeaderPath, fr.Header); err != nil {
			return written, err
		}
		written = append(written, fr.HeaderPath)
		glog.V(1).Infof("wrote %s, %s", fr.OutputPath, fr.HeaderPath)
	}

	if helpersPath != "" {
		if err := writeRegeneratedFile(helpersPath, helpersSource); err != nil {
			return written, err
		}
		written = append(written, helpersPath)
		glog.V(1).Infof("wrote %s", helpersPath)
	}
	return written, nil
}

// writeRegeneratedFile writes content to path, first logging a line-level
// diff preview against whatever was there before (if anything), so a
// developer watching -v=2 output can see exactly what a rerun changed
// instead of just a timestamp bump. Grounded on kati's own preference for
// incremental, diff-visible regeneration over silent full rewrites
// (ninja.go's goal of only touching build.ninja when its content actually
// changed); diffmatchpatch is the pack's only diff library, so it plays
// the role kati leaves to Ninja's own restat/mtime comparison.
func writeRegeneratedFile(path, content string) error {
	if glog.V(2) {
		if prior, err := os.ReadFile(path); err == nil && string(prior) != content {
			dmp := diffmatchpatch.New()
			diffs := dmp.DiffMain(string(prior), content, false)
			glog.Infof("regenerating %s:\n%s", path, dmp.DiffPrettyText(diffs))
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
