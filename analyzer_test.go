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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func diagCodes(fr FileResult) []Code {
	var codes []Code
	for _, d := range fr.Diagnostics {
		codes = append(codes, d.Code)
	}
	return codes
}

// TestBooleanConditionAnalyzerFlagsNonBooleanCondition covers spec.md §8
// Scenario A: CNX's `=` is always equality, so the risk a C compiler would
// catch as "assignment in condition" instead shows up here as a condition
// that reads neither as a comparison nor a known bool.
func TestBooleanConditionAnalyzerFlagsNonBooleanCondition(t *testing.T) {
	dir := t.TempDir()
	src := "i32 clamp(i32 level) {\n" +
		"  if (level) {\n" +
		"    return 1;\n" +
		"  }\n" +
		"  return 0;\n" +
		"}\n"
	path := filepath.Join(dir, "clamp.cnx")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	result, err := Load(PipelineRequest{Path: path})
	require.NoError(t, err)
	require.Contains(t, diagCodes(result.Files[0]), ECodeNonBooleanCondition)
}

func TestBooleanConditionAnalyzerAllowsComparison(t *testing.T) {
	dir := t.TempDir()
	src := "i32 clamp(i32 level) {\n" +
		"  if (level > 0) {\n" +
		"    return 1;\n" +
		"  }\n" +
		"  return 0;\n" +
		"}\n"
	path := filepath.Join(dir, "clamp.cnx")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	result, err := Load(PipelineRequest{Path: path})
	require.NoError(t, err)
	require.NotContains(t, diagCodes(result.Files[0]), ECodeNonBooleanCondition)
}

// TestSwitchExhaustivenessAnalyzerScenarioF mirrors spec.md §8 Scenario F's
// worked example exactly: default(1) passes with one enum variant missing,
// default(0) fails under the identical condition.
func TestSwitchExhaustivenessAnalyzerScenarioF(t *testing.T) {
	header := "enum Mode {\n  Idle,\n  Running,\n  Fault,\n}\n\n"

	passSrc := header + "void handle(Mode m) {\n" +
		"  switch (m) {\n" +
		"  case Idle {\n" +
		"    return;\n" +
		"  }\n" +
		"  case Running {\n" +
		"    return;\n" +
		"  }\n" +
		"  default(1) {\n" +
		"    return;\n" +
		"  }\n" +
		"  }\n" +
		"}\n"

	failSrc := header + "void handle(Mode m) {\n" +
		"  switch (m) {\n" +
		"  case Idle {\n" +
		"    return;\n" +
		"  }\n" +
		"  case Running {\n" +
		"    return;\n" +
		"  }\n" +
		"  default(0) {\n" +
		"    return;\n" +
		"  }\n" +
		"  }\n" +
		"}\n"

	dir := t.TempDir()
	passPath := filepath.Join(dir, "pass.cnx")
	require.NoError(t, os.WriteFile(passPath, []byte(passSrc), 0o644))
	passResult, err := Load(PipelineRequest{Path: passPath})
	require.NoError(t, err)
	require.NotContains(t, diagCodes(passResult.Files[0]), ECodeSwitchNonExhaustive, "default(1) covers exactly one missing variant")

	failDir := t.TempDir()
	failPath := filepath.Join(failDir, "fail.cnx")
	require.NoError(t, os.WriteFile(failPath, []byte(failSrc), 0o644))
	failResult, err := Load(PipelineRequest{Path: failPath})
	require.NoError(t, err)
	require.Contains(t, diagCodes(failResult.Files[0]), ECodeSwitchNonExhaustive, "default(0) does not cover the one missing variant")
}

// TestCriticalReturnAnalyzerFlagsEarlyReturn covers spec.md §4.6's
// "Critical section" analyzer row: a return inside critical{} would skip
// CNX_CRITICAL_EXIT(), so it's flagged before codegen ever lowers it.
func TestCriticalReturnAnalyzerFlagsEarlyReturn(t *testing.T) {
	dir := t.TempDir()
	src := "i32 readFlag(i32 flag) {\n" +
		"  critical {\n" +
		"    return flag;\n" +
		"  }\n" +
		"  return 0;\n" +
		"}\n"
	path := filepath.Join(dir, "crit.cnx")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	result, err := Load(PipelineRequest{Path: path})
	require.NoError(t, err)
	require.Contains(t, diagCodes(result.Files[0]), ECodeReturnInCritical)
}

// TestParamNamingAnalyzerFlagsSelfPrefixedParam covers spec.md §4.6's
// "Parameter naming" row.
func TestParamNamingAnalyzerFlagsSelfPrefixedParam(t *testing.T) {
	dir := t.TempDir()
	src := "void setSpeed(i32 setSpeedValue) {\n}\n"
	path := filepath.Join(dir, "naming.cnx")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	result, err := Load(PipelineRequest{Path: path})
	require.NoError(t, err)
	require.Contains(t, diagCodes(result.Files[0]), ECodeParamShadowsFunc)
}

// TestCallOrderAnalyzerFlagsForwardCall covers spec.md §4.6's
// "Function-call ordering" row: calling a sibling function declared later
// in the same file.
func TestCallOrderAnalyzerFlagsForwardCall(t *testing.T) {
	dir := t.TempDir()
	src := "void first() {\n" +
		"  second();\n" +
		"}\n" +
		"void second() {\n" +
		"}\n"
	path := filepath.Join(dir, "order.cnx")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	result, err := Load(PipelineRequest{Path: path})
	require.NoError(t, err)
	require.Contains(t, diagCodes(result.Files[0]), ECodeCallOrderViolation)
}
