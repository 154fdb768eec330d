// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bench

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun"
	"github.com/cpmech/lyodry/scenario"
)

func demoScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Name: "demo",
		Vial: scenario.Vial{Av: 3.80, Ap: 3.14, Vfill: 2.0},
		Product: scenario.Product{
			R0: 1.4, A1: 16.0, A2: 0.0, TPrCrit: -5.0, CSolid: 0.05,
		},
		HT:    scenario.HT{KC: 2.75e-4, KP: 8.93e-4, KD: 0.46},
		EqCap: scenario.EqCap{A: -0.182, B: 11.7},
		NVial: 398,
		Mode:  scenario.ModeTsh,
		Controls: scenario.Controls{
			Tsh: scenario.ControlBounds{Min: -45, Max: 120, RampMax: 40},
			Pch: scenario.ControlBounds{Min: 0.15, Max: 0.15, Ref: &fun.Cte{C: 0.15}},
		},
	}
}

func Test_expand_grid_is_cartesian_product(tst *testing.T) {
	chk.PrintTitle("expand_grid_is_cartesian_product")
	cfg := Config{
		Task:     TaskTsh,
		Scenario: "demo",
		Vary: []VarySpec{
			{Path: "product.r0", Values: []float64{1.0, 1.4}},
			{Path: "n_vial", Values: []float64{100, 398, 500}},
		},
	}
	cases := Expand(cfg)
	if len(cases) != 6 {
		tst.Fatalf("expected 6 cases (2x3), got %d", len(cases))
	}
	for _, cs := range cases {
		if _, ok := cs.Grid["product.r0"]; !ok {
			tst.Errorf("case missing product.r0 grid entry")
		}
		if _, ok := cs.Grid["n_vial"]; !ok {
			tst.Errorf("case missing n_vial grid entry")
		}
	}
}

func Test_expand_no_vary_yields_single_case(tst *testing.T) {
	chk.PrintTitle("expand_no_vary_yields_single_case")
	cfg := Config{Task: TaskTsh, Scenario: "demo"}
	cases := Expand(cfg)
	if len(cases) != 1 {
		tst.Fatalf("expected exactly 1 case, got %d", len(cases))
	}
	if len(cases[0].Grid) != 0 {
		tst.Errorf("expected empty grid, got %v", cases[0].Grid)
	}
}

func Test_in_process_runner_produces_record(tst *testing.T) {
	chk.PrintTitle("in_process_runner_produces_record")
	reg := Registry{"demo": demoScenario()}
	run := InProcessCaseRunner(reg, nil, "test-rev")

	cfg := Config{
		Task:         TaskTsh,
		Scenario:     "demo",
		Methods:      []Method{MethodFiniteDifferences},
		NElements:    3,
		NCollocation: 3,
		EffectiveNFE: true,
	}
	cases := Expand(cfg)
	rec, err := run(context.Background(), cases[0])
	if err != nil {
		tst.Fatalf("in-process run failed: %v", err)
	}
	if rec.Version != 2 {
		tst.Errorf("expected schema version 2, got %d", rec.Version)
	}
	if rec.Task != "Tsh" {
		tst.Errorf("expected task Tsh, got %s", rec.Task)
	}
	if rec.Pyomo == nil {
		tst.Fatalf("expected a populated pyomo (simultaneous) block")
	}
	if rec.Pyomo.Discretization == nil || rec.Pyomo.Discretization.Method != string(scenario.MethodBackwardEuler) {
		tst.Errorf("expected backward_euler discretization block")
	}
	if len(rec.Pyomo.Trajectory) == 0 {
		tst.Errorf("expected a non-empty trajectory")
	}
	for _, row := range rec.Pyomo.Trajectory {
		if len(row) != 7 {
			tst.Errorf("trajectory row must have 7 columns, got %d", len(row))
		}
	}
}

func Test_in_process_runner_rejects_unknown_scenario(tst *testing.T) {
	chk.PrintTitle("in_process_runner_rejects_unknown_scenario")
	run := InProcessCaseRunner(Registry{}, nil, "test-rev")
	cfg := Config{Task: TaskTsh, Scenario: "does-not-exist", Methods: []Method{MethodFiniteDifferences}}
	_, err := run(context.Background(), Expand(cfg)[0])
	if err == nil {
		tst.Fatalf("expected an InvalidScenario error for an unregistered scenario name")
	}
}

func Test_run_grid_persists_newline_delimited_records_and_dedupes(tst *testing.T) {
	chk.PrintTitle("run_grid_persists_newline_delimited_records_and_dedupes")
	reg := Registry{"demo": demoScenario()}
	run := InProcessCaseRunner(reg, nil, "test-rev")

	var out bytes.Buffer
	runner := NewRunner(run, &out, nil)

	cfg := Config{
		Task:         TaskTsh,
		Scenario:     "demo",
		Methods:      []Method{MethodFiniteDifferences},
		NElements:    3,
		NCollocation: 3,
		EffectiveNFE: true,
	}

	if code := runner.RunGrid(context.Background(), cfg); code != 0 {
		tst.Fatalf("expected exit code 0, got %d", code)
	}
	firstLen := out.Len()
	if firstLen == 0 {
		tst.Fatalf("expected at least one persisted record")
	}

	lines := bytes.Count(out.Bytes(), []byte("\n"))
	if lines != 1 {
		tst.Fatalf("expected exactly 1 newline-delimited record, got %d", lines)
	}

	var rec Record
	firstLine := bytes.SplitN(out.Bytes(), []byte("\n"), 2)[0]
	if err := json.Unmarshal(firstLine, &rec); err != nil {
		tst.Fatalf("persisted record did not round-trip through JSON: %v", err)
	}
	if rec.Hash.Inputs == "" || rec.Hash.Record == "" {
		tst.Errorf("expected both hash fields to be populated")
	}

	// Re-running the same grid without Force must skip the already-seen
	// case.
	if code := runner.RunGrid(context.Background(), cfg); code != 0 {
		tst.Fatalf("expected exit code 0 on rerun, got %d", code)
	}
	if out.Len() != firstLen {
		tst.Errorf("expected no new bytes written on a deduped rerun")
	}
}

func Test_run_grid_surfaces_invalid_scenario_as_exit_code_2(tst *testing.T) {
	chk.PrintTitle("run_grid_surfaces_invalid_scenario_as_exit_code_2")
	sc := demoScenario()
	sc.Controls.Pch.Min, sc.Controls.Pch.Max = 0.3, 0.2 // inverted bounds
	sc.Mode = scenario.ModeBoth
	reg := Registry{"bad-bounds": sc}
	run := InProcessCaseRunner(reg, nil, "test-rev")

	var out bytes.Buffer
	runner := NewRunner(run, &out, nil)
	cfg := Config{
		Task:         TaskBoth,
		Scenario:     "bad-bounds",
		Methods:      []Method{MethodFiniteDifferences},
		NElements:    3,
		NCollocation: 3,
	}
	if code := runner.RunGrid(context.Background(), cfg); code != 2 {
		tst.Errorf("expected exit code 2 for an invalid scenario, got %d", code)
	}
}

// A failing grid combination must not abort the sweep: the remaining
// combinations still run and every case leaves a persisted record.
func Test_run_grid_continues_past_invalid_combination(tst *testing.T) {
	chk.PrintTitle("run_grid_continues_past_invalid_combination")
	reg := Registry{"demo": demoScenario()}
	run := InProcessCaseRunner(reg, nil, "test-rev")

	var out bytes.Buffer
	runner := NewRunner(run, &out, nil)
	cfg := Config{
		Task:         TaskTsh,
		Scenario:     "demo",
		Methods:      []Method{MethodFiniteDifferences},
		NElements:    3,
		NCollocation: 3,
		EffectiveNFE: true,
		Vary:         []VarySpec{{Path: "product.r0", Values: []float64{-1.0, 1.4}}},
	}
	if code := runner.RunGrid(context.Background(), cfg); code != 2 {
		tst.Fatalf("expected exit code 2 from the invalid combination, got %d", code)
	}

	lines := bytes.Split(bytes.TrimRight(out.Bytes(), "\n"), []byte("\n"))
	if len(lines) != 2 {
		tst.Fatalf("expected 2 persisted records (one per combination), got %d", len(lines))
	}
	var failed, solved int
	for _, line := range lines {
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			tst.Fatalf("record did not round-trip through JSON: %v", err)
		}
		if rec.Failed {
			failed++
			if rec.Error == nil || rec.Error.Type != "InvalidScenario" {
				tst.Errorf("failure record must carry an InvalidScenario error block")
			}
		} else {
			solved++
			if rec.Pyomo == nil {
				tst.Errorf("success record must carry a pyomo (simultaneous) block")
			}
		}
	}
	if failed != 1 || solved != 1 {
		tst.Errorf("expected 1 failed + 1 solved record, got failed=%d solved=%d", failed, solved)
	}
}

func Test_option_fingerprint_does_not_drift_across_grid_cases(tst *testing.T) {
	chk.PrintTitle("option_fingerprint_does_not_drift_across_grid_cases")
	reg := Registry{"demo": demoScenario()}
	run := InProcessCaseRunner(reg, nil, "test-rev")
	cfg := Config{
		Task:         TaskTsh,
		Scenario:     "demo",
		Methods:      []Method{MethodFiniteDifferences},
		NElements:    3,
		NCollocation: 3,
		Vary:         []VarySpec{{Path: "n_vial", Values: []float64{200, 398}}},
	}
	var fingerprints []string
	for _, cs := range Expand(cfg) {
		rec, err := run(context.Background(), cs)
		if err != nil {
			tst.Fatalf("run failed: %v", err)
		}
		diag, ok := rec.Pyomo.Diagnostics["option_fingerprint"].(string)
		if !ok || diag == "" {
			tst.Fatalf("expected a string option_fingerprint in diagnostics block")
		}
		fingerprints = append(fingerprints, diag)
	}
	for i := 1; i < len(fingerprints); i++ {
		if fingerprints[i] != fingerprints[0] {
			tst.Errorf("option fingerprint drifted across grid cases: %q vs %q", fingerprints[0], fingerprints[i])
		}
	}
}
