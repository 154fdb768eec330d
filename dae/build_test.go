// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dae

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun"
	"github.com/cpmech/lyodry/scenario"
)

// tshOnlyScenario builds a complete Tsh-only scenario with a prescribed
// constant chamber pressure.
func tshOnlyScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Name: "tsh-only",
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

func collocMesh() scenario.MeshSpec {
	return scenario.MeshSpec{
		Method: scenario.MethodCollocation, NElements: 24, NCollocation: 3, EffectiveNFE: true,
	}
}

func Test_build_tsh_only_structure(tst *testing.T) {
	chk.PrintTitle("build_tsh_only_structure")
	m, err := Build(tshOnlyScenario(), collocMesh())
	if err != nil {
		tst.Fatalf("Build failed: %v", err)
	}
	if len(m.Points) != m.Mesh.TotalMeshPoints() {
		tst.Errorf("Points length mismatch with mesh")
	}
	// 8 algebraic/differential fields + Tsh + Pch per mesh point, plus Tf.
	wantVars := 1 + len(m.Points)*10
	if m.NVariables() != wantVars {
		tst.Errorf("NVariables = %d, want %d", m.NVariables(), wantVars)
	}
	if m.NConstraints() == 0 {
		tst.Errorf("expected nonzero constraints")
	}
	// Pch is prescribed here: every Pch variable must be fixed.
	for _, p := range m.Points {
		if !m.Variables[p.Pch].Fixed {
			tst.Errorf("Pch must be fixed (prescribed) in Tsh-mode")
		}
		if m.Variables[p.Tsh].Fixed {
			tst.Errorf("Tsh must be released (free) in Tsh-mode")
		}
	}
}

func Test_build_invalid_scenario_no_solver(tst *testing.T) {
	chk.PrintTitle("build_invalid_scenario_no_solver")
	sc := tshOnlyScenario()
	sc.Controls.Pch.Min, sc.Controls.Pch.Max = 0.3, 0.2 // inverted bounds
	sc.Mode = scenario.ModeBoth
	_, err := Build(sc, collocMesh())
	if err == nil {
		tst.Fatalf("expected InvalidScenario, got nil")
	}
}

func Test_build_completion_constraint_present(tst *testing.T) {
	chk.PrintTitle("build_completion_constraint_present")
	m, err := Build(tshOnlyScenario(), collocMesh())
	if err != nil {
		tst.Fatalf("Build failed: %v", err)
	}
	found := false
	for _, c := range m.Constraints {
		if c.Family == FamCompletion {
			found = true
		}
	}
	if !found {
		tst.Errorf("expected a completion constraint")
	}
}
