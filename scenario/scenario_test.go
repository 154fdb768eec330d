// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scenario

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun"
	"github.com/cpmech/lyodry/lyoerr"
)

// tshOnlyScenario builds a complete Tsh-only scenario with a prescribed
// constant chamber pressure.
func tshOnlyScenario() Scenario {
	return Scenario{
		Name: "tsh-only",
		Vial: Vial{Av: 3.80, Ap: 3.14, Vfill: 2.0},
		Product: Product{
			R0: 1.4, A1: 16.0, A2: 0.0,
			TPrCrit: -5.0, CSolid: 0.05,
		},
		HT:    HT{KC: 2.75e-4, KP: 8.93e-4, KD: 0.46},
		EqCap: EqCap{A: -0.182, B: 11.7},
		NVial: 398,
		Mode:  ModeTsh,
		Controls: Controls{
			Tsh: ControlBounds{Min: -45, Max: 120, RampMax: 40},
			Pch: ControlBounds{Ref: &fun.Cte{C: 0.15}},
		},
	}
}

func Test_validate_accepts_complete_scenario(tst *testing.T) {
	chk.PrintTitle("validate_accepts_complete_scenario")
	sc := tshOnlyScenario()
	mesh := MeshSpec{Method: MethodCollocation, NElements: 24, NCollocation: 3, EffectiveNFE: true}
	if err := sc.Validate(mesh); err != nil {
		tst.Errorf("expected valid scenario, got error: %v", err)
	}
}

// Pch_min > Pch_max must be rejected before any solver is invoked.
func Test_validate_rejects_inverted_pch_bounds(tst *testing.T) {
	chk.PrintTitle("validate_rejects_inverted_pch_bounds")
	sc := tshOnlyScenario()
	sc.Mode = ModePch
	sc.Controls.Pch = ControlBounds{Min: 0.5, Max: 0.2, RampMax: 0.05}
	sc.Controls.Tsh = ControlBounds{Ref: &fun.Cte{C: -10}}
	mesh := MeshSpec{Method: MethodCollocation, NElements: 24, NCollocation: 3}
	err := sc.Validate(mesh)
	if err == nil {
		tst.Errorf("expected InvalidScenario, got nil")
		return
	}
	if _, ok := err.(*lyoerr.InvalidScenario); !ok {
		tst.Errorf("expected *lyoerr.InvalidScenario, got %T", err)
	}
}

func Test_validate_collects_all_violations(tst *testing.T) {
	chk.PrintTitle("validate_collects_all_violations")
	sc := Scenario{Mode: "nonsense", NVial: 0}
	mesh := MeshSpec{Method: "bogus"}
	err := sc.Validate(mesh)
	ise, ok := err.(*lyoerr.InvalidScenario)
	if !ok {
		tst.Fatalf("expected *lyoerr.InvalidScenario, got %T", err)
	}
	if len(ise.Fields) < 5 {
		tst.Errorf("expected several distinct violations collected at once, got %d: %v", len(ise.Fields), ise.Fields)
	}
}

func Test_apply_overrides(tst *testing.T) {
	chk.PrintTitle("apply_overrides")
	sc := tshOnlyScenario()
	sc2, err := ApplyOverrides(sc, "controls.tsh.ramp_max", 60)
	if err != nil {
		tst.Errorf("unexpected error: %v", err)
	}
	if sc2.Controls.Tsh.RampMax != 60 {
		tst.Errorf("override did not apply: got %.4g", sc2.Controls.Tsh.RampMax)
	}
	if _, err := ApplyOverrides(sc, "controls.tsh.nonexistent", 1); err == nil {
		tst.Errorf("expected error for unknown path")
	}
}
