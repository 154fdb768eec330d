// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stage

import (
	"context"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun"
	"github.com/cpmech/lyodry/dae"
	"github.com/cpmech/lyodry/lyoerr"
	"github.com/cpmech/lyodry/nlp"
	"github.com/cpmech/lyodry/ramp"
	"github.com/cpmech/lyodry/scenario"
)

func tshOnlyModel(tst *testing.T) *dae.Model {
	sc := &scenario.Scenario{
		Name: "tsh-small",
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
	mesh := scenario.MeshSpec{Method: scenario.MethodBackwardEuler, NElements: 3}
	m, err := dae.Build(sc, mesh)
	if err != nil {
		tst.Fatalf("Build failed: %v", err)
	}
	if err := ramp.AttachRamp(m); err != nil {
		tst.Fatalf("AttachRamp failed: %v", err)
	}
	m.SetInitial(m.TfIdx, 8.0)
	for _, pv := range m.Points {
		m.SetInitial(pv.Tsh, -10)
		m.SetInitial(pv.Tsub, -8)
		m.SetInitial(pv.Tbot, -6)
		m.SetInitial(pv.Lck, 0.1*pv.Tau)
	}
	return m
}

// Test_run_executes_all_four_stages_in_order exercises the F->T->C->O
// sequence end to end (a single-control scenario, so Stage C performs a
// single release-and-solve rather than the joint two-step).
func Test_run_executes_all_four_stages_in_order(tst *testing.T) {
	chk.PrintTitle("run_executes_all_four_stages_in_order")
	m := tshOnlyModel(tst)
	d := NewDriver(m, nil)

	opts := nlp.DefaultOptions()
	opts.MaxIter = 200
	res, err := d.Run(context.Background(), nil, Options{NLP: opts})
	if err != nil {
		tst.Fatalf("Run returned an error: %v", err)
	}

	wantStages := []lyoerr.Stage{lyoerr.StageF, lyoerr.StageT, lyoerr.StageC, lyoerr.StageO}
	if len(res.Stages) != len(wantStages) {
		tst.Fatalf("expected %d stage results, got %d", len(wantStages), len(res.Stages))
	}
	for i, want := range wantStages {
		if res.Stages[i].Stage != want {
			tst.Errorf("stage %d: expected %s, got %s", i, want, res.Stages[i].Stage)
		}
	}
	if len(res.FinalX) != m.NVariables() {
		tst.Errorf("FinalX length %d != NVariables %d", len(res.FinalX), m.NVariables())
	}
}

// Test_run_joint_mode_releases_tsh_before_pch checks that a joint-mode run
// produces two separate Stage-C entries (Tsh release, then Pch release)
// instead of a single simultaneous release.
func Test_run_joint_mode_releases_tsh_before_pch(tst *testing.T) {
	chk.PrintTitle("run_joint_mode_releases_tsh_before_pch")
	sc := &scenario.Scenario{
		Name: "joint-small",
		Vial: scenario.Vial{Av: 3.80, Ap: 3.14, Vfill: 2.0},
		Product: scenario.Product{
			R0: 1.4, A1: 16.0, A2: 0.0, TPrCrit: -5.0, CSolid: 0.05,
		},
		HT:    scenario.HT{KC: 2.75e-4, KP: 8.93e-4, KD: 0.46},
		EqCap: scenario.EqCap{A: -0.182, B: 11.7},
		NVial: 398,
		Mode:  scenario.ModeBoth,
		Controls: scenario.Controls{
			Tsh: scenario.ControlBounds{Min: -45, Max: 120, RampMax: 40},
			Pch: scenario.ControlBounds{Min: 0.06, Max: 0.2, RampMax: 0.05},
		},
	}
	mesh := scenario.MeshSpec{Method: scenario.MethodBackwardEuler, NElements: 3}
	m, err := dae.Build(sc, mesh)
	if err != nil {
		tst.Fatalf("Build failed: %v", err)
	}
	if err := ramp.AttachRamp(m); err != nil {
		tst.Fatalf("AttachRamp failed: %v", err)
	}
	m.SetInitial(m.TfIdx, 8.0)
	for _, pv := range m.Points {
		m.SetInitial(pv.Tsh, -10)
		m.SetInitial(pv.Pch, 0.15)
		m.SetInitial(pv.Tsub, -8)
		m.SetInitial(pv.Tbot, -6)
		m.SetInitial(pv.Lck, 0.1*pv.Tau)
	}

	d := NewDriver(m, nil)
	opts := nlp.DefaultOptions()
	opts.MaxIter = 200
	res, err := d.Run(context.Background(), nil, Options{NLP: opts, JointMaxIter: 300})
	if err != nil {
		tst.Fatalf("Run returned an error: %v", err)
	}
	// F, T, C(Tsh), C(Pch), O: five entries for joint mode.
	if len(res.Stages) != 5 {
		tst.Fatalf("expected 5 stage results in joint mode, got %d", len(res.Stages))
	}
	if res.Stages[2].Stage != lyoerr.StageC || res.Stages[3].Stage != lyoerr.StageC {
		tst.Errorf("expected two consecutive Stage-C entries, got %s, %s", res.Stages[2].Stage, res.Stages[3].Stage)
	}
}
