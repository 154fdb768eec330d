// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package warmstart

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun"
	"github.com/cpmech/lyodry/baseline"
	"github.com/cpmech/lyodry/dae"
	"github.com/cpmech/lyodry/scenario"
)

func buildTshOnly() *dae.Model {
	sc := &scenario.Scenario{
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
	mesh := scenario.MeshSpec{Method: scenario.MethodCollocation, NElements: 12, NCollocation: 3, EffectiveNFE: true}
	m, err := dae.Build(sc, mesh)
	if err != nil {
		panic(err)
	}
	return m
}

func fakeRef() baseline.Trajectory {
	pts := make([]baseline.TrajectoryPoint, 0, 20)
	tFinal := 10.0
	for i := 0; i <= 20; i++ {
		frac := float64(i) / 20
		pts = append(pts, baseline.TrajectoryPoint{
			T: frac * tFinal, Tsub: -10 + 3*frac, Tbot: -8 + 3*frac,
			Tsh: -20 + 30*frac, Pch: 150, Flux: 1.0, FracDried: frac,
		})
	}
	return baseline.Trajectory{Points: pts, PchUnit: baseline.PressureMTorr}
}

func Test_adapt_writes_every_mesh_point(tst *testing.T) {
	chk.PrintTitle("adapt_writes_every_mesh_point")
	m := buildTshOnly()
	init, err := Adapt(fakeRef(), m)
	if err != nil {
		tst.Fatalf("Adapt failed: %v", err)
	}
	if init.VariableMatchRatio <= 0 || init.VariableMatchRatio > 1 {
		tst.Errorf("VariableMatchRatio out of [0,1]: %v", init.VariableMatchRatio)
	}
	if m.Variables[m.TfIdx].Init != 10.0 {
		tst.Errorf("Tf should be seeded from reference t_final, got %v", m.Variables[m.TfIdx].Init)
	}
	for _, pv := range m.Points {
		if m.Variables[pv.Pch].Init < 0.01 || m.Variables[pv.Pch].Init > 1.0 {
			tst.Errorf("Pch after mTorr->Torr conversion out of window: %v", m.Variables[pv.Pch].Init)
		}
	}
}

func Test_adapt_rejects_unit_mismatch(tst *testing.T) {
	chk.PrintTitle("adapt_rejects_unit_mismatch")
	m := buildTshOnly()
	ref := fakeRef()
	ref.PchUnit = baseline.PressureTorr // claims Torr, but values are mTorr-scale (150) -> clearly out of window
	_, err := Adapt(ref, m)
	if err == nil {
		tst.Fatalf("expected WarmStartInconsistent for a unit mismatch, got nil")
	}
}
