// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ramp attaches the per-interval ramp-rate inequality constraints
// to a built dae.Model, after discretization; box bounds are the ones
// dae.Build already stores on each variable. The block is
// assembled one row per constraint, each naming the variables it touches,
// with the (bilinear, since Tf is a variable) residual carried by a
// closure.
package ramp

import (
	"github.com/cpmech/lyodry/dae"
	"github.com/cpmech/lyodry/scenario"
)

// AttachRamp appends one inequality pair per released control per
// consecutive mesh-point pair:
//
//	U_k - U_{k-1} <= Udot_max*(tau_k-tau_{k-1})*Tf
//	U_{k-1} - U_k <= Udot_max*(tau_k-tau_{k-1})*Tf
//
// A control with RampMax==0 is left unconstrained. Initial control values
// at tau=0 are deliberately not touched here; only the box bounds that
// dae.Build stores on the variables apply to them.
func AttachRamp(m *dae.Model) error {
	sc := m.Scenario
	tshReleased := sc.Mode == scenario.ModeTsh || sc.Mode == scenario.ModeBoth
	pchReleased := sc.Mode == scenario.ModePch || sc.Mode == scenario.ModeBoth

	if tshReleased && sc.Controls.Tsh.RampMax > 0 {
		attachOne(m, "Tsh", sc.Controls.Tsh.RampMax, func(pv dae.MeshPointVars) int { return pv.Tsh })
	}
	if pchReleased && sc.Controls.Pch.RampMax > 0 {
		attachOne(m, "Pch", sc.Controls.Pch.RampMax, func(pv dae.MeshPointVars) int { return pv.Pch })
	}
	return nil
}

func attachOne(m *dae.Model, control string, rampMax float64, pick func(dae.MeshPointVars) int) {
	for k := 1; k < len(m.Points); k++ {
		k := k
		dTau := m.Points[k].Tau - m.Points[k-1].Tau
		uk := pick(m.Points[k])
		ukm1 := pick(m.Points[k-1])
		tf := m.TfIdx

		m.Constraints = append(m.Constraints, dae.Constraint{
			Name: control + "_ramp_up", Kind: dae.InequalityLE, MeshIdx: k, Family: dae.FamRamp,
			VarIdx: []int{uk, ukm1, tf},
			Eval: func(x []float64) float64 {
				return (x[uk] - x[ukm1]) - rampMax*dTau*x[tf]
			},
		})
		m.Constraints = append(m.Constraints, dae.Constraint{
			Name: control + "_ramp_down", Kind: dae.InequalityLE, MeshIdx: k, Family: dae.FamRamp,
			VarIdx: []int{uk, ukm1, tf},
			Eval: func(x []float64) float64 {
				return (x[ukm1] - x[uk]) - rampMax*dTau*x[tf]
			},
		})
	}
}

// AttachBounds is a no-op beyond documenting intent: box bounds are
// stored directly on dae.Variable.Lo/Hi by dae.Build, since they are
// plain per-variable data rather than a cross-variable constraint row.
// Exposed so callers that think of ramp rates and bounds as one layer
// have a single entry point for both concerns.
func AttachBounds(m *dae.Model) error {
	return nil
}
