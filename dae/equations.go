// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dae

import (
	"math"

	"github.com/cpmech/lyodry/discretize"
)

// emitAlgebraicConstraints attaches the sublimation-front algebraic block
// (vapor pressure, mass flux, energy balance, frozen-layer conduction,
// heat-transfer coefficient, cake resistance, critical temperature,
// equipment capacity) at every mesh point the discretizer replicates on.
func (m *Model) emitAlgebraicConstraints(replicaPoints []int, lpr0 float64) {
	k2 := m.Kernel.C.AntoineC2
	logC1 := math.Log(m.Kernel.C.AntoineC1)
	Av, Ap := m.Scenario.Vial.Av, m.Scenario.Vial.Ap
	nVial := float64(m.Scenario.NVial)
	kIce := m.Kernel.C.KIce
	deltaHs := m.Kernel.C.DeltaHs

	for _, k := range replicaPoints {
		pv := m.Points[k]

		// log_Psub = log(C1) - C2/(Tsub+273.15); keeping the log form as its
		// own equation avoids the scale blow-up of differentiating exp()
		// directly.
		m.addEq(&Constraint{
			Name: "vapor_pressure_log", Kind: Equality, MeshIdx: k, Family: FamVaporPressure,
			VarIdx: []int{pv.LogPsub, pv.Tsub},
			Eval: func(x []float64) float64 {
				return x[pv.LogPsub] - (logC1 - k2/(x[pv.Tsub]+273.15))
			},
		})
		// Psub = exp(log_Psub)
		m.addEq(&Constraint{
			Name: "vapor_pressure_exp", Kind: Equality, MeshIdx: k, Family: FamVaporPressure,
			VarIdx: []int{pv.Psub, pv.LogPsub},
			Eval: func(x []float64) float64 {
				return x[pv.Psub] - math.Exp(x[pv.LogPsub])
			},
		})
		// dmdt = (Ap/Rp)*(Psub-Pch)*unit conversion
		m.addEq(&Constraint{
			Name: "mass_flux", Kind: Equality, MeshIdx: k, Family: FamMassFlux,
			VarIdx: []int{pv.Dmdt, pv.Rp, pv.Psub, pv.Pch},
			Eval: func(x []float64) float64 {
				return x[pv.Dmdt] - (Ap/x[pv.Rp])*(x[pv.Psub]-x[pv.Pch])*fluxUnitConv
			},
		})
		// Kv*Av*(Tsh-Tbot) = dmdt*deltaHs, the algebraic replacement for a
		// sublimation-front energy ODE
		m.addEq(&Constraint{
			Name: "energy_balance", Kind: Equality, MeshIdx: k, Family: FamEnergy,
			VarIdx: []int{pv.Kv, pv.Tsh, pv.Tbot, pv.Dmdt},
			Eval: func(x []float64) float64 {
				return x[pv.Kv]*Av*(x[pv.Tsh]-x[pv.Tbot]) - x[pv.Dmdt]*deltaHs*energyUnitConv
			},
		})
		// Tbot = Tsub + (Lpr0-Lck)*(Psub-Pch)*deltaHs/(Rp*k_ice)
		m.addEq(&Constraint{
			Name: "frozen_conduction", Kind: Equality, MeshIdx: k, Family: FamConduction,
			VarIdx: []int{pv.Tbot, pv.Tsub, pv.Lck, pv.Psub, pv.Pch, pv.Rp},
			Eval: func(x []float64) float64 {
				rhs := x[pv.Tsub] + (lpr0-x[pv.Lck])*(x[pv.Psub]-x[pv.Pch])*deltaHs/(x[pv.Rp]*kIce/condUnitConv)
				return x[pv.Tbot] - rhs
			},
		})
		// Kv follows the pressure-dependent closed form
		m.addEq(&Constraint{
			Name: "heat_transfer", Kind: Equality, MeshIdx: k, Family: FamHeatTransfer,
			VarIdx: []int{pv.Kv, pv.Pch},
			Eval: func(x []float64) float64 {
				return x[pv.Kv] - m.Kernel.Kv(x[pv.Pch])
			},
		})
		// Rp = R0 + A1*Lck/(1+A2*Lck)
		m.addEq(&Constraint{
			Name: "cake_resistance", Kind: Equality, MeshIdx: k, Family: FamResistance,
			VarIdx: []int{pv.Rp, pv.Lck},
			Eval: func(x []float64) float64 {
				return x[pv.Rp] - m.Kernel.Rp(x[pv.Lck])
			},
		})
		// Tsub >= T_pr_crit  =>  T_pr_crit - Tsub <= 0
		tcrit := m.Scenario.Product.TPrCrit
		m.addEq(&Constraint{
			Name: "critical_temperature", Kind: InequalityLE, MeshIdx: k, Family: FamCriticalTemp,
			VarIdx: []int{pv.Tsub},
			Eval: func(x []float64) float64 {
				return tcrit - x[pv.Tsub]
			},
		})
		// dmdt*nVial <= mdot_max(Pch)  =>  dmdt*nVial - mdot_max(Pch) <= 0
		m.addEq(&Constraint{
			Name: "equipment_capacity", Kind: InequalityLE, MeshIdx: k, Family: FamCapacity,
			VarIdx: []int{pv.Dmdt, pv.Pch},
			Eval: func(x []float64) float64 {
				return x[pv.Dmdt]*nVial - m.Kernel.MdotMax(x[pv.Pch])
			},
		})
	}
}

// emitDifferentialLinks attaches the dried-layer growth equations via the
// discretizer's DiffLink descriptions: sum(coeffs[i]*Lck[Points[i]]) =
// LocalStep*Tf*growth(state at EvalPoints[0]).
func (m *Model) emitDifferentialLinks(links []discretize.DiffLink) {
	Ap := m.Scenario.Vial.Ap
	rhoIce := m.Kernel.C.RhoIce
	for _, link := range links {
		evalK := link.EvalPoints[0]
		pvEval := m.Points[evalK]
		pts := link.Points
		coeffs := link.Coeffs
		h := link.LocalStep
		varIdx := make([]int, 0, len(pts)+2)
		for _, p := range pts {
			varIdx = append(varIdx, m.Points[p].Lck)
		}
		varIdx = append(varIdx, pvEval.Dmdt, m.TfIdx)

		m.addEq(&Constraint{
			Name: "cake_growth_link", Kind: Equality, MeshIdx: evalK, Family: FamGrowth,
			VarIdx: varIdx,
			Eval: func(x []float64) float64 {
				var sum float64
				for i, p := range pts {
					sum += coeffs[i] * x[m.Points[p].Lck]
				}
				growth := x[pvEval.Dmdt] * growthUnitConv / (Ap * rhoIce)
				return sum - h*x[m.TfIdx]*growth
			},
		})
	}
}

// emitCompletion attaches the drying-completion target Lck(tau=1) >= eta*Lpr0.
func (m *Model) emitCompletion(lpr0 float64, lastIdx int) {
	lastLck := m.Points[lastIdx].Lck
	target := completionEta * lpr0
	m.addEq(&Constraint{
		Name: "completion", Kind: InequalityLE, MeshIdx: lastIdx, Family: FamCompletion,
		VarIdx: []int{lastLck},
		Eval: func(x []float64) float64 {
			return target - x[lastLck]
		},
	})
}

// emitObjective sets the model's objective: minimize Tf, plus an optional
// quadratic smoothness penalty on released controls when
// Model.SmoothnessWeight is nonzero (default 0).
func (m *Model) emitObjective(tshReleased, pchReleased bool) {
	m.Objective = func(x []float64) float64 {
		obj := x[m.TfIdx]
		if m.SmoothnessWeight == 0 {
			return obj
		}
		var penalty float64
		for k := 1; k < len(m.Points); k++ {
			if tshReleased {
				d := x[m.Points[k].Tsh] - x[m.Points[k-1].Tsh]
				penalty += d * d
			}
			if pchReleased {
				d := x[m.Points[k].Pch] - x[m.Points[k-1].Pch]
				penalty += d * d
			}
		}
		return obj + m.SmoothnessWeight*penalty
	}
}

func (m *Model) addEq(c *Constraint) {
	m.Constraints = append(m.Constraints, *c)
}
