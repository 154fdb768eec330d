// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dae

import (
	"math"

	"github.com/cpmech/lyodry/discretize"
	"github.com/cpmech/lyodry/lyoerr"
	"github.com/cpmech/lyodry/physics"
	"github.com/cpmech/lyodry/scenario"
)

// Unit-conversion factors tying the g/kg/cal/s/hr unit mix of the
// sublimation-front relations into one consistent system.
const (
	fluxUnitConv   = 0.001           // g/hr -> kg/hr (mass flux)
	growthUnitConv = 1000.0          // kg/hr -> g/hr, feeding dLck/dt
	energyUnitConv = 1000.0 / 3600.0 // kg/hr, cal/g -> cal/s (energy balance)
	condUnitConv   = 1.0 / 3600.0    // Torr*cal/g per (cm^2*hr*Torr/g * cal/s/cm/K) -> K
	completionEta  = 0.99            // default drying-completion target
)

// Build validates the scenario eagerly and collectively, then constructs
// the algebraic NLP (variables + sublimation-front constraints +
// objective) for one scenario/mesh/control-mode combination. Returns
// *lyoerr.InvalidScenario (listing every violated field) before a single
// variable is created if validation fails.
func Build(sc *scenario.Scenario, mesh scenario.MeshSpec) (*Model, error) {
	if err := sc.Validate(mesh); err != nil {
		return nil, err
	}

	disc, err := newDiscretizer(mesh)
	if err != nil {
		return nil, err
	}

	m := &Model{
		Scenario: sc,
		Mesh:     disc,
	}
	m.Kernel.R0, m.Kernel.A1, m.Kernel.A2 = sc.Product.R0, sc.Product.A1, sc.Product.A2
	m.Kernel.KC, m.Kernel.KP, m.Kernel.KD = sc.HT.KC, sc.HT.KP, sc.HT.KD
	m.Kernel.EqCapA, m.Kernel.EqCapB = sc.EqCap.A, sc.EqCap.B
	m.Kernel.C = physics.DefaultConstants()

	lpr0 := physics.Lpr0(sc.Vial.Vfill, sc.Vial.Ap, sc.Product.CSolid)

	tauPts := disc.PlaceMesh()
	n := len(tauPts)
	m.Points = make([]MeshPointVars, n)

	// Tf is variable index 0.
	m.Variables = append(m.Variables, Variable{
		Name: "Tf", Kind: KindDecision, MeshPoint: -1,
		Scale: 1.0, Lo: 1e-3, Hi: 1e4, Init: 10.0,
	})
	m.TfIdx = 0

	tshReleased := sc.Mode == scenario.ModeTsh || sc.Mode == scenario.ModeBoth
	pchReleased := sc.Mode == scenario.ModePch || sc.Mode == scenario.ModeBoth

	newVar := func(name string, kind VarKind, k int, scale, lo, hi, init float64) int {
		m.Variables = append(m.Variables, Variable{
			Name: name, Kind: kind, MeshPoint: k,
			Scale: scale, Lo: lo, Hi: hi, Init: init,
		})
		return len(m.Variables) - 1
	}

	for k, tau := range tauPts {
		pv := MeshPointVars{Tau: tau}
		pv.Lck = newVar("Lck", KindDifferential, k, 1.0, 0, lpr0*1.5, 0)
		if k == 0 {
			// consistent initial condition: Lck(0) = 0
			m.Variables[pv.Lck].Hi = 0
			m.Variables[pv.Lck].Fixed = true
			m.Variables[pv.Lck].FixedValue = 0
		}
		pv.Tsub = newVar("Tsub", KindAlgebraic, k, 1.0, -80, 20, sc.Product.TPrCrit)
		pv.Tbot = newVar("Tbot", KindAlgebraic, k, 1.0, -80, 40, sc.Product.TPrCrit)
		pv.Psub = newVar("Psub", KindAlgebraic, k, 10.0, 1e-6, 50, 0.1)
		pv.LogPsub = newVar("log_Psub", KindAlgebraic, k, 1.0, -30, 10, math.Log(0.1))
		pv.Dmdt = newVar("dmdt", KindAlgebraic, k, 0.1, 0, 1e4, 1.0)
		pv.Kv = newVar("Kv", KindAlgebraic, k, 1e3, 1e-6, 1.0, 5e-4)
		pv.Rp = newVar("Rp", KindAlgebraic, k, 1.0, 1e-6, 1e6, sc.Product.R0)

		if tshReleased {
			pv.Tsh = newVar("Tsh", KindControl, k, 1.0, sc.Controls.Tsh.Min, sc.Controls.Tsh.Max, sc.Controls.Tsh.Min)
		} else {
			ref := evalRef(sc.Controls.Tsh, tau)
			pv.Tsh = newVar("Tsh", KindAlgebraic, k, 1.0, ref, ref, ref)
			m.Variables[pv.Tsh].Fixed = true
			m.Variables[pv.Tsh].FixedValue = ref
		}

		if pchReleased {
			pv.Pch = newVar("Pch", KindControl, k, 1.0, sc.Controls.Pch.Min, sc.Controls.Pch.Max, sc.Controls.Pch.Min)
		} else {
			ref := evalRef(sc.Controls.Pch, tau)
			pv.Pch = newVar("Pch", KindAlgebraic, k, 1.0, ref, ref, ref)
			m.Variables[pv.Pch].Fixed = true
			m.Variables[pv.Pch].FixedValue = ref
		}

		m.Points[k] = pv
	}

	m.emitAlgebraicConstraints(disc.AlgebraicReplicaPoints(), lpr0)
	m.emitDifferentialLinks(disc.DifferentialLinks())
	m.emitCompletion(lpr0, n-1)
	m.emitObjective(tshReleased, pchReleased)

	return m, nil
}

func newDiscretizer(mesh scenario.MeshSpec) (discretize.Discretizer, error) {
	switch mesh.Method {
	case scenario.MethodBackwardEuler:
		return &discretize.BackwardEuler{NElements: mesh.NElements}, nil
	case scenario.MethodCollocation:
		c := &discretize.CollocationRadau{
			NElementsRequestedVal: mesh.NElements,
			Ncp:                   mesh.NCollocation,
			EffectiveNFE:          mesh.EffectiveNFE,
		}
		c.Init()
		return c, nil
	default:
		return nil, lyoerr.NewInvalidScenario([]string{"mesh.method: unsupported discretizer"})
	}
}

// evalRef evaluates a prescribed control's reference trajectory at a mesh
// point's normalized time tau. Validate rejects a non-released control
// without a Ref before Build gets here; a nil Ref falls back to the
// midpoint of the control's bounds.
func evalRef(b scenario.ControlBounds, tau float64) float64 {
	if b.Ref == nil {
		return (b.Min + b.Max) / 2
	}
	return b.Ref.F(tau, nil)
}
