// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package warmstart maps an externally supplied sequentially integrated
// trajectory onto a built dae.Model's mesh and initializes every variable,
// including algebraics, to values consistent with the model's algebraic
// constraints. Matching is nearest-neighbor, not interpolation, so the
// initialization is feasibility-preserving at the cost of slight mesh
// misalignment that the feasibility stage then absorbs.
package warmstart

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/cpmech/gosl/num"
	"gonum.org/v1/gonum/floats"

	"github.com/cpmech/lyodry/baseline"
	"github.com/cpmech/lyodry/dae"
	"github.com/cpmech/lyodry/lyoerr"
)

// pchMin/pchMax bound the physically sensible chamber-pressure window in
// Torr, used by the mandatory unit-mismatch check.
const (
	pchMin = 0.01
	pchMax = 1.0
)

// Init summarizes the result of an Adapt call, feeding
// diagnostics.Result.Warmstart directly.
type Init struct {
	Enabled            bool
	SourceHash         string // first 16 hex chars of sha256 over the reference points
	VariableMatchRatio float64
}

// Adapt walks m's mesh points, nearest-neighbor matches each to ref,
// writes the directly observed fields, derives Lck from frac_dried, and
// recovers the algebraic fields by a local Newton solve so the initial
// point satisfies the vapor-pressure, mass-flux, heat-transfer, and
// cake-resistance relations to machine precision.
func Adapt(ref baseline.Trajectory, m *dae.Model) (*Init, error) {
	if len(ref.Points) == 0 {
		return nil, &lyoerr.WarmStartInconsistent{Residuals: map[string]float64{"points": 0}, Tol: 0}
	}

	tFinal := ref.TFinal()
	if tFinal <= 0 {
		return nil, &lyoerr.WarmStartInconsistent{Residuals: map[string]float64{"t_final": tFinal}, Tol: 0}
	}

	pchConv := 1.0
	if ref.PchUnit == baseline.PressureMTorr {
		pchConv = 1.0 / 1000.0
	}
	if err := checkPressureUnits(ref, pchConv); err != nil {
		return nil, err
	}

	m.SetInitial(m.TfIdx, tFinal)

	times := make([]float64, len(ref.Points))
	for i, p := range ref.Points {
		times[i] = p.T
	}

	lpr0, err := lpr0FromScenario(m)
	if err != nil {
		return nil, err
	}

	matched, attempted := 0, 0
	for k, pv := range m.Points {
		tPhys := pv.Tau * tFinal
		i := nearest(times, tPhys)
		rec := ref.Points[i]

		setClamped(m, pv.Tsh, rec.Tsh)
		setClamped(m, pv.Pch, rec.Pch*pchConv)
		setClamped(m, pv.Tsub, rec.Tsub)
		setClamped(m, pv.Tbot, rec.Tbot)
		setClamped(m, pv.Lck, rec.FracDried*lpr0)
		attempted += 5

		matched += 5
		if err := recoverAlgebraics(m, pv, k); err == nil {
			matched += 5
		}
		attempted += 5
	}

	return &Init{
		Enabled:            true,
		SourceHash:         hashTrajectory(ref),
		VariableMatchRatio: float64(matched) / float64(attempted),
	}, nil
}

// checkPressureUnits refuses initialization if Pch, even after the
// declared unit conversion, falls clearly outside the [0.01,1.0] Torr
// window.
func checkPressureUnits(ref baseline.Trajectory, pchConv float64) error {
	residuals := map[string]float64{}
	for i, p := range ref.Points {
		v := p.Pch * pchConv
		if v < pchMin*0.1 || v > pchMax*10 {
			residuals[fmt.Sprintf("points[%d].Pch", i)] = v
		}
	}
	if len(residuals) > 0 {
		return &lyoerr.WarmStartInconsistent{Residuals: residuals, Tol: pchMax}
	}
	return nil
}

// setClamped writes v as variable idx's initial value, clamped into the
// variable's box so a slightly misaligned reference record (or a fixed
// initial-condition variable such as Lck at tau=0) cannot seed the solve
// outside its bounds.
func setClamped(m *dae.Model, idx int, v float64) {
	vr := m.Variables[idx]
	if v < vr.Lo {
		v = vr.Lo
	}
	if v > vr.Hi {
		v = vr.Hi
	}
	m.SetInitial(idx, v)
}

// nearest returns argmin_i |times[i]-t|, using gonum/floats.MinIdx over the
// absolute-difference slice rather than a hand-rolled linear scan.
func nearest(times []float64, t float64) int {
	diffs := make([]float64, len(times))
	for i, ti := range times {
		diffs[i] = math.Abs(ti - t)
	}
	return floats.MinIdx(diffs)
}

func lpr0FromScenario(m *dae.Model) (float64, error) {
	sc := m.Scenario
	if sc.Vial.Ap <= 0 {
		return 0, &lyoerr.WarmStartInconsistent{Residuals: map[string]float64{"vial.ap": sc.Vial.Ap}, Tol: 0}
	}
	return sc.Vial.Vfill / sc.Vial.Ap, nil
}

// recoverAlgebraics solves the 2-unknown system coupling the log
// vapor-pressure and mass-flux relations for (log_Psub, dmdt) given the
// just-written Tsub/Pch/Lck, with num.NlSolver and an analytic dense
// Jacobian. Kv and Rp are written directly from their closed forms, which
// have no coupled unknowns.
func recoverAlgebraics(m *dae.Model, pv dae.MeshPointVars, meshIdx int) error {
	Tsub := m.Variables[pv.Tsub].Init
	Pch := m.Variables[pv.Pch].Init
	Lck := m.Variables[pv.Lck].Init

	k := m.Kernel
	Rp := k.Rp(Lck)
	Kv := k.Kv(Pch)
	m.SetInitial(pv.Rp, Rp)
	m.SetInitial(pv.Kv, Kv)

	Ap := m.Scenario.Vial.Ap
	logC1 := math.Log(k.C.AntoineC1)
	c2 := k.C.AntoineC2

	x := []float64{k.LogPsubSat(Tsub), m.Variables[pv.Dmdt].Init}

	var nls num.NlSolver
	nls.Init(2, func(fx, x []float64) error {
		logPsub, dmdt := x[0], x[1]
		fx[0] = logPsub - (logC1 - c2/(Tsub+273.15))
		fx[1] = dmdt - (Ap/Rp)*(math.Exp(logPsub)-Pch)*0.001
		return nil
	}, nil, func(J [][]float64, x []float64) error {
		logPsub := x[0]
		J[0][0] = 1
		J[0][1] = 0
		J[1][0] = -(Ap / Rp) * math.Exp(logPsub) * 0.001
		J[1][1] = 1
		return nil
	}, true, false, map[string]float64{"lSearch": 0})
	nls.SetTols(1e-10, 1e-10, 1e-14, num.EPS)
	if err := nls.Solve(x, true); err != nil {
		return lyoerr.Wrap(err, "warmstart: local algebraic recovery failed")
	}

	logPsub, dmdt := x[0], x[1]
	if math.IsNaN(logPsub) || math.IsNaN(dmdt) || math.IsInf(logPsub, 0) || math.IsInf(dmdt, 0) {
		return &lyoerr.NumericError{Field: "warmstart_recovery", Index: meshIdx}
	}
	m.SetInitial(pv.LogPsub, logPsub)
	m.SetInitial(pv.Psub, math.Exp(logPsub))
	m.SetInitial(pv.Dmdt, dmdt)
	return nil
}

func hashTrajectory(ref baseline.Trajectory) string {
	h := sha256.New()
	buf := make([]byte, 8)
	for _, p := range ref.Points {
		for _, v := range []float64{p.T, p.Tsub, p.Tbot, p.Tsh, p.Pch, p.Flux, p.FracDried} {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
			h.Write(buf)
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
