// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diagnostics

import (
	"math"

	"github.com/cpmech/gosl/utl"
	"github.com/cpmech/lyodry/dae"
	"github.com/cpmech/lyodry/lyoerr"
)

// postCheck verifies the extracted trajectory against the model's algebraic
// relations and targets: vapor-pressure consistency, the critical product
// temperature, drying completion, ramp bounds, and time monotonicity. A
// completion or ramp shortfall flags (without discarding) the result as a
// PostCheckViolation.
func postCheck(m *dae.Model, x []float64, r *Result) error {
	k := m.Kernel

	for i, pv := range m.Points {
		// log vapor-pressure consistency with the saturation correlation
		wantLog := k.LogPsubSat(x[pv.Tsub])
		if math.Abs(x[pv.LogPsub]-wantLog) > 1e-6 {
			return &lyoerr.NumericError{Field: "log_psub_consistency", Index: i}
		}
		// Psub must equal exp(log_Psub)
		if math.Abs(x[pv.Psub]-math.Exp(x[pv.LogPsub])) > 1e-6*math.Max(1, x[pv.Psub]) {
			return &lyoerr.NumericError{Field: "psub_exp_consistency", Index: i}
		}
		// Tsub must never have fallen below the critical product temperature
		if x[pv.Tsub] < m.Scenario.Product.TPrCrit-1e-6 {
			r.Failed = true
			r.FailureStage = lyoerr.StagePostchk
			return &lyoerr.PostCheckViolation{DrynessShortfall: 0, MaxRampViolation: nil}
		}
	}

	// completion: final dried fraction against the (slightly relaxed) target
	r.DrynessShortfall = utl.Max(0, 0.989-r.Trajectory[len(r.Trajectory)-1].FracDried)

	// ramp: already computed as r.MaxRampViolation by Extract
	var worstRamp float64
	for _, v := range r.MaxRampViolation {
		if v > worstRamp {
			worstRamp = v
		}
	}

	// time axis must start at zero and increase strictly
	if r.Trajectory[0].T != 0 {
		return &lyoerr.NumericError{Field: "trajectory_t0", Index: 0}
	}
	for i := 1; i < len(r.Trajectory); i++ {
		if r.Trajectory[i].T <= r.Trajectory[i-1].T {
			return &lyoerr.NumericError{Field: "trajectory_time_monotonic", Index: i}
		}
	}

	if r.DrynessShortfall > 0 || worstRamp > 1e-3 {
		r.Failed = true
		r.FailureStage = lyoerr.StagePostchk
		return &lyoerr.PostCheckViolation{DrynessShortfall: r.DrynessShortfall, MaxRampViolation: r.MaxRampViolation}
	}
	return nil
}
