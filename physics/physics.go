// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package physics implements the closed-form algebraic relations of the
// primary-drying sublimation front: saturation vapor pressure over ice,
// cake mass-transfer resistance, vial heat-transfer coefficient, and the
// initial frozen-layer height. All functions are pure, defined on the
// bounds the NLP uses, and continuously differentiable there.
package physics

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun"
)

// Constants holds the physical constants the correlations below are
// expressed in terms of. The defaults are standard freeze-drying
// literature values and every field may be overridden by a caller.
type Constants struct {
	AntoineC1 float64 // [Torr] pre-exponential factor, Psub = C1*exp(-C2/(T+273.15))
	AntoineC2 float64 // [K]
	KIce      float64 // [cal/s/cm/K] ice thermal conductivity
	DeltaHs   float64 // [cal/g] enthalpy of sublimation
	RhoIce    float64 // [g/cm3] effective ice density in the dried/frozen cake
}

// DefaultConstants returns literature-typical values for water ice.
func DefaultConstants() Constants {
	return Constants{
		AntoineC1: 2.698e10, // Torr
		AntoineC2: 6144.96,  // K
		KIce:      0.00568,  // cal/s/cm/K
		DeltaHs:   678.0,    // cal/g
		RhoIce:    0.918,    // g/cm3
	}
}

// Kernel evaluates the product/equipment-specific algebraic relations for
// one scenario. It carries no time-varying state; every method is a pure
// function of its arguments and the parameters fixed at Init.
type Kernel struct {
	// cake resistance Rp(Lck) = R0 + A1*Lck/(1+A2*Lck)
	R0, A1, A2 float64

	// heat transfer Kv(Pch): Kv*(1+KD*Pch) = KC*(1+KD*Pch) + KP*Pch
	KC, KP, KD float64

	// equipment capacity envelope mdot_max(Pch) = a*Pch + b [kg/hr]
	EqCapA, EqCapB float64

	C Constants
}

// Init initializes the kernel from a parameter record, mirroring the
// gosl material-model Init(prms fun.Params) convention.
func (o *Kernel) Init(prms fun.Params) (err error) {
	o.C = DefaultConstants()
	for _, p := range prms {
		switch p.N {
		case "R0":
			o.R0 = p.V
		case "A1":
			o.A1 = p.V
		case "A2":
			o.A2 = p.V
		case "KC":
			o.KC = p.V
		case "KP":
			o.KP = p.V
		case "KD":
			o.KD = p.V
		case "eqCapA":
			o.EqCapA = p.V
		case "eqCapB":
			o.EqCapB = p.V
		default:
			return chk.Err("physics: Kernel: parameter named %q is incorrect\n", p.N)
		}
	}
	return
}

// GetPrms returns the current parameters (or an illustrative example set),
// mirroring the gosl material-model GetPrms(example bool) convention.
func (o Kernel) GetPrms(example bool) fun.Params {
	if example {
		return fun.Params{
			&fun.P{N: "R0", V: 1.4},
			&fun.P{N: "A1", V: 16.0},
			&fun.P{N: "A2", V: 0.0},
			&fun.P{N: "KC", V: 2.75e-4},
			&fun.P{N: "KP", V: 8.93e-4},
			&fun.P{N: "KD", V: 0.46},
			&fun.P{N: "eqCapA", V: -0.182},
			&fun.P{N: "eqCapB", V: 11.7},
		}
	}
	return fun.Params{
		&fun.P{N: "R0", V: o.R0},
		&fun.P{N: "A1", V: o.A1},
		&fun.P{N: "A2", V: o.A2},
		&fun.P{N: "KC", V: o.KC},
		&fun.P{N: "KP", V: o.KP},
		&fun.P{N: "KD", V: o.KD},
		&fun.P{N: "eqCapA", V: o.EqCapA},
		&fun.P{N: "eqCapB", V: o.EqCapB},
	}
}

// Rp is the dried-cake mass-transfer resistance, non-decreasing in Lck
// for Lck >= 0 with A1,A2 >= 0.
func (o Kernel) Rp(Lck float64) float64 {
	return o.R0 + o.A1*Lck/(1.0+o.A2*Lck)
}

// Kv is the vial heat-transfer coefficient, solved in closed form from
// Kv*(1+KD*Pch) = KC*(1+KD*Pch) + KP*Pch.
func (o Kernel) Kv(Pch float64) float64 {
	return o.KC + o.KP*Pch/(1.0+o.KD*Pch)
}

// LogPsubSat returns log(Psub_sat(T)) directly, avoiding the scale
// blow-up of evaluating exp() before the Jacobian is formed.
func (o Kernel) LogPsubSat(Tsub float64) float64 {
	return math.Log(o.C.AntoineC1) - o.C.AntoineC2/(Tsub+273.15)
}

// PsubSat is the saturation vapor pressure over ice at Tsub [Torr],
// strictly increasing in T.
func (o Kernel) PsubSat(Tsub float64) float64 {
	return math.Exp(o.LogPsubSat(Tsub))
}

// MdotMax is the equipment's affine maximum sublimation capacity
// envelope [kg/hr].
func (o Kernel) MdotMax(Pch float64) float64 {
	return o.EqCapA*Pch + o.EqCapB
}

// Lpr0 is the initial frozen-product height [cm] derived from fill volume
// and cross-sectional area; cSolid is accepted alongside the geometry but
// does not enter the height of a fully-frozen fill.
func Lpr0(Vfill, Ap, cSolid float64) float64 {
	return Vfill / Ap
}
