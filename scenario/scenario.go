// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scenario implements the read-only input records consumed by
// the DAE model builder, plus the eager, collective validation that runs
// before any NLP variable is created.
package scenario

import (
	"github.com/cpmech/gosl/fun"
)

// Vial holds vial/fill geometry.
type Vial struct {
	Av    float64 `json:"av"`    // vial outer cross-sectional area, for shelf-to-vial heat transfer [cm2]
	Ap    float64 `json:"ap"`    // vial inner (product) cross-sectional area [cm2]
	Vfill float64 `json:"vfill"` // fill volume [mL]
}

// Product holds cake-resistance and critical-temperature parameters.
type Product struct {
	R0      float64 `json:"r0"`
	A1      float64 `json:"a1"`
	A2      float64 `json:"a2"`
	TPrCrit float64 `json:"t_pr_crit"` // [degC]
	CSolid  float64 `json:"c_solid"`   // [g/mL]
}

// HT holds vial heat-transfer-coefficient correlation parameters.
type HT struct {
	KC float64 `json:"kc"`
	KP float64 `json:"kp"`
	KD float64 `json:"kd"`
}

// EqCap is the affine equipment sublimation-capacity envelope.
type EqCap struct {
	A float64 `json:"a"` // [kg/hr/Torr]
	B float64 `json:"b"` // [kg/hr]
}

// Mode selects which controls are free decision variables.
type Mode string

const (
	ModeTsh  Mode = "Tsh"
	ModePch  Mode = "Pch"
	ModeBoth Mode = "both"
)

// ControlBounds describes one control's box bounds and, if it is not
// released (not a free decision variable in the active Mode), its
// prescribed piecewise-constant reference trajectory.
type ControlBounds struct {
	Min, Max float64
	RampMax  float64  // 0 means unconstrained ramp rate
	Ref      fun.Func // required when this control is not released
}

// Controls holds both controls' bound/reference specifications. Which one
// is "released" (free) is determined by Mode, not by this struct.
type Controls struct {
	Tsh ControlBounds
	Pch ControlBounds
}

// Scenario is the immutable record consumed by the DAE model builder.
type Scenario struct {
	Name     string `json:"name"`
	Vial     Vial
	Product  Product
	HT       HT
	EqCap    EqCap
	NVial    int `json:"n_vial"`
	Mode     Mode
	Controls Controls
}
