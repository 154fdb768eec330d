// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scenario

import (
	"fmt"

	"github.com/cpmech/lyodry/lyoerr"
)

// validCollocationPoints enumerates the Radau point counts the
// discretizer supports.
var validCollocationPoints = map[int]bool{2: true, 3: true, 5: true}

// Validate collects every violation before any NLP variable is created,
// returning a single *lyoerr.InvalidScenario naming them all (or nil if
// the scenario and mesh are consistent). Validating eagerly keeps a
// malformed bound from surfacing as pages of solver diagnostics far from
// the cause.
func (sc *Scenario) Validate(mesh MeshSpec) error {
	var v []string

	switch sc.Mode {
	case ModeTsh, ModePch, ModeBoth:
	default:
		v = append(v, fmt.Sprintf("mode: %q is not one of Tsh, Pch, both", sc.Mode))
	}

	released := func(c Mode) bool {
		return sc.Mode == c || sc.Mode == ModeBoth
	}

	if released(ModeTsh) {
		b := sc.Controls.Tsh
		if !(b.Min < b.Max) {
			v = append(v, fmt.Sprintf("controls.Tsh: Tsh_min (%.4g) must be < Tsh_max (%.4g)", b.Min, b.Max))
		}
		if b.Min < -50 || b.Max > 150 {
			v = append(v, fmt.Sprintf("controls.Tsh: bounds [%.4g, %.4g] must be a subset of [-50, 150]", b.Min, b.Max))
		}
	} else if sc.Controls.Tsh.Ref == nil {
		v = append(v, "controls.Tsh: not released, but no reference trajectory (Ref) was provided")
	}

	if released(ModePch) {
		b := sc.Controls.Pch
		if !(b.Min < b.Max) {
			v = append(v, fmt.Sprintf("controls.Pch: Pch_min (%.4g) must be < Pch_max (%.4g)", b.Min, b.Max))
		}
		if b.Min <= 0.01 || b.Max >= 1.0 {
			v = append(v, fmt.Sprintf("controls.Pch: bounds [%.4g, %.4g] must be a subset of (0.01, 1.0)", b.Min, b.Max))
		}
	} else if sc.Controls.Pch.Ref == nil {
		v = append(v, "controls.Pch: not released, but no reference trajectory (Ref) was provided")
	}

	if sc.NVial < 1 {
		v = append(v, fmt.Sprintf("n_vial: must be >= 1, got %d", sc.NVial))
	}
	if sc.Vial.Av <= 0 || sc.Vial.Ap <= 0 || sc.Vial.Vfill <= 0 {
		v = append(v, "vial: Av, Ap, and Vfill must all be positive")
	}
	if sc.Product.R0 <= 0 {
		v = append(v, fmt.Sprintf("product.R0: must be positive, got %.4g", sc.Product.R0))
	}
	if sc.Product.CSolid <= 0 {
		v = append(v, fmt.Sprintf("product.c_solid: must be positive, got %.4g", sc.Product.CSolid))
	}

	switch mesh.Method {
	case MethodBackwardEuler:
		if mesh.NElements < 1 {
			v = append(v, fmt.Sprintf("mesh.n_elements: must be >= 1, got %d", mesh.NElements))
		}
	case MethodCollocation:
		if mesh.NElements < 1 {
			v = append(v, fmt.Sprintf("mesh.n_elements: must be >= 1, got %d", mesh.NElements))
		}
		if !validCollocationPoints[mesh.NCollocation] {
			v = append(v, fmt.Sprintf("mesh.n_collocation: must be one of {2,3,5}, got %d", mesh.NCollocation))
		}
	default:
		v = append(v, fmt.Sprintf("mesh.method: %q is not one of backward_euler, collocation_radau", mesh.Method))
	}

	return lyoerr.NewInvalidScenario(v)
}

// ApplyOverrides is the typed, total replacement for dotted-path
// dictionary mutation: it validates the path against a small fixed set of
// known fields rather than mutating via reflection on an arbitrary string
// key.
func ApplyOverrides(sc Scenario, path string, value float64) (Scenario, error) {
	switch path {
	case "vial.av":
		sc.Vial.Av = value
	case "vial.ap":
		sc.Vial.Ap = value
	case "vial.vfill":
		sc.Vial.Vfill = value
	case "product.r0":
		sc.Product.R0 = value
	case "product.a1":
		sc.Product.A1 = value
	case "product.a2":
		sc.Product.A2 = value
	case "product.t_pr_crit":
		sc.Product.TPrCrit = value
	case "product.c_solid":
		sc.Product.CSolid = value
	case "ht.kc":
		sc.HT.KC = value
	case "ht.kp":
		sc.HT.KP = value
	case "ht.kd":
		sc.HT.KD = value
	case "eq_cap.a":
		sc.EqCap.A = value
	case "eq_cap.b":
		sc.EqCap.B = value
	case "n_vial":
		sc.NVial = int(value)
	case "controls.tsh.min":
		sc.Controls.Tsh.Min = value
	case "controls.tsh.max":
		sc.Controls.Tsh.Max = value
	case "controls.tsh.ramp_max":
		sc.Controls.Tsh.RampMax = value
	case "controls.pch.min":
		sc.Controls.Pch.Min = value
	case "controls.pch.max":
		sc.Controls.Pch.Max = value
	case "controls.pch.ramp_max":
		sc.Controls.Pch.RampMax = value
	default:
		return sc, fmt.Errorf("scenario: unknown override path %q", path)
	}
	return sc, nil
}
