// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package discretize transforms the continuous-time DAE model (normalized
// time tau in [0,1]) into a finite algebraic system, by backward Euler or
// orthogonal collocation on finite elements (Radau roots). Both strategies
// satisfy the same Discretizer capability set, so adding a third method
// never touches the model builder or staged driver.
package discretize

// DiffLink describes one differential-state linking equation: the
// polynomial/finite-difference relation tying together the state values at
// Points (mesh-point indices) via Coeffs, evaluated against Tf times the
// right-hand-side function at EvalPoints, scaled by LocalStep (the physical
// tau-length the derivative is taken over, i.e. h_e for collocation or h for
// backward Euler).
type DiffLink struct {
	Points     []int     // mesh-point indices contributing the state values (the "L_j" terms)
	Coeffs     []float64 // differentiation weights aligned with Points
	EvalPoints []int     // mesh-point indices at which Tf*f(state) is evaluated, aligned 1:1 with a subset of Points for collocation, or the single endpoint for BE
	LocalStep  float64   // h_e (collocation) or h (backward Euler), in tau units
}

// Discretizer is the capability set every discretization strategy
// implements.
type Discretizer interface {
	// PlaceMesh returns the strictly increasing mesh points tau_0 < ... < tau_M.
	PlaceMesh() []float64

	// DifferentialLinks returns one DiffLink per differential-state linking
	// equation (one per element boundary for BE, one per collocation point
	// for orthogonal collocation).
	DifferentialLinks() []DiffLink

	// AlgebraicReplicaPoints returns the mesh-point indices at which the
	// algebraic block must be imposed.
	AlgebraicReplicaPoints() []int

	// TotalMeshPoints is len(PlaceMesh()).
	TotalMeshPoints() int

	// NElementsRequested/NElementsApplied support the diagnostics block's
	// n_elements_requested/n_elements_applied pair under the effective-NFE
	// parity rule.
	NElementsRequested() int
	NElementsApplied() int
}
