// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dae builds the continuous-time DAE model of primary drying on a
// normalized time horizon tau in [0,1], with the total drying time Tf as a
// decision variable, and emits it as the algebraic constraint graph a
// discretizer turns into a finite NLP.
package dae

import (
	"github.com/cpmech/lyodry/discretize"
	"github.com/cpmech/lyodry/physics"
	"github.com/cpmech/lyodry/scenario"
)

// VarKind classifies a decision-vector entry.
type VarKind int

const (
	KindDifferential VarKind = iota
	KindAlgebraic
	KindControl
	KindDecision // Tf
)

func (k VarKind) String() string {
	switch k {
	case KindDifferential:
		return "differential"
	case KindAlgebraic:
		return "algebraic"
	case KindControl:
		return "control"
	case KindDecision:
		return "decision"
	}
	return "unknown"
}

// Variable is one entry of the model's decision vector. Variables are
// created once by Build and mutated only by the solver and the staged
// driver's named fix/unfix/set-initial operations.
type Variable struct {
	Name       string
	Kind       VarKind
	MeshPoint  int // -1 for the scalar Tf
	Scale      float64
	Lo, Hi     float64
	Fixed      bool
	FixedValue float64
	Init       float64
}

// EqKind distinguishes equality constraints (want Eval(x)==0) from
// inequalities in standard form g(x) <= 0.
type EqKind int

const (
	Equality EqKind = iota
	InequalityLE
)

// Constraint is one row of the algebraic system: a named residual function
// over the full decision vector, plus a sparsity hint (the variable
// indices it actually depends on) used for the NLP's constraint-Jacobian
// sparsity structure and nnz/ModelSize bookkeeping.
type Constraint struct {
	Name    string
	Kind    EqKind
	Eval    func(x []float64) float64
	VarIdx  []int
	MeshIdx int    // mesh point index this constraint is attached to, -1 if global
	Family  string // equation family tag (Fam* constants), used by post-checks
}

// Constraint family tags. The ramp layer and the diagnostics post-checks
// select related rows through these rather than by parsing names.
const (
	FamVaporPressure = "vapor_pressure"
	FamMassFlux      = "mass_flux"
	FamGrowth        = "cake_growth"
	FamEnergy        = "energy_balance"
	FamConduction    = "frozen_conduction"
	FamHeatTransfer  = "heat_transfer"
	FamResistance    = "cake_resistance"
	FamCriticalTemp  = "critical_temperature"
	FamCapacity      = "equipment_capacity"
	FamCompletion    = "completion"
	FamRamp          = "ramp"
)

// ControlVars names the per-mesh-point variable indices for one control.
type ControlVars struct {
	Released bool
	Idx      []int // per mesh point, -1 if this control has no variable at that point (never happens; prescribed controls still get a Fixed variable)
}

// MeshPointVars names the variable indices belonging to one mesh point.
type MeshPointVars struct {
	Tau                                                    float64
	Lck, Tsub, Tbot, Psub, LogPsub, Dmdt, Kv, Rp, Tsh, Pch int
}

// Model is the built NLP-ready algebraic system: variables, constraints,
// and the objective, plus enough mesh bookkeeping for the ramp layer and
// the diagnostics extractor to operate without re-deriving it.
type Model struct {
	Scenario *scenario.Scenario
	Mesh     discretize.Discretizer
	Points   []MeshPointVars // one per discretizer mesh point, same order

	TfIdx int

	Variables   []Variable
	Constraints []Constraint

	SmoothnessWeight float64 // optional quadratic penalty weight on released controls, default 0
	Kernel           physics.Kernel

	// Objective evaluates the scalar objective over the full decision
	// vector: minimize Tf, plus the optional smoothness penalty.
	Objective func(x []float64) float64
}

// NVariables/NConstraints/NObjectives feed diagnostics.ModelSize.
func (m *Model) NVariables() int   { return len(m.Variables) }
func (m *Model) NConstraints() int { return len(m.Constraints) }
func (m *Model) NObjectives() int  { return 1 }

// X0 returns the current initial/working value vector, i.e. each
// Variable.Init in order. The staged driver and warm-start adapter write
// through this (or through SetInitial) rather than holding a second copy.
func (m *Model) X0() []float64 {
	x := make([]float64, len(m.Variables))
	for i, v := range m.Variables {
		x[i] = v.Init
	}
	return x
}

// SetInitial writes a new initial/current value for variable idx.
func (m *Model) SetInitial(idx int, v float64) {
	m.Variables[idx].Init = v
}

// Fix fixes variable idx at value v (used by the staged driver's Stage F/T).
func (m *Model) Fix(idx int, v float64) {
	m.Variables[idx].Fixed = true
	m.Variables[idx].FixedValue = v
	m.Variables[idx].Init = v
}

// Unfix releases a previously fixed variable back to its current Init
// value as the optimizer's starting point.
func (m *Model) Unfix(idx int) {
	m.Variables[idx].Fixed = false
}
