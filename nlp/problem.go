// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nlp

import (
	"math"

	"github.com/cpmech/gosl/la"
	"github.com/cpmech/lyodry/dae"
)

// Problem is the algebraic NLP view over a dae.Model: the free (non-fixed)
// variable set, the split equality/inequality constraint rows (with box
// bounds on free variables folded in as synthetic inequalities), and the
// objective. Built once per staged-driver stage, since Fixed status
// changes between stages: the driver mutates fixings, and the NLP view is
// rebuilt, never patched in place.
type Problem struct {
	Model *dae.Model
	Free  []int // indices into Model.Variables that are not Fixed

	eq   []*dae.Constraint
	ineq []*dae.Constraint

	// boundRows are synthetic box-bound inequalities (x_i-Hi<=0,
	// Lo-x_i<=0) for every free variable with a finite bound, evaluated
	// directly rather than as dae.Constraint closures.
	boundLo, boundHi []int // free-variable indices with a lower/upper bound
}

// NewProblem builds the NLP view of m as it stands right now.
func NewProblem(m *dae.Model) *Problem {
	p := &Problem{Model: m}
	for i, v := range m.Variables {
		if !v.Fixed {
			p.Free = append(p.Free, i)
			if v.Lo > -math.MaxFloat64/2 {
				p.boundLo = append(p.boundLo, i)
			}
			if v.Hi < math.MaxFloat64/2 {
				p.boundHi = append(p.boundHi, i)
			}
		}
	}
	for i := range m.Constraints {
		c := &m.Constraints[i]
		switch c.Kind {
		case dae.Equality:
			p.eq = append(p.eq, c)
		case dae.InequalityLE:
			p.ineq = append(p.ineq, c)
		}
	}
	return p
}

// JacobianStructure assembles the constraint-Jacobian sparsity as a
// la.Triplet (one row per constraint, one entry per variable the row's
// VarIdx hint names) and returns it with its nonzero count.
func (p *Problem) JacobianStructure() (t la.Triplet, nnz int) {
	for _, c := range p.eq {
		nnz += len(c.VarIdx)
	}
	for _, c := range p.ineq {
		nnz += len(c.VarIdx)
	}
	nrow := len(p.eq) + len(p.ineq)
	t.Init(nrow, len(p.Model.Variables), nnz)
	row := 0
	for _, c := range p.eq {
		for _, j := range c.VarIdx {
			t.Put(row, j, 1.0)
		}
		row++
	}
	for _, c := range p.ineq {
		for _, j := range c.VarIdx {
			t.Put(row, j, 1.0)
		}
		row++
	}
	return
}

// NNZ is the constraint-Jacobian nonzero count, feeding the model-size
// accounting in diagnostics.
func (p *Problem) NNZ() int {
	_, nnz := p.JacobianStructure()
	return nnz
}

// evalEq/evalIneq evaluate every equality/inequality residual at x.
func (p *Problem) evalEq(x []float64) []float64 {
	r := make([]float64, len(p.eq))
	for i, c := range p.eq {
		r[i] = c.Eval(x)
	}
	return r
}

func (p *Problem) evalIneq(x []float64) []float64 {
	n := len(p.ineq) + len(p.boundLo) + len(p.boundHi)
	r := make([]float64, 0, n)
	for _, c := range p.ineq {
		r = append(r, c.Eval(x))
	}
	for _, i := range p.boundLo {
		r = append(r, p.Model.Variables[i].Lo-x[i])
	}
	for _, i := range p.boundHi {
		r = append(r, x[i]-p.Model.Variables[i].Hi)
	}
	return r
}

// maxViolation returns the largest equality |residual| and inequality
// positive-part violation, used for the constr_viol_tol stopping test and
// for diagnostics' post-checks.
func (p *Problem) maxViolation(x []float64) float64 {
	v := 0.0
	for _, r := range p.evalEq(x) {
		if math.Abs(r) > v {
			v = math.Abs(r)
		}
	}
	for _, r := range p.evalIneq(x) {
		if r > v {
			v = r
		}
	}
	return v
}
