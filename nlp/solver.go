// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nlp

import (
	"context"
	"math"
	"time"

	"github.com/cpmech/gosl/la"
	"gonum.org/v1/gonum/mat"

	"github.com/cpmech/lyodry/lyoerr"
)

// Solution is one NLP solve's outcome: the full variable vector (including
// fixed variables, unchanged), a status classification, and the
// diagnostics a caller needs without re-evaluating the problem.
type Solution struct {
	X           []float64
	Status      string // "optimal", "acceptable", "infeasible", "iteration_limit", "other"
	Iterations  int
	CPUTime     time.Duration
	ObjGradNorm float64
	ConstrViol  float64
}

const (
	innerMaxIter = 25
	outerStages  = 6

	// barrierDelta is the width of the quadratic extension of the
	// log-barrier: inequalities less violated than -barrierDelta use the
	// exact -log(-g) term, anything closer to (or past) the wall uses a C1
	// quadratic continuation so the merit function stays finite when an
	// initial point sits exactly on a bound (Lck=0 at its lower bound,
	// Tsub at the critical temperature).
	barrierDelta = 1e-4

	// boundPush / warmBoundPush move the starting iterate strictly inside
	// the box bounds before the first barrier evaluation. The warm-start
	// value is much smaller so a consistent reference initialization is
	// perturbed as little as possible.
	boundPush     = 1e-2
	warmBoundPush = 1e-6
)

// Solve runs a primal log-barrier interior-point Newton solve: inequality
// constraints and box bounds are handled by a relaxed log-barrier with
// mu_strategy-controlled decay, equality constraints by a quadratic
// penalty with geometrically increasing weight (so the combined
// barrier+penalty merit function's unconstrained minimizer converges to a
// KKT point as mu->0). Gradients/Hessians are numerical (central/forward
// differences) rather than a symbolic AD tape; the per-step linear solve
// uses gonum/mat's VecDense.SolveVec.
//
// Options are accepted by value and never mutated or retained: calling
// Solve twice with identical Options is guaranteed to fingerprint
// identically and behave identically, so a once-set warm-start flag can
// never contaminate a later cold run.
func Solve(ctx context.Context, p *Problem, opts Options) (*Solution, error) {
	x := p.Model.X0()
	nf := len(p.Free)
	start := time.Now()

	if nf == 0 {
		// Every variable fixed: the "solve" is just an algebraic
		// feasibility check.
		viol := p.maxViolation(x)
		status := "optimal"
		if viol > opts.ConstrViolTol*100 {
			status = "infeasible"
		}
		return &Solution{X: x, Status: status, Iterations: 0, CPUTime: time.Since(start), ConstrViol: viol}, nil
	}

	interiorize(p, x, opts)

	mu := 0.1
	rho := 1.0e2
	iter := 0
	var gnorm, viol float64

	budget := time.Duration(opts.CPUTimeBudgetSec * float64(time.Second))

outer:
	for stage := 0; stage < outerStages; stage++ {
		for k := 0; k < innerMaxIter; k++ {
			select {
			case <-ctx.Done():
				return nil, &lyoerr.Timeout{Elapsed: time.Since(start).Seconds(), Budget: opts.CPUTimeBudgetSec}
			default:
			}
			if budget > 0 && time.Since(start) > budget {
				return nil, &lyoerr.Timeout{Elapsed: time.Since(start).Seconds(), Budget: opts.CPUTimeBudgetSec}
			}

			grad := numGrad(p, x, mu, rho)
			hess := numHess(p, x, mu, rho, grad)
			dx, err := solveNewton(hess, grad)
			if err != nil {
				// singular/ill-conditioned Hessian: damp and retry with a
				// steepest-descent step rather than aborting the whole solve.
				dx = make([]float64, nf)
				for i := range dx {
					dx[i] = -grad[i]
				}
			}

			alpha := lineSearch(p, x, dx, mu, rho)
			for i, fi := range p.Free {
				x[fi] += alpha * dx[i]
			}
			iter++

			gnorm = la.VecNorm(grad)
			viol = p.maxViolation(x)
			if gnorm < opts.Tol && viol < opts.ConstrViolTol {
				break outer
			}
			if iter >= opts.MaxIter {
				break outer
			}
			if containsNaNOrInf(x) {
				return nil, &lyoerr.NumericError{Field: "nlp_iterate", Index: iter}
			}
		}
		if opts.MuStrategy == "adaptive" {
			mu *= 0.2
		} else {
			mu *= 0.5
		}
		rho *= 10
	}

	status := classify(gnorm, viol, opts, iter)
	return &Solution{
		X: x, Status: status, Iterations: iter, CPUTime: time.Since(start),
		ObjGradNorm: gnorm, ConstrViol: viol,
	}, nil
}

// interiorize pushes every free bounded variable strictly inside its box
// before the first barrier evaluation: a small push when the caller
// explicitly requested warm-start (so a consistent reference point is
// barely perturbed), a larger one otherwise.
func interiorize(p *Problem, x []float64, opts Options) {
	push := boundPush
	if opts.WarmStartBoundPush {
		push = warmBoundPush
	}
	for _, fi := range p.Free {
		v := p.Model.Variables[fi]
		width := v.Hi - v.Lo
		if width <= 0 {
			continue
		}
		pad := push * width
		if pad > push {
			pad = push
		}
		if x[fi] < v.Lo+pad {
			x[fi] = v.Lo + pad
		}
		if x[fi] > v.Hi-pad {
			x[fi] = v.Hi - pad
		}
	}
}

func classify(gnorm, viol float64, opts Options, iter int) string {
	switch {
	case gnorm < opts.Tol*10 && viol < opts.ConstrViolTol*10:
		return "optimal"
	case viol < opts.ConstrViolTol*100:
		return "acceptable"
	case viol > 1.0:
		return "infeasible"
	case iter >= opts.MaxIter:
		return "iteration_limit"
	default:
		return "other"
	}
}

// merit is the relaxed-log-barrier + quadratic-penalty function Newton
// minimizes at a fixed (mu,rho). Finite everywhere: inequalities near or
// past the wall use barrierTerm's quadratic continuation instead of an
// infinite -log(0).
func merit(p *Problem, x []float64, mu, rho float64) float64 {
	obj := p.Model.Objective(x)
	for _, g := range p.evalIneq(x) {
		obj += mu * barrierTerm(g)
	}
	for _, r := range p.evalEq(x) {
		obj += 0.5 * rho * r * r
	}
	return obj
}

// barrierTerm is the relaxed log-barrier for one inequality g(x) <= 0:
// -log(-g) for g <= -delta, continued by the C1 quadratic
// -log(delta) + ((g+2*delta)/delta)^2/2 - 1/2 past the relaxation point.
func barrierTerm(g float64) float64 {
	if g <= -barrierDelta {
		return -math.Log(-g)
	}
	s := (g + 2*barrierDelta) / barrierDelta
	return -math.Log(barrierDelta) + 0.5*s*s - 0.5
}

// numGrad is the central-difference gradient of merit wrt the free
// variables, step-scaled per variable (Variable.Scale) so badly scaled
// fields (Kv, dmdt) do not dominate the difference quotient.
func numGrad(p *Problem, x []float64, mu, rho float64) []float64 {
	nf := len(p.Free)
	g := make([]float64, nf)
	xw := make([]float64, len(x))
	la.VecCopy(xw, 1, x)
	for i, fi := range p.Free {
		h := fdStep(p.Model.Variables[fi].Scale)
		orig := xw[fi]
		xw[fi] = orig + h
		fp := merit(p, xw, mu, rho)
		xw[fi] = orig - h
		fm := merit(p, xw, mu, rho)
		xw[fi] = orig
		g[i] = (fp - fm) / (2 * h)
	}
	return g
}

// numHess builds a forward-difference Hessian (Jacobian of numGrad),
// symmetrized and Levenberg-regularized so the Newton system stays
// solvable near a barrier wall or a flat direction.
func numHess(p *Problem, x []float64, mu, rho float64, g0 []float64) *mat.Dense {
	nf := len(p.Free)
	H := mat.NewDense(nf, nf, nil)
	xw := make([]float64, len(x))
	la.VecCopy(xw, 1, x)
	for j, fj := range p.Free {
		h := fdStep(p.Model.Variables[fj].Scale)
		orig := xw[fj]
		xw[fj] = orig + h
		gj := numGrad(p, xw, mu, rho)
		xw[fj] = orig
		for i := 0; i < nf; i++ {
			H.Set(i, j, (gj[i]-g0[i])/h)
		}
	}
	// symmetrize + regularize
	for i := 0; i < nf; i++ {
		for j := i + 1; j < nf; j++ {
			avg := 0.5 * (H.At(i, j) + H.At(j, i))
			H.Set(i, j, avg)
			H.Set(j, i, avg)
		}
		H.Set(i, i, H.At(i, i)+1e-8)
	}
	return H
}

func solveNewton(H *mat.Dense, grad []float64) ([]float64, error) {
	n := len(grad)
	b := mat.NewVecDense(n, negate(grad))
	var x mat.VecDense
	if err := x.SolveVec(H, b); err != nil {
		return nil, err
	}
	return x.RawVector().Data, nil
}

// lineSearch backtracks (halving) until the trial point decreases the
// merit function, the fraction-to-boundary role in this relaxed-barrier
// formulation: a step that overshoots a barrier wall blows the quadratic
// continuation up and is rejected the same way a log(0) would have been.
func lineSearch(p *Problem, x []float64, dx []float64, mu, rho float64) float64 {
	f0 := merit(p, x, mu, rho)
	alpha := 1.0
	xw := make([]float64, len(x))
	la.VecCopy(xw, 1, x)
	for iter := 0; iter < 40; iter++ {
		for i, fi := range p.Free {
			xw[fi] = x[fi] + alpha*dx[i]
		}
		f := merit(p, xw, mu, rho)
		if !math.IsNaN(f) && f < f0 {
			return alpha
		}
		alpha *= 0.5
	}
	return alpha
}

func fdStep(scale float64) float64 {
	if scale <= 0 {
		scale = 1
	}
	return 1e-6 / scale
}

func negate(v []float64) []float64 {
	r := make([]float64, len(v))
	for i, x := range v {
		r[i] = -x
	}
	return r
}

func containsNaNOrInf(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
