// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stage implements the four-phase staged solve strategy
// (feasibility -> time minimization -> control release -> full
// optimization) by selectively fixing/unfixing dae.Model variables and
// re-invoking the nlp solver.
package stage

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cpmech/lyodry/dae"
	"github.com/cpmech/lyodry/lyoerr"
	"github.com/cpmech/lyodry/nlp"
	"github.com/cpmech/lyodry/scenario"
	"github.com/cpmech/lyodry/warmstart"
)

// Options bundles the per-stage NLP options. A distinct, higher max_iter
// is used for joint mode.
type Options struct {
	NLP          nlp.Options
	JointMaxIter int // overrides NLP.MaxIter for joint mode when > 0
}

// StageResult records one stage's outcome for the diagnostics block.
type StageResult struct {
	Stage      lyoerr.Stage
	Status     string
	Iterations int
	CPUTime    time.Duration
	Retried    bool
}

// Result is the staged driver's output: the final variable vector and a
// per-stage trace.
type Result struct {
	Stages []StageResult
	FinalX []float64
}

// Driver owns a dae.Model exclusively for the duration of Run: no other
// component may mutate the model concurrently.
type Driver struct {
	Model *dae.Model
	Log   *logrus.Entry
}

// NewDriver returns a Driver for m, logging through a fresh logrus entry if
// log is nil.
func NewDriver(m *dae.Model, log *logrus.Entry) *Driver {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Driver{Model: m, Log: log}
}

// Run executes Stage F (feasibility) -> T (time minimization) -> C (control
// release) -> O (full optimization), in that strict order. ws may be nil
// (cold start): the model's existing Variable.Init values are then used as
// the feasibility-stage fixings instead of a warm-started value.
func (d *Driver) Run(ctx context.Context, ws *warmstart.Init, opts Options) (*Result, error) {
	m := d.Model
	sc := m.Scenario
	tshReleased := sc.Mode == scenario.ModeTsh || sc.Mode == scenario.ModeBoth
	pchReleased := sc.Mode == scenario.ModePch || sc.Mode == scenario.ModeBoth

	nlpOpts := opts.NLP
	if sc.Mode == scenario.ModeBoth && opts.JointMaxIter > 0 {
		nlpOpts.MaxIter = opts.JointMaxIter
	}
	// Warm-start bound-push options only apply when the caller explicitly
	// requested warm-start, never leaking into a cold run.
	nlpOpts.WarmStartBoundPush = ws != nil && nlpOpts.WarmStartBoundPush

	res := &Result{}

	// Stage F: fix Tf and every released control at their current Init
	// (warm-started or builder-default) value; solve the algebraic block.
	d.fixReleasedControls(tshReleased, pchReleased)
	m.Fix(m.TfIdx, m.Variables[m.TfIdx].Init)
	if sr, err := d.solveStage(ctx, lyoerr.StageF, nlpOpts); err != nil {
		return nil, err
	} else {
		res.Stages = append(res.Stages, *sr)
	}

	// Stage T: unfix Tf; controls remain fixed.
	m.Unfix(m.TfIdx)
	if sr, err := d.solveStage(ctx, lyoerr.StageT, nlpOpts); err != nil {
		return nil, err
	} else {
		res.Stages = append(res.Stages, *sr)
	}

	// Stage C: release controls. In joint mode, release the thermally
	// dominant control (Tsh) first and solve, then release Pch and solve,
	// avoiding a large simultaneous jump.
	if sc.Mode == scenario.ModeBoth {
		d.unfixControl(m, pvTsh)
		if sr, err := d.solveStage(ctx, lyoerr.StageC, nlpOpts); err != nil {
			return nil, err
		} else {
			res.Stages = append(res.Stages, *sr)
		}
		d.unfixControl(m, pvPch)
		if sr, err := d.solveStage(ctx, lyoerr.StageC, nlpOpts); err != nil {
			return nil, err
		} else {
			res.Stages = append(res.Stages, *sr)
		}
	} else {
		if tshReleased {
			d.unfixControl(m, pvTsh)
		}
		if pchReleased {
			d.unfixControl(m, pvPch)
		}
		if sr, err := d.solveStage(ctx, lyoerr.StageC, nlpOpts); err != nil {
			return nil, err
		} else {
			res.Stages = append(res.Stages, *sr)
		}
	}

	// Stage O: full optimization, all degrees of freedom free, polishing
	// to the configured tolerance.
	if sr, err := d.solveStage(ctx, lyoerr.StageO, nlpOpts); err != nil {
		return nil, err
	} else {
		res.Stages = append(res.Stages, *sr)
	}

	res.FinalX = m.X0()
	return res, nil
}

type pvField int

const (
	pvTsh pvField = iota
	pvPch
)

func (d *Driver) unfixControl(m *dae.Model, field pvField) {
	for _, pv := range m.Points {
		idx := pv.Tsh
		if field == pvPch {
			idx = pv.Pch
		}
		m.Unfix(idx)
	}
}

func (d *Driver) fixReleasedControls(tshReleased, pchReleased bool) {
	m := d.Model
	for _, pv := range m.Points {
		if tshReleased {
			m.Fix(pv.Tsh, m.Variables[pv.Tsh].Init)
		}
		if pchReleased {
			m.Fix(pv.Pch, m.Variables[pv.Pch].Init)
		}
	}
}

// solveStage runs one nlp.Solve call for the model's current fixings,
// with one retry at relaxed tolerances if the first attempt is not
// optimal/acceptable.
func (d *Driver) solveStage(ctx context.Context, name lyoerr.Stage, opts nlp.Options) (*StageResult, error) {
	m := d.Model
	p := nlp.NewProblem(m)

	sol, err := nlp.Solve(ctx, p, opts)
	if err != nil {
		return nil, d.tagStage(err, name)
	}
	d.writeBack(sol.X)

	if sol.Status == "optimal" || sol.Status == "acceptable" {
		d.Log.WithFields(logrus.Fields{"stage": name, "status": sol.Status, "iters": sol.Iterations}).Debug("stage solved")
		return &StageResult{Stage: name, Status: sol.Status, Iterations: sol.Iterations, CPUTime: sol.CPUTime}, nil
	}

	d.Log.WithFields(logrus.Fields{"stage": name, "status": sol.Status}).Warn("stage non-optimal, retrying with relaxed tolerances")
	relaxed := opts
	relaxed.Tol *= 10
	relaxed.ConstrViolTol *= 10
	sol2, err := nlp.Solve(ctx, p, relaxed)
	if err != nil {
		return nil, d.tagStage(err, name)
	}
	d.writeBack(sol2.X)

	if sol2.Status == "optimal" || sol2.Status == "acceptable" {
		return &StageResult{Stage: name, Status: sol2.Status, Iterations: sol.Iterations + sol2.Iterations, CPUTime: sol.CPUTime + sol2.CPUTime, Retried: true}, nil
	}

	return nil, &lyoerr.StageFailure{Stage: name, Status: sol2.Status}
}

// tagStage records which stage a solver-level error surfaced in before
// propagating it, so Timeout records carry their failure_stage.
func (d *Driver) tagStage(err error, name lyoerr.Stage) error {
	var to *lyoerr.Timeout
	if errors.As(err, &to) {
		to.Stage = name
		return err
	}
	return lyoerr.Wrap(err, string(name))
}

func (d *Driver) writeBack(x []float64) {
	for i, v := range x {
		d.Model.SetInitial(i, v)
	}
}
