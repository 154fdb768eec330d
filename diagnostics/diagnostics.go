// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diagnostics dehomogenizes the solved model's tau-indexed state
// back to physical time, extracts the 7-column trajectory, and assembles
// the model-size/termination/fingerprint/environment metadata of one
// solved case. It returns a struct and never touches the filesystem;
// persistence is the benchmark runner's concern.
package diagnostics

import (
	"math"
	"runtime"
	"strings"
	"time"

	"github.com/cpmech/gosl/utl"
	"github.com/cpmech/lyodry/dae"
	"github.com/cpmech/lyodry/lyoerr"
	"github.com/cpmech/lyodry/nlp"
	"github.com/cpmech/lyodry/physics"
	"github.com/cpmech/lyodry/stage"
	"github.com/cpmech/lyodry/warmstart"
)

// TrajectoryPoint is one row of the 7-column trajectory contract:
// (t[hr], Tsub[degC], Tbot[degC], Tsh[degC], Pch[mTorr], flux[kg/hr],
// frac_dried[0,1]).
type TrajectoryPoint struct {
	T         float64
	Tsub      float64
	Tbot      float64
	Tsh       float64
	PchMTorr  float64
	Flux      float64
	FracDried float64
}

// ModelSize is the solved case's variable/constraint/objective count,
// plus the constraint-Jacobian nonzero count the NLP's sparsity hints
// imply.
type ModelSize struct {
	NVariables   int
	NConstraints int
	NObjectives  int
	JacobianNNZ  int
}

// Environment captures the runtime stack version metadata recorded with
// every solved case, analogous to the interpreter/modeling-library/solver
// triple of the external benchmark record schema.
type Environment struct {
	LanguageVersion    string
	ModelingLibVersion string
	SolverVersion      string
	OS                 string
}

// Warmstart summarizes how (and whether) the solve was warm-started.
type Warmstart struct {
	Enabled            bool
	SourceHash         string
	VariableMatchRatio float64
}

// Termination codes: 0 optimal, 1 iteration/time limit, 2 infeasible,
// 3 unbounded, -1 other.
const (
	TermOptimal        = 0
	TermIterationLimit = 1
	TermInfeasible     = 2
	TermUnbounded      = 3
	TermOther          = -1
)

// Result is the fully assembled diagnostics/extraction output.
type Result struct {
	Trajectory        []TrajectoryPoint
	ModelSize         ModelSize
	Termination       int
	OptionFingerprint string
	Environment       Environment
	CodeVersion       string
	WallTime          time.Duration
	SolverCPUTime     time.Duration
	Warmstart         Warmstart

	MaxRampViolation map[string]float64
	DrynessShortfall float64
	Failed           bool
	FailureStage     lyoerr.Stage
}

// Extract builds the full diagnostics Result from a solved model, the
// staged driver's stage trace, the option set used, and the warm-start
// summary (nil if warm-start was disabled).
func Extract(m *dae.Model, sres *stage.Result, opts nlp.Options, ws *warmstart.Init, wallTime time.Duration, codeVersion string) (*Result, error) {
	x := m.X0()
	tf := x[m.TfIdx]
	if tf <= 0 || math.IsNaN(tf) || math.IsInf(tf, 0) {
		return nil, &lyoerr.NumericError{Field: "Tf", Index: -1}
	}

	traj := make([]TrajectoryPoint, len(m.Points))
	lpr0 := physics.Lpr0(m.Scenario.Vial.Vfill, m.Scenario.Vial.Ap, m.Scenario.Product.CSolid)
	for k, pv := range m.Points {
		for _, v := range []float64{x[pv.Tsub], x[pv.Tbot], x[pv.Tsh], x[pv.Pch], x[pv.Dmdt], x[pv.Lck]} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &lyoerr.NumericError{Field: "trajectory", Index: k}
			}
		}
		traj[k] = TrajectoryPoint{
			T:         pv.Tau * tf,
			Tsub:      x[pv.Tsub],
			Tbot:      x[pv.Tbot],
			Tsh:       x[pv.Tsh],
			PchMTorr:  x[pv.Pch] * 1000.0,
			Flux:      x[pv.Dmdt],
			FracDried: x[pv.Lck] / lpr0,
		}
	}

	var solverCPU time.Duration
	for _, sr := range sres.Stages {
		solverCPU += sr.CPUTime
	}

	result := &Result{
		Trajectory: traj,
		ModelSize: ModelSize{
			NVariables:   m.NVariables(),
			NConstraints: m.NConstraints(),
			NObjectives:  m.NObjectives(),
			JacobianNNZ:  nlp.NewProblem(m).NNZ(),
		},
		Termination:       termination(sres),
		OptionFingerprint: opts.Fingerprint(),
		Environment: Environment{
			LanguageVersion:    runtime.Version(),
			ModelingLibVersion: "lyodry-dae-v1",
			SolverVersion:      "lyodry-nlp-v1",
			OS:                 runtime.GOOS,
		},
		CodeVersion:   codeVersion,
		WallTime:      wallTime,
		SolverCPUTime: solverCPU,
		Warmstart:     warmstartBlock(ws),
	}

	result.MaxRampViolation = maxRampViolation(m, x)
	result.DrynessShortfall = utl.Max(0, 0.99-traj[len(traj)-1].FracDried)

	if err := postCheck(m, x, result); err != nil {
		return result, err
	}
	return result, nil
}

func warmstartBlock(ws *warmstart.Init) Warmstart {
	if ws == nil {
		return Warmstart{}
	}
	return Warmstart{Enabled: ws.Enabled, SourceHash: ws.SourceHash, VariableMatchRatio: ws.VariableMatchRatio}
}

func termination(sres *stage.Result) int {
	if len(sres.Stages) == 0 {
		return TermOther
	}
	last := sres.Stages[len(sres.Stages)-1]
	switch last.Status {
	case "optimal", "acceptable":
		return TermOptimal
	case "iteration_limit":
		return TermIterationLimit
	case "infeasible":
		return TermInfeasible
	default:
		return TermOther
	}
}

// maxRampViolation scans the model's ramp constraints (named
// "<Control>_ramp_up"/"<Control>_ramp_down" by package ramp) and returns
// the max positive-part violation per released control.
func maxRampViolation(m *dae.Model, x []float64) map[string]float64 {
	out := map[string]float64{}
	for _, c := range m.Constraints {
		if c.Family != dae.FamRamp {
			continue
		}
		control := strings.TrimSuffix(strings.TrimSuffix(c.Name, "_ramp_up"), "_ramp_down")
		v := utl.Max(0, c.Eval(x))
		if v > out[control] {
			out[control] = v
		}
	}
	return out
}
