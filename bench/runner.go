// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bench

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	gio "github.com/cpmech/gosl/io"
	"github.com/cpmech/lyodry/baseline"
	"github.com/cpmech/lyodry/dae"
	"github.com/cpmech/lyodry/diagnostics"
	"github.com/cpmech/lyodry/lyoerr"
	"github.com/cpmech/lyodry/nlp"
	"github.com/cpmech/lyodry/ramp"
	"github.com/cpmech/lyodry/scenario"
	"github.com/cpmech/lyodry/stage"
	"github.com/cpmech/lyodry/warmstart"
)

// CaseRunner executes exactly one resolved case and returns its Record.
// Production use supplies SubprocessCaseRunner (one OS process per case,
// so solver and linear-algebra state can never bleed across cases);
// InProcessCaseRunner is used directly by the child process itself, and
// by tests that don't want to exec a real binary.
type CaseRunner func(ctx context.Context, cs Case) (*Record, error)

// Registry resolves a pre-registered scenario name to its definition.
// Scenario dictionaries themselves live outside this module; the Runner
// only needs to look one up by name.
type Registry map[string]*scenario.Scenario

// InProcessCaseRunner builds the real case executor: dae.Build -> ramp ->
// (optional) warmstart -> stage.Driver -> diagnostics.Extract -> Record.
// This is what a single-case child process (or a test) invokes directly.
func InProcessCaseRunner(reg Registry, refSource baseline.Source, codeVersion string) CaseRunner {
	return func(ctx context.Context, cs Case) (*Record, error) {
		cfg := cs.Config
		sc, ok := reg[cfg.Scenario]
		if !ok {
			return nil, &lyoerr.InvalidScenario{Fields: []string{fmt.Sprintf("scenario: unknown name %q", cfg.Scenario)}}
		}
		resolved := *sc
		for _, g := range cs.Grid {
			var err error
			resolved, err = scenario.ApplyOverrides(resolved, g.Path, g.Value)
			if err != nil {
				return nil, &lyoerr.InvalidScenario{Fields: []string{err.Error()}}
			}
		}
		applyTask(&resolved, cfg.Task)
		if cfg.RampTshMax > 0 {
			resolved.Controls.Tsh.RampMax = cfg.RampTshMax
		}
		if cfg.RampPchMax > 0 {
			resolved.Controls.Pch.RampMax = cfg.RampPchMax
		}

		host, _ := os.Hostname()
		rec := &Record{
			Version:     2,
			Task:        string(cfg.Task),
			Scenario:    cfg.Scenario,
			Grid:        cs.Grid,
			Environment: newEnvironment(diagnostics.Environment{OS: runtime.GOOS}, host, time.Now().Format(time.RFC3339)),
		}

		for _, method := range cfg.Methods {
			switch method {
			case MethodSequentialBaseline:
				// The sequential solver itself is an external collaborator;
				// only its trajectory, consumed via baseline.Source, is
				// available here.
				mr, err := runBaseline(ctx, refSource, cfg)
				if err != nil {
					return nil, err
				}
				rec.Scipy = mr
			case MethodFiniteDifferences, MethodCollocation:
				mr, err := runSimultaneous(ctx, &resolved, cfg, method, refSource, codeVersion)
				var failure *lyoerr.StageFailure
				var pcv *lyoerr.PostCheckViolation
				var numErr *lyoerr.NumericError
				var timeout *lyoerr.Timeout
				switch {
				case err == nil:
					rec.Pyomo = mr
				case errors.As(err, &failure):
					rec.Pyomo = mr
					rec.Failed = true
				case errors.As(err, &pcv):
					rec.Pyomo = mr
					rec.Failed = true
				case errors.As(err, &timeout):
					// partial record, termination=1: the process boundary
					// keeps subsequent cases clean.
					rec.Pyomo = mr
					rec.Failed = true
				case errors.As(err, &numErr):
					rec.Failed = true
				default:
					return nil, err
				}
				if rec.Pyomo != nil {
					if env, ok := rec.Pyomo.Diagnostics["environment"].(diagnostics.Environment); ok {
						rec.Environment = newEnvironment(env, rec.Environment.Host, rec.Environment.Timestamp)
					}
				}
			}
		}
		return rec, nil
	}
}

func applyTask(sc *scenario.Scenario, task Task) {
	switch task {
	case TaskTsh:
		sc.Mode = scenario.ModeTsh
	case TaskPch:
		sc.Mode = scenario.ModePch
	case TaskBoth:
		sc.Mode = scenario.ModeBoth
	}
}

func runBaseline(ctx context.Context, src baseline.Source, cfg Config) (*MethodResult, error) {
	if src == nil {
		return nil, &lyoerr.SolverUnavailable{Reason: "sequential_baseline requested but no baseline.Source configured"}
	}
	start := time.Now()
	traj, err := src.Load(cfg.Scenario)
	if err != nil {
		return nil, &lyoerr.SolverUnavailable{Reason: err.Error()}
	}
	rows := make([]TrajRow, len(traj.Points))
	for i, p := range traj.Points {
		pch := p.Pch
		if traj.PchUnit == baseline.PressureTorr {
			pch *= 1000.0
		}
		rows[i] = TrajRow{p.T, p.Tsub, p.Tbot, p.Tsh, pch, p.Flux, p.FracDried}
	}
	return &MethodResult{
		Success:         true,
		WallTimeS:       time.Since(start).Seconds(),
		ObjectiveTimeHr: traj.TFinal(),
		Solver:          SolverBlock{Status: "optimal", TerminationCondition: "baseline"},
		Metrics:         map[string]float64{},
		Trajectory:      rows,
	}, nil
}

func runSimultaneous(ctx context.Context, sc *scenario.Scenario, cfg Config, method Method, refSource baseline.Source, codeVersion string) (*MethodResult, error) {
	start := time.Now()

	meshMethod := scenario.MethodBackwardEuler
	if method == MethodCollocation {
		meshMethod = scenario.MethodCollocation
	}
	mesh := scenario.MeshSpec{
		Method:       meshMethod,
		NElements:    cfg.NElements,
		NCollocation: cfg.NCollocation,
		EffectiveNFE: cfg.EffectiveNFE,
	}

	m, err := dae.Build(sc, mesh)
	if err != nil {
		return nil, err
	}
	if err := ramp.AttachRamp(m); err != nil {
		return nil, err
	}

	var ws *warmstart.Init
	if cfg.Warmstart && refSource != nil {
		traj, err := refSource.Load(cfg.Scenario)
		if err != nil {
			return nil, &lyoerr.WarmStartInconsistent{Residuals: map[string]float64{"load_error": 1}, Tol: 0}
		}
		ws, err = warmstart.Adapt(traj, m)
		if err != nil {
			return nil, err
		}
	}

	opts := nlp.DefaultOptions()
	opts.WarmStartBoundPush = cfg.Warmstart
	driver := stage.NewDriver(m, logrus.NewEntry(logrus.StandardLogger()))
	sres, runErr := driver.Run(ctx, ws, stage.Options{NLP: opts})

	wall := time.Since(start)
	if runErr != nil {
		var sf *lyoerr.StageFailure
		if errors.As(runErr, &sf) {
			return &MethodResult{
				Success:     false,
				WallTimeS:   wall.Seconds(),
				Solver:      SolverBlock{Status: sf.Status, TerminationCondition: string(sf.Stage)},
				Metrics:     map[string]float64{},
				Diagnostics: map[string]any{"failure_stage": string(sf.Stage)},
			}, runErr
		}
		var to *lyoerr.Timeout
		if errors.As(runErr, &to) {
			return &MethodResult{
				Success:     false,
				WallTimeS:   wall.Seconds(),
				Solver:      SolverBlock{Status: "timeout", TerminationCondition: "iteration_limit"},
				Metrics:     map[string]float64{},
				Diagnostics: map[string]any{"failure_stage": string(to.Stage), "termination": diagnostics.TermIterationLimit},
			}, runErr
		}
		return nil, runErr
	}

	diag, diagErr := diagnostics.Extract(m, sres, opts, ws, wall, codeVersion)
	if diagErr != nil {
		var numErr *lyoerr.NumericError
		if errors.As(diagErr, &numErr) {
			return nil, diagErr
		}
		// PostCheckViolation: diag is still populated, propagate both.
	}

	discretization := &DiscretizationBlock{
		Method:             string(meshMethod),
		NElementsRequested: m.Mesh.NElementsRequested(),
		NElementsApplied:   m.Mesh.NElementsApplied(),
		NCollocation:       cfg.NCollocation,
		EffectiveNFE:       cfg.EffectiveNFE,
		TotalMeshPoints:    m.Mesh.TotalMeshPoints(),
	}
	warmstartUsed := ws != nil
	mr := &MethodResult{
		Success:         !diag.Failed,
		WallTimeS:       wall.Seconds(),
		ObjectiveTimeHr: diag.Trajectory[len(diag.Trajectory)-1].T,
		Solver:          SolverBlock{Status: statusOf(diag.Termination), TerminationCondition: statusOf(diag.Termination)},
		Metrics: map[string]float64{
			"dryness_shortfall": diag.DrynessShortfall,
		},
		Discretization: discretization,
		WarmstartUsed:  &warmstartUsed,
		Diagnostics:    diagnosticsMap(diag),
		Trajectory:     trajectoryRows(diag.Trajectory),
	}
	return mr, diagErr
}

func statusOf(term int) string {
	switch term {
	case diagnostics.TermOptimal:
		return "optimal"
	case diagnostics.TermIterationLimit:
		return "iteration_limit"
	case diagnostics.TermInfeasible:
		return "infeasible"
	case diagnostics.TermUnbounded:
		return "unbounded"
	default:
		return "other"
	}
}

func diagnosticsMap(r *diagnostics.Result) map[string]any {
	out := map[string]any{
		"model_size":         r.ModelSize,
		"option_fingerprint": r.OptionFingerprint,
		"environment":        r.Environment,
		"warmstart":          r.Warmstart,
		"max_ramp_violation": r.MaxRampViolation,
	}
	if r.FailureStage != "" {
		out["failure_stage"] = string(r.FailureStage)
	}
	return out
}

// SubprocessCaseRunner builds a CaseRunner that re-invokes selfExe with
// childArgs, writing cs as JSON on stdin and parsing a Record as JSON from
// stdout, per the concurrency model's "one case per os/exec-spawned child
// process" mandate. The child process is expected to call
// InProcessCaseRunner itself after reading the case from stdin.
func SubprocessCaseRunner(selfExe string, childArgs ...string) CaseRunner {
	return func(ctx context.Context, cs Case) (*Record, error) {
		payload, err := json.Marshal(cs)
		if err != nil {
			return nil, err
		}
		cmd := exec.CommandContext(ctx, selfExe, childArgs...)
		cmd.Stdin = bytes.NewReader(payload)
		var stdout bytes.Buffer
		cmd.Stdout = &stdout
		if err := cmd.Run(); err != nil {
			return nil, &lyoerr.SolverUnavailable{Reason: "subprocess case runner: " + err.Error()}
		}
		var rec Record
		if err := json.Unmarshal(stdout.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("subprocess case runner: decoding record: %w", err)
		}
		return &rec, nil
	}
}

// Runner drives a full grid: expansion, hash-based dedup, per-case
// execution, and newline-delimited JSON persistence.
type Runner struct {
	Run            CaseRunner
	Out            io.Writer
	ExistingHashes map[string]bool // input-hashes already persisted, for dedup skip
	WallTimeBudget time.Duration
	Log            *logrus.Entry
}

// NewRunner wires a Runner. log may be nil (a fresh entry is created).
func NewRunner(run CaseRunner, out io.Writer, log *logrus.Entry) *Runner {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Runner{Run: run, Out: out, ExistingHashes: map[string]bool{}, Log: log}
}

// RunGrid executes every case of cfg's grid expansion and returns a
// process exit code: 0 success, 2 user error (validation), 3
// solver-unavailable, 4 I/O error. It never returns a Go error for a
// solver-level failure - those become a persisted Record with
// Failed=true. A failing case never aborts the sweep: its failure record
// is written and the remaining cases still run, so the dataset stays
// complete; the first failure's code becomes the exit code.
func (r *Runner) RunGrid(ctx context.Context, cfg Config) int {
	gio.PfWhite("\nlyodry bench grid: scenario=%s task=%s methods=%v\n", cfg.Scenario, cfg.Task, cfg.Methods)

	exitCode := 0
	for _, cs := range Expand(cfg) {
		inputsHash := hashInputs(string(cfg.Task), cfg.Scenario, cs.Grid, cfg.Methods)
		if !cfg.Force && r.ExistingHashes[inputsHash] {
			r.Log.WithField("hash", inputsHash).Info("skipping existing case")
			continue
		}

		caseCtx := ctx
		var cancel context.CancelFunc = func() {}
		if r.WallTimeBudget > 0 {
			caseCtx, cancel = context.WithTimeout(ctx, r.WallTimeBudget)
		}
		rec, err := r.Run(caseCtx, cs)
		cancel()

		if err != nil {
			// Every failure still becomes a persisted record; only the
			// exit code distinguishes user/environment errors.
			var invalid *lyoerr.InvalidScenario
			var unavail *lyoerr.SolverUnavailable
			code := 4
			eb := &ErrorBlock{Type: "Internal", Message: err.Error()}
			switch {
			case errors.As(err, &invalid):
				r.Log.WithError(err).Error("invalid scenario")
				code = 2
				eb = &ErrorBlock{Type: "InvalidScenario", Fields: invalid.Fields}
			case errors.As(err, &unavail):
				r.Log.WithError(err).Error("solver unavailable")
				code = 3
				eb = &ErrorBlock{Type: "SolverUnavailable", Message: unavail.Reason}
			default:
				r.Log.WithError(err).Error("case execution failed")
			}
			r.persistFailure(cfg, cs, inputsHash, eb)
			r.ExistingHashes[inputsHash] = true
			if exitCode == 0 {
				exitCode = code
			}
			continue
		}

		rec.Hash.Inputs = inputsHash
		rec.Hash.Record = hashRecord(rec)
		if err := r.writeRecord(rec); err != nil {
			r.Log.WithError(err).Error("failed to persist record")
			return 4
		}
		r.ExistingHashes[inputsHash] = true
	}

	gio.PfGreen("lyodry bench grid: done\n")
	return exitCode
}

// persistFailure writes a record for a case that never produced a solver
// result, carrying the classifying ErrorBlock instead of method blocks.
func (r *Runner) persistFailure(cfg Config, cs Case, inputsHash string, eb *ErrorBlock) {
	host, _ := os.Hostname()
	rec := &Record{
		Version:     2,
		Task:        string(cfg.Task),
		Scenario:    cfg.Scenario,
		Grid:        cs.Grid,
		Environment: newEnvironment(diagnostics.Environment{OS: runtime.GOOS}, host, time.Now().Format(time.RFC3339)),
		Error:       eb,
		Failed:      true,
	}
	rec.Hash.Inputs = inputsHash
	rec.Hash.Record = hashRecord(rec)
	if err := r.writeRecord(rec); err != nil {
		r.Log.WithError(err).Error("failed to persist failure record")
	}
}

func (r *Runner) writeRecord(rec *Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = r.Out.Write(append(b, '\n'))
	return err
}
