// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lyoerr implements the error taxonomy of the staged solver: one
// distinct, inspectable type per failure class, so a caller (in particular
// the benchmark grid runner) can classify a failure without parsing text.
package lyoerr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// InvalidScenario is raised by the DAE model builder before any NLP
// variable is created. It lists every offending field so a malformed
// bound never surfaces as a wall of solver diagnostics far from the cause.
type InvalidScenario struct {
	Fields []string // e.g. "controls.Pch: Pch_min (0.3) >= Pch_max (0.2)"
}

func (e *InvalidScenario) Error() string {
	return fmt.Sprintf("invalid scenario: %s", strings.Join(e.Fields, "; "))
}

// NewInvalidScenario builds an InvalidScenario from a (possibly empty) list
// of violations. Returns nil if there are no violations, so callers can
// write `if err := NewInvalidScenario(v); err != nil { return err }`.
func NewInvalidScenario(violations []string) error {
	if len(violations) == 0 {
		return nil
	}
	return &InvalidScenario{Fields: violations}
}

// SolverUnavailable indicates the nonlinear solver backend required by a
// stage could not be reached. Non-retryable.
type SolverUnavailable struct {
	Reason string
}

func (e *SolverUnavailable) Error() string {
	return fmt.Sprintf("solver unavailable: %s", e.Reason)
}

// WarmStartInconsistent indicates a reference trajectory violates the
// model's algebraic relations beyond tolerance. Residuals are attached so a caller can decide whether to
// proceed with them logged or refuse, per the adapter's configuration.
type WarmStartInconsistent struct {
	Residuals map[string]float64
	Tol       float64
}

func (e *WarmStartInconsistent) Error() string {
	return fmt.Sprintf("warm-start reference inconsistent beyond tol=%.3e: %d residual(s) out of range", e.Tol, len(e.Residuals))
}

// Stage identifies one of the four staged-solve phases.
type Stage string

const (
	StageBuild    Stage = "build_error"
	StagePresolve Stage = "presolve"
	StageF        Stage = "stage_F"
	StageT        Stage = "stage_T"
	StageC        Stage = "stage_C"
	StageO        Stage = "stage_O"
	StagePostchk  Stage = "postcheck"
)

// StageFailure indicates the NLP solver returned a non-optimal status in a
// stage and the single relaxed-tolerance retry also failed.
type StageFailure struct {
	Stage  Stage
	Status string // e.g. "infeasible", "iteration_limit", "other"
	Cause  error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("stage %s failed (%s)", e.Stage, e.Status)
}

func (e *StageFailure) Unwrap() error { return e.Cause }

// PostCheckViolation indicates the dryness target was not met or a ramp
// bound was exceeded beyond tolerance after an otherwise-optimal solve. The
// trajectory and diagnostics are preserved; this is a flag, not a crash.
type PostCheckViolation struct {
	DrynessShortfall float64
	MaxRampViolation map[string]float64
}

func (e *PostCheckViolation) Error() string {
	return fmt.Sprintf("post-check violation: dryness shortfall=%.4g, %d ramp violation(s)", e.DrynessShortfall, len(e.MaxRampViolation))
}

// Timeout indicates a CPU- or wall-time budget was exceeded mid-stage.
type Timeout struct {
	Stage   Stage
	Elapsed float64 // seconds
	Budget  float64 // seconds
}

func (e *Timeout) Error() string {
	return fmt.Sprintf("timeout in stage %s after %.1fs (budget %.1fs)", e.Stage, e.Elapsed, e.Budget)
}

// NumericError indicates a non-finite value was found in an extracted
// trajectory. The record is flagged and discarded from downstream
// aggregation rather than propagated as a crash.
type NumericError struct {
	Field string
	Index int
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("non-finite value in %s at mesh point %d", e.Field, e.Index)
}

// Wrap attaches context to err using github.com/pkg/errors, preserving the
// original error's type for errors.As/errors.Is and Cause().
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// Cause unwraps a chain built by Wrap back to its root cause.
func Cause(err error) error {
	return errors.Cause(err)
}
