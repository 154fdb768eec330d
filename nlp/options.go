// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nlp implements the algebraic NLP built from a dae.Model and a
// primal log-barrier interior-point Newton solve over it. Options are
// passed by value on every call and fingerprinted, so no solver-object
// state can leak between runs in a benchmarking loop.
package nlp

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Options is the solver option surface. A fresh Options value is
// constructed per call; nothing here is a pointer to shared mutable
// state.
type Options struct {
	MaxIter            int     // treated as an outer*inner iteration budget
	Tol                float64 // 1e-6
	ConstrViolTol      float64 // 1e-6..1e-7
	MuStrategy         string  // "adaptive" or "monotone"
	LinearSolver       string  // informational only; this solver always uses a dense KKT-style solve
	WarmStartBoundPush bool    // enabled ONLY when the caller explicitly requests warm-start; never a sticky default
	CPUTimeBudgetSec   float64 // hard cap checked by Solve between iterations; 0 = no cap
}

// DefaultOptions returns the baseline option set for a single-control
// mode. Joint mode callers should raise MaxIter themselves.
func DefaultOptions() Options {
	return Options{
		MaxIter:       5000,
		Tol:           1e-6,
		ConstrViolTol: 1e-6,
		MuStrategy:    "adaptive",
		LinearSolver:  "dense",
	}
}

// Fingerprint is the first 16 hex characters of a SHA-256 digest over the
// full option set, used by diagnostics.Result.OptionFingerprint to detect
// silent configuration drift across runs.
func (o Options) Fingerprint() string {
	s := fmt.Sprintf("maxiter=%d;tol=%.3e;cviol=%.3e;mu=%s;lin=%s;wsbp=%v;cpu=%.3e",
		o.MaxIter, o.Tol, o.ConstrViolTol, o.MuStrategy, o.LinearSolver, o.WarmStartBoundPush, o.CPUTimeBudgetSec)
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}
