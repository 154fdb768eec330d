// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bench implements the benchmark record schema v2 and a
// process-per-case grid runner for the simultaneous-vs-sequential
// comparison.
package bench

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"runtime"
	"sort"

	"github.com/cpmech/lyodry/diagnostics"
)

// HashBlock carries the two fingerprints the schema's reuse rule depends
// on: a hash of the case's inputs (for dedup lookup) and a hash of the
// full emitted record (for change detection).
type HashBlock struct {
	Inputs string `json:"inputs"`
	Record string `json:"record"`
}

// EnvironmentBlock names the runtime stack that produced the record. The
// "python"/"pyomo"/"ipopt" keys are part of the stable external schema
// and are always present, filled with this module's own stack
// identifiers, since this implementation plays both the "scipy"
// (sequential) and "pyomo" (simultaneous) solver roles. "pyomo" and
// "ipopt" are empty strings in records whose simultaneous solve produced
// no diagnostics block.
type EnvironmentBlock struct {
	Python    string `json:"python"`
	Pyomo     string `json:"pyomo"`
	Ipopt     string `json:"ipopt"`
	OS        string `json:"os"`
	Host      string `json:"host"`
	Timestamp string `json:"timestamp"`
}

// GridParam is one varied scenario field, named by its dotted path.
type GridParam struct {
	Path  string  `json:"path"`
	Value float64 `json:"value"`
}

// SolverBlock is the generic termination-status pair every method result
// carries.
type SolverBlock struct {
	Status               string `json:"status"`
	TerminationCondition string `json:"termination_condition"`
}

// DiscretizationBlock records the mesh the simultaneous solver actually
// used, including the requested-vs-applied element count.
type DiscretizationBlock struct {
	Method             string `json:"method"`
	NElementsRequested int    `json:"n_elements_requested"`
	NElementsApplied   int    `json:"n_elements_applied"`
	NCollocation       int    `json:"n_collocation"`
	EffectiveNFE       bool   `json:"effective_nfe"`
	TotalMeshPoints    int    `json:"total_mesh_points"`
}

// TrajRow is one row of the 7-column trajectory contract: (t[hr],
// Tsub[degC], Tbot[degC], Tsh[degC], Pch[mTorr], flux[kg/hr],
// frac_dried[0,1]). Marshaled as a bare JSON array, never a binary blob.
type TrajRow [7]float64

// MethodResult is the per-method ("scipy" or "pyomo") block of a Record.
type MethodResult struct {
	Success         bool                 `json:"success"`
	WallTimeS       float64              `json:"wall_time_s"`
	ObjectiveTimeHr float64              `json:"objective_time_hr"`
	Solver          SolverBlock          `json:"solver"`
	Metrics         map[string]float64   `json:"metrics"`
	Discretization  *DiscretizationBlock `json:"discretization,omitempty"`
	WarmstartUsed   *bool                `json:"warmstart_used,omitempty"`
	Diagnostics     map[string]any       `json:"diagnostics,omitempty"`
	Trajectory      []TrajRow            `json:"trajectory"`
}

// ErrorBlock surfaces a pre-solve failure (validation, missing solver) in
// the persisted record, so the benchmark dataset stays complete even for
// cases that never reached a solver. Omitted entirely for cases that
// solved.
type ErrorBlock struct {
	Type    string   `json:"type"`
	Fields  []string `json:"fields,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Record is the full persisted benchmark record, schema version 2.
type Record struct {
	Version     int                  `json:"version"`
	Hash        HashBlock            `json:"hash"`
	Environment EnvironmentBlock     `json:"environment"`
	Task        string               `json:"task"`
	Scenario    string               `json:"scenario"`
	Grid        map[string]GridParam `json:"grid"`
	Scipy       *MethodResult        `json:"scipy,omitempty"`
	Pyomo       *MethodResult        `json:"pyomo,omitempty"`
	Error       *ErrorBlock          `json:"error,omitempty"`
	Failed      bool                 `json:"failed"`
}

// newEnvironment fills the environment block with this module's own
// runtime stack, copying diagEnv's modeling-library and solver version
// strings into the "pyomo" and "ipopt" slots (the simultaneous solver's
// Go analogues).
func newEnvironment(diagEnv diagnostics.Environment, host, timestamp string) EnvironmentBlock {
	return EnvironmentBlock{
		Python:    runtime.Version(),
		Pyomo:     diagEnv.ModelingLibVersion,
		Ipopt:     diagEnv.SolverVersion,
		OS:        diagEnv.OS,
		Host:      host,
		Timestamp: timestamp,
	}
}

// trajectoryRows converts a diagnostics trajectory into the schema's bare
// 7-column row format.
func trajectoryRows(traj []diagnostics.TrajectoryPoint) []TrajRow {
	rows := make([]TrajRow, len(traj))
	for i, p := range traj {
		rows[i] = TrajRow{p.T, p.Tsub, p.Tbot, p.Tsh, p.PchMTorr, p.Flux, p.FracDried}
	}
	return rows
}

// hashInputs fingerprints the fields that determine whether a case needs
// re-running: task, scenario name, grid values, and method set.
func hashInputs(task, scenarioName string, grid map[string]GridParam, methods []Method) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|", task, scenarioName)
	for _, m := range methods {
		fmt.Fprintf(h, "%s,", m)
	}
	for _, k := range sortedKeys(grid) {
		g := grid[k]
		fmt.Fprintf(h, "%s=%s:%.12g;", k, g.Path, g.Value)
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}

// hashRecord fingerprints the fully assembled record (minus its own hash
// block) so downstream consumers can detect drift between two runs of the
// same case.
func hashRecord(r *Record) string {
	cp := *r
	cp.Hash = HashBlock{}
	b, _ := json.Marshal(cp)
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%x", sum)[:16]
}

func sortedKeys(m map[string]GridParam) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
