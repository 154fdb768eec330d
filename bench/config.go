// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bench

// Task selects which control(s) the grid runner releases for a case.
type Task string

const (
	TaskTsh  Task = "Tsh"
	TaskPch  Task = "Pch"
	TaskBoth Task = "both"
)

// Method selects which solve strategy produces a case's trajectory.
// "sequential_baseline" is never executed by this module directly (it is
// the baseline package's external collaborator); a Config naming it
// without a baseline.Source attached fails with SolverUnavailable, which
// the Runner surfaces as exit code 3.
type Method string

const (
	MethodSequentialBaseline Method = "sequential_baseline"
	MethodFiniteDifferences  Method = "finite_differences"
	MethodCollocation        Method = "collocation"
)

// VarySpec is one `path=v1,v2,...` grid dimension: a dotted field path into
// scenario.Scenario (resolved via scenario.ApplyOverrides) and the values
// to sweep over it.
type VarySpec struct {
	Path   string
	Values []float64
}

// Config is the grid runner's whole configuration surface. No flag
// parsing lives here; a caller's own main constructs Config however it
// likes.
type Config struct {
	Task         Task
	Scenario     string
	Vary         []VarySpec
	Methods      []Method
	NElements    int
	NCollocation int
	Dt           float64
	Warmstart    bool
	EffectiveNFE bool
	RampTshMax   float64 // degC/hr, 0 = keep the scenario's own Tsh ramp limit
	RampPchMax   float64 // Torr/hr, 0 = keep the scenario's own Pch ramp limit
	Force        bool
}

// DefaultConfig returns the standard defaults: n_elements=24,
// n_collocation=3, effective_nfe=true, warmstart/force off.
func DefaultConfig(scenarioName string) Config {
	return Config{
		Task:         TaskTsh,
		Scenario:     scenarioName,
		Methods:      []Method{MethodFiniteDifferences, MethodCollocation},
		NElements:    24,
		NCollocation: 3,
		EffectiveNFE: true,
	}
}

// Case is one fully resolved grid point: a Config plus the concrete
// dotted-path=value overrides this particular case applies.
type Case struct {
	Config Config
	Grid   map[string]GridParam
}

// Expand enumerates every grid point of cfg.Vary as a cartesian product,
// returning one Case per combination (a single Case with an empty Grid if
// Vary is empty).
func Expand(cfg Config) []Case {
	if len(cfg.Vary) == 0 {
		return []Case{{Config: cfg, Grid: map[string]GridParam{}}}
	}
	combos := [][]float64{{}}
	for _, v := range cfg.Vary {
		var next [][]float64
		for _, c := range combos {
			for _, val := range v.Values {
				row := append(append([]float64{}, c...), val)
				next = append(next, row)
			}
		}
		combos = next
	}
	cases := make([]Case, 0, len(combos))
	for _, combo := range combos {
		grid := make(map[string]GridParam, len(cfg.Vary))
		for i, v := range cfg.Vary {
			grid[v.Path] = GridParam{Path: v.Path, Value: combo[i]}
		}
		cases = append(cases, Case{Config: cfg, Grid: grid})
	}
	return cases
}
