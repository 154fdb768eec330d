// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package discretize

// BackwardEuler discretizes tau in [0,1] into NElements uniform intervals
// and links the differential state at each interval boundary to the
// previous boundary by a first-order implicit (backward) difference.
// The algebraic block is imposed at every boundary, including k=0.
type BackwardEuler struct {
	NElements int // >= 1, validated by scenario.Validate before this is built
}

// PlaceMesh returns NElements+1 uniformly spaced points over [0,1].
func (o *BackwardEuler) PlaceMesh() []float64 {
	n := o.NElements
	pts := make([]float64, n+1)
	h := 1.0 / float64(n)
	for k := 0; k <= n; k++ {
		pts[k] = float64(k) * h
	}
	pts[n] = 1.0 // avoid float drift at the right endpoint
	return pts
}

// DifferentialLinks returns one link per interval boundary k=1..n:
// Lck_k - Lck_{k-1} = h*Tf*f(state_k).
func (o *BackwardEuler) DifferentialLinks() []DiffLink {
	n := o.NElements
	h := 1.0 / float64(n)
	links := make([]DiffLink, n)
	for k := 1; k <= n; k++ {
		links[k-1] = DiffLink{
			Points:     []int{k - 1, k},
			Coeffs:     []float64{-1, 1},
			EvalPoints: []int{k},
			LocalStep:  h,
		}
	}
	return links
}

// AlgebraicReplicaPoints returns every mesh point index, since BE imposes
// the algebraic block at every boundary including the initial point.
func (o *BackwardEuler) AlgebraicReplicaPoints() []int {
	n := o.NElements
	idx := make([]int, n+1)
	for k := range idx {
		idx[k] = k
	}
	return idx
}

// TotalMeshPoints is NElements+1.
func (o *BackwardEuler) TotalMeshPoints() int { return o.NElements + 1 }

// NElementsRequested/NElementsApplied: BE never reinterprets n_elements,
// so both are identical (the effective-NFE parity rule only adjusts
// collocation's element count).
func (o *BackwardEuler) NElementsRequested() int { return o.NElements }
func (o *BackwardEuler) NElementsApplied() int   { return o.NElements }
