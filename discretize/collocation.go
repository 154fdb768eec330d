// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package discretize

import (
	"gonum.org/v1/gonum/mat"
)

// CollocationRadau discretizes tau in [0,1] by orthogonal collocation on
// finite elements at Radau IIA roots. Because the last root is always 1.0,
// the final collocation point of element e coincides with the element
// boundary, so it doubles as the "local node 0" of element e+1: continuity
// (Lck_{e+1,0}=Lck_{e,end}) falls out of the shared global index rather
// than needing a separate equation.
type CollocationRadau struct {
	NElementsRequestedVal int  // the user-facing n_elements (see EffectiveNFE)
	Ncp                   int  // 2, 3, or 5
	EffectiveNFE          bool // reinterpret NElementsRequestedVal as total interior points

	nElementsApplied int
	roots            []float64 // Ncp Radau roots on (0,1]
	diffMatrix       *mat.Dense
}

// Init must be called once before use; it resolves the effective-NFE
// parity rule and builds the per-element differentiation matrix.
func (o *CollocationRadau) Init() {
	o.roots = radauRoots[o.Ncp]
	if o.EffectiveNFE {
		n := (o.NElementsRequestedVal + o.Ncp - 1) / o.Ncp // ceil
		if n < 1 {
			n = 1
		}
		o.nElementsApplied = n
	} else {
		o.nElementsApplied = o.NElementsRequestedVal
	}
	o.diffMatrix = buildDiffMatrix(o.roots)
}

// buildDiffMatrix returns the (ncp+1)x(ncp+1) Lagrange differentiation
// matrix over the local nodes {0, roots[0], ..., roots[ncp-1]}, using the
// barycentric-weight formula (Trefethen, Spectral Methods in MATLAB §6):
// D[i][j] = (w_j/w_i)/(x_i-x_j) for i!=j, D[i][i] = -sum_{j!=i} D[i][j].
func buildDiffMatrix(roots []float64) *mat.Dense {
	n := len(roots) + 1
	x := make([]float64, n)
	x[0] = 0
	copy(x[1:], roots)

	w := make([]float64, n)
	for j := 0; j < n; j++ {
		prod := 1.0
		for k := 0; k < n; k++ {
			if k != j {
				prod *= x[j] - x[k]
			}
		}
		w[j] = 1.0 / prod
	}

	D := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		var diag float64
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			d := (w[j] / w[i]) / (x[i] - x[j])
			D.Set(i, j, d)
			diag -= d
		}
		D.Set(i, i, diag)
	}
	return D
}

// PlaceMesh returns the global mesh: tau=0, then Ncp Radau points per
// element, scaled and shifted into [0,1].
func (o *CollocationRadau) PlaceMesh() []float64 {
	h := 1.0 / float64(o.nElementsApplied)
	pts := make([]float64, 0, 1+o.nElementsApplied*o.Ncp)
	pts = append(pts, 0)
	for e := 0; e < o.nElementsApplied; e++ {
		left := float64(e) * h
		for _, r := range o.roots {
			pts = append(pts, left+r*h)
		}
	}
	pts[len(pts)-1] = 1.0 // avoid float drift at the right endpoint
	return pts
}

// DifferentialLinks returns Ncp links per element: for each local
// collocation index j=1..Ncp, sum_i D[j][i]*Lck(local_i) = h_e*Tf*f(state
// at local node j).
func (o *CollocationRadau) DifferentialLinks() []DiffLink {
	ncp := o.Ncp
	h := 1.0 / float64(o.nElementsApplied)
	links := make([]DiffLink, 0, o.nElementsApplied*ncp)
	for e := 0; e < o.nElementsApplied; e++ {
		// global indices of this element's local nodes 0..ncp
		local := make([]int, ncp+1)
		local[0] = e * ncp // = 0 for e=0, else last collocation point of element e-1
		for j := 1; j <= ncp; j++ {
			local[j] = e*ncp + j
		}
		for j := 1; j <= ncp; j++ {
			coeffs := make([]float64, ncp+1)
			for i := 0; i <= ncp; i++ {
				coeffs[i] = o.diffMatrix.At(j, i)
			}
			links = append(links, DiffLink{
				Points:     append([]int(nil), local...),
				Coeffs:     coeffs,
				EvalPoints: []int{local[j]},
				LocalStep:  h,
			})
		}
	}
	return links
}

// AlgebraicReplicaPoints returns every mesh point index, since collocation
// replicates the algebraic block at every collocation point.
func (o *CollocationRadau) AlgebraicReplicaPoints() []int {
	n := o.TotalMeshPoints()
	idx := make([]int, n)
	for k := range idx {
		idx[k] = k
	}
	return idx
}

// TotalMeshPoints is 1 + nElementsApplied*Ncp.
func (o *CollocationRadau) TotalMeshPoints() int { return 1 + o.nElementsApplied*o.Ncp }

func (o *CollocationRadau) NElementsRequested() int { return o.NElementsRequestedVal }
func (o *CollocationRadau) NElementsApplied() int   { return o.nElementsApplied }
