// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package discretize

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func Test_be_mesh_ordering_and_links(tst *testing.T) {
	chk.PrintTitle("be_mesh_ordering_and_links")
	be := &BackwardEuler{NElements: 5}
	pts := be.PlaceMesh()
	if len(pts) != 6 {
		tst.Fatalf("expected 6 mesh points, got %d", len(pts))
	}
	for k := 1; k < len(pts); k++ {
		if pts[k] <= pts[k-1] {
			tst.Errorf("mesh points must be strictly increasing: pts[%d]=%.6g <= pts[%d]=%.6g", k, pts[k], k-1, pts[k-1])
		}
	}
	links := be.DifferentialLinks()
	if len(links) != 5 {
		tst.Fatalf("expected 5 differential links, got %d", len(links))
	}
	if be.TotalMeshPoints() != 6 {
		tst.Errorf("TotalMeshPoints mismatch")
	}
	if be.NElementsRequested() != be.NElementsApplied() {
		tst.Errorf("BE must never reinterpret n_elements")
	}
}

func Test_collocation_mesh_ordering(tst *testing.T) {
	chk.PrintTitle("collocation_mesh_ordering")
	c := &CollocationRadau{NElementsRequestedVal: 4, Ncp: 3, EffectiveNFE: false}
	c.Init()
	pts := c.PlaceMesh()
	if len(pts) != c.TotalMeshPoints() {
		tst.Fatalf("PlaceMesh length %d != TotalMeshPoints %d", len(pts), c.TotalMeshPoints())
	}
	for k := 1; k < len(pts); k++ {
		if pts[k] <= pts[k-1] {
			tst.Errorf("mesh points must be strictly increasing at k=%d: %.6g <= %.6g", k, pts[k], pts[k-1])
		}
	}
	links := c.DifferentialLinks()
	if len(links) != c.nElementsApplied*c.Ncp {
		tst.Errorf("expected %d differential links, got %d", c.nElementsApplied*c.Ncp, len(links))
	}
}

func Test_effective_nfe_parity(tst *testing.T) {
	chk.PrintTitle("effective_nfe_parity")
	be := &BackwardEuler{NElements: 100}
	c := &CollocationRadau{NElementsRequestedVal: 100, Ncp: 3, EffectiveNFE: true}
	c.Init()
	diff := be.TotalMeshPoints() - c.TotalMeshPoints()
	if diff < -3 || diff > 3 {
		tst.Errorf("expected BE/collocation total_mesh_points to match within +-3, got BE=%d colloc=%d", be.TotalMeshPoints(), c.TotalMeshPoints())
	}
	if c.NElementsApplied() != 34 { // ceil(100/3)
		tst.Errorf("expected n_elements_applied=34, got %d", c.NElementsApplied())
	}
	if c.NElementsRequested() != 100 {
		tst.Errorf("n_elements_requested must preserve the original request")
	}
}

func Test_collocation_continuity_shares_global_index(tst *testing.T) {
	chk.PrintTitle("collocation_continuity_shares_global_index")
	c := &CollocationRadau{NElementsRequestedVal: 3, Ncp: 2, EffectiveNFE: false}
	c.Init()
	links := c.DifferentialLinks()
	// the first local node of element e>0 must be the last collocation
	// point's global index of element e-1: local[0] = e*ncp.
	for e := 1; e < c.nElementsApplied; e++ {
		firstLinkOfElem := links[e*c.Ncp]
		if firstLinkOfElem.Points[0] != e*c.Ncp {
			tst.Errorf("element %d continuity index mismatch: got %d want %d", e, firstLinkOfElem.Points[0], e*c.Ncp)
		}
	}
}
