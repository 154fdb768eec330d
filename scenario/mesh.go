// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scenario

// Method selects the discretization strategy.
type Method string

const (
	MethodBackwardEuler Method = "backward_euler"
	MethodCollocation   Method = "collocation_radau"
)

// MeshSpec describes the time-mesh discretization.
type MeshSpec struct {
	Method       Method `json:"method"`
	NElements    int    `json:"n_elements"`
	NCollocation int    `json:"n_collocation"` // collocation only; 2, 3, or 5
	EffectiveNFE bool   `json:"effective_nfe"`
}
