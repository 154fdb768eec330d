// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package baseline gives the sequential (shooting) baseline solver a
// concrete but narrow Go shape: only the trajectory format it produces is
// consumed here. The integration algorithm itself, CLI parsing, and
// scenario dictionaries live outside this module.
package baseline

// TrajectoryPoint is one sequentially integrated reference record.
type TrajectoryPoint struct {
	T         float64 // physical time [hr]
	Tsub      float64 // [degC]
	Tbot      float64 // [degC]
	Tsh       float64 // [degC]
	Pch       float64 // [Torr or mTorr, see Trajectory.PchUnit]
	Flux      float64 // dmdt [kg/hr]
	FracDried float64 // [0,1]
}

// PressureUnit distinguishes the two conventions sequential baselines
// commonly report Pch in; the warm-start adapter checks it before use.
type PressureUnit string

const (
	PressureTorr  PressureUnit = "Torr"
	PressureMTorr PressureUnit = "mTorr"
)

// Trajectory is a finite, sorted (by T, strictly increasing) sequence of
// reference records, as produced by an externally supplied sequential
// baseline solver.
type Trajectory struct {
	Points  []TrajectoryPoint
	PchUnit PressureUnit
}

// TFinal is the last record's time, used by the warm-start adapter to
// normalize t -> tau and to seed Tf.
func (t Trajectory) TFinal() float64 {
	if len(t.Points) == 0 {
		return 0
	}
	return t.Points[len(t.Points)-1].T
}

// Source loads a Trajectory from wherever the sequential baseline persists
// its output. Only the narrow interface is specified; any concrete
// implementation (file format, in-memory, RPC) lives outside this module.
type Source interface {
	Load(path string) (Trajectory, error)
}
