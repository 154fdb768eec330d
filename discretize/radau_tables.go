// Copyright 2026 The Lyodry Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package discretize

// radauRoots holds the Radau IIA collocation points on (0,1] for the
// supported Ncp values (2, 3, 5), as literal constants rather than
// something computed by root-finding at runtime.
var radauRoots = map[int][]float64{
	2: {0.3333333333333333, 1.0},
	3: {0.15505102572168217, 0.6449489742783179, 1.0},
	5: {
		0.05710419611451768,
		0.27684301355771605,
		0.5835904323689168,
		0.8602401356562099,
		1.0,
	},
}
