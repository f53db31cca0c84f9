// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ldblock

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ciWallPritchard implements the Wall & Pritchard (2003) likelihood
// CI on D'. It grids D' over l+1 equispaced points, computes a
// log10-likelihood of the observed 2x2 table at each grid point's
// implied haplotype frequencies, converts to a posterior density, and
// walks in from each tail until 5% of the total mass is covered.
// Negative-D pairs are reflected onto positive D first, so the
// returned endpoints are always in [0, 1] and bound |D'|.
func (v *HaplotypeView) ciWallPritchard(a, b, l int) (lower, upper float64) {
	c := v.contingency(a, b)
	pa, pb := v.p[a], v.p[b]
	h := float64(v.h)
	d := float64(c.n00)/h - pa*pb

	if math.Abs(d) < epsilon {
		return math.NaN(), math.NaN()
	}
	if d < 0 {
		// Reflect marker b's labeling so the estimator always runs on
		// positive D; the returned bounds are an interval on |D'|, in
		// [0, 1] for reflected pairs too.
		c.n00, c.n01, c.n10, c.n11 = c.n01, c.n00, c.n11, c.n10
		pb = 1 - pb
		d = float64(c.n00)/h - pa*pb
	}
	dmax := math.Min(pa*(1-pb), (1-pa)*pb)

	n00, n01, n10, n11 := float64(c.n00), float64(c.n01), float64(c.n10), float64(c.n11)

	grid := make([]float64, l+1)
	loglik := make([]float64, l+1)
	maxLL := math.Inf(-1)
	for k := 0; k <= l; k++ {
		dk := float64(k) / float64(l)
		grid[k] = dk

		f00 := dk*dmax + pa*pb
		f01 := pa - f00
		f10 := pb - f00
		f11 := (1 - pa) - f10

		loglik[k] = n00*log10Clamped(f00) + n01*log10Clamped(f01) + n10*log10Clamped(f10) + n11*log10Clamped(f11)
		if loglik[k] > maxLL {
			maxLL = loglik[k]
		}
	}

	posterior := make([]float64, l+1)
	for k := range posterior {
		posterior[k] = math.Pow(10, loglik[k]-maxLL)
	}
	total := floats.Sum(posterior)
	tail := 0.05 * total

	lower = grid[0]
	var covered float64
	for k := 0; k <= l; k++ {
		covered += posterior[k]
		if covered > tail {
			if k != 0 {
				lower = grid[k-1]
			} else {
				lower = grid[0]
			}
			break
		}
	}

	upper = grid[l]
	covered = 0
	for k := l; k >= 0; k-- {
		covered += posterior[k]
		if covered > tail {
			if k != l {
				upper = grid[k+1]
			} else {
				upper = grid[l]
			}
			break
		}
	}

	return lower, upper
}

// log10Clamped computes log10(f), clamping f to 1e-10 when it is
// below epsilon to avoid log(0).
func log10Clamped(f float64) float64 {
	if f < epsilon {
		f = 1e-10
	}
	return math.Log10(f)
}
