// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ldblock

import "math"

// LDStat holds the four pairwise linkage-disequilibrium measures for
// a marker pair: D, D', r and r^2. Dprime is NaN when |D| < epsilon,
// where D' is undefined.
type LDStat struct {
	D, Dprime, R, R2 float64
}

// pairCounts returns the 2x2 contingency table for markers a, b along
// with the major allele frequencies needed to derive D.
func (v *HaplotypeView) pairCounts(a, b int) (c counts2x2, pa, pb float64) {
	return v.contingency(a, b), v.p[a], v.p[b]
}

// ComputeLD computes D, D', r and r^2 for marker pair (a, b). D is
// derived from the observed n00 cell and the major-allele
// frequencies; D' divides by the appropriate D_max depending on the
// sign of D; r^2 divides D^2 by the product of the two markers'
// allele-frequency variances, and r divides D by its square root.
func (v *HaplotypeView) ComputeLD(a, b int) LDStat {
	c, pa, pb := v.pairCounts(a, b)
	h := float64(v.h)
	d := float64(c.n00)/h - pa*pb

	var dprime float64
	switch {
	case d > epsilon:
		dmax := math.Min(pa*(1-pb), (1-pa)*pb)
		dprime = d / dmax
	case d < -epsilon:
		dmax := math.Min(pa*pb, (1-pa)*(1-pb))
		dprime = d / dmax
	default:
		dprime = math.NaN()
	}

	denom := pa * (1 - pa) * pb * (1 - pb)
	r := d / math.Sqrt(denom)
	r2 := (d * d) / denom

	return LDStat{D: d, Dprime: dprime, R: r, R2: r2}
}

// Rsq is a convenience accessor for rsq-mode classification and the
// `ld` command.
func (v *HaplotypeView) Rsq(a, b int) float64 {
	return v.ComputeLD(a, b).R2
}
