// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ldblock

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ciZ is the one-sided 5% normal quantile (1.644854) used to turn
// Var(D') into a two-sided 90% interval.
var ciZ = distuv.Normal{Mu: 0, Sigma: 1}.Quantile(0.95)

// ciAsymptoticVariance implements the Zapata et al. (1997)
// asymptotic-variance CI on D'.
func (v *HaplotypeView) ciAsymptoticVariance(a, b int) (lower, upper float64) {
	c := v.contingency(a, b)
	pa, pb := v.p[a], v.p[b]
	h := float64(v.h)
	n := n00n01n10n11Total(c)

	d := float64(c.n00)/h - pa*pb
	if math.Abs(d) < epsilon {
		return math.NaN(), math.NaN()
	}

	varD := (pa*(1-pa)*pb*(1-pb) + d*((1-pa)-pa)*((1-pb)-pb) - d*d) / h

	var dmax, f, psi float64
	switch {
	case d > 0:
		dmaxFirst := pa * (1 - pb)
		dmaxSecond := (1 - pa) * pb
		if dmaxFirst <= dmaxSecond {
			f = float64(c.n01) / n
			dmax = dmaxFirst
		} else {
			f = float64(c.n10) / n
			dmax = dmaxSecond
		}
		psi = pa*pb + (1-pa)*(1-pb)
	default: // d < 0
		dmaxFirst := pa * pb
		dmaxSecond := (1 - pa) * (1 - pb)
		if dmaxFirst <= dmaxSecond {
			f = float64(c.n00) / n
			dmax = dmaxFirst
		} else {
			f = float64(c.n11) / n
			dmax = dmaxSecond
		}
		psi = pa*(1-pb) + (1-pa)*pb
	}

	dprime := d / dmax
	absDprime := math.Abs(dprime)

	varDprime := (1.0 / (h * dmax * dmax)) *
		((1-absDprime)*(h*varD-absDprime*dmax*(psi-2*math.Abs(d))) + absDprime*f*(1-f))
	if varDprime < 0 {
		varDprime = 0
	}

	sd := math.Sqrt(varDprime)
	lower = dprime - ciZ*sd
	upper = dprime + ciZ*sd
	if lower < -1 {
		lower = -1
	}
	if upper > 1 {
		upper = 1
	}
	return lower, upper
}

func n00n01n10n11Total(c counts2x2) float64 {
	return float64(c.n00 + c.n01 + c.n10 + c.n11)
}
