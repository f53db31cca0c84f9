// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ldblock

import (
	"fmt"
	"math"

	"gopkg.in/check.v1"
)

type ldstatSuite struct{}

var _ = check.Suite(&ldstatSuite{})

// perfectLDView builds the shared perfect-LD fixture: H=20, M=5, ten
// haplotypes "ACGTA" and ten "TGCAG". Every marker is at p=0.5 with
// its REF allele set to the "ACGTA" phase's base, so the major
// allele is well-defined and co-occurs across all five markers.
func perfectLDView(c *check.C) *HaplotypeView {
	pos := []int64{1, 2, 3, 4, 5}
	ref := []byte{'A', 'C', 'G', 'T', 'A'}
	alt := []byte{'T', 'G', 'C', 'A', 'G'}
	haps := append(repeat("ACGTA", 10), repeat("TGCAG", 10)...)
	v, err := viewFromHaplotypes(pos, ref, alt, haps, 0)
	c.Assert(err, check.IsNil)
	c.Assert(v.M(), check.Equals, 5)
	return v
}

func (s *ldstatSuite) TestPerfectLD(c *check.C) {
	v := perfectLDView(c)
	for i := 0; i < v.M(); i++ {
		for j := i + 1; j < v.M(); j++ {
			stat := v.ComputeLD(i, j)
			c.Check(fmt.Sprintf("%.6f", stat.D), check.Equals, "0.250000")
			c.Check(fmt.Sprintf("%.6f", stat.Dprime), check.Equals, "1.000000")
			c.Check(fmt.Sprintf("%.6f", stat.R2), check.Equals, "1.000000")
		}
	}
}

// TestLDSymmetry: swapping the pair's order leaves D, D' and r^2
// unchanged.
func (s *ldstatSuite) TestLDSymmetry(c *check.C) {
	v := perfectLDView(c)
	ab := v.ComputeLD(0, 1)
	ba := v.ComputeLD(1, 0)
	c.Check(ab.D, check.Equals, ba.D)
	c.Check(ab.Dprime, check.Equals, ba.Dprime)
	c.Check(ab.R2, check.Equals, ba.R2)
}

func (s *ldstatSuite) TestReflectionFlipsD(c *check.C) {
	pos := []int64{1, 2}
	ref := []byte{'A', 'C'}
	alt := []byte{'T', 'G'}
	haps := append(repeat("AC", 10), repeat("TG", 10)...)
	v, err := viewFromHaplotypes(pos, ref, alt, haps, 0)
	c.Assert(err, check.IsNil)

	// Reflect marker 0's labels by swapping ref/alt: the counts are
	// still a 10/10 tie, and the tie-break favors ref, so "T" becomes
	// major instead of "A".
	refSwapped := []byte{'T', 'C'}
	altSwapped := []byte{'A', 'G'}
	vReflected, err := viewFromHaplotypes(pos, refSwapped, altSwapped, haps, 0)
	c.Assert(err, check.IsNil)

	orig := v.ComputeLD(0, 1)
	reflected := vReflected.ComputeLD(0, 1)
	c.Check(fmt.Sprintf("%.9f", reflected.D), check.Equals, fmt.Sprintf("%.9f", -orig.D))
	c.Check(math.Abs(reflected.Dprime), check.Equals, math.Abs(orig.Dprime))
	c.Check(fmt.Sprintf("%.9f", reflected.R2), check.Equals, fmt.Sprintf("%.9f", orig.R2))
}

func (s *ldstatSuite) TestIndependentMarkersZeroD(c *check.C) {
	pos := []int64{1, 2}
	ref := []byte{'A', 'C'}
	alt := []byte{'T', 'G'}
	// Four equal-sized quartets: AC, AG, TC, TG (5 each) -> independent.
	haps := append(append(append(repeat("AC", 5), repeat("AG", 5)...), repeat("TC", 5)...), repeat("TG", 5)...)
	v, err := viewFromHaplotypes(pos, ref, alt, haps, 0)
	c.Assert(err, check.IsNil)
	stat := v.ComputeLD(0, 1)
	c.Check(fmt.Sprintf("%.9f", stat.D), check.Equals, "0.000000000")
	c.Check(math.IsNaN(stat.Dprime), check.Equals, true)
}
