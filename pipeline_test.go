// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ldblock

import (
	"gopkg.in/check.v1"
)

type pipelineSuite struct{}

var _ = check.Suite(&pipelineSuite{})

func rsqPipelineConfig() Config {
	return Config{
		MAF:       0,
		Generator: rsqConfig(0.8, 0.2),
		Prune:     PruneMethod{Kind: PruneMIG},
	}
}

// TestAllIdenticalHaplotypes: when every haplotype string is the
// same, all markers are monomorphic, the MAF>0 filter drops them all,
// and the empty view yields an empty partition without error.
func (s *pipelineSuite) TestAllIdenticalHaplotypes(c *check.C) {
	v, err := viewFromHaplotypes([]int64{1, 2, 3, 4, 5},
		[]byte{'A', 'A', 'A', 'A', 'A'}, []byte{'T', 'C', 'G', 'T', 'C'},
		repeat("AAAAA", 10), 0)
	c.Assert(err, check.IsNil)
	c.Assert(v.Empty(), check.Equals, true)

	p, err := DiscoverBlocks(v, rsqPipelineConfig())
	c.Assert(err, check.IsNil)
	c.Check(p.Blocks, check.HasLen, 0)
}

// TestPerfectLDSingleBlock: two complementary phases in perfect LD
// across all five markers collapse into the single block (0, 4).
func (s *pipelineSuite) TestPerfectLDSingleBlock(c *check.C) {
	v := perfectLDView(c)
	p, err := DiscoverBlocks(v, rsqPipelineConfig())
	c.Assert(err, check.IsNil)
	c.Assert(p.Blocks, check.HasLen, 1)

	b := p.Blocks[0]
	c.Check(b.Start, check.Equals, 0)
	c.Check(b.End, check.Equals, 4)
	c.Check(b.End-b.Start+1, check.Equals, 5)
	c.Check(b.NHaps, check.Equals, 20)
	c.Check(b.NUniqueHaps, check.Equals, 2)
	c.Check(b.NCommonHaps, check.Equals, 2)
	c.Check(b.Diversity, check.Equals, 1.0)
}

// TestPerfectLDSingleBlockWP runs the same fixture through the
// Wall-Pritchard CI classifier instead of rsq mode. With D'=1 the
// posterior mass piles up at the top of the grid, the interval lands
// well inside the default strong band, and the same single block
// falls out.
func (s *pipelineSuite) TestPerfectLDSingleBlockWP(c *check.C) {
	v := perfectLDView(c)
	cfg := Config{
		Generator: GeneratorConfig{
			Ci:      CiMethod{Kind: CiWP, LDensity: 100},
			LStrong: 0.70, UStrong: 0.98, URecomb: 0.90, Phi: 0.95,
		},
		Prune: PruneMethod{Kind: PruneMIG},
	}
	p, err := DiscoverBlocks(v, cfg)
	c.Assert(err, check.IsNil)
	c.Assert(p.Blocks, check.HasLen, 1)
	c.Check(p.Blocks[0].Start, check.Equals, 0)
	c.Check(p.Blocks[0].End, check.Equals, 4)
}

// TestPerfectLDSingleBlockAV: with |D'|=1 the asymptotic variance of
// D' degenerates to zero, the interval collapses to [1, 1], and the
// AV classifier agrees with WP and rsq mode on the block.
func (s *pipelineSuite) TestPerfectLDSingleBlockAV(c *check.C) {
	v := perfectLDView(c)
	cfg := Config{
		Generator: GeneratorConfig{
			Ci:      CiMethod{Kind: CiAV},
			LStrong: 0.70, UStrong: 0.98, URecomb: 0.90, Phi: 0.95,
		},
		Prune: PruneMethod{Kind: PruneMIG},
	}
	p, err := DiscoverBlocks(v, cfg)
	c.Assert(err, check.IsNil)
	c.Assert(p.Blocks, check.HasLen, 1)
	c.Check(p.Blocks[0].Start, check.Equals, 0)
	c.Check(p.Blocks[0].End, check.Equals, 4)
}

// TestRecombinationSplitsBlocks: markers 0-1 are in perfect LD while
// marker 2 is independent of both, so only (0, 1) is a candidate and
// the final partition is that single block.
func (s *pipelineSuite) TestRecombinationSplitsBlocks(c *check.C) {
	pos := []int64{1, 2, 3}
	ref := []byte{'A', 'C', 'G'}
	alt := []byte{'T', 'G', 'T'}
	haps := append(append(append(
		repeat("ACG", 10),
		repeat("ACT", 10)...),
		repeat("TGG", 10)...),
		repeat("TGT", 10)...)
	v, err := viewFromHaplotypes(pos, ref, alt, haps, 0)
	c.Assert(err, check.IsNil)
	c.Assert(v.M(), check.Equals, 3)

	cands := pruneMIG(v, rsqConfig(0.8, 0.2))
	c.Check(candidateKeys(cands), check.DeepEquals, []string{"0-1"})

	p, err := DiscoverBlocks(v, rsqPipelineConfig())
	c.Assert(err, check.IsNil)
	c.Assert(p.Blocks, check.HasLen, 1)
	c.Check(p.Blocks[0].Start, check.Equals, 0)
	c.Check(p.Blocks[0].End, check.Equals, 1)
}

// TestMIGPlusPlusReproducesMIG: for the perfect-LD fixture, MIG++
// with window=1 emits the same candidate set MIG does, and the
// partition is the single block (0, 4).
func (s *pipelineSuite) TestMIGPlusPlusReproducesMIG(c *check.C) {
	v := perfectLDView(c)
	gen := rsqConfig(0.8, 0.2)
	mig := candidateKeys(pruneMIG(v, gen))
	migpp := candidateKeys(pruneMIGPlusPlus(v, gen, 1))
	c.Check(migpp, check.DeepEquals, mig)

	cfg := Config{Generator: gen, Prune: PruneMethod{Kind: PruneMIGPlusPlus, Window: 1}}
	p, err := DiscoverBlocks(v, cfg)
	c.Assert(err, check.IsNil)
	c.Assert(p.Blocks, check.HasLen, 1)
	c.Check(p.Blocks[0].Start, check.Equals, 0)
	c.Check(p.Blocks[0].End, check.Equals, 4)
}

// TestMIGPlusPlusDefaultWindow: leaving the window unset selects
// max(1, floor(M*(1-phi)/2)) and still reproduces the MIG candidate
// set.
func (s *pipelineSuite) TestMIGPlusPlusDefaultWindow(c *check.C) {
	v := perfectLDView(c)
	gen := rsqConfig(0.8, 0.2)
	c.Check(defaultWindow(v.M(), gen.Phi), check.Equals, 1)

	mig := candidateKeys(GenerateCandidates(v, gen, PruneMethod{Kind: PruneMIG}))
	migpp := candidateKeys(GenerateCandidates(v, gen, PruneMethod{Kind: PruneMIGPlusPlus}))
	c.Check(migpp, check.DeepEquals, mig)

	cfg := Config{Generator: gen, Prune: PruneMethod{Kind: PruneMIGPlusPlus}}
	p, err := DiscoverBlocks(v, cfg)
	c.Assert(err, check.IsNil)
	c.Assert(p.Blocks, check.HasLen, 1)
}

// TestDiversityTwoCommonHaplotypes: M=2, H=4, haplotypes AA, AA, CT,
// CT; both markers pass MAF at p=0.5 and both distinct haplotypes are
// observed twice.
func (s *pipelineSuite) TestDiversityTwoCommonHaplotypes(c *check.C) {
	pos := []int64{1, 2}
	ref := []byte{'A', 'A'}
	alt := []byte{'C', 'T'}
	haps := []string{"AA", "AA", "CT", "CT"}
	v, err := viewFromHaplotypes(pos, ref, alt, haps, 0)
	c.Assert(err, check.IsNil)
	c.Assert(v.M(), check.Equals, 2)
	c.Check(v.MajorFreq(0), check.Equals, 0.5)
	c.Check(v.MajorFreq(1), check.Equals, 0.5)

	nHaps, nUnique, nCommon, diversity := blockDiversity(v, 0, 1)
	c.Check(nHaps, check.Equals, 4)
	c.Check(nUnique, check.Equals, 2)
	c.Check(nCommon, check.Equals, 2)
	c.Check(diversity, check.Equals, 1.0)
}

// TestMAFFilterLeavesOneMarker: with maf=0.05 only the 0.6-frequency
// marker survives (1-0.95 = 0.05 fails the strict inequality); a
// one-marker view is empty and the partition stays empty.
func (s *pipelineSuite) TestMAFFilterLeavesOneMarker(c *check.C) {
	pos := []int64{10, 20, 30}
	ref := []byte{'A', 'A', 'A'}
	alt := []byte{'T', 'T', 'T'}
	// Build three independent single-marker views (H=100 each) so the
	// filter outcome of each frequency is checked on its own.
	v60, err := viewFromHaplotypes(pos[:1], ref[:1], alt[:1], append(repeat("A", 60), repeat("T", 40)...), 0.05)
	c.Assert(err, check.IsNil)
	c.Check(v60.M(), check.Equals, 1)

	v95, err := viewFromHaplotypes(pos[1:2], ref[1:2], alt[1:2], append(repeat("A", 95), repeat("T", 5)...), 0.05)
	c.Assert(err, check.IsNil)
	c.Check(v95.M(), check.Equals, 0)

	v99, err := viewFromHaplotypes(pos[2:], ref[2:], alt[2:], append(repeat("A", 99), repeat("T", 1)...), 0.05)
	c.Assert(err, check.IsNil)
	c.Check(v99.M(), check.Equals, 0)

	c.Check(v60.Empty(), check.Equals, true)

	p, err := DiscoverBlocks(v60, rsqPipelineConfig())
	c.Assert(err, check.IsNil)
	c.Check(p.Blocks, check.HasLen, 0)
}

// TestPartitionDisjoint: accepted blocks never share a marker,
// regardless of how densely candidates overlap.
func (s *pipelineSuite) TestPartitionDisjoint(c *check.C) {
	v := perfectLDView(c)
	p, err := DiscoverBlocks(v, rsqPipelineConfig())
	c.Assert(err, check.IsNil)
	used := make(map[int]bool)
	for _, b := range p.Blocks {
		for i := b.Start; i <= b.End; i++ {
			c.Check(used[i], check.Equals, false)
			used[i] = true
		}
	}
}

// TestDiscoverBlocksValidatesConfig confirms the pipeline surfaces a
// PreconditionError instead of panicking on an invalid configuration.
func (s *pipelineSuite) TestDiscoverBlocksValidatesConfig(c *check.C) {
	v := perfectLDView(c)
	cfg := rsqPipelineConfig()
	cfg.Prune = PruneMethod{Kind: PruneMIGPlusPlus, Window: -1}
	_, err := DiscoverBlocks(v, cfg)
	c.Assert(err, check.FitsTypeOf, &PreconditionError{})

	cfg = rsqPipelineConfig()
	cfg.MAF = 0.7
	_, err = DiscoverBlocks(v, cfg)
	c.Assert(err, check.FitsTypeOf, &PreconditionError{})
}
