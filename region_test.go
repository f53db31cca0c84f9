// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ldblock

import (
	"errors"

	"gopkg.in/check.v1"
)

type regionSuite struct{}

var _ = check.Suite(&regionSuite{})

func (s *regionSuite) TestRunRegionsParallel(c *check.C) {
	v := perfectLDView(c)
	empty, err := viewFromHaplotypes([]int64{1}, []byte{'A'}, []byte{'T'},
		append(repeat("A", 6), repeat("T", 4)...), 0)
	c.Assert(err, check.IsNil)

	regions := []Region{
		{Name: "chr1:1-5", Load: func() (*HaplotypeView, error) { return v, nil }},
		{Name: "chr1:6-6", Load: func() (*HaplotypeView, error) { return empty, nil }},
		{Name: "chr1:1-5 again", Load: func() (*HaplotypeView, error) { return v, nil }},
	}

	results, err := RunRegions(regions, rsqPipelineConfig(), 2)
	c.Assert(err, check.IsNil)
	c.Assert(results, check.HasLen, 3)

	c.Check(results[0].Name, check.Equals, "chr1:1-5")
	c.Assert(results[0].Err, check.IsNil)
	c.Assert(results[0].Partition.Blocks, check.HasLen, 1)

	c.Check(results[1].Name, check.Equals, "chr1:6-6")
	c.Assert(results[1].Err, check.IsNil)
	c.Check(results[1].Partition.Blocks, check.HasLen, 0)

	// Region results are deterministic per region no matter how the
	// workers interleave.
	c.Check(results[2].Partition.Blocks, check.DeepEquals, results[0].Partition.Blocks)
}

func (s *regionSuite) TestRunRegionsLoadError(c *check.C) {
	v := perfectLDView(c)
	boom := errors.New("no such region")
	regions := []Region{
		{Name: "good", Load: func() (*HaplotypeView, error) { return v, nil }},
		{Name: "bad", Load: func() (*HaplotypeView, error) { return nil, boom }},
	}

	results, err := RunRegions(regions, rsqPipelineConfig(), 1)
	c.Assert(err, check.Equals, boom)
	c.Assert(results, check.HasLen, 2)
	c.Check(results[0].Err, check.IsNil)
	c.Assert(results[0].Partition.Blocks, check.HasLen, 1)
	c.Check(results[1].Err, check.Equals, boom)
	c.Check(results[1].Partition, check.IsNil)
}

func (s *regionSuite) TestRunRegionsNoRegions(c *check.C) {
	results, err := RunRegions(nil, rsqPipelineConfig(), 4)
	c.Assert(err, check.IsNil)
	c.Check(results, check.HasLen, 0)
}
