// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ldblock

import log "github.com/sirupsen/logrus"

// Region names one chromosome/bp window to run the block-discovery
// pipeline over. Load builds the region's View; it is called on the
// worker goroutine that owns the region, so loaders with their own
// internal buffers (bufio.Scanner, pgzip readers) need no
// synchronization.
type Region struct {
	Name string
	Load func() (*HaplotypeView, error)
}

// RegionResult pairs a region's outcome with its name so a caller
// iterating results (e.g. to open one output file per region) can
// tell them apart. Err set means Partition is nil.
type RegionResult struct {
	Name      string
	Partition *Partition
	View      *HaplotypeView
	Err       error
}

// RunRegions maps each region to an independent task and runs up to
// maxParallel concurrently. Each region's View, candidate buffer and
// Partition are task-private; only the throttle and the results slice
// are shared, and the results slice is written at a task-exclusive
// index so no locking is needed. Emission order within one region's
// own partition is deterministic regardless of how regions interleave
// across goroutines.
//
// The returned error is the first region failure observed (also
// recorded in that region's RegionResult.Err); remaining regions
// still run to completion.
func RunRegions(regions []Region, cfg Config, maxParallel int) ([]RegionResult, error) {
	if maxParallel < 1 {
		maxParallel = 1
	}
	results := make([]RegionResult, len(regions))
	t := &throttle{Max: maxParallel}
	for i, region := range regions {
		i, region := i, region
		t.Acquire()
		go func() {
			defer t.Release()
			results[i] = runRegion(region, cfg)
			t.Report(results[i].Err)
		}()
	}
	return results, t.Wait()
}

func runRegion(region Region, cfg Config) RegionResult {
	v, err := region.Load()
	if err != nil {
		return RegionResult{Name: region.Name, Err: err}
	}
	if v.Empty() {
		logNotEnoughSNPs(region.Name, v.M())
		return RegionResult{Name: region.Name, View: v, Partition: &Partition{}}
	}
	p, err := DiscoverBlocks(v, cfg)
	if err != nil {
		return RegionResult{Name: region.Name, Err: err}
	}
	log.WithField("region", region.Name).Infof("%d blocks", len(p.Blocks))
	return RegionResult{Name: region.Name, View: v, Partition: p}
}
