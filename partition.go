// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ldblock

import (
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// Block is one accepted, non-overlapping haplotype block together
// with its diversity statistics.
type Block struct {
	Start, End int
	SpanBP     int64

	NHaps       int
	NUniqueHaps int
	NCommonHaps int
	Diversity   float64
}

// Partition is the final, disjoint set of blocks selected from a
// candidate list, in the order they were accepted.
type Partition struct {
	Blocks []Block
}

// SelectPartition runs the greedy interval-partition selection:
// candidates are sorted by descending span (ascending start to break
// ties) and accepted into the partition so long as neither endpoint
// has already been claimed by an earlier, wider block. Checking only
// the endpoints suffices: accepted blocks are contiguous index
// intervals, and a previously accepted block overlapping the interior
// of (s, e) without touching either endpoint would have to sit
// strictly inside it, which the sort order rules out.
func SelectPartition(v *HaplotypeView, candidates []CandidateBlock) *Partition {
	sorted := make([]CandidateBlock, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].SpanBP != sorted[j].SpanBP {
			return sorted[i].SpanBP > sorted[j].SpanBP
		}
		return sorted[i].Start < sorted[j].Start
	})

	used := make([]bool, v.M())
	p := &Partition{}

	for _, c := range sorted {
		if used[c.Start] || used[c.End] {
			continue
		}

		nHaps, nUnique, nCommon, diversity := blockDiversity(v, c.Start, c.End)
		p.Blocks = append(p.Blocks, Block{
			Start: c.Start, End: c.End, SpanBP: c.SpanBP,
			NHaps: nHaps, NUniqueHaps: nUnique, NCommonHaps: nCommon, Diversity: diversity,
		})

		for i := c.Start; i <= c.End; i++ {
			used[i] = true
		}
	}

	return p
}

// haplotypeKey hashes a raw marker-allele slice with blake2b so
// haplotype tallying can use a fixed-size comparable map key instead
// of repeated string scans over long marker spans.
func haplotypeKey(hap []byte) [32]byte {
	return blake2b.Sum256(hap)
}

// blockDiversity computes the diversity statistics for the marker
// span [start, end].
//
// Every observed haplotype (one per chromosome copy, read column-wise
// across [start, end]) is tallied verbatim. Strings carrying
// ambiguity codes (bases outside A/C/G/T) compare as wildcards at
// those positions, so distinct tallied strings can still be mutually
// compatible. A string whose compatible set contains two mutually
// incompatible members cannot be assigned to a single haplotype and
// is removed from consideration; its observations do not count toward
// nHaps. The survivors are grouped by compatibility, each joining the
// first existing group (in case-insensitive lexicographic order)
// whose representative it is compatible with. Diversity is the
// fraction of counted occurrences that belong to a group observed
// more than once.
func blockDiversity(v *HaplotypeView, start, end int) (nHaps, nUniqueHaps, nCommonHaps int, diversity float64) {
	n := end - start + 1

	type tally struct {
		hap   []byte
		count int
		alive bool
	}

	observed := make(map[[32]byte]*tally)
	var tallies []*tally

	buf := make([]byte, n)
	for h := 0; h < v.H(); h++ {
		for k, marker := 0, start; marker <= end; marker, k = marker+1, k+1 {
			buf[k] = v.Haplotype(marker, h)
		}
		key := haplotypeKey(buf)
		if t, ok := observed[key]; ok {
			t.count++
		} else {
			cp := make([]byte, n)
			copy(cp, buf)
			t := &tally{hap: cp, count: 1, alive: true}
			observed[key] = t
			tallies = append(tallies, t)
		}
	}

	// Case-insensitive lexicographic order keeps the probe and
	// grouping passes deterministic across runs.
	sort.Slice(tallies, func(i, j int) bool {
		return lessFoldBytes(tallies[i].hap, tallies[j].hap)
	})

	// Each tallied string probes the surviving set: if two survivors
	// compatible with the probe are incompatible with each other, the
	// probe's own assignment is undecidable and it is removed. Later
	// probes see the already-reduced set.
	var compatible []*tally
	for _, probe := range tallies {
		compatible = compatible[:0]
		for _, t := range tallies {
			if t.alive && isCompatibleHaplotype(probe.hap, t.hap) {
				compatible = append(compatible, t)
			}
		}
	probing:
		for j := 1; j < len(compatible); j++ {
			for i := 0; i < j; i++ {
				if !isCompatibleHaplotype(compatible[i].hap, compatible[j].hap) {
					probe.alive = false
					break probing
				}
			}
		}
	}

	type group struct {
		rep   []byte
		count int
	}
	var groups []group
	for _, t := range tallies {
		if !t.alive {
			continue
		}
		joined := false
		for i := range groups {
			if isCompatibleHaplotype(t.hap, groups[i].rep) {
				groups[i].count += t.count
				joined = true
				break
			}
		}
		if !joined {
			groups = append(groups, group{rep: t.hap, count: t.count})
		}
	}

	var nAllCommon int
	for _, g := range groups {
		nHaps += g.count
		if g.count > 1 {
			nCommonHaps++
			nAllCommon += g.count
		}
	}
	nUniqueHaps = len(groups)
	if nHaps > 0 {
		diversity = float64(nAllCommon) / float64(nHaps)
	}

	return nHaps, nUniqueHaps, nCommonHaps, diversity
}

// lessFoldBytes orders byte strings case-insensitively, shorter
// prefixes first.
func lessFoldBytes(a, b []byte) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ca, cb := a[i]|0x20, b[i]|0x20
		if ca != cb {
			return ca < cb
		}
	}
	return len(a) < len(b)
}

func isACGT(b byte) bool {
	switch b | 0x20 {
	case 'a', 'c', 'g', 't':
		return true
	default:
		return false
	}
}

// isCompatibleHaplotype is the position-wise compatibility test: two
// haplotype strings are compatible when every position where both
// have an unambiguous A/C/G/T call agrees; positions where either
// side is ambiguous are skipped rather than compared.
func isCompatibleHaplotype(a, b []byte) bool {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var ca, cb byte
		if i < len(a) {
			ca = a[i] | 0x20
		}
		if i < len(b) {
			cb = b[i] | 0x20
		}
		if !isACGT(ca) || !isACGT(cb) {
			continue
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// blockLabel renders a 1-based, zero-padded block identifier
// (BLOCK_0000001 and so on) in partition iteration order.
func blockLabel(index int) string {
	return fmt.Sprintf("BLOCK_%07d", index+1)
}
