// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ldblock

import "fmt"

// epsilon is the fixed tolerance used throughout the block-discovery
// core for floating point comparisons against zero.
const epsilon = 1e-9

// HaplotypeView is a read-only, immutable projection of phased
// haplotype data over a filtered set of biallelic markers. A View is
// built once per region by a loader (FromVCF, FromHapMap2, or a test
// fixture) and then shared by reference with every estimator,
// generator and selector that runs against it.
type HaplotypeView struct {
	h    int      // haplotype count, even
	mRaw int      // marker count before filtering
	ids  []string // marker identifiers, length M
	pos  []int64  // chromosomal positions, strictly increasing, length M
	maj  []byte   // major allele, length M
	min  []byte   // minor allele, length M
	p    []float64
	hap  [][]byte // hap[i][k], length M x H
}

// H returns the haplotype count.
func (v *HaplotypeView) H() int { return v.h }

// M returns the filtered marker count.
func (v *HaplotypeView) M() int { return len(v.ids) }

// MRaw returns the marker count before MAF filtering, as counted by
// the loader (markers outside the region or dropped as non-SNPs are
// not included).
func (v *HaplotypeView) MRaw() int { return v.mRaw }

// Empty reports whether fewer than two markers survived filtering,
// the condition in which the pipeline reports "not enough SNPs" and
// exits without error.
func (v *HaplotypeView) Empty() bool { return v.M() < 2 }

func (v *HaplotypeView) Marker(i int) string     { return v.ids[i] }
func (v *HaplotypeView) Pos(i int) int64         { return v.pos[i] }
func (v *HaplotypeView) Major(i int) byte        { return v.maj[i] }
func (v *HaplotypeView) Minor(i int) byte        { return v.min[i] }
func (v *HaplotypeView) MajorFreq(i int) float64 { return v.p[i] }

// Haplotype returns the allele call at marker i, haplotype column k.
func (v *HaplotypeView) Haplotype(i, k int) byte { return v.hap[i][k] }

// NewView constructs a HaplotypeView from parsed per-marker data. It
// is the single assembly point used by all loaders (format_vcf.go,
// format_hapmap2.go, cache.go, tests): it computes major/minor
// alleles and allele frequency, and enforces strictly increasing
// positions, exactly two alleles per marker, and a major-allele
// frequency >= 0.5.
//
// refAllele and altAllele name the two alleles a marker is defined
// over (REF/ALT for VCF, legend columns 0/1 for HAPMAP2) and are
// taken from the input independently of whether altAllele was ever
// observed in calls: a marker where every haplotype carries refAllele
// is monomorphic (major-allele frequency 1.0), not an error.
// Major/minor is decided by comparing counts of the two named
// alleles, not by the set of distinct bytes observed. Every byte in
// calls[i] must equal refAllele[i] or altAllele[i]; anything else is
// a DataError.
//
// maf is the MAF filter threshold: markers with minor-allele
// frequency <= maf are dropped (strict >, compared with epsilon
// tolerance). mRaw is the caller's count of markers before the MAF
// filter, reported as HaplotypeView.MRaw; the loaders count in-region
// biallelic SNP rows, so markers outside the region or dropped as
// non-SNPs are not included.
func NewView(ids []string, pos []int64, refAllele, altAllele []byte, calls [][]byte, maf float64, mRaw int) (*HaplotypeView, error) {
	if len(ids) != len(pos) || len(ids) != len(refAllele) || len(ids) != len(altAllele) || len(ids) != len(calls) {
		return nil, fmt.Errorf("ldblock: NewView: mismatched slice lengths")
	}
	v := &HaplotypeView{mRaw: mRaw}
	var h int
	for i, call := range calls {
		if i == 0 {
			h = len(call)
			if h == 0 || h%2 != 0 {
				return nil, &DataError{Msg: fmt.Sprintf("marker %s: odd or zero haplotype count %d", ids[i], h)}
			}
		} else if len(call) != h {
			return nil, &DataError{Msg: fmt.Sprintf("marker %s: haplotype count %d does not match preceding markers (%d)", ids[i], len(call), h)}
		}
		if i > 0 && pos[i] <= pos[i-1] {
			return nil, &DataError{Msg: fmt.Sprintf("marker %s: position %d does not strictly increase after %d", ids[i], pos[i], pos[i-1])}
		}
		if refAllele[i] == altAllele[i] {
			return nil, &DataError{Msg: fmt.Sprintf("marker %s: ref and alt alleles are identical (%c)", ids[i], refAllele[i])}
		}

		var nRef, nAlt int
		for _, a := range call {
			switch a {
			case refAllele[i]:
				nRef++
			case altAllele[i]:
				nAlt++
			default:
				return nil, &DataError{Msg: fmt.Sprintf("marker %s: call %q matches neither ref %q nor alt %q", ids[i], a, refAllele[i], altAllele[i])}
			}
		}

		// Resolve major/minor deterministically: the higher count
		// wins; a tie favors the REF allele (VCF) / legend '0'
		// allele (HAPMAP2), both passed in as refAllele[i].
		majAllele, minAllele, majCount := refAllele[i], altAllele[i], nRef
		if nAlt > nRef {
			majAllele, minAllele, majCount = altAllele[i], refAllele[i], nAlt
		}
		p := float64(majCount) / float64(h)
		if p < 0.5-epsilon {
			return nil, &DataError{Msg: fmt.Sprintf("marker %s: major allele frequency %.6f < 0.5", ids[i], p)}
		}

		minorFreq := 1 - p
		if !(minorFreq > maf+epsilon) {
			continue
		}

		v.ids = append(v.ids, ids[i])
		v.pos = append(v.pos, pos[i])
		v.maj = append(v.maj, majAllele)
		v.min = append(v.min, minAllele)
		v.p = append(v.p, p)
		v.hap = append(v.hap, append([]byte(nil), call...))
	}
	v.h = h
	return v, nil
}

// counts2x2 is the 2x2 haplotype contingency table for a marker pair:
// n00 counts haplotypes carrying the major allele at both markers.
type counts2x2 struct {
	n00, n01, n10, n11 int
}

func (v *HaplotypeView) contingency(a, b int) counts2x2 {
	var c counts2x2
	majA, majB := v.maj[a], v.maj[b]
	hapA, hapB := v.hap[a], v.hap[b]
	for k := 0; k < v.h; k++ {
		if hapA[k] == majA {
			if hapB[k] == majB {
				c.n00++
			} else {
				c.n01++
			}
		} else {
			if hapB[k] == majB {
				c.n10++
			} else {
				c.n11++
			}
		}
	}
	return c
}
