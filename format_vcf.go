// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ldblock

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
)

// vcfMandatoryColumns is the fixed VCF header prefix required before
// any sample columns.
var vcfMandatoryColumns = []string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO", "FORMAT"}

// FromVCF parses a single-chromosome, optionally gzipped, phased VCF
// stream into a HaplotypeView filtered to [startBP, endBP] and the
// given MAF threshold.
//
// Only biallelic SNPs with fully phased genotypes survive: REF and
// ALT must each be a single base from {A,C,G,T}; ALT=. (monomorphic)
// or multi-character ALT drop the row silently, since indels and
// multi-allelic sites are simply not haplotype markers. An unphased
// separator or a malformed genotype is a DataError, never repaired
// silently. A fully missing genotype (.|.) drops the whole row.
func FromVCF(r io.Reader, gzipped bool, startBP, endBP int64, maf float64) (*HaplotypeView, error) {
	var rdr io.Reader = r
	if gzipped {
		zr, err := pgzip.NewReader(bufio.NewReaderSize(r, 1<<20))
		if err != nil {
			return nil, &DataError{Msg: "gzip: " + err.Error()}
		}
		defer zr.Close()
		rdr = zr
	}
	sc := bufio.NewScanner(rdr)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)

	lineNum := 0
	nextLine := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		lineNum++
		return sc.Text(), true
	}

	line, ok := nextLine()
	if !ok {
		return nil, &DataError{Msg: "VCF: empty file, missing ##fileformat line"}
	}
	if !strings.HasPrefix(line, "##fileformat") {
		return nil, &DataError{Msg: fmt.Sprintf("VCF line %d: missing mandatory ##fileformat line", lineNum)}
	}

	var header []string
	for {
		line, ok = nextLine()
		if !ok {
			return nil, &DataError{Msg: "VCF: mandatory header line not found"}
		}
		if len(line) < 2 {
			return nil, &DataError{Msg: fmt.Sprintf("VCF line %d: incorrect header/meta-information line", lineNum)}
		}
		if line[0] != '#' {
			return nil, &DataError{Msg: fmt.Sprintf("VCF line %d: mandatory header line was not found", lineNum)}
		}
		if line[1] == '#' {
			continue // meta-info line, skipped
		}
		header = strings.Split(line, "\t")
		break
	}
	for i, want := range vcfMandatoryColumns {
		if i >= len(header) || !strings.EqualFold(header[i], want) {
			return nil, &DataError{Msg: fmt.Sprintf("VCF header: column %q missing at position %d", want, i+1)}
		}
	}
	nSamples := len(header) - len(vcfMandatoryColumns)
	if nSamples <= 0 {
		return nil, &DataError{Msg: "VCF: no sample columns found"}
	}
	h := 2 * nSamples

	var ids []string
	var pos []int64
	var refAllele []byte
	var altAlleles []byte
	var calls [][]byte
	mRaw := 0

	for {
		line, ok = nextLine()
		if !ok {
			break
		}
		if line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) != len(header) {
			return nil, &DataError{Msg: fmt.Sprintf("VCF line %d: column count %d does not match header (%d)", lineNum, len(cols), len(header))}
		}

		p, err := strconv.ParseInt(cols[1], 10, 64)
		if err != nil {
			return nil, &DataError{Msg: fmt.Sprintf("VCF line %d: position %q is not an integer", lineNum, cols[1])}
		}
		if p < startBP || p > endBP {
			continue
		}

		if vt, ok := vcfInfoVT(cols[7]); ok && !strings.EqualFold(vt, "SNP") {
			continue
		}

		alt := cols[4]
		if alt == "." || len(alt) != 1 {
			continue // monomorphic, multi-allelic, or indel
		}
		altAllele := upperBase(alt[0])
		if !isACGT(altAllele) {
			return nil, &DataError{Msg: fmt.Sprintf("VCF line %d: ALT allele %q is not one of A/C/G/T", lineNum, alt)}
		}
		ref := cols[3]
		if len(ref) != 1 {
			continue // indel
		}
		refA := upperBase(ref[0])
		if !isACGT(refA) {
			return nil, &DataError{Msg: fmt.Sprintf("VCF line %d: REF allele %q is not one of A/C/G/T", lineNum, ref)}
		}

		mRaw++

		call := make([]byte, h)
		dropped := false
		for s := 0; s < nSamples; s++ {
			gt := cols[len(vcfMandatoryColumns)+s]
			if c := strings.IndexByte(gt, ':'); c >= 0 {
				gt = gt[:c]
			}
			if len(gt) != 3 || gt[1] != '|' {
				if len(gt) == 3 && gt[1] == '/' {
					return nil, &DataError{Msg: fmt.Sprintf("VCF line %d, sample %d: unphased genotype %q", lineNum, s, gt)}
				}
				return nil, &DataError{Msg: fmt.Sprintf("VCF line %d, sample %d: malformed genotype %q", lineNum, s, gt)}
			}
			if gt[0] == '.' && gt[2] == '.' {
				dropped = true
				break
			}
			a0, err0 := vcfAlleleCall(gt[0], refA, altAllele)
			a1, err1 := vcfAlleleCall(gt[2], refA, altAllele)
			if err0 != nil || err1 != nil {
				return nil, &DataError{Msg: fmt.Sprintf("VCF line %d, sample %d: unexpected genotype %q", lineNum, s, gt)}
			}
			call[2*s] = a0
			call[2*s+1] = a1
		}
		if dropped {
			continue // ".|." genotype drops the row
		}

		ids = append(ids, cols[2])
		pos = append(pos, p)
		refAllele = append(refAllele, refA)
		altAlleles = append(altAlleles, altAllele)
		calls = append(calls, call)
	}

	return NewView(ids, pos, refAllele, altAlleles, calls, maf, mRaw)
}

func vcfAlleleCall(gtByte, ref, alt byte) (byte, error) {
	switch gtByte {
	case '0':
		return ref, nil
	case '1':
		return alt, nil
	default:
		return 0, fmt.Errorf("unexpected allele index %q", gtByte)
	}
}

// vcfInfoVT extracts the VT= value from the INFO column, if present.
func vcfInfoVT(info string) (string, bool) {
	for _, field := range strings.Split(info, ";") {
		field = strings.TrimSpace(field)
		if len(field) >= 2 && strings.EqualFold(field[:2], "VT") {
			if eq := strings.IndexByte(field, '='); eq >= 0 {
				return strings.TrimSpace(field[eq+1:]), true
			}
		}
	}
	return "", false
}

func upperBase(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
