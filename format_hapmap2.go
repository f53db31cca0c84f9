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
)

// hapmap2LegendHeader is the mandatory legend-file header.
var hapmap2LegendHeader = []string{"rs", "position", "0", "1"}

// hapmap2Legend is one parsed legend row: the marker id, position and
// its two alleles (index 0 = major candidate, 1 = minor candidate,
// per the legend's own convention before major/minor is resolved from
// observed counts).
type hapmap2Legend struct {
	id       string
	pos      int64
	allele0  byte
	allele1  byte
	inRegion bool
}

// FromHapMap2 parses a HAPMAP2 legend file and its companion
// space-delimited haplotype matrix into a HaplotypeView filtered to
// [startBP, endBP] and the given MAF threshold. The legend file is
// read first (to build the per-marker filter and allele pair), then
// the haplotype matrix, one haplotype per line, one column per legend
// row.
func FromHapMap2(legend, haplotypes io.Reader, startBP, endBP int64, maf float64) (*HaplotypeView, error) {
	rows, err := parseHapMap2Legend(legend)
	if err != nil {
		return nil, err
	}

	var kept []hapmap2Legend
	for i := range rows {
		if rows[i].pos >= startBP && rows[i].pos <= endBP {
			rows[i].inRegion = true
			kept = append(kept, rows[i])
		}
	}
	mRaw := len(kept)
	if mRaw == 0 {
		return NewView(nil, nil, nil, nil, nil, maf, 0)
	}

	calls := make([][]byte, mRaw) // calls[i] grows one byte per haplotype line

	sc := bufio.NewScanner(haplotypes)
	sc.Buffer(make([]byte, 64*1024), 1<<28)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimRight(sc.Text(), " \t")
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != len(rows) {
			return nil, &DataError{Msg: fmt.Sprintf("hapmap2 haplotype file line %d: column count %d does not match legend row count %d", lineNum, len(fields), len(rows))}
		}
		j := 0
		for i, row := range rows {
			if !row.inRegion {
				continue
			}
			f := fields[i]
			if len(f) != 1 || (f[0] != '0' && f[0] != '1') {
				return nil, &DataError{Msg: fmt.Sprintf("hapmap2 haplotype file line %d: unexpected allele value %q for marker %q", lineNum, f, row.id)}
			}
			var a byte
			if f[0] == '0' {
				a = kept[j].allele0
			} else {
				a = kept[j].allele1
			}
			calls[j] = append(calls[j], a)
			j++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &DataError{Msg: "hapmap2 haplotype file: " + err.Error()}
	}

	ids := make([]string, mRaw)
	pos := make([]int64, mRaw)
	refAllele := make([]byte, mRaw)
	altAllele := make([]byte, mRaw)
	for i, row := range kept {
		ids[i] = row.id
		pos[i] = row.pos
		refAllele[i] = row.allele0 // legend's "0" allele is the tie-break reference
		altAllele[i] = row.allele1
	}

	return NewView(ids, pos, refAllele, altAllele, calls, maf, mRaw)
}

func parseHapMap2Legend(r io.Reader) ([]hapmap2Legend, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNum := 0
	if !sc.Scan() {
		return nil, &DataError{Msg: "hapmap2 legend file: empty, missing header"}
	}
	lineNum++
	header := strings.Fields(sc.Text())
	for i, want := range hapmap2LegendHeader {
		if i >= len(header) || !strings.EqualFold(header[i], want) {
			return nil, &DataError{Msg: fmt.Sprintf("hapmap2 legend header: column %q missing at position %d", want, i+1)}
		}
	}

	var rows []hapmap2Legend
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != len(header) {
			return nil, &DataError{Msg: fmt.Sprintf("hapmap2 legend file line %d: column count %d does not match header (%d)", lineNum, len(fields), len(header))}
		}
		pos, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, &DataError{Msg: fmt.Sprintf("hapmap2 legend file line %d: position %q is not an integer", lineNum, fields[1])}
		}
		a0, ok0 := hapmap2Base(fields[2])
		a1, ok1 := hapmap2Base(fields[3])
		if !ok0 {
			return nil, &DataError{Msg: fmt.Sprintf("hapmap2 legend file line %d: allele value %q is incorrect", lineNum, fields[2])}
		}
		if !ok1 {
			return nil, &DataError{Msg: fmt.Sprintf("hapmap2 legend file line %d: allele value %q is incorrect", lineNum, fields[3])}
		}

		rows = append(rows, hapmap2Legend{id: fields[0], pos: pos, allele0: a0, allele1: a1})
	}
	if err := sc.Err(); err != nil {
		return nil, &DataError{Msg: "hapmap2 legend file: " + err.Error()}
	}
	return rows, nil
}

func hapmap2Base(s string) (byte, bool) {
	if len(s) != 1 {
		return 0, false
	}
	b := upperBase(s[0])
	return b, isACGT(b)
}
