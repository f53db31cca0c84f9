// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ldblock

import (
	"bufio"
	"encoding/gob"
	"io"

	"github.com/klauspost/pgzip"
)

// viewRecord is the gob-serializable shadow of a HaplotypeView: the
// View's unexported fields are copied into an exported record for
// encoding, then handed back through NewView on decode so every
// invariant NewView enforces is re-checked rather than trusted from
// the cache file.
type viewRecord struct {
	H         int
	MRaw      int
	IDs       []string
	Pos       []int64
	RefAllele []byte
	AltAllele []byte
	Calls     [][]byte
	MAF       float64
}

// WriteViewCache gob-encodes v to w, optionally gzip-compressed. The
// MAF the view was filtered with is recorded alongside so a later
// ReadViewCache can detect a cache built under different filter
// settings than the current run's.
func WriteViewCache(w io.Writer, v *HaplotypeView, maf float64, gzipped bool) error {
	var out io.WriteCloser
	if gzipped {
		out = pgzip.NewWriter(w)
	} else {
		out = nopCloser{w}
	}
	bw := bufio.NewWriterSize(out, 1<<20)
	rec := viewRecord{
		H:         v.H(),
		MRaw:      v.MRaw(),
		IDs:       append([]string(nil), v.ids...),
		Pos:       append([]int64(nil), v.pos...),
		RefAllele: append([]byte(nil), v.maj...),
		AltAllele: append([]byte(nil), v.min...),
		Calls:     v.hap,
		MAF:       maf,
	}
	if err := gob.NewEncoder(bw).Encode(rec); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return out.Close()
}

// ReadViewCache decodes a View previously written by WriteViewCache,
// returning it together with the MAF threshold it was filtered under.
// Because the cache already stores the post-filter marker set, maf is
// passed as 0 to NewView so no marker is re-filtered a second time.
func ReadViewCache(r io.Reader, gzipped bool) (*HaplotypeView, float64, error) {
	var in io.Reader = r
	if gzipped {
		zr, err := pgzip.NewReader(bufio.NewReaderSize(r, 1<<20))
		if err != nil {
			return nil, 0, &DataError{Msg: "view cache: gzip: " + err.Error()}
		}
		defer zr.Close()
		in = zr
	}
	var rec viewRecord
	if err := gob.NewDecoder(in).Decode(&rec); err != nil {
		return nil, 0, &DataError{Msg: "view cache: " + err.Error()}
	}
	v, err := NewView(rec.IDs, rec.Pos, rec.RefAllele, rec.AltAllele, rec.Calls, 0, rec.MRaw)
	return v, rec.MAF, err
}
