// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ldblock

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/pgzip"
)

// nopCloser adapts an io.Writer (stdout, typically) to io.WriteCloser
// without closing the underlying stream.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func openOutputFile(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
}

// blockColumns is the fixed output header of the block file.
var blockColumns = []string{
	"BLOCK_NAME", "FIRST_SNP", "LAST_SNP", "FIRST_SNP_ID", "LAST_SNP_ID",
	"START_BP", "END_BP", "N_SNPS", "N_HAPS", "N_UNIQUE_HAPS", "N_COMMON_HAPS", "HAPS_DIVERSITY",
}

// WriteBlocks serializes a Partition to w as tab-delimited text:
// comment lines echoing the configuration, a header row, then one
// record per block in partition (creation) order. comments are
// caller-supplied strings already formatted; WriteBlocks
// only prefixes each with "#" and appends a trailing newline.
//
// This is the one place the block output format is rendered; the
// compute path (DiscoverBlocks) never writes to w itself.
func WriteBlocks(w io.Writer, v *HaplotypeView, p *Partition, comments []string) error {
	bw := bufio.NewWriter(w)
	for _, line := range comments {
		if _, err := fmt.Fprintf(bw, "#%s\n", line); err != nil {
			return err
		}
	}
	for i, col := range blockColumns {
		sep := "\t"
		if i == len(blockColumns)-1 {
			sep = "\n"
		}
		if _, err := bw.WriteString(col + sep); err != nil {
			return err
		}
	}
	for i, b := range p.Blocks {
		_, err := fmt.Fprintf(bw, "%s\t%d\t%d\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%g\n",
			blockLabel(i),
			b.Start+1, b.End+1,
			v.Marker(b.Start), v.Marker(b.End),
			v.Pos(b.Start), v.Pos(b.End),
			b.End-b.Start+1,
			b.NHaps, b.NUniqueHaps, b.NCommonHaps, b.Diversity,
		)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// OpenBlockWriter opens path for writing block output, wrapping it in
// a parallel gzip writer when the name ends in ".gz".
func OpenBlockWriter(path string) (io.WriteCloser, error) {
	f, err := openOutputFile(path)
	if err != nil {
		return nil, err
	}
	if hasGZSuffix(path) {
		return &gzipWriteCloser{gz: pgzip.NewWriter(f), f: f}, nil
	}
	return f, nil
}

type gzipWriteCloser struct {
	gz *pgzip.Writer
	f  io.WriteCloser
}

func (g *gzipWriteCloser) Write(p []byte) (int, error) { return g.gz.Write(p) }

func (g *gzipWriteCloser) Close() error {
	if err := g.gz.Close(); err != nil {
		g.f.Close()
		return err
	}
	return g.f.Close()
}

func hasGZSuffix(path string) bool {
	return len(path) >= 3 && path[len(path)-3:] == ".gz"
}
