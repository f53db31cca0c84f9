// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ldblock

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"git.arvados.org/arvados.git/lib/cmd"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
)

var handler = cmd.Multi(map[string]cmd.Handler{
	"version":   cmd.Version,
	"-version":  cmd.Version,
	"--version": cmd.Version,

	"blocks": &blocksCmd{},
	"ld":     &ldCmd{},
})

// Main is the process entry point, called by cmd/ldexplorer/main.go.
// It configures logging (timestamps off when stderr is not a
// terminal) and dispatches to the blocks/ld/version subcommands.
func Main() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		log.StandardLogger().Formatter = &log.TextFormatter{DisableTimestamp: true}
	}
	os.Exit(handler.RunCommand(os.Args[0], os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func setLogLevel(s string) error {
	lvl, err := log.ParseLevel(s)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	return nil
}

// inputSpec bundles the flags that describe where haplotype data
// comes from, so single-run and multi-region paths can share one
// loader builder.
type inputSpec struct {
	format     string
	vcfFile    string
	legendFile string
	hapFile    string
	gzipIn     bool
	stdin      io.Reader
}

func (in *inputSpec) addFlags(flags *flag.FlagSet) {
	flags.StringVar(&in.format, "format", "vcf", "input format: vcf or hapmap2")
	flags.StringVar(&in.vcfFile, "vcf", "", "VCF input `file` (\"-\" for stdin)")
	flags.StringVar(&in.legendFile, "legend", "", "HAPMAP2 legend `file`")
	flags.StringVar(&in.hapFile, "hap", "", "HAPMAP2 haplotype matrix `file`")
	flags.BoolVar(&in.gzipIn, "gzip-in", false, "treat VCF input as gzip-compressed")
}

func (in *inputSpec) name() string {
	if strings.ToLower(in.format) == "hapmap2" {
		return in.legendFile
	}
	return in.vcfFile
}

// loader returns a closure that parses the configured input into a
// HaplotypeView for one bp window. The closure can be called once per
// region; stdin-backed input cannot be re-read and is rejected by
// callers that need more than one load.
func (in *inputSpec) loader(startBP, endBP int64, maf float64) (func() (*HaplotypeView, error), error) {
	switch strings.ToLower(in.format) {
	case "vcf":
		if in.vcfFile == "" {
			return nil, &PreconditionError{Param: "vcf", Msg: "input file is required for -format=vcf"}
		}
		return func() (*HaplotypeView, error) {
			f, err := openInputFile(in.vcfFile, in.stdin)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			return FromVCF(f, in.gzipIn, startBP, endBP, maf)
		}, nil
	case "hapmap2":
		if in.legendFile == "" || in.hapFile == "" {
			return nil, &PreconditionError{Param: "legend/hap", Msg: "both -legend and -hap are required for -format=hapmap2"}
		}
		return func() (*HaplotypeView, error) {
			legend, err := openInputFile(in.legendFile, nil)
			if err != nil {
				return nil, err
			}
			defer legend.Close()
			hap, err := openInputFile(in.hapFile, nil)
			if err != nil {
				return nil, err
			}
			defer hap.Close()
			return FromHapMap2(legend, hap, startBP, endBP, maf)
		}, nil
	default:
		return nil, &PreconditionError{Param: "format", Msg: "must be vcf or hapmap2"}
	}
}

// blocksCmd is the `blocks` subcommand: parse a VCF or HAPMAP2 input,
// run block discovery, and emit the tab-delimited block file, either
// for one bp window or for several independent windows in parallel
// via -regions.
type blocksCmd struct{}

func (c *blocksCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()

	flags := flag.NewFlagSet(prog, flag.ContinueOnError)
	flags.SetOutput(stderr)

	in := &inputSpec{stdin: stdin}
	in.addFlags(flags)
	startBP := flags.Int64("start", 0, "region start (bp, inclusive)")
	endBP := flags.Int64("end", 1<<62, "region end (bp, inclusive)")
	maf := flags.Float64("maf", 0, "MAF filter threshold (markers with MAF <= this are dropped)")

	ciMethod := flags.String("ci-method", "WP", "D' confidence interval method: WP, AV, or NONE")
	lDensity := flags.Int("l-density", 101, "WP likelihood grid density L")
	lStrong := flags.Float64("ld-ci-lower", 0.70, "strong-LD band lower bound")
	uStrong := flags.Float64("ld-ci-upper", 0.98, "strong-LD band upper bound")
	uRecomb := flags.Float64("ehr-ci", 0.90, "recombination band upper bound")
	fraction := flags.Float64("ld-fraction", 0.95, "Gabriel strong-LD fraction phi")

	rsq := flags.Bool("rsq", false, "use r^2-mode classification instead of a D' CI")
	weakRsq := flags.Float64("weak-rsq", 0.10, "r^2-mode recombination threshold")
	strongRsq := flags.Float64("strong-rsq", 0.80, "r^2-mode strong-LD threshold")

	pruning := flags.String("pruning-method", "MIG", "pruning variant: MIG, MIG+, or MIG++")
	window := flags.Int("window", 0, "MIG++ window (0 = default, max(1, floor(M*(1-phi)/2)))")

	regions := flags.String("regions", "", "comma-separated start-end bp `windows` to run as independent regions (one output file per region)")
	threads := flags.Int("threads", 1, "regions to process concurrently")

	cacheFile := flags.String("cache", "", "view cache `file`: read instead of parsing input if it exists, written after parsing otherwise")
	outputFile := flags.String("o", "-", "output `file` (\"-\" for stdout)")
	gzipOut := flags.Bool("gzip-out", false, "gzip-compress the output file")
	loglevel := flags.String("loglevel", "info", "logging threshold (trace, debug, info, warn, error, fatal, or panic)")

	err = flags.Parse(args)
	if err == flag.ErrHelp {
		return 0
	} else if err != nil {
		return 2
	}
	if err = setLogLevel(*loglevel); err != nil {
		return 2
	}

	gen := GeneratorConfig{
		LStrong: *lStrong, UStrong: *uStrong, URecomb: *uRecomb, Phi: *fraction,
		Rsq: *rsq, WeakRsq: *weakRsq, StrongRsq: *strongRsq,
	}
	if !*rsq {
		gen.Ci, err = parseCiMethod(*ciMethod, *lDensity)
		if err != nil {
			return 1
		}
	}

	var prune PruneMethod
	switch strings.ToUpper(*pruning) {
	case "MIG":
		prune.Kind = PruneMIG
	case "MIG+":
		prune.Kind = PruneMIGPlus
	case "MIG++":
		prune.Kind = PruneMIGPlusPlus
		prune.Window = *window
	default:
		err = &PreconditionError{Param: "pruning_method", Msg: "must be MIG, MIG+, or MIG++"}
		return 1
	}

	cfg := Config{MAF: *maf, Generator: gen, Prune: prune}
	if err = cfg.Validate(); err != nil {
		return 1
	}

	if *regions != "" {
		err = c.runRegions(in, cfg, *regions, *threads, *outputFile, *gzipOut, *cacheFile)
		if err != nil {
			return 1
		}
		return 0
	}

	var v *HaplotypeView
	v, err = c.loadView(in, *startBP, *endBP, *maf, *cacheFile)
	if err != nil {
		return 1
	}

	if v.Empty() {
		logNotEnoughSNPs(in.name(), v.M())
	}
	var p *Partition
	p, err = DiscoverBlocks(v, cfg)
	if err != nil {
		return 1
	}

	var out io.WriteCloser
	out, err = OpenBlockWriter(outputPath(*outputFile, *gzipOut))
	if err != nil {
		return 1
	}
	defer out.Close()
	err = WriteBlocks(out, v, p, blocksComments(cfg))
	if err != nil {
		return 1
	}
	return 0
}

// loadView builds the View for one window, going through the gob
// cache when one is configured: an existing cache file is decoded
// instead of re-parsing the input, and a missing one is written after
// the first parse.
func (c *blocksCmd) loadView(in *inputSpec, startBP, endBP int64, maf float64, cacheFile string) (*HaplotypeView, error) {
	if cacheFile != "" {
		if f, err := os.Open(cacheFile); err == nil {
			defer f.Close()
			v, cachedMAF, err := ReadViewCache(f, hasGZSuffix(cacheFile))
			if err != nil {
				return nil, err
			}
			if cachedMAF != maf {
				log.Warnf("%s: cache was filtered with maf=%g, current run requests maf=%g; using cached markers", cacheFile, cachedMAF, maf)
			}
			log.Infof("%s: loaded %d markers from cache", cacheFile, v.M())
			return v, nil
		}
	}

	load, err := in.loader(startBP, endBP, maf)
	if err != nil {
		return nil, err
	}
	v, err := load()
	if err != nil {
		return nil, err
	}

	if cacheFile != "" {
		f, err := os.OpenFile(cacheFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if err := WriteViewCache(f, v, maf, hasGZSuffix(cacheFile)); err != nil {
			return nil, err
		}
		log.Infof("%s: cached %d markers", cacheFile, v.M())
	}
	return v, nil
}

// runRegions fans the configured windows out over a bounded worker
// pool and writes one block file per region. Results are written in
// the order the regions were given, regardless of completion order.
func (c *blocksCmd) runRegions(in *inputSpec, cfg Config, spec string, threads int, outputFile string, gzipOut bool, cacheFile string) error {
	if cacheFile != "" {
		return &PreconditionError{Param: "cache", Msg: "cannot be combined with -regions"}
	}
	if in.vcfFile == "-" {
		return &PreconditionError{Param: "vcf", Msg: "stdin input cannot be re-read per region; use a file with -regions"}
	}
	ranges, err := parseRegionRanges(spec)
	if err != nil {
		return err
	}

	regionList := make([]Region, len(ranges))
	for i, r := range ranges {
		load, err := in.loader(r[0], r[1], cfg.MAF)
		if err != nil {
			return err
		}
		regionList[i] = Region{
			Name: fmt.Sprintf("%s:%d-%d", in.name(), r[0], r[1]),
			Load: load,
		}
	}

	results, err := RunRegions(regionList, cfg, threads)
	if err != nil {
		return err
	}
	for i, res := range results {
		out, err := OpenBlockWriter(regionOutputPath(outputFile, ranges[i][0], ranges[i][1], gzipOut))
		if err != nil {
			return err
		}
		err = WriteBlocks(out, res.View, res.Partition, blocksComments(cfg))
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// parseRegionRanges parses "100-5000,7000-9000" into bp windows.
func parseRegionRanges(s string) ([][2]int64, error) {
	var ranges [][2]int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		sep := strings.IndexByte(part, '-')
		if sep < 0 {
			return nil, &PreconditionError{Param: "regions", Msg: fmt.Sprintf("%q is not a start-end range", part)}
		}
		lo, hi := part[:sep], part[sep+1:]
		start, err := strconv.ParseInt(lo, 10, 64)
		if err != nil {
			return nil, &PreconditionError{Param: "regions", Msg: fmt.Sprintf("start %q is not an integer", lo)}
		}
		end, err := strconv.ParseInt(hi, 10, 64)
		if err != nil {
			return nil, &PreconditionError{Param: "regions", Msg: fmt.Sprintf("end %q is not an integer", hi)}
		}
		if end < start {
			return nil, &PreconditionError{Param: "regions", Msg: fmt.Sprintf("range %q ends before it starts", part)}
		}
		ranges = append(ranges, [2]int64{start, end})
	}
	if len(ranges) == 0 {
		return nil, &PreconditionError{Param: "regions", Msg: "no ranges given"}
	}
	return ranges, nil
}

func parseCiMethod(name string, lDensity int) (CiMethod, error) {
	switch strings.ToUpper(name) {
	case "WP":
		return CiMethod{Kind: CiWP, LDensity: lDensity}, nil
	case "AV":
		return CiMethod{Kind: CiAV}, nil
	case "NONE":
		return CiMethod{Kind: CiNone}, nil
	default:
		return CiMethod{}, &PreconditionError{Param: "ci_method", Msg: "must be WP, AV, or NONE"}
	}
}

func outputPath(path string, gz bool) string {
	if gz && path != "-" && !hasGZSuffix(path) {
		return path + ".gz"
	}
	return path
}

// regionOutputPath derives a per-region output file name by inserting
// the bp window before any .gz suffix; stdout stays stdout (regions
// are then written sequentially in input order).
func regionOutputPath(path string, start, end int64, gz bool) string {
	if path == "" || path == "-" {
		return path
	}
	suffix := fmt.Sprintf(".%d_%d", start, end)
	if hasGZSuffix(path) {
		return path[:len(path)-3] + suffix + ".gz"
	}
	return outputPath(path+suffix, gz)
}

func blocksComments(cfg Config) []string {
	comments := []string{
		fmt.Sprintf("MAF > %g", cfg.MAF),
		fmt.Sprintf("PRUNING_METHOD: %s", cfg.Prune.Kind),
		fmt.Sprintf("LD_FRACTION: %g", cfg.Generator.Phi),
	}
	if cfg.Generator.Rsq {
		comments = append(comments,
			fmt.Sprintf("WEAK_RSQ: %g", cfg.Generator.WeakRsq),
			fmt.Sprintf("STRONG_RSQ: %g", cfg.Generator.StrongRsq))
	} else {
		comments = append(comments,
			fmt.Sprintf("CI_METHOD: %s", cfg.Generator.Ci.Kind),
			fmt.Sprintf("LD_CI: %g, %g", cfg.Generator.LStrong, cfg.Generator.UStrong),
			fmt.Sprintf("EHR_CI: %g", cfg.Generator.URecomb))
	}
	return comments
}

func openInputFile(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		if stdin == nil {
			return nil, &PreconditionError{Param: "input", Msg: "stdin not available for this input"}
		}
		return io.NopCloser(stdin), nil
	}
	return os.Open(path)
}

// ldCmd is the `ld` subcommand: a pairwise D/D'/r/r^2 and CI dump for
// a queried marker pair, or for every pair in the window when no pair
// is named. It is a read-only consumer of the View and the LD
// estimator and never feeds into block discovery.
type ldCmd struct{}

func (c *ldCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()

	flags := flag.NewFlagSet(prog, flag.ContinueOnError)
	flags.SetOutput(stderr)

	in := &inputSpec{stdin: stdin}
	in.addFlags(flags)
	startBP := flags.Int64("start", 0, "region start (bp, inclusive)")
	endBP := flags.Int64("end", 1<<62, "region end (bp, inclusive)")
	maf := flags.Float64("maf", 0, "MAF filter threshold")
	ciMethod := flags.String("ci-method", "WP", "D' confidence interval method: WP, AV, or NONE")
	lDensity := flags.Int("l-density", 101, "WP likelihood grid density L")
	markerA := flags.Int("a", -1, "left marker index (0-based, post-filter)")
	markerB := flags.Int("b", -1, "right marker index (0-based, post-filter)")

	err = flags.Parse(args)
	if err == flag.ErrHelp {
		return 0
	} else if err != nil {
		return 2
	}

	var ci CiMethod
	ci, err = parseCiMethod(*ciMethod, *lDensity)
	if err != nil {
		return 1
	}

	load, lerr := in.loader(*startBP, *endBP, *maf)
	if lerr != nil {
		err = lerr
		return 1
	}
	var v *HaplotypeView
	v, err = load()
	if err != nil {
		return 1
	}
	if v.Empty() {
		logNotEnoughSNPs(in.name(), v.M())
		return 0
	}

	report := func(a, b int) {
		stat := v.ComputeLD(a, b)
		lower, upper := v.ComputeCI(ci, a, b)
		fmt.Fprintf(stdout, "%s\t%s\t%d\t%d\t%g\t%g\t%g\t%g\t%g\t%g\n",
			v.Marker(a), v.Marker(b), v.Pos(a), v.Pos(b),
			stat.D, stat.Dprime, stat.R, stat.R2, lower, upper)
	}

	if *markerA >= 0 && *markerB >= 0 {
		if *markerA >= v.M() || *markerB >= v.M() {
			err = &PreconditionError{Param: "a/b", Msg: "marker index out of range"}
			return 1
		}
		report(*markerA, *markerB)
		return 0
	}

	for i := 1; i < v.M(); i++ {
		for j := 0; j < i; j++ {
			report(i, j)
		}
	}
	return 0
}
