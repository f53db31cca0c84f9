// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ldblock

import log "github.com/sirupsen/logrus"

// Config bundles every parameter the block-discovery engine
// recognizes: the MAF filter threshold used by loaders when
// constructing a View, the CI method (or rsq-mode thresholds), the
// pruning variant, and the strong-LD/recombination bands. It is the
// single argument threaded from the CLI layer (cmd.go) down to
// DiscoverBlocks.
type Config struct {
	MAF float64

	Generator GeneratorConfig
	Prune     PruneMethod
}

// DefaultConfig returns the Gabriel et al. (2002) defaults: phi=0.95,
// strong band [0.70, 0.98], recombination band 0.90, MIG pruning.
func DefaultConfig() Config {
	return Config{
		MAF:       0,
		Generator: DefaultGeneratorConfig(),
		Prune:     PruneMethod{Kind: PruneMIG},
	}
}

// Validate runs every parameter precondition check without touching
// any data: invalid parameters must be surfaced before a View is even
// built.
func (cfg Config) Validate() error {
	if cfg.MAF < 0 || cfg.MAF > 0.5 {
		return &PreconditionError{Param: "maf", Msg: "must be in [0, 0.5]"}
	}
	if err := cfg.Prune.Validate(); err != nil {
		return err
	}
	return cfg.Generator.Validate()
}

// DiscoverBlocks runs the full pipeline over an already-built
// HaplotypeView: generate candidates with the configured pruning
// variant, then greedily select the final, non-overlapping partition.
// It performs no I/O; callers serialize the returned Partition
// themselves.
//
// The "not enough SNPs" condition is not an error: a View with fewer
// than two markers yields an empty Partition, and callers log that
// condition (see logNotEnoughSNPs).
func DiscoverBlocks(v *HaplotypeView, cfg Config) (*Partition, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if v.Empty() {
		return &Partition{}, nil
	}
	candidates := GenerateCandidates(v, cfg.Generator, cfg.Prune)
	return SelectPartition(v, candidates), nil
}

// logNotEnoughSNPs is the single call site for the "not enough SNPs"
// log line, kept as a named helper so every caller (blocksCmd, the
// region driver) reports it identically.
func logNotEnoughSNPs(region string, m int) {
	log.Infof("%s: not enough SNPs (%d remaining after filtering); skipping", region, m)
}
