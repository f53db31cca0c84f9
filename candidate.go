// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ldblock

import "math"

// CandidateBlock records a marker span whose interior meets the
// Gabriel et al. (2002) strong-LD fraction criterion. Candidates are
// owned by the generator until the partition selector copies the
// accepted subset.
type CandidateBlock struct {
	Start, End int
	SpanBP     int64
}

const (
	candidateBufferInit = 100000
	candidateBufferGrow = 10000
)

// candidateBuffer is a growable sequence of CandidateBlock with
// stable index addressing. It grows on a fixed +10,000-element
// schedule rather than Go's amortized-doubling default, so allocation
// behavior stays identical across the three pruning variants.
type candidateBuffer struct {
	items []CandidateBlock
}

func newCandidateBuffer() *candidateBuffer {
	return &candidateBuffer{items: make([]CandidateBlock, 0, candidateBufferInit)}
}

func (b *candidateBuffer) append(start, end int, spanBP int64) {
	if len(b.items) == cap(b.items) {
		grown := make([]CandidateBlock, len(b.items), cap(b.items)+candidateBufferGrow)
		copy(grown, b.items)
		b.items = grown
	}
	b.items = append(b.items, CandidateBlock{Start: start, End: end, SpanBP: spanBP})
}

// PruneMethodKind is the closed set of candidate-generation variants.
type PruneMethodKind int

const (
	PruneMIG PruneMethodKind = iota
	PruneMIGPlus
	PruneMIGPlusPlus
)

func (k PruneMethodKind) String() string {
	switch k {
	case PruneMIG:
		return "MIG"
	case PruneMIGPlus:
		return "MIG+"
	case PruneMIGPlusPlus:
		return "MIG++"
	default:
		return "unknown"
	}
}

// PruneMethod selects a pruning variant and, for MIG++, its window.
// Window 0 means "use the default", max(1, floor(M*(1-phi)/2)),
// resolved once the marker count is known.
type PruneMethod struct {
	Kind   PruneMethodKind
	Window int
}

// Validate rejects a negative MIG++ window. Zero is allowed: it
// selects the marker-count-dependent default at generation time.
func (m PruneMethod) Validate() error {
	if m.Kind == PruneMIGPlusPlus && m.Window < 0 {
		return &PreconditionError{Param: "window", Msg: "must not be negative"}
	}
	return nil
}

// defaultWindow is the MIG++ window used when the caller leaves it
// unset: max(1, floor(M*(1-phi)/2)). Small enough that the first pass
// stays cheap on low-LD data, large enough that high-LD data converges
// in few passes.
func defaultWindow(m int, phi float64) int {
	w := int(float64(m) * (1 - phi) / 2)
	if w < 1 {
		w = 1
	}
	return w
}

// GeneratorConfig bundles everything the pair classifier needs: the
// CI method (CI-mode) or the r^2 thresholds (rsq-mode), the
// strong/recombination bands, and the Gabriel fraction phi.
type GeneratorConfig struct {
	Ci CiMethod

	LStrong, UStrong float64
	URecomb          float64
	Phi              float64

	Rsq                bool
	WeakRsq, StrongRsq float64
}

// DefaultGeneratorConfig returns the Gabriel et al. (2002) defaults.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		LStrong: 0.70,
		UStrong: 0.98,
		URecomb: 0.90,
		Phi:     0.95,
	}
}

// Validate checks the classifier parameters: CI bounds in [0,1] with
// LStrong < UStrong, phi in (0,1], and for rsq-mode, weak/strong
// thresholds in (0,1].
func (cfg GeneratorConfig) Validate() error {
	if cfg.Phi <= 0 || cfg.Phi > 1 {
		return &PreconditionError{Param: "ld_fraction", Msg: "must be in (0, 1]"}
	}
	if cfg.Rsq {
		if cfg.WeakRsq <= 0 || cfg.WeakRsq > 1 {
			return &PreconditionError{Param: "weak_rsq", Msg: "must be in (0, 1]"}
		}
		if cfg.StrongRsq <= 0 || cfg.StrongRsq > 1 {
			return &PreconditionError{Param: "strong_rsq", Msg: "must be in (0, 1]"}
		}
		return nil
	}
	if cfg.LStrong < 0 || cfg.LStrong > 1 || cfg.UStrong < 0 || cfg.UStrong > 1 {
		return &PreconditionError{Param: "ld_ci", Msg: "bounds must be in [0, 1]"}
	}
	if cfg.LStrong >= cfg.UStrong {
		return &PreconditionError{Param: "ld_ci", Msg: "L_strong must be < U_strong"}
	}
	if cfg.URecomb < 0 || cfg.URecomb > 1 {
		return &PreconditionError{Param: "ehr_ci", Msg: "must be in [0, 1]"}
	}
	return cfg.Ci.Validate()
}

// strongWeight and recombWeight are the two nonzero pair weights:
// 1-phi for strong-LD pairs, -phi for recombination pairs. A running
// sum of these crosses zero exactly when the strong fraction of
// informative pairs reaches phi.
func (cfg GeneratorConfig) strongWeight() float64 { return 1 - cfg.Phi }
func (cfg GeneratorConfig) recombWeight() float64 { return -cfg.Phi }

// PairClass is the result of the pair classifier: a pair is
// strong-LD, recombinant, or uninformative (including the NaN case,
// when the CI or r^2 could not be computed).
type PairClass int

const (
	ClassNone PairClass = iota
	ClassStrong
	ClassRecomb
)

// classify assigns marker pair (i, j) to one of the three classes. In
// CI mode a pair is strong when its D' interval lies entirely inside
// the strong band on either sign, and recombinant when the interval
// sits inside the band around zero; in rsq mode the raw r^2 is
// compared against the two thresholds directly.
func (cfg GeneratorConfig) classify(v *HaplotypeView, i, j int) PairClass {
	if cfg.Rsq {
		r2 := v.Rsq(i, j)
		if math.IsNaN(r2) {
			return ClassNone
		}
		if r2 >= cfg.StrongRsq {
			return ClassStrong
		}
		if r2 < cfg.WeakRsq {
			return ClassRecomb
		}
		return ClassNone
	}

	lower, upper := v.ComputeCI(cfg.Ci, i, j)
	if math.IsNaN(lower) || math.IsNaN(upper) {
		return ClassNone
	}
	if (lower >= cfg.LStrong && upper >= cfg.UStrong) || (lower <= -cfg.UStrong && upper <= -cfg.LStrong) {
		return ClassStrong
	}
	if lower >= -cfg.URecomb && upper <= cfg.URecomb {
		return ClassRecomb
	}
	return ClassNone
}

// GenerateCandidates dispatches to the MIG, MIG+ or MIG++ candidate
// generator. All three variants emit the same candidate set for the
// same inputs; MIG is the exhaustive baseline and MIG+/MIG++ are
// pruning optimizations over it.
func GenerateCandidates(v *HaplotypeView, gen GeneratorConfig, prune PruneMethod) []CandidateBlock {
	switch prune.Kind {
	case PruneMIGPlus:
		return pruneMIGPlus(v, gen)
	case PruneMIGPlusPlus:
		window := prune.Window
		if window == 0 {
			window = defaultWindow(v.M(), gen.Phi)
		}
		return pruneMIGPlusPlus(v, gen, window)
	default:
		return pruneMIG(v, gen)
	}
}
