// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package ldblock

// pruneMIG is the exhaustive candidate generator. For every right
// endpoint i it rescans every left endpoint j < i, so the overall
// cost is O(M^2) CI (or r^2) evaluations.
//
// w is the persisted per-left-endpoint running score; it never resets
// across the outer i loop. s is the running score accumulated while
// scanning j downward for the current i; it resets to 0 at the start
// of every i. A strong pair adds
// the strong weight to s and folds s into w[j]; a recombination pair
// adds the (negative) recombination weight to s and folds it in the
// same way; an uninformative pair folds the unchanged s into w[j] so
// every j underneath the current i keeps receiving the running total.
// A candidate is emitted only immediately after a strong increment
// that leaves w[j] at or above zero.
func pruneMIG(v *HaplotypeView, cfg GeneratorConfig) []CandidateBlock {
	m := v.M()
	w := make([]float64, m)
	buf := newCandidateBuffer()

	for i := 1; i < m; i++ {
		s := 0.0
		for j := i - 1; j >= 0; j-- {
			switch cfg.classify(v, i, j) {
			case ClassStrong:
				s += cfg.strongWeight()
				w[j] += s
				if w[j] >= -epsilon {
					buf.append(j, i, v.Pos(i)-v.Pos(j))
				}
			case ClassRecomb:
				s += cfg.recombWeight()
				w[j] += s
			default:
				w[j] += s
			}
		}
	}
	return buf.items
}
