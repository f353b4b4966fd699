// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import "iter"

// Iter iterates over all possible indices of the given shape, in row-major order.
// To avoid allocating the slice of indices, the yielded indices is owned by the Iter() method:
// don't change it inside the loop.
//
// A scalar yields one empty index, and a shape with any dimension 0 yields nothing.
func (s Shape) Iter() iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		if !s.Ok() {
			return
		}

		rank := s.Rank()
		if rank == 0 {
			_ = yield(make([]int, 0))
			return
		}
		if s.IsEmpty() {
			return
		}

		currentIndices := make([]int, rank)
		for {
			if !yield(currentIndices) {
				return
			}

			// Increment currentIndices to the next set of coordinates
			// (row-major order: the last index changes fastest).
			axis := rank - 1
			for ; axis >= 0; axis-- {
				if s.Dimensions[axis] == 1 {
					continue
				}
				currentIndices[axis]++
				if currentIndices[axis] < s.Dimensions[axis] {
					break
				}
				// Carry over to the next higher-order axis.
				currentIndices[axis] = 0
			}
			if axis < 0 {
				return
			}
		}
	}
}

// IterFlat iterates over all indices of the shape together with their flat (row-major) position.
func (s Shape) IterFlat() iter.Seq2[int, []int] {
	return func(yield func(int, []int) bool) {
		var flatIdx int
		for indices := range s.Iter() {
			if !yield(flatIdx, indices) {
				return
			}
			flatIdx++
		}
	}
}
