// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package slicing resolves strided-slice specifications against array shapes.
//
// A slice is described at the boundary by a RawSpec: parallel begin/end/strides lists plus five
// bit masks (begin, end, ellipsis, new-axis and shrink-axis), the encoding used by most
// array frameworks. The masks are decoded immediately into one AxisSpec per entry (see
// AxisRange, AxisElem, NewAxis and Ellipsis), and Resolve turns those into one ResolvedAxis
// per input axis, plus two shapes:
//
//   - ProcessingShape: one axis per input axis, used to walk the selected elements. Shrunk
//     axes are present with dimension 1.
//   - FinalShape: the shape the caller sees: shrunk axes removed and new axes inserted.
//
// Example: for an input shaped `[4, 5, 6]`, the NumPy-style slice `x[1, ..., None, ::-2]`
// resolves to the processing shape `[1, 5, 3]` and the final shape `[5, 1, 3]`.
//
// The package is backend independent: the same Resolution drives every backend, and
// Classify picks the execution strategy (fast path) a backend should use.
package slicing

import (
	"fmt"
	"math/bits"
	"strings"
)

// MaxRank is the largest processing rank the strided walkers are specialized for.
// Identity and contiguous slices work for any rank.
const MaxRank = 6

// MaxSpecLength is the maximum number of entries in a RawSpec, bounded by the width of Mask.
const MaxSpecLength = 32

// Mask is a bit set over the entries of a RawSpec: bit i refers to entry i.
type Mask uint32

// Has returns whether the bit for entry i is set.
func (m Mask) Has(i int) bool {
	if i < 0 || i >= MaxSpecLength {
		return false
	}
	return m&(1<<uint(i)) != 0
}

// With returns a copy of the mask with the bit for entry i set.
func (m Mask) With(i int) Mask {
	return m | (1 << uint(i))
}

// Count returns the number of bits set.
func (m Mask) Count() int {
	return bits.OnesCount32(uint32(m))
}

// RawSpec is the boundary encoding of a strided slice.
//
// Begin, End and Strides must have the same length. For entry i:
//
//   - BeginMask (EndMask) bit i set means Begin[i] (End[i]) is ignored and the slice extends fully
//     in that direction.
//   - EllipsisMask bit i set means the entry expands to as many full axes as needed to cover the
//     input rank. At most one bit can be set. If none is set, an implicit ellipsis follows the
//     last entry.
//   - NewAxisMask bit i set inserts an axis of dimension 1, consuming no input axis.
//   - ShrinkAxisMask bit i set selects the single index Begin[i] and removes the axis from the
//     final shape.
//
// Bits beyond the length of the spec are ignored, except in EllipsisMask: any two bits set
// there make the spec invalid.
//
// Prefer building it with Build from AxisSpec values, or with ParseExpression.
type RawSpec struct {
	Begin, End, Strides []int

	BeginMask, EndMask, EllipsisMask, NewAxisMask, ShrinkAxisMask Mask
}

// Len returns the number of entries in the spec.
func (spec RawSpec) Len() int { return len(spec.Begin) }

// Validate checks the structural invariants of the spec that don't depend on the input shape.
// All errors wrap ErrInvalidArgument.
func (spec RawSpec) Validate() error {
	if len(spec.End) != len(spec.Begin) || len(spec.Strides) != len(spec.Begin) {
		return InvalidArgumentf("expected begin, end, and strides to be of equal length, but got len(begin)=%d, len(end)=%d, len(strides)=%d",
			len(spec.Begin), len(spec.End), len(spec.Strides))
	}
	if len(spec.Begin) >= MaxSpecLength {
		return InvalidArgumentf("slice spec has %d entries, it must have less than %d", len(spec.Begin), MaxSpecLength)
	}
	if numEllipsis := spec.EllipsisMask.Count(); numEllipsis > 1 {
		return InvalidArgumentf("multiple ellipses in slice spec not allowed, ellipsis_mask=%#b has %d bits set",
			spec.EllipsisMask, numEllipsis)
	}
	for i, stride := range spec.Strides {
		if stride == 0 {
			return InvalidArgumentf("strides[%d] must be non-zero", i)
		}
	}
	return nil
}

// Axes decodes the masks into one AxisSpec per entry.
//
// Precedence follows the usual convention: ellipsis over new axis, new axis over shrink.
func (spec RawSpec) Axes() ([]AxisSpec, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	axes := make([]AxisSpec, spec.Len())
	for i := range axes {
		switch {
		case spec.EllipsisMask.Has(i):
			axes[i] = Ellipsis()
		case spec.NewAxisMask.Has(i):
			axes[i] = NewAxis()
		case spec.ShrinkAxisMask.Has(i):
			axes[i] = AxisSpec{Kind: KindIndex, Start: spec.Begin[i], Step: spec.Strides[i]}
		default:
			axes[i] = AxisSpec{
				Kind:     KindRange,
				Start:    spec.Begin[i],
				Stop:     spec.End[i],
				Step:     spec.Strides[i],
				HasStart: !spec.BeginMask.Has(i),
				HasStop:  !spec.EndMask.Has(i),
			}
		}
	}
	return axes, nil
}

// String pretty-prints the spec in NumPy notation, e.g. "[1:3, ..., ::-1, newaxis, 2]".
func (spec RawSpec) String() string {
	axes, err := spec.Axes()
	if err != nil {
		return fmt.Sprintf("RawSpec{begin=%v, end=%v, strides=%v, masks=%#b/%#b/%#b/%#b/%#b}",
			spec.Begin, spec.End, spec.Strides,
			spec.BeginMask, spec.EndMask, spec.EllipsisMask, spec.NewAxisMask, spec.ShrinkAxisMask)
	}
	parts := make([]string, len(axes))
	for i, axis := range axes {
		parts[i] = axis.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
