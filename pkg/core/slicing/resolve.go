// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package slicing

import (
	"fmt"
	"strings"

	"github.com/gomlx/stridedslice/pkg/core/shapes"
)

// ResolvedAxis is the concrete range selected on one input axis: the indices
// Start, Start+Step, ... up to (excluding) Stop. Step is never 0, and it can be negative.
//
// For a positive Step, 0 <= Start, Stop <= dim. For a negative Step, -1 <= Start, Stop <= dim-1.
type ResolvedAxis struct {
	Start, Stop, Step int

	// Shrink indicates the axis selects one index (Stop == Start+1, Step == 1) and it is
	// removed from the final shape.
	Shrink bool
}

// Size returns the number of indices selected on the axis.
func (a ResolvedAxis) Size() int {
	interval := a.Stop - a.Start
	if interval == 0 || (interval < 0) != (a.Step < 0) {
		return 0
	}
	size := interval / a.Step
	if interval%a.Step != 0 {
		size++
	}
	return size
}

// String prints the range in NumPy notation.
func (a ResolvedAxis) String() string {
	if a.Shrink {
		return fmt.Sprintf("%d", a.Start)
	}
	return fmt.Sprintf("%d:%d:%d", a.Start, a.Stop, a.Step)
}

// newAxisMarker is used in Resolution.finalAxes for the axes inserted by NewAxis.
const newAxisMarker = -1

// Resolution is the result of resolving a slicing specification against an input shape.
//
// It is derived, immutable data, and it doesn't hold any reference to array data.
type Resolution struct {
	// Input shape the spec was resolved against.
	Input shapes.Shape

	// Axes holds one resolved range per input axis.
	Axes []ResolvedAxis

	// ProcessingShape has one axis per input axis, with the number of selected indices
	// (1 for shrunk axes). It is the shape walked by the strided walkers.
	ProcessingShape shapes.Shape

	// FinalShape is the shape of the slice as seen by the caller: ProcessingShape without the
	// shrunk axes and with the new axes inserted.
	FinalShape shapes.Shape

	// IsIdentity is true if every input axis is taken in full with step 1: slicing is only a reshape.
	IsIdentity bool

	// IsSimpleSlice is true if all steps are 1.
	IsSimpleSlice bool

	// SliceDim0 is true if only axis 0 is sliced (with step 1), and all other axes are taken in full.
	// The selected elements then form one contiguous run of the row-major input.
	SliceDim0 bool

	// finalAxes maps each final axis to its processing axis, or newAxisMarker.
	finalAxes []int
}

// Resolve a slicing specification against the input shape.
//
// All errors wrap ErrInvalidArgument and no partial result is returned.
func Resolve(input shapes.Shape, spec RawSpec) (*Resolution, error) {
	axes, err := spec.Axes()
	if err != nil {
		return nil, err
	}
	return ResolveAxes(input, axes...)
}

// ResolveAxes is like Resolve, but takes the already decoded axes specifications.
func ResolveAxes(input shapes.Shape, axes ...AxisSpec) (*Resolution, error) {
	if !input.Ok() {
		return nil, InvalidArgumentf("cannot slice an input with invalid shape %s", input)
	}
	if err := shapes.Validate(input.DType, input.Dimensions...); err != nil {
		return nil, InvalidArgumentf("cannot slice input: %v", err)
	}
	dense, finalAxes, err := expandAxes(input, axes)
	if err != nil {
		return nil, err
	}

	rank := input.Rank()
	r := &Resolution{
		Input:         input.Clone(),
		Axes:          make([]ResolvedAxis, rank),
		IsIdentity:    true,
		IsSimpleSlice: true,
		SliceDim0:     true,
		finalAxes:     finalAxes,
	}
	processingDims := make([]int, rank)
	for axis, axisSpec := range dense {
		dim := input.Dimensions[axis]
		resolved, err := resolveAxis(axis, dim, axisSpec)
		if err != nil {
			return nil, err
		}
		r.Axes[axis] = resolved
		processingDims[axis] = resolved.Size()

		takeAll := resolved.Step == 1 && resolved.Start == 0 && resolved.Stop == dim
		r.IsIdentity = r.IsIdentity && takeAll
		r.IsSimpleSlice = r.IsSimpleSlice && resolved.Step == 1
		r.SliceDim0 = r.SliceDim0 && ((axis == 0 && resolved.Step == 1) || takeAll)
	}
	r.ProcessingShape = shapes.Make(input.DType, processingDims...)

	finalDims := make([]int, len(finalAxes))
	for ii, processingAxis := range finalAxes {
		if processingAxis == newAxisMarker {
			finalDims[ii] = 1
		} else {
			finalDims[ii] = processingDims[processingAxis]
		}
	}
	r.FinalShape = shapes.Make(input.DType, finalDims...)
	return r, nil
}

// expandAxes replaces the ellipsis by full ranges, so there is exactly one AxisSpec per input axis.
// It also returns the mapping of final axes to processing axes.
func expandAxes(input shapes.Shape, axes []AxisSpec) (dense []AxisSpec, finalAxes []int, err error) {
	rank := input.Rank()
	numEllipsis, numExplicit := 0, 0
	for _, axis := range axes {
		switch {
		case axis.Kind == KindEllipsis:
			numEllipsis++
		case axis.consumesInputAxis():
			numExplicit++
		}
	}
	if numEllipsis > 1 {
		return nil, nil, InvalidArgumentf("multiple ellipses in slice spec not allowed, got %d in %s",
			numEllipsis, axesString(axes))
	}
	if numExplicit > rank {
		return nil, nil, InvalidArgumentf("slice spec %s indexes %d axes, but input shape %s has only rank %d",
			axesString(axes), numExplicit, input, rank)
	}
	if numEllipsis == 0 {
		// Implicit ellipsis at the end.
		axes = append(axes[:len(axes):len(axes)], Ellipsis())
	}

	dense = make([]AxisSpec, 0, rank)
	finalAxes = make([]int, 0, len(axes)+rank)
	ellipsisSpan := rank - numExplicit
	for _, axis := range axes {
		switch axis.Kind {
		case KindEllipsis:
			for range ellipsisSpan {
				finalAxes = append(finalAxes, len(dense))
				dense = append(dense, AxisRange())
			}
		case KindNewAxis:
			finalAxes = append(finalAxes, newAxisMarker)
		case KindIndex:
			dense = append(dense, axis)
		case KindRange:
			finalAxes = append(finalAxes, len(dense))
			dense = append(dense, axis)
		default:
			return nil, nil, InvalidArgumentf("unknown axis kind %s in slice spec %s", axis.Kind, axesString(axes))
		}
	}
	return dense, finalAxes, nil
}

// resolveAxis normalizes one axis specification against the axis dimension.
func resolveAxis(axis, dim int, spec AxisSpec) (ResolvedAxis, error) {
	if spec.Step == 0 {
		return ResolvedAxis{}, InvalidArgumentf("stride for axis %d must be non-zero", axis)
	}

	if spec.Kind == KindIndex {
		if spec.Step < 0 {
			return ResolvedAxis{}, InvalidArgumentf("only stride 1 allowed on non-range indexing, got stride %d for index %d of axis %d",
				spec.Step, spec.Start, axis)
		}
		index := spec.Start
		if index < 0 {
			index += dim
		}
		if index < 0 || index >= dim {
			return ResolvedAxis{}, InvalidArgumentf("slice index %d of axis %d out of bounds for dimension %d",
				spec.Start, axis, dim)
		}
		return ResolvedAxis{Start: index, Stop: index + 1, Step: 1, Shrink: true}, nil
	}

	// Valid range of start/stop values for the direction of the walk.
	lo, hi := 0, dim
	if spec.Step < 0 {
		lo, hi = -1, dim-1
	}
	canonical := func(x int, given, isStart bool) int {
		if !given {
			if isStart == (spec.Step > 0) {
				return lo
			}
			return hi
		}
		if x < 0 {
			x += dim
		}
		return min(max(x, lo), hi)
	}
	return ResolvedAxis{
		Start: canonical(spec.Start, spec.HasStart, true),
		Stop:  canonical(spec.Stop, spec.HasStop, false),
		Step:  spec.Step,
	}, nil
}

func axesString(axes []AxisSpec) string {
	parts := make([]string, len(axes))
	for i, axis := range axes {
		parts[i] = axis.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ProcessingRank returns the rank of the processing shape, which is also the input rank.
func (r *Resolution) ProcessingRank() int { return r.ProcessingShape.Rank() }

// NumElements returns the number of elements selected by the slice.
func (r *Resolution) NumElements() int { return r.ProcessingShape.Size() }

// Begin returns the resolved start index of each input axis.
func (r *Resolution) Begin() []int {
	begin := make([]int, len(r.Axes))
	for i, axis := range r.Axes {
		begin[i] = axis.Start
	}
	return begin
}

// End returns the resolved (exclusive) stop index of each input axis.
func (r *Resolution) End() []int {
	end := make([]int, len(r.Axes))
	for i, axis := range r.Axes {
		end[i] = axis.Stop
	}
	return end
}

// Strides returns the resolved step of each input axis.
func (r *Resolution) Strides() []int {
	strides := make([]int, len(r.Axes))
	for i, axis := range r.Axes {
		strides[i] = axis.Step
	}
	return strides
}

// ShrunkAxes returns the input axes removed from the final shape.
func (r *Resolution) ShrunkAxes() []int {
	var shrunk []int
	for i, axis := range r.Axes {
		if axis.Shrink {
			shrunk = append(shrunk, i)
		}
	}
	return shrunk
}

// NewAxes returns the positions in the final shape of the axes inserted by new-axis entries.
func (r *Resolution) NewAxes() []int {
	var newAxes []int
	for i, processingAxis := range r.finalAxes {
		if processingAxis == newAxisMarker {
			newAxes = append(newAxes, i)
		}
	}
	return newAxes
}

// String implements fmt.Stringer.
func (r *Resolution) String() string {
	parts := make([]string, len(r.Axes))
	for i, axis := range r.Axes {
		parts[i] = axis.String()
	}
	return fmt.Sprintf("Resolution{input=%s, axes=[%s], processing=%v, final=%v}",
		r.Input, strings.Join(parts, ", "), r.ProcessingShape.Dimensions, r.FinalShape.Dimensions)
}
