// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package slicing

import (
	"fmt"

	"github.com/gomlx/exceptions"
)

// AxisKind enumerates the variants of an AxisSpec.
type AxisKind int

const (
	// KindRange selects Start:Stop:Step. A missing Start or Stop (HasStart/HasStop false) extends
	// the range fully in that direction. The "full" range `:` is a KindRange with neither.
	KindRange AxisKind = iota

	// KindIndex selects the single index Start and removes the axis from the final shape.
	KindIndex

	// KindNewAxis inserts an axis of dimension 1, consuming no input axis.
	KindNewAxis

	// KindEllipsis expands to as many full ranges as needed to cover the input rank.
	KindEllipsis
)

// String implements fmt.Stringer.
func (k AxisKind) String() string {
	switch k {
	case KindRange:
		return "Range"
	case KindIndex:
		return "Index"
	case KindNewAxis:
		return "NewAxis"
	case KindEllipsis:
		return "Ellipsis"
	default:
		return fmt.Sprintf("AxisKind(%d)", int(k))
	}
}

// AxisSpec specifies how one entry of a slice selects elements.
//
// The recommendation is to use AxisRange, AxisElem, NewAxis or Ellipsis (defined below) to create it,
// and optionally the Stride method to set the step.
type AxisSpec struct {
	Kind              AxisKind
	Start, Stop, Step int
	HasStart, HasStop bool
}

// Stride returns a copy of the AxisSpec with the step set to the given stride.
// Negative strides walk the axis backwards. It only makes sense for ranges.
func (a AxisSpec) Stride(stride int) AxisSpec {
	a2 := a
	a2.Step = stride
	return a2
}

// AxisRange defines a range to take for an axis.
//
// The indices can have 0, 1 or 2 elements:
// - If `len(indices) == 0`, it's assumed to be the full range of the axis.
// - If `len(indices) == 1`, it's assumed to be the start, and the range should be taken to the end.
// - If `len(indices) == 2`, they should be the start and end indices for the axis.
// - If `len(indices) > 2`, an error is raised with panic.
//
// Negative values are taken from the end of the axis dimension.
// See also AxisElem if you want to define only one element of the range.
func AxisRange(indices ...int) AxisSpec {
	if len(indices) > 2 {
		exceptions.Panicf("AxisRange(%v): more than 2 indices provided, that's not supported", indices)
	}
	if len(indices) == 0 {
		return AxisSpec{Kind: KindRange, Step: 1}
	}
	if len(indices) == 1 {
		return AxisSpec{Kind: KindRange, Start: indices[0], HasStart: true, Step: 1}
	}
	return AxisSpec{Kind: KindRange, Start: indices[0], HasStart: true, Stop: indices[1], HasStop: true, Step: 1}
}

// AxisRangeToEnd defines a range from the given value to the end of the axis.
func AxisRangeToEnd(from int) AxisSpec {
	return AxisRange(from)
}

// AxisRangeFromStart defines a range from the start (0) to the given value for the axis.
func AxisRangeFromStart(to int) AxisSpec {
	return AxisSpec{Kind: KindRange, Stop: to, HasStop: true, Step: 1}
}

// AxisElem selects one element of an axis and removes the axis from the resulting shape,
// like `x[index]` in NumPy. Negative indices count from the end.
func AxisElem(index int) AxisSpec {
	return AxisSpec{Kind: KindIndex, Start: index, Step: 1}
}

// NewAxis inserts a new axis of dimension 1, like `x[None]` in NumPy.
func NewAxis() AxisSpec {
	return AxisSpec{Kind: KindNewAxis, Step: 1}
}

// Ellipsis expands to as many full ranges as needed to cover all the axes not covered by
// other entries, like `x[...]` in NumPy. At most one can be used in a slice.
func Ellipsis() AxisSpec {
	return AxisSpec{Kind: KindEllipsis, Step: 1}
}

// consumesInputAxis returns whether the entry maps to an explicit input axis.
func (a AxisSpec) consumesInputAxis() bool {
	return a.Kind == KindRange || a.Kind == KindIndex
}

// String prints the entry in NumPy notation.
func (a AxisSpec) String() string {
	switch a.Kind {
	case KindIndex:
		return fmt.Sprintf("%d", a.Start)
	case KindNewAxis:
		return "newaxis"
	case KindEllipsis:
		return "..."
	}
	var start, stop string
	if a.HasStart {
		start = fmt.Sprintf("%d", a.Start)
	}
	if a.HasStop {
		stop = fmt.Sprintf("%d", a.Stop)
	}
	if a.Step == 1 {
		return start + ":" + stop
	}
	return fmt.Sprintf("%s:%s:%d", start, stop, a.Step)
}

// Build encodes the axes specifications into a RawSpec.
//
// A step of 0 on a range is kept as is, and it is reported as an error when the spec is validated.
func Build(axes ...AxisSpec) (RawSpec, error) {
	n := len(axes)
	spec := RawSpec{
		Begin:   make([]int, n),
		End:     make([]int, n),
		Strides: make([]int, n),
	}
	if n >= MaxSpecLength {
		return RawSpec{}, InvalidArgumentf("slice has %d axes specifications, it must have less than %d", n, MaxSpecLength)
	}
	for i, axis := range axes {
		spec.Strides[i] = 1
		switch axis.Kind {
		case KindEllipsis:
			spec.EllipsisMask = spec.EllipsisMask.With(i)
		case KindNewAxis:
			spec.NewAxisMask = spec.NewAxisMask.With(i)
		case KindIndex:
			spec.ShrinkAxisMask = spec.ShrinkAxisMask.With(i)
			spec.Begin[i] = axis.Start
			spec.End[i] = axis.Start + 1
			if axis.Step != 0 {
				spec.Strides[i] = axis.Step
			}
		case KindRange:
			spec.Strides[i] = axis.Step
			if axis.HasStart {
				spec.Begin[i] = axis.Start
			} else {
				spec.BeginMask = spec.BeginMask.With(i)
			}
			if axis.HasStop {
				spec.End[i] = axis.Stop
			} else {
				spec.EndMask = spec.EndMask.With(i)
			}
		default:
			return RawSpec{}, InvalidArgumentf("unknown axis kind %s for axis specification #%d", axis.Kind, i)
		}
	}
	if err := spec.Validate(); err != nil {
		return RawSpec{}, err
	}
	return spec, nil
}

// MustBuild is like Build, but it panics on error. Handy for constant specs in tests and examples.
func MustBuild(axes ...AxisSpec) RawSpec {
	spec, err := Build(axes...)
	if err != nil {
		panic(err)
	}
	return spec
}
