// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape and associated tools for dense, row-major arrays.
//
// Shape represents the shape (rank, dimensions and DType) of an array stored as a flat
// buffer in row-major order: the last axis is the one that changes fastest in memory.
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of an array.
//   - Axis: is the index of a dimension on a multidimensional array. Sometimes used
//     interchangeably with Dimension, but here we try to refer to a dimension index as "axis"
//     (plural axes), and its size as its dimension.
//   - Dimension: the size of a multi-dimensional array in one of its axes.
//   - DType: the data type of the unit element in an array. Enumeration defined in github.com/gomlx/gopjrt/dtypes
//   - Scalar: is a shape where there are no axes (or dimensions), only a single value
//     of the associated DType.
//
// Different from shapes used for computation graphs, dimensions here can be 0: slicing
// frequently selects empty regions, and an empty array is a perfectly valid operand.
//
// Example: The multi-dimensional array `[][]int32{{0, 1, 2}, {3, 4, 5}}` would have shape
// `(Int32)[2 3]`. We say it has rank 2 (so 2 axes), axis 0 has dimension 2, and axis 1 has
// dimension 3. This shape could be created with `shapes.Make(dtypes.Int32, 2, 3)`.
package shapes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Shape represents the shape of a dense array.
//
// Use Make to create a new shape. See example in package shapes documentation.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int
}

// Make returns a Shape structure filled with the values given.
//
// It panics if any of the dimensions is negative: use Validate to check user-provided
// dimensions before building a shape.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions), DType: dtype}
	for _, dim := range dimensions {
		if dim < 0 {
			exceptions.Panicf("shapes.Make(%s): cannot create a shape with an axis with dimension < 0", s)
		}
	}
	return s
}

// Scalar returns a scalar Shape for the given type.
func Scalar[T dtypes.Supported]() Shape {
	return Shape{DType: dtypes.FromGenericsType[T]()}
}

// Invalid returns an invalid shape.
//
// Invalid().Ok() == false.
func Invalid() Shape {
	return Shape{DType: dtypes.InvalidDType}
}

// Validate returns an error if the dtype is invalid or if any of the dimensions is negative.
func Validate(dtype dtypes.DType, dimensions ...int) error {
	if dtype == dtypes.InvalidDType {
		return errors.Errorf("invalid dtype for dimensions %v", dimensions)
	}
	for axis, dim := range dimensions {
		if dim < 0 {
			return errors.Errorf("invalid dimension %d for axis %d of %v: dimensions must be >= 0", dim, axis, dimensions)
		}
	}
	return nil
}

// Ok returns whether this is a valid Shape. A "zero" shape, that is just instantiating it with Shape{} will be invalid.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank of the shape, that is, the number of dimensions.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar, that is there are no dimensions (rank==0).
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// Dim returns the dimension of the given axis. axis can take negative numbers, in which
// case it counts as starting from the end -- so axis=-1 refers to the last axis.
// Like with a slice indexing, it panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// Shape returns a shallow copy of itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// String implements stringer, pretty-prints the shape.
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	return fmt.Sprintf("(%s)%v", s.DType, s.Dimensions)
}

// DimensionsString pretty-prints only the dimensions, as in "(4, 5, 6)". Scalars are printed as "()".
func (s Shape) DimensionsString() string {
	parts := make([]string, len(s.Dimensions))
	for ii, dim := range s.Dimensions {
		parts[ii] = fmt.Sprintf("%d", dim)
	}
	if len(parts) == 1 {
		return fmt.Sprintf("(%s,)", parts[0])
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
}

// Size returns the number of elements of DType are needed for this shape. It's the product of all dimensions.
// It is 0 if any of the dimensions is 0, and 1 for a scalar.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return
}

// IsEmpty returns whether the shape holds no elements, that is, one of its dimensions is 0.
func (s Shape) IsEmpty() bool {
	return slices.Contains(s.Dimensions, 0)
}

// Memory returns the memory used to store an array of the given shape, the same as the size in bytes.
func (s Shape) Memory() uintptr {
	return s.DType.Memory() * uintptr(s.Size())
}

// Equal compares two shapes for equality: dtype and dimensions are compared.
func (s Shape) Equal(s2 Shape) bool {
	if s.DType != s2.DType {
		return false
	}
	return s.EqualDimensions(s2)
}

// EqualDimensions compares two shapes for equality of dimensions. Dtypes can be different.
func (s Shape) EqualDimensions(s2 Shape) bool {
	if s.Rank() != s2.Rank() {
		return false
	}
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() (s2 Shape) {
	s2.DType = s.DType
	s2.Dimensions = slices.Clone(s.Dimensions)
	return
}

// Reshape returns a new shape with the same DType and the given dimensions.
// The total number of elements must be preserved, or it panics.
func (s Shape) Reshape(dimensions ...int) Shape {
	s2 := Make(s.DType, dimensions...)
	if s2.Size() != s.Size() {
		exceptions.Panicf("Shape.Reshape(%v): shape %s has %d elements, it cannot be reshaped to %d elements",
			dimensions, s, s.Size(), s2.Size())
	}
	return s2
}

// Strides returns the row-major strides of the shape: the number of elements to skip in the flat
// buffer to move one position in each axis. The last axis has stride 1.
//
// Axes with dimension 0 still get a stride computed as if they had dimension 1, so strides are
// always well-defined (and positive).
func (s Shape) Strides() []int {
	rank := s.Rank()
	strides := make([]int, rank)
	stride := 1
	for axis := rank - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= max(s.Dimensions[axis], 1)
	}
	return strides
}

// CheckDims checks that the shape has the given dimensions and rank. A value of -1 in
// dimensions means it can take any value and is not checked.
//
// It returns an error if the rank is different or if any of the dimensions don't match.
func (s Shape) CheckDims(dimensions ...int) error {
	if s.Rank() != len(dimensions) {
		return errors.Errorf("shape (%s) has incompatible rank %d (wanted %d)", s, s.Rank(), len(dimensions))
	}
	for ii, wantDim := range dimensions {
		if wantDim != -1 && s.Dimensions[ii] != wantDim {
			return errors.Errorf("shape (%s) axis %d has dimension %d, wanted %d (shape wanted=%v)", s, ii, s.Dimensions[ii], wantDim, dimensions)
		}
	}
	return nil
}
