// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package stridedslice

import (
	"reflect"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/x448/float16"

	"github.com/gomlx/stridedslice/backends"
	"github.com/gomlx/stridedslice/pkg/core/shapes"
	"github.com/gomlx/stridedslice/pkg/core/slicing"
)

// Element enumerates the Go types of the array elements accepted by the flat helpers.
type Element interface {
	bool | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 |
		float32 | float64 | float16.Float16 | bfloat16.BFloat16
}

// dtypeFor returns the dtype of the Go type T.
func dtypeFor[T Element]() dtypes.DType {
	return dtypes.FromGoType(reflect.TypeFor[T]())
}

// makeShape validates the dimensions and returns the shape for elements of type T.
func makeShape[T Element](dims []int) (shapes.Shape, error) {
	dtype := dtypeFor[T]()
	if err := shapes.Validate(dtype, dims...); err != nil {
		return shapes.Invalid(), slicing.InvalidArgumentf("%v", err)
	}
	return shapes.Make(dtype, dims...), nil
}

// shapeFor returns the shape for a flat Go slice with the given dimensions.
func shapeFor[T Element](flat []T, dims []int) (shapes.Shape, error) {
	shape, err := makeShape[T](dims)
	if err != nil {
		return shapes.Invalid(), err
	}
	if len(flat) != shape.Size() {
		return shapes.Invalid(), slicing.InvalidArgumentf("flat slice has %d elements, but dimensions %v require %d",
			len(flat), dims, shape.Size())
	}
	return shape, nil
}

// upload copies the flat slice into a new backend buffer.
func upload[T Element](e *Engine, flat []T, dims []int) (backends.Buffer, error) {
	shape, err := shapeFor(flat, dims)
	if err != nil {
		return nil, err
	}
	return e.backend.BufferFromFlatData(flat, shape)
}

// download copies the buffer contents into a new flat slice, and finalizes the buffer.
func download[T Element](e *Engine, buffer backends.Buffer) ([]T, shapes.Shape, error) {
	defer func() { _ = e.backend.BufferFinalize(buffer) }()
	shape, err := e.backend.BufferShape(buffer)
	if err != nil {
		return nil, shapes.Invalid(), err
	}
	flat := make([]T, shape.Size())
	if err := e.backend.BufferToFlatData(buffer, flat); err != nil {
		return nil, shapes.Invalid(), err
	}
	return flat, shape, nil
}

// SliceFlat slices the array given as a row-major flat Go slice with the given dimensions.
// It returns the flat values of the slice and its dimensions.
func SliceFlat[T Element](e *Engine, flat []T, dims []int, spec slicing.RawSpec) ([]T, []int, error) {
	input, err := upload(e, flat, dims)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = e.backend.BufferFinalize(input) }()
	output, err := e.Slice(input, spec)
	if err != nil {
		return nil, nil, err
	}
	outputFlat, outputShape, err := download[T](e, output)
	if err != nil {
		return nil, nil, err
	}
	return outputFlat, outputShape.Dimensions, nil
}

// SliceGradFlat computes the gradient of SliceFlat for an array with the original dimensions, given the flat
// gradient of the slice (with the slice's dimensions, gradDims).
//
// It returns the flat gradient with the original dimensions.
func SliceGradFlat[T Element](e *Engine, originalDims []int, spec slicing.RawSpec, grad []T, gradDims []int) ([]T, error) {
	gradBuffer, err := upload(e, grad, gradDims)
	if err != nil {
		return nil, err
	}
	defer func() { _ = e.backend.BufferFinalize(gradBuffer) }()
	originalShape, err := makeShape[T](originalDims)
	if err != nil {
		return nil, err
	}
	output, err := e.SliceGrad(originalShape, spec, gradBuffer)
	if err != nil {
		return nil, err
	}
	outputFlat, _, err := download[T](e, output)
	return outputFlat, err
}

// SliceAssignFlat writes rhs (with dimensions rhsDims) into the region of lhs (with dimensions lhsDims)
// selected by the spec. The lhs slice is modified in place only if the assignment succeeds.
func SliceAssignFlat[T Element](e *Engine, lhs []T, lhsDims []int, spec slicing.RawSpec, rhs []T, rhsDims []int) error {
	lhsBuffer, err := upload(e, lhs, lhsDims)
	if err != nil {
		return err
	}
	defer func() { _ = e.backend.BufferFinalize(lhsBuffer) }()
	rhsBuffer, err := upload(e, rhs, rhsDims)
	if err != nil {
		return err
	}
	defer func() { _ = e.backend.BufferFinalize(rhsBuffer) }()
	if err := e.SliceAssign(lhsBuffer, spec, rhsBuffer); err != nil {
		return err
	}
	return e.backend.BufferToFlatData(lhsBuffer, lhs)
}
