// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package stridedslice

import (
	"github.com/gomlx/gopjrt/dtypes"
	"golang.org/x/exp/constraints"

	"github.com/gomlx/stridedslice/backends"
	"github.com/gomlx/stridedslice/pkg/core/shapes"
	"github.com/gomlx/stridedslice/pkg/core/slicing"
)

// DecodeShapeDescriptor converts the dimensions given as a 1-D integer array into a shape with the given dtype.
//
// The descriptor must be a 1-D Int32 or Int64 buffer with non-negative values, otherwise it
// returns an InvalidArgument error.
func (e *Engine) DecodeShapeDescriptor(descriptor backends.Buffer, dtype dtypes.DType) (shapes.Shape, error) {
	descriptorShape, err := e.backend.BufferShape(descriptor)
	if err != nil {
		return shapes.Invalid(), slicing.InvalidArgumentf("invalid shape descriptor buffer: %v", err)
	}
	if descriptorShape.Rank() != 1 {
		return shapes.Invalid(), slicing.InvalidArgumentf("shape descriptor must be 1-dimensional, got shape %s", descriptorShape)
	}
	var dims []int
	switch descriptorShape.DType {
	case dtypes.Int32:
		dims, err = decodeDescriptor[int32](e.backend, descriptor, descriptorShape)
	case dtypes.Int64:
		dims, err = decodeDescriptor[int64](e.backend, descriptor, descriptorShape)
	default:
		return shapes.Invalid(), slicing.InvalidArgumentf("shape descriptor must be Int32 or Int64, got %s", descriptorShape.DType)
	}
	if err != nil {
		return shapes.Invalid(), err
	}
	if err := shapes.Validate(dtype, dims...); err != nil {
		return shapes.Invalid(), slicing.InvalidArgumentf("invalid shape descriptor: %v", err)
	}
	return shapes.Make(dtype, dims...), nil
}

// decodeDescriptor downloads the integer values of the descriptor.
func decodeDescriptor[T constraints.Integer](backend backends.Backend, descriptor backends.Buffer, shape shapes.Shape) ([]int, error) {
	flat := make([]T, shape.Size())
	if err := backend.BufferToFlatData(descriptor, flat); err != nil {
		return nil, slicing.InvalidArgumentf("reading shape descriptor: %v", err)
	}
	return toInts(flat), nil
}

// toInts converts a slice of any integer type to []int.
func toInts[T constraints.Integer](values []T) []int {
	ints := make([]int, len(values))
	for i, v := range values {
		ints[i] = int(v)
	}
	return ints
}

// SliceGradFromDescriptor is like SliceGrad, but the original shape is given by its dimensions as a 1-D
// Int32 or Int64 buffer (see DecodeShapeDescriptor). The dtype of the original shape is the dtype of grad.
func (e *Engine) SliceGradFromDescriptor(descriptor backends.Buffer, spec slicing.RawSpec, grad backends.Buffer) (backends.Buffer, error) {
	gradShape, err := e.backend.BufferShape(grad)
	if err != nil {
		return nil, slicing.InvalidArgumentf("invalid gradient buffer: %v", err)
	}
	originalShape, err := e.DecodeShapeDescriptor(descriptor, gradShape.DType)
	if err != nil {
		return nil, err
	}
	return e.SliceGrad(originalShape, spec, grad)
}
