// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package stridedslice implements strided slicing of dense N-dimensional arrays: extraction of a
// sub-array, the gradient of an extraction, and in-place assignment into the selected region.
//
// Slices are specified with a slicing.RawSpec, usually built with slicing.Build or parsed from a
// NumPy-like expression with slicing.ParseSpec. An Engine resolves the spec against the array
// shape, selects the fast path supported by its backend, and delegates the data movement to it:
//
//	engine := stridedslice.New(backends.MustNew())
//	spec := slicing.MustBuild(slicing.AxisRange(1, 3), slicing.Ellipsis(), slicing.AxisRange().Stride(-1))
//	output, err := engine.Slice(input, spec)
//
// Errors wrap slicing.ErrInvalidArgument (malformed spec or mismatched shapes) or
// slicing.ErrUnimplemented (processing rank above slicing.MaxRank, or broadcasting in
// assignments). Every validation happens before any buffer is allocated or mutated.
package stridedslice

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/stridedslice/backends"
	"github.com/gomlx/stridedslice/pkg/core/shapes"
	"github.com/gomlx/stridedslice/pkg/core/slicing"
)

// Engine executes strided slices on a backend.
//
// It holds no state besides the backend, and it is safe for concurrent use as long as the backend is.
// Concurrent SliceAssign calls must not target the same buffer.
type Engine struct {
	backend backends.Backend
}

// New creates an Engine that runs on the given backend.
func New(backend backends.Backend) *Engine {
	return &Engine{backend: backend}
}

// NewDefault creates an Engine with the default backend, see backends.New.
func NewDefault() (*Engine, error) {
	backend, err := backends.New()
	if err != nil {
		return nil, err
	}
	return New(backend), nil
}

// Backend used by the engine.
func (e *Engine) Backend() backends.Backend {
	return e.backend
}

// ResolveSpec resolves the spec against the input shape, without touching any data.
//
// It is the entry point for callers that only need the shapes (e.g. shape inference).
func (e *Engine) ResolveSpec(input shapes.Shape, spec slicing.RawSpec) (*slicing.Resolution, error) {
	return slicing.Resolve(input, spec)
}

// Classify returns the fast path the engine uses to extract the resolved slice with its backend.
func (e *Engine) Classify(r *slicing.Resolution) slicing.FastPath {
	return slicing.Classify(r, e.backend.Capabilities())
}

// checkDType returns an Unimplemented error if the backend doesn't support the dtype.
func (e *Engine) checkDType(shape shapes.Shape) error {
	if !e.backend.Capabilities().SupportsDType(shape.DType) {
		return slicing.Unimplementedf("dtype %s not supported by backend %s", shape.DType, e.backend.Name())
	}
	return nil
}

// Slice extracts the sub-array of input selected by the spec.
//
// The returned buffer has the resolved FinalShape, and it is owned by the caller.
func (e *Engine) Slice(input backends.Buffer, spec slicing.RawSpec) (backends.Buffer, error) {
	inputShape, err := e.backend.BufferShape(input)
	if err != nil {
		return nil, slicing.InvalidArgumentf("invalid input buffer: %v", err)
	}
	r, err := slicing.Resolve(inputShape, spec)
	if err != nil {
		return nil, err
	}
	if err := e.checkDType(inputShape); err != nil {
		return nil, err
	}
	path := e.Classify(r)
	if path == slicing.PathGeneric {
		if err := slicing.CheckWalkable(r); err != nil {
			return nil, err
		}
	}
	klog.V(1).Infof("stridedslice.Slice: input %s, spec %s -> %s using path %s", inputShape, spec, r.FinalShape, path)
	output, err := e.backend.Slice(input, r, path)
	if err != nil {
		return nil, errors.WithMessagef(err, "Slice(%s, %s) with backend %s", inputShape, spec, e.backend.Name())
	}
	return output, nil
}

// checkValues validates the shape of the values (gradient or right-hand-side) written to the slice selection.
// A dtype mismatch is an InvalidArgument error, and a dimensions mismatch returns the error built by mismatch.
func (e *Engine) checkValues(name string, values backends.Buffer, r *slicing.Resolution,
	mismatch func(format string, args ...any) error) error {
	valuesShape, err := e.backend.BufferShape(values)
	if err != nil {
		return slicing.InvalidArgumentf("invalid %s buffer: %v", name, err)
	}
	if valuesShape.DType != r.Input.DType {
		return slicing.InvalidArgumentf("%s dtype %s doesn't match the sliced array dtype %s",
			name, valuesShape.DType, r.Input.DType)
	}
	if !valuesShape.EqualDimensions(r.FinalShape) {
		return mismatch("%s shape %s must match the shape of the slice %s (resolved from %s)",
			name, valuesShape.DimensionsString(), r.FinalShape.DimensionsString(), r)
	}
	return nil
}

// scatter writes the values to the selection of target: a direct copy for a rank-0 processing shape,
// and the strided walk otherwise.
func (e *Engine) scatter(target backends.Buffer, r *slicing.Resolution, values backends.Buffer) error {
	if r.ProcessingRank() == 0 {
		return e.backend.BufferCopy(target, values)
	}
	if r.NumElements() == 0 {
		return nil
	}
	return e.backend.ScatterSlice(target, r, values)
}

// SliceGrad computes the gradient of Slice: it returns a buffer of the original shape, with the
// incoming gradient values at the positions selected by the spec, and zeros elsewhere.
//
// The grad buffer must have the FinalShape of the slice, and the dtype of the originalShape.
// Positions selected by a slice are distinct, so values are written, not accumulated.
func (e *Engine) SliceGrad(originalShape shapes.Shape, spec slicing.RawSpec, grad backends.Buffer) (backends.Buffer, error) {
	r, err := slicing.Resolve(originalShape, spec)
	if err != nil {
		return nil, err
	}
	if err := e.checkDType(originalShape); err != nil {
		return nil, err
	}
	if err := e.checkValues("gradient", grad, r, slicing.InvalidArgumentf); err != nil {
		return nil, err
	}
	if err := slicing.CheckWalkable(r); err != nil {
		return nil, err
	}
	klog.V(1).Infof("stridedslice.SliceGrad: original %s, spec %s, gradient %s", originalShape, spec, r.FinalShape)
	output, err := e.backend.NewBuffer(originalShape)
	if err != nil {
		return nil, errors.WithMessagef(err, "SliceGrad(%s, %s) allocating output", originalShape, spec)
	}
	if err := e.scatter(output, r, grad); err != nil {
		_ = e.backend.BufferFinalize(output)
		return nil, errors.WithMessagef(err, "SliceGrad(%s, %s) with backend %s", originalShape, spec, e.backend.Name())
	}
	return output, nil
}

// SliceAssign writes rhs into the region of lhs selected by the spec, mutating lhs in place.
//
// The rhs shape must be exactly the FinalShape of the slice: broadcasting is not supported, and a
// mismatch returns an Unimplemented error. An empty selection writes nothing.
//
// The caller must guarantee exclusive access to lhs for the duration of the call: no lock is taken.
// On error lhs is left untouched.
func (e *Engine) SliceAssign(lhs backends.Buffer, spec slicing.RawSpec, rhs backends.Buffer) error {
	lhsShape, err := e.backend.BufferShape(lhs)
	if err != nil {
		return slicing.InvalidArgumentf("invalid lhs buffer: %v", err)
	}
	r, err := slicing.Resolve(lhsShape, spec)
	if err != nil {
		return err
	}
	if err := e.checkDType(lhsShape); err != nil {
		return err
	}
	if err := e.checkValues("rhs", rhs, r, slicing.Unimplementedf); err != nil {
		return err
	}
	if err := slicing.CheckWalkable(r); err != nil {
		return err
	}
	klog.V(1).Infof("stridedslice.SliceAssign: lhs %s, spec %s, rhs %s", lhsShape, spec, r.FinalShape)
	if err := e.scatter(lhs, r, rhs); err != nil {
		return errors.WithMessagef(err, "SliceAssign(%s, %s) with backend %s", lhsShape, spec, e.backend.Name())
	}
	return nil
}
