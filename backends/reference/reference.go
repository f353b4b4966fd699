// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package reference implements a portable backend that declares no fast paths: every slice is
// extracted or scattered by visiting each multi-index of the processing shape and computing its
// flat position in the sliced array.
//
// It is slow, but simple enough to be obviously correct, and it is used to cross-check the other backends.
// It takes no configuration options.
package reference

import (
	"reflect"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/stridedslice/backends"
	"github.com/gomlx/stridedslice/pkg/core/shapes"
	"github.com/gomlx/stridedslice/pkg/core/slicing"
)

// BackendName to be used in STRIDEDSLICE_BACKEND to specify this backend.
const BackendName = "reference"

func init() {
	backends.Register(BackendName, New)
}

// New constructs a new reference Backend. The configuration must be empty.
func New(config string) (backends.Backend, error) {
	if strings.TrimSpace(config) != "" {
		return nil, errors.Errorf("unknown configuration %q for %s backend, it takes no options", config, BackendName)
	}
	return &Backend{}, nil
}

// Backend implements backends.Backend.
type Backend struct {
	isFinalized bool
}

// Compile-time check that reference.Backend implements backends.Backend.
var _ backends.Backend = &Backend{}

// Capabilities of the reference backend: only the generic walk, for every dtype with a Go type.
var Capabilities = backends.Capabilities{
	DTypes: map[dtypes.DType]bool{
		dtypes.Bool:     true,
		dtypes.Int8:     true,
		dtypes.Int16:    true,
		dtypes.Int32:    true,
		dtypes.Int64:    true,
		dtypes.Uint8:    true,
		dtypes.Uint16:   true,
		dtypes.Uint32:   true,
		dtypes.Uint64:   true,
		dtypes.Float16:  true,
		dtypes.BFloat16: true,
		dtypes.Float32:  true,
		dtypes.Float64:  true,
	},
}

// Name implements backends.Backend.
func (b *Backend) Name() string { return "Reference (reference)" }

// String implements backends.Backend.
func (b *Backend) String() string { return BackendName }

// Description implements backends.Backend.
func (b *Backend) Description() string { return "Reference backend, walks every element by its multi-index" }

// Capabilities implements backends.Backend.
func (b *Backend) Capabilities() backends.Capabilities { return Capabilities }

// Finalize implements backends.Backend.
func (b *Backend) Finalize() { b.isFinalized = true }

func (b *Backend) checkOk() error {
	if b.isFinalized {
		return errors.Errorf("%s backend has already been finalized", BackendName)
	}
	return nil
}

// Slice implements backends.Backend. Only slicing.PathGeneric is accepted.
func (b *Backend) Slice(backendOperand backends.Buffer, r *slicing.Resolution, path slicing.FastPath) (backends.Buffer, error) {
	if err := b.checkOk(); err != nil {
		return nil, err
	}
	operand, err := checkBuffer(backendOperand, "Slice(operand)")
	if err != nil {
		return nil, err
	}
	if !operand.shape.Equal(r.Input) {
		return nil, errors.Errorf("Slice: operand shape %s doesn't match the shape %s the slice was resolved for",
			operand.shape, r.Input)
	}
	if path != slicing.PathGeneric {
		return nil, errors.Errorf("Slice: fast path %s not supported by %s backend", path, BackendName)
	}
	klog.V(2).Infof("reference.Slice: %s", r)
	output := newBuffer(r.FinalShape)
	src, dst := reflect.ValueOf(operand.flat), reflect.ValueOf(output.flat)
	walk(r, func(flatIdx, seqIdx int) {
		dst.Index(seqIdx).Set(src.Index(flatIdx))
	})
	return output, nil
}

// ScatterSlice implements backends.Backend.
func (b *Backend) ScatterSlice(backendTarget backends.Buffer, r *slicing.Resolution, backendValues backends.Buffer) error {
	if err := b.checkOk(); err != nil {
		return err
	}
	target, err := checkBuffer(backendTarget, "ScatterSlice(target)")
	if err != nil {
		return err
	}
	values, err := checkBuffer(backendValues, "ScatterSlice(values)")
	if err != nil {
		return err
	}
	if !target.shape.Equal(r.Input) {
		return errors.Errorf("ScatterSlice: target shape %s doesn't match the shape %s the slice was resolved for",
			target.shape, r.Input)
	}
	if values.shape.DType != target.shape.DType || values.shape.Size() != r.NumElements() {
		return errors.Errorf("ScatterSlice: values shape %s doesn't match the slice selection of %d elements of dtype %s",
			values.shape, r.NumElements(), target.shape.DType)
	}
	klog.V(2).Infof("reference.ScatterSlice: %s", r)
	src, dst := reflect.ValueOf(values.flat), reflect.ValueOf(target.flat)
	walk(r, func(flatIdx, seqIdx int) {
		dst.Index(flatIdx).Set(src.Index(seqIdx))
	})
	return nil
}

// walk calls fn with the flat index in the sliced array and the sequential index of every element selected,
// visiting the processing shape in row-major order.
func walk(r *slicing.Resolution, fn func(flatIdx, seqIdx int)) {
	inputStrides := r.Input.Strides()
	for seqIdx, indices := range r.ProcessingShape.IterFlat() {
		var flatIdx int
		for axis, idx := range indices {
			resolved := r.Axes[axis]
			flatIdx += (resolved.Start + idx*resolved.Step) * inputStrides[axis]
		}
		fn(flatIdx, seqIdx)
	}
}

// Buffer of the reference backend: a shape and a Go slice of the dtype's Go type.
type Buffer struct {
	shape shapes.Shape
	flat  any
	valid bool
}

func newBuffer(shape shapes.Shape) *Buffer {
	goType := shape.DType.GoType()
	if goType == nil {
		exceptions.Panicf("dtype %s has no Go type", shape.DType)
	}
	size := shape.Size()
	return &Buffer{
		shape: shape.Clone(),
		flat:  reflect.MakeSlice(reflect.SliceOf(goType), size, size).Interface(),
		valid: true,
	}
}

func checkBuffer(backendBuffer backends.Buffer, name string) (*Buffer, error) {
	buffer, ok := backendBuffer.(*Buffer)
	if !ok || buffer == nil {
		return nil, errors.Errorf("%s is not a %q backend buffer, got %T", name, BackendName, backendBuffer)
	}
	if !buffer.valid {
		return nil, errors.Errorf("%s (%p) was already finalized", name, buffer)
	}
	return buffer, nil
}

func checkFlat(flat any, shape shapes.Shape) error {
	flatType := reflect.TypeOf(flat)
	if flatType == nil || flatType.Kind() != reflect.Slice {
		return errors.Errorf("flat data must be a slice, got %T", flat)
	}
	if dtypes.FromGoType(flatType.Elem()) != shape.DType {
		return errors.Errorf("flat data type (%s) does not match shape DType (%s)", flatType.Elem(), shape.DType)
	}
	if n := reflect.ValueOf(flat).Len(); n != shape.Size() {
		return errors.Errorf("flat data has %d elements, but shape %s requires %d", n, shape, shape.Size())
	}
	return nil
}

func (b *Backend) checkShape(shape shapes.Shape) error {
	if err := shapes.Validate(shape.DType, shape.Dimensions...); err != nil {
		return err
	}
	if !Capabilities.SupportsDType(shape.DType) {
		return errors.Errorf("dtype %s not supported by %s backend", shape.DType, BackendName)
	}
	return nil
}

// NewBuffer implements backends.DataInterface.
func (b *Backend) NewBuffer(shape shapes.Shape) (backends.Buffer, error) {
	if err := b.checkOk(); err != nil {
		return nil, err
	}
	if err := b.checkShape(shape); err != nil {
		return nil, err
	}
	return newBuffer(shape), nil
}

// BufferFinalize implements backends.DataInterface.
func (b *Backend) BufferFinalize(backendBuffer backends.Buffer) error {
	buffer, err := checkBuffer(backendBuffer, "BufferFinalize")
	if err != nil {
		return err
	}
	buffer.valid = false
	buffer.flat = nil
	return nil
}

// BufferShape implements backends.DataInterface.
func (b *Backend) BufferShape(backendBuffer backends.Buffer) (shapes.Shape, error) {
	buffer, err := checkBuffer(backendBuffer, "BufferShape")
	if err != nil {
		return shapes.Invalid(), err
	}
	return buffer.shape, nil
}

// BufferToFlatData implements backends.DataInterface.
func (b *Backend) BufferToFlatData(backendBuffer backends.Buffer, flat any) error {
	buffer, err := checkBuffer(backendBuffer, "BufferToFlatData")
	if err != nil {
		return err
	}
	if err := checkFlat(flat, buffer.shape); err != nil {
		return errors.WithMessagef(err, "BufferToFlatData")
	}
	reflect.Copy(reflect.ValueOf(flat), reflect.ValueOf(buffer.flat))
	return nil
}

// BufferFromFlatData implements backends.DataInterface.
func (b *Backend) BufferFromFlatData(flat any, shape shapes.Shape) (backends.Buffer, error) {
	if err := b.checkOk(); err != nil {
		return nil, err
	}
	if err := b.checkShape(shape); err != nil {
		return nil, err
	}
	if err := checkFlat(flat, shape); err != nil {
		return nil, errors.WithMessagef(err, "BufferFromFlatData")
	}
	buffer := newBuffer(shape)
	reflect.Copy(reflect.ValueOf(buffer.flat), reflect.ValueOf(flat))
	return buffer, nil
}

// BufferData implements backends.DataInterface.
func (b *Backend) BufferData(backendBuffer backends.Buffer) (any, error) {
	buffer, err := checkBuffer(backendBuffer, "BufferData")
	if err != nil {
		return nil, err
	}
	return buffer.flat, nil
}

// BufferCopy implements backends.DataInterface.
func (b *Backend) BufferCopy(backendDst, backendSrc backends.Buffer) error {
	dst, err := checkBuffer(backendDst, "BufferCopy(dst)")
	if err != nil {
		return err
	}
	src, err := checkBuffer(backendSrc, "BufferCopy(src)")
	if err != nil {
		return err
	}
	if dst.shape.DType != src.shape.DType || dst.shape.Size() != src.shape.Size() {
		return errors.Errorf("BufferCopy: source %s and destination %s must have the same dtype and number of elements",
			src.shape, dst.shape)
	}
	reflect.Copy(reflect.ValueOf(dst.flat), reflect.ValueOf(src.flat))
	return nil
}
