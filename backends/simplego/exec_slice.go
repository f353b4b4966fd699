// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/stridedslice/backends"
	"github.com/gomlx/stridedslice/pkg/core/slicing"
)

// Slice implements backends.Backend.
func (b *Backend) Slice(backendOperand backends.Buffer, r *slicing.Resolution, path slicing.FastPath) (output backends.Buffer, err error) {
	if err = b.checkOk(); err != nil {
		return nil, err
	}
	operand, err := b.checkBuffer(backendOperand, "Slice(operand)")
	if err != nil {
		return nil, err
	}
	if !operand.shape.Equal(r.Input) {
		return nil, errors.Errorf("Slice: operand shape %s doesn't match the shape %s the slice was resolved for",
			operand.shape, r.Input)
	}
	if !b.capabilities.SupportsPath(path) {
		return nil, errors.Errorf("Slice: fast path %s not enabled in %s backend", path, BackendName)
	}
	err = exceptions.TryCatch[error](func() {
		output = b.execSlice(operand, r, path)
	})
	if err != nil {
		return nil, err
	}
	return output, nil
}

// execSlice extracts the slice with the given path. It panics on errors.
func (b *Backend) execSlice(operand *Buffer, r *slicing.Resolution, path slicing.FastPath) *Buffer {
	if klog.V(2).Enabled() {
		klog.Infof("simplego.Slice: %s, path=%s, %s elements (%s)", r, path,
			humanize.Comma(int64(r.NumElements())), humanize.Bytes(uint64(r.FinalShape.Memory())))
	}
	if r.NumElements() == 0 {
		return b.zerosBuffer(r.FinalShape)
	}
	output := b.allocBuffer(r.FinalShape)
	switch path {
	case slicing.PathIdentity:
		execSliceIdentity(operand, output)
	case slicing.PathContiguousLead:
		execSliceContiguousLead(operand, output, r)
	case slicing.PathSimpleSlice2D:
		execSliceSimple2D(operand, output, r)
	case slicing.PathGeneric:
		b.walk(dispatchGather, operand, output, newStridedPlan(r))
	default:
		b.putBuffer(output)
		exceptions.Panicf("Slice: unknown fast path %s", path)
	}
	return output
}

// execSliceIdentity copies the whole operand: the slice is only a reshape.
func execSliceIdentity(operand, output *Buffer) {
	copy(output.mutableBytes(), operand.mutableBytes())
}

// execSliceContiguousLead copies the one contiguous run of elements selected by slicing only axis 0.
func execSliceContiguousLead(operand, output *Buffer, r *slicing.Resolution) {
	if !r.SliceDim0 {
		exceptions.Panicf("ContiguousLead path used for slice %s that doesn't slice only axis 0", r)
	}
	elementSize := int(operand.shape.DType.Memory())
	start := r.Axes[0].Start * r.Input.Strides()[0] * elementSize
	src := operand.mutableBytes()
	dst := output.mutableBytes()
	copy(dst, src[start:start+len(dst)])
}

// execSliceSimple2D copies a rank-2 slice with unit steps one row at a time.
func execSliceSimple2D(operand, output *Buffer, r *slicing.Resolution) {
	if !r.IsSimpleSlice || r.ProcessingRank() != 2 {
		exceptions.Panicf("SimpleSlice2D path used for slice %s that is not a rank-2 slice with unit steps", r)
	}
	elementSize := int(operand.shape.DType.Memory())
	numRows := r.ProcessingShape.Dimensions[0]
	rowBytes := r.ProcessingShape.Dimensions[1] * elementSize
	srcRowStride := r.Input.Dimensions[1] * elementSize
	src := operand.mutableBytes()
	dst := output.mutableBytes()
	srcOffset := (r.Axes[0].Start*r.Input.Dimensions[1] + r.Axes[1].Start) * elementSize
	dstOffset := 0
	for row := range numRows {
		if row+1 < numRows {
			prefetch(src[srcOffset+srcRowStride:])
			prefetch(dst[dstOffset+rowBytes:])
		}
		copy(dst[dstOffset:dstOffset+rowBytes], src[srcOffset:srcOffset+rowBytes])
		srcOffset += srcRowStride
		dstOffset += rowBytes
	}
}

// ScatterSlice implements backends.Backend.
func (b *Backend) ScatterSlice(backendTarget backends.Buffer, r *slicing.Resolution, backendValues backends.Buffer) (err error) {
	if err = b.checkOk(); err != nil {
		return err
	}
	target, err := b.checkBuffer(backendTarget, "ScatterSlice(target)")
	if err != nil {
		return err
	}
	values, err := b.checkBuffer(backendValues, "ScatterSlice(values)")
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
	if klog.V(2).Enabled() {
		klog.Infof("simplego.ScatterSlice: %s, %s elements", r, humanize.Comma(int64(r.NumElements())))
	}
	return exceptions.TryCatch[error](func() {
		b.walk(dispatchScatter, target, values, newStridedPlan(r))
	})
}
