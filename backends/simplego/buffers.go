// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"reflect"
	"strings"
	"sync"
	"unsafe"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/gomlx/stridedslice/backends"
	"github.com/gomlx/stridedslice/pkg/core/shapes"
)

// Compile-time check:
var _ backends.DataInterface = (*Backend)(nil)

// Buffer for SimpleGo backend holds a shape and a reference to the flat data.
type Buffer struct {
	shape shapes.Shape
	valid bool

	// flat is always a slice of the underlying data type (shape.DType).
	flat any
}

type bufferPoolKey struct {
	dtype  dtypes.DType
	length int
}

// getBufferPool for given dtype/length.
func (b *Backend) getBufferPool(dtype dtypes.DType, length int) *sync.Pool {
	key := bufferPoolKey{dtype: dtype, length: length}
	poolInterface, ok := b.bufferPools.Load(key)
	if !ok {
		poolInterface, _ = b.bufferPools.LoadOrStore(key, &sync.Pool{
			New: func() interface{} {
				return &Buffer{
					flat:  reflect.MakeSlice(reflect.SliceOf(dtype.GoType()), length, length).Interface(),
					shape: shapes.Make(dtype, length),
				}
			},
		})
	}
	return poolInterface.(*sync.Pool)
}

// getBuffer from backend pool of buffers. Its contents are undefined.
func (b *Backend) getBuffer(dtype dtypes.DType, length int) *Buffer {
	pool := b.getBufferPool(dtype, length)
	buf := pool.Get().(*Buffer)
	buf.valid = true
	return buf
}

// putBuffer back into the backend pool of buffers.
// After this any references to buffer should be dropped.
func (b *Backend) putBuffer(buffer *Buffer) {
	if buffer == nil || !buffer.shape.Ok() {
		return
	}
	buffer.valid = false
	pool := b.getBufferPool(buffer.shape.DType, buffer.shape.Size())
	pool.Put(buffer)
}

// allocBuffer returns a buffer for the shape with undefined contents, to be fully overwritten by the caller.
func (b *Backend) allocBuffer(shape shapes.Shape) *Buffer {
	buffer := b.getBuffer(shape.DType, shape.Size())
	buffer.shape = shape.Clone()
	return buffer
}

// zerosBuffer returns a buffer for the shape with all elements set to zero.
func (b *Backend) zerosBuffer(shape shapes.Shape) *Buffer {
	buffer := b.allocBuffer(shape)
	dispatchClear.Dispatch(shape.DType, buffer.flat)
	return buffer
}

var dispatchClear = NewDTypeDispatcher("Clear")

// clearGeneric sets all elements of the flat slice to zero.
func clearGeneric[T SupportedTypesConstraints](params ...any) any {
	clear(params[0].([]T))
	return nil
}

// copyFlat assumes both flat slices are of the same underlying type.
func copyFlat(flatDst, flatSrc any) int {
	return reflect.Copy(reflect.ValueOf(flatDst), reflect.ValueOf(flatSrc))
}

// mutableBytes returns the slice of the bytes used by the flat data -- it works with any of the supported data types
// for buffers. It returns nil for empty buffers.
func (b *Buffer) mutableBytes() []byte {
	return dispatchMutableBytes.Dispatch(b.shape.DType, b.flat).([]byte)
}

var dispatchMutableBytes = NewDTypeDispatcher("MutableBytes")

// mutableBytesGeneric is the generic implementation of mutableBytes.
func mutableBytesGeneric[T SupportedTypesConstraints](params ...any) any {
	flat := params[0].([]T)
	if len(flat) == 0 {
		return []byte(nil)
	}
	bytePointer := (*byte)(unsafe.Pointer(&flat[0]))
	var t T
	return unsafe.Slice(bytePointer, len(flat)*int(unsafe.Sizeof(t)))
}

// checkBuffer casts the backend buffer and checks it is valid.
func (b *Backend) checkBuffer(backendBuffer backends.Buffer, name string) (*Buffer, error) {
	buffer, ok := backendBuffer.(*Buffer)
	if !ok {
		return nil, errors.Errorf("%s is not a %q backend buffer, got %T", name, BackendName, backendBuffer)
	}
	if buffer == nil || buffer.flat == nil || !buffer.shape.Ok() || !buffer.valid {
		var issues []string
		if buffer != nil {
			if buffer.flat == nil {
				issues = append(issues, "buffer.flat was nil")
			}
			if !buffer.shape.Ok() {
				issues = append(issues, "buffer.shape was invalid")
			}
			if !buffer.valid {
				issues = append(issues, "buffer was marked as invalid")
			}
		} else {
			issues = append(issues, "buffer was nil")
		}
		return nil, errors.Errorf("%s (%p): %s -- buffer was already finalized!?", name, buffer, strings.Join(issues, ", "))
	}
	return buffer, nil
}

// checkFlat checks that flat is a slice of the Go type of the shape's dtype, with the right number of elements.
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

// NewBuffer allocates a buffer for the given shape, with all elements set to zero.
func (b *Backend) NewBuffer(shape shapes.Shape) (backends.Buffer, error) {
	if err := b.checkOk(); err != nil {
		return nil, err
	}
	if err := shapes.Validate(shape.DType, shape.Dimensions...); err != nil {
		return nil, err
	}
	if !b.capabilities.SupportsDType(shape.DType) {
		return nil, errors.Errorf("dtype %s not supported by %s backend", shape.DType, BackendName)
	}
	return b.zerosBuffer(shape), nil
}

// BufferFinalize allows the client to inform backend that buffer is no longer needed and associated resources can be
// freed immediately.
//
// A finalized buffer should never be used again. Preferably, the caller should set its references to it to nil.
func (b *Backend) BufferFinalize(backendBuffer backends.Buffer) error {
	buffer, err := b.checkBuffer(backendBuffer, "BufferFinalize")
	if err != nil {
		return err
	}
	b.putBuffer(buffer)
	return nil
}

// BufferShape returns the shape for the buffer.
func (b *Backend) BufferShape(backendBuffer backends.Buffer) (shapes.Shape, error) {
	buffer, err := b.checkBuffer(backendBuffer, "BufferShape")
	if err != nil {
		return shapes.Invalid(), err
	}
	return buffer.shape, nil
}

// BufferToFlatData transfers the flat values of the buffer to the Go flat slice.
// The slice flat must have the exact number of elements required to store the backends.Buffer shape.
func (b *Backend) BufferToFlatData(backendBuffer backends.Buffer, flat any) error {
	buffer, err := b.checkBuffer(backendBuffer, "BufferToFlatData")
	if err != nil {
		return err
	}
	if err := checkFlat(flat, buffer.shape); err != nil {
		return errors.WithMessagef(err, "BufferToFlatData")
	}
	copyFlat(flat, buffer.flat)
	return nil
}

// BufferFromFlatData transfers data from Go given as a flat slice (of the type corresponding to the shape DType)
// and returns the corresponding backends.Buffer.
func (b *Backend) BufferFromFlatData(flat any, shape shapes.Shape) (backends.Buffer, error) {
	if err := b.checkOk(); err != nil {
		return nil, err
	}
	if err := shapes.Validate(shape.DType, shape.Dimensions...); err != nil {
		return nil, err
	}
	if err := checkFlat(flat, shape); err != nil {
		return nil, errors.WithMessagef(err, "BufferFromFlatData")
	}
	if !b.capabilities.SupportsDType(shape.DType) {
		return nil, errors.Errorf("dtype %s not supported by %s backend", shape.DType, BackendName)
	}
	buffer := b.allocBuffer(shape)
	copyFlat(buffer.flat, flat)
	return buffer, nil
}

// BufferData returns a slice pointing to the buffer storage memory directly.
//
// The returned slice becomes invalid after the buffer is finalized.
func (b *Backend) BufferData(backendBuffer backends.Buffer) (flat any, err error) {
	buffer, err := b.checkBuffer(backendBuffer, "BufferData")
	if err != nil {
		return nil, err
	}
	return buffer.flat, nil
}

// BufferCopy copies the flat contents of src into dst, which must have the same dtype and number of elements.
func (b *Backend) BufferCopy(backendDst, backendSrc backends.Buffer) error {
	dst, err := b.checkBuffer(backendDst, "BufferCopy(dst)")
	if err != nil {
		return err
	}
	src, err := b.checkBuffer(backendSrc, "BufferCopy(src)")
	if err != nil {
		return err
	}
	if dst.shape.DType != src.shape.DType || dst.shape.Size() != src.shape.Size() {
		return errors.Errorf("BufferCopy: source %s and destination %s must have the same dtype and number of elements",
			src.shape, dst.shape)
	}
	copyFlat(dst.flat, src.flat)
	return nil
}
