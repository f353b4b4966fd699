// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import "github.com/gomlx/stridedslice/pkg/core/shapes"

// Buffer represents actual data (an array) stored by the backend.
//
// It is opaque from the engine perspective, and only the backend that created it can use it.
type Buffer any

// DataInterface is the Backend's subinterface that defines the API to allocate buffers and transfer data
// to/from them.
type DataInterface interface {
	// NewBuffer allocates a buffer for the given shape, with all elements set to zero.
	NewBuffer(shape shapes.Shape) (Buffer, error)

	// BufferFinalize allows the client to inform backend that buffer is no longer needed and associated resources can be
	// freed immediately -- as opposed to waiting for a GC.
	//
	// A finalized buffer should never be used again. Preferably, the caller should set its references to it to nil.
	BufferFinalize(buffer Buffer) error

	// BufferShape returns the shape for the buffer.
	BufferShape(buffer Buffer) (shapes.Shape, error)

	// BufferToFlatData transfers the flat values of buffer to the Go flat slice.
	// The slice flat must have the exact number of elements required to store the Buffer shape.
	//
	// See also BufferFromFlatData, BufferShape, and shapes.Shape.Size.
	BufferToFlatData(buffer Buffer, flat any) error

	// BufferFromFlatData transfers data from Go given as a flat slice (of the type corresponding to the shape DType)
	// and returns the corresponding Buffer.
	BufferFromFlatData(flat any, shape shapes.Shape) (Buffer, error)

	// BufferData returns a slice pointing to the buffer storage memory directly.
	//
	// The returned slice becomes invalid after the buffer is finalized.
	BufferData(buffer Buffer) (flat any, err error)

	// BufferCopy copies the flat contents of src into dst, which must have the same dtype and
	// number of elements. Their dimensions may differ.
	BufferCopy(dst, src Buffer) error
}
