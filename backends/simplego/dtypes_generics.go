// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/x448/float16"
)

// FuncForDispatcher is type of functions that the DTypeDispatcher can handle.
type FuncForDispatcher func(params ...any) any

const MaxDTypes = 32

// DTypeDispatcher calls the function registered for the dtype of the data being processed.
type DTypeDispatcher struct {
	Name  string
	fnMap [MaxDTypes]FuncForDispatcher
}

// NewDTypeDispatcher creates a new dispatcher for a class of functions.
func NewDTypeDispatcher(name string) *DTypeDispatcher {
	return &DTypeDispatcher{
		Name: name,
	}
}

// Dispatch call the function that matches the dtype.
func (d *DTypeDispatcher) Dispatch(dtype dtypes.DType, params ...any) any {
	if dtype >= MaxDTypes {
		exceptions.Panicf("dtype %s not supported by %s", dtype, d.Name)
	}
	fn := d.fnMap[dtype]
	if fn == nil {
		exceptions.Panicf("dtype %s not supported by %s", dtype, d.Name)
	}
	return fn(params...)
}

// Register a function to handle a specific dtype.
// This overwrites any previous setting for the same dtype.
func (d *DTypeDispatcher) Register(dtype dtypes.DType, fn FuncForDispatcher) {
	if dtype >= MaxDTypes {
		exceptions.Panicf("dtype %s not supported by %s", dtype, d.Name)
	}
	d.fnMap[dtype] = fn
}

// IsRegistered returns whether a function was registered for the dtype.
func (d *DTypeDispatcher) IsRegistered(dtype dtypes.DType) bool {
	return dtype < MaxDTypes && d.fnMap[dtype] != nil
}

// SupportedTypesConstraints enumerates the types supported by SimpleGo.
type SupportedTypesConstraints interface {
	bool | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 |
		float32 | float64 | float16.Float16 | bfloat16.BFloat16
}

// registerGenerics registers the generic implementations of every dispatcher for the Go type T.
func registerGenerics[T SupportedTypesConstraints](dtype dtypes.DType) {
	dispatchMutableBytes.Register(dtype, mutableBytesGeneric[T])
	dispatchClear.Register(dtype, clearGeneric[T])
	dispatchGather.Register(dtype, gatherGeneric[T])
	dispatchScatter.Register(dtype, scatterGeneric[T])
}

func init() {
	registerGenerics[bool](dtypes.Bool)
	registerGenerics[int8](dtypes.Int8)
	registerGenerics[int16](dtypes.Int16)
	registerGenerics[int32](dtypes.Int32)
	registerGenerics[int64](dtypes.Int64)
	registerGenerics[uint8](dtypes.Uint8)
	registerGenerics[uint16](dtypes.Uint16)
	registerGenerics[uint32](dtypes.Uint32)
	registerGenerics[uint64](dtypes.Uint64)
	registerGenerics[float16.Float16](dtypes.Float16)
	registerGenerics[bfloat16.BFloat16](dtypes.BFloat16)
	registerGenerics[float32](dtypes.Float32)
	registerGenerics[float64](dtypes.Float64)
}
