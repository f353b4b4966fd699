// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"maps"

	"github.com/gomlx/gopjrt/dtypes"

	"github.com/gomlx/stridedslice/pkg/core/slicing"
)

// Capabilities holds mappings of what is supported by a backend.
type Capabilities struct {
	// FastPaths supported by a backend for the Backend.Slice method.
	// If not listed, it's assumed to be false, hence not supported. slicing.PathGeneric is always supported.
	FastPaths map[slicing.FastPath]bool

	// DTypes list the data types supported by a backend.
	// If not listed, it's assumed to be false, hence not supported.
	DTypes map[dtypes.DType]bool
}

// Compile-time check that Capabilities can be used to classify slices.
var _ slicing.PathSupport = Capabilities{}

// SupportsPath implements slicing.PathSupport.
func (c Capabilities) SupportsPath(path slicing.FastPath) bool {
	return path == slicing.PathGeneric || c.FastPaths[path]
}

// SupportsDType returns whether the backend can slice arrays of the given dtype.
func (c Capabilities) SupportsDType(dtype dtypes.DType) bool {
	return c.DTypes[dtype]
}

// Clone makes a deep copy of the Capabilities.
func (c Capabilities) Clone() Capabilities {
	var c2 Capabilities
	c2.FastPaths = make(map[slicing.FastPath]bool, len(c.FastPaths))
	maps.Copy(c2.FastPaths, c.FastPaths)
	c2.DTypes = make(map[dtypes.DType]bool, len(c.DTypes))
	maps.Copy(c2.DTypes, c.DTypes)
	return c2
}
