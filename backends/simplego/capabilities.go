// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/gomlx/stridedslice/backends"
	"github.com/gomlx/stridedslice/pkg/core/slicing"
)

// Capabilities of the SimpleGo backends: the set of supported fast paths and data types.
//
// The "nofastpaths" configuration removes the FastPaths.
var Capabilities = backends.Capabilities{
	FastPaths: map[slicing.FastPath]bool{
		slicing.PathIdentity:       true,
		slicing.PathContiguousLead: true,
		slicing.PathSimpleSlice2D:  true,
	},

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
