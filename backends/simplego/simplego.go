// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package simplego implements a simple and very portable CPU backend in pure Go.
//
// Slices are extracted with one of the fast paths (identity, contiguous leading-axis range, or
// one bulk copy per row for 2D slices) when the shape algebra allows, and otherwise with
// rank-specialized strided walkers (ranks 1 to slicing.MaxRank). Large walks are split in chunks
// of the leading axis, and run in parallel.
//
// The configuration string is a comma-separated list of options:
//
//   - "parallelism=N": soft limit on the number of goroutines used for one walk. 0 disables
//     parallelism, -1 makes it unlimited. Default is runtime.NumCPU().
//   - "minparallel=N": minimum number of elements in a walk before it is split in parallel chunks.
//   - "nofastpaths": declares no fast paths in the Capabilities, so every slice uses the walkers.
//
// Example: STRIDEDSLICE_BACKEND="go:parallelism=4,minparallel=65536".
package simplego

import (
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/gomlx/stridedslice/backends"
	"github.com/gomlx/stridedslice/internal/workerspool"
)

// BackendName to be used in STRIDEDSLICE_BACKEND to specify this backend.
const BackendName = "go"

// DefaultMinParallelElements is the default minimum number of elements of a strided walk before it
// is split in parallel chunks.
const DefaultMinParallelElements = 1 << 15

// Registers New() as the default constructor for "go" backend.
func init() {
	backends.Register(BackendName, New)
}

// New constructs a new SimpleGo Backend. See the package documentation for the configuration options.
func New(config string) (backends.Backend, error) {
	b := newBackend()
	if config == "" {
		return b, nil
	}
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, "=")
		switch key {
		case "parallelism", "minparallel":
			if !hasValue {
				return nil, errors.Errorf("configuration option %q for %s backend requires a value, as in %q", key, BackendName, key+"=4")
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid value for configuration option %q for %s backend", key, BackendName)
			}
			if key == "parallelism" {
				b.workers.SetMaxParallelism(n)
			} else {
				b.minParallelElements = n
			}
		case "nofastpaths":
			b.capabilities.FastPaths = nil
		default:
			return nil, errors.Errorf("unknown configuration option %q for %s backend -- valid options are parallelism=N, minparallel=N and nofastpaths",
				part, BackendName)
		}
	}
	return b, nil
}

func newBackend() *Backend {
	return &Backend{
		workers:             workerspool.New(),
		minParallelElements: DefaultMinParallelElements,
		capabilities:        Capabilities.Clone(),
	}
}

// Backend implements the backends.Backend interface.
type Backend struct {
	// bufferPools are a map to pools of buffers that can be reused.
	// The underlying type is map[bufferPoolKey]*sync.Pool.
	bufferPools sync.Map

	workers             *workerspool.Pool
	minParallelElements int
	capabilities        backends.Capabilities
	isFinalized         bool
}

// Compile-time check that simplego.Backend implements backends.Backend.
var _ backends.Backend = &Backend{}

// Name returns the short name of the backend.
func (b *Backend) Name() string {
	return "SimpleGo (go)"
}

// String implements backends.Backend.
func (b *Backend) String() string { return BackendName }

// Description is a longer description of the Backend that can be used to pretty-print.
func (b *Backend) Description() string {
	return "Simple Go Portable Backend"
}

// Capabilities returns information about what is supported by this backend.
func (b *Backend) Capabilities() backends.Capabilities {
	return b.capabilities
}

// Finalize releases all the associated resources immediately, and makes the backend invalid.
func (b *Backend) Finalize() {
	b.isFinalized = true
	b.bufferPools.Clear()
}

// IsFinalized returns true if the backend has been finalized.
func (b *Backend) IsFinalized() bool {
	return b.isFinalized
}

// checkOk returns an error if the backend has been finalized.
func (b *Backend) checkOk() error {
	if b.isFinalized {
		return errors.Errorf("%s backend has already been finalized", BackendName)
	}
	return nil
}
