// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package slicing

import "fmt"

// FastPath enumerates the execution strategies for extracting a slice.
type FastPath int

const (
	// PathGeneric walks every selected element with the rank-specialized strided walkers.
	PathGeneric FastPath = iota

	// PathIdentity means the slice selects the whole input in order: the output is a copy of the
	// input reshaped to the final shape.
	PathIdentity

	// PathContiguousLead means only axis 0 is sliced with step 1: the selected elements are one
	// contiguous run of the input, extracted with one bulk copy.
	PathContiguousLead

	// PathSimpleSlice2D means a rank-2 slice with step 1 on both axes: extracted with one bulk copy per row.
	PathSimpleSlice2D
)

// String implements fmt.Stringer.
func (p FastPath) String() string {
	switch p {
	case PathGeneric:
		return "Generic"
	case PathIdentity:
		return "Identity"
	case PathContiguousLead:
		return "ContiguousLead"
	case PathSimpleSlice2D:
		return "SimpleSlice2D"
	default:
		return fmt.Sprintf("FastPath(%d)", int(p))
	}
}

// PathSupport reports whether a backend implements a fast path. PathGeneric is always supported.
type PathSupport interface {
	SupportsPath(path FastPath) bool
}

// AllPaths is a PathSupport that supports every fast path.
type AllPaths struct{}

// SupportsPath implements PathSupport.
func (AllPaths) SupportsPath(FastPath) bool { return true }

// Classify selects the execution strategy to extract the slice described by the resolution,
// among the ones supported.
//
// The returned path is always valid for the resolution: if no fast path applies (or none is
// supported), it returns PathGeneric. Notice that PathGeneric is limited to processing ranks
// up to MaxRank, see CheckWalkable.
func Classify(r *Resolution, supported PathSupport) FastPath {
	if supported == nil {
		supported = AllPaths{}
	}
	if r.IsIdentity && supported.SupportsPath(PathIdentity) {
		return PathIdentity
	}
	if r.SliceDim0 && r.ProcessingRank() >= 1 && supported.SupportsPath(PathContiguousLead) {
		return PathContiguousLead
	}
	if r.IsSimpleSlice && r.Input.Rank() == 2 && r.ProcessingRank() == 2 && r.FinalShape.Rank() == 2 &&
		len(r.NewAxes()) == 0 && r.NumElements() > 0 && rawCopyable(r) && supported.SupportsPath(PathSimpleSlice2D) {
		return PathSimpleSlice2D
	}
	return PathGeneric
}

// rawCopyable returns whether elements of the resolution's dtype can be moved with bulk copies.
func rawCopyable(r *Resolution) bool {
	return r.Input.DType.Memory() > 0
}

// CheckWalkable returns an error wrapping ErrUnimplemented if the resolution can't be handled by
// the generic strided walkers, because its processing rank is above MaxRank.
func CheckWalkable(r *Resolution) error {
	if rank := r.ProcessingRank(); rank > MaxRank {
		return Unimplementedf("unhandled processing rank %d (processing shape %s): strided walkers support up to rank %d",
			rank, r.ProcessingShape, MaxRank)
	}
	return nil
}
