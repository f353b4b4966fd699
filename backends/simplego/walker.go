// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/exceptions"

	"github.com/gomlx/stridedslice/pkg/core/slicing"
)

// stridedPlan describes the walk over the elements selected by a slice, in the flat (row-major)
// storage of the sliced array. The walk visits the processing shape in row-major order.
//
// The elements on the other side of the walk (the output of an extraction, or the values of a scatter)
// are stored sequentially.
type stridedPlan struct {
	rank int

	// offset is the flat index of the first selected element.
	offset int

	// dims of the processing shape.
	dims [slicing.MaxRank]int

	// strides is the number of flat elements to move in the sliced array when the index on
	// each axis of the processing shape is incremented: the row-major stride times the step of the slice.
	// It can be negative.
	strides [slicing.MaxRank]int

	// seqStart is the index of the first element in the sequential side.
	seqStart int
}

// newStridedPlan creates the plan to walk the resolved slice. Rank 0 is walked as a rank-1 of one element.
//
// It panics if the processing rank is larger than slicing.MaxRank.
func newStridedPlan(r *slicing.Resolution) *stridedPlan {
	rank := r.ProcessingRank()
	if rank > slicing.MaxRank {
		exceptions.Panicf("strided walk of processing shape %s: rank %d is larger than the maximum %d supported",
			r.ProcessingShape, rank, slicing.MaxRank)
	}
	p := &stridedPlan{rank: rank}
	if rank == 0 {
		p.rank = 1
		p.dims[0] = 1
		p.strides[0] = 1
		return p
	}
	inputStrides := r.Input.Strides()
	for axis, resolved := range r.Axes {
		p.offset += resolved.Start * inputStrides[axis]
		p.dims[axis] = r.ProcessingShape.Dimensions[axis]
		p.strides[axis] = inputStrides[axis] * resolved.Step
	}
	return p
}

// size returns the number of elements visited.
func (p *stridedPlan) size() int {
	size := 1
	for _, dim := range p.dims[:p.rank] {
		size *= dim
	}
	return size
}

// rowLen is the number of elements in the innermost axis.
func (p *stridedPlan) rowLen() int { return p.dims[p.rank-1] }

// rowStride is the flat stride in the innermost axis.
func (p *stridedPlan) rowStride() int { return p.strides[p.rank-1] }

// chunk returns the sub-plan that walks only the indices [start, end) of the leading axis.
func (p *stridedPlan) chunk(start, end int) *stridedPlan {
	sub := *p
	sub.offset += start * p.strides[0]
	sub.dims[0] = end - start
	sub.seqStart += start * (p.size() / max(p.dims[0], 1))
	return &sub
}

// rowVisitor is called for each row (innermost axis) of the walk, with the flat index of the first
// element of the row in the sliced array, and the index of the first element of the row in the sequential side.
type rowVisitor func(flatIdx, seqIdx int)

// rankWalkers holds the walkers specialized for each rank.
var rankWalkers = [slicing.MaxRank + 1]func(p *stridedPlan, visit rowVisitor){
	1: walkRank1,
	2: walkRank2,
	3: walkRank3,
	4: walkRank4,
	5: walkRank5,
	6: walkRank6,
}

// walkRows calls visit for every row of the plan, in row-major order.
func walkRows(p *stridedPlan, visit rowVisitor) {
	if p.size() == 0 {
		return
	}
	rankWalkers[p.rank](p, visit)
}

func walkRank1(p *stridedPlan, visit rowVisitor) {
	visit(p.offset, p.seqStart)
}

func walkRank2(p *stridedPlan, visit rowVisitor) {
	rowLen, seq := p.dims[1], p.seqStart
	flat0 := p.offset
	for range p.dims[0] {
		visit(flat0, seq)
		seq += rowLen
		flat0 += p.strides[0]
	}
}

func walkRank3(p *stridedPlan, visit rowVisitor) {
	rowLen, seq := p.dims[2], p.seqStart
	flat0 := p.offset
	for range p.dims[0] {
		flat1 := flat0
		for range p.dims[1] {
			visit(flat1, seq)
			seq += rowLen
			flat1 += p.strides[1]
		}
		flat0 += p.strides[0]
	}
}

func walkRank4(p *stridedPlan, visit rowVisitor) {
	rowLen, seq := p.dims[3], p.seqStart
	flat0 := p.offset
	for range p.dims[0] {
		flat1 := flat0
		for range p.dims[1] {
			flat2 := flat1
			for range p.dims[2] {
				visit(flat2, seq)
				seq += rowLen
				flat2 += p.strides[2]
			}
			flat1 += p.strides[1]
		}
		flat0 += p.strides[0]
	}
}

func walkRank5(p *stridedPlan, visit rowVisitor) {
	rowLen, seq := p.dims[4], p.seqStart
	flat0 := p.offset
	for range p.dims[0] {
		flat1 := flat0
		for range p.dims[1] {
			flat2 := flat1
			for range p.dims[2] {
				flat3 := flat2
				for range p.dims[3] {
					visit(flat3, seq)
					seq += rowLen
					flat3 += p.strides[3]
				}
				flat2 += p.strides[2]
			}
			flat1 += p.strides[1]
		}
		flat0 += p.strides[0]
	}
}

func walkRank6(p *stridedPlan, visit rowVisitor) {
	rowLen, seq := p.dims[5], p.seqStart
	flat0 := p.offset
	for range p.dims[0] {
		flat1 := flat0
		for range p.dims[1] {
			flat2 := flat1
			for range p.dims[2] {
				flat3 := flat2
				for range p.dims[3] {
					flat4 := flat3
					for range p.dims[4] {
						visit(flat4, seq)
						seq += rowLen
						flat4 += p.strides[4]
					}
					flat3 += p.strides[3]
				}
				flat2 += p.strides[2]
			}
			flat1 += p.strides[1]
		}
		flat0 += p.strides[0]
	}
}

var (
	dispatchGather  = NewDTypeDispatcher("Gather")
	dispatchScatter = NewDTypeDispatcher("Scatter")
)

// gatherGeneric copies the elements selected by the plan from the strided flat slice (params[0])
// to the sequential flat slice (params[1]).
func gatherGeneric[T SupportedTypesConstraints](params ...any) any {
	strided, sequential, p := params[0].([]T), params[1].([]T), params[2].(*stridedPlan)
	rowLen, rowStride := p.rowLen(), p.rowStride()
	walkRows(p, func(flatIdx, seqIdx int) {
		dst := sequential[seqIdx : seqIdx+rowLen]
		if rowStride == 1 {
			copy(dst, strided[flatIdx:flatIdx+rowLen])
			return
		}
		for ii := range dst {
			dst[ii] = strided[flatIdx]
			flatIdx += rowStride
		}
	})
	return nil
}

// scatterGeneric copies the sequential flat slice (params[1]) to the elements selected by the plan
// in the strided flat slice (params[0]).
func scatterGeneric[T SupportedTypesConstraints](params ...any) any {
	strided, sequential, p := params[0].([]T), params[1].([]T), params[2].(*stridedPlan)
	rowLen, rowStride := p.rowLen(), p.rowStride()
	walkRows(p, func(flatIdx, seqIdx int) {
		src := sequential[seqIdx : seqIdx+rowLen]
		if rowStride == 1 {
			copy(strided[flatIdx:flatIdx+rowLen], src)
			return
		}
		for _, value := range src {
			strided[flatIdx] = value
			flatIdx += rowStride
		}
	})
	return nil
}

// walk runs the dispatcher (gather or scatter) over the plan, splitting it in parallel chunks of the
// leading axis if it is large enough.
//
// Chunks cover disjoint sets of elements on both sides, so they don't need any coordination.
func (b *Backend) walk(dispatcher *DTypeDispatcher, strided, sequential *Buffer, p *stridedPlan) {
	dtype := strided.shape.DType
	size := p.size()
	if size == 0 {
		return
	}
	if !b.workers.IsEnabled() || size < b.minParallelElements || p.dims[0] < 2 {
		dispatcher.Dispatch(dtype, strided.flat, sequential.flat, p)
		return
	}
	elementsPerIndex := size / p.dims[0]
	minChunkIndices := max(b.minParallelElements/(2*elementsPerIndex), 1)
	b.workers.ForEachChunk(p.dims[0], minChunkIndices, func(start, end int) {
		dispatcher.Dispatch(dtype, strided.flat, sequential.flat, p.chunk(start, end))
	})
}
