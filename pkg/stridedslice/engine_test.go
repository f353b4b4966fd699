// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package stridedslice

import (
	"sync"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
	"k8s.io/klog/v2"

	"github.com/gomlx/stridedslice/backends"
	_ "github.com/gomlx/stridedslice/backends/reference"
	_ "github.com/gomlx/stridedslice/backends/simplego"
	"github.com/gomlx/stridedslice/pkg/core/shapes"
	"github.com/gomlx/stridedslice/pkg/core/slicing"
)

func init() {
	klog.InitFlags(nil)
}

// engineConfigs lists the backend configurations every engine test runs on: the default fast paths,
// the strided walkers only, the walkers split in small parallel chunks, and the reference backend.
var engineConfigs = []string{
	"go",
	"go:nofastpaths",
	"go:parallelism=4,minparallel=1",
	"go:parallelism=0",
	"reference",
}

func forEachEngine(t *testing.T, fn func(t *testing.T, e *Engine)) {
	for _, config := range engineConfigs {
		t.Run(config, func(t *testing.T) {
			backend, err := backends.NewWithConfig(config)
			require.NoError(t, err)
			defer backend.Finalize()
			fn(t, New(backend))
		})
	}
}

func iotaFloat32(n int) []float32 {
	flat := make([]float32, n)
	for i := range flat {
		flat[i] = float32(i)
	}
	return flat
}

func sizeOf(dims []int) int {
	size := 1
	for _, dim := range dims {
		size *= dim
	}
	return size
}

// selectedPositions lists the flat positions in the input of the elements selected by the resolution,
// in the order they appear in the slice.
func selectedPositions(r *slicing.Resolution) []int {
	strides := r.Input.Strides()
	positions := make([]int, 0, r.NumElements())
	for indices := range r.ProcessingShape.Iter() {
		var pos int
		for axis, idx := range indices {
			pos += (r.Axes[axis].Start + idx*r.Axes[axis].Step) * strides[axis]
		}
		positions = append(positions, pos)
	}
	return positions
}

func gatherPositions[T any](flat []T, positions []int) []T {
	out := make([]T, len(positions))
	for i, pos := range positions {
		out[i] = flat[pos]
	}
	return out
}

var roundTripExpressions = []string{
	"",
	"[1:3]",
	"[::-1]",
	"[1, ..., ::2]",
	"[:, 1:4, newaxis, -1]",
	"[..., 1:5:3]",
	"[-1:0:-2, 2, :]",
	"[3:1]",
	"[2]",
	"[newaxis, ..., newaxis]",
	"[:, ::-2, 1:-1]",
	"[1:100, -100:3]",
}

func TestSliceMatchesSelection(t *testing.T) {
	dims := []int{4, 5, 6}
	input := iotaFloat32(sizeOf(dims))
	forEachEngine(t, func(t *testing.T, e *Engine) {
		for _, expr := range roundTripExpressions {
			spec := must.M1(slicing.ParseSpec(expr))
			r := must.M1(e.ResolveSpec(shapes.Make(dtypes.Float32, dims...), spec))
			output, outputDims, err := SliceFlat(e, input, dims, spec)
			require.NoErrorf(t, err, "Slice(%q)", expr)
			assert.Equalf(t, r.FinalShape.Dimensions, outputDims, "Slice(%q) dimensions", expr)
			assert.Equalf(t, gatherPositions(input, selectedPositions(r)), output, "Slice(%q)", expr)
		}
	})
}

func TestSliceIdentity(t *testing.T) {
	forEachEngine(t, func(t *testing.T, e *Engine) {
		for _, dims := range [][]int{{7}, {3, 4}, {2, 3, 4}, {2, 1, 3, 1, 2}} {
			input := iotaFloat32(sizeOf(dims))
			for _, expr := range []string{"", "[...]", "[:]", "[0:]"} {
				output, outputDims, err := SliceFlat(e, input, dims, must.M1(slicing.ParseSpec(expr)))
				require.NoError(t, err)
				assert.Equal(t, dims, outputDims)
				assert.Equal(t, input, output)
			}
		}
	})
}

func TestSliceRows(t *testing.T) {
	dims := []int{3, 4}
	input := iotaFloat32(12)
	spec := slicing.MustBuild(slicing.AxisRange(1, 3))
	forEachEngine(t, func(t *testing.T, e *Engine) {
		output, outputDims, err := SliceFlat(e, input, dims, spec)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 4}, outputDims)
		assert.Equal(t, []float32{4, 5, 6, 7, 8, 9, 10, 11}, output)
	})

	// The path selected depends on the backend capabilities.
	r := must.M1(slicing.Resolve(shapes.Make(dtypes.Float32, dims...), spec))
	goEngine := New(must.M1(backends.NewWithConfig("go")))
	assert.Equal(t, slicing.PathContiguousLead, goEngine.Classify(r))
	refEngine := New(must.M1(backends.NewWithConfig("reference")))
	assert.Equal(t, slicing.PathGeneric, refEngine.Classify(r))

	// Same slice given by its raw encoding, with an explicit end on axis 1.
	raw := slicing.RawSpec{Begin: []int{1, 0}, End: []int{3, 4}, Strides: []int{1, 1}}
	r = must.M1(slicing.Resolve(shapes.Make(dtypes.Float32, dims...), raw))
	assert.Equal(t, slicing.PathContiguousLead, goEngine.Classify(r))
	output, outputDims, err := SliceFlat(goEngine, input, dims, raw)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, outputDims)
	assert.Equal(t, input[4:], output)
}

func TestSliceSimple2D(t *testing.T) {
	dims := []int{4, 5}
	input := iotaFloat32(20)
	spec := must.M1(slicing.ParseSpec("[1:3, 2:4]"))
	r := must.M1(slicing.Resolve(shapes.Make(dtypes.Float32, dims...), spec))
	assert.Equal(t, slicing.PathSimpleSlice2D, New(must.M1(backends.NewWithConfig("go"))).Classify(r))
	forEachEngine(t, func(t *testing.T, e *Engine) {
		output, outputDims, err := SliceFlat(e, input, dims, spec)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 2}, outputDims)
		assert.Equal(t, []float32{7, 8, 12, 13}, output)
	})
}

func TestSliceNegativeIndices(t *testing.T) {
	input := iotaFloat32(5)
	forEachEngine(t, func(t *testing.T, e *Engine) {
		output, outputDims, err := SliceFlat(e, input, []int{5}, slicing.MustBuild(slicing.AxisRangeToEnd(-1)))
		require.NoError(t, err)
		assert.Equal(t, []int{1}, outputDims)
		assert.Equal(t, []float32{4}, output)

		output, _, err = SliceFlat(e, input, []int{5}, slicing.MustBuild(slicing.AxisRangeToEnd(-1).Stride(-1)))
		require.NoError(t, err)
		assert.Equal(t, []float32{4, 3, 2, 1, 0}, output)

		output, _, err = SliceFlat(e, input, []int{5}, slicing.MustBuild(slicing.AxisRange().Stride(-2)))
		require.NoError(t, err)
		assert.Equal(t, []float32{4, 2, 0}, output)
	})
}

func TestSliceEllipsis(t *testing.T) {
	dims := []int{2, 3, 4, 5}
	input := iotaFloat32(sizeOf(dims))
	forEachEngine(t, func(t *testing.T, e *Engine) {
		withEllipsis, dims1, err := SliceFlat(e, input, dims, must.M1(slicing.ParseSpec("[1, ..., 2]")))
		require.NoError(t, err)
		explicit, dims2, err := SliceFlat(e, input, dims, must.M1(slicing.ParseSpec("[1, :, :, 2]")))
		require.NoError(t, err)
		assert.Equal(t, []int{3, 4}, dims1)
		assert.Equal(t, dims1, dims2)
		assert.Equal(t, explicit, withEllipsis)
		assert.Equal(t, float32(1*60+2), withEllipsis[0])
	})
}

func TestSliceShrink(t *testing.T) {
	dims := []int{4, 5, 6}
	input := iotaFloat32(sizeOf(dims))
	forEachEngine(t, func(t *testing.T, e *Engine) {
		output, outputDims, err := SliceFlat(e, input, dims, slicing.MustBuild(slicing.AxisElem(2)))
		require.NoError(t, err)
		assert.Equal(t, []int{5, 6}, outputDims)
		assert.Equal(t, input[60:90], output)

		output, outputDims, err = SliceFlat(e, input, dims, slicing.MustBuild(slicing.AxisElem(-1), slicing.AxisElem(0), slicing.AxisElem(-1)))
		require.NoError(t, err)
		assert.Empty(t, outputDims)
		assert.Equal(t, []float32{3*30 + 5}, output)
	})
}

func TestSliceGradRoundTrip(t *testing.T) {
	dims := []int{4, 5, 6}
	input := iotaFloat32(sizeOf(dims))
	forEachEngine(t, func(t *testing.T, e *Engine) {
		for _, expr := range roundTripExpressions {
			spec := must.M1(slicing.ParseSpec(expr))
			r := must.M1(e.ResolveSpec(shapes.Make(dtypes.Float32, dims...), spec))
			sliced, slicedDims, err := SliceFlat(e, input, dims, spec)
			require.NoError(t, err)

			grad, err := SliceGradFlat(e, dims, spec, sliced, slicedDims)
			require.NoErrorf(t, err, "SliceGrad(%q)", expr)
			require.Len(t, grad, len(input))

			want := make([]float32, len(input))
			for _, pos := range selectedPositions(r) {
				want[pos] = input[pos]
			}
			assert.Equalf(t, want, grad, "SliceGrad(%q)", expr)
		}
	})
}

func TestSliceAssignThenExtract(t *testing.T) {
	dims := []int{4, 5, 6}
	forEachEngine(t, func(t *testing.T, e *Engine) {
		for _, expr := range roundTripExpressions {
			spec := must.M1(slicing.ParseSpec(expr))
			r := must.M1(e.ResolveSpec(shapes.Make(dtypes.Float32, dims...), spec))
			lhs := iotaFloat32(sizeOf(dims))
			rhs := make([]float32, r.NumElements())
			for i := range rhs {
				rhs[i] = -1 - float32(i)
			}
			require.NoErrorf(t, SliceAssignFlat(e, lhs, dims, spec, rhs, r.FinalShape.Dimensions), "SliceAssign(%q)", expr)

			extracted, _, err := SliceFlat(e, lhs, dims, spec)
			require.NoError(t, err)
			assert.Equalf(t, rhs, extracted, "SliceAssign(%q) then Slice", expr)

			// Positions outside the selection are untouched.
			selected := make(map[int]bool)
			for _, pos := range selectedPositions(r) {
				selected[pos] = true
			}
			for pos, value := range lhs {
				if !selected[pos] {
					require.Equalf(t, float32(pos), value, "SliceAssign(%q) changed position %d", expr, pos)
				}
			}
		}
	})
}

func TestZeroStride(t *testing.T) {
	spec := slicing.RawSpec{Begin: []int{0}, End: []int{1}, Strides: []int{0}}
	forEachEngine(t, func(t *testing.T, e *Engine) {
		output, outputDims, err := SliceFlat(e, iotaFloat32(4), []int{4}, spec)
		require.Error(t, err)
		assert.True(t, slicing.IsInvalidArgument(err), "got error %v", err)
		assert.Nil(t, output)
		assert.Nil(t, outputDims)

		_, err = SliceGradFlat(e, []int{4}, spec, []float32{1}, []int{1})
		assert.True(t, slicing.IsInvalidArgument(err), "got error %v", err)
	})
}

func TestSliceAssignMismatch(t *testing.T) {
	forEachEngine(t, func(t *testing.T, e *Engine) {
		lhs := iotaFloat32(4)
		err := SliceAssignFlat(e, lhs, []int{4}, slicing.MustBuild(slicing.AxisRange()), []float32{7, 8, 9}, []int{3})
		require.Error(t, err)
		assert.True(t, slicing.IsUnimplemented(err), "got error %v", err)
		assert.Equal(t, []float32{0, 1, 2, 3}, lhs)

		// Same number of elements, but different dimensions: no broadcasting or reshaping either.
		lhs = iotaFloat32(6)
		err = SliceAssignFlat(e, lhs, []int{2, 3}, slicing.MustBuild(), iotaFloat32(6), []int{3, 2})
		assert.True(t, slicing.IsUnimplemented(err), "got error %v", err)
		assert.Equal(t, iotaFloat32(6), lhs)
	})
}

func TestSliceGradErrors(t *testing.T) {
	forEachEngine(t, func(t *testing.T, e *Engine) {
		spec := must.M1(slicing.ParseSpec("[1:3]"))
		_, err := SliceGradFlat(e, []int{4, 5}, spec, iotaFloat32(12), []int{2, 6})
		require.Error(t, err)
		assert.True(t, slicing.IsInvalidArgument(err), "got error %v", err)

		// Gradient dtype differs from the original shape dtype.
		grad := must.M1(e.Backend().BufferFromFlatData(make([]int32, 10), shapes.Make(dtypes.Int32, 2, 5)))
		defer func() { _ = e.Backend().BufferFinalize(grad) }()
		_, err = e.SliceGrad(shapes.Make(dtypes.Float32, 4, 5), spec, grad)
		require.Error(t, err)
		assert.True(t, slicing.IsInvalidArgument(err), "got error %v", err)

		// Original shape with negative dimension.
		_, err = SliceGradFlat(e, []int{-4, 5}, spec, iotaFloat32(10), []int{2, 5})
		assert.True(t, slicing.IsInvalidArgument(err), "got error %v", err)
	})
}

func TestSliceGradFromDescriptor(t *testing.T) {
	spec := must.M1(slicing.ParseSpec("[1:3, ::-2]"))
	gradDims := []int{2, 3, 6}
	grad := iotaFloat32(sizeOf(gradDims))
	forEachEngine(t, func(t *testing.T, e *Engine) {
		b := e.Backend()
		gradBuffer := must.M1(b.BufferFromFlatData(grad, shapes.Make(dtypes.Float32, gradDims...)))
		defer func() { _ = b.BufferFinalize(gradBuffer) }()
		want := must.M1(SliceGradFlat(e, []int{4, 5, 6}, spec, grad, gradDims))

		descriptors := []struct {
			flat  any
			dtype dtypes.DType
		}{
			{[]int32{4, 5, 6}, dtypes.Int32},
			{[]int64{4, 5, 6}, dtypes.Int64},
		}
		for _, descriptor := range descriptors {
			t.Run(descriptor.dtype.String(), func(t *testing.T) {
				descriptorShape := shapes.Make(descriptor.dtype, 3)
				descriptorBuffer := must.M1(b.BufferFromFlatData(descriptor.flat, descriptorShape))
				defer func() { _ = b.BufferFinalize(descriptorBuffer) }()
				output, err := e.SliceGradFromDescriptor(descriptorBuffer, spec, gradBuffer)
				require.NoError(t, err)
				got, gotShape, err := download[float32](e, output)
				require.NoError(t, err)
				assert.Equal(t, []int{4, 5, 6}, gotShape.Dimensions)
				assert.Equal(t, want, got)
			})
		}

		invalidDescriptors := []struct {
			name  string
			flat  any
			shape shapes.Shape
		}{
			{"rank-2", []int32{4, 5, 6}, shapes.Make(dtypes.Int32, 1, 3)},
			{"float", []float32{4, 5, 6}, shapes.Make(dtypes.Float32, 3)},
			{"negative", []int64{4, -5, 6}, shapes.Make(dtypes.Int64, 3)},
		}
		for _, tc := range invalidDescriptors {
			descriptorBuffer := must.M1(b.BufferFromFlatData(tc.flat, tc.shape))
			_, err := e.SliceGradFromDescriptor(descriptorBuffer, spec, gradBuffer)
			require.Errorf(t, err, "descriptor %s", tc.name)
			assert.Truef(t, slicing.IsInvalidArgument(err), "descriptor %s: got error %v", tc.name, err)
			_ = b.BufferFinalize(descriptorBuffer)
		}
	})
}

func TestHighRank(t *testing.T) {
	dims := []int{2, 2, 2, 2, 2, 2, 2}
	input := iotaFloat32(sizeOf(dims))
	forEachEngine(t, func(t *testing.T, e *Engine) {
		// Reversing an axis requires the strided walkers, limited to rank 6.
		_, _, err := SliceFlat(e, input, dims, must.M1(slicing.ParseSpec("[..., ::-1]")))
		require.Error(t, err)
		assert.True(t, slicing.IsUnimplemented(err), "got error %v", err)

		_, err = SliceGradFlat(e, dims, must.M1(slicing.ParseSpec("[1:]")), input[64:], []int{1, 2, 2, 2, 2, 2, 2})
		assert.True(t, slicing.IsUnimplemented(err), "got error %v", err)

		// A contiguous run only requires the fast path, if the backend has it.
		output, outputDims, err := SliceFlat(e, input, dims, must.M1(slicing.ParseSpec("[1:]")))
		if e.Backend().Capabilities().SupportsPath(slicing.PathContiguousLead) {
			require.NoError(t, err)
			assert.Equal(t, []int{1, 2, 2, 2, 2, 2, 2}, outputDims)
			assert.Equal(t, input[64:], output)
		} else {
			assert.True(t, slicing.IsUnimplemented(err), "got error %v", err)
		}
	})
}

func TestScalar(t *testing.T) {
	forEachEngine(t, func(t *testing.T, e *Engine) {
		output, outputDims, err := SliceFlat(e, []float32{7}, nil, slicing.MustBuild())
		require.NoError(t, err)
		assert.Empty(t, outputDims)
		assert.Equal(t, []float32{7}, output)

		output, outputDims, err = SliceFlat(e, []float32{7}, nil, slicing.MustBuild(slicing.NewAxis()))
		require.NoError(t, err)
		assert.Equal(t, []int{1}, outputDims)
		assert.Equal(t, []float32{7}, output)

		grad, err := SliceGradFlat(e, nil, slicing.MustBuild(slicing.NewAxis()), []float32{3}, []int{1})
		require.NoError(t, err)
		assert.Equal(t, []float32{3}, grad)

		lhs := []float32{7}
		require.NoError(t, SliceAssignFlat(e, lhs, nil, slicing.MustBuild(), []float32{5}, nil))
		assert.Equal(t, []float32{5}, lhs)

		// Indexing a scalar is out of range.
		_, _, err = SliceFlat(e, []float32{7}, nil, slicing.MustBuild(slicing.AxisElem(0)))
		assert.True(t, slicing.IsInvalidArgument(err), "got error %v", err)
	})
}

func TestEmptySelection(t *testing.T) {
	dims := []int{4, 5}
	spec := must.M1(slicing.ParseSpec("[2:2]"))
	forEachEngine(t, func(t *testing.T, e *Engine) {
		output, outputDims, err := SliceFlat(e, iotaFloat32(20), dims, spec)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 5}, outputDims)
		assert.Empty(t, output)

		grad, err := SliceGradFlat(e, dims, spec, []float32{}, []int{0, 5})
		require.NoError(t, err)
		assert.Equal(t, make([]float32, 20), grad)

		lhs := iotaFloat32(20)
		require.NoError(t, SliceAssignFlat(e, lhs, dims, spec, []float32{}, []int{0, 5}))
		assert.Equal(t, iotaFloat32(20), lhs)

		// The right-hand side is validated even if nothing is written.
		err = SliceAssignFlat(e, lhs, dims, spec, []float32{}, []int{0})
		assert.True(t, slicing.IsUnimplemented(err), "got error %v", err)

		// Slicing an input with a zero dimension.
		output, outputDims, err = SliceFlat(e, []float32{}, []int{3, 0, 2}, must.M1(slicing.ParseSpec("[::-1, :, 1]")))
		require.NoError(t, err)
		assert.Equal(t, []int{3, 0}, outputDims)
		assert.Empty(t, output)
	})
}

func testDTypeSlice[T Element](t *testing.T, e *Engine, convert func(i int) T) {
	dims := []int{4, 6}
	input := make([]T, sizeOf(dims))
	for i := range input {
		input[i] = convert(i)
	}
	spec := must.M1(slicing.ParseSpec("[::-1, 1::2]"))
	r := must.M1(e.ResolveSpec(shapes.Make(dtypeFor[T](), dims...), spec))
	output, outputDims, err := SliceFlat(e, input, dims, spec)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3}, outputDims)
	assert.Equal(t, gatherPositions(input, selectedPositions(r)), output)

	rows, _, err := SliceFlat(e, input, dims, must.M1(slicing.ParseSpec("[1:3]")))
	require.NoError(t, err)
	assert.Equal(t, input[6:18], rows)

	grad, err := SliceGradFlat(e, dims, spec, output, outputDims)
	require.NoError(t, err)
	var zero T
	for pos, value := range grad {
		if pos%2 == 1 {
			assert.Equal(t, input[pos], value)
		} else {
			assert.Equal(t, zero, value)
		}
	}
}

func TestDTypes(t *testing.T) {
	forEachEngine(t, func(t *testing.T, e *Engine) {
		t.Run("Bool", func(t *testing.T) { testDTypeSlice(t, e, func(i int) bool { return i%3 == 0 }) })
		t.Run("Int8", func(t *testing.T) { testDTypeSlice(t, e, func(i int) int8 { return int8(i - 12) }) })
		t.Run("Int16", func(t *testing.T) { testDTypeSlice(t, e, func(i int) int16 { return int16(i * 100) }) })
		t.Run("Int64", func(t *testing.T) { testDTypeSlice(t, e, func(i int) int64 { return int64(i) << 40 }) })
		t.Run("Uint8", func(t *testing.T) { testDTypeSlice(t, e, func(i int) uint8 { return uint8(i + 1) }) })
		t.Run("Uint64", func(t *testing.T) { testDTypeSlice(t, e, func(i int) uint64 { return uint64(i + 1) }) })
		t.Run("Float64", func(t *testing.T) { testDTypeSlice(t, e, func(i int) float64 { return float64(i) / 3 }) })
		t.Run("Float16", func(t *testing.T) {
			testDTypeSlice(t, e, func(i int) float16.Float16 { return float16.Fromfloat32(float32(i) + 0.5) })
		})
		t.Run("BFloat16", func(t *testing.T) {
			testDTypeSlice(t, e, func(i int) bfloat16.BFloat16 { return bfloat16.FromFloat32(float32(i) - 0.5) })
		})
	})
}

func TestConcurrentSlices(t *testing.T) {
	dims := []int{16, 32, 8}
	input := iotaFloat32(sizeOf(dims))
	spec := must.M1(slicing.ParseSpec("[::-1, 3:30:3, 1]"))
	forEachEngine(t, func(t *testing.T, e *Engine) {
		want, _, err := SliceFlat(e, input, dims, spec)
		require.NoError(t, err)

		const numGoroutines = 8
		results := make([][]float32, numGoroutines)
		errs := make([]error, numGoroutines)
		var wg sync.WaitGroup
		for i := range numGoroutines {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], _, errs[i] = SliceFlat(e, input, dims, spec)
			}()
		}
		wg.Wait()
		for i := range numGoroutines {
			require.NoError(t, errs[i])
			assert.Equal(t, want, results[i])
		}
	})
}

func TestInvalidFlatInput(t *testing.T) {
	forEachEngine(t, func(t *testing.T, e *Engine) {
		_, _, err := SliceFlat(e, iotaFloat32(5), []int{2, 3}, slicing.MustBuild())
		assert.True(t, slicing.IsInvalidArgument(err), "got error %v", err)

		_, err = e.Slice(nil, slicing.MustBuild())
		assert.True(t, slicing.IsInvalidArgument(err), "got error %v", err)
	})
}
