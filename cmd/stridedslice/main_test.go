// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"reflect"
	"testing"
	"time"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/stridedslice/pkg/core/shapes"
	"github.com/gomlx/stridedslice/pkg/core/slicing"
)

func TestParseDims(t *testing.T) {
	assert.Equal(t, []int{4, 5, 6}, must.M1(parseDims("4, 5,6")))
	assert.Empty(t, must.M1(parseDims("")))
	assert.Equal(t, []int{0}, must.M1(parseDims("0")))
	for _, value := range []string{"4,x", "4,,5", "-1"} {
		_, err := parseDims(value)
		assert.Errorf(t, err, "parseDims(%q)", value)
	}
}

func TestMakeIota(t *testing.T) {
	for _, dtype := range []dtypes.DType{dtypes.Bool, dtypes.Int8, dtypes.Uint16, dtypes.Float16, dtypes.BFloat16, dtypes.Float64} {
		flat, err := makeIota(dtype, 5)
		require.NoError(t, err)
		assert.Equal(t, dtype.GoType(), reflect.TypeOf(flat).Elem(), "dtype %s", dtype)
	}
	assert.Equal(t, []int32{0, 1, 2}, must.M1(makeIota(dtypes.Int32, 3)))
	_, err := makeIota(dtypes.Complex64, 3)
	assert.Error(t, err)
}

func TestFormatValues(t *testing.T) {
	assert.Equal(t, "[0 1 2]", formatValues([]int32{0, 1, 2}, 10))
	assert.Equal(t, "[0 1 ... (3 more)]", formatValues([]int32{0, 1, 2, 3, 4}, 2))
	assert.Equal(t, "[]", formatValues([]float32{}, 10))
}

func TestTables(t *testing.T) {
	shape := shapes.Make(dtypes.Float32, 4, 5, 6)
	r := must.M1(slicing.Resolve(shape, must.M1(slicing.ParseSpec("[1:3, ..., 2]"))))
	axes := axesTable(r)
	assert.Contains(t, axes, "Shrink")
	assert.Contains(t, axes, "✓")
	summary := summaryTable(r, slicing.PathGeneric, "test")
	assert.Contains(t, summary, "Generic")
	assert.Contains(t, summary, "(Float32)[2 5]")

	stats := &benchmarkStats{
		durations:  []time.Duration{3 * time.Millisecond, time.Millisecond, 2 * time.Millisecond},
		bytesPerOp: 2_000_000,
	}
	assert.Equal(t, 2*time.Millisecond, stats.median())
	assert.Equal(t, 6*time.Millisecond, stats.total())
	assert.Contains(t, statsTable(stats), "GB/s")
}
