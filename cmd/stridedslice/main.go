// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// stridedslice applies a NumPy-like slice expression to an "iota" array (values 0, 1, 2, ... in row-major order)
// and prints how the slice is resolved, the path used to extract it, and the resulting values.
//
// Example:
//
//	stridedslice -shape=4,5,6 -slice="[1:3, ..., ::-2]" -grad -bench=1000
package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/janpfeifer/must"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"k8s.io/klog/v2"

	"github.com/gomlx/stridedslice/backends"
	_ "github.com/gomlx/stridedslice/backends/reference"
	_ "github.com/gomlx/stridedslice/backends/simplego"
	"github.com/gomlx/stridedslice/pkg/core/shapes"
	"github.com/gomlx/stridedslice/pkg/core/slicing"
	"github.com/gomlx/stridedslice/pkg/stridedslice"
)

var (
	flagShape = flag.String("shape", "4,5,6", "Comma-separated dimensions of the iota array to slice. "+
		"An empty value is a scalar.")
	flagSlice = flag.String("slice", "[1:3, ..., ::-1]", "NumPy-like slice expression: comma-separated entries "+
		"\"start:stop:step\", index, \"...\" or \"newaxis\".")
	flagDType   = flag.String("dtype", "Float32", "DType of the array, e.g. Float32, Int64, BFloat16 or Bool.")
	flagGrad    = flag.Bool("grad", false, "Also computes the gradient of the slice, using the slice values as incoming gradient.")
	flagAssign  = flag.Bool("assign", false, "Also assigns zeros to the sliced region of the array.")
	flagBench   = flag.Int("bench", 0, "If > 0, extracts the slice this number of times and reports the timings.")
	flagBackend = flag.String("backend", "", fmt.Sprintf("Backend configuration, in the format \"<backend_name>:<config>\". "+
		"Defaults to $%s, or the first registered backend.", backends.ConfigEnvVar))
	flagNoColor   = flag.Bool("nocolor", false, "Disable colors in the output.")
	flagMaxValues = flag.Int("max_values", 64, "Maximum number of values printed for each array.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if len(flag.Args()) > 0 {
		klog.Errorf("Unexpected arguments %q. See 'stridedslice -help'.", flag.Args())
		os.Exit(1)
	}
	if *flagNoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	if err := run(); err != nil {
		klog.Errorf("%+v", err)
		os.Exit(1)
	}
}

func run() error {
	var backend backends.Backend
	var err error
	if *flagBackend != "" {
		backend, err = backends.NewWithConfig(*flagBackend)
	} else {
		backend, err = backends.New()
	}
	if err != nil {
		return err
	}
	defer backend.Finalize()
	engine := stridedslice.New(backend)

	dims, err := parseDims(*flagShape)
	if err != nil {
		return err
	}
	dtype, err := dtypes.DTypeString(*flagDType)
	if err != nil {
		return errors.Wrapf(err, "invalid -dtype=%q", *flagDType)
	}
	shape := shapes.Make(dtype, dims...)
	spec, err := slicing.ParseSpec(*flagSlice)
	if err != nil {
		return err
	}
	r, err := engine.ResolveSpec(shape, spec)
	if err != nil {
		return err
	}
	path := engine.Classify(r)
	printTitle(fmt.Sprintf("Slice %s of %s", spec, shape))
	fmt.Println(axesTable(r))
	fmt.Println(summaryTable(r, path, backend.Name()))

	flat, err := makeIota(dtype, shape.Size())
	if err != nil {
		return err
	}
	input, err := backend.BufferFromFlatData(flat, shape)
	if err != nil {
		return err
	}
	defer func() { _ = backend.BufferFinalize(input) }()
	printBuffer(backend, "Input", input)

	output, err := engine.Slice(input, spec)
	if err != nil {
		return err
	}
	defer func() { _ = backend.BufferFinalize(output) }()
	printBuffer(backend, "Slice", output)

	if *flagGrad {
		grad, err := engine.SliceGrad(shape, spec, output)
		if err != nil {
			return err
		}
		printBuffer(backend, "Gradient", grad)
		_ = backend.BufferFinalize(grad)
	}

	if *flagAssign {
		zeros := must.M1(backend.NewBuffer(r.FinalShape))
		defer func() { _ = backend.BufferFinalize(zeros) }()
		lhs := must.M1(backend.BufferFromFlatData(must.M1(makeIota(dtype, shape.Size())), shape))
		defer func() { _ = backend.BufferFinalize(lhs) }()
		if err := engine.SliceAssign(lhs, spec, zeros); err != nil {
			return err
		}
		printBuffer(backend, "Assigned zeros", lhs)
	}

	if *flagBench > 0 {
		printTitle("Benchmark")
		stats, err := runBenchmark(path.String(), *flagBench, uint64(r.FinalShape.Memory()), !*flagNoColor, func() error {
			benchOutput, err := engine.Slice(input, spec)
			if err != nil {
				return err
			}
			return backend.BufferFinalize(benchOutput)
		})
		if err != nil {
			return err
		}
		fmt.Println(statsTable(stats))
	}
	return nil
}

// parseDims parses a comma-separated list of dimensions.
func parseDims(value string) ([]int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	dims := make([]int, len(parts))
	for ii, part := range parts {
		dim, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid dimension #%d in -shape=%q", ii, value)
		}
		if dim < 0 {
			return nil, errors.Errorf("negative dimension %d in -shape=%q", dim, value)
		}
		dims[ii] = dim
	}
	return dims, nil
}

func iotaOf[T any](n int, convert func(i int) T) []T {
	flat := make([]T, n)
	for i := range flat {
		flat[i] = convert(i)
	}
	return flat
}

// makeIota returns a flat slice of the Go type of dtype with the values 0, 1, 2, ...
// For Bool it alternates true and false.
func makeIota(dtype dtypes.DType, n int) (any, error) {
	switch dtype {
	case dtypes.Bool:
		return iotaOf(n, func(i int) bool { return i%2 == 0 }), nil
	case dtypes.Int8:
		return iotaOf(n, func(i int) int8 { return int8(i) }), nil
	case dtypes.Int16:
		return iotaOf(n, func(i int) int16 { return int16(i) }), nil
	case dtypes.Int32:
		return iotaOf(n, func(i int) int32 { return int32(i) }), nil
	case dtypes.Int64:
		return iotaOf(n, func(i int) int64 { return int64(i) }), nil
	case dtypes.Uint8:
		return iotaOf(n, func(i int) uint8 { return uint8(i) }), nil
	case dtypes.Uint16:
		return iotaOf(n, func(i int) uint16 { return uint16(i) }), nil
	case dtypes.Uint32:
		return iotaOf(n, func(i int) uint32 { return uint32(i) }), nil
	case dtypes.Uint64:
		return iotaOf(n, func(i int) uint64 { return uint64(i) }), nil
	case dtypes.Float16:
		return iotaOf(n, func(i int) float16.Float16 { return float16.Fromfloat32(float32(i)) }), nil
	case dtypes.BFloat16:
		return iotaOf(n, func(i int) bfloat16.BFloat16 { return bfloat16.FromFloat32(float32(i)) }), nil
	case dtypes.Float32:
		return iotaOf(n, func(i int) float32 { return float32(i) }), nil
	case dtypes.Float64:
		return iotaOf(n, func(i int) float64 { return float64(i) }), nil
	default:
		return nil, errors.Errorf("dtype %s not supported by stridedslice", dtype)
	}
}

func printTitle(title string) {
	fmt.Println(titleStyle.Render(title))
}

// printBuffer prints the shape and the first -max_values values of the buffer.
func printBuffer(backend backends.Backend, name string, buffer backends.Buffer) {
	shape := must.M1(backend.BufferShape(buffer))
	flat := must.M1(backend.BufferData(buffer))
	fmt.Printf("  %s %s: %s\n", name, shape, formatValues(flat, *flagMaxValues))
}

// formatValues formats the flat slice, truncated to maxValues.
func formatValues(flat any, maxValues int) string {
	values := reflect.ValueOf(flat)
	n := values.Len()
	parts := make([]string, 0, min(n, maxValues)+1)
	for i := range min(n, maxValues) {
		parts = append(parts, fmt.Sprintf("%v", values.Index(i).Interface()))
	}
	if n > maxValues {
		parts = append(parts, fmt.Sprintf("... (%d more)", n-maxValues))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
