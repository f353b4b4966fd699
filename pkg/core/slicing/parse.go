// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package slicing

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseExpression parses a NumPy-style slice expression into axes specifications.
//
// The expression is a comma-separated list of entries, optionally enclosed in square brackets:
//
//   - "start:stop:step", with each of the three parts optional (e.g. ":", "1:", "::-1", ":3:2");
//   - an integer index, which selects one element and removes the axis (e.g. "2", "-1");
//   - "..." for an ellipsis;
//   - "newaxis", "np.newaxis" or "None" to insert a new axis.
//
// Example: ParseExpression("[1:3, ..., ::-1, newaxis, 2]").
//
// An empty expression returns no axes, which selects the whole input.
// Errors wrap ErrInvalidArgument.
func ParseExpression(expr string) ([]AxisSpec, error) {
	expr = strings.TrimSpace(expr)
	expr = strings.TrimPrefix(expr, "[")
	expr = strings.TrimSuffix(expr, "]")
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	entries := strings.Split(expr, ",")
	axes := make([]AxisSpec, 0, len(entries))
	for i, entry := range entries {
		axis, err := parseEntry(strings.TrimSpace(entry))
		if err != nil {
			return nil, errors.WithMessagef(err, "entry #%d of slice expression %q", i, expr)
		}
		axes = append(axes, axis)
	}
	return axes, nil
}

// ParseSpec parses a NumPy-style slice expression (see ParseExpression) and encodes it as a RawSpec.
func ParseSpec(expr string) (RawSpec, error) {
	axes, err := ParseExpression(expr)
	if err != nil {
		return RawSpec{}, err
	}
	return Build(axes...)
}

func parseEntry(entry string) (AxisSpec, error) {
	switch entry {
	case "":
		return AxisSpec{}, InvalidArgumentf("empty entry")
	case "...":
		return Ellipsis(), nil
	case "newaxis", "np.newaxis", "None":
		return NewAxis(), nil
	}
	if !strings.Contains(entry, ":") {
		index, err := parseInt(entry)
		if err != nil {
			return AxisSpec{}, err
		}
		return AxisElem(index), nil
	}

	parts := strings.Split(entry, ":")
	if len(parts) > 3 {
		return AxisSpec{}, InvalidArgumentf("range %q has more than 3 parts", entry)
	}
	axis := AxisRange()
	if s := strings.TrimSpace(parts[0]); s != "" {
		start, err := parseInt(s)
		if err != nil {
			return AxisSpec{}, err
		}
		axis.Start, axis.HasStart = start, true
	}
	if s := strings.TrimSpace(parts[1]); s != "" {
		stop, err := parseInt(s)
		if err != nil {
			return AxisSpec{}, err
		}
		axis.Stop, axis.HasStop = stop, true
	}
	if len(parts) == 3 {
		if s := strings.TrimSpace(parts[2]); s != "" {
			step, err := parseInt(s)
			if err != nil {
				return AxisSpec{}, err
			}
			axis.Step = step
		}
	}
	return axis, nil
}

func parseInt(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, InvalidArgumentf("%q is not a valid integer", s)
	}
	return v, nil
}
