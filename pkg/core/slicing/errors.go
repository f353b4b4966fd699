// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package slicing

import "github.com/pkg/errors"

var (
	// ErrInvalidArgument is wrapped by every error caused by a malformed slicing specification or by
	// operands whose shapes don't match the resolved slice.
	//
	// Test for it with errors.Is.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnimplemented is wrapped by errors of well-formed requests the engine doesn't support:
	// processing ranks above MaxRank and broadcasting of the right-hand side of an assignment.
	ErrUnimplemented = errors.New("unimplemented")
)

// InvalidArgumentf returns an error with the formatted message that wraps ErrInvalidArgument.
func InvalidArgumentf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

// Unimplementedf returns an error with the formatted message that wraps ErrUnimplemented.
func Unimplementedf(format string, args ...any) error {
	return errors.Wrapf(ErrUnimplemented, format, args...)
}

// IsInvalidArgument reports whether err was caused by an invalid argument.
func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }

// IsUnimplemented reports whether err was caused by an unsupported request.
func IsUnimplemented(err error) bool { return errors.Is(err, ErrUnimplemented) }
