// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

// prefetch is a no-op hint that data is about to be accessed.
//
// Go has no portable prefetch instruction. The bounds-checked load below may be elided by the
// compiler and has no semantic effect.
func prefetch(data []byte) {
	if len(data) > 0 {
		_ = data[0]
	}
}
