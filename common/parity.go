// Copyright 2026 CNPEM. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains bit math shared across multiple packages. For
// example, the parity calculation used by the extender addressing frame.
package common

// Parity returns the even-parity bit of b: 1 when b has an odd number of
// set bits, so that appending the bit makes the total even.
func Parity(b byte) byte {
	b ^= b >> 4
	b ^= b >> 2
	b ^= b >> 1
	return b & 1
}
