// Copyright 2026 CNPEM. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import "testing"

// Reference table for the 16 board addresses the extender frame carries.
var nibbleParity = [16]byte{0, 1, 1, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0, 1, 1, 0}

func TestParityNibbles(t *testing.T) {
	for addr := byte(0); addr < 16; addr++ {
		if res := Parity(addr); res != nibbleParity[addr] {
			t.Errorf("Parity(%#x)!=%d received %d", addr, nibbleParity[addr], res)
		}
	}
}

func TestParityFullBytes(t *testing.T) {
	var tests = []struct {
		b      byte
		result byte
	}{
		{b: 0x00, result: 0},
		{b: 0xff, result: 0},
		{b: 0xfe, result: 1},
		{b: 0x81, result: 0},
		{b: 0x80, result: 1},
	}
	for _, test := range tests {
		if res := Parity(test.b); res != test.result {
			t.Errorf("Parity(%#x)!=%d received %d", test.b, test.result, res)
		}
	}
}
