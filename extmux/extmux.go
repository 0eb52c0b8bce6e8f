// Copyright 2026 CNPEM. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package extmux addresses the SPI-connected extender boards that expose
// additional I2C channels to the rack monitor.
//
// A board is selected with a single parity-checked frame, laid out as
// [parity:1][board address:4][module:3] with even parity over the address
// nibble. Frames travel at the module-select bus profile (clock mode 3,
// 8 bits per word), which the transport swaps in and out around each
// exchange. Address 0 is the reserved broadcast/unselect frame and is
// rejected at registration; Deselect sends it deliberately to idle the
// chain after a burst of extended operations.
package extmux

import (
	"errors"

	"github.com/cnpem-sei/simar-go/common"
)

// Module selector values the extender firmware assigns. Payload reads
// need the two-step priming sequence; one select is not enough for the
// board to turn its shifter around.
const (
	ModuleWrite      = 1 // prepare for payload write
	ModuleReadPrime  = 2 // prepare for payload read, step 1
	ModuleReadCommit = 3 // prepare for payload read, step 2
)

var (
	// ErrInvalidAddress is returned for board addresses outside 1..15.
	// Address 0 is the reserved unselect frame.
	ErrInvalidAddress = errors.New("extmux: board address must be 1..15")
	// ErrInvalidModule is returned for module selectors outside 0..7.
	ErrInvalidModule = errors.New("extmux: module selector must be 0..7")
)

// Transport is the shared SPI controller, normally a *spibus.Bus. Tx,
// Write and Read run at whatever profile is active; TxModule and
// WithModuleProfile provide the module-select profile scope.
type Transport interface {
	Tx(w, r []byte) error
	TxModule(w, r []byte) error
	WithModuleProfile(fn func() error) error
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
}

// Dev is one extender board on the chain.
type Dev struct {
	bus  Transport
	addr uint8
}

// New returns a Dev for the board at the given address. The address is
// fixed by jumpers on the board and never changes at runtime.
func New(t Transport, addr uint8) (*Dev, error) {
	if addr == 0 || addr > 15 {
		return nil, ErrInvalidAddress
	}
	return &Dev{bus: t, addr: addr}, nil
}

// frame packs the select byte: [parity:1][address:4][module:3].
func frame(addr, module uint8) byte {
	return (common.Parity(addr)<<4|addr)<<3 | module
}

// Select activates the given module on the board. The byte clocked back
// during the exchange carries nothing and is discarded.
func (d *Dev) Select(module uint8) error {
	if module > 7 {
		return ErrInvalidModule
	}
	buf := []byte{frame(d.addr, module)}
	return d.bus.TxModule(buf, buf)
}

// Deselect returns the chain to the idle, unselected state by sending the
// reserved zero frame, bypassing the parity/address packing. Callers
// should deselect after finishing a burst of extended operations.
func (d *Dev) Deselect() error {
	buf := []byte{0}
	return d.bus.TxModule(buf, buf)
}

// Write arms the board for a payload write, then streams p to it under
// the module-select profile.
func (d *Dev) Write(p []byte) (n int, err error) {
	if err := d.Select(ModuleWrite); err != nil {
		return 0, err
	}
	err = d.bus.WithModuleProfile(func() error {
		var werr error
		n, werr = d.bus.Write(p)
		return werr
	})
	return n, err
}

// Read primes the board with the two-step select sequence the hardware
// requires, then reads len(p) payload bytes under the module-select
// profile. Each priming select is followed by one dummy payload exchange.
func (d *Dev) Read(p []byte) (n int, err error) {
	dummy := []byte{0}
	if err := d.Select(ModuleReadPrime); err != nil {
		return 0, err
	}
	if err := d.bus.Tx(dummy, nil); err != nil {
		return 0, err
	}
	if err := d.Select(ModuleReadCommit); err != nil {
		return 0, err
	}
	if err := d.bus.Tx(dummy, nil); err != nil {
		return 0, err
	}
	err = d.bus.WithModuleProfile(func() error {
		var rerr error
		n, rerr = d.bus.Read(p)
		return rerr
	})
	return n, err
}
