// Copyright 2026 CNPEM. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package am335x drives AM335x (BeagleBone) GPIO pins through the memory
// mapped controller registers instead of sysfs, so a pin toggle is a single
// store and can sit on the hot path of bus channel selection.
//
// The controller has four register banks of 4KiB each. Mem maps a bank over
// /dev/mem the first time a pin resolved into it is requested and keeps the
// mapping for the lifetime of the process; there is no unmap path. A failed
// open or mmap is not remembered: the next resolution of a pin in that bank
// retries the mapping.
//
// Mem is not safe for concurrent use. The routing layer above assumes a
// single caller driving the bus sequentially.
package am335x

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const bankLen = 4096

// Register word offsets within a bank.
const (
	regOE           = 0x134 / 4 // direction, 1 = input
	regDataIn       = 0x138 / 4
	regSetDataOut   = 0x194 / 4 // write-1-to-set
	regClearDataOut = 0x190 / 4 // write-1-to-clear
)

// Physical base addresses of the GPIO0..GPIO3 controller banks.
var bankAddrs = [4]int64{0x44E07000, 0x4804C000, 0x481AC000, 0x481AF000}

// ErrInvalidPin is returned for pin numbers outside the four banks.
var ErrInvalidPin = errors.New("am335x: pin number out of range")

// Mem owns the bank mappings. Construct one per process with New and pass
// it to everything that resolves pins; tests can construct several
// independent instances.
type Mem struct {
	open  func(base int64) ([]uint32, error)
	banks [len(bankAddrs)][]uint32
}

// New returns a Mem mapping banks over /dev/mem on demand.
func New() *Mem {
	return &Mem{open: mapBank}
}

// Pin resolves a logical pin number (bank*32 + bit, the usual Linux GPIO
// numbering on the AM335x) to a driveable pin, mapping the bank on first
// use. The pins.go constants name the BeagleBone header positions.
func (m *Mem) Pin(number int) (*Pin, error) {
	if number < 0 || number >= len(bankAddrs)*32 {
		return nil, ErrInvalidPin
	}
	bank := number / 32
	if m.banks[bank] == nil {
		regs, err := m.open(bankAddrs[bank])
		if err != nil {
			return nil, err
		}
		m.banks[bank] = regs
	}
	return &Pin{number: number, regs: m.banks[bank], mask: 1 << (number % 32)}, nil
}

func mapBank(base int64) ([]uint32, error) {
	fd, err := unix.Open("/dev/mem", unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("am335x: opening /dev/mem: %w", err)
	}
	mem, err := unix.Mmap(fd, base, bankLen, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	// The mapping stays valid after the descriptor is closed.
	unix.Close(fd)
	if err != nil {
		return nil, fmt.Errorf("am335x: mapping GPIO bank %#x: %w", base, err)
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&mem[0])), bankLen/4), nil
}
